package api

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"gesture-capture/pkg/stream"
	imgutil "gesture-capture/pkg/utils/image"
)

// video streams frames as multipart/x-mixed-replace so a plain <img> tag can
// preview the session.
func (s *Server) video(c *gin.Context) {
	ch, cancel := s.hub.Subscribe(1)
	defer cancel()

	mimeWriter := multipart.NewWriter(c.Writer)
	c.Header("Content-Type", fmt.Sprintf("multipart/x-mixed-replace; boundary=%s", mimeWriter.Boundary()))
	c.Status(http.StatusOK)
	c.Writer.Flush()
	partHeader := make(textproto.MIMEHeader)
	partHeader.Add("Content-Type", "image/jpeg")

	for {
		var msg []byte
		select {
		case <-c.Request.Context().Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			msg = m
		}

		var f stream.Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			s.logger.Warnf("decode frame message: %s", err)
			continue
		}
		jpeg, err := imgutil.DataURLBytes(f.Data)
		if err != nil {
			s.logger.Warnf("frame %d: %s", f.Seq, err)
			continue
		}

		partWriter, err := mimeWriter.CreatePart(partHeader)
		if err != nil {
			s.logger.Debugf("failed to create multi-part writer: %s", err)
			return
		}
		if _, err := partWriter.Write(jpeg); err != nil {
			s.logger.Debugf("failed to write image: %s", err)
			return
		}
		if err := http.NewResponseController(c.Writer).Flush(); err != nil {
			s.logger.Debugf("failed to flush image: %s", err)
			return
		}
	}
}
