package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 5 * time.Second
	wsBuffer  = 2
)

// frames pushes every published frame to a websocket client, starting with
// the latest one. A client too slow to keep up misses frames.
func (s *Server) frames(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warnf("upgrade websocket from %s: %s", c.ClientIP(), err)
		return
	}
	defer conn.Close()

	ch, cancel := s.hub.Subscribe(wsBuffer)
	defer cancel()

	// the client only ever closes; reading detects that
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if f, ok := s.hub.Latest(); ok {
		msg, err := json.Marshal(f)
		if err == nil && s.write(conn, msg) != nil {
			return
		}
	}

	for {
		select {
		case <-closed:
			return
		case msg, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			if err := s.write(conn, msg); err != nil {
				s.logger.Debugf("write frame: %s", err)
				return
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, msg []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, msg)
}
