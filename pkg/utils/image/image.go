package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/draw"
	"image/jpeg"
	"io"
	"strings"
)

const DataURLPrefix = "data:image/jpeg;base64,"

var ErrShortFrame = errors.New("frame shorter than its dimensions")

// RGBToRGBA expands packed RGB24 rows into out, which must hold width*height*4 bytes.
func RGBToRGBA(in, out []byte, width, height int) error {
	if height <= 0 || width <= 0 {
		return nil
	}
	inStride := len(in) / height
	if inStride < width*3 || len(out) < width*height*4 {
		return ErrShortFrame
	}

	for i := 0; i < height; i++ {
		oIndex := i * width * 4
		iIndex := i * inStride
		for j := 0; j < width; j++ {
			out[oIndex] = in[iIndex]
			out[oIndex+1] = in[iIndex+1]
			out[oIndex+2] = in[iIndex+2]
			out[oIndex+3] = 0xff

			oIndex += 4
			iIndex += 3
		}
	}

	return nil
}

// DecodeRGB allocates a new RGBA image from a packed RGB24 frame.
func DecodeRGB(data []byte, width, height int) (*image.RGBA, error) {
	i := image.NewRGBA(image.Rect(0, 0, width, height))
	if err := RGBToRGBA(data, i.Pix, width, height); err != nil {
		return nil, err
	}

	return i, nil
}

// DecodeJPEGInto decodes a JPEG frame and draws it over dst.
func DecodeJPEGInto(data []byte, dst *image.RGBA) error {
	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)

	return nil
}

func EncodeJPEG(img image.Image, dst io.Writer, quality int) error {
	return jpeg.Encode(dst, img, &jpeg.Options{Quality: quality})
}

// EncodeDataURL encodes img as a JPEG data URL. buf is reused between calls.
func EncodeDataURL(img image.Image, quality int, buf *bytes.Buffer) (string, error) {
	buf.Reset()
	if err := EncodeJPEG(img, buf, quality); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(len(DataURLPrefix) + base64.StdEncoding.EncodedLen(buf.Len()))
	sb.WriteString(DataURLPrefix)
	enc := base64.NewEncoder(base64.StdEncoding, &sb)
	_, _ = enc.Write(buf.Bytes())
	_ = enc.Close()

	return sb.String(), nil
}

// DataURLBytes returns the JPEG bytes carried by a data url.
func DataURLBytes(s string) ([]byte, error) {
	if !strings.HasPrefix(s, DataURLPrefix) {
		return nil, errors.New("not a jpeg data url")
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(s, DataURLPrefix))
}

// DecodeDataURL reverses EncodeDataURL.
func DecodeDataURL(s string) (image.Image, error) {
	raw, err := DataURLBytes(s)
	if err != nil {
		return nil, err
	}

	return jpeg.Decode(bytes.NewReader(raw))
}
