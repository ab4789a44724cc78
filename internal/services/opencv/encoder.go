package opencv

import (
	"fmt"

	"gocv.io/x/gocv"

	"bench-video-go/internal/models"
	"bench-video-go/internal/services/encoder"
)

// Encoder is an encoder.Encoder backed by OpenCV's imencode
type Encoder struct{}

// NewEncoder creates an OpenCV JPEG encoder
func NewEncoder() *Encoder {
	return &Encoder{}
}

func (Encoder) Encode(frame *models.RawFrame, quality int) (out []byte, err error) {
	if err := encoder.CheckFrame(frame); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("jpeg encode panic: %v", r)
		}
	}()

	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mat from frame data: %w", err)
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{
		gocv.IMWriteJpegQuality, quality,
		gocv.IMWriteJpegOptimize, 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	defer buf.Close()

	b := buf.GetBytes()
	jpegCopy := make([]byte, len(b))
	copy(jpegCopy, b)
	return jpegCopy, nil
}
