package encoder

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bench-video-go/internal/models"
)

// gradientFrame builds a BGR24 test pattern
func gradientFrame(w, h int) *models.RawFrame {
	data := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			data[i] = byte(x * 255 / w)   // B
			data[i+1] = byte(y * 255 / h) // G
			data[i+2] = 128               // R
		}
	}
	return &models.RawFrame{Data: data, Width: w, Height: h}
}

func TestSoftwareRoundTrip(t *testing.T) {
	frame := gradientFrame(64, 48)

	out, err := NewSoftware().Encode(frame, 75)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte{0xff, 0xd8}), "missing SOI marker")
	require.True(t, bytes.HasSuffix(out, []byte{0xff, 0xd9}), "missing EOI marker")

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())

	// Lossy, but every channel should land near the source pixel.
	var maxDiff int
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			i := (y*64 + x) * 3
			for _, d := range []int{
				int(r>>8) - int(frame.Data[i+2]),
				int(g>>8) - int(frame.Data[i+1]),
				int(b>>8) - int(frame.Data[i]),
			} {
				if d < 0 {
					d = -d
				}
				if d > maxDiff {
					maxDiff = d
				}
			}
		}
	}
	assert.Less(t, maxDiff, 40)
}

func TestSoftwareDeterministic(t *testing.T) {
	frame := gradientFrame(32, 32)
	a, err := NewSoftware().Encode(frame, 60)
	require.NoError(t, err)
	b, err := NewSoftware().Encode(frame, 60)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSoftwareQualityAffectsSize(t *testing.T) {
	frame := gradientFrame(128, 96)
	low, err := NewSoftware().Encode(frame, 10)
	require.NoError(t, err)
	high, err := NewSoftware().Encode(frame, 95)
	require.NoError(t, err)
	assert.Less(t, len(low), len(high))
}

func TestSoftwareRejectsMalformedFrames(t *testing.T) {
	enc := NewSoftware()

	_, err := enc.Encode(nil, 75)
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = enc.Encode(&models.RawFrame{Data: []byte{1, 2, 3}, Width: 2, Height: 2}, 75)
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = enc.Encode(gradientFrame(4, 4), 101)
	assert.Error(t, err)
}
