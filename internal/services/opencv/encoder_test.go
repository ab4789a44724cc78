package opencv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"bench-video-go/internal/models"
	"bench-video-go/internal/services/encoder"
)

func TestEncoderRoundTrip(t *testing.T) {
	w, h := 64, 48
	data := make([]byte, w*h*3)
	for i := range data {
		data[i] = byte(i % 251)
	}
	frame := &models.RawFrame{Data: data, Width: w, Height: h}

	out, err := NewEncoder().Encode(frame, 75)
	require.NoError(t, err)

	decoded, err := gocv.IMDecode(out, gocv.IMReadColor)
	require.NoError(t, err)
	defer decoded.Close()

	assert.Equal(t, w, decoded.Cols())
	assert.Equal(t, h, decoded.Rows())
}

func TestEncoderRejectsMalformedFrame(t *testing.T) {
	_, err := NewEncoder().Encode(&models.RawFrame{Data: []byte{1}, Width: 4, Height: 4}, 75)
	assert.ErrorIs(t, err, encoder.ErrMalformedFrame)
}
