package upload

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, format string) []byte {
	t.Helper()
	var img = image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	switch format {
	case "gif":
		require.NoError(t, gif.Encode(&buf, img, nil))
	case "jpeg":
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	case "png":
		require.NoError(t, png.Encode(&buf, img))
	}
	return buf.Bytes()
}

func TestReadImage(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"gif", ".gif"},
		{"jpeg", ".jpg"},
		{"png", ".png"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var data = encode(t, tt.format)
			got, ext, err := ReadImage(bytes.NewReader(data), 0)
			require.NoError(t, err)
			assert.Equal(t, tt.ext, ext)
			assert.Equal(t, data, got)
		})
	}
}

func TestReadImageRejects(t *testing.T) {
	var pngData = encode(t, "png")
	var gifData = encode(t, "gif")

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("plain text")},
		{"gif header only", []byte("GIF87a but not really")},
		{"truncated png", pngData[:len(pngData)/2]},
		{"truncated gif", gifData[:len(gifData)-8]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadImage(bytes.NewReader(tt.data), 0)
			assert.ErrorIs(t, err, ErrNotAnImage)
		})
	}
}

func TestReadImageTooLarge(t *testing.T) {
	var data = encode(t, "png")
	_, _, err := ReadImage(bytes.NewReader(data), int64(len(data)-1))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, _, err = ReadImage(strings.NewReader(string(data)), int64(len(data)))
	assert.NoError(t, err)
}
