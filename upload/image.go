package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
)

const DefaultMaxBytes = 5 << 20

var (
	ErrNotAnImage = errors.New("upload a valid image, the file is either not an image or corrupted")
	ErrTooLarge   = errors.New("image is too large")
)

var extensions = map[string]string{
	"gif":  ".gif",
	"jpeg": ".jpg",
	"png":  ".png",
}

// ReadImage reads at most maxBytes from src and checks that the data decodes as a supported image.
// It returns the data and a file extension matching the format.
func ReadImage(src io.Reader, maxBytes int64) ([]byte, string, error) {

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("%w (maximum is %d bytes)", ErrTooLarge, maxBytes)
	}
	if len(data) == 0 {
		return nil, "", ErrNotAnImage
	}

	// DecodeConfig reads the header only, Decode rejects truncated or corrupted pixel data
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", ErrNotAnImage
	}

	ext, ok := extensions[format]
	if !ok {
		return nil, "", ErrNotAnImage
	}

	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return nil, "", ErrNotAnImage
	}

	return data, ext, nil
}
