package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
)

var (
	ErrInvalidRef = errors.New("invalid image reference")
	ErrNotFound   = errors.New("image not found")
)

// A Store keeps uploaded images. A reference has the form "folder/filename".
type Store interface {
	Save(ctx context.Context, folder string, src io.Reader) (ref string, err error)
	Delete(ctx context.Context, ref string) error
	ServeHTTP(w http.ResponseWriter, req *http.Request) // serves the image whose reference is the path relative to the mount point
}

func CleanFilename(filename string) (string, error) {
	filename = path.Base(filename)
	filename = strings.TrimSpace(filename)
	if strings.Contains(filename, "/") || strings.Contains(filename, `\`) {
		return "", errors.New("filename contains a slash")
	}
	if filename == "" || filename == "." || filename == ".." {
		return "", errors.New("filename is empty")
	}
	return filename, nil
}

// CleanFolder allows lower-case letters, digits and underscores only.
func CleanFolder(folder string) (string, error) {
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return "", errors.New("folder is empty")
	}
	for _, r := range folder {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return "", errors.New("folder contains an invalid character")
		}
	}
	return folder, nil
}

// ParseRef splits and validates a reference like "pending_info/abc.jpg".
func ParseRef(ref string) (folder, filename string, err error) {
	ref = strings.Trim(ref, "/")
	var i = strings.Index(ref, "/")
	if i < 0 {
		return "", "", ErrInvalidRef
	}
	if folder, err = CleanFolder(ref[:i]); err != nil {
		return "", "", ErrInvalidRef
	}
	if filename, err = CleanFilename(ref[i+1:]); err != nil || filename != ref[i+1:] {
		return "", "", ErrInvalidRef
	}
	return folder, filename, nil
}
