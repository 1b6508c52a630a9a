// Package filestore stores uploaded images with github.com/viant/afs.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/wansing/infodesk/upload"
)

// Store implements upload.Store. Images are stored below BaseURL as folder/uuid.ext.
type Store struct {
	BaseURL  string // like "/var/lib/infodesk/media" or "mem://localhost/media"
	MaxBytes int64  // defaults to upload.DefaultMaxBytes
	fs       afs.Service
}

// New creates the base directory if it does not exist.
func New(ctx context.Context, baseURL string, maxBytes int64) (*Store, error) {

	if baseURL == "" {
		return nil, errors.New("media location cannot be empty")
	}

	var fs = afs.New()

	exists, err := fs.Exists(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("checking media directory: %w", err)
	}
	if !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("creating media directory: %w", err)
		}
	}

	return &Store{
		BaseURL:  url.Normalize(baseURL, file.Scheme),
		MaxBytes: maxBytes,
		fs:       fs,
	}, nil
}

func (s *Store) location(folder, filename string) string {
	return url.Join(s.BaseURL, path.Join(folder, filename))
}

func (s *Store) Save(ctx context.Context, folder string, src io.Reader) (string, error) {

	folder, err := upload.CleanFolder(folder)
	if err != nil {
		return "", err
	}

	data, ext, err := upload.ReadImage(src, s.MaxBytes)
	if err != nil {
		return "", err
	}

	var filename = uuid.NewString() + ext
	if err := s.fs.Upload(ctx, s.location(folder, filename), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("storing image: %w", err)
	}

	return path.Join(folder, filename), nil
}

func (s *Store) read(ctx context.Context, ref string) ([]byte, error) {

	folder, filename, err := upload.ParseRef(ref)
	if err != nil {
		return nil, err
	}

	var location = s.location(folder, filename)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, upload.ErrNotFound
	}

	return s.fs.DownloadWithURL(ctx, location)
}

// Delete removes the image. Missing images are not an error.
func (s *Store) Delete(ctx context.Context, ref string) error {

	folder, filename, err := upload.ParseRef(ref)
	if err != nil {
		return err
	}

	var location = s.location(folder, filename)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil || !exists {
		return err
	}
	return s.fs.Delete(ctx, location)
}

// ServeHTTP serves the image whose reference is the request path. Use it with http.StripPrefix.
func (s *Store) ServeHTTP(w http.ResponseWriter, req *http.Request) {

	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var ref = strings.TrimPrefix(req.URL.Path, "/")
	data, err := s.read(req.Context(), ref)
	switch {
	case errors.Is(err, upload.ErrNotFound), errors.Is(err, upload.ErrInvalidRef):
		http.NotFound(w, req)
		return
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var contentType = mime.TypeByExtension(path.Ext(ref))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400") // filenames are never reused
	http.ServeContent(w, req, ref, time.Time{}, bytes.NewReader(data))
}
