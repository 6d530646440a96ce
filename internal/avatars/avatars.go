// Package avatars stores uploaded profile pictures and returns their public URLs.
package avatars

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Errors returned by uploads.
var (
	ErrTooLarge        = errors.New("image exceeds the size limit")
	ErrUnsupportedType = errors.New("unsupported image type")
)

var imageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Storage persists an image under key and returns its public URL.
type Storage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Uploader validates images and hands them to a Storage.
type Uploader struct {
	storage  Storage
	maxBytes int64
	now      func() time.Time
}

// NewUploader creates an Uploader. maxBytes <= 0 disables the size check.
func NewUploader(storage Storage, maxBytes int64) *Uploader {
	return &Uploader{storage: storage, maxBytes: maxBytes, now: time.Now}
}

// Upload reads r, checks it is a supported image, and stores it.
func (u *Uploader) Upload(ctx context.Context, r io.Reader) (string, error) {
	limit := u.maxBytes
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", ErrTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	url, err := u.storage.Put(ctx, u.key(ext), contentType, data)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return url, nil
}

func (u *Uploader) key(ext string) string {
	d := u.now().UTC()
	return fmt.Sprintf("avatars/%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.NewString(), ext)
}

// DiskStorage writes images below a directory served at publicPath.
type DiskStorage struct {
	dir        string
	publicPath string
}

// NewDiskStorage creates a DiskStorage rooted at dir.
func NewDiskStorage(dir, publicPath string) *DiskStorage {
	if !strings.HasSuffix(publicPath, "/") {
		publicPath += "/"
	}
	return &DiskStorage{dir: dir, publicPath: publicPath}
}

// Dir returns the storage root.
func (s *DiskStorage) Dir() string { return s.dir }

// Put implements Storage.
func (s *DiskStorage) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	dst := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return s.publicPath + strings.TrimPrefix(path.Clean(key), "avatars/"), nil
}
