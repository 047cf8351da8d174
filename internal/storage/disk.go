package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var ErrObjectExists = errors.New("storage: object already exists")

// DiskStore keeps objects under <root>/product-images and serves them through
// the app's static route, the same way uploads were handled before the move
// to a dedicated bucket would happen. Swappable for an S3-style backend via
// the Store interface.
type DiskStore struct {
	root    string // upload directory, e.g. ./uploads
	baseURL string // public origin, e.g. http://localhost:8080; may be empty
}

func NewDiskStore(root, baseURL string) (*DiskStore, error) {
	dir := filepath.Join(root, Bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *DiskStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.root, Bucket, clean), nil
}

func (s *DiskStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string, upsert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dst, err := s.path(key)
	if err != nil {
		return err
	}
	if !upsert {
		if _, err := os.Stat(dst); err == nil {
			return ErrObjectExists
		}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	tmp := dst + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func (s *DiskStore) Remove(ctx context.Context, keys []string) error {
	var first error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := s.path(key)
		if err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (s *DiskStore) PublicURL(key string) string {
	return s.baseURL + "/uploads/" + Bucket + "/" + url.PathEscape(key)
}
