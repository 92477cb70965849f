// Package storage implements the outbound.ImageStore port. No object-storage SDK (S3, GCS) is
// imported anywhere in the example corpus — the teacher's own config.AWSConfig is never backed by
// an aws-sdk-go dependency either — so meal photos are written to a local directory, content-
// addressed by hash so repeated uploads of the same photo collapse to one file.
package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alchemorsel/nutricore/internal/infrastructure/config"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
)

// LocalImageStore implements outbound.ImageStore against a directory on the local filesystem.
type LocalImageStore struct {
	baseDir string
}

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// NewLocalImageStore creates the filesystem-backed image store, rooted at cfg.LocalPath.
func NewLocalImageStore(cfg config.StorageConfig) (outbound.ImageStore, error) {
	baseDir := cfg.LocalPath
	if baseDir == "" {
		baseDir = "./data/images"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create image store directory %q: %w", baseDir, err)
	}
	return &LocalImageStore{baseDir: baseDir}, nil
}

// Put implements outbound.ImageStore. The returned imageRef is the content-hashed filename,
// opaque to every caller except Get.
func (s *LocalImageStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	sum := sha256.Sum256(data)
	ext := extByContentType[contentType]
	imageRef := fmt.Sprintf("%x%s", sum, ext)

	path := filepath.Join(s.baseDir, imageRef)
	if _, err := os.Stat(path); err == nil {
		return imageRef, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write image %q: %w", imageRef, err)
	}
	return imageRef, nil
}

// Get implements outbound.ImageStore.
func (s *LocalImageStore) Get(ctx context.Context, imageRef string) ([]byte, error) {
	path := filepath.Join(s.baseDir, filepath.Base(imageRef))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %q: %w", imageRef, err)
	}
	return data, nil
}
