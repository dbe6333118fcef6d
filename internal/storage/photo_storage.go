package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

const driverFS = "fs"

// PhotoStorage keeps images on the local filesystem and resolves them to
// file:// URLs.
type PhotoStorage struct {
	rootPath       string
	maxUploadBytes int64
}

func NewPhotoStorage(rootPath string, maxUploadBytes int64) (*PhotoStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", rootPath, err)
	}
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot resolve %s: %w", rootPath, err)
	}

	return &PhotoStorage{
		rootPath:       abs,
		maxUploadBytes: maxUploadBytes,
	}, nil
}

// Store writes data to a temporary file and renames it into place.
func (s *PhotoStorage) Store(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img, err := DetectImage(data, s.maxUploadBytes)
	if err != nil {
		return "", err
	}

	key := newObjectKey(img.Extension, time.Now().UTC())
	targetPath := filepath.Join(s.rootPath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: cannot create directory: %w", err)
	}
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("storage: cannot create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: write failed: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: close failed: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", fmt.Errorf("storage: rename failed: %w", err)
	}

	return formatRef(driverFS, key), nil
}

func (s *PhotoStorage) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := parseRef(driverFS, ref)
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.rootPath, filepath.FromSlash(key))
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", assetNotFound(ref)
		}
		return "", fmt.Errorf("storage: stat %s: %w", ref, err)
	}

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(target)}).String(), nil
}
