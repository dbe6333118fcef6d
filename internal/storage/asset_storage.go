// Package storage keeps uploaded complaint images. A stored image is
// identified by an opaque reference ("<driver>:<key>") that can later be
// resolved into a displayable locator.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

type AssetStore interface {
	Store(ctx context.Context, data []byte) (string, error)
	Resolve(ctx context.Context, ref string) (string, error)
}

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Image is the detected type of an upload.
type Image struct {
	MIME      string
	Extension string
}

// DetectImage checks the magic bytes of data and the size cap.
func DetectImage(data []byte, maxBytes int64) (Image, error) {
	if len(data) == 0 {
		return Image{}, apperror.New(apperror.ErrCodeValidation, "image is empty")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Image{}, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("image exceeds the %d byte limit", maxBytes))
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return Image{}, apperror.New(apperror.ErrCodeValidation, "could not detect the file type, only images are allowed")
	}
	if !allowedMimeTypes[kind.MIME.Value] {
		return Image{}, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("unsupported file type (%s), allowed: %s", kind.MIME.Value, strings.Join(allowedTypes(), ", ")))
	}
	return Image{MIME: kind.MIME.Value, Extension: kind.Extension}, nil
}

func allowedTypes() []string {
	types := make([]string, 0, len(allowedMimeTypes))
	for t := range allowedMimeTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// newObjectKey returns "uploads/<yyyy>/<mm>/<uuid>.<ext>".
func newObjectKey(ext string, now time.Time) string {
	return fmt.Sprintf("uploads/%04d/%02d/%s.%s", now.Year(), int(now.Month()), uuid.NewString(), ext)
}

func formatRef(driver, key string) string {
	return driver + ":" + key
}

// parseRef splits ref and checks it belongs to driver.
func parseRef(driver, ref string) (string, error) {
	prefix := driver + ":"
	key, ok := strings.CutPrefix(ref, prefix)
	if !ok || key == "" || strings.Contains(key, "..") {
		return "", apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("not a %s asset reference: %q", driver, ref))
	}
	return key, nil
}

func assetNotFound(ref string) error {
	return apperror.New(apperror.ErrCodeNotFound, fmt.Sprintf("asset %s not found", ref))
}
