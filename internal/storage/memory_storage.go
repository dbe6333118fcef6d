package storage

import (
	"context"
	"encoding/base64"
	"slices"
	"sync"
	"time"
)

const driverMemory = "mem"

type memoryObject struct {
	data []byte
	mime string
}

// MemoryAssetStore keeps images in process and resolves them to data: URLs.
type MemoryAssetStore struct {
	mu       sync.RWMutex
	objects  map[string]memoryObject
	maxBytes int64
}

func NewMemoryAssetStore(maxBytes int64) *MemoryAssetStore {
	return &MemoryAssetStore{
		objects:  make(map[string]memoryObject),
		maxBytes: maxBytes,
	}
}

func (s *MemoryAssetStore) Store(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img, err := DetectImage(data, s.maxBytes)
	if err != nil {
		return "", err
	}

	key := newObjectKey(img.Extension, time.Now().UTC())
	s.mu.Lock()
	s.objects[key] = memoryObject{data: slices.Clone(data), mime: img.MIME}
	s.mu.Unlock()

	return formatRef(driverMemory, key), nil
}

func (s *MemoryAssetStore) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := parseRef(driverMemory, ref)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", assetNotFound(ref)
	}
	return "data:" + obj.mime + ";base64," + base64.StdEncoding.EncodeToString(obj.data), nil
}
