package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MohammedShoaib07/campus-care/internal/pkg/apperror"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 32)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 32)...)
	textBytes = []byte("just some text, not an image")
)

func TestDetectImage(t *testing.T) {
	img, err := DetectImage(pngBytes, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIME)
	assert.Equal(t, "png", img.Extension)

	img, err = DetectImage(jpegBytes, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIME)

	_, err = DetectImage(textBytes, 1<<20)
	assert.True(t, apperror.IsValidation(err))

	_, err = DetectImage(nil, 1<<20)
	assert.True(t, apperror.IsValidation(err))

	_, err = DetectImage(pngBytes, 8)
	assert.True(t, apperror.IsValidation(err))
}

func TestParseRef(t *testing.T) {
	key, err := parseRef("fs", "fs:uploads/2024/03/a.png")
	require.NoError(t, err)
	assert.Equal(t, "uploads/2024/03/a.png", key)

	for _, ref := range []string{"s3:uploads/a.png", "fs:", "fs:../../etc/passwd", "uploads/a.png"} {
		_, err := parseRef("fs", ref)
		assert.Error(t, err, ref)
	}
}

func TestPhotoStorage_StoreAndResolve(t *testing.T) {
	ctx := context.Background()
	store, err := NewPhotoStorage(t.TempDir(), 1<<20)
	require.NoError(t, err)

	ref, err := store.Store(ctx, pngBytes)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "fs:uploads/"))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	locator, err := store.Resolve(ctx, ref)
	require.NoError(t, err)
	u, err := url.Parse(locator)
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)

	onDisk, err := os.ReadFile(u.Path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, onDisk)

	_, err = store.Resolve(ctx, "fs:uploads/2024/01/missing.png")
	assert.True(t, apperror.IsNotFound(err))

	_, err = store.Store(ctx, textBytes)
	assert.True(t, apperror.IsValidation(err))
}

func TestMemoryAssetStore_DataURL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryAssetStore(1 << 20)

	ref, err := store.Store(ctx, jpegBytes)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "mem:"))

	locator, err := store.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(locator, "data:image/jpeg;base64,"))

	_, err = store.Resolve(ctx, "mem:uploads/none.png")
	assert.True(t, apperror.IsNotFound(err))
}

func TestWithLatency_DelaysAndCancels(t *testing.T) {
	inner := NewMemoryAssetStore(1 << 20)
	slow := WithLatency(inner, 50*time.Millisecond)

	start := time.Now()
	ref, err := slow.Store(context.Background(), pngBytes)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	_, err = slow.Resolve(context.Background(), ref)
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = WithLatency(inner, time.Hour).Store(ctx, pngBytes)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Same(t, inner, WithLatency(inner, 0))
}

// fakeS3 answers PUT and HEAD for path-style requests.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	respond := func(status int) *http.Response {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     http.Header{"Content-Length": {"0"}},
			Request:    req,
		}
	}

	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		f.objects[key] = body
		return respond(http.StatusOK), nil
	case http.MethodHead:
		if _, ok := f.objects[key]; ok {
			return respond(http.StatusOK), nil
		}
		return respond(http.StatusNotFound), nil
	}
	return respond(http.StatusNotImplemented), nil
}

func newFakeS3Store(t *testing.T) (*S3AssetStore, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string][]byte)}
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider("AKIA", "SECRET", ""),
		HTTPClient:   &http.Client{Transport: fake},
		UsePathStyle: true,
		BaseEndpoint: aws.String("https://mock.s3.local"),
	})
	return newS3AssetStore(client, S3Config{Bucket: "campus-care", MaxUploadBytes: 1 << 20, PresignExpiry: 5 * time.Minute}), fake
}

func TestS3AssetStore_StoreAndPresign(t *testing.T) {
	ctx := context.Background()
	store, fake := newFakeS3Store(t)

	ref, err := store.Store(ctx, pngBytes)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref, "s3:uploads/"))

	key := strings.TrimPrefix(ref, "s3:")
	fake.mu.Lock()
	_, stored := fake.objects[key]
	fake.mu.Unlock()
	assert.True(t, stored)

	locator, err := store.Resolve(ctx, ref)
	require.NoError(t, err)
	assert.Contains(t, locator, "https://mock.s3.local/campus-care/"+key)
	assert.Contains(t, locator, "X-Amz-Signature=")
	assert.Contains(t, locator, "X-Amz-Expires=300")
}

func TestS3AssetStore_Errors(t *testing.T) {
	ctx := context.Background()
	store, _ := newFakeS3Store(t)

	_, err := store.Store(ctx, textBytes)
	assert.True(t, apperror.IsValidation(err))

	_, err = store.Resolve(ctx, "s3:uploads/2024/01/missing.png")
	assert.True(t, apperror.IsNotFound(err))

	_, err = store.Resolve(ctx, "fs:uploads/a.png")
	assert.True(t, apperror.IsValidation(err))
}
