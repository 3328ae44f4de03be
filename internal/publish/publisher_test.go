package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wharferrors "github.com/wharfbuild/wharf/internal/errors"
)

type putCall struct {
	key          string
	contentType  string
	cacheControl string
}

// fakeS3 records PutObject calls.
type fakeS3 struct {
	err   error
	calls []putCall
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, putCall{
		key:          *params.Key,
		contentType:  *params.ContentType,
		cacheControl: *params.CacheControl,
	})
	return &s3.PutObjectOutput{}, nil
}

func artifactFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.wasm"), []byte("\x00asm"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "styles.ab12cd34.css"), []byte("body{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "logo.11223344.png"), []byte("png"), 0644))
	return dir
}

func TestPublish(t *testing.T) {
	fake := &fakeS3{}
	p := NewPublisherWithClient(fake, Options{Bucket: "releases", Prefix: "app/v1"}, nil)

	result, err := p.Publish(context.Background(), artifactFixture(t))
	require.NoError(t, err)

	assert.Equal(t, 4, result.Files)
	assert.NotZero(t, result.Bytes)

	var keys []string
	for _, c := range fake.calls {
		keys = append(keys, c.key)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{
		"app/v1/app.wasm",
		"app/v1/assets/logo.11223344.png",
		"app/v1/index.html",
		"app/v1/styles.ab12cd34.css",
	}, keys)
}

func TestPublish_ContentTypesAndCaching(t *testing.T) {
	fake := &fakeS3{}
	p := NewPublisherWithClient(fake, Options{Bucket: "releases"}, nil)

	_, err := p.Publish(context.Background(), artifactFixture(t))
	require.NoError(t, err)

	byKey := map[string]putCall{}
	for _, c := range fake.calls {
		byKey[c.key] = c
	}

	assert.Equal(t, "application/wasm", byKey["app.wasm"].contentType)
	assert.Equal(t, "text/html; charset=utf-8", byKey["index.html"].contentType)
	assert.Equal(t, "text/css; charset=utf-8", byKey["styles.ab12cd34.css"].contentType)

	// Hashed names are immutable; the rest must revalidate.
	assert.Equal(t, cacheImmutable, byKey["styles.ab12cd34.css"].cacheControl)
	assert.Equal(t, cacheImmutable, byKey["assets/logo.11223344.png"].cacheControl)
	assert.Equal(t, cacheRevalidate, byKey["index.html"].cacheControl)
	assert.Equal(t, cacheRevalidate, byKey["app.wasm"].cacheControl)
}

func TestPublish_UploadFailure(t *testing.T) {
	fake := &fakeS3{err: errors.New("access denied")}
	p := NewPublisherWithClient(fake, Options{Bucket: "releases"}, nil)

	_, err := p.Publish(context.Background(), artifactFixture(t))
	require.Error(t, err)

	var pe *wharferrors.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "W404", pe.Code)
}

func TestPublish_MissingArtifactDir(t *testing.T) {
	p := NewPublisherWithClient(&fakeS3{}, Options{Bucket: "releases"}, nil)

	_, err := p.Publish(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)

	var pe *wharferrors.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "W402", pe.Code)
}

func TestNewPublisher_MissingBucket(t *testing.T) {
	_, err := NewPublisher(context.Background(), Options{}, nil)
	require.Error(t, err)

	var pe *wharferrors.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "W504", pe.Code)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "index.html", objectKey("", "index.html"))
	assert.Equal(t, "v1/index.html", objectKey("v1", "index.html"))
	assert.Equal(t, "v1/index.html", objectKey("v1/", "index.html"))
	assert.Equal(t, "v1/assets/a.png", objectKey("v1", filepath.Join("assets", "a.png")))
}
