// Package publish uploads an artifact set to S3-compatible object storage.
package publish

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/wharfbuild/wharf/internal/errors"
)

// s3API is the slice of the S3 client the publisher uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Cache policies. Content-hashed names never change, so they can be
// cached forever; everything else must revalidate.
const (
	cacheImmutable  = "public, max-age=31536000, immutable"
	cacheRevalidate = "no-cache"
)

// hashedName matches the content-hash infix the bundler inserts.
var hashedName = regexp.MustCompile(`\.[0-9a-f]{8}\.`)

// Options configures the publisher.
type Options struct {
	// Bucket is the destination bucket.
	Bucket string

	// Prefix is prepended to every object key.
	Prefix string

	// Region overrides the region from the environment.
	Region string
}

// Result summarizes an upload run.
type Result struct {
	// Files is the number of objects uploaded.
	Files int

	// Bytes is the total payload size.
	Bytes int64

	// Duration is how long the upload took.
	Duration time.Duration
}

// Publisher uploads artifact sets file by file.
type Publisher struct {
	client  s3API
	options Options
	log     *logrus.Entry
}

// NewPublisher creates a publisher using credentials and region from the
// environment, with an optional region override.
func NewPublisher(ctx context.Context, options Options, log *logrus.Entry) (*Publisher, error) {
	if options.Bucket == "" {
		return nil, errors.New("W504").
			WithSuggestion("Set publish.bucket in wharf.json")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if options.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(options.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.New("W404").Wrap(err)
	}

	return NewPublisherWithClient(s3.NewFromConfig(cfg), options, log), nil
}

// NewPublisherWithClient creates a publisher with an explicit client.
func NewPublisherWithClient(client s3API, options Options, log *logrus.Entry) *Publisher {
	return &Publisher{client: client, options: options, log: log}
}

// Publish walks the artifact directory and uploads every file. The first
// failed upload aborts the run.
func (p *Publisher) Publish(ctx context.Context, artifactDir string) (*Result, error) {
	start := time.Now()

	if _, err := os.Stat(artifactDir); err != nil {
		return nil, errors.New("W402").
			WithDetail("looked for " + artifactDir).
			Wrap(err)
	}

	result := &Result{}

	err := filepath.Walk(artifactDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(artifactDir, path)
		if err != nil {
			return err
		}

		if err := p.uploadFile(ctx, path, objectKey(p.options.Prefix, rel)); err != nil {
			return err
		}

		result.Files++
		result.Bytes += info.Size()
		return nil
	})
	if err != nil {
		if _, ok := err.(*errors.PipelineError); ok {
			return nil, err
		}
		return nil, errors.New("W404").Wrap(err)
	}

	result.Duration = time.Since(start)

	if p.log != nil {
		p.log.WithFields(logrus.Fields{
			"bucket":   p.options.Bucket,
			"files":    result.Files,
			"bytes":    result.Bytes,
			"duration": result.Duration.String(),
		}).Info("artifact set published")
	}

	return result, nil
}

// uploadFile puts one file with its content type and cache policy.
func (p *Publisher) uploadFile(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.New("W404").Wrap(err)
	}
	defer f.Close()

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.options.Bucket),
		Key:          aws.String(key),
		Body:         f,
		ContentType:  aws.String(contentType(path)),
		CacheControl: aws.String(cachePolicy(filepath.Base(path))),
	})
	if err != nil {
		return errors.New("W404").
			WithDetail("uploading " + key + " to " + p.options.Bucket).
			Wrap(err)
	}

	if p.log != nil {
		p.log.WithField("key", key).Debug("uploaded")
	}
	return nil
}

// objectKey builds the destination key from the prefix and the file's
// path inside the artifact set.
func objectKey(prefix, rel string) string {
	key := filepath.ToSlash(rel)
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}

// contentType resolves a file's MIME type from its extension.
func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wasm":
		return "application/wasm"
	case ".js":
		return "text/javascript; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	case ".json":
		return "application/json"
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// cachePolicy picks the cache header for a file name.
func cachePolicy(name string) string {
	if hashedName.MatchString(name) {
		return cacheImmutable
	}
	return cacheRevalidate
}
