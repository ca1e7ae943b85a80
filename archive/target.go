package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/poiesic/newsdesk/storage"
)

// ContentType is the MIME type used for uploaded archives.
const ContentType = "application/zstd"

// ExportFile writes the archive of store to path, replacing any existing file.
func ExportFile(ctx context.Context, store storage.VectorStore, path string, opts ...Option) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}

	count, err := Export(ctx, store, f, opts...)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return count, err
	}
	return count, os.Rename(tmp, path)
}

// ImportFile reads the archive at path into store.
func ImportFile(ctx context.Context, store storage.VectorStore, path string, opts ...Option) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Import(ctx, store, f, opts...)
}

// BucketConfig locates an S3-compatible bucket.
type BucketConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Bucket uploads and downloads archives in one bucket.
type Bucket struct {
	client *minio.Client
	name   string
}

// OpenBucket connects to the bucket described by cfg, creating it when it
// does not exist.
func OpenBucket(ctx context.Context, cfg BucketConfig) (*Bucket, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create minio client for %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("error checking bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("error creating bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &Bucket{client: client, name: cfg.Bucket}, nil
}

// Export streams the archive of store to object.
func (b *Bucket) Export(ctx context.Context, store storage.VectorStore, object string, opts ...Option) (int, error) {
	pr, pw := io.Pipe()

	type upload struct {
		err error
	}
	done := make(chan upload, 1)
	go func() {
		_, err := b.client.PutObject(ctx, b.name, object, pr, -1, minio.PutObjectOptions{ContentType: ContentType})
		_ = pr.CloseWithError(err)
		done <- upload{err: err}
	}()

	count, err := Export(ctx, store, pw, opts...)
	_ = pw.CloseWithError(err)
	result := <-done
	if err != nil {
		return count, err
	}
	return count, result.err
}

// Import reads the archive stored at object into store.
func (b *Bucket) Import(ctx context.Context, store storage.VectorStore, object string, opts ...Option) (int, error) {
	obj, err := b.client.GetObject(ctx, b.name, object, minio.GetObjectOptions{})
	if err != nil {
		return 0, err
	}
	defer obj.Close()
	return Import(ctx, store, obj, opts...)
}
