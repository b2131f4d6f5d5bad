package infra

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DocumentStorage stores rendered invoices and returns a public URL.
type DocumentStorage interface {
	Upload(ctx context.Context, data []byte, objectPath string) (string, error)
}

// ── S3 / MinIO ───────────────────────────────────────────────────────────────

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL prefixes object keys in returned links; defaults to the endpoint.
	PublicURL string
}

type S3Storage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewS3Storage connects to an S3-compatible endpoint and makes sure the bucket exists.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("storage: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("storage: create bucket: %w", err)
		}
	}

	return &S3Storage{client: client, bucket: cfg.Bucket, publicURL: cfg.publicBase()}, nil
}

// publicBase is the prefix of returned links: PublicURL when set, otherwise
// path-style bucket addressing on the endpoint.
func (cfg S3Config) publicBase() string {
	public := cfg.PublicURL
	if public == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		public = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return strings.TrimRight(public, "/")
}

func (s *S3Storage) Upload(ctx context.Context, data []byte, objectPath string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectPath, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", objectPath, err)
	}
	return s.publicURL + "/" + escapePath(objectPath), nil
}

// ── Local filesystem ─────────────────────────────────────────────────────────

// LocalStorage writes invoices under a directory that the HTTP server
// exposes at baseURL.
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	return &LocalStorage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStorage) Dir() string { return s.dir }

func (s *LocalStorage) Upload(_ context.Context, data []byte, objectPath string) (string, error) {
	clean := path.Clean("/" + objectPath)
	full := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write %s: %w", objectPath, err)
	}
	return s.baseURL + escapePath(clean), nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
