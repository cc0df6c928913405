// Package storage keeps user-uploaded avatar images in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/accountdesk/accountdesk/internal/config"
)

// MaxAvatarBytes is the largest accepted avatar upload.
const MaxAvatarBytes = 2 << 20

var avatarTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// AvatarExtension returns the file extension for an accepted image type.
func AvatarExtension(contentType string) (string, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ext, ok := avatarTypes[ct]
	return ext, ok
}

// AvatarKey names a fresh object for uid's avatar. Each upload gets its own
// key so links handed out earlier keep pointing at the old image.
func AvatarKey(uid, ext string) string {
	return fmt.Sprintf("avatars/%s/%s.%s", uid, uuid.NewString(), ext)
}

// avatarPolicy makes objects under avatars/ anonymously readable; the rest of
// the bucket stays private.
func avatarPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/avatars/*"]}]}`, bucket)
}

// MinIOStorage is a thin wrapper around the minio client used by services.
type MinIOStorage struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func newMinIOStorage(cfg config.MinIOConfig) (*MinIOStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	base := strings.TrimRight(cfg.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}
	return &MinIOStorage{client: mc, bucket: cfg.Bucket, baseURL: base}, nil
}

// NewMinIOStorage creates a new MinIO storage client, ensures the bucket exists
// and opens avatars/ for anonymous reads.
func NewMinIOStorage(ctx context.Context, cfg config.MinIOConfig) (*MinIOStorage, error) {
	s, err := newMinIOStorage(cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		// ignore "already exists" style errors
		exist, xerr := s.client.BucketExists(ctx, s.bucket)
		if xerr != nil || !exist {
			return nil, fmt.Errorf("minio bucket ensure: %w", err)
		}
	}
	if err := s.client.SetBucketPolicy(ctx, s.bucket, avatarPolicy(s.bucket)); err != nil {
		return nil, fmt.Errorf("minio bucket policy: %w", err)
	}
	return s, nil
}

// PutAvatar uploads an avatar for uid and returns its permanent public URL.
func (s *MinIOStorage) PutAvatar(ctx context.Context, uid string, r io.Reader, size int64, contentType string) (string, error) {
	ext, ok := AvatarExtension(contentType)
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", contentType)
	}
	key := AvatarKey(uid, ext)
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}
	return s.objectURL(key), nil
}

func (s *MinIOStorage) objectURL(key string) string {
	return s.baseURL + "/" + url.PathEscape(s.bucket) + "/" + key
}

// Ping reports whether the bucket is reachable; used by the readiness probe.
func (s *MinIOStorage) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
