package assets

import (
	"context"
	"fmt"
	"image"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/diewo77/go-docflow/internal/config"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/render"
)

// MinioSource serves assets from a bucket.
type MinioSource struct {
	client *minio.Client
	bucket string
	log    *logger.Logger
}

func NewMinioSource(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (*MinioSource, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	ok, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.MinioBucket, err)
	}
	if !ok {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.MinioBucket)
	}
	return &MinioSource{
		client: client,
		bucket: cfg.MinioBucket,
		log:    log.With("service", "MinioAssets", "bucket", cfg.MinioBucket),
	}, nil
}

func (m *MinioSource) Image(ctx context.Context, name string) (image.Image, error) {
	key, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.mapError(key, err)
	}
	defer obj.Close()
	// GetObject is lazy; Stat surfaces a missing key before decoding.
	if _, err := obj.Stat(); err != nil {
		return nil, m.mapError(key, err)
	}
	return decode(name, obj)
}

func (m *MinioSource) mapError(key string, err error) error {
	if isMissing(err) {
		return fmt.Errorf("%w: %s/%s", render.ErrMissingLayoutAsset, m.bucket, key)
	}
	m.log.Warn("asset fetch failed", "key", key, "error", err)
	return fmt.Errorf("fetch asset %q: %w", key, err)
}

func isMissing(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NoSuchObject":
		return true
	}
	return false
}
