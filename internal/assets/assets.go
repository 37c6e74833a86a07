// Package assets loads the page backgrounds used by overlay layouts from a local directory
// or a MinIO bucket.
package assets

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/diewo77/go-docflow/internal/config"
	"github.com/diewo77/go-docflow/internal/platform/logger"
	"github.com/diewo77/go-docflow/internal/render"
)

// New builds the source selected by cfg.Backend, wrapped in a decode cache.
func New(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (render.AssetSource, error) {
	var src render.AssetSource
	switch cfg.Backend {
	case "", "local":
		src = NewLocalDir(cfg.AssetsDir)
	case "minio":
		m, err := NewMinioSource(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		src = m
	default:
		return nil, fmt.Errorf("unknown assets backend %q", cfg.Backend)
	}
	log.Info("Layout assets initialized", "backend", cfg.Backend)
	return NewCache(src), nil
}

// cleanName rejects names escaping the asset root.
func cleanName(name string) (string, error) {
	n := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))[1:]
	if n == "" || n != strings.TrimPrefix(name, "/") {
		return "", fmt.Errorf("%w: invalid asset name %q", render.ErrMissingLayoutAsset, name)
	}
	return n, nil
}

func decode(name string, r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode asset %q: %w", name, err)
	}
	return img, nil
}

// Cache keeps decoded images in memory. Failures are not cached.
type Cache struct {
	src    render.AssetSource
	mu     sync.RWMutex
	images map[string]image.Image
}

func NewCache(src render.AssetSource) *Cache {
	return &Cache{src: src, images: map[string]image.Image{}}
}

func (c *Cache) Image(ctx context.Context, name string) (image.Image, error) {
	c.mu.RLock()
	img, ok := c.images[name]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}
	img, err := c.src.Image(ctx, name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.images[name] = img
	c.mu.Unlock()
	return img, nil
}
