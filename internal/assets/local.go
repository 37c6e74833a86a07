package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/diewo77/go-docflow/internal/render"
)

// LocalDir serves assets from a directory on disk.
type LocalDir struct {
	dir string
}

func NewLocalDir(dir string) *LocalDir {
	return &LocalDir{dir: dir}
}

func (l *LocalDir) Image(_ context.Context, name string) (image.Image, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(l.dir, filepath.FromSlash(clean)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", render.ErrMissingLayoutAsset, name)
		}
		return nil, fmt.Errorf("open asset %q: %w", name, err)
	}
	defer f.Close()
	return decode(name, f)
}
