package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBasePath is the base directory for locally stored objects when
// NewLocalGateway is given an empty path.
const DefaultBasePath = "/var/lib/resumerank/objects"

// LocalGateway stores objects as files under a base directory: a key maps
// directly to a path under basePath, created on demand and removed
// wholesale on DeleteAll.
type LocalGateway struct {
	basePath string
}

// NewLocalGateway creates the base directory if needed and returns a
// gateway rooted there.
func NewLocalGateway(basePath string) (*LocalGateway, error) {
	if basePath == "" {
		basePath = DefaultBasePath
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create object store directory: %w", err)
	}
	return &LocalGateway{basePath: basePath}, nil
}

func (g *LocalGateway) path(key string) string {
	return filepath.Join(g.basePath, filepath.FromSlash(key))
}

func (g *LocalGateway) Put(ctx context.Context, key string, r io.Reader) error {
	path := g.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create object file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	return nil
}

func (g *LocalGateway) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(g.path(key))
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

func (g *LocalGateway) DeleteAll(ctx context.Context, prefix string) error {
	root := g.path(prefix)
	if !strings.HasPrefix(root, g.basePath) {
		return fmt.Errorf("prefix %q escapes object store base path", prefix)
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("delete objects under %q: %w", prefix, err)
	}
	return nil
}
