package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type fsObjects struct {
	root string
}

// NewFSStore stores bundles under dir/<id>/.
func NewFSStore(dir string) (*BundleStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create asset directory: %w", err)
	}
	return &BundleStore{objects: &fsObjects{root: dir}, backend: "fs"}, nil
}

func (o *fsObjects) path(key string) string {
	return filepath.Join(o.root, filepath.FromSlash(key))
}

func (o *fsObjects) write(_ context.Context, key string, data []byte, _ string) error {
	p := o.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (o *fsObjects) read(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(o.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errMissing
	}
	return data, err
}

func (o *fsObjects) removePrefix(_ context.Context, prefix string) error {
	return os.RemoveAll(o.path(strings.TrimSuffix(prefix, "/")))
}
