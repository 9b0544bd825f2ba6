// Package library joins the metadata store and the asset store into the
// article repository used by the pipeline and the CLI.
package library

import (
	"context"
	"fmt"

	"ghostwriter/internal/assets"
	"ghostwriter/internal/core"
	"ghostwriter/internal/logger"
)

// MetadataStore is the textual half of the repository.
type MetadataStore interface {
	Insert(ctx context.Context, a *core.Article) ([]int64, error)
	Update(ctx context.Context, a *core.Article) error
	Get(ctx context.Context, id int64) (*core.Article, error)
	List(ctx context.Context) ([]*core.Article, error)
	Delete(ctx context.Context, id int64) error
	FindPendingVideo(ctx context.Context) (*core.Article, error)
}

// Library stores article metadata and binary assets as one unit.
type Library struct {
	meta   MetadataStore
	assets assets.Store
}

// New creates a library over the two stores.
func New(meta MetadataStore, assetStore assets.Store) *Library {
	return &Library{meta: meta, assets: assetStore}
}

// Create stores a new article: assets first, then metadata. Articles
// evicted by the history cap lose their assets too.
func (l *Library) Create(ctx context.Context, a *core.Article) error {
	if err := l.assets.Put(ctx, a.ID, assets.Bundle{Images: a.ImageMap}); err != nil {
		return fmt.Errorf("failed to store assets: %w", err)
	}

	evicted, err := l.meta.Insert(ctx, a)
	if err != nil {
		if derr := l.assets.Delete(ctx, a.ID); derr != nil {
			logger.Warn("Failed to roll back assets", "article_id", a.ID, "error", derr)
		}
		return fmt.Errorf("failed to store metadata: %w", err)
	}

	l.dropAssets(ctx, evicted)
	return nil
}

// Update rewrites the metadata of an existing article. Assets are
// immutable after creation. A deleted or evicted article is not revived.
func (l *Library) Update(ctx context.Context, a *core.Article) error {
	return l.meta.Update(ctx, a)
}

func (l *Library) dropAssets(ctx context.Context, ids []int64) {
	for _, id := range ids {
		if err := l.assets.Delete(ctx, id); err != nil {
			logger.Warn("Failed to delete evicted assets", "article_id", id, "error", err)
			continue
		}
		logger.Info("Evicted oldest article", "article_id", id)
	}
}

// Load returns an article with its image map joined in.
func (l *Library) Load(ctx context.Context, id int64) (*core.Article, error) {
	a, err := l.meta.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	bundle, err := l.assets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.ImageMap = bundle.Images
	if a.ImageMap == nil {
		a.ImageMap = map[string]core.ImageAsset{}
	}
	return a, nil
}

// List returns article metadata, newest first, without assets.
func (l *Library) List(ctx context.Context) ([]*core.Article, error) {
	return l.meta.List(ctx)
}

// Delete removes both halves of an article.
func (l *Library) Delete(ctx context.Context, id int64) error {
	if err := l.meta.Delete(ctx, id); err != nil {
		return err
	}
	return l.assets.Delete(ctx, id)
}

// FindPendingVideo returns an article whose video is still generating, or nil.
func (l *Library) FindPendingVideo(ctx context.Context) (*core.Article, error) {
	return l.meta.FindPendingVideo(ctx)
}
