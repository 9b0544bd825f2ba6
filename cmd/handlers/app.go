package handlers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"ghostwriter/internal/assets"
	"ghostwriter/internal/config"
	"ghostwriter/internal/library"
	"ghostwriter/internal/llm"
	"ghostwriter/internal/pipeline"
	"ghostwriter/internal/retry"
	"ghostwriter/internal/store"
)

// workspace holds the stores shared by every command.
type workspace struct {
	cfg     *config.Config
	store   *store.Store
	library *library.Library
}

func openWorkspace() (*workspace, error) {
	cfg := config.Get()

	st, err := store.NewStore(cfg.App.DataDir, cfg.Pipeline.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to open article store: %w", err)
	}

	assetStore, err := openAssetStore(cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &workspace{cfg: cfg, store: st, library: library.New(st, assetStore)}, nil
}

func openAssetStore(cfg *config.Config) (assets.Store, error) {
	switch cfg.Storage.Backend {
	case "s3":
		s3cfg := cfg.Storage.S3
		return assets.NewS3Store(assets.S3Config{
			Endpoint:  s3cfg.Endpoint,
			Region:    s3cfg.Region,
			Bucket:    s3cfg.Bucket,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
			Prefix:    s3cfg.Prefix,
		})
	default:
		return assets.NewFSStore(filepath.Join(cfg.App.DataDir, "assets"))
	}
}

func (w *workspace) Close() error {
	return w.store.Close()
}

func (w *workspace) client(ctx context.Context) (*llm.Client, error) {
	if !config.HasValidGeminiKey() {
		return nil, errors.New("gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file")
	}
	gemini := w.cfg.AI.Gemini
	return llm.NewClient(ctx, llm.Config{
		APIKey:        gemini.APIKey,
		TextModel:     gemini.TextModel,
		ImageModel:    gemini.ImageModel,
		VideoModel:    gemini.VideoModel,
		Timeout:       config.ParseDuration(gemini.Timeout, 120*time.Second),
		Temperature:   gemini.Temperature,
		RetryAttempts: w.cfg.Pipeline.RetryAttempts,
		RetryDelay:    config.ParseDuration(w.cfg.Pipeline.RetryBaseDelay, retry.DefaultBaseDelay),
	})
}

func (w *workspace) stages(ctx context.Context) (*pipeline.Stages, *llm.Client, error) {
	client, err := w.client(ctx)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.NewStages(client, pipelineConfig(w.cfg.Pipeline)), client, nil
}

func (w *workspace) workbench(ctx context.Context) (*pipeline.Workbench, error) {
	stages, _, err := w.stages(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.NewWorkbench(stages, w.library), nil
}

// offlineWorkbench serves the operations that never call the model.
func (w *workspace) offlineWorkbench() *pipeline.Workbench {
	return pipeline.NewWorkbench(pipeline.NewStages(nil, pipelineConfig(w.cfg.Pipeline)), w.library)
}

func pipelineConfig(p config.Pipeline) *pipeline.Config {
	c := pipeline.DefaultConfig()
	if p.ReferenceLimit > 0 {
		c.ReferenceLimit = p.ReferenceLimit
	}
	if p.DraftReferenceLimit > 0 {
		c.DraftReferenceLimit = p.DraftReferenceLimit
	}
	if p.DecorationLimit > 0 {
		c.DecorationLimit = p.DecorationLimit
	}
	if p.AnalysisLimit > 0 {
		c.AnalysisLimit = p.AnalysisLimit
	}
	if p.MaxReferences > 0 {
		c.MaxReferences = p.MaxReferences
	}
	if p.ImageAspectRatio != "" {
		c.ImageAspectRatio = p.ImageAspectRatio
	}
	return c
}

// parseArticleID parses an article id argument.
func parseArticleID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid article id %q", arg)
	}
	return id, nil
}
