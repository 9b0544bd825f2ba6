package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ghostwriter/internal/core"
	"ghostwriter/internal/logger"
	"ghostwriter/internal/markdown"
	"ghostwriter/internal/placeholder"
)

// AssemblySteps is the number of progress steps reported by Assemble.
const AssemblySteps = 7

// Assembler drives the draft, decoration, image and enrichment stages in
// strict sequence and persists the resulting article.
type Assembler struct {
	stages   *Stages
	repo     Repository
	progress Progress
	onChunk  func(string)
	now      func() time.Time
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithProgress sets the progress callback.
func WithProgress(p Progress) AssemblerOption {
	return func(a *Assembler) { a.progress = p }
}

// WithDraftStream receives the accumulated draft text while it streams.
func WithDraftStream(fn func(accumulated string)) AssemblerOption {
	return func(a *Assembler) { a.onChunk = fn }
}

// WithClock overrides the clock used for article ids and timestamps.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) { a.now = now }
}

// NewAssembler creates an assembler that saves through repo.
func NewAssembler(stages *Stages, repo Repository, opts ...AssemblerOption) *Assembler {
	a := &Assembler{stages: stages, repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assembler) step(n int, label string) {
	if a.progress != nil {
		a.progress(n, AssemblySteps, label)
	}
}

// Assemble builds and persists an article. Errors from the draft or
// decoration stages abort the run before anything is saved; image and
// enrichment failures degrade to absent fields.
func (a *Assembler) Assemble(ctx context.Context, in core.Input, outline core.Outline, direction *core.CreativeDirection, voice *core.BrandVoice) (*core.Article, error) {
	a.step(1, "本文を執筆中")
	draft, err := a.stages.WriteDraft(ctx, in, outline, voice, a.onChunk)
	if err != nil {
		return nil, err
	}

	a.step(2, "装飾を追加中")
	dec, err := a.stages.Decorate(ctx, draft.Markdown)
	if err != nil {
		return nil, err
	}

	a.step(3, "画像を生成中")
	images := a.stages.ResolveImages(ctx, imageTasks(dec))

	article := core.NewArticle(in, a.now())
	article.Title = outline.Title
	article.Direction = direction
	article.SetMarkdown(dec.Markdown)
	article.References = markdown.BuildReferences(draft.Sources, a.stages.config.MaxReferences)
	for key, instruction := range placeholder.Screenshots(dec.Markdown) {
		article.ImageMap[key] = core.ScreenshotInstruction(instruction)
	}
	for key, asset := range images {
		article.ImageMap[key] = asset
	}

	a.step(4, "FAQを作成中")
	article.FAQ = a.stages.FAQ(ctx, article.Title, article.Markdown)

	a.step(5, "反響を予測中")
	article.Performance = a.stages.Performance(ctx, in, article.Title, article.Markdown)

	a.step(6, "拡散用データを作成中")
	article.Enhancement = a.stages.Enhance(ctx, article.Title, article.Markdown)

	a.step(7, "保存中")
	if err := a.repo.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to save article: %w", err)
	}

	logger.Info("Article assembled",
		"article_id", article.ID,
		"images", len(images),
		"references", len(article.References),
		"decoration_fallback", dec.Fallback)
	return article, nil
}

// imageTasks returns the cover task followed by every image placeholder.
func imageTasks(dec Decoration) []core.ImageTask {
	var tasks []core.ImageTask
	if strings.TrimSpace(dec.CoverPrompt) != "" {
		tasks = append(tasks, core.ImageTask{Key: core.CoverKey, Prompt: dec.CoverPrompt, OverlayText: dec.CoverOverlay})
	}
	return append(tasks, placeholder.ImageTasks(dec.Markdown)...)
}
