package pipeline

import (
	"context"
	"fmt"
	"time"

	"ghostwriter/internal/core"
	"ghostwriter/internal/logger"
)

// Workbench applies the operations that mutate a saved article. Every
// successful mutation is written back before returning.
type Workbench struct {
	stages *Stages
	repo   Repository
	now    func() time.Time
}

// NewWorkbench creates a workbench over repo.
func NewWorkbench(stages *Stages, repo Repository) *Workbench {
	return &Workbench{stages: stages, repo: repo, now: time.Now}
}

func (w *Workbench) load(ctx context.Context, id int64) (*core.Article, error) {
	a, err := w.repo.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load article %d: %w", id, err)
	}
	return a, nil
}

func (w *Workbench) save(ctx context.Context, a *core.Article) error {
	if err := w.repo.Update(ctx, a); err != nil {
		return fmt.Errorf("failed to update article %d: %w", a.ID, err)
	}
	return nil
}

// Audit runs a freshness audit. The audit timestamp is stamped on every
// successful audit, fresh or not.
func (w *Workbench) Audit(ctx context.Context, id int64) (*core.Article, AuditResult, error) {
	a, err := w.load(ctx, id)
	if err != nil {
		return nil, AuditResult{}, err
	}
	res, err := w.stages.Audit(ctx, a)
	if err != nil {
		return nil, AuditResult{}, err
	}

	now := w.now()
	a.LastAuditedAt = &now
	a.AuditSuggestions = res.Suggestions
	if err := w.save(ctx, a); err != nil {
		return nil, AuditResult{}, err
	}
	logger.Info("Article audited", "article_id", a.ID, "fresh", res.IsFresh, "suggestions", len(res.Suggestions))
	return a, res, nil
}

// FactCheck verifies the article and records the results. When apply is
// set and a structure-preserving correction exists, it replaces the body.
func (w *Workbench) FactCheck(ctx context.Context, id int64, apply bool) (*core.Article, FactCheckReport, error) {
	a, err := w.load(ctx, id)
	if err != nil {
		return nil, FactCheckReport{}, err
	}
	report, err := w.stages.FactCheck(ctx, a)
	if err != nil {
		return nil, FactCheckReport{}, err
	}

	now := w.now()
	a.FactCheck = core.FactCheck{Status: core.FactCheckChecked, Results: report.Results, CheckedAt: &now}
	if apply && report.CorrectedMarkdown != "" {
		a.SetMarkdown(report.CorrectedMarkdown)
	}
	if err := w.save(ctx, a); err != nil {
		return nil, FactCheckReport{}, err
	}
	return a, report, nil
}

// Proofread replaces the body with a proofread version.
func (w *Workbench) Proofread(ctx context.Context, id int64) (*core.Article, ProofreadResult, error) {
	a, err := w.load(ctx, id)
	if err != nil {
		return nil, ProofreadResult{}, err
	}
	res, err := w.stages.Proofread(ctx, a)
	if err != nil {
		return nil, ProofreadResult{}, err
	}

	a.SetMarkdown(res.Markdown)
	if err := w.save(ctx, a); err != nil {
		return nil, ProofreadResult{}, err
	}
	return a, res, nil
}

// Edit replaces the body with author-supplied markdown.
func (w *Workbench) Edit(ctx context.Context, id int64, md string) (*core.Article, error) {
	a, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}
	a.SetMarkdown(md)
	a.AuditSuggestions = nil
	return a, w.save(ctx, a)
}

// Schedule sets the planned publication time.
func (w *Workbench) Schedule(ctx context.Context, id int64, at time.Time) (*core.Article, error) {
	a, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}
	a.ScheduledAt = &at
	return a, w.save(ctx, a)
}

// RecordPerformance stores actual reception numbers next to the prediction.
func (w *Workbench) RecordPerformance(ctx context.Context, id int64, views, likes, comments int) (*core.Article, error) {
	if views < 0 || likes < 0 || comments < 0 {
		return nil, fmt.Errorf("performance numbers must not be negative")
	}
	a, err := w.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Performance == nil {
		a.Performance = &core.Performance{}
	}
	a.Performance.Actual = &core.ActualPerformance{
		Views:      views,
		Likes:      likes,
		Comments:   comments,
		RecordedAt: w.now(),
	}
	return a, w.save(ctx, a)
}
