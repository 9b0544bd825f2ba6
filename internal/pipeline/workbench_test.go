package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"ghostwriter/internal/core"
)

var auditNow = time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)

func newTestWorkbench(gen *fakeGenerator) (*Workbench, *fakeRepository, *core.Article) {
	repo := newFakeRepository()
	a := core.NewArticle(core.Input{Theme: "t"}, fixedNow)
	a.Title = "題名"
	a.SetMarkdown(draftText)
	a.MarkupCache = "<p>cached</p>"
	repo.articles[a.ID] = a

	wb := NewWorkbench(NewStages(gen, nil), repo)
	wb.now = func() time.Time { return auditNow }
	return wb, repo, a
}

func TestAuditFreshArticle(t *testing.T) {
	gen := newFakeGenerator()
	gen.text[StageAudit] = "```json\n{\"is_fresh\": true, \"suggestions\": []}\n```"
	wb, repo, a := newTestWorkbench(gen)

	got, res, err := wb.Audit(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if !res.IsFresh {
		t.Error("Expected article to be fresh")
	}
	if got.LastAuditedAt == nil || !got.LastAuditedAt.Equal(auditNow) {
		t.Errorf("Expected last audited %v, got %v", auditNow, got.LastAuditedAt)
	}
	if len(got.AuditSuggestions) != 0 {
		t.Errorf("Expected no suggestions, got %+v", got.AuditSuggestions)
	}
	if res.ShowEditAffordance() {
		t.Error("Expected edit affordance to stay hidden")
	}
	if repo.updates != 1 {
		t.Errorf("Expected one update, got %d", repo.updates)
	}
}

func TestAuditStaleArticle(t *testing.T) {
	gen := newFakeGenerator()
	gen.text[StageAudit] = `{"is_fresh": false, "suggestions": [{"area":"料金","reason":"改定","suggestion_text":"新料金に更新"},{"area":"空","reason":"","suggestion_text":""}]}`
	wb, _, a := newTestWorkbench(gen)

	got, res, err := wb.Audit(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Audit failed: %v", err)
	}
	if res.IsFresh || !res.ShowEditAffordance() {
		t.Errorf("Expected stale result with affordance, got %+v", res)
	}
	if len(got.AuditSuggestions) != 1 || got.AuditSuggestions[0].Area != "料金" {
		t.Errorf("Expected one usable suggestion, got %+v", got.AuditSuggestions)
	}
	if got.LastAuditedAt == nil {
		t.Error("Expected audit timestamp on stale result")
	}
}

func TestAuditFailureLeavesArticle(t *testing.T) {
	gen := newFakeGenerator()
	gen.text[StageAudit] = `{"suggestions": []}`
	wb, repo, a := newTestWorkbench(gen)

	if _, _, err := wb.Audit(context.Background(), a.ID); !errors.Is(err, ErrMissingField) {
		t.Errorf("Expected ErrMissingField, got %v", err)
	}
	if a.LastAuditedAt != nil || repo.updates != 0 {
		t.Error("Expected failed audit to leave the article untouched")
	}
}

func TestFactCheckApply(t *testing.T) {
	corrected := "## はじめに\n\n修正済みの本文です。\n\n参考URL：[公式](https://known.example/a)\n"
	gen := newFakeGenerator()
	gen.text[StageFactCheck] = `{"results":[{"claim":"本文","verdict":"incorrect","correction":"修正済み"}],"corrected_markdown":` + quoteJSON(corrected) + `}`
	wb, _, a := newTestWorkbench(gen)

	got, report, err := wb.FactCheck(context.Background(), a.ID, true)
	if err != nil {
		t.Fatalf("FactCheck failed: %v", err)
	}
	if got.FactCheck.Status != core.FactCheckChecked || len(got.FactCheck.Results) != 1 {
		t.Errorf("Expected checked status with results, got %+v", got.FactCheck)
	}
	if got.Markdown != corrected || report.CorrectedMarkdown != corrected {
		t.Errorf("Expected corrected markdown applied, got %q", got.Markdown)
	}
	if got.MarkupCache != "" {
		t.Error("Expected markup cache invalidated")
	}
}

func TestFactCheckIgnoresStructureBreakingCorrection(t *testing.T) {
	gen := newFakeGenerator()
	gen.text[StageFactCheck] = `{"results":[],"corrected_markdown":"参考行が消えた本文"}`
	wb, _, a := newTestWorkbench(gen)

	got, report, err := wb.FactCheck(context.Background(), a.ID, true)
	if err != nil {
		t.Fatalf("FactCheck failed: %v", err)
	}
	if report.CorrectedMarkdown != "" || got.Markdown != draftText {
		t.Errorf("Expected correction to be ignored, got %q", got.Markdown)
	}
	if got.FactCheck.Status != core.FactCheckChecked {
		t.Error("Expected status checked even without a usable correction")
	}
}

func TestProofreadRejectsLostStructure(t *testing.T) {
	gen := newFakeGenerator()
	gen.text[StageProofread] = `{"corrected_markdown":"## はじめに\n\n本文です。","changes":["削除"]}`
	wb, repo, a := newTestWorkbench(gen)

	if _, _, err := wb.Proofread(context.Background(), a.ID); !errors.Is(err, ErrStructureLost) {
		t.Errorf("Expected ErrStructureLost, got %v", err)
	}
	if repo.updates != 0 || a.Markdown != draftText {
		t.Error("Expected article untouched")
	}
}

func TestProofreadApplies(t *testing.T) {
	fixed := "## はじめに\n\n本文でございます。\n\n参考URL：[公式](https://known.example/a)\n"
	gen := newFakeGenerator()
	gen.text[StageProofread] = `{"corrected_markdown":` + quoteJSON(fixed) + `,"changes":["敬語に統一"]}`
	wb, _, a := newTestWorkbench(gen)

	got, res, err := wb.Proofread(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Proofread failed: %v", err)
	}
	if got.Markdown != fixed || len(res.Changes) != 1 || got.MarkupCache != "" {
		t.Errorf("Unexpected proofread result: %+v", got)
	}
}

func TestEditScheduleAndPerformance(t *testing.T) {
	wb, repo, a := newTestWorkbench(newFakeGenerator())
	ctx := context.Background()

	if _, err := wb.Edit(ctx, a.ID, "新しい本文"); err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if a.Markdown != "新しい本文" || a.MarkupCache != "" {
		t.Errorf("Expected edited body and cleared cache, got %q %q", a.Markdown, a.MarkupCache)
	}

	at := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	if _, err := wb.Schedule(ctx, a.ID, at); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if a.ScheduledAt == nil || !a.ScheduledAt.Equal(at) {
		t.Errorf("Expected schedule %v, got %v", at, a.ScheduledAt)
	}

	if _, err := wb.RecordPerformance(ctx, a.ID, 1000, 50, 3); err != nil {
		t.Fatalf("RecordPerformance failed: %v", err)
	}
	if a.Performance == nil || a.Performance.Actual == nil || a.Performance.Actual.Views != 1000 {
		t.Errorf("Expected actual performance recorded, got %+v", a.Performance)
	}
	if _, err := wb.RecordPerformance(ctx, a.ID, -1, 0, 0); err == nil {
		t.Error("Expected negative numbers to be rejected")
	}

	if repo.updates != 3 {
		t.Errorf("Expected 3 updates, got %d", repo.updates)
	}
}
