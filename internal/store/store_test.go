package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ghostwriter/internal/core"
)

func newTestStore(t *testing.T, limit int) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), limit)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testArticle(id int64, title string) *core.Article {
	a := core.NewArticle(core.Input{Theme: "テーマ", Persona: "読者", Type: core.ArticleFree}, time.UnixMilli(id).UTC())
	a.Title = title
	a.SetMarkdown("## 見出し\n\n本文")
	return a
}

func TestNewStore(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir, 0)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if store.limit != DefaultHistoryLimit {
		t.Errorf("Expected default limit %d, got %d", DefaultHistoryLimit, store.limit)
	}

	dbPath := filepath.Join(tmpDir, "ghostwriter.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should be created")
	}
}

func TestNewStore_InvalidDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	invalidPath := filepath.Join(tmpDir, "file.txt")
	_ = os.WriteFile(invalidPath, []byte("test"), 0644)

	_, err := NewStore(invalidPath, 0)
	if err == nil {
		t.Error("Expected error when creating store in invalid directory")
	}
}

func TestInsertAndGet(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	a := testArticle(1700000000000, "最初の記事")
	a.References = []core.Reference{{URI: "https://example.com", Title: "例"}}
	a.Direction = &core.CreativeDirection{Style: "ミニマル", Palette: []string{"#111111", "#222222", "#333333"}}
	a.ImageMap[core.CoverKey] = core.ImageData([]byte("png"), "image/png")

	if _, err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "最初の記事" || got.Markdown != a.Markdown {
		t.Errorf("Expected saved fields, got %+v", got)
	}
	if len(got.References) != 1 || got.Direction == nil || got.Direction.Style != "ミニマル" {
		t.Errorf("Expected references and direction, got %+v", got)
	}
	if len(got.ImageMap) != 0 {
		t.Errorf("Expected image payloads to stay out of metadata, got %d entries", len(got.ImageMap))
	}
}

func TestUpdateInPlace(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	first := testArticle(1, "一")
	second := testArticle(2, "二")
	for _, a := range []*core.Article{first, second} {
		if _, err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	first.Title = "一（改訂）"
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].Title != "一（改訂）" {
		t.Errorf("Expected update to keep insertion order, got %s, %s", list[0].Title, list[1].Title)
	}
}

func TestUpdateMissingArticle(t *testing.T) {
	store := newTestStore(t, 2)
	ctx := context.Background()

	for i := int64(1); i <= 2; i++ {
		if _, err := store.Insert(ctx, testArticle(i, "記事")); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	gone := testArticle(99, "削除済み")
	if err := store.Update(ctx, gone); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(list))
	}
	for _, a := range list {
		if a.ID == gone.ID {
			t.Error("Expected update of a missing article not to insert it")
		}
	}
}

func TestHistoryEviction(t *testing.T) {
	store := newTestStore(t, 50)
	ctx := context.Background()

	for i := int64(1); i <= 50; i++ {
		evicted, err := store.Insert(ctx, testArticle(i*1000, "記事"))
		if err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
		if len(evicted) != 0 {
			t.Fatalf("Expected no eviction at %d, got %v", i, evicted)
		}
	}

	evicted, err := store.Insert(ctx, testArticle(51000, "51本目"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if len(evicted) != 1 || evicted[0] != 1000 {
		t.Errorf("Expected the oldest article to be evicted, got %v", evicted)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.ArticleCount != 50 {
		t.Errorf("Expected 50 articles, got %d", stats.ArticleCount)
	}
	if _, err := store.Get(ctx, 1000); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected evicted article to be gone, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	a := testArticle(42, "削除対象")
	if _, err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestFindPendingVideo(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	done := testArticle(1, "完了")
	done.Video = &core.Video{Status: core.VideoCompleted, URL: "https://video"}
	pending := testArticle(2, "生成中")
	pending.Video = &core.Video{Status: core.VideoPending, Operation: "operations/abc"}
	for _, a := range []*core.Article{done, pending} {
		if _, err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.FindPendingVideo(ctx)
	if err != nil {
		t.Fatalf("FindPendingVideo failed: %v", err)
	}
	if got == nil || got.ID != pending.ID {
		t.Errorf("Expected pending article, got %+v", got)
	}

	pending.Video.Status = core.VideoFailed
	if err := store.Update(ctx, pending); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got, _ := store.FindPendingVideo(ctx); got != nil {
		t.Errorf("Expected no pending article, got %+v", got)
	}
}

func TestBrandVoice(t *testing.T) {
	store := newTestStore(t, 0)
	ctx := context.Background()

	voice, err := store.BrandVoice(ctx)
	if err != nil || voice != nil {
		t.Fatalf("Expected no brand voice, got %+v, %v", voice, err)
	}

	want := &core.BrandVoice{Principles: "親しみやすく", Example: "こんにちは！"}
	if err := store.SetBrandVoice(ctx, want); err != nil {
		t.Fatalf("SetBrandVoice failed: %v", err)
	}
	got, err := store.BrandVoice(ctx)
	if err != nil {
		t.Fatalf("BrandVoice failed: %v", err)
	}
	if got == nil || *got != *want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	if err := store.SetBrandVoice(ctx, &core.BrandVoice{}); err != nil {
		t.Fatalf("SetBrandVoice failed: %v", err)
	}
	if got, _ := store.BrandVoice(ctx); got != nil {
		t.Errorf("Expected brand voice cleared, got %+v", got)
	}
}
