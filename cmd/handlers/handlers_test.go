package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ghostwriter/internal/config"
	"ghostwriter/internal/core"
	"ghostwriter/internal/fetch"
	"ghostwriter/internal/llm"
	"ghostwriter/internal/pipeline"
	"ghostwriter/internal/tui"
)

// scriptedGenerator answers each stage label with canned text.
type scriptedGenerator struct {
	text   map[string]string
	errs   map[string]error
	draft  string
	calls  []string
	images int
}

func newScriptedGenerator() *scriptedGenerator {
	return &scriptedGenerator{
		text: map[string]string{
			pipeline.StageOutline: `{"outlines":[
{"title":"案1","introduction":"導入1","headings":["A"]},
{"title":"案2","introduction":"導入2","headings":["B"]},
{"title":"案3","introduction":"導入3","headings":["C"]}]}`,
			pipeline.StageDirection:   `{"directions":[{"style":"ミニマル","palette":["#111111","#222222","#333333"]}]}`,
			pipeline.StageDecoration:  `{"decoratedMarkdown":"## はじめに\n\n本文です。","coverImagePrompt":"cover","coverImageOverlay":"表紙"}`,
			pipeline.StageFAQ:         `{"faqs":[{"question":"Q","answer":"A"}]}`,
			pipeline.StagePerformance: `{"score":70,"summary":"ok","strengths":[],"improvements":[],"predicted_views":10}`,
			pipeline.StageEnhancement: `{"title_suggestions":[],"share_text":"","hashtags":["go"],"meta_description":""}`,
		},
		errs:  map[string]error{},
		draft: "## はじめに\n\n本文です。",
	}
}

func (g *scriptedGenerator) GenerateText(ctx context.Context, prompt string, opts llm.TextGenerationOptions) (string, error) {
	g.calls = append(g.calls, opts.Label)
	if err := g.errs[opts.Label]; err != nil {
		return "", err
	}
	text, ok := g.text[opts.Label]
	if !ok {
		return "", fmt.Errorf("no canned response for %s", opts.Label)
	}
	return text, nil
}

func (g *scriptedGenerator) GenerateGrounded(ctx context.Context, prompt string, opts llm.TextGenerationOptions) (llm.GroundedText, error) {
	text, err := g.GenerateText(ctx, prompt, opts)
	return llm.GroundedText{Text: text}, err
}

func (g *scriptedGenerator) StreamText(ctx context.Context, prompt string, opts llm.TextGenerationOptions, onChunk func(string)) (llm.GroundedText, error) {
	g.calls = append(g.calls, opts.Label)
	if onChunk != nil {
		onChunk(g.draft)
	}
	return llm.GroundedText{Text: g.draft}, nil
}

func (g *scriptedGenerator) GenerateImage(ctx context.Context, prompt, aspectRatio string) (llm.Image, error) {
	g.images++
	return llm.Image{Data: []byte("\x89PNG"), MIMEType: "image/png"}, nil
}

type memoryRepository struct {
	articles map[int64]*core.Article
}

func (r *memoryRepository) Create(ctx context.Context, a *core.Article) error {
	r.articles[a.ID] = a
	return nil
}

func (r *memoryRepository) Update(ctx context.Context, a *core.Article) error {
	r.articles[a.ID] = a
	return nil
}

func (r *memoryRepository) Load(ctx context.Context, id int64) (*core.Article, error) {
	a, ok := r.articles[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return a, nil
}

// scriptedChooser replays actions in order and records the picker titles.
type scriptedChooser struct {
	steps  []scriptedStep
	titles []string
}

type scriptedStep struct {
	index  int
	action tui.Action
}

func (c *scriptedChooser) choose(title string, choices []tui.Choice, opts tui.Options) (int, tui.Action, error) {
	c.titles = append(c.titles, title)
	if len(c.steps) == 0 {
		return 0, tui.ActionQuit, errors.New("unexpected picker")
	}
	step := c.steps[0]
	c.steps = c.steps[1:]
	return step.index, step.action, nil
}

func testInput() core.Input {
	return core.Input{Theme: "在宅勤務", Persona: "会社員", Type: core.ArticleFree}
}

func TestRunFlowAuto(t *testing.T) {
	gen := newScriptedGenerator()
	repo := &memoryRepository{articles: map[int64]*core.Article{}}
	var stderr bytes.Buffer

	a, err := runFlow(context.Background(), pipeline.NewStages(gen, nil), repo, nil, testInput(), pickFirst, &stderr)
	if err != nil {
		t.Fatalf("runFlow failed: %v", err)
	}

	if a.Title != "案1" {
		t.Errorf("Expected first outline, got %q", a.Title)
	}
	if a.Direction == nil || a.Direction.Style != "ミニマル" {
		t.Errorf("Expected first direction, got %+v", a.Direction)
	}
	if len(repo.articles) != 1 {
		t.Errorf("Expected article to be persisted, got %d", len(repo.articles))
	}
	if gen.images != 1 {
		t.Errorf("Expected the cover image to be generated, got %d calls", gen.images)
	}
}

func TestRunFlowBackSkipAndQuit(t *testing.T) {
	gen := newScriptedGenerator()
	repo := &memoryRepository{articles: map[int64]*core.Article{}}
	chooser := &scriptedChooser{steps: []scriptedStep{
		{0, tui.ActionSelect}, // outline 1
		{0, tui.ActionBack},   // back to outlines
		{1, tui.ActionSelect}, // outline 2
		{0, tui.ActionSkip},   // no direction
	}}

	a, err := runFlow(context.Background(), pipeline.NewStages(gen, nil), repo, nil, testInput(), chooser.choose, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("runFlow failed: %v", err)
	}
	if a.Title != "案2" || a.Direction != nil {
		t.Errorf("Expected outline 2 without direction, got %q %+v", a.Title, a.Direction)
	}
	if len(chooser.titles) != 4 {
		t.Errorf("Expected 4 pickers, got %d", len(chooser.titles))
	}

	quitter := &scriptedChooser{steps: []scriptedStep{{0, tui.ActionQuit}}}
	_, err = runFlow(context.Background(), pipeline.NewStages(newScriptedGenerator(), nil), repo, nil, testInput(), quitter.choose, &bytes.Buffer{})
	if !errors.Is(err, errCancelled) {
		t.Errorf("Expected errCancelled, got %v", err)
	}
}

func TestRunFlowOutlineFailure(t *testing.T) {
	gen := newScriptedGenerator()
	gen.errs[pipeline.StageOutline] = errors.New("model unavailable")
	repo := &memoryRepository{articles: map[int64]*core.Article{}}

	_, err := runFlow(context.Background(), pipeline.NewStages(gen, nil), repo, nil, testInput(), pickFirst, &bytes.Buffer{})
	if err == nil {
		t.Fatal("Expected outline failure to surface")
	}
	if len(repo.articles) != 0 {
		t.Error("Expected nothing to be persisted")
	}
}

func TestBuildInput(t *testing.T) {
	tests := []struct {
		name    string
		opts    generateOptions
		wantErr bool
	}{
		{"free", generateOptions{theme: "テーマ", persona: "読者", kind: "free"}, false},
		{"paid", generateOptions{theme: "テーマ", persona: "読者", kind: "paid", price: 500, product: "本"}, false},
		{"paid without price", generateOptions{theme: "テーマ", persona: "読者", kind: "paid"}, true},
		{"unknown type", generateOptions{theme: "テーマ", persona: "読者", kind: "premium"}, true},
		{"blank theme", generateOptions{theme: "  ", persona: "読者", kind: "free"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := buildInput(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if err == nil && in.Type == core.ArticlePaid && in.Price != tt.opts.price {
				t.Errorf("Expected price %d, got %d", tt.opts.price, in.Price)
			}
		})
	}
}

func TestLoadReferences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><head><title>調査</title></head><body><main><p>62%が在宅</p></main></body></html>"))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "memo.txt")
	_ = os.WriteFile(path, []byte("社内メモ"), 0644)

	text, err := loadReferences(context.Background(), fetch.NewFetcher(nil, 0), []string{path}, []string{server.URL}, 0)
	if err != nil {
		t.Fatalf("loadReferences failed: %v", err)
	}
	if !strings.Contains(text, "社内メモ") || !strings.Contains(text, "62%が在宅") {
		t.Errorf("Expected both references, got %q", text)
	}

	empty, err := loadReferences(context.Background(), fetch.NewFetcher(nil, 0), nil, nil, 0)
	if err != nil || empty != "" {
		t.Errorf("Expected no reference text, got %q, %v", empty, err)
	}
}

func TestParseArticleID(t *testing.T) {
	if id, err := parseArticleID("1735689600000"); err != nil || id != 1735689600000 {
		t.Errorf("Expected id, got %d, %v", id, err)
	}
	for _, bad := range []string{"", "abc", "-5", "0"} {
		if _, err := parseArticleID(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestPipelineConfig(t *testing.T) {
	c := pipelineConfig(config.Pipeline{ReferenceLimit: 100, MaxReferences: 3, ImageAspectRatio: "1:1"})
	if c.ReferenceLimit != 100 || c.MaxReferences != 3 || c.ImageAspectRatio != "1:1" {
		t.Errorf("Expected overrides, got %+v", c)
	}
	if c.DraftReferenceLimit != pipeline.DefaultConfig().DraftReferenceLimit {
		t.Errorf("Expected default draft limit, got %d", c.DraftReferenceLimit)
	}
}

func TestChoices(t *testing.T) {
	outlines := outlineChoices([]core.Outline{{Title: "案", Introduction: "導入", Headings: []string{"A", "B"}}})
	if outlines[0].Title != "案" || outlines[0].Detail != "導入\n・A\n・B" {
		t.Errorf("Unexpected outline choice: %+v", outlines[0])
	}

	palette := []string{"#111111", "#222222", "#333333"}
	directions := directionChoices([]core.CreativeDirection{{Style: "ミニマル", Palette: palette}})
	if directions[0].Title != "ミニマル" || len(directions[0].Swatch) != 3 {
		t.Errorf("Unexpected direction choice: %+v", directions[0])
	}
}

func TestPrintArticleList(t *testing.T) {
	var out bytes.Buffer
	printArticleList(&out, nil, 50)
	if !strings.Contains(out.String(), "No saved articles yet") {
		t.Errorf("Expected empty message, got %q", out.String())
	}

	at := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	a := core.NewArticle(testInput(), at)
	a.Title = "とても長いタイトルがここに入ります。三十文字を超えると省略されるはずです。"
	a.ScheduledAt = &at
	a.Video = &core.Video{Status: core.VideoPending}

	out.Reset()
	printArticleList(&out, []*core.Article{a}, 50)
	text := out.String()
	if !strings.Contains(text, "(1/50)") || !strings.Contains(text, "…") {
		t.Errorf("Expected count and clipped title, got %q", text)
	}
	if !strings.Contains(text, "scheduled") || !strings.Contains(text, "video pending") {
		t.Errorf("Expected status column, got %q", text)
	}
}

func TestPrintAuditEditHint(t *testing.T) {
	var out bytes.Buffer
	printAudit(&out, 7, pipeline.AuditResult{IsFresh: true})
	if strings.Contains(out.String(), "ghostwriter edit") {
		t.Error("Expected no edit hint without suggestions")
	}

	out.Reset()
	printAudit(&out, 7, pipeline.AuditResult{Suggestions: []core.AuditSuggestion{{Area: "統計", SuggestionText: "最新値に更新"}}})
	if !strings.Contains(out.String(), "ghostwriter edit 7") {
		t.Errorf("Expected edit hint, got %q", out.String())
	}
}

func TestPrintAuditUsesEnglishLabels(t *testing.T) {
	var out bytes.Buffer
	printAudit(&out, 7, pipeline.AuditResult{
		Suggestions: []core.AuditSuggestion{{Area: "統計", Reason: "古い", SuggestionText: "最新値に更新"}},
		Sources:     []core.Reference{{URI: "https://stat.example", Title: "統計局"}},
	})
	text := out.String()
	for _, label := range []string{"Reason: 古い", "Suggestion: 最新値に更新", "Sources"} {
		if !strings.Contains(text, label) {
			t.Errorf("Expected %q in audit output, got %q", label, text)
		}
	}
	for _, label := range []string{"理由", "提案", "出典"} {
		if strings.Contains(text, label) {
			t.Errorf("Expected no %q label in audit output, got %q", label, text)
		}
	}
}

func TestWithSpinnerStopsOnError(t *testing.T) {
	var out bytes.Buffer
	want := errors.New("boom")
	if err := withSpinner(&out, "処理中", func() error { return want }); !errors.Is(err, want) {
		t.Errorf("Expected fn error, got %v", err)
	}
	if !strings.HasSuffix(out.String(), "\r\033[K") {
		t.Errorf("Expected the status line to be cleared, got %q", out.String())
	}
}
