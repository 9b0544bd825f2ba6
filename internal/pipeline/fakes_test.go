package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ghostwriter/internal/core"
	"ghostwriter/internal/llm"
)

// fakeGenerator answers by stage label and records every prompt.
type fakeGenerator struct {
	text     map[string]string
	sources  map[string][]core.Reference
	errs     map[string]error
	chunks   []string // Draft stream chunks
	failWhen func(prompt string) bool

	prompts     map[string][]string
	streamed    []string
	imageCalls  []string
	imageAspect string
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		text:    map[string]string{},
		sources: map[string][]core.Reference{},
		errs:    map[string]error{},
		prompts: map[string][]string{},
	}
}

func (f *fakeGenerator) record(label, prompt string) error {
	f.prompts[label] = append(f.prompts[label], prompt)
	return f.errs[label]
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string, opts llm.TextGenerationOptions) (string, error) {
	if err := f.record(opts.Label, prompt); err != nil {
		return "", err
	}
	text, ok := f.text[opts.Label]
	if !ok {
		return "", fmt.Errorf("no canned response for %s", opts.Label)
	}
	return text, nil
}

func (f *fakeGenerator) GenerateGrounded(ctx context.Context, prompt string, opts llm.TextGenerationOptions) (llm.GroundedText, error) {
	text, err := f.GenerateText(ctx, prompt, opts)
	if err != nil {
		return llm.GroundedText{}, err
	}
	return llm.GroundedText{Text: text, Sources: f.sources[opts.Label]}, nil
}

func (f *fakeGenerator) StreamText(ctx context.Context, prompt string, opts llm.TextGenerationOptions, onChunk func(string)) (llm.GroundedText, error) {
	if err := f.record(opts.Label, prompt); err != nil {
		return llm.GroundedText{}, err
	}
	var acc strings.Builder
	for _, c := range f.chunks {
		acc.WriteString(c)
		f.streamed = append(f.streamed, acc.String())
		if onChunk != nil {
			onChunk(acc.String())
		}
	}
	return llm.GroundedText{Text: acc.String(), Sources: f.sources[opts.Label]}, nil
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, prompt, aspectRatio string) (llm.Image, error) {
	f.imageCalls = append(f.imageCalls, prompt)
	f.imageAspect = aspectRatio
	if f.failWhen != nil && f.failWhen(prompt) {
		return llm.Image{}, errors.New("quota exceeded")
	}
	return llm.Image{Data: []byte("PNG:" + prompt), MIMEType: "image/png"}, nil
}

// fakeRepository keeps articles in memory.
type fakeRepository struct {
	articles  map[int64]*core.Article
	creates   int
	updates   int
	createErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{articles: map[int64]*core.Article{}}
}

func (r *fakeRepository) Create(ctx context.Context, a *core.Article) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.creates++
	r.articles[a.ID] = a
	return nil
}

func (r *fakeRepository) Update(ctx context.Context, a *core.Article) error {
	if _, ok := r.articles[a.ID]; !ok {
		return errors.New("not found")
	}
	r.updates++
	r.articles[a.ID] = a
	return nil
}

func (r *fakeRepository) Load(ctx context.Context, id int64) (*core.Article, error) {
	a, ok := r.articles[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return a, nil
}

const (
	threeOutlines = `{"outlines":[
{"title":"案1","introduction":"導入1","headings":["A","B"]},
{"title":"案2","introduction":"導入2","headings":["C","D"]},
{"title":"案3","introduction":"導入3","headings":["E","F"]}]}`

	twoDirections = `{"directions":[
{"style":"ミニマル","palette":["#111111","#222222","#333333"]},
{"style":"ポップ","palette":["#ff0000","#00ff00"]}]}`

	draftText = "## はじめに\n\n本文です。\n\n参考URL：[公式](https://known.example/a)\n"

	faqJSON         = `{"faqs":[{"question":"Q1","answer":"A1"}]}`
	performanceJSON = `{"score":82,"summary":"良い","strengths":["具体的"],"improvements":["図を増やす"],"predicted_views":1200}`
	enhancementJSON = `{"title_suggestions":["案"],"share_text":"読んでね","hashtags":["#Go","AI"],"meta_description":"説明"}`
)

func decorationJSON(md, coverPrompt string) string {
	return fmt.Sprintf(`{"decoratedMarkdown":%s,"coverImagePrompt":%s,"coverImageOverlay":"表紙"}`, quoteJSON(md), quoteJSON(coverPrompt))
}

// happyGenerator answers every assembly stage successfully.
func happyGenerator() *fakeGenerator {
	gen := newFakeGenerator()
	gen.text[StageOutline] = threeOutlines
	gen.text[StageDirection] = twoDirections
	gen.chunks = []string{"## はじめに\n\n本文", "です。\n\n参考URL：[公式](https://known.example/a)\n"}
	gen.sources[StageDraft] = []core.Reference{{URI: "https://known.example/a", Title: "公式"}}
	gen.text[StageDecoration] = decorationJSON(draftText, "cover art")
	gen.text[StageFAQ] = faqJSON
	gen.text[StagePerformance] = performanceJSON
	gen.text[StageEnhancement] = enhancementJSON
	return gen
}

func quoteJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
