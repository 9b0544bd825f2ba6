package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"ghostwriter/internal/core"
	"ghostwriter/internal/llm"
	"ghostwriter/internal/logger"
	"ghostwriter/internal/markdown"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Draft is the output of the core-text stage.
type Draft struct {
	Markdown string
	Sources  []core.Reference // Raw grounding sources, in stream order
	Demoted  []markdown.Link  // Links removed by the grounding filter
}

// Decoration is the output of the decoration stage.
type Decoration struct {
	Markdown     string
	CoverPrompt  string
	CoverOverlay string
	Fallback     bool // Decorated text broke structure and the core text was kept
}

// Research runs a grounded search summary. Failure is logged and yields "".
func (s *Stages) Research(ctx context.Context, topic string) string {
	if strings.TrimSpace(topic) == "" {
		return ""
	}
	res, err := s.gen.GenerateGrounded(ctx, buildResearchPrompt(topic), llm.TextGenerationOptions{
		Label:    StageResearch,
		Grounded: true,
	})
	if err != nil {
		logger.Warn("Research stage failed, continuing without research", "stage", StageResearch, "error", err)
		return ""
	}
	return strings.TrimSpace(res.Text)
}

// SuggestOutlines asks for three candidate outlines. Any failure is fatal.
func (s *Stages) SuggestOutlines(ctx context.Context, in core.Input, reference string) ([]core.Outline, error) {
	raw, err := s.gen.GenerateText(ctx, buildOutlinePrompt(in, reference, s.config.ReferenceLimit), llm.TextGenerationOptions{
		Label:          StageOutline,
		ResponseSchema: outlineSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("outline generation failed: %w", err)
	}

	var parsed struct {
		Outlines []core.Outline `json:"outlines"`
	}
	if err := llm.DecodeJSON(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse outlines: %w", err)
	}

	outlines := make([]core.Outline, 0, len(parsed.Outlines))
	for _, o := range parsed.Outlines {
		if strings.TrimSpace(o.Title) == "" {
			continue
		}
		outlines = append(outlines, o)
	}
	if len(outlines) == 0 {
		return nil, ErrNoOutlines
	}
	return outlines, nil
}

// SuggestDirections asks for candidate visual directions. Entries without
// exactly three hex colours are dropped. Callers treat any error as "skip".
func (s *Stages) SuggestDirections(ctx context.Context, in core.Input) ([]core.CreativeDirection, error) {
	raw, err := s.gen.GenerateText(ctx, buildDirectionPrompt(in), llm.TextGenerationOptions{
		Label:          StageDirection,
		ResponseSchema: directionSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("direction generation failed: %w", err)
	}

	var parsed struct {
		Directions []core.CreativeDirection `json:"directions"`
	}
	if err := llm.DecodeJSON(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse directions: %w", err)
	}

	var directions []core.CreativeDirection
	for _, d := range parsed.Directions {
		if validPalette(d.Palette) {
			directions = append(directions, d)
		}
	}
	if len(directions) == 0 {
		return nil, fmt.Errorf("no usable creative direction in response")
	}
	return directions, nil
}

func validPalette(palette []string) bool {
	if len(palette) != 3 {
		return false
	}
	for _, c := range palette {
		if !hexColorPattern.MatchString(c) {
			return false
		}
	}
	return true
}

// WriteDraft streams the article body with search grounding, then demotes
// every link whose URL did not come back in the grounding metadata.
func (s *Stages) WriteDraft(ctx context.Context, in core.Input, outline core.Outline, voice *core.BrandVoice, onChunk func(string)) (Draft, error) {
	res, err := s.gen.StreamText(ctx, buildDraftPrompt(in, outline, s.config.DraftReferenceLimit), llm.TextGenerationOptions{
		Label:             StageDraft,
		SystemInstruction: buildDraftSystemInstruction(in, voice),
		Grounded:          true,
	}, onChunk)
	if err != nil {
		return Draft{}, fmt.Errorf("draft generation failed: %w", err)
	}
	if strings.TrimSpace(res.Text) == "" {
		return Draft{}, ErrEmptyGeneration
	}

	filtered, demoted := markdown.FilterUngroundedLinks(res.Text, markdown.AllowedSet(res.Sources))
	if len(demoted) > 0 {
		logger.Info("Removed ungrounded links from draft", "count", len(demoted))
		for _, l := range demoted {
			logger.Debug("Demoted ungrounded link", "url", l.URL, "context", l.Context)
		}
	}
	return Draft{Markdown: filtered, Sources: res.Sources, Demoted: demoted}, nil
}

// Decorate inserts placeholders into the draft and returns the cover image
// task. Missing fields are fatal. A response that drops the paid divider or
// a reference line is discarded in favour of the undecorated draft.
func (s *Stages) Decorate(ctx context.Context, md string) (Decoration, error) {
	raw, err := s.gen.GenerateText(ctx, buildDecorationPrompt(md, s.config.DecorationLimit), llm.TextGenerationOptions{
		Label:          StageDecoration,
		ResponseSchema: decorationSchema(),
	})
	if err != nil {
		return Decoration{}, fmt.Errorf("decoration failed: %w", err)
	}

	var parsed struct {
		DecoratedMarkdown *string `json:"decoratedMarkdown"`
		CoverImagePrompt  *string `json:"coverImagePrompt"`
		CoverImageOverlay *string `json:"coverImageOverlay"`
	}
	if err := llm.DecodeJSON(raw, &parsed); err != nil {
		return Decoration{}, fmt.Errorf("failed to parse decoration: %w", err)
	}

	var missing []string
	if parsed.DecoratedMarkdown == nil || strings.TrimSpace(*parsed.DecoratedMarkdown) == "" {
		missing = append(missing, "decoratedMarkdown")
	}
	if parsed.CoverImagePrompt == nil {
		missing = append(missing, "coverImagePrompt")
	}
	if parsed.CoverImageOverlay == nil {
		missing = append(missing, "coverImageOverlay")
	}
	if len(missing) > 0 {
		return Decoration{}, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	dec := Decoration{
		Markdown:     *parsed.DecoratedMarkdown,
		CoverPrompt:  *parsed.CoverImagePrompt,
		CoverOverlay: *parsed.CoverImageOverlay,
	}
	if ok, reason := markdown.PreservesStructure(md, dec.Markdown); !ok {
		logger.Warn("Decoration altered article structure, keeping undecorated text", "stage", StageDecoration, "reason", reason)
		dec.Markdown = md
		dec.Fallback = true
	}
	return dec, nil
}

// ResolveImages generates each task in order. A failed or unparseable task
// is recorded as an error entry and never aborts the run.
func (s *Stages) ResolveImages(ctx context.Context, tasks []core.ImageTask) map[string]core.ImageAsset {
	images := make(map[string]core.ImageAsset, len(tasks))
	for i, task := range tasks {
		if strings.TrimSpace(task.Prompt) == "" {
			logger.Warn("Image task has no prompt", "stage", StageImage, "index", i)
			images[task.Key] = core.ImageError()
			continue
		}

		img, err := s.gen.GenerateImage(ctx, ImagePrompt(task.Prompt, task.OverlayText), s.config.ImageAspectRatio)
		if err != nil {
			logger.Warn("Image generation failed", "stage", StageImage, "index", i, "error", err)
			images[task.Key] = core.ImageError()
			continue
		}
		images[task.Key] = core.ImageData(img.Data, img.MIMEType)
	}
	return images
}
