package pipeline

import (
	"context"
	"strings"

	"ghostwriter/internal/core"
	"ghostwriter/internal/llm"
	"ghostwriter/internal/logger"

	"google.golang.org/genai"
)

// FAQ generates reader questions. Returns nil on failure.
func (s *Stages) FAQ(ctx context.Context, title, md string) []core.FAQItem {
	var parsed struct {
		FAQs []core.FAQItem `json:"faqs"`
	}
	if !s.enrich(ctx, StageFAQ, buildFAQPrompt(title, md, s.config.AnalysisLimit), faqSchema(), &parsed) {
		return nil
	}

	items := make([]core.FAQItem, 0, len(parsed.FAQs))
	for _, item := range parsed.FAQs {
		if strings.TrimSpace(item.Question) == "" || strings.TrimSpace(item.Answer) == "" {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

// Performance predicts reception. Returns nil on failure.
func (s *Stages) Performance(ctx context.Context, in core.Input, title, md string) *core.Performance {
	var perf core.Performance
	if !s.enrich(ctx, StagePerformance, buildPerformancePrompt(in, title, md, s.config.AnalysisLimit), performanceSchema(), &perf) {
		return nil
	}
	perf.Score = min(max(perf.Score, 0), 100)
	perf.Actual = nil
	return &perf
}

// Enhance produces distribution metadata. Returns the zero value on failure.
func (s *Stages) Enhance(ctx context.Context, title, md string) core.Enhancement {
	var enh core.Enhancement
	if !s.enrich(ctx, StageEnhancement, buildEnhancementPrompt(title, md, s.config.AnalysisLimit), enhancementSchema(), &enh) {
		return core.Enhancement{}
	}
	for i, tag := range enh.Hashtags {
		enh.Hashtags[i] = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	}
	return enh
}

// enrich runs one optional JSON stage, logging and reporting false on failure.
func (s *Stages) enrich(ctx context.Context, label, prompt string, schema *genai.Schema, out any) bool {
	raw, err := s.gen.GenerateText(ctx, prompt, llm.TextGenerationOptions{Label: label, ResponseSchema: schema})
	if err != nil {
		logger.Warn("Enrichment stage failed", "stage", label, "error", err)
		return false
	}
	if err := llm.DecodeJSON(raw, out); err != nil {
		logger.Warn("Enrichment stage returned invalid JSON", "stage", label, "error", err)
		return false
	}
	return true
}
