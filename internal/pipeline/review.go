package pipeline

import (
	"context"
	"fmt"
	"strings"

	"ghostwriter/internal/core"
	"ghostwriter/internal/llm"
	"ghostwriter/internal/logger"
	"ghostwriter/internal/markdown"
)

// AuditResult is the outcome of a freshness audit.
type AuditResult struct {
	IsFresh     bool
	Suggestions []core.AuditSuggestion
	Sources     []core.Reference
}

// ShowEditAffordance reports whether an "edit with suggestions" session
// should be offered.
func (r AuditResult) ShowEditAffordance() bool {
	return len(r.Suggestions) > 0
}

// FactCheckReport is the outcome of a fact check.
type FactCheckReport struct {
	Results           []core.FactCheckResult
	CorrectedMarkdown string // Empty when the correction broke structure
	Sources           []core.Reference
}

// ProofreadResult is the outcome of a proofreading pass.
type ProofreadResult struct {
	Markdown string
	Changes  []string
}

// Audit checks an existing article for stale content using search grounding.
// The response is requested as JSON in the prompt, since grounded calls
// cannot carry a response schema.
func (s *Stages) Audit(ctx context.Context, a *core.Article) (AuditResult, error) {
	res, err := s.gen.GenerateGrounded(ctx, buildAuditPrompt(a, s.config.AnalysisLimit), llm.TextGenerationOptions{
		Label:    StageAudit,
		Grounded: true,
	})
	if err != nil {
		return AuditResult{}, fmt.Errorf("audit failed: %w", err)
	}

	var parsed struct {
		IsFresh     *bool                  `json:"is_fresh"`
		Suggestions []core.AuditSuggestion `json:"suggestions"`
	}
	if err := llm.DecodeJSON(res.Text, &parsed); err != nil {
		return AuditResult{}, fmt.Errorf("failed to parse audit result: %w", err)
	}
	if parsed.IsFresh == nil {
		return AuditResult{}, fmt.Errorf("%w: is_fresh", ErrMissingField)
	}

	var suggestions []core.AuditSuggestion
	for _, sg := range parsed.Suggestions {
		if strings.TrimSpace(sg.SuggestionText) == "" {
			continue
		}
		suggestions = append(suggestions, sg)
	}
	return AuditResult{IsFresh: *parsed.IsFresh, Suggestions: suggestions, Sources: res.Sources}, nil
}

// FactCheck verifies claims in the article with search grounding and
// returns a corrected body when the model produced one that keeps every
// structural marker.
func (s *Stages) FactCheck(ctx context.Context, a *core.Article) (FactCheckReport, error) {
	res, err := s.gen.GenerateGrounded(ctx, buildFactCheckPrompt(a.Markdown), llm.TextGenerationOptions{
		Label:    StageFactCheck,
		Grounded: true,
	})
	if err != nil {
		return FactCheckReport{}, fmt.Errorf("fact check failed: %w", err)
	}

	var parsed struct {
		Results           []core.FactCheckResult `json:"results"`
		CorrectedMarkdown string                 `json:"corrected_markdown"`
	}
	if err := llm.DecodeJSON(res.Text, &parsed); err != nil {
		return FactCheckReport{}, fmt.Errorf("failed to parse fact check result: %w", err)
	}

	report := FactCheckReport{Results: parsed.Results, Sources: res.Sources}
	corrected := parsed.CorrectedMarkdown
	if strings.TrimSpace(corrected) != "" {
		if ok, reason := markdown.PreservesStructure(a.Markdown, corrected); ok {
			report.CorrectedMarkdown = corrected
		} else {
			logger.Warn("Fact check correction dropped structure, ignoring it", "stage", StageFactCheck, "reason", reason)
		}
	}
	return report, nil
}

// Proofread fixes typos and wording. A rewrite that drops a structural
// marker is rejected with ErrStructureLost.
func (s *Stages) Proofread(ctx context.Context, a *core.Article) (ProofreadResult, error) {
	raw, err := s.gen.GenerateText(ctx, buildProofreadPrompt(a.Markdown), llm.TextGenerationOptions{
		Label:          StageProofread,
		ResponseSchema: proofreadSchema(),
	})
	if err != nil {
		return ProofreadResult{}, fmt.Errorf("proofread failed: %w", err)
	}

	var parsed struct {
		CorrectedMarkdown string   `json:"corrected_markdown"`
		Changes           []string `json:"changes"`
	}
	if err := llm.DecodeJSON(raw, &parsed); err != nil {
		return ProofreadResult{}, fmt.Errorf("failed to parse proofread result: %w", err)
	}
	if strings.TrimSpace(parsed.CorrectedMarkdown) == "" {
		return ProofreadResult{}, fmt.Errorf("%w: corrected_markdown", ErrMissingField)
	}
	if ok, reason := markdown.PreservesStructure(a.Markdown, parsed.CorrectedMarkdown); !ok {
		return ProofreadResult{}, fmt.Errorf("%w: %s", ErrStructureLost, reason)
	}
	return ProofreadResult{Markdown: parsed.CorrectedMarkdown, Changes: parsed.Changes}, nil
}
