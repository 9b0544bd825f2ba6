package pipeline

import (
	"context"

	"ghostwriter/internal/core"
	"ghostwriter/internal/llm"
)

// Generator is the model boundary the stages call. *llm.Client implements it.
type Generator interface {
	// GenerateText returns plain or JSON text for a single prompt
	GenerateText(ctx context.Context, prompt string, opts llm.TextGenerationOptions) (string, error)

	// GenerateGrounded returns text plus the web sources it was grounded on
	GenerateGrounded(ctx context.Context, prompt string, opts llm.TextGenerationOptions) (llm.GroundedText, error)

	// StreamText streams a response, reporting accumulated text as it arrives
	StreamText(ctx context.Context, prompt string, opts llm.TextGenerationOptions, onChunk func(accumulated string)) (llm.GroundedText, error)

	// GenerateImage renders a single image
	GenerateImage(ctx context.Context, prompt, aspectRatio string) (llm.Image, error)
}

// Repository persists articles. Create stores metadata and binary assets,
// Update rewrites metadata only.
type Repository interface {
	Create(ctx context.Context, a *core.Article) error
	Update(ctx context.Context, a *core.Article) error
	Load(ctx context.Context, id int64) (*core.Article, error)
}

// Progress reports assembly progress as step of total.
type Progress func(step, total int, label string)
