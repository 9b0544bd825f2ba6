package pipeline

import (
	"errors"

	"ghostwriter/internal/core"
)

// Stage labels, used for logging and by test fakes.
const (
	StageResearch    = "research"
	StageOutline     = "outline"
	StageDirection   = "direction"
	StageDraft       = "draft"
	StageDecoration  = "decoration"
	StageImage       = "image"
	StageFAQ         = "faq"
	StagePerformance = "performance"
	StageEnhancement = "enhancement"
	StageAudit       = "audit"
	StageFactCheck   = "factcheck"
	StageProofread   = "proofread"
)

var (
	// ErrEmptyGeneration is returned when the draft stream produced no text.
	ErrEmptyGeneration = errors.New("generation returned empty text")
	// ErrMissingField is returned when required JSON fields are absent.
	ErrMissingField = errors.New("required field missing from model response")
	// ErrNoOutlines is returned when the outline stage produced no candidates.
	ErrNoOutlines = errors.New("no outlines were generated")
	// ErrInvalidTransition is returned when a flow action does not apply to the current state.
	ErrInvalidTransition = errors.New("invalid transition for current state")
	// ErrStructureLost is returned when a rewrite dropped a structural marker.
	ErrStructureLost = errors.New("rewrite dropped a structural marker")
)

// Config holds pipeline configuration
type Config struct {
	// Prompt bounds, in characters
	ReferenceLimit      int // Reference text sent to the outline stage
	DraftReferenceLimit int // Reference text sent to the draft stage
	DecorationLimit     int // Article body sent to the decoration stage
	AnalysisLimit       int // Article body sent to FAQ, performance, enhancement and audit

	MaxReferences    int
	ImageAspectRatio string
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		ReferenceLimit:      15000,
		DraftReferenceLimit: 8000,
		DecorationLimit:     10000,
		AnalysisLimit:       5000,
		MaxReferences:       core.MaxReferences,
		ImageAspectRatio:    "16:9",
	}
}

// Stages runs the individual model-backed steps. It holds no per-run state.
type Stages struct {
	gen    Generator
	config *Config
}

// NewStages creates the stage runner
func NewStages(gen Generator, config *Config) *Stages {
	if config == nil {
		config = DefaultConfig()
	}
	return &Stages{gen: gen, config: config}
}
