package pipeline

import (
	"context"
	"fmt"

	"ghostwriter/internal/core"
	"ghostwriter/internal/logger"

	"github.com/google/uuid"
)

// State is one step of the interactive generation flow.
type State interface {
	Name() string
	isState()
}

// InputState waits for the author's input.
type InputState struct{}

// OutlineSelection waits for the author to pick an outline.
type OutlineSelection struct {
	Outlines []core.Outline
}

// DirectionSelection waits for the author to pick or skip a creative direction.
type DirectionSelection struct {
	Outline    core.Outline
	Directions []core.CreativeDirection
}

// Assembling is the automatic assembly run. Direction is nil when skipped.
type Assembling struct {
	Outline   core.Outline
	Direction *core.CreativeDirection
}

// Complete holds the persisted article.
type Complete struct {
	Article *core.Article
}

// Failed records why the flow stopped.
type Failed struct {
	Reason string
	Err    error
}

func (InputState) Name() string         { return "input" }
func (OutlineSelection) Name() string   { return "outline-selection" }
func (DirectionSelection) Name() string { return "direction-selection" }
func (Assembling) Name() string         { return "assembling" }
func (Complete) Name() string           { return "complete" }
func (Failed) Name() string             { return "failed" }

func (InputState) isState()         {}
func (OutlineSelection) isState()   {}
func (DirectionSelection) isState() {}
func (Assembling) isState()         {}
func (Complete) isState()           {}
func (Failed) isState()             {}

// Flow is the interactive outline, direction and assembly state machine.
// State changes only through its methods.
type Flow struct {
	stages    *Stages
	assembler *Assembler
	voice     *core.BrandVoice

	runID    string
	input    core.Input
	outlines []core.Outline
	state    State
}

// NewFlow creates a flow in the input state.
func NewFlow(stages *Stages, assembler *Assembler, voice *core.BrandVoice) *Flow {
	return &Flow{stages: stages, assembler: assembler, voice: voice, state: InputState{}}
}

// State returns the current state.
func (f *Flow) State() State {
	return f.state
}

// RunID identifies the current run in logs.
func (f *Flow) RunID() string {
	return f.runID
}

func (f *Flow) invalid(action string) error {
	return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, action, f.state.Name())
}

func (f *Flow) fail(reason string, err error) error {
	f.state = Failed{Reason: reason, Err: err}
	logger.Error("Generation flow failed", err, "run_id", f.runID, "reason", reason)
	return err
}

// Start runs optional research and the outline stage. Allowed from the
// input and failed states.
func (f *Flow) Start(ctx context.Context, in core.Input) error {
	switch f.state.(type) {
	case InputState, Failed:
	default:
		return f.invalid("start")
	}

	f.runID = uuid.NewString()
	f.outlines = nil
	logger.Info("Starting generation flow", "run_id", f.runID, "theme", in.Theme, "type", in.Type)

	research := ""
	if in.Research {
		research = f.stages.Research(ctx, in.Theme)
	}
	in.ReferenceText = CombineReference(in.ReferenceText, research)
	f.input = in

	outlines, err := f.stages.SuggestOutlines(ctx, in, in.ReferenceText)
	if err != nil {
		return f.fail("構成案を生成できませんでした", err)
	}
	f.outlines = outlines
	f.state = OutlineSelection{Outlines: outlines}
	return nil
}

// SelectOutline picks outline i and runs the direction stage. When that
// stage fails the flow goes straight to assembly without a direction.
func (f *Flow) SelectOutline(ctx context.Context, i int) error {
	sel, ok := f.state.(OutlineSelection)
	if !ok {
		return f.invalid("select outline")
	}
	if i < 0 || i >= len(sel.Outlines) {
		return fmt.Errorf("outline index %d out of range (0-%d)", i, len(sel.Outlines)-1)
	}
	outline := sel.Outlines[i]

	directions, err := f.stages.SuggestDirections(ctx, f.input)
	if err != nil {
		logger.Warn("Creative direction failed, assembling without it", "run_id", f.runID, "stage", StageDirection, "error", err)
		return f.assemble(ctx, outline, nil)
	}
	f.state = DirectionSelection{Outline: outline, Directions: directions}
	return nil
}

// SelectDirection picks direction i and assembles the article.
func (f *Flow) SelectDirection(ctx context.Context, i int) error {
	sel, ok := f.state.(DirectionSelection)
	if !ok {
		return f.invalid("select direction")
	}
	if i < 0 || i >= len(sel.Directions) {
		return fmt.Errorf("direction index %d out of range (0-%d)", i, len(sel.Directions)-1)
	}
	direction := sel.Directions[i]
	return f.assemble(ctx, sel.Outline, &direction)
}

// SkipDirection assembles the article without a creative direction.
func (f *Flow) SkipDirection(ctx context.Context) error {
	sel, ok := f.state.(DirectionSelection)
	if !ok {
		return f.invalid("skip direction")
	}
	return f.assemble(ctx, sel.Outline, nil)
}

// Back returns to the previous selection, discarding everything collected
// after it.
func (f *Flow) Back() error {
	switch f.state.(type) {
	case OutlineSelection:
		f.outlines = nil
		f.state = InputState{}
	case DirectionSelection:
		f.state = OutlineSelection{Outlines: f.outlines}
	default:
		return f.invalid("back")
	}
	return nil
}

func (f *Flow) assemble(ctx context.Context, outline core.Outline, direction *core.CreativeDirection) error {
	f.state = Assembling{Outline: outline, Direction: direction}
	article, err := f.assembler.Assemble(ctx, f.input, outline, direction, f.voice)
	if err != nil {
		return f.fail("記事を生成できませんでした", err)
	}
	f.state = Complete{Article: article}
	return nil
}
