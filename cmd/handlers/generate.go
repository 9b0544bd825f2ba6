package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"ghostwriter/internal/core"
	"ghostwriter/internal/fetch"
	"ghostwriter/internal/logger"
	"ghostwriter/internal/pipeline"
	"ghostwriter/internal/tui"

	"github.com/spf13/cobra"
)

// errCancelled is returned when the author quits a picker.
var errCancelled = errors.New("generation cancelled")

type generateOptions struct {
	theme    string
	persona  string
	expert   string
	tone     string
	kind     string
	price    int
	product  string
	refFiles []string
	refURLs  []string
	research bool
	auto     bool
}

// NewGenerateCmd creates the generate command
func NewGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new article interactively",
		Long: `Generate a new article from a theme and a target reader.

The flow suggests three outlines, then a set of creative directions, and
finally drafts, decorates and illustrates the article before saving it.
Outlines and directions are picked in the terminal unless --auto is set.

Examples:
  # Free article
  ghostwriter generate --theme "在宅勤務の集中術" --persona "30代の会社員"

  # Paid article with web research and a reference page
  ghostwriter generate --theme "副業の始め方" --persona "会社員" \
    --type paid --price 500 --product "副業スタートガイド" \
    --research --ref-url https://example.com/survey

  # No pickers, first candidate everywhere
  ghostwriter generate --theme "..." --persona "..." --auto`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.theme, "theme", "", "Article theme (required)")
	cmd.Flags().StringVar(&opts.persona, "persona", "", "Target reader persona (required)")
	cmd.Flags().StringVar(&opts.expert, "expert", "", "Expert persona the article is written as")
	cmd.Flags().StringVar(&opts.tone, "tone", "", "Tone of voice")
	cmd.Flags().StringVar(&opts.kind, "type", string(core.ArticleFree), "Article type: free or paid")
	cmd.Flags().IntVar(&opts.price, "price", 0, "Price in yen for paid articles")
	cmd.Flags().StringVar(&opts.product, "product", "", "Product description for paid articles")
	cmd.Flags().StringSliceVar(&opts.refFiles, "ref-file", nil, "Reference file (repeatable)")
	cmd.Flags().StringSliceVar(&opts.refURLs, "ref-url", nil, "Reference URL (repeatable)")
	cmd.Flags().BoolVar(&opts.research, "research", false, "Run grounded web research before outlining")
	cmd.Flags().BoolVar(&opts.auto, "auto", false, "Pick the first outline and direction without prompting")

	_ = cmd.MarkFlagRequired("theme")
	_ = cmd.MarkFlagRequired("persona")

	return cmd
}

func buildInput(opts generateOptions) (core.Input, error) {
	in := core.Input{
		Theme:              strings.TrimSpace(opts.theme),
		Persona:            strings.TrimSpace(opts.persona),
		ExpertPersona:      strings.TrimSpace(opts.expert),
		Tone:               strings.TrimSpace(opts.tone),
		Type:               core.ArticleType(opts.kind),
		Research:           opts.research,
		ProductDescription: strings.TrimSpace(opts.product),
	}
	if in.Theme == "" || in.Persona == "" {
		return core.Input{}, errors.New("--theme and --persona must not be empty")
	}

	switch in.Type {
	case core.ArticleFree:
	case core.ArticlePaid:
		if opts.price <= 0 {
			return core.Input{}, errors.New("paid articles need a positive --price")
		}
		in.Price = opts.price
	default:
		return core.Input{}, fmt.Errorf("unknown article type %q. Supported: free, paid", opts.kind)
	}
	return in, nil
}

func loadReferences(ctx context.Context, fetcher *fetch.Fetcher, files, urls []string, limit int) (string, error) {
	var refs []fetch.Reference
	for _, path := range files {
		ref, err := fetch.ReferenceFromFile(path, limit)
		if err != nil {
			return "", err
		}
		refs = append(refs, ref)
	}
	for _, u := range urls {
		ref, err := fetcher.ReferenceFromURL(ctx, u)
		if err != nil {
			return "", err
		}
		refs = append(refs, ref)
	}
	return fetch.Combine(refs...), nil
}

func runGenerate(ctx context.Context, out, errOut io.Writer, opts generateOptions) error {
	in, err := buildInput(opts)
	if err != nil {
		return err
	}

	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	limit := ws.cfg.Pipeline.ReferenceFetchLimit
	in.ReferenceText, err = loadReferences(ctx, fetch.NewFetcher(nil, limit), opts.refFiles, opts.refURLs, limit)
	if err != nil {
		return err
	}

	voice, err := ws.store.BrandVoice(ctx)
	if err != nil {
		logger.Warn("Brand voice unavailable, generating without it", "error", err)
	}

	stages, _, err := ws.stages(ctx)
	if err != nil {
		return err
	}

	choose := pickInTerminal
	if opts.auto {
		choose = pickFirst
	}

	article, err := runFlow(ctx, stages, ws.library, voice, in, choose, errOut)
	if errors.Is(err, errCancelled) {
		fmt.Fprintln(errOut, "Generation cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	printArticleSummary(out, article)
	return nil
}

// chooser picks one of the choices.
type chooser func(title string, choices []tui.Choice, opts tui.Options) (int, tui.Action, error)

func pickInTerminal(title string, choices []tui.Choice, opts tui.Options) (int, tui.Action, error) {
	return tui.Pick(title, choices, opts)
}

func pickFirst(string, []tui.Choice, tui.Options) (int, tui.Action, error) {
	return 0, tui.ActionSelect, nil
}

// runFlow drives the interactive flow to completion.
func runFlow(ctx context.Context, stages *pipeline.Stages, repo pipeline.Repository, voice *core.BrandVoice, in core.Input, choose chooser, errOut io.Writer) (*core.Article, error) {
	var spinner *status
	progress := func(step, total int, label string) {
		if spinner != nil {
			spinner.Update(fmt.Sprintf("Step %d/%d: %s", step, total, label))
		}
	}
	assembler := pipeline.NewAssembler(stages, repo, pipeline.WithProgress(progress))
	flow := pipeline.NewFlow(stages, assembler, voice)

	withStatus := func(label string, fn func() error) error {
		spinner = startStatus(errOut, label)
		defer func() {
			spinner.Stop()
			spinner = nil
		}()
		return fn()
	}

	for {
		switch st := flow.State().(type) {
		case pipeline.InputState:
			label := "Drafting outlines"
			if in.Research {
				label = "Researching and drafting outlines"
			}
			if err := withStatus(label, func() error { return flow.Start(ctx, in) }); err != nil {
				return nil, err
			}

		case pipeline.OutlineSelection:
			i, action, err := choose("Choose an outline", outlineChoices(st.Outlines), tui.Options{AllowBack: true})
			if err != nil {
				return nil, err
			}
			switch action {
			case tui.ActionSelect:
				err = withStatus("Proposing creative directions", func() error { return flow.SelectOutline(ctx, i) })
			case tui.ActionBack:
				err = flow.Back()
			default:
				return nil, errCancelled
			}
			if err != nil {
				return nil, err
			}

		case pipeline.DirectionSelection:
			i, action, err := choose("Choose a design direction", directionChoices(st.Directions), tui.Options{AllowBack: true, AllowSkip: true})
			if err != nil {
				return nil, err
			}
			switch action {
			case tui.ActionSelect:
				err = withStatus("Assembling the article", func() error { return flow.SelectDirection(ctx, i) })
			case tui.ActionSkip:
				err = withStatus("Assembling the article", func() error { return flow.SkipDirection(ctx) })
			case tui.ActionBack:
				err = flow.Back()
			default:
				return nil, errCancelled
			}
			if err != nil {
				return nil, err
			}

		case pipeline.Complete:
			return st.Article, nil

		case pipeline.Failed:
			return nil, fmt.Errorf("%s: %w", st.Reason, st.Err)

		default:
			return nil, fmt.Errorf("unexpected flow state %s", st.Name())
		}
	}
}

func outlineChoices(outlines []core.Outline) []tui.Choice {
	choices := make([]tui.Choice, 0, len(outlines))
	for _, o := range outlines {
		detail := o.Introduction
		if len(o.Headings) > 0 {
			detail += "\n・" + strings.Join(o.Headings, "\n・")
		}
		choices = append(choices, tui.Choice{Title: o.Title, Detail: strings.TrimSpace(detail)})
	}
	return choices
}

func directionChoices(directions []core.CreativeDirection) []tui.Choice {
	choices := make([]tui.Choice, 0, len(directions))
	for _, d := range directions {
		choices = append(choices, tui.Choice{Title: d.Style, Detail: strings.Join(d.Palette, " "), Swatch: d.Palette})
	}
	return choices
}

func printArticleSummary(out io.Writer, a *core.Article) {
	fmt.Fprintf(out, "\n✅ Saved article %d: %s\n", a.ID, a.Title)
	if a.Direction != nil {
		fmt.Fprintf(out, "   Direction: %s\n", a.Direction.Style)
	}
	fmt.Fprintf(out, "   References: %d, FAQ: %d, Images: %d\n", len(a.References), len(a.FAQ), len(a.ImageMap))
	if a.Performance != nil {
		fmt.Fprintf(out, "   Predicted score: %d/100\n", a.Performance.Score)
	}
	fmt.Fprintf(out, "\n💡 Use 'ghostwriter show %d --out .' to export the page\n", a.ID)
}
