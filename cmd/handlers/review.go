package handlers

import (
	"fmt"
	"io"

	"ghostwriter/internal/core"
	"ghostwriter/internal/pipeline"

	"github.com/spf13/cobra"
)

// NewProofreadCmd creates the proofread command
func NewProofreadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "proofread <id>",
		Short: "Proofread an article and save the corrected body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArticleID(args[0])
			if err != nil {
				return err
			}
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			wb, err := ws.workbench(cmd.Context())
			if err != nil {
				return err
			}

			var res pipeline.ProofreadResult
			err = withSpinner(cmd.ErrOrStderr(), "Proofreading", func() (err error) {
				_, res, err = wb.Proofread(cmd.Context(), id)
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ Proofread article %d (%d changes)\n", id, len(res.Changes))
			for _, c := range res.Changes {
				fmt.Fprintf(out, "  • %s\n", c)
			}
			return nil
		},
	}
}

// NewFactCheckCmd creates the factcheck command
func NewFactCheckCmd() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "factcheck <id>",
		Short: "Verify an article's claims against web search",
		Long: `Verify an article's factual claims with search grounding.

Results are saved with the article. With --apply the suggested corrected
body replaces the current one, provided it keeps every heading and
placeholder of the original.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArticleID(args[0])
			if err != nil {
				return err
			}
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			wb, err := ws.workbench(cmd.Context())
			if err != nil {
				return err
			}

			var report pipeline.FactCheckReport
			err = withSpinner(cmd.ErrOrStderr(), "Fact-checking", func() (err error) {
				_, report, err = wb.FactCheck(cmd.Context(), id, apply)
				return err
			})
			if err != nil {
				return err
			}
			printFactCheck(cmd.OutOrStdout(), report, apply)
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Replace the body with the corrected version")
	return cmd
}

func verdictIcon(verdict string) string {
	switch verdict {
	case "correct":
		return "✅"
	case "incorrect":
		return "❌"
	default:
		return "❓"
	}
}

func printFactCheck(out io.Writer, report pipeline.FactCheckReport, apply bool) {
	fmt.Fprintf(out, "\n🔎 Fact check: %d claims\n", len(report.Results))
	for _, r := range report.Results {
		fmt.Fprintf(out, "%s %s\n", verdictIcon(r.Verdict), r.Claim)
		if r.Explanation != "" {
			fmt.Fprintf(out, "   %s\n", r.Explanation)
		}
		if r.Correction != "" {
			fmt.Fprintf(out, "   → %s\n", r.Correction)
		}
	}
	switch {
	case report.CorrectedMarkdown == "":
	case apply:
		fmt.Fprintln(out, "\n✅ Corrections applied")
	default:
		fmt.Fprintln(out, "\n💡 Re-run with --apply to use the corrected body")
	}
	printSources(out, report.Sources)
}

// NewAuditCmd creates the audit command
func NewAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <id>",
		Short: "Check whether an article is still up to date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArticleID(args[0])
			if err != nil {
				return err
			}
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			wb, err := ws.workbench(cmd.Context())
			if err != nil {
				return err
			}

			var res pipeline.AuditResult
			err = withSpinner(cmd.ErrOrStderr(), "Auditing", func() (err error) {
				_, res, err = wb.Audit(cmd.Context(), id)
				return err
			})
			if err != nil {
				return err
			}
			printAudit(cmd.OutOrStdout(), id, res)
			return nil
		},
	}
}

func printAudit(out io.Writer, id int64, res pipeline.AuditResult) {
	if res.IsFresh {
		fmt.Fprintln(out, "✅ The article is up to date")
	} else {
		fmt.Fprintln(out, "⚠️  Parts of the article may be out of date")
	}
	for _, s := range res.Suggestions {
		fmt.Fprintf(out, "\n• %s\n", s.Area)
		if s.Reason != "" {
			fmt.Fprintf(out, "  Reason: %s\n", s.Reason)
		}
		fmt.Fprintf(out, "  Suggestion: %s\n", s.SuggestionText)
	}
	if res.ShowEditAffordance() {
		fmt.Fprintf(out, "\n💡 Run 'ghostwriter edit %d' to revise the article with these suggestions\n", id)
	}
	printSources(out, res.Sources)
}

func printSources(out io.Writer, sources []core.Reference) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(out, "\nSources")
	for _, src := range sources {
		title := src.Title
		if title == "" {
			title = src.URI
		}
		fmt.Fprintf(out, "  - %s (%s)\n", title, src.URI)
	}
}
