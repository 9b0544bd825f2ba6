package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"ghostwriter/internal/core"
	"ghostwriter/internal/render"

	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved articles, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			articles, err := ws.library.List(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := ws.store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			printArticleList(cmd.OutOrStdout(), articles, stats.HistoryLimit)
			return nil
		},
	}
}

func printArticleList(out io.Writer, articles []*core.Article, limit int) {
	if len(articles) == 0 {
		fmt.Fprintln(out, "No saved articles yet")
		fmt.Fprintln(out, "💡 Use 'ghostwriter generate' to create one")
		return
	}

	fmt.Fprintf(out, "\n📄 Saved Articles (%d/%d)\n", len(articles), limit)
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════════════")
	fmt.Fprintf(out, "%-14s  %-12s  %-5s  %-30s  %s\n", "ID", "Date", "Type", "Title", "Status")
	fmt.Fprintln(out, "───────────────────────────────────────────────────────────────────")
	for _, a := range articles {
		fmt.Fprintf(out, "%-14d  %-12s  %-5s  %-30s  %s\n",
			a.ID, a.CreatedAt.Format("Jan 02, 2006"), a.Type, clip(a.Title, 30), articleStatus(a))
	}
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════════════")
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func articleStatus(a *core.Article) string {
	var parts []string
	if a.ScheduledAt != nil {
		parts = append(parts, "scheduled "+a.ScheduledAt.Format("01/02 15:04"))
	}
	if a.FactCheck.Status == core.FactCheckChecked {
		parts = append(parts, "fact-checked")
	}
	if a.LastAuditedAt != nil {
		parts = append(parts, "audited")
	}
	if a.Video != nil {
		parts = append(parts, "video "+string(a.Video.Status))
	}
	return strings.Join(parts, ", ")
}

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	var outDir string
	var markdown bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved article",
		Long: `Show a saved article.

By default the markdown body and its metadata are printed. With --out the
article is rendered as a standalone HTML page into the given directory.`,
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

			a, err := ws.library.Load(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outDir == "" {
				if markdown {
					fmt.Fprintln(out, a.Markdown)
					return nil
				}
				printArticle(out, a)
				return nil
			}

			page, err := render.Page(a, render.PageOptions{})
			if err != nil {
				return err
			}
			path, err := render.WriteArticleToFile(page, outDir, fmt.Sprintf("article-%d.html", a.ID))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✅ Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Render the page as HTML into this directory")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print only the markdown body")
	return cmd
}

func printArticle(out io.Writer, a *core.Article) {
	fmt.Fprintf(out, "# %s\n\n", a.Title)
	fmt.Fprintf(out, "ID: %d | Type: %s | Created: %s\n", a.ID, a.Type, a.CreatedAt.Format(time.RFC3339))
	if status := articleStatus(a); status != "" {
		fmt.Fprintf(out, "Status: %s\n", status)
	}
	fmt.Fprintln(out, "\n"+a.Markdown)

	if len(a.References) > 0 {
		fmt.Fprintln(out, "\nReferences")
		for i, r := range a.References {
			fmt.Fprintf(out, "%d. %s %s\n", i+1, r.Title, r.URI)
		}
	}
	if e := a.Enhancement; !e.IsEmpty() {
		if len(e.TitleSuggestions) > 0 {
			fmt.Fprintf(out, "\nTitle ideas: %s\n", strings.Join(e.TitleSuggestions, " / "))
		}
		if len(e.Hashtags) > 0 {
			fmt.Fprintf(out, "Hashtags: #%s\n", strings.Join(e.Hashtags, " #"))
		}
		if e.ShareText != "" {
			fmt.Fprintf(out, "Share text: %s\n", e.ShareText)
		}
	}
	if p := a.Performance; p != nil {
		fmt.Fprintf(out, "\nPredicted score: %d/100 (%d predicted views)\n", p.Score, p.PredictedViews)
		if p.Actual != nil {
			fmt.Fprintf(out, "Actual: %d views / %d likes / %d comments\n", p.Actual.Views, p.Actual.Likes, p.Actual.Comments)
		}
	}
}

// NewEditCmd creates the edit command
func NewEditCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an article's markdown body",
		Long: `Edit an article's markdown body.

Without --file the body opens in $EDITOR (cli.editor). Suggestions from the
last audit are shown in a comment block at the top, which is removed on save.
With --file the body is replaced by the file's contents.`,
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

			body, changed, err := editedBody(cmd.Context(), ws, id, file, runEditor)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintf(cmd.OutOrStdout(), "No changes to article %d\n", id)
				return nil
			}

			wb := ws.offlineWorkbench()
			if _, err := wb.Edit(cmd.Context(), id, body); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Updated article %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Markdown file with the new body")
	return cmd
}

func editedBody(ctx context.Context, ws *workspace, id int64, file string, run editorRunner) (string, bool, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read %s: %w", file, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", false, fmt.Errorf("%s is empty", file)
		}
		return string(data), true, nil
	}

	a, err := ws.library.Load(ctx, id)
	if err != nil {
		return "", false, err
	}
	return editInEditor(ctx, run, ws.cfg.CLI.Editor, a)
}

// NewScheduleCmd creates the schedule command
func NewScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <id> <RFC3339 time>",
		Short: "Set the planned publication time",
		Example: `  ghostwriter schedule 1735689600000 2025-01-10T09:00:00+09:00`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArticleID(args[0])
			if err != nil {
				return err
			}
			at, err := time.Parse(time.RFC3339, args[1])
			if err != nil {
				return fmt.Errorf("invalid time %q, expected RFC3339: %w", args[1], err)
			}

			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			wb := ws.offlineWorkbench()
			if _, err := wb.Schedule(cmd.Context(), id, at); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "📅 Article %d scheduled for %s\n", id, at.Format(time.RFC3339))
			return nil
		},
	}
}

// NewPerfCmd creates the perf command
func NewPerfCmd() *cobra.Command {
	var views, likes, comments int

	cmd := &cobra.Command{
		Use:   "perf <id>",
		Short: "Record actual performance numbers",
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

			wb := ws.offlineWorkbench()
			a, err := wb.RecordPerformance(cmd.Context(), id, views, likes, comments)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ Recorded performance for article %d\n", id)
			if a.Performance.PredictedViews > 0 {
				fmt.Fprintf(out, "   Views: %d (predicted %d)\n", views, a.Performance.PredictedViews)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&views, "views", 0, "Page views")
	cmd.Flags().IntVar(&likes, "likes", 0, "Likes")
	cmd.Flags().IntVar(&comments, "comments", 0, "Comments")
	return cmd
}

// NewDeleteCmd creates the delete command
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an article and its images",
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

			if err := ws.library.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted article %d\n", id)
			return nil
		},
	}
}
