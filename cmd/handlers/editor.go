package handlers

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"ghostwriter/internal/core"
)

const (
	suggestionHeaderStart = "<!-- ghostwriter:suggestions"
	suggestionHeaderEnd   = "-->"
	defaultEditor         = "vi"
)

// editSeed returns the editor buffer for an article: the pending audit
// suggestions as a comment header, then the markdown body.
func editSeed(a *core.Article) string {
	if len(a.AuditSuggestions) == 0 {
		return a.Markdown
	}

	var b strings.Builder
	b.WriteString(suggestionHeaderStart + "\n")
	b.WriteString("Audit suggestions. This block is removed when you save.\n")
	for _, s := range a.AuditSuggestions {
		fmt.Fprintf(&b, "\n- %s\n", sanitizeComment(s.Area))
		if s.Reason != "" {
			fmt.Fprintf(&b, "  Reason: %s\n", sanitizeComment(s.Reason))
		}
		fmt.Fprintf(&b, "  Suggestion: %s\n", sanitizeComment(s.SuggestionText))
	}
	b.WriteString(suggestionHeaderEnd + "\n\n")
	b.WriteString(a.Markdown)
	return b.String()
}

// sanitizeComment keeps model text from closing the header early.
func sanitizeComment(s string) string {
	return strings.ReplaceAll(s, "-->", "-- >")
}

// stripSuggestionHeader removes a leading suggestion header, if present.
func stripSuggestionHeader(text string) string {
	trimmed := strings.TrimLeft(text, " \t\r\n")
	if !strings.HasPrefix(trimmed, suggestionHeaderStart) {
		return text
	}
	end := strings.Index(trimmed, suggestionHeaderEnd)
	if end < 0 {
		return text
	}
	return strings.TrimLeft(trimmed[end+len(suggestionHeaderEnd):], "\r\n")
}

// editorRunner opens path in an editor and returns when the editor exits.
type editorRunner func(ctx context.Context, editor, path string) error

func runEditor(ctx context.Context, editor, path string) error {
	fields := strings.Fields(editor)
	if len(fields) == 0 {
		fields = []string{defaultEditor}
	}
	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// editInEditor seeds a temp file for the article, runs the editor on it and
// returns the edited body with the suggestion header removed. changed is
// false when the body came back identical.
func editInEditor(ctx context.Context, run editorRunner, editor string, a *core.Article) (body string, changed bool, err error) {
	f, err := os.CreateTemp("", fmt.Sprintf("ghostwriter-%d-*.md", a.ID))
	if err != nil {
		return "", false, fmt.Errorf("failed to create edit file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(editSeed(a)); err != nil {
		f.Close()
		return "", false, fmt.Errorf("failed to write edit file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", false, fmt.Errorf("failed to write edit file: %w", err)
	}

	if err := run(ctx, editor, path); err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("failed to read edit file: %w", err)
	}
	body = stripSuggestionHeader(string(data))
	if strings.TrimSpace(body) == "" {
		return "", false, fmt.Errorf("edited article is empty")
	}
	return body, body != a.Markdown, nil
}
