// Package fetch imports reference material for the outline and draft
// stages from web pages and local files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"ghostwriter/internal/retry"
	"ghostwriter/internal/textutil"

	"github.com/PuerkitoBio/goquery"
)

// DefaultLimit bounds the text kept from one reference, in characters.
const DefaultLimit = 15000

const maxBodyBytes = 5 << 20

var blankLines = regexp.MustCompile(`\n{3,}`)

// Reference is readable text taken from a page or file.
type Reference struct {
	Source string
	Title  string
	Text   string
}

// Fetcher downloads reference pages.
type Fetcher struct {
	client   *http.Client
	limit    int
	attempts int
	delay    time.Duration
}

// NewFetcher creates a fetcher. limit <= 0 uses DefaultLimit.
func NewFetcher(client *http.Client, limit int) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Fetcher{client: client, limit: limit, attempts: retry.DefaultAttempts, delay: retry.DefaultBaseDelay}
}

// ReferenceFromURL downloads an http(s) page and extracts its readable text.
func (f *Fetcher) ReferenceFromURL(ctx context.Context, rawURL string) (Reference, error) {
	parsed, err := url.ParseRequestURI(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return Reference{}, fmt.Errorf("invalid reference URL %q", rawURL)
	}

	body, err := retry.Value(ctx, f.attempts, f.delay, func(ctx context.Context) (string, error) {
		return f.get(ctx, rawURL)
	})
	if err != nil {
		return Reference{}, err
	}

	ref, err := parseHTML(body, f.limit)
	if err != nil {
		return Reference{}, fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}
	ref.Source = rawURL
	return ref, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "ghostwriter/1.0 (+reference import)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL %s: status code %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body from %s: %w", rawURL, err)
	}
	return string(data), nil
}

// ReferenceFromFile reads a local reference. HTML files are reduced to
// their readable text; anything else is used as is.
func ReferenceFromFile(path string, limit int) (Reference, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Reference{}, fmt.Errorf("failed to read reference file %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".html" || ext == ".htm" {
		ref, err := parseHTML(string(data), limit)
		if err != nil {
			return Reference{}, err
		}
		ref.Source = path
		return ref, nil
	}

	return Reference{
		Source: path,
		Title:  strings.TrimSuffix(filepath.Base(path), ext),
		Text:   textutil.Truncate(strings.TrimSpace(string(data)), limit),
	}, nil
}

func parseHTML(htmlContent string, limit int) (Reference, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return Reference{}, err
	}
	title := extractTitle(doc)

	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, #sidebar, .ad, .advertisement, .cookie-banner").Remove()

	mainContentSelectors := []string{
		"article", "main", ".entry-content", ".post-content", ".article-body",
		"[role='main']",
		".content", "#content",
	}

	var text string
	for _, selector := range mainContentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			if text = blockText(sel); text != "" {
				break
			}
		}
	}
	if text == "" {
		text = blockText(doc.Find("body"))
	}

	return Reference{Title: title, Text: textutil.Truncate(text, limit)}, nil
}

// blockText joins the text of leaf block elements with blank lines.
func blockText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").Each(func(_ int, item *goquery.Selection) {
		t := strings.TrimSpace(item.Text())
		if t == "" {
			return
		}
		b.WriteString(t)
		b.WriteString("\n\n")
	})
	return strings.TrimSpace(blankLines.ReplaceAllString(b.String(), "\n\n"))
}

// extractTitle tries the title tag, then OpenGraph, then the first h1.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if ogTitle, _ := doc.Find("meta[property='og:title']").Attr("content"); strings.TrimSpace(ogTitle) != "" {
		return strings.TrimSpace(ogTitle)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// Combine formats references as one block of reference text.
func Combine(refs ...Reference) string {
	var parts []string
	for _, r := range refs {
		if strings.TrimSpace(r.Text) == "" {
			continue
		}
		header := r.Source
		if r.Title != "" {
			header = r.Title + " (" + r.Source + ")"
		}
		parts = append(parts, "# "+header+"\n\n"+r.Text)
	}
	return strings.Join(parts, "\n\n")
}
