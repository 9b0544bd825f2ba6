package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const samplePage = `<html><head><title>リモートワーク調査 2025</title></head>
<body>
<nav><p>メニュー</p></nav>
<article>
<h1>調査結果</h1>
<p>回答者の62%が週3日以上在宅勤務をしている。</p>
<script>track()</script>
<ul><li>通勤時間の削減</li><li>集中しやすい</li></ul>
</article>
<footer><p>© example</p></footer>
</body></html>`

func newTestFetcher(limit int) *Fetcher {
	f := NewFetcher(nil, limit)
	f.delay = time.Millisecond
	return f
}

func TestReferenceFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	ref, err := newTestFetcher(0).ReferenceFromURL(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("ReferenceFromURL failed: %v", err)
	}

	if ref.Title != "リモートワーク調査 2025" {
		t.Errorf("Expected page title, got %q", ref.Title)
	}
	if !strings.Contains(ref.Text, "62%") || !strings.Contains(ref.Text, "集中しやすい") {
		t.Errorf("Expected article text, got %q", ref.Text)
	}
	for _, unwanted := range []string{"メニュー", "track()", "© example"} {
		if strings.Contains(ref.Text, unwanted) {
			t.Errorf("Expected %q to be removed, got %q", unwanted, ref.Text)
		}
	}
	if ref.Source != server.URL {
		t.Errorf("Expected source %s, got %s", server.URL, ref.Source)
	}
}

func TestReferenceFromURL_RetriesThenFails(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestFetcher(0).ReferenceFromURL(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for HTTP 500")
	}
	if !strings.Contains(err.Error(), "status code 500") {
		t.Errorf("Expected status code in error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestReferenceFromURL_InvalidURL(t *testing.T) {
	for _, raw := range []string{"not-a-url", "ftp://example.com/file"} {
		if _, err := newTestFetcher(0).ReferenceFromURL(context.Background(), raw); err == nil {
			t.Errorf("Expected error for %q", raw)
		}
	}
}

func TestReferenceTruncated(t *testing.T) {
	page := "<html><body><main><p>" + strings.Repeat("あ", 100) + "</p></main></body></html>"
	ref, err := parseHTML(page, 10)
	if err != nil {
		t.Fatalf("parseHTML failed: %v", err)
	}
	if ref.Text != strings.Repeat("あ", 10)+"..." {
		t.Errorf("Expected truncated text, got %q", ref.Text)
	}
}

func TestExtractTitleFallbacks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"og title", `<html><head><meta property="og:title" content="OG題"></head><body></body></html>`, "OG題"},
		{"h1", `<html><body><h1> 見出し </h1></body></html>`, "見出し"},
		{"none", `<html><body><p>x</p></body></html>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := parseHTML(tt.html, 0)
			if err != nil {
				t.Fatalf("parseHTML failed: %v", err)
			}
			if ref.Title != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, ref.Title)
			}
		})
	}
}

func TestReferenceFromFile(t *testing.T) {
	dir := t.TempDir()
	textFile := filepath.Join(dir, "memo.md")
	htmlFile := filepath.Join(dir, "page.html")
	_ = os.WriteFile(textFile, []byte("  メモの内容\n"), 0644)
	_ = os.WriteFile(htmlFile, []byte(samplePage), 0644)

	ref, err := ReferenceFromFile(textFile, 0)
	if err != nil {
		t.Fatalf("ReferenceFromFile failed: %v", err)
	}
	if ref.Text != "メモの内容" || ref.Title != "memo" {
		t.Errorf("Unexpected text reference: %+v", ref)
	}

	ref, err = ReferenceFromFile(htmlFile, 0)
	if err != nil {
		t.Fatalf("ReferenceFromFile failed: %v", err)
	}
	if !strings.Contains(ref.Text, "62%") || strings.Contains(ref.Text, "<p>") {
		t.Errorf("Expected readable HTML text, got %q", ref.Text)
	}

	if _, err := ReferenceFromFile(filepath.Join(dir, "missing.txt"), 0); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestCombine(t *testing.T) {
	got := Combine(
		Reference{Source: "a.md", Title: "A", Text: "本文A"},
		Reference{Source: "empty", Text: "  "},
		Reference{Source: "https://b", Text: "本文B"},
	)
	want := "# A (a.md)\n\n本文A\n\n# https://b\n\n本文B"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
