package render

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"ghostwriter/internal/core"
)

// PageOptions adjusts full-page rendering.
type PageOptions struct {
	// Sanitize, when set, is applied to the resolved article body.
	Sanitize func(string) string
}

// Document returns the article markup, computing and caching it on the
// article when the cache is empty.
func Document(a *core.Article) string {
	if a.MarkupCache == "" {
		a.MarkupCache = Markup(a.Markdown)
	}
	return a.MarkupCache
}

// Body returns the article markup with image placeholders resolved.
func Body(a *core.Article) string {
	return Resolve(Document(a), a.ImageMap)
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

func safeColor(c, fallback string) template.CSS {
	if hexColor.MatchString(c) {
		return template.CSS(c)
	}
	return template.CSS(fallback)
}

type pageData struct {
	Article   *core.Article
	Primary   template.CSS
	Text      template.CSS
	Accent    template.CSS
	Style     string
	Cover     template.HTML
	Body      template.HTML
	VideoURL  string
	Scheduled string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Article.Title}}</title>
{{- with .Article.Enhancement.MetaDescription}}
<meta name="description" content="{{.}}">
{{- end}}
<style>
:root { --primary: {{.Primary}}; --text: {{.Text}}; --accent: {{.Accent}}; }
body { color: var(--text); font-family: "Hiragino Sans", "Noto Sans JP", sans-serif; line-height: 1.9; max-width: 760px; margin: 0 auto; padding: 2rem 1rem; }
h1, h2, h3 { color: var(--primary); }
h2 { border-bottom: 3px solid var(--accent); padding-bottom: .3rem; }
a { color: var(--primary); }
.article-image img, .cover img { max-width: 100%; border-radius: 8px; }
.paid-divider { border-top: 2px dashed var(--accent); text-align: center; margin: 2rem 0; }
.paid-divider span { background: #fff; padding: 0 1rem; position: relative; top: -.8rem; color: var(--accent); font-weight: bold; }
.box { border-left: 4px solid var(--primary); background: #f8fafc; padding: .8rem 1rem; margin: 1.5rem 0; }
.box-warning { border-color: #dc2626; } .box-tip { border-color: var(--accent); }
.summary-box { border: 2px solid var(--primary); border-radius: 8px; padding: 1rem; margin: 1.5rem 0; }
.summary-title { font-weight: bold; color: var(--primary); }
.image-error, .chart-error { background: #fef2f2; color: #b91c1c; padding: 1rem; border-radius: 8px; text-align: center; }
.screenshot-instruction { border: 2px dashed #94a3b8; padding: 1rem; border-radius: 8px; }
.source-line { font-size: .85rem; color: #64748b; }
.meta { font-size: .9rem; color: #64748b; }
</style>
</head>
<body>
<article>
<header>
<h1 class="article-title">{{.Article.Title}}</h1>
<p class="meta">{{.Article.CreatedAt.Format "2006-01-02"}}{{with .Style}} · {{.}}{{end}}{{if eq .Article.Type "paid"}} · 有料 {{.Article.Price}}円{{end}}{{with .Scheduled}} · 公開予定 {{.}}{{end}}</p>
</header>
{{- if .Cover}}
<div class="cover">{{.Cover}}</div>
{{- end}}
<div class="article-body">
{{.Body}}
</div>
{{- with .Article.FAQ}}
<section class="faq">
<h2>よくある質問</h2>
{{- range .}}
<details><summary>{{.Question}}</summary><p>{{.Answer}}</p></details>
{{- end}}
</section>
{{- end}}
{{- with .Article.References}}
<section class="references">
<h2>参考文献</h2>
<ol>
{{- range .}}
<li><a href="{{.URI}}" target="_blank" rel="noopener noreferrer">{{if .Title}}{{.Title}}{{else}}{{.URI}}{{end}}</a></li>
{{- end}}
</ol>
</section>
{{- end}}
{{- with .VideoURL}}
<section class="video"><h2>動画</h2><p><a href="{{.}}" target="_blank" rel="noopener noreferrer">生成された動画を見る</a></p></section>
{{- end}}
{{- with .Article.Enhancement}}
{{- if .Hashtags}}
<section class="enhancement">
<p class="hashtags">{{range .Hashtags}}#{{.}} {{end}}</p>
{{- with .ShareText}}<p class="share-text">{{.}}</p>{{end}}
</section>
{{- end}}
{{- end}}
</article>
</body>
</html>
`))

// Page renders a standalone HTML document for the article. Palette colours
// fall back to the defaults when the article has no creative direction.
func Page(a *core.Article, opts PageOptions) (string, error) {
	body := Body(a)
	if opts.Sanitize != nil {
		body = opts.Sanitize(body)
	}

	data := pageData{
		Article: a,
		Primary: safeColor(a.Direction.Primary(), core.DefaultPrimaryColor),
		Text:    safeColor(a.Direction.Text(), core.DefaultTextColor),
		Accent:  safeColor(a.Direction.Accent(), core.DefaultAccentColor),
		Body:    template.HTML(body),
	}
	if a.Direction != nil {
		data.Style = a.Direction.Style
	}
	if cover, ok := a.Cover(); ok {
		data.Cover = template.HTML(AssetElement(cover, a.Title))
	}
	if a.Video != nil && a.Video.Status == core.VideoCompleted {
		data.VideoURL = a.Video.URL
	}
	if a.ScheduledAt != nil {
		data.Scheduled = a.ScheduledAt.Format("2006-01-02 15:04")
	}

	var b strings.Builder
	if err := pageTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render page: %w", err)
	}
	return b.String(), nil
}

// WriteArticleToFile writes rendered content into outputDir and returns the path.
func WriteArticleToFile(content, outputDir, filename string) (string, error) {
	if outputDir == "" {
		outputDir = "articles"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	filePath := filepath.Join(outputDir, filename)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write article file %s: %w", filePath, err)
	}

	return filePath, nil
}
