// Package render turns article markdown with placeholders into HTML.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"ghostwriter/internal/markdown"
	"ghostwriter/internal/placeholder"
)

const (
	sentinel       = "\x00"
	inlineSentinel = "\x01"
)

var (
	sentinelPattern = regexp.MustCompile("\x00(\\d+)\x00")
	inlinePattern   = regexp.MustCompile("\x01(\\d+)\x01")
	sentinelLine    = regexp.MustCompile("^\x00\\d+\x00$")

	boldPattern   = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	italicPattern = regexp.MustCompile(`\*([^\s*][^*\n]*?)\*`)
	h3Pattern     = regexp.MustCompile(`(?m)^###[ \t]+(.+?)[ \t]*$`)
	h2Pattern     = regexp.MustCompile(`(?m)^##[ \t]+(.+?)[ \t]*$`)
	h1Pattern     = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t]*$`)
	codePattern   = regexp.MustCompile("`([^`\n]+)`")
	ulItemPattern = regexp.MustCompile(`^\s*[-*+][ \t]+(.+)$`)
	olItemPattern = regexp.MustCompile(`^\s*\d+[.)][ \t]+(.+)$`)
	blockStart    = regexp.MustCompile(`^</?(?:h[1-6]|ul|ol|li|div|aside|figure|hr|section|blockquote|pre|table)[\s>/]`)
	emptyPara     = regexp.MustCompile(`<p>\s*</p>\n?`)
)

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

var boxIcons = map[string]string{
	"tip":     "💡",
	"info":    "ℹ️",
	"warning": "⚠️",
	"quote":   "💬",
}

// ChartErrorBlock replaces a chart whose JSON cannot be parsed.
const ChartErrorBlock = `<div class="chart-error">グラフデータを読み込めませんでした</div>`

// Markup converts article markdown to HTML. The passes run in a fixed order
// and the result depends only on md. Keyed image placeholder elements are
// left empty for Resolve.
func Markup(md string) string {
	r := &renderer{}

	text := strings.ReplaceAll(md, "\r\n", "\n")
	text = strings.ReplaceAll(text, sentinel, "")
	text = strings.ReplaceAll(text, inlineSentinel, "")
	text = r.protect(text)
	text = r.protectLinks(text)
	text = textEscaper.Replace(text)
	text = emphasis(text)
	text = dividers(text)
	text = headings(text)
	text = inlineCode(text)
	text = lists(text)
	text = paragraphs(text)
	return r.restore(text)
}

// renderer holds block elements and anchors pulled out of the text while
// the line passes run, so their attributes and payloads are never
// reformatted.
type renderer struct {
	blocks []string
}

func (r *renderer) stash(block string) string {
	r.blocks = append(r.blocks, block)
	return "\n" + sentinel + strconv.Itoa(len(r.blocks)-1) + sentinel + "\n"
}

func (r *renderer) restore(text string) string {
	text = r.restoreWith(sentinelPattern, sentinel, text)
	return r.restoreWith(inlinePattern, inlineSentinel, text)
}

func (r *renderer) restoreWith(pattern *regexp.Regexp, marker, text string) string {
	return pattern.ReplaceAllStringFunc(text, func(s string) string {
		i, err := strconv.Atoi(strings.Trim(s, marker))
		if err != nil || i >= len(r.blocks) {
			return ""
		}
		return r.blocks[i]
	})
}

// protectLinks replaces inline links with anchors kept on the same line.
func (r *renderer) protectLinks(text string) string {
	return markdown.ReplaceLinks(text, func(l markdown.Link) string {
		r.blocks = append(r.blocks, anchor(l))
		return inlineSentinel + strconv.Itoa(len(r.blocks)-1) + inlineSentinel
	})
}

// protect replaces chart, image, screenshot, box and summary placeholders
// with their block elements before escaping.
func (r *renderer) protect(md string) string {
	matches := placeholder.Find(md)
	if len(matches) == 0 {
		return md
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(md[last:m.Start])
		b.WriteString(r.stash(element(m)))
		last = m.End
	}
	b.WriteString(md[last:])
	return b.String()
}

func element(m placeholder.Match) string {
	switch m.Tag {
	case placeholder.TagChart:
		return chartElement(m.Payload)
	case placeholder.TagImage, placeholder.TagScreenshot:
		return fmt.Sprintf(`<div class="image-placeholder" data-key="%s"></div>`, placeholder.EncodeKey(m.Raw))
	case placeholder.TagBox:
		return boxElement(m.Payload)
	case placeholder.TagSummary:
		return summaryElement(m.Payload)
	}
	return ""
}

type chartSpec struct {
	Type  string          `json:"type"`
	Title string          `json:"title"`
	Data  json.RawMessage `json:"data"`
}

func chartElement(payload string) string {
	var spec chartSpec
	if err := json.Unmarshal([]byte(payload), &spec); err != nil || len(spec.Data) == 0 {
		return ChartErrorBlock
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(payload)); err != nil {
		return ChartErrorBlock
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="chart-container" data-chart="%s">`, html.EscapeString(compact.String()))
	if spec.Title != "" {
		fmt.Fprintf(&b, `<div class="chart-title">%s</div>`, textEscaper.Replace(spec.Title))
	}
	b.WriteString(`<canvas></canvas></div>`)
	return b.String()
}

// boxElement renders type:title:body; extra colons belong to the body.
func boxElement(payload string) string {
	parts := strings.Split(payload, ":")
	kind := strings.ToLower(strings.TrimSpace(parts[0]))
	icon, ok := boxIcons[kind]
	if !ok {
		kind, icon = "info", boxIcons["info"]
	}
	title, body := "", ""
	if len(parts) > 1 {
		title = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		body = strings.TrimSpace(strings.Join(parts[2:], ":"))
	}
	return fmt.Sprintf(`<aside class="box box-%s"><div class="box-title">%s %s</div><div class="box-body">%s</div></aside>`,
		kind, icon, inline(title), inline(body))
}

func summaryElement(payload string) string {
	var b strings.Builder
	b.WriteString(`<div class="summary-box"><div class="summary-title">まとめ</div><ul>`)
	for _, item := range strings.Split(payload, ";") {
		if item = strings.TrimSpace(item); item != "" {
			b.WriteString("<li>" + inline(item) + "</li>")
		}
	}
	b.WriteString(`</ul></div>`)
	return b.String()
}

// inline applies the inline passes to text inside a callout block.
func inline(s string) string {
	var b strings.Builder
	last := 0
	for _, l := range markdown.FindLinks(s) {
		b.WriteString(inlineText(s[last:l.Start]))
		b.WriteString(anchor(l))
		last = l.End
	}
	b.WriteString(inlineText(s[last:]))
	return b.String()
}

func inlineText(s string) string {
	return inlineCode(emphasis(textEscaper.Replace(s)))
}

func emphasis(text string) string {
	text = boldPattern.ReplaceAllString(text, "<strong>$1</strong>")
	return italicPattern.ReplaceAllString(text, "<em>$1</em>")
}

func dividers(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch strings.TrimSpace(line) {
		case placeholder.PaidDivider:
			lines[i] = `<div class="paid-divider"><span>ここから有料</span></div>`
		case "---", "***", "___":
			lines[i] = "<hr>"
		}
	}
	return strings.Join(lines, "\n")
}

func headings(text string) string {
	text = h3Pattern.ReplaceAllString(text, "<h3>$1</h3>")
	text = h2Pattern.ReplaceAllString(text, "<h2>$1</h2>")
	return h1Pattern.ReplaceAllString(text, "<h1>$1</h1>")
}

func inlineCode(text string) string {
	return codePattern.ReplaceAllString(text, "<code>$1</code>")
}

func safeHref(href string) bool {
	lower := strings.ToLower(href)
	for _, prefix := range []string{"https://", "http://", "mailto:", "/", "#"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// anchor renders a link; unsafe schemes keep only the anchor text.
func anchor(l markdown.Link) string {
	text := inlineText(l.Text)
	if !safeHref(l.URL) {
		return text
	}
	title := ""
	if l.Title != "" {
		title = fmt.Sprintf(` title="%s"`, textEscaper.Replace(l.Title))
	}
	return fmt.Sprintf(`<a href="%s"%s target="_blank" rel="noopener noreferrer">%s</a>`, textEscaper.Replace(l.URL), title, text)
}

func listItem(line string) (kind, item string) {
	if m := ulItemPattern.FindStringSubmatch(line); m != nil {
		return "ul", m[1]
	}
	if m := olItemPattern.FindStringSubmatch(line); m != nil {
		return "ol", m[1]
	}
	return "", ""
}

// lists wraps runs of list lines. Runs of the same kind separated only by
// blank lines are merged into one list.
func lists(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); {
		kind, _ := listItem(lines[i])
		if kind == "" {
			out = append(out, lines[i])
			i++
			continue
		}

		out = append(out, "<"+kind+">")
		for i < len(lines) {
			k, item := listItem(lines[i])
			if k == kind {
				out = append(out, "<li>"+item+"</li>")
				i++
				continue
			}
			if strings.TrimSpace(lines[i]) == "" {
				j := i
				for j < len(lines) && strings.TrimSpace(lines[j]) == "" {
					j++
				}
				if j < len(lines) {
					if next, _ := listItem(lines[j]); next == kind {
						i = j
						continue
					}
				}
			}
			break
		}
		out = append(out, "</"+kind+">")
	}
	return strings.Join(out, "\n")
}

// paragraphs wraps prose lines. Consecutive prose lines form one paragraph
// joined by <br>; block elements and reference lines stand alone.
func paragraphs(text string) string {
	var (
		out  []string
		para []string
	)
	flush := func() {
		if len(para) > 0 {
			out = append(out, "<p>"+strings.Join(para, "<br>")+"</p>")
			para = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flush()
		case sentinelLine.MatchString(trimmed) || blockStart.MatchString(trimmed) || trimmed == "<hr>":
			flush()
			out = append(out, trimmed)
		case strings.HasPrefix(trimmed, placeholder.ReferencePrefix):
			flush()
			out = append(out, `<p class="source-line">`+trimmed+"</p>")
		default:
			para = append(para, trimmed)
		}
	}
	flush()

	return strings.TrimSpace(emptyPara.ReplaceAllString(strings.Join(out, "\n"), ""))
}
