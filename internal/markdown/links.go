package markdown

import "strings"

// Link represents a markdown link extracted from text
type Link struct {
	Text    string // Anchor text exactly as written
	URL     string // Destination without angle brackets or title
	Title   string // Optional link title
	Raw     string // Full "[text](url)" source
	Start   int    // Byte offset of the opening bracket
	End     int    // Byte offset just past the closing parenthesis
	Context string // Surrounding text (for logs)
}

// FindLinks returns every inline link in md in source order. Anchor text may
// nest brackets, so citation markers like [[1]](url) are recognised.
// Destinations may contain balanced parentheses or be wrapped in <...>, and
// may be followed by a "title", 'title' or (title).
func FindLinks(md string) []Link {
	var links []Link
	for i := 0; i < len(md); i++ {
		if md[i] != '[' {
			continue
		}
		l, ok := parseLink(md, i)
		if !ok {
			continue
		}
		l.Context = extractContext(md, l.Start, l.End)
		links = append(links, l)
		i = l.End - 1
	}
	return links
}

// ReplaceLinks calls fn for every link in md and splices its result in place
// of the link source. Text outside links is passed through unchanged.
func ReplaceLinks(md string, fn func(Link) string) string {
	links := FindLinks(md)
	if len(links) == 0 {
		return md
	}
	var b strings.Builder
	last := 0
	for _, l := range links {
		b.WriteString(md[last:l.Start])
		b.WriteString(fn(l))
		last = l.End
	}
	b.WriteString(md[last:])
	return b.String()
}

func parseLink(md string, start int) (Link, bool) {
	textEnd, ok := closeBracket(md, start)
	if !ok || textEnd == start+1 || textEnd+1 >= len(md) || md[textEnd+1] != '(' {
		return Link{}, false
	}

	p := skipBlanks(md, textEnd+2)
	url, p, ok := destination(md, p)
	if !ok {
		return Link{}, false
	}

	var title string
	if q := skipBlanks(md, p); q > p && q < len(md) {
		if t, next, ok := linkTitle(md, q); ok {
			title, p = t, next
		}
	}
	p = skipBlanks(md, p)
	if p >= len(md) || md[p] != ')' {
		return Link{}, false
	}

	return Link{
		Text:  md[start+1 : textEnd],
		URL:   url,
		Title: title,
		Raw:   md[start : p+1],
		Start: start,
		End:   p + 1,
	}, true
}

// closeBracket returns the ']' balancing the '[' at start on the same line.
func closeBracket(md string, start int) (int, bool) {
	depth := 0
	for j := start; j < len(md); j++ {
		switch md[j] {
		case '\\':
			j++
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return j, true
			}
		case '\n':
			return 0, false
		}
	}
	return 0, false
}

func destination(md string, p int) (string, int, bool) {
	if p >= len(md) {
		return "", p, false
	}
	if md[p] == '<' {
		for j := p + 1; j < len(md); j++ {
			switch md[j] {
			case '>':
				return md[p+1 : j], j + 1, true
			case '<', '\n':
				return "", p, false
			}
		}
		return "", p, false
	}

	depth := 0
	j := p
loop:
	for ; j < len(md); j++ {
		c := md[j]
		switch {
		case c == '\\' && j+1 < len(md):
			j++
		case c == '(':
			depth++
		case c == ')':
			if depth == 0 {
				break loop
			}
			depth--
		case c <= ' ':
			break loop
		}
	}
	if j == p || depth != 0 {
		return "", p, false
	}
	return md[p:j], j, true
}

func linkTitle(md string, p int) (string, int, bool) {
	closer := md[p]
	switch closer {
	case '"', '\'':
	case '(':
		closer = ')'
	default:
		return "", p, false
	}
	for j := p + 1; j < len(md); j++ {
		switch md[j] {
		case '\\':
			j++
		case closer:
			return md[p+1 : j], j + 1, true
		case '\n':
			return "", p, false
		}
	}
	return "", p, false
}

func skipBlanks(md string, p int) int {
	for p < len(md) && (md[p] == ' ' || md[p] == '\t') {
		p++
	}
	return p
}

// extractContext returns up to 40 runes on either side of a span
func extractContext(text string, start, end int) string {
	before := []rune(text[:start])
	after := []rune(text[end:])
	if len(before) > 40 {
		before = before[len(before)-40:]
	}
	if len(after) > 40 {
		after = after[:40]
	}
	return strings.TrimSpace(string(before) + text[start:end] + string(after))
}
