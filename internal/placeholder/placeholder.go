// Package placeholder scans the bracket-tag tokens the decoration stage embeds
// in article markdown.
package placeholder

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"ghostwriter/internal/core"
)

// Tag is the type tag of a bracket placeholder.
type Tag string

const (
	TagImage      Tag = "IMAGE_GENERATE"
	TagScreenshot Tag = "IMAGE_SCREENSHOT"
	TagChart      Tag = "INTERACTIVE_CHART"
	TagBox        Tag = "BOX"
	TagSummary    Tag = "SUMMARY"
)

// AllTags lists every placeholder tag in scanning priority order.
var AllTags = []Tag{TagImage, TagScreenshot, TagChart, TagBox, TagSummary}

// PaidDivider splits the free and paid sections of a paid article.
const PaidDivider = "---ここから有料---"

// ReferencePrefix starts a section-trailing citation line.
const ReferencePrefix = "参考URL："

// Match is one placeholder occurrence.
type Match struct {
	Tag     Tag
	Start   int    // Byte offset of '['
	End     int    // Byte offset just past ']'
	Raw     string // Exact source substring
	Payload string // Text between "TAG:" and the closing ']'
}

func jsonPayload(tag Tag) bool {
	return tag == TagImage || tag == TagScreenshot || tag == TagChart
}

// Find returns every occurrence of the given tags (all tags when none are
// given) in source order. Matches never overlap.
func Find(md string, tags ...Tag) []Match {
	if len(tags) == 0 {
		tags = AllTags
	}

	var matches []Match
	i := 0
	for i < len(md) {
		open := strings.IndexByte(md[i:], '[')
		if open < 0 {
			break
		}
		start := i + open
		m, ok := matchAt(md, start, tags)
		if !ok {
			i = start + 1
			continue
		}
		matches = append(matches, m)
		i = m.End
	}
	return matches
}

func matchAt(md string, start int, tags []Tag) (Match, bool) {
	for _, tag := range tags {
		prefix := "[" + string(tag) + ":"
		if !strings.HasPrefix(md[start:], prefix) {
			continue
		}
		payloadStart := start + len(prefix)
		var closing int
		if jsonPayload(tag) {
			closing = scanJSONPayload(md, payloadStart)
		} else {
			closing = scanLinePayload(md, payloadStart)
		}
		if closing < 0 {
			return Match{}, false
		}
		return Match{
			Tag:     tag,
			Start:   start,
			End:     closing + 1,
			Raw:     md[start : closing+1],
			Payload: md[payloadStart:closing],
		}, true
	}
	return Match{}, false
}

// scanJSONPayload returns the index of the ']' closing a JSON payload that
// starts at p. Braces and brackets are balanced and string literals skipped,
// so "]" inside a JSON string does not end the placeholder. Payloads that
// never balance fall back to the first "}]".
func scanJSONPayload(md string, p int) int {
	if p >= len(md) || md[p] != '{' {
		return scanLinePayload(md, p)
	}

	depth := 0
	inString := false
	escaped := false
	for j := p; j < len(md); j++ {
		c := md[j]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				k := j + 1
				for k < len(md) && (md[k] == ' ' || md[k] == '\t') {
					k++
				}
				if k < len(md) && md[k] == ']' {
					return k
				}
				return fallbackClose(md, p)
			}
			if depth < 0 {
				return fallbackClose(md, p)
			}
		}
	}
	return fallbackClose(md, p)
}

func fallbackClose(md string, p int) int {
	if idx := strings.Index(md[p:], "}]"); idx >= 0 {
		return p + idx + 1
	}
	return -1
}

// scanLinePayload returns the ']' closing a line payload. Nested brackets on
// the same line are balanced, so a markdown link inside a box body stays in
// the payload. Unbalanced lines fall back to the first ']'.
func scanLinePayload(md string, p int) int {
	depth := 0
	first := -1
	for j := p; j < len(md); j++ {
		switch md[j] {
		case '[':
			depth++
		case ']':
			if first < 0 {
				first = j
			}
			if depth == 0 {
				return j
			}
			depth--
		case '\n':
			return first
		}
	}
	return first
}

type imagePayload struct {
	Prompt      string `json:"prompt"`
	OverlayText string `json:"overlayText"`
}

type screenshotPayload struct {
	Instruction string `json:"instruction"`
}

// ParseImage decodes an IMAGE_GENERATE payload.
func ParseImage(payload string) (prompt, overlay string, err error) {
	var p imagePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", "", err
	}
	return p.Prompt, p.OverlayText, nil
}

// ImageTasks returns one task per distinct IMAGE_GENERATE placeholder, in
// order of first appearance. A payload that is not valid JSON produces a task
// with an empty prompt so image resolution records it as an error.
func ImageTasks(md string) []core.ImageTask {
	var tasks []core.ImageTask
	seen := make(map[string]bool)
	for _, m := range Find(md, TagImage) {
		if seen[m.Raw] {
			continue
		}
		seen[m.Raw] = true
		prompt, overlay, err := ParseImage(m.Payload)
		if err != nil {
			prompt, overlay = "", ""
		}
		tasks = append(tasks, core.ImageTask{Key: m.Raw, Prompt: prompt, OverlayText: overlay})
	}
	return tasks
}

// Screenshots maps every IMAGE_SCREENSHOT placeholder to its instruction.
// Unparseable payloads keep the raw payload as the instruction.
func Screenshots(md string) map[string]string {
	out := make(map[string]string)
	for _, m := range Find(md, TagScreenshot) {
		var p screenshotPayload
		if err := json.Unmarshal([]byte(m.Payload), &p); err != nil || p.Instruction == "" {
			out[m.Raw] = strings.Trim(m.Payload, "{} ")
			continue
		}
		out[m.Raw] = p.Instruction
	}
	return out
}

// Strip removes every placeholder so analysis prompts only see prose.
func Strip(md string) string {
	matches := Find(md)
	if len(matches) == 0 {
		return md
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(md[last:m.Start])
		last = m.End
	}
	b.WriteString(md[last:])
	return b.String()
}

// Raws returns the raw text of every placeholder, used to check that a
// rewrite kept them all.
func Raws(md string) []string {
	matches := Find(md)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Raw
	}
	return out
}

// EncodeKey turns placeholder text into an attribute-safe token.
func EncodeKey(raw string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeKey reverses EncodeKey byte for byte.
func DecodeKey(key string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
