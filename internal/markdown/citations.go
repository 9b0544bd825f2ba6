// Package markdown provides utilities for the links and citations in article markdown
package markdown

import (
	"strings"

	"ghostwriter/internal/core"
	"ghostwriter/internal/placeholder"
)

// AllowedSet builds the set of URIs a draft is permitted to link to
func AllowedSet(refs []core.Reference) map[string]bool {
	allowed := make(map[string]bool, len(refs))
	for _, r := range refs {
		if r.URI != "" {
			allowed[r.URI] = true
		}
	}
	return allowed
}

// FilterUngroundedLinks demotes every link whose URL is not in allowed to
// its anchor text, byte for byte. Returns the filtered markdown and the
// demoted links.
func FilterUngroundedLinks(md string, allowed map[string]bool) (string, []Link) {
	var demoted []Link
	out := ReplaceLinks(md, func(l Link) string {
		if allowed[l.URL] {
			return l.Raw
		}
		demoted = append(demoted, l)
		return l.Text
	})
	return out, demoted
}

// BuildReferences deduplicates sources by URI in first-seen order and caps
// the list at max entries
func BuildReferences(sources []core.Reference, max int) []core.Reference {
	if max <= 0 {
		max = core.MaxReferences
	}
	seen := make(map[string]bool)
	refs := make([]core.Reference, 0, max)
	for _, s := range sources {
		if s.URI == "" || seen[s.URI] {
			continue
		}
		seen[s.URI] = true
		refs = append(refs, s)
		if len(refs) == max {
			break
		}
	}
	return refs
}

// ReferenceLines returns every 参考URL： line, trimmed, in order
func ReferenceLines(md string) []string {
	var lines []string
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, placeholder.ReferencePrefix) {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// PreservesStructure reports whether rewritten keeps every structural marker
// of original: the paid divider count, every reference line and every
// placeholder. Returns a short description of the first problem found.
func PreservesStructure(original, rewritten string) (bool, string) {
	if strings.Count(original, placeholder.PaidDivider) != strings.Count(rewritten, placeholder.PaidDivider) {
		return false, "paid divider changed"
	}

	kept := make(map[string]int)
	for _, line := range ReferenceLines(rewritten) {
		kept[line]++
	}
	for _, line := range ReferenceLines(original) {
		if kept[line] == 0 {
			return false, "reference line removed: " + line
		}
		kept[line]--
	}

	present := make(map[string]int)
	for _, raw := range placeholder.Raws(rewritten) {
		present[raw]++
	}
	for _, raw := range placeholder.Raws(original) {
		if present[raw] == 0 {
			return false, "placeholder removed: " + raw
		}
		present[raw]--
	}
	return true, ""
}
