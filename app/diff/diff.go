package diff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	DefaultMaxChars            = 80
	DefaultSimilarityThreshold = 0.9
)

// Raw computes a line-based unified-style diff between two page bodies.
// Returns "" when previous is empty (nothing to diff against) or when the
// bodies are identical.
func Raw(previous, current string) string {
	if previous == "" {
		return ""
	}

	a := splitLines(previous)
	b := splitLines(current)
	matcher := difflib.NewMatcher(a, b)

	var out []string
	for _, group := range matcher.GetGroupedOpCodes(3) {
		first := group[0]
		last := group[len(group)-1]
		out = append(out, fmt.Sprintf("@@ -%d,%d +%d,%d @@",
			first.I1+1, last.I2-first.I1, first.J1+1, last.J2-first.J1))

		for _, op := range group {
			if op.Tag == 'e' {
				for _, line := range a[op.I1:op.I2] {
					out = append(out, " "+line)
				}
				continue
			}
			if op.Tag == 'r' || op.Tag == 'd' {
				for _, line := range a[op.I1:op.I2] {
					out = append(out, "-"+line)
				}
			}
			if op.Tag == 'r' || op.Tag == 'i' {
				for _, line := range b[op.J1:op.J2] {
					out = append(out, "+"+line)
				}
			}
		}
	}

	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n")
}

// Parse collects the normalized contents of the removed and added lines of a
// raw diff, in original order. File headers ("---", "+++") are ignored.
func Parse(raw string) (removed []string, added []string) {
	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+"):
			if cleaned := NormalizeLine(line[1:]); cleaned != "" {
				added = append(added, cleaned)
			}
		case strings.HasPrefix(line, "-"):
			if cleaned := NormalizeLine(line[1:]); cleaned != "" {
				removed = append(removed, cleaned)
			}
		}
	}
	return removed, added
}

// SuppressNearDuplicateEdits drops added lines that are close rewordings of
// removed lines. An added line is considered a re-edit when its similarity to
// any removed line reaches the threshold. With no removed lines everything
// passes through unchanged.
func SuppressNearDuplicateEdits(removed, added []string, threshold float64) []string {
	if len(removed) == 0 {
		return added
	}

	kept := make([]string, 0, len(added))
	for _, addedLine := range added {
		isEdit := false
		for _, removedLine := range removed {
			if similarity(addedLine, removedLine) >= threshold {
				isEdit = true
				break
			}
		}
		if !isEdit {
			kept = append(kept, addedLine)
		}
	}
	return kept
}

// Display renders the human-facing view of a raw diff: the normalized added
// lines, optionally with near-duplicate edits suppressed. Returns "" when
// nothing survives.
func Display(raw string, applySuppression bool, threshold float64) string {
	removed, added := Parse(raw)
	if applySuppression {
		added = SuppressNearDuplicateEdits(removed, added, threshold)
	}
	if len(added) == 0 {
		return ""
	}
	return strings.Join(added, "\n")
}

// similarity is the ratio of the total matching-block length to the length of
// the shorter string, computed rune-wise. Symmetric, in 0..1.
func similarity(a, b string) float64 {
	ar := runeStrings(a)
	br := runeStrings(b)
	if len(ar) == 0 || len(br) == 0 {
		return 0
	}

	matched := 0
	for _, block := range difflib.NewMatcher(ar, br).GetMatchingBlocks() {
		matched += block.Size
	}

	return float64(matched) / float64(min(len(ar), len(br)))
}

func runeStrings(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
