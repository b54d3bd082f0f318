package diff

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

var (
	wikiLinkLabelRe = regexp.MustCompile(`\[\[([^>\]]+)>[^\]]*\]\]`)
	wikiLinkRe      = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	markdownLinkRe  = regexp.MustCompile(`\[([^\]]*)\]\((?:https?|ftp)://[^)]*\)`)
	bareURLRe       = regexp.MustCompile(`https?://[^\s>]+`)
	// A markdown link token kept atomic during truncation.
	markdownTokenRe = regexp.MustCompile(`^\[[^\]]*\]\([^)]*\)`)
)

// Options control how a stored diff is condensed into a one-line preview.
type Options struct {
	MaxChars            int
	SimilarityThreshold float64
	// Lowercased page names for which near-duplicate suppression is skipped.
	FullDiffPages map[string]struct{}
}

// Preview condenses a snapshot's raw diff into a single bounded line suitable
// for a notification message. Returns "" when nothing content-meaningful
// survives normalization.
func Preview(pageName, raw string, opts Options) string {
	if raw == "" {
		return ""
	}

	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	threshold := opts.SimilarityThreshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	applySuppression := true
	if _, ok := opts.FullDiffPages[strings.ToLower(pageName)]; ok {
		applySuppression = false
	}

	display := Display(raw, applySuppression, threshold)
	if display == "" {
		return ""
	}

	display = StripLinks(display)
	firstLine, _, _ := strings.Cut(display, "\n")

	return TruncateWidth(strings.TrimSpace(firstLine), maxChars)
}

// StripLinks rewrites wiki links, markdown links and bare URLs into their
// plain-text labels.
func StripLinks(s string) string {
	s = wikiLinkLabelRe.ReplaceAllString(s, "$1")
	s = wikiLinkRe.ReplaceAllString(s, "$1")
	s = markdownLinkRe.ReplaceAllString(s, "$1")
	s = bareURLRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// TruncateWidth cuts s to at most maxWidth display columns, counting wide
// (CJK) runes as two. A markdown link token is never split: it is emitted
// whole and does not consume the budget.
func TruncateWidth(s string, maxWidth int) string {
	var b strings.Builder
	width := 0

	for i := 0; i < len(s); {
		if loc := markdownTokenRe.FindStringIndex(s[i:]); loc != nil {
			b.WriteString(s[i : i+loc[1]])
			i += loc[1]
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		w := runewidth.RuneWidth(r)
		if width+w > maxWidth {
			break
		}
		b.WriteRune(r)
		width += w
		i += size
	}

	return strings.TrimSpace(b.String())
}
