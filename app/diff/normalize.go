package diff

import (
	"regexp"
	"strings"
)

var (
	// Inline plugin macros: &name(args); or &name(args){content};
	// The name may be separated from & by whitespace, as seen in the wild.
	inlineMacroRe = regexp.MustCompile(`&\s*[A-Za-z_][A-Za-z0-9_]*\([^)]*\)(?:\{([^}]*)\})?;?`)
	lineBreakRe   = regexp.MustCompile(`&br;`)
	underlineRe   = regexp.MustCompile(`%%%([^%]+)%%%`)
	strikeRe      = regexp.MustCompile(`%%([^%]+)%%`)
	braceRe       = regexp.MustCompile(`\{([^}]*)\}`)
	anchorRe      = regexp.MustCompile(`\s*\[#[^\]]*\]\s*$`)
)

// NormalizeLine maps one diff line's content (marker already stripped) to its
// cleaned, markup-free form. Returns "" when the line carries nothing a human
// reader should see in a change preview.
func NormalizeLine(content string) string {
	s := strings.TrimSpace(content)

	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "//"):
		return ""
	case strings.HasPrefix(s, "|"):
		return ""
	case s == "#br" || s == "#br;":
		return ""
	case strings.HasPrefix(s, "#"):
		return ""
	}

	// List bullet markers come off before any macro handling, so that a
	// nested "--& macro(...);" still reduces to an empty line.
	for strings.HasPrefix(s, "-") {
		s = strings.TrimSpace(strings.TrimLeft(s, "-"))
	}
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "''", "")
	s = inlineMacroRe.ReplaceAllString(s, "$1")
	s = lineBreakRe.ReplaceAllString(s, "")
	s = underlineRe.ReplaceAllString(s, "__${1}__")
	s = strikeRe.ReplaceAllString(s, "~~${1}~~")
	s = braceRe.ReplaceAllString(s, "$1")
	s = anchorRe.ReplaceAllString(s, "")

	for strings.HasPrefix(s, "*") {
		s = strings.TrimSpace(strings.TrimLeft(s, "*"))
	}

	return strings.TrimSpace(s)
}
