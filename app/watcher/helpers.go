package watcher

import (
	"regexp"
	"sort"
	"strings"

	"github.com/lysyi3m/wiki-watch/app/state"
)

var pageLinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

// extractPageNames pulls [[PageName]] link targets out of wiki text, in
// order of appearance.
func extractPageNames(content string) []string {
	var names []string
	for _, match := range pageLinkRe.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(match[1])
		if idx := strings.Index(name, ">"); idx >= 0 {
			name = strings.TrimSpace(name[idx+1:])
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// addedLines returns only the added side of a unified diff, joined back into
// one text block.
func addedLines(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			lines = append(lines, line[1:])
		}
	}
	return strings.Join(lines, "\n")
}

// isPageClosed reports whether the page's first non-blank line is one of the
// closure markers.
func isPageClosed(content string, markers []string) bool {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		for _, marker := range markers {
			if trimmed == strings.TrimSpace(marker) {
				return true
			}
		}
		return false
	}
	return false
}

func matchesAnyPattern(pageName string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(pageName) {
			return true
		}
	}
	return false
}

// cleanMonitoredState drops page/ and content_ entries for pages that are no
// longer monitored. Keys outside those namespaces (feed item links) are kept
// untouched.
func cleanMonitoredState(seen map[string]string, hashes map[string]string, cfg Config, st state.State) (map[string]string, map[string]string) {
	keepPage := make(map[string]struct{}, len(cfg.PageNames)+len(st.DynamicMonitoredPages)+2)
	for _, name := range cfg.PageNames {
		keepPage[name] = struct{}{}
	}
	for name := range st.DynamicMonitoredPages {
		keepPage[name] = struct{}{}
	}
	// Meta-page keys stay only while the flow reading them is active: the
	// recently-changed feed needs a monitored set, the recently-created feed
	// needs its flag.
	if len(keepPage) > 0 {
		keepPage[cfg.RecentChangesPage] = struct{}{}
	}
	if cfg.MonitorRecentCreated {
		keepPage[cfg.RecentCreatedPage] = struct{}{}
	}

	cleanedSeen := make(map[string]string, len(seen))
	for key, value := range seen {
		if name, ok := strings.CutPrefix(key, "page/"); ok {
			if _, keep := keepPage[name]; !keep {
				continue
			}
		}
		cleanedSeen[key] = value
	}

	cleanedHashes := make(map[string]string, len(hashes))
	for key, value := range hashes {
		if name, ok := strings.CutPrefix(key, "content_"); ok {
			if _, keep := keepPage[name]; !keep {
				continue
			}
		}
		cleanedHashes[key] = value
	}
	return cleanedSeen, cleanedHashes
}

// pruneSeen evicts the oldest entries in place until at most maxEntries
// remain. Entries are ordered by timestamp value, with the key as tiebreaker.
func pruneSeen(seen map[string]string, maxEntries int) {
	if len(seen) <= maxEntries {
		return
	}

	type entry struct {
		key   string
		value string
	}
	entries := make([]entry, 0, len(seen))
	for k, v := range seen {
		entries = append(entries, entry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].value != entries[j].value {
			return entries[i].value < entries[j].value
		}
		return entries[i].key < entries[j].key
	})

	for _, e := range entries[:len(entries)-maxEntries] {
		delete(seen, e.key)
	}
}

func bulletList(names []string) string {
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("・" + name)
	}
	return b.String()
}
