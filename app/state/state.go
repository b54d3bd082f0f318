package state

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// State tracks which pages have been notified about, the hash of each page's
// last fetched body, and the pages discovered through auto-tracking. It is
// owned by a single cycle at a time: loaded once, mutated in memory, written
// back once.
type State struct {
	Seen                  map[string]string
	UpdatedAt             string
	ContentHashes         map[string]string
	DynamicMonitoredPages map[string]struct{}
}

// New returns an empty State with all maps initialized.
func New() State {
	return State{
		Seen:                  make(map[string]string),
		ContentHashes:         make(map[string]string),
		DynamicMonitoredPages: make(map[string]struct{}),
	}
}

// NormalizeLink normalizes a link or page path for use as a state key.
func NormalizeLink(link string) string {
	return strings.TrimRight(strings.TrimSpace(link), "/")
}

// PageKey is the seen-map key for a page name.
func PageKey(pageName string) string {
	return NormalizeLink("page/" + pageName)
}

// ContentKey is the content-hash key for a page name.
func ContentKey(pageName string) string {
	return "content_" + pageName
}

// ContentHash returns the MD5 digest of a raw page body, or "" for an empty
// body. The digest is always taken over the raw body, never a normalized one.
func ContentHash(content string) string {
	if content == "" {
		return ""
	}
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// HasPageContentChanged reports whether the page's body differs from the last
// one recorded in the state. A page with no recorded hash counts as changed.
func HasPageContentChanged(pageName, content string, st State) bool {
	if content == "" {
		return false
	}
	stored, ok := st.ContentHashes[ContentKey(pageName)]
	return !ok || stored != ContentHash(content)
}
