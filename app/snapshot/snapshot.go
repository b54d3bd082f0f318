package snapshot

import (
	"github.com/lysyi3m/wiki-watch/app/diff"
)

// Snapshot is the last known raw body of one page plus the diff derived from
// the previous body. Exactly one snapshot exists per page; it is overwritten,
// never versioned.
type Snapshot struct {
	PageName  string
	Content   string
	Timestamp string
	Diff      string
}

// Update builds the next snapshot for a page. Diff is empty on the very first
// snapshot (no prior content) and when the bodies are identical line-wise.
func Update(pageName, content string, snapshots map[string]Snapshot, timestamp string) Snapshot {
	var previousContent string
	if previous, ok := snapshots[pageName]; ok {
		previousContent = previous.Content
	}

	return Snapshot{
		PageName:  pageName,
		Content:   content,
		Timestamp: timestamp,
		Diff:      diff.Raw(previousContent, content),
	}
}
