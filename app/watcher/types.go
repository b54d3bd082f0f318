package watcher

import (
	"context"
	"regexp"
	"time"

	"github.com/lysyi3m/wiki-watch/app/discord"
	"github.com/lysyi3m/wiki-watch/app/rss"
)

// Config is the immutable per-deployment configuration handed to the watcher
// at construction. No ambient globals: everything the cycle needs is here.
type Config struct {
	// Public URL of the wiki, used to build page links in notifications.
	WikiURL string

	// Statically configured page names to monitor.
	PageNames []string

	// Auto-track patterns, matched against page names discovered in the
	// recently-created feed. Anchored at the start of the name.
	AutoTrackPatterns []*regexp.Regexp

	// Page names (case-insensitive) whose previews skip near-duplicate
	// suppression.
	FullDiffPages map[string]struct{}

	// RSS/Atom feed URLs used as an additional discovery source.
	RSSURLs []string

	// Meta-pages.
	MonitorRecentCreated bool
	RecentChangesPage    string
	RecentCreatedPage    string

	// A page whose first non-blank line starts with one of these markers is
	// considered closed and leaves the dynamic monitored set.
	ClosedMarkers []string

	// Fetch batching.
	MaxWorkers   int
	BatchTimeout time.Duration

	// Diff preview policy.
	PreviewMaxChars     int
	SimilarityThreshold float64

	// Seen-map size cap; oldest-by-timestamp entries are dropped first.
	MaxSeenEntries int

	// Optional header prepended to the first message of each batch.
	NotificationHeader string
}

// EventSink delivers an ordered batch of events, one message per event.
type EventSink interface {
	SendEvents(ctx context.Context, events []discord.Event, header string) ([]discord.DeliveryResult, error)
}

// ItemSource retrieves feed items for the RSS discovery flow.
type ItemSource interface {
	Fetch(ctx context.Context, url string) ([]rss.Item, error)
}

// CycleResult summarizes one completed cycle.
type CycleResult struct {
	Events       int
	PagesChecked int
	AutoTracked  int
}
