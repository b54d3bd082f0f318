package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/lysyi3m/wiki-watch/app/diff"
	"github.com/lysyi3m/wiki-watch/app/discord"
	"github.com/lysyi3m/wiki-watch/app/fetch"
	"github.com/lysyi3m/wiki-watch/app/rss"
	"github.com/lysyi3m/wiki-watch/app/snapshot"
	"github.com/lysyi3m/wiki-watch/app/state"
	"github.com/lysyi3m/wiki-watch/app/wiki"
)

const (
	emojiInitial = "🔔"
	emojiNew     = "🆕"
	emojiUpdate  = "✏️"

	DefaultRecentChangesPage = "RecentChanges"
	DefaultRecentCreatedPage = "RecentCreated"
	DefaultMaxSeenEntries    = 5000
	DefaultBatchTimeout      = 10 * time.Second
)

var defaultClosedMarkers = []string{"* 【終了】", "*【終了】"}

// Watcher runs the change-detection cycle: it decides which pages to check,
// classifies each page's state transition, produces events, delivers them and
// persists the updated state and snapshots.
type Watcher struct {
	cfg           Config
	client        fetch.PageClient
	sink          EventSink
	items         ItemSource
	stateStore    *state.Store
	snapshotStore *snapshot.Store
}

func New(cfg Config, client fetch.PageClient, sink EventSink, items ItemSource,
	stateStore *state.Store, snapshotStore *snapshot.Store) *Watcher {
	if cfg.RecentChangesPage == "" {
		cfg.RecentChangesPage = DefaultRecentChangesPage
	}
	if cfg.RecentCreatedPage == "" {
		cfg.RecentCreatedPage = DefaultRecentCreatedPage
	}
	if len(cfg.ClosedMarkers) == 0 {
		cfg.ClosedMarkers = defaultClosedMarkers
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = fetch.DefaultMaxWorkers
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}
	if cfg.MaxSeenEntries <= 0 {
		cfg.MaxSeenEntries = DefaultMaxSeenEntries
	}

	return &Watcher{
		cfg:           cfg,
		client:        client,
		sink:          sink,
		items:         items,
		stateStore:    stateStore,
		snapshotStore: snapshotStore,
	}
}

// cycle carries the mutable working set of one run. All mutation happens on
// the driving goroutine; fetch workers only return immutable results.
type cycle struct {
	w                *Watcher
	state            state.State
	snapshots        map[string]snapshot.Snapshot
	updatedSnapshots map[string]snapshot.Snapshot
	// Seen timestamps seeded for auto-tracked pages, merged in at save time.
	seenSeeds map[string]string
	// Seen keys (normalized links) claimed by RSS items this cycle.
	rssSeen map[string]string

	events       []discord.Event
	pagesChecked int
	autoTracked  int
}

// RunCycle executes one full change-detection cycle. Snapshots and state are
// persisted only after a successful delivery: a failed send leaves the old
// snapshots on disk, so the next cycle regenerates the same diffs and events.
func (w *Watcher) RunCycle(ctx context.Context) (CycleResult, error) {
	c := &cycle{
		w:                w,
		state:            w.stateStore.Load(),
		snapshots:        w.snapshotStore.LoadAll(),
		updatedSnapshots: make(map[string]snapshot.Snapshot),
		seenSeeds:        make(map[string]string),
		rssSeen:          make(map[string]string),
	}

	c.checkMonitoredPages(ctx)
	c.checkRecentCreated(ctx)
	c.collectFeedItems(ctx)

	if len(c.events) > 0 {
		if _, err := w.sink.SendEvents(ctx, c.events, w.cfg.NotificationHeader); err != nil {
			return c.result(), fmt.Errorf("failed to deliver events: %w", err)
		}
	}

	if len(c.updatedSnapshots) > 0 {
		maps.Copy(c.snapshots, c.updatedSnapshots)
		if err := w.snapshotStore.SaveAll(c.snapshots); err != nil {
			return c.result(), err
		}
	}

	if err := w.saveState(c); err != nil {
		return c.result(), err
	}

	slog.Info("Cycle completed",
		"events", len(c.events),
		"pages_checked", c.pagesChecked,
		"auto_tracked", c.autoTracked,
		"snapshots_updated", len(c.updatedSnapshots))

	return c.result(), nil
}

func (c *cycle) result() CycleResult {
	return CycleResult{
		Events:       len(c.events),
		PagesChecked: c.pagesChecked,
		AutoTracked:  c.autoTracked,
	}
}

// checkMonitoredPages runs the recently-changed feed's own state machine and,
// on a content-significant change, propagates to the monitored pages named in
// the diff's added lines.
func (c *cycle) checkMonitoredPages(ctx context.Context) {
	monitored := c.monitoredSet()
	if len(monitored) == 0 {
		return
	}

	name := c.w.cfg.RecentChangesPage
	data, err := c.w.client.GetPage(ctx, name)
	if err != nil {
		slog.Warn("Failed to fetch recently-changed feed, skipping this cycle", "page", name, "error", err)
		return
	}
	if data.Source == "" {
		return
	}

	key := state.ContentKey(name)
	oldHash := c.state.ContentHashes[key]
	newHash := state.ContentHash(data.Source)
	c.state.ContentHashes[key] = newHash

	if oldHash == "" {
		// First observation of the feed: announce, seed the snapshot, and do
		// not attempt extraction (there is no prior diff).
		c.events = append(c.events, discord.Event{
			Title:     fmt.Sprintf("%s 【%s】 の通知が設定されました。", emojiInitial, name),
			URL:       c.pageURL(name),
			PageName:  name,
			Date:      data.Timestamp,
			IsInitial: true,
		})
		c.updatedSnapshots[name] = snapshot.Update(name, data.Source, c.snapshots, data.Timestamp)
		return
	}

	if oldHash == newHash {
		return
	}

	snap := snapshot.Update(name, data.Source, c.snapshots, data.Timestamp)
	c.updatedSnapshots[name] = snap
	if snap.Diff == "" {
		return
	}

	var toCheck []string
	dedup := make(map[string]struct{})
	for _, pageName := range extractPageNames(addedLines(snap.Diff)) {
		if _, ok := monitored[pageName]; !ok {
			continue
		}
		if _, dup := dedup[pageName]; dup {
			continue
		}
		dedup[pageName] = struct{}{}
		toCheck = append(toCheck, pageName)
	}
	if len(toCheck) == 0 {
		return
	}

	for _, r := range fetch.Batch(ctx, c.w.client, toCheck, c.w.cfg.BatchTimeout, c.w.cfg.MaxWorkers) {
		if r.Err != nil {
			slog.Warn("Failed to fetch page, skipping this cycle", "page", r.Name, "error", r.Err)
			continue
		}
		c.checkFetchedPage(r.Name, r.Data)
	}
}

// checkFetchedPage runs the per-page state machine on one fetched page.
// The content hash and snapshot are refreshed on every fetch with a non-empty
// body, whether or not an event fires.
func (c *cycle) checkFetchedPage(name string, data wiki.PageData) {
	c.pagesChecked++

	event := c.classifyPage(name, data)

	if data.Source != "" {
		if isPageClosed(data.Source, c.w.cfg.ClosedMarkers) {
			if _, tracked := c.state.DynamicMonitoredPages[name]; tracked {
				delete(c.state.DynamicMonitoredPages, name)
				slog.Info("Page closed, removed from dynamic monitoring", "page", name)
			}
		}

		key := state.ContentKey(name)
		oldHash := c.state.ContentHashes[key]
		newHash := state.ContentHash(data.Source)
		c.state.ContentHashes[key] = newHash
		if oldHash != newHash {
			c.updatedSnapshots[name] = snapshot.Update(name, data.Source, c.snapshots, data.Timestamp)
		}
	}

	if event == nil {
		return
	}
	if event.IsInitial {
		c.events = append(c.events, *event)
		return
	}

	snap, ok := c.updatedSnapshots[name]
	if !ok {
		return
	}
	preview := diff.Preview(name, snap.Diff, c.previewOptions())
	if preview == "" {
		// A version bump whose diff evaporates under normalization is not a
		// content-significant change.
		return
	}
	event.DiffPreview = preview
	c.events = append(c.events, *event)
}

// classifyPage decides the page's state transition before this cycle's hash
// refresh is applied.
func (c *cycle) classifyPage(name string, data wiki.PageData) *discord.Event {
	title := data.Page
	if title == "" {
		title = name
	}
	pageURL := c.pageURL(name)

	if _, ok := c.state.ContentHashes[state.ContentKey(name)]; !ok {
		return &discord.Event{
			Title:     fmt.Sprintf("%s 【%s】 の通知が設定されました。", emojiInitial, title),
			URL:       pageURL,
			PageName:  name,
			Date:      data.Timestamp,
			IsInitial: true,
		}
	}

	if data.Timestamp == "" || c.state.Seen[state.PageKey(name)] == data.Timestamp {
		return nil
	}
	if data.Source == "" || !state.HasPageContentChanged(name, data.Source, c.state) {
		return nil
	}

	return &discord.Event{
		Title:    fmt.Sprintf("%s 【%s】 が更新されました。", emojiUpdate, title),
		URL:      pageURL,
		PageName: name,
		Date:     data.Timestamp,
	}
}

// checkRecentCreated watches the recently-created feed and grows the dynamic
// monitored set from page names matching the auto-track patterns.
func (c *cycle) checkRecentCreated(ctx context.Context) {
	if !c.w.cfg.MonitorRecentCreated {
		return
	}

	name := c.w.cfg.RecentCreatedPage
	data, err := c.w.client.GetPage(ctx, name)
	if err != nil {
		slog.Warn("Failed to fetch recently-created feed, skipping this cycle", "page", name, "error", err)
		return
	}

	event := c.classifyPage(name, data)

	if data.Source != "" {
		key := state.ContentKey(name)
		oldHash := c.state.ContentHashes[key]
		newHash := state.ContentHash(data.Source)
		c.state.ContentHashes[key] = newHash
		if oldHash != newHash {
			c.updatedSnapshots[name] = snapshot.Update(name, data.Source, c.snapshots, data.Timestamp)
		}
	}

	if event == nil {
		return
	}
	if event.IsInitial {
		if data.Source != "" {
			c.autoTrackNames(ctx, extractPageNames(data.Source), data.Timestamp, false)
		}
		c.events = append(c.events, *event)
		return
	}

	snap, ok := c.updatedSnapshots[name]
	if !ok || snap.Diff == "" {
		return
	}
	c.autoTrackNames(ctx, extractPageNames(addedLines(snap.Diff)), data.Timestamp, true)
}

// autoTrackNames matches discovered page names against the auto-track
// patterns and registers non-closed matches. With announceCreated set, a
// summary event for all discovered names is emitted as well.
func (c *cycle) autoTrackNames(ctx context.Context, names []string, feedDate string, announceCreated bool) {
	var created, tracked []string
	for _, pageName := range names {
		if announceCreated {
			created = append(created, pageName)
		}
		if !matchesAnyPattern(pageName, c.w.cfg.AutoTrackPatterns) {
			continue
		}
		if c.trackPage(ctx, pageName) {
			tracked = append(tracked, pageName)
		}
	}

	if announceCreated && len(created) > 0 {
		c.events = append(c.events, discord.Event{
			Title:       fmt.Sprintf("%s ページが%d件 新規作成されました", emojiNew, len(created)),
			URL:         c.w.cfg.WikiURL,
			PageName:    c.w.cfg.RecentCreatedPage,
			Date:        feedDate,
			DiffPreview: bulletList(created),
		})
	}
	if len(tracked) > 0 {
		c.autoTracked += len(tracked)
		c.events = append(c.events, discord.Event{
			Title:       fmt.Sprintf("%s ページが%d件 通知登録されました", emojiInitial, len(tracked)),
			URL:         c.w.cfg.WikiURL,
			PageName:    c.w.cfg.RecentCreatedPage,
			Date:        feedDate,
			DiffPreview: bulletList(tracked),
		})
	}
}

// trackPage fetches a candidate page, rejects closed ones, and seeds its
// content hash and seen timestamp so a later generic fetch does not fire a
// first-run event for it.
func (c *cycle) trackPage(ctx context.Context, pageName string) bool {
	if _, already := c.state.DynamicMonitoredPages[pageName]; already {
		return false
	}

	data, err := c.w.client.GetPage(ctx, pageName)
	if err != nil {
		slog.Warn("Failed to check page for auto-tracking", "page", pageName, "error", err)
		return false
	}
	if data.Source == "" || isPageClosed(data.Source, c.w.cfg.ClosedMarkers) {
		return false
	}

	c.state.DynamicMonitoredPages[pageName] = struct{}{}
	c.state.ContentHashes[state.ContentKey(pageName)] = state.ContentHash(data.Source)
	c.seenSeeds[state.PageKey(pageName)] = data.Timestamp

	slog.Info("Auto-tracking page", "page", pageName)
	return true
}

// collectFeedItems turns unseen RSS items into events. Their seen keys are
// the normalized item links, which sit outside the page/ namespace and thus
// survive monitored-set cleanup.
func (c *cycle) collectFeedItems(ctx context.Context) {
	if c.w.items == nil || len(c.w.cfg.RSSURLs) == 0 {
		return
	}

	var newItems []rss.Item
	for _, url := range c.w.cfg.RSSURLs {
		items, err := c.w.items.Fetch(ctx, url)
		if err != nil {
			slog.Warn("Failed to fetch feed, skipping this cycle", "url", url, "error", err)
			continue
		}
		for _, item := range items {
			key := state.NormalizeLink(item.Link)
			if key == "" {
				continue
			}
			if _, seen := c.state.Seen[key]; seen {
				continue
			}
			if _, pending := c.rssSeen[key]; pending {
				continue
			}
			c.rssSeen[key] = item.Date
			newItems = append(newItems, item)
		}
	}

	sort.Slice(newItems, func(i, j int) bool { return newItems[i].Date < newItems[j].Date })
	for _, item := range newItems {
		c.events = append(c.events, discord.Event{
			Title:    item.Title,
			URL:      item.Link,
			PageName: item.Link,
			Date:     item.Date,
		})
	}
}

// saveState applies this cycle's seen updates, drops entries for pages no
// longer monitored, enforces the size cap and persists the result.
func (w *Watcher) saveState(c *cycle) error {
	updatedSeen := make(map[string]string, len(c.state.Seen))
	maps.Copy(updatedSeen, c.state.Seen)

	for _, event := range c.events {
		if _, isFeedItem := c.rssSeen[state.NormalizeLink(event.PageName)]; isFeedItem {
			continue
		}
		updatedSeen[state.PageKey(event.PageName)] = event.Date
	}
	maps.Copy(updatedSeen, c.seenSeeds)
	maps.Copy(updatedSeen, c.rssSeen)

	cleanedSeen, cleanedHashes := cleanMonitoredState(updatedSeen, c.state.ContentHashes, w.cfg, c.state)
	pruneSeen(cleanedSeen, w.cfg.MaxSeenEntries)

	updated := state.State{
		Seen:                  cleanedSeen,
		UpdatedAt:             time.Now().Format(time.RFC3339),
		ContentHashes:         cleanedHashes,
		DynamicMonitoredPages: c.state.DynamicMonitoredPages,
	}
	return w.stateStore.Save(updated)
}

func (c *cycle) monitoredSet() map[string]struct{} {
	monitored := make(map[string]struct{}, len(c.w.cfg.PageNames)+len(c.state.DynamicMonitoredPages))
	for _, name := range c.w.cfg.PageNames {
		monitored[name] = struct{}{}
	}
	for name := range c.state.DynamicMonitoredPages {
		monitored[name] = struct{}{}
	}
	return monitored
}

func (c *cycle) previewOptions() diff.Options {
	return diff.Options{
		MaxChars:            c.w.cfg.PreviewMaxChars,
		SimilarityThreshold: c.w.cfg.SimilarityThreshold,
		FullDiffPages:       c.w.cfg.FullDiffPages,
	}
}

func (c *cycle) pageURL(pageName string) string {
	if c.w.cfg.WikiURL == "" {
		return pageName
	}
	return strings.TrimRight(c.w.cfg.WikiURL, "/") + "/?" + pageName
}
