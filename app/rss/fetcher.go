package rss

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
)

// Item is one feed entry reduced to what the watcher needs.
type Item struct {
	Title string
	Link  string
	Date  string
}

// Fetcher retrieves and parses RSS/Atom feeds.
type Fetcher struct {
	parser *gofeed.Parser
}

func NewFetcher(userAgent string) *Fetcher {
	parser := gofeed.NewParser()
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	return &Fetcher{parser: parser}
}

// Fetch returns the feed's items in document order.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]Item, error) {
	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %q: %w", url, err)
	}

	items := make([]Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil || entry.Link == "" {
			continue
		}
		items = append(items, Item{
			Title: entry.Title,
			Link:  entry.Link,
			Date:  itemDate(entry),
		})
	}
	return items, nil
}

func itemDate(entry *gofeed.Item) string {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC().Format(time.RFC3339)
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC().Format(time.RFC3339)
	}
	return entry.Published
}
