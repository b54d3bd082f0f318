package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/wiki-watch/app/wiki"
)

type fakeClient struct {
	pages      map[string]wiki.PageData
	errs       map[string]error
	delays     map[string]time.Duration
	inFlight   atomic.Int32
	maxFlight  atomic.Int32
	fetchCount atomic.Int32
}

func (c *fakeClient) GetPage(ctx context.Context, name string) (wiki.PageData, error) {
	c.fetchCount.Add(1)
	current := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		observed := c.maxFlight.Load()
		if current <= observed || c.maxFlight.CompareAndSwap(observed, current) {
			break
		}
	}

	if delay, ok := c.delays[name]; ok {
		select {
		case <-ctx.Done():
			return wiki.PageData{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err, ok := c.errs[name]; ok {
		return wiki.PageData{}, err
	}
	return c.pages[name], nil
}

func TestBatchFetchesAllPages(t *testing.T) {
	client := &fakeClient{pages: map[string]wiki.PageData{
		"A": {Page: "A", Source: "body a"},
		"B": {Page: "B", Source: "body b"},
		"C": {Page: "C", Source: "body c"},
	}}

	results := Batch(context.Background(), client, []string{"A", "B", "C"}, time.Second, 2)
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got: %d", len(results))
	}

	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	for _, name := range []string{"A", "B", "C"} {
		r, ok := byName[name]
		if !ok {
			t.Errorf("Expected result for %s", name)
			continue
		}
		if r.Err != nil {
			t.Errorf("Unexpected error for %s: %v", name, r.Err)
		}
	}
}

func TestBatchPerPageErrorIsolated(t *testing.T) {
	client := &fakeClient{
		pages: map[string]wiki.PageData{"OK": {Page: "OK", Source: "body"}},
		errs:  map[string]error{"Broken": errors.New("boom")},
	}

	results := Batch(context.Background(), client, []string{"OK", "Broken"}, time.Second, 2)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got: %d", len(results))
	}

	var okSeen, errSeen bool
	for _, r := range results {
		switch r.Name {
		case "OK":
			okSeen = r.Err == nil
		case "Broken":
			errSeen = r.Err != nil
		}
	}
	if !okSeen {
		t.Error("Expected successful result for OK page")
	}
	if !errSeen {
		t.Error("Expected error result for Broken page")
	}
}

func TestBatchTimeoutOmitsStragglers(t *testing.T) {
	client := &fakeClient{
		pages: map[string]wiki.PageData{
			"Fast": {Page: "Fast", Source: "body"},
			"Slow": {Page: "Slow", Source: "late body"},
		},
		delays: map[string]time.Duration{"Slow": 2 * time.Second},
	}

	results := Batch(context.Background(), client, []string{"Fast", "Slow"}, 100*time.Millisecond, 2)
	if len(results) != 1 {
		t.Fatalf("Expected only the fast page, got: %d results", len(results))
	}
	if results[0].Name != "Fast" {
		t.Errorf("Expected Fast, got: %s", results[0].Name)
	}
}

func TestBatchWorkerBound(t *testing.T) {
	pages := map[string]wiki.PageData{}
	delays := map[string]time.Duration{}
	names := []string{"A", "B", "C", "D", "E", "F"}
	for _, name := range names {
		pages[name] = wiki.PageData{Page: name}
		delays[name] = 20 * time.Millisecond
	}
	client := &fakeClient{pages: pages, delays: delays}

	results := Batch(context.Background(), client, names, time.Second, 2)
	if len(results) != len(names) {
		t.Fatalf("Expected %d results, got: %d", len(names), len(results))
	}
	if got := client.maxFlight.Load(); got > 2 {
		t.Errorf("Expected at most 2 concurrent fetches, observed: %d", got)
	}
}

func TestBatchEmptyInput(t *testing.T) {
	client := &fakeClient{}
	if got := Batch(context.Background(), client, nil, time.Second, 4); got != nil {
		t.Errorf("Expected nil for empty input, got: %v", got)
	}
	if client.fetchCount.Load() != 0 {
		t.Error("Expected no fetches for empty input")
	}
}
