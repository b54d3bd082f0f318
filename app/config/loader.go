package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultRecentChangesPage = "RecentChanges"
	defaultRecentCreatedPage = "RecentCreated"
)

var defaultClosedMarkers = []string{"* 【終了】", "*【終了】"}

// Loader reads and validates the watch list file.
type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads the watch list. A missing file is not an error: monitoring then
// runs on environment-provided pages alone.
func (l *Loader) Load() (*WatchConfig, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		slog.Warn("Watch list file not found, using defaults", "path", l.path)
		config := &WatchConfig{}
		l.setDefaults(config)
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read watch list: %w", err)
	}

	var config WatchConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse watch list: %w", err)
	}

	l.setDefaults(&config)
	if err := l.validate(&config); err != nil {
		return nil, fmt.Errorf("invalid watch list %s: %w", l.path, err)
	}

	slog.Info("Watch list loaded", "path", l.path,
		"pages", len(config.Pages),
		"auto_track_patterns", len(config.AutoTrackPatterns),
		"rss_urls", len(config.RSSURLs))

	return &config, nil
}

func (l *Loader) setDefaults(config *WatchConfig) {
	if config.RecentChangesPage == "" {
		config.RecentChangesPage = defaultRecentChangesPage
	}
	if config.RecentCreatedPage == "" {
		config.RecentCreatedPage = defaultRecentCreatedPage
	}
	if len(config.ClosedMarkers) == 0 {
		config.ClosedMarkers = defaultClosedMarkers
	}
}

func (l *Loader) validate(config *WatchConfig) error {
	for i, pattern := range config.AutoTrackPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid auto-track pattern at index %d: %w", i, err)
		}
	}
	for i, url := range config.RSSURLs {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return fmt.Errorf("invalid RSS URL at index %d: %s", i, url)
		}
	}
	return nil
}

// ShouldMonitorRecentCreated resolves the optional flag, which defaults to on.
func (c *WatchConfig) ShouldMonitorRecentCreated() bool {
	if c.MonitorRecentCreated == nil {
		return true
	}
	return *c.MonitorRecentCreated
}

// CompiledPatterns returns the auto-track patterns anchored at the start of
// the page name.
func (c *WatchConfig) CompiledPatterns() ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(c.AutoTrackPatterns))
	for _, pattern := range c.AutoTrackPatterns {
		re, err := regexp.Compile("^(?:" + pattern + ")")
		if err != nil {
			return nil, fmt.Errorf("invalid auto-track pattern %q: %w", pattern, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

// FullDiffSet returns the full-diff page names lowercased for case
// insensitive lookup.
func (c *WatchConfig) FullDiffSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.FullDiffPages))
	for _, name := range c.FullDiffPages {
		set[strings.ToLower(name)] = struct{}{}
	}
	return set
}
