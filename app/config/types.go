package config

// WatchConfig is the YAML watch list: which pages to check, which feeds to
// mirror, and how newly created pages are picked up.
type WatchConfig struct {
	Pages             []string `yaml:"pages"`
	AutoTrackPatterns []string `yaml:"auto_track_patterns"`
	FullDiffPages     []string `yaml:"full_diff_pages"`
	RSSURLs           []string `yaml:"rss_urls"`

	MonitorRecentCreated *bool  `yaml:"monitor_recent_created"`
	RecentChangesPage    string `yaml:"recent_changes_page"`
	RecentCreatedPage    string `yaml:"recent_created_page"`

	ClosedMarkers []string `yaml:"closed_markers"`
}
