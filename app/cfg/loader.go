package cfg

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Wiki API configuration
	WikiID     string `long:"wiki-id" env:"WIKIWIKI_ID" description:"Wiki identifier (required)" required:"true"`
	WikiURL    string `long:"wiki-url" env:"WIKIWIKI_URL" description:"Public wiki base URL used in notification links (e.g., https://wikiwiki.jp/example)"`
	APIBaseURL string `long:"api-base-url" env:"WIKIWIKI_API_BASE_URL" default:"https://api.wikiwiki.jp" description:"Wiki API base URL"`
	APIKeyID   string `long:"api-key-id" env:"WIKIWIKI_API_KEY_ID" description:"Wiki API key ID (required)" required:"true"`
	APISecret  string `long:"api-secret" env:"WIKIWIKI_API_SECRET" description:"Wiki API secret (required)" required:"true"`

	// Notification configuration
	DiscordWebhookURL  string `long:"discord-webhook-url" env:"DISCORD_WEBHOOK_URL" description:"Discord webhook URL (required)" required:"true"`
	NotificationHeader string `long:"notification-header" env:"NOTIFICATION_HEADER" description:"Optional header line prepended to the first notification message"`

	// Application configuration
	PageNames           string  `long:"page-names" env:"WIKIWIKI_PAGE_NAMES" description:"Comma-separated page names to monitor, merged with the watch list"`
	WatchConfigPath     string  `long:"watch-config" env:"WATCH_CONFIG" default:"watch.yml" description:"Path to the watch list YAML file"`
	StatePath           string  `long:"state-path" env:"STATE_PATH" default:"state.json" description:"Path to the persisted seen-state file"`
	SnapshotsPath       string  `long:"snapshots-path" env:"SNAPSHOTS_PATH" default:".snapshots/snapshots.json" description:"Path to the persisted page snapshots file"`
	Port                string  `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount         int     `long:"worker-count" env:"WORKER_COUNT" default:"8" description:"Number of concurrent page fetch workers"`
	CycleInterval       int     `long:"cycle-interval" env:"CYCLE_INTERVAL" default:"300" description:"Seconds between change-detection cycles"`
	FetchTimeout        int     `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"10" description:"Per-batch page fetch timeout in seconds"`
	PreviewMaxChars     int     `long:"preview-max-chars" env:"PREVIEW_MAX_CHARS" default:"80" description:"Maximum display width of a diff preview"`
	SimilarityThreshold float64 `long:"similarity-threshold" env:"SIMILARITY_THRESHOLD" default:"0.9" description:"Similarity at which a reworded line is suppressed from previews"`
	MaxSeenEntries      int     `long:"max-seen-entries" env:"MAX_SEEN_ENTRIES" default:"5000" description:"Maximum entries kept in the seen map"`
	APIAccessKey        string  `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	RunOnce             bool    `long:"once" description:"Run a single change-detection cycle and exit"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Wiki Watch/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"Asia/Tokyo" description:"Timezone for timestamps (e.g., Asia/Tokyo, UTC)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		WikiID:              raw.WikiID,
		WikiURL:             raw.WikiURL,
		APIBaseURL:          raw.APIBaseURL,
		APIKeyID:            raw.APIKeyID,
		APISecret:           raw.APISecret,
		DiscordWebhookURL:   raw.DiscordWebhookURL,
		NotificationHeader:  raw.NotificationHeader,
		PageNames:           splitPageNames(raw.PageNames),
		WatchConfigPath:     raw.WatchConfigPath,
		StatePath:           raw.StatePath,
		SnapshotsPath:       raw.SnapshotsPath,
		Port:                raw.Port,
		WorkerCount:         raw.WorkerCount,
		CycleInterval:       raw.CycleInterval,
		FetchTimeout:        raw.FetchTimeout,
		PreviewMaxChars:     raw.PreviewMaxChars,
		SimilarityThreshold: raw.SimilarityThreshold,
		MaxSeenEntries:      raw.MaxSeenEntries,
		APIAccessKey:        raw.APIAccessKey,
		RunOnce:             raw.RunOnce,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if cfg.WikiURL == "" {
		cfg.WikiURL = "https://wikiwiki.jp/" + cfg.WikiID
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func splitPageNames(raw string) []string {
	if raw == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
