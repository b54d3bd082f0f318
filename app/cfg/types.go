package cfg

type Cfg struct {
	// Wiki API configuration
	WikiID     string
	WikiURL    string
	APIBaseURL string
	APIKeyID   string
	APISecret  string

	// Notification configuration
	DiscordWebhookURL  string
	NotificationHeader string

	// Application configuration
	PageNames           []string
	WatchConfigPath     string
	StatePath           string
	SnapshotsPath       string
	Port                string
	WorkerCount         int
	CycleInterval       int
	FetchTimeout        int
	PreviewMaxChars     int
	SimilarityThreshold float64
	MaxSeenEntries      int
	APIAccessKey        string
	RunOnce             bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
