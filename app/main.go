package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lysyi3m/wiki-watch/app/api"
	"github.com/lysyi3m/wiki-watch/app/cfg"
	"github.com/lysyi3m/wiki-watch/app/config"
	"github.com/lysyi3m/wiki-watch/app/discord"
	"github.com/lysyi3m/wiki-watch/app/rss"
	"github.com/lysyi3m/wiki-watch/app/snapshot"
	"github.com/lysyi3m/wiki-watch/app/state"
	"github.com/lysyi3m/wiki-watch/app/tasks"
	"github.com/lysyi3m/wiki-watch/app/watcher"
	"github.com/lysyi3m/wiki-watch/app/wiki"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Wiki Watch", "version", appCfg.Version, "wiki", appCfg.WikiID)

	watchConfig, err := config.NewLoader(appCfg.WatchConfigPath).Load()
	if err != nil {
		slog.Error("Failed to load watch list", "error", err)
		os.Exit(1)
	}

	patterns, err := watchConfig.CompiledPatterns()
	if err != nil {
		slog.Error("Failed to compile auto-track patterns", "error", err)
		os.Exit(1)
	}

	pageNames := mergePageNames(watchConfig.Pages, appCfg.PageNames)
	slog.Info("Monitoring configured", "pages", len(pageNames),
		"auto_track_patterns", len(patterns), "rss_urls", len(watchConfig.RSSURLs))

	wikiClient := wiki.NewClient(wiki.Config{
		WikiID:  appCfg.WikiID,
		BaseURL: appCfg.APIBaseURL,
	}, appCfg.APIKeyID, appCfg.APISecret, appCfg.UserAgent)

	webhookClient := discord.NewWebhookClient(appCfg.DiscordWebhookURL)
	rssFetcher := rss.NewFetcher(appCfg.UserAgent)

	stateStore := state.NewStore(appCfg.StatePath)
	snapshotStore := snapshot.NewStore(appCfg.SnapshotsPath)

	w := watcher.New(watcher.Config{
		WikiURL:              appCfg.WikiURL,
		PageNames:            pageNames,
		AutoTrackPatterns:    patterns,
		FullDiffPages:        watchConfig.FullDiffSet(),
		RSSURLs:              watchConfig.RSSURLs,
		MonitorRecentCreated: watchConfig.ShouldMonitorRecentCreated(),
		RecentChangesPage:    watchConfig.RecentChangesPage,
		RecentCreatedPage:    watchConfig.RecentCreatedPage,
		ClosedMarkers:        watchConfig.ClosedMarkers,
		MaxWorkers:           appCfg.WorkerCount,
		BatchTimeout:         time.Duration(appCfg.FetchTimeout) * time.Second,
		PreviewMaxChars:      appCfg.PreviewMaxChars,
		SimilarityThreshold:  appCfg.SimilarityThreshold,
		MaxSeenEntries:       appCfg.MaxSeenEntries,
		NotificationHeader:   appCfg.NotificationHeader,
	}, wikiClient, webhookClient, rssFetcher, stateStore, snapshotStore)

	if appCfg.RunOnce {
		result, err := w.RunCycle(context.Background())
		if err != nil {
			slog.Error("Cycle failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Cycle finished", "events", result.Events,
			"pages_checked", result.PagesChecked, "auto_tracked", result.AutoTracked)
		return
	}

	runner := tasks.NewRunner(w, time.Duration(appCfg.CycleInterval)*time.Second)
	runner.Start()
	defer runner.Stop()

	apiHandler := api.NewHandler(stateStore, runner, pageNames, appCfg.Version)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Runner is stopped via defer
	slog.Info("Shutdown complete")
}

// mergePageNames combines the watch list pages with environment-provided ones,
// preserving order and dropping duplicates.
func mergePageNames(fromConfig, fromEnv []string) []string {
	seen := make(map[string]struct{}, len(fromConfig)+len(fromEnv))
	var merged []string
	for _, name := range append(append([]string{}, fromConfig...), fromEnv...) {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		merged = append(merged, name)
	}
	return merged
}
