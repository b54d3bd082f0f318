package tasks

import (
	"context"

	"github.com/lysyi3m/wiki-watch/app/watcher"
)

// CycleRunner is implemented by the watcher and executed by the Runner on
// every tick.
// Example usage:
//
//	runner := NewRunner(watcher)
//	runner.Start()
//	defer runner.Stop()
//	runner.TriggerImmediate()
type CycleRunner interface {
	RunCycle(ctx context.Context) (watcher.CycleResult, error)
}
