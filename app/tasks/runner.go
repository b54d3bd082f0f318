package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner drives the change-detection cycle on a fixed interval. Cycles never
// overlap: the loop goroutine runs them one at a time, and manual triggers
// received while a cycle is in flight fold into the next run.
type Runner struct {
	cycleRunner  CycleRunner
	interval     time.Duration
	cycleTimeout time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	trigger chan struct{}

	mu            sync.Mutex
	stats         Stats
	totalDuration time.Duration
}

// Stats is a point-in-time snapshot of the runner's counters.
type Stats struct {
	CyclesCompleted int       `json:"cycles_completed"`
	CyclesFailed    int       `json:"cycles_failed"`
	EventsEmitted   int       `json:"events_emitted"`
	PagesChecked    int       `json:"pages_checked"`
	AutoTracked     int       `json:"auto_tracked"`
	LastRunAt       time.Time `json:"last_run_at"`
	LastRunDuration string    `json:"last_run_duration"`
	AvgRunDuration  string    `json:"avg_run_duration"`
	LastError       string    `json:"last_error,omitempty"`
}

func NewRunner(cycleRunner CycleRunner, interval time.Duration) *Runner {
	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		cycleRunner:  cycleRunner,
		interval:     interval,
		cycleTimeout: 5 * time.Minute,
		ctx:          ctx,
		cancel:       cancel,
		trigger:      make(chan struct{}, 1),
	}
}

func (r *Runner) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.runCycle()

		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				r.runCycle()
			case <-r.trigger:
				r.runCycle()
			}
		}
	}()
}

func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
}

// TriggerImmediate requests an out-of-schedule cycle. Returns false when a
// trigger is already pending.
func (r *Runner) TriggerImmediate() bool {
	select {
	case r.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (r *Runner) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *Runner) runCycle() {
	cycleCtx, cancel := context.WithTimeout(r.ctx, r.cycleTimeout)
	defer cancel()

	started := time.Now()
	result, err := r.cycleRunner.RunCycle(cycleCtx)
	duration := time.Since(started)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.LastRunAt = started
	r.stats.LastRunDuration = duration.Round(time.Millisecond).String()
	r.totalDuration += duration
	runs := r.stats.CyclesCompleted + r.stats.CyclesFailed + 1
	r.stats.AvgRunDuration = (r.totalDuration / time.Duration(runs)).Round(time.Millisecond).String()
	r.stats.EventsEmitted += result.Events
	r.stats.PagesChecked += result.PagesChecked
	r.stats.AutoTracked += result.AutoTracked

	if err != nil {
		r.stats.CyclesFailed++
		r.stats.LastError = err.Error()
		slog.Error("Cycle failed", "duration", duration.Round(time.Millisecond).String(), "error", err)
		return
	}

	r.stats.CyclesCompleted++
	r.stats.LastError = ""
}
