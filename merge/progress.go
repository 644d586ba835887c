package merge

import (
	"log/slog"
	"time"
)

// ProgressTracker logs merge progress every reportInterval reviews.
// The total is unknown while streaming so only counts and rate are reported.
// A tracker belongs to a single merge loop and is not safe for concurrent use.
type ProgressTracker struct {
	logger         *slog.Logger
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
}

// NewProgressTracker creates a tracker. An interval of zero or less disables reporting.
func NewProgressTracker(logger *slog.Logger, reportInterval int) *ProgressTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressTracker{
		logger:         logger,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.startTime = time.Now()
	p.started = true
	p.lastReported = 0
}

// Update records the current counters and reports when an interval boundary is crossed.
func (p *ProgressTracker) Update(read, merged, skipped int) {
	if !p.started || p.reportInterval <= 0 {
		return
	}

	if read-p.lastReported >= p.reportInterval {
		p.report("merge progress", read, merged, skipped)
		p.lastReported = read
	}
}

// Finish logs the final counters.
func (p *ProgressTracker) Finish(read, merged, skipped int) {
	if !p.started {
		return
	}
	p.report("merge finished", read, merged, skipped)
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

func (p *ProgressTracker) report(msg string, read, merged, skipped int) {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(read) / secs
	}

	p.logger.Info(msg,
		"read", read,
		"merged", merged,
		"skipped", skipped,
		"reviews_per_sec", rate,
		"elapsed", elapsed.Round(time.Millisecond))
}
