package reindex

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports how many documents have been re-embedded.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	documents      int
	points         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a tracker for total documents that reports
// every reportInterval documents. A nil writer disables output.
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	if writer == nil {
		writer = io.Discard
	}
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.documents = 0
	p.points = 0
	p.lastReported = 0
}

// Add records a finished batch of documents and the points embedded for it.
func (p *ProgressTracker) Add(documents, points int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.documents = min(p.documents+documents, p.total)
	p.points += points

	if p.documents-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.documents
	}
}

// Finish prints the final progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.documents = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// Points returns the number of points embedded so far.
func (p *ProgressTracker) Points() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.points
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	rate := float64(p.documents) / time.Since(p.startTime).Seconds()

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.documents) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rReindexed: %d/%d documents (%.1f%%), %d sentences - %.1f documents/s",
		p.documents, p.total, percentage, p.points, rate)
}
