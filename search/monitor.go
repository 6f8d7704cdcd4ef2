package search

import (
	"log/slog"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/lexical"
)

// SearchMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results.
type SearchMonitor interface {
	Start(query string, topK int, threshold float32)
	AfterLexicalScoring(scored []lexical.Scored)
	AfterVectorSearch(candidates []core.Candidate)
	Finish(results []core.Candidate)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int, _ float32)      {}
func (n *noopMonitor) AfterLexicalScoring(_ []lexical.Scored) {}
func (n *noopMonitor) AfterVectorSearch(_ []core.Candidate)   {}
func (n *noopMonitor) Finish(_ []core.Candidate)              {}

// LogMonitor reports every retrieval stage at debug level.
type LogMonitor struct {
	logger *slog.Logger
}

var _ SearchMonitor = (*LogMonitor)(nil)

// NewLogMonitor creates a monitor that writes to logger, or slog.Default() if nil.
func NewLogMonitor(logger *slog.Logger) *LogMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMonitor{logger: logger.With("component", "search-monitor")}
}

func (m *LogMonitor) Start(query string, topK int, threshold float32) {
	m.logger.Debug("retrieval started", "query", query, "top_k", topK, "threshold", threshold)
}

func (m *LogMonitor) AfterLexicalScoring(scored []lexical.Scored) {
	if len(scored) == 0 {
		m.logger.Debug("no lexical matches")
		return
	}
	m.logger.Debug("lexical scoring done", "documents", len(scored), "top", scored[0].Document, "top_score", scored[0].Score)
}

func (m *LogMonitor) AfterVectorSearch(candidates []core.Candidate) {
	m.logger.Debug("vector search done", "candidates", len(candidates))
}

func (m *LogMonitor) Finish(results []core.Candidate) {
	m.logger.Debug("retrieval finished", "results", len(results))
}
