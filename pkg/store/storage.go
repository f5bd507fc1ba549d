package store

import (
	"context"
	"time"

	"github.com/sieve-kg/sieve/pkg/pipeline"
)

// RunSummary is the persisted view of one completed run.
type RunSummary struct {
	RunID          string    `json:"run_id"`
	CreatedAt      time.Time `json:"created_at"`
	NodeCount      int       `json:"node_count"`
	EdgeCount      int       `json:"edge_count"`
	RejectionCount int       `json:"rejection_count"`
	TrustScore     float64   `json:"trust_score"`
}

// RunStorage persists completed runs and their artifacts. Persistence is
// optional; the pipeline itself never depends on it.
type RunStorage interface {
	SaveRun(ctx context.Context, result *pipeline.RunResult) error
	GetRun(ctx context.Context, runID string) (*RunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	CountRejectionsByReason(ctx context.Context, runID string) (map[string]int, error)
}
