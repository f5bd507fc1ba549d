package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sieve-kg/sieve/pkg/pipeline"
	"github.com/sieve-kg/sieve/pkg/store"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// RunDBStorage implements store.RunStorage on PostgreSQL. Artifacts are
// stored as jsonb alongside queryable summary columns.
type RunDBStorage struct {
	conn pgxIConn
}

var _ store.RunStorage = (*RunDBStorage)(nil)

// NewRunDBStorageWithConnection creates a RunDBStorage using an existing
// database connection or pool.
func NewRunDBStorageWithConnection(conn pgxIConn) *RunDBStorage {
	return &RunDBStorage{conn: conn}
}

func (s *RunDBStorage) SaveRun(ctx context.Context, result *pipeline.RunResult) error {
	graphJSON, err := json.Marshal(result.Graph)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	trustJSON, err := json.Marshal(result.Trust)
	if err != nil {
		return fmt.Errorf("failed to marshal trust report: %w", err)
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO runs (run_id, node_count, edge_count, rejection_count, trust_score, graph, trust_report)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO NOTHING`,
		result.RunID,
		result.Graph.Stats.NodeCount,
		result.Graph.Stats.EdgeCount,
		len(result.Rejections),
		result.Trust.TrustScore,
		graphJSON,
		trustJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, rejection := range result.Rejections {
		_, err = tx.Exec(ctx, `
			INSERT INTO run_rejections (run_id, hypothesis_id, project_id, reason, justification)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (run_id, hypothesis_id) DO NOTHING`,
			result.RunID,
			rejection.HypothesisID,
			rejection.ProjectID,
			rejection.Reason,
			rejection.Justification,
		)
		if err != nil {
			return fmt.Errorf("failed to insert rejection: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

func (s *RunDBStorage) GetRun(ctx context.Context, runID string) (*store.RunSummary, error) {
	var summary store.RunSummary
	err := s.conn.QueryRow(ctx, `
		SELECT run_id, created_at, node_count, edge_count, rejection_count, trust_score
		FROM runs WHERE run_id = $1`, runID,
	).Scan(
		&summary.RunID,
		&summary.CreatedAt,
		&summary.NodeCount,
		&summary.EdgeCount,
		&summary.RejectionCount,
		&summary.TrustScore,
	)
	if err != nil {
		if err == pgxv5.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return &summary, nil
}

func (s *RunDBStorage) ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.Query(ctx, `
		SELECT run_id, created_at, node_count, edge_count, rejection_count, trust_score
		FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []store.RunSummary
	for rows.Next() {
		var summary store.RunSummary
		if err := rows.Scan(
			&summary.RunID,
			&summary.CreatedAt,
			&summary.NodeCount,
			&summary.EdgeCount,
			&summary.RejectionCount,
			&summary.TrustScore,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (s *RunDBStorage) CountRejectionsByReason(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT reason, COUNT(*) FROM run_rejections
		WHERE run_id = $1 GROUP BY reason`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count rejections: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var reason string
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, fmt.Errorf("failed to scan rejection count: %w", err)
		}
		counts[reason] = count
	}
	return counts, rows.Err()
}
