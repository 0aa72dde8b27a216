package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackzampolin/form32/internal/metrics"
)

// SaveUsage appends provider call metrics in one transaction.
func (s *Store) SaveUsage(ctx context.Context, ms []metrics.Metric) error {
	if len(ms) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin usage insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO usage (run_id, source, stage, item_key, provider, model, cost_usd,
			prompt_tokens, completion_tokens, total_tokens, attempts, execution_seconds,
			success, error_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare usage insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range ms {
		created := m.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			m.RunID, m.Source, m.Stage, m.ItemKey, m.Provider, m.Model, m.CostUSD,
			m.PromptTokens, m.CompletionTokens, m.TotalTokens, m.Attempts, m.ExecutionSeconds,
			m.Success, m.ErrorType, created.UTC().Format(timeLayout),
		); err != nil {
			return fmt.Errorf("failed to save usage: %w", err)
		}
	}
	return tx.Commit()
}

// ListUsage returns metrics matching f, oldest first. RunID matches by
// prefix so short record IDs work.
func (s *Store) ListUsage(ctx context.Context, f metrics.Filter) ([]metrics.Metric, error) {
	query := `SELECT run_id, source, stage, item_key, provider, model, cost_usd,
		prompt_tokens, completion_tokens, total_tokens, attempts, execution_seconds,
		success, error_type, created_at FROM usage WHERE 1=1`
	var args []any
	if f.RunID != "" {
		query += ` AND run_id LIKE ? ESCAPE '\'`
		args = append(args, escapeLike(f.RunID)+"%")
	}
	if f.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, f.Stage)
	}
	if f.Provider != "" {
		query += ` AND provider = ?`
		args = append(args, f.Provider)
	}
	if !f.After.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, f.After.UTC().Format(timeLayout))
	}
	if !f.Before.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, f.Before.UTC().Format(timeLayout))
	}
	if f.Success != nil {
		query += ` AND success = ?`
		args = append(args, *f.Success)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	defer rows.Close()

	var out []metrics.Metric
	for rows.Next() {
		var (
			m       metrics.Metric
			created string
		)
		if err := rows.Scan(&m.RunID, &m.Source, &m.Stage, &m.ItemKey, &m.Provider, &m.Model, &m.CostUSD,
			&m.PromptTokens, &m.CompletionTokens, &m.TotalTokens, &m.Attempts, &m.ExecutionSeconds,
			&m.Success, &m.ErrorType, &created); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		if m.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("bad usage created_at %q: %w", created, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
