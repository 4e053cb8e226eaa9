package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"aftersales/internal/warranty"
)

// PostgresStore archives reports in PostgreSQL. Counts are stored as a JSONB
// document; the table is append-only except for retention pruning.
//
// Schema:
//
//	CREATE TABLE warranty_reports (
//	    id                UUID PRIMARY KEY,
//	    generated_at      TIMESTAMPTZ NOT NULL,
//	    counts_by_status  JSONB NOT NULL,
//	    expiring_soon     INT NOT NULL,
//	    failed_deliveries INT NOT NULL
//	);
//	CREATE INDEX idx_warranty_reports_generated ON warranty_reports (generated_at DESC);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, summary Summary) error {
	counts, err := json.Marshal(summary.CountsByStatus)
	if err != nil {
		return fmt.Errorf("encode status counts: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO warranty_reports (id, generated_at, counts_by_status, expiring_soon, failed_deliveries)
		VALUES ($1, $2, $3, $4, $5)`,
		summary.ID, summary.GeneratedAt, counts, summary.ExpiringSoon, summary.FailedDeliveries,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, generated_at, counts_by_status, expiring_soon, failed_deliveries
		FROM warranty_reports
		ORDER BY generated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var summary Summary
		var counts []byte
		if err := rows.Scan(&summary.ID, &summary.GeneratedAt, &counts, &summary.ExpiringSoon, &summary.FailedDeliveries); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		summary.CountsByStatus = make(map[warranty.Status]int)
		if err := json.Unmarshal(counts, &summary.CountsByStatus); err != nil {
			return nil, fmt.Errorf("decode status counts: %w", err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PruneOldest(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM warranty_reports
		WHERE id NOT IN (
			SELECT id FROM warranty_reports ORDER BY generated_at DESC LIMIT $1
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune reports: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune reports: %w", err)
	}
	return int(affected), nil
}
