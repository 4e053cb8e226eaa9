package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"aftersales/internal/warranty"
	"aftersales/pkg/platform/sentinel"
)

// Store persists warranty registrations in PostgreSQL. This store is pure
// I/O; transition rules and validation belong to the lifecycle service.
//
// Expected schema:
//
//	CREATE TABLE warranty_registrations (
//	    id              UUID PRIMARY KEY,
//	    product_id      TEXT NOT NULL,
//	    user_id         TEXT NOT NULL,
//	    order_id        TEXT NOT NULL DEFAULT '',
//	    serial_number   TEXT NOT NULL DEFAULT '',
//	    invoice_number  TEXT NOT NULL DEFAULT '',
//	    warranty_type   TEXT NOT NULL,
//	    duration_months INT NOT NULL,
//	    start_date      TIMESTAMPTZ NOT NULL,
//	    end_date        TIMESTAMPTZ NOT NULL,
//	    status          TEXT NOT NULL,
//	    created_at      TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX ON warranty_registrations (status, end_date);
//	CREATE UNIQUE INDEX warranty_registrations_live_serial
//	    ON warranty_registrations (serial_number)
//	    WHERE status <> 'revoked' AND serial_number <> '';
//
// The partial unique index is what enforces serial uniqueness among live
// records under concurrent inserts; revoking a record releases its serial.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const columns = `id, product_id, user_id, order_id, serial_number, invoice_number,
	warranty_type, duration_months, start_date, end_date, status, created_at`

func (s *Store) Insert(ctx context.Context, record warranty.Record) error {
	query := `
		INSERT INTO warranty_registrations (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.ProductID,
		record.UserID,
		record.OrderID,
		record.SerialNumber,
		record.InvoiceNumber,
		record.WarrantyType,
		record.DurationMonths,
		record.StartDate,
		record.EndDate,
		record.Status,
		record.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("insert warranty: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert warranty: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (warranty.Record, error) {
	query := `SELECT ` + columns + ` FROM warranty_registrations WHERE id = $1`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return warranty.Record{}, sentinel.ErrNotFound
		}
		return warranty.Record{}, fmt.Errorf("get warranty: %w", err)
	}
	return record, nil
}

func (s *Store) GetBySerial(ctx context.Context, serial string) (warranty.Record, error) {
	query := `
		SELECT ` + columns + `
		FROM warranty_registrations
		WHERE serial_number = $1 AND status <> $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, serial, warranty.StatusRevoked))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return warranty.Record{}, sentinel.ErrNotFound
		}
		return warranty.Record{}, fmt.Errorf("get warranty by serial: %w", err)
	}
	return record, nil
}

// UpdateStatus is a single conditional write; the WHERE clause on the current
// status is what makes concurrent sweeps safe.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next warranty.Status) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE warranty_registrations
		SET status = $3
		WHERE id = $1 AND status = $2
	`, id, expected, next)
	if err != nil {
		return false, fmt.Errorf("update warranty status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update warranty status rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a lost race from an unknown id.
		if _, err := s.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *Store) QueryActiveExpiringBefore(ctx context.Context, cutoff time.Time) ([]warranty.Record, error) {
	query := `
		SELECT ` + columns + `
		FROM warranty_registrations
		WHERE status = $1 AND end_date <= $2
		ORDER BY end_date ASC
	`
	return s.queryRecords(ctx, query, warranty.StatusActive, cutoff)
}

func (s *Store) QueryActiveInWindow(ctx context.Context, start, end time.Time) ([]warranty.Record, error) {
	query := `
		SELECT ` + columns + `
		FROM warranty_registrations
		WHERE status = $1 AND end_date >= $2 AND end_date < $3
		ORDER BY end_date ASC
	`
	return s.queryRecords(ctx, query, warranty.StatusActive, start, end)
}

func (s *Store) CountByStatus(ctx context.Context) (map[warranty.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM warranty_registrations GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count warranties by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[warranty.Status]int)
	for rows.Next() {
		var status warranty.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]warranty.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query warranties: %w", err)
	}
	defer rows.Close()

	var out []warranty.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warranty: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (warranty.Record, error) {
	var record warranty.Record
	err := row.Scan(
		&record.ID,
		&record.ProductID,
		&record.UserID,
		&record.OrderID,
		&record.SerialNumber,
		&record.InvoiceNumber,
		&record.WarrantyType,
		&record.DurationMonths,
		&record.StartDate,
		&record.EndDate,
		&record.Status,
		&record.CreatedAt,
	)
	return record, err
}
