package core

// store.go persists validation reports in PostgreSQL. Storage is optional:
// the service runs without it and only loses report history.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizpool/checker/internal/pool"
)

// ErrNoStore is returned by history operations when report storage is not
// configured.
var ErrNoStore = errors.New("report storage is not configured")

// ErrReportNotFound is returned when the requested report does not exist.
var ErrReportNotFound = errors.New("report not found")

// Store reads and writes validation reports.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pgPool *pgxpool.Pool) *Store {
	return &Store{pool: pgPool}
}

// Init creates the report tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS validation_reports (
    id          UUID PRIMARY KEY,
    file_name   TEXT NOT NULL,
    line_count  INTEGER NOT NULL,
    valid       BOOLEAN NOT NULL,
    client_ip   TEXT NOT NULL DEFAULT '',
    user_agent  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS validation_findings (
    report_id   UUID NOT NULL REFERENCES validation_reports(id) ON DELETE CASCADE,
    position    INTEGER NOT NULL,
    line        INTEGER NOT NULL,
    field       INTEGER NOT NULL,
    message     TEXT NOT NULL,
    PRIMARY KEY (report_id, position)
);

CREATE INDEX IF NOT EXISTS idx_validation_reports_created_at
    ON validation_reports (created_at DESC);
`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init report store: %w", err)
	}
	return nil
}

// InsertReport stores a report and its findings in one transaction.
// Findings go in via COPY since a bad pool file can produce thousands.
func (s *Store) InsertReport(ctx context.Context, r *Report) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert report: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO validation_reports (id, file_name, line_count, valid, client_ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.FileName, r.Lines, r.Valid, r.ClientIP, r.UserAgent, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	if len(r.Findings) > 0 {
		rows := make([][]any, len(r.Findings))
		for i, f := range r.Findings {
			rows[i] = []any{r.ID, i, f.Line, f.Field, f.Message}
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"validation_findings"},
			[]string{"report_id", "position", "line", "field", "message"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("insert findings: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}
	return nil
}

// ReportSummary is a report without its findings, for listing.
type ReportSummary struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	Lines        int       `json:"lines"`
	Valid        bool      `json:"valid"`
	FindingCount int       `json:"finding_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListReports returns the most recent reports, newest first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.file_name, r.line_count, r.valid, count(f.report_id), r.created_at
		FROM validation_reports r
		LEFT JOIN validation_findings f ON f.report_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []ReportSummary
	for rows.Next() {
		var rs ReportSummary
		if err := rows.Scan(&rs.ID, &rs.FileName, &rs.Lines, &rs.Valid, &rs.FindingCount, &rs.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report summary: %w", err)
		}
		out = append(out, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

// GetReport returns a stored report with its findings in recorded order.
func (s *Store) GetReport(ctx context.Context, id string) (*Report, error) {
	var r Report
	err := s.pool.QueryRow(ctx, `
		SELECT id, file_name, line_count, valid, client_ip, user_agent, created_at
		FROM validation_reports
		WHERE id = $1`,
		id,
	).Scan(&r.ID, &r.FileName, &r.Lines, &r.Valid, &r.ClientIP, &r.UserAgent, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT line, field, message
		FROM validation_findings
		WHERE report_id = $1
		ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("get report findings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f pool.Finding
		if err := rows.Scan(&f.Line, &f.Field, &f.Message); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		r.Findings = append(r.Findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get report findings: %w", err)
	}
	return &r, nil
}
