// Package core provides the business logic for question pool validation.
package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizpool/checker/internal/logging"
	"github.com/quizpool/checker/internal/pool"
)

// ErrEmptyFile is returned when the submitted document has no content.
var ErrEmptyFile = errors.New("empty file")

// Report is the outcome of validating one pool document.
type Report struct {
	ID        string         `json:"id"`
	FileName  string         `json:"file_name"`
	Lines     int            `json:"lines"`
	Valid     bool           `json:"valid"`
	Findings  []pool.Finding `json:"findings"`
	ClientIP  string         `json:"-"`
	UserAgent string         `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}

// Service runs validations, bounds their concurrency, and optionally keeps
// report history in the store.
type Service struct {
	store        *Store // nil when storage is disabled
	limiter      *ValidationLimiter
	historyLimit int
}

// NewService creates a Service. pgPool may be nil, in which case validation
// works normally but no report history is kept.
func NewService(pgPool *pgxpool.Pool, maxConcurrent int, maxWait time.Duration, historyLimit int) *Service {
	var store *Store
	if pgPool != nil {
		store = NewStore(pgPool)
	}
	if historyLimit <= 0 {
		historyLimit = 50
	}

	return &Service{
		store:        store,
		limiter:      NewValidationLimiter(maxConcurrent, maxWait),
		historyLimit: historyLimit,
	}
}

// StorageEnabled reports whether report history is kept.
func (s *Service) StorageEnabled() bool {
	return s.store != nil
}

// InitStore creates the report tables. No-op when storage is disabled.
func (s *Service) InitStore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Init(ctx)
}

// ValidateDocument validates a pool document and returns its report.
// The report is stored when history is enabled; a storage failure is logged
// but does not fail the validation.
func (s *Service) ValidateDocument(ctx context.Context, fileName string, data []byte) (*Report, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	doc := prepareDocument(data)
	if doc == "" {
		return nil, ErrEmptyFile
	}

	findings := pool.Validate(doc)

	report := &Report{
		ID:        uuid.NewString(),
		FileName:  fileName,
		Lines:     lineCount(doc),
		Valid:     len(findings) == 0,
		Findings:  findings,
		ClientIP:  ClientIPFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}

	if s.store != nil {
		if err := s.store.InsertReport(ctx, report); err != nil {
			logging.FromContext(ctx).Warn("failed to store validation report",
				"report_id", report.ID,
				"error", err,
			)
		}
	}

	return report, nil
}

// ListReports returns recent reports, newest first. A limit of 0 or less
// uses the configured history limit.
func (s *Service) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	return s.store.ListReports(ctx, limit)
}

// GetReport returns a stored report by ID.
func (s *Service) GetReport(ctx context.Context, id string) (*Report, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrReportNotFound
	}
	return s.store.GetReport(ctx, id)
}

// WaitForValidations blocks until in-flight validations finish or the
// context is cancelled. Used during graceful shutdown.
func (s *Service) WaitForValidations(ctx context.Context) error {
	if err := s.limiter.WaitForDrain(ctx); err != nil {
		return fmt.Errorf("waiting for validations to drain: %w", err)
	}
	return nil
}

// LimiterStatus returns the current concurrency state for monitoring.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// prepareDocument normalizes raw upload bytes into the text the validator
// consumes. It drops a leading UTF-8 byte order mark, which spreadsheet
// exports commonly prepend, and replaces invalid UTF-8 with U+FFFD.
func prepareDocument(data []byte) string {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	return string(sanitizeUTF8(data))
}

func lineCount(doc string) int {
	return strings.Count(doc, "\n") + 1
}
