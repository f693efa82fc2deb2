package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestService() *Service {
	return NewService(nil, 4, time.Second, 10)
}

// ============================================================================
// Document validation
// ============================================================================

func TestValidateDocument_ValidPool(t *testing.T) {
	doc := "id,question,choice1,correct1,choice2,correct2\n" +
		"1,What color is the sky?,blue,TRUE,green,FALSE\n"

	report, err := newTestService().ValidateDocument(context.Background(), "pool.csv", []byte(doc))
	if err != nil {
		t.Fatalf("ValidateDocument() error = %v", err)
	}

	if !report.Valid {
		t.Errorf("report.Valid = false, findings = %v", report.Findings)
	}
	if len(report.Findings) != 0 {
		t.Errorf("len(Findings) = %d, want 0", len(report.Findings))
	}
	if report.FileName != "pool.csv" {
		t.Errorf("report.FileName = %q, want %q", report.FileName, "pool.csv")
	}
	if report.ID == "" {
		t.Error("report.ID is empty")
	}
	if report.Lines != 3 {
		t.Errorf("report.Lines = %d, want 3", report.Lines)
	}
}

func TestValidateDocument_InvalidPool(t *testing.T) {
	doc := "id,choice1,correct1\n" +
		"1,yes,maybe\n"

	report, err := newTestService().ValidateDocument(context.Background(), "pool.csv", []byte(doc))
	if err != nil {
		t.Fatalf("ValidateDocument() error = %v", err)
	}

	if report.Valid {
		t.Error("report.Valid = true for a pool with findings")
	}
	if len(report.Findings) == 0 {
		t.Fatal("len(Findings) = 0, want at least 1")
	}
	if got := report.Findings[0].Message; !strings.Contains(got, "TRUE, FALSE, or blank") {
		t.Errorf("Findings[0].Message = %q, want TRUE/FALSE/blank message", got)
	}
}

func TestValidateDocument_EmptyFile(t *testing.T) {
	_, err := newTestService().ValidateDocument(context.Background(), "pool.csv", nil)
	if !errors.Is(err, ErrEmptyFile) {
		t.Errorf("ValidateDocument(nil) error = %v, want ErrEmptyFile", err)
	}
}

func TestValidateDocument_StripsBOM(t *testing.T) {
	doc := append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,choice1,correct1\n1,yes,TRUE\n")...)

	report, err := newTestService().ValidateDocument(context.Background(), "pool.csv", doc)
	if err != nil {
		t.Fatalf("ValidateDocument() error = %v", err)
	}
	// Without BOM stripping the first header cell would be "\ufeffid".
	if !report.Valid {
		t.Errorf("report.Valid = false, findings = %v", report.Findings)
	}
}

func TestValidateDocument_InvalidUTF8Sanitized(t *testing.T) {
	doc := []byte("id,choice1,correct1\n1,caf\xff,TRUE\n")

	report, err := newTestService().ValidateDocument(context.Background(), "pool.csv", doc)
	if err != nil {
		t.Fatalf("ValidateDocument() error = %v", err)
	}
	if !report.Valid {
		t.Errorf("report.Valid = false, findings = %v", report.Findings)
	}
}

func TestValidateDocument_ContextMetadata(t *testing.T) {
	ctx := ContextWithClientIP(context.Background(), "203.0.113.7")
	ctx = ContextWithUserAgent(ctx, "curl/8.0")

	report, err := newTestService().ValidateDocument(ctx, "pool.csv", []byte("id,choice1,correct1\n1,yes,TRUE\n"))
	if err != nil {
		t.Fatalf("ValidateDocument() error = %v", err)
	}
	if report.ClientIP != "203.0.113.7" {
		t.Errorf("report.ClientIP = %q, want %q", report.ClientIP, "203.0.113.7")
	}
	if report.UserAgent != "curl/8.0" {
		t.Errorf("report.UserAgent = %q, want %q", report.UserAgent, "curl/8.0")
	}
}

// ============================================================================
// History without storage
// ============================================================================

func TestHistory_DisabledWithoutStore(t *testing.T) {
	svc := newTestService()

	if svc.StorageEnabled() {
		t.Error("StorageEnabled() = true with nil pool")
	}
	if _, err := svc.ListReports(context.Background(), 10); !errors.Is(err, ErrNoStore) {
		t.Errorf("ListReports() error = %v, want ErrNoStore", err)
	}
	if _, err := svc.GetReport(context.Background(), "8a2b8f0e-44cf-4a42-9a1f-000000000000"); !errors.Is(err, ErrNoStore) {
		t.Errorf("GetReport() error = %v, want ErrNoStore", err)
	}
}

// ============================================================================
// Input preparation
// ============================================================================

func TestSanitizeUTF8(t *testing.T) {
	valid := []byte("plain ascii and café")
	if got := sanitizeUTF8(valid); string(got) != string(valid) {
		t.Errorf("sanitizeUTF8(valid) = %q, want unchanged", got)
	}

	invalid := []byte{'a', 0xff, 'b'}
	if got := string(sanitizeUTF8(invalid)); got != "a�b" {
		t.Errorf("sanitizeUTF8(invalid) = %q, want %q", got, "a�b")
	}
}

// ============================================================================
// Error mapping
// ============================================================================

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"limiter exhausted", ErrTooManyValidations, "VAL001"},
		{"missing report", ErrReportNotFound, "VAL002"},
		{"storage disabled", ErrNoStore, "VAL003"},
		{"empty upload", ErrEmptyFile, "FILE003"},
		{"cancelled request", context.Canceled, "SYS001"},
		{"unknown error", errors.New("something exploded"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err).Code; got != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrEmptyFile)
	want := "The uploaded file is empty (Code: FILE003). Please upload a CSV file with a header and data rows"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}
