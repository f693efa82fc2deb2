package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ============================================================================
// Slot acquisition
// ============================================================================

func TestValidationLimiter_AcquireRelease(t *testing.T) {
	l := NewValidationLimiter(2, time.Second)

	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if got := l.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount() = %d, want 2", got)
	}

	l.Release()
	if got := l.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount() after Release = %d, want 1", got)
	}
	l.Release()
}

func TestValidationLimiter_TimeoutWhenFull(t *testing.T) {
	l := NewValidationLimiter(1, 50*time.Millisecond)

	ctx := context.Background()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer l.Release()

	err := l.Acquire(ctx)
	if !errors.Is(err, ErrTooManyValidations) {
		t.Errorf("Acquire() on full limiter error = %v, want ErrTooManyValidations", err)
	}
}

func TestValidationLimiter_ContextCancellation(t *testing.T) {
	l := NewValidationLimiter(1, time.Minute)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() with cancelled context error = %v, want context.Canceled", err)
	}
}

func TestValidationLimiter_DefaultsApplied(t *testing.T) {
	l := NewValidationLimiter(0, 0)
	if got := l.MaxConcurrent(); got != DefaultMaxConcurrentValidations {
		t.Errorf("MaxConcurrent() = %d, want %d", got, DefaultMaxConcurrentValidations)
	}
}

// ============================================================================
// Drain
// ============================================================================

func TestValidationLimiter_WaitForDrain(t *testing.T) {
	l := NewValidationLimiter(2, time.Second)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	go func() {
		time.Sleep(150 * time.Millisecond)
		l.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := l.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain() error = %v", err)
	}
}

func TestValidationLimiter_Status(t *testing.T) {
	l := NewValidationLimiter(3, time.Second)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer l.Release()

	s := l.Status()
	if s.Active != 1 {
		t.Errorf("Status().Active = %d, want 1", s.Active)
	}
	if s.MaxConcurrent != 3 {
		t.Errorf("Status().MaxConcurrent = %d, want 3", s.MaxConcurrent)
	}
	if s.Available != 2 {
		t.Errorf("Status().Available = %d, want 2", s.Available)
	}
}
