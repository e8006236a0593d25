package sailerr

import (
	"context"
	"errors"
	"testing"
)

func TestConflictClassification(t *testing.T) {
	err := Conflict.New("observed state changed")
	if !IsConflict(err) {
		t.Fatalf("expected IsConflict to recognize a Conflict-class error")
	}
	if IsConflict(errors.New("plain error")) {
		t.Fatalf("expected IsConflict to reject a plain error")
	}
}

func TestCancelledWrapsContextErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := FromContext(ctx)
	if err == nil {
		t.Fatalf("expected FromContext to return an error for a cancelled context")
	}
	if !IsCancelled(err) {
		t.Fatalf("expected IsCancelled to recognize a wrapped context.Canceled")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected wrapped error to unwrap to context.Canceled")
	}
}

func TestUsageClassification(t *testing.T) {
	err := Usage.New("no active transaction")
	if !IsUsage(err) {
		t.Fatalf("expected IsUsage to recognize a Usage-class error")
	}
}

func TestStoreIOWrap(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := StoreIO.Wrap(cause)
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected wrapped error to unwrap to its cause")
	}
}
