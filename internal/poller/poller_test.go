package poller

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAwaitImmediateResolution(t *testing.T) {
	calls := 0
	err := Await(context.Background(), time.Hour, time.Hour, func(ctx context.Context) (bool, error) {
		calls++
		return true, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single immediate check, got %d", calls)
	}
}

func TestAwaitResolvesAfterTicks(t *testing.T) {
	calls := 0
	err := Await(context.Background(), 5*time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 checks, got %d", calls)
	}
}

func TestAwaitGivesUpAtMaxWait(t *testing.T) {
	start := time.Now()
	err := Await(context.Background(), 5*time.Millisecond, 30*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, nil // the external flow was abandoned
	})
	if !errors.Is(err, ErrAwaitTimeout) {
		t.Fatalf("expected ErrAwaitTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("await ran far past its max wait: %s", elapsed)
	}
}

func TestAwaitPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Await(ctx, 5*time.Millisecond, time.Second, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAwaitPropagatesCheckError(t *testing.T) {
	boom := errors.New("storage failure")
	err := Await(context.Background(), time.Hour, time.Hour, func(ctx context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected check error to propagate, got %v", err)
	}
}
