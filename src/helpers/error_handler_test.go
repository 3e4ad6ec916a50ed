package helpers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestUserMessage(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", NewValidationError("ticker is required"), "ticker is required"},
		{"empty", NewEmptySeriesError("ZZZZ"), MsgEmptySeries},
		{"wrapped empty", fmt.Errorf("fetch: %w", NewEmptySeriesError("ZZZZ")), MsgEmptySeries},
		{"network", NewNetworkError("get failed", errors.New("timeout")), MsgGenericFailure},
		{"plain", errors.New("boom"), MsgGenericFailure},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := UserMessage(tc.err); got != tc.want {
				t.Errorf("UserMessage() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestInsightErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewDatabaseError("save analysis", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is did not find cause")
	}
	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("errors.As did not match DatabaseError")
	}
	if err.Error() != "save analysis: disk full" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), nil, "ping", 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	calls = 0
	err = RetryWithBackoff(context.Background(), nil, "ping", 2, time.Millisecond, func() error {
		calls++
		return errors.New("down")
	})
	if err == nil || calls != 2 {
		t.Fatalf("expected failure after 2 calls, got err=%v calls=%d", err, calls)
	}
}

func TestRetryWithBackoffCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryWithBackoff(ctx, nil, "ping", 5, time.Second, func() error {
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
