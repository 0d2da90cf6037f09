package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evcraddock/estate-bids/internal/apperr"
)

func fastPolicy() Policy {
	return Policy{Timeout: 50 * time.Millisecond, PollInterval: time.Millisecond, PollAttempts: 3}
}

func TestMutateSuccess(t *testing.T) {
	probed := false
	got, err := Mutate(context.Background(), fastPolicy(),
		func(ctx context.Context) (string, error) { return "ok", nil },
		func(ctx context.Context) (string, bool, error) { probed = true; return "", false, nil },
	)
	if err != nil || got != "ok" {
		t.Fatalf("got %q, %v", got, err)
	}
	if probed {
		t.Error("probe should not run after a successful write")
	}
}

func TestMutateBusinessErrorNotProbed(t *testing.T) {
	probed := false
	_, err := Mutate(context.Background(), fastPolicy(),
		func(ctx context.Context) (string, error) { return "", apperr.Conflict("dup") },
		func(ctx context.Context) (string, bool, error) { probed = true; return "", false, nil },
	)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if probed {
		t.Error("probe should not run for a definite failure")
	}
}

func TestMutateTimeoutThenProbeFindsWrite(t *testing.T) {
	writes := 0
	probes := 0
	got, err := Mutate(context.Background(), fastPolicy(),
		func(ctx context.Context) (string, error) {
			writes++
			<-ctx.Done()
			return "", ctx.Err()
		},
		func(ctx context.Context) (string, bool, error) {
			probes++
			if probes < 2 {
				return "", false, nil
			}
			return "withdrawn", true, nil
		},
	)
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if got != "withdrawn" {
		t.Errorf("got %q, want withdrawn", got)
	}
	if writes != 1 {
		t.Errorf("write ran %d times, want exactly 1", writes)
	}
	if probes != 2 {
		t.Errorf("probes = %d, want 2", probes)
	}
}

func TestMutateGivesUp(t *testing.T) {
	probes := 0
	_, err := Mutate(context.Background(), fastPolicy(),
		func(ctx context.Context) (int, error) {
			return 0, apperr.Network(errors.New("connection reset"), "calling server")
		},
		func(ctx context.Context) (int, bool, error) {
			probes++
			return 0, false, errors.New("still down")
		},
	)
	if !errors.Is(err, ErrUnknownOutcome) {
		t.Fatalf("err = %v, want unknown outcome", err)
	}
	if !apperr.Is(err, apperr.KindNetwork) {
		t.Errorf("kind = %q, want network", apperr.KindOf(err))
	}
	if probes != 3 {
		t.Errorf("probes = %d, want 3", probes)
	}
}

func TestMutateStopsWhenCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Timeout: 10 * time.Millisecond, PollInterval: time.Hour, PollAttempts: 5}

	_, err := Mutate(ctx, p,
		func(ctx context.Context) (int, error) {
			cancel()
			return 0, context.DeadlineExceeded
		},
		func(ctx context.Context) (int, bool, error) {
			t.Error("probe should not run after cancellation")
			return 0, false, nil
		},
	)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want canceled", err)
	}
}

func TestReadRetriesOnceOnNetworkError(t *testing.T) {
	calls := 0
	got, err := Read(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, apperr.Network(errors.New("eof"), "reading")
		}
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("got %d, %v", got, err)
	}

	calls = 0
	_, err = Read(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		calls++
		return 0, apperr.NotFound("gone")
	})
	if !apperr.Is(err, apperr.KindNotFound) || calls != 1 {
		t.Errorf("err = %v after %d calls, want one not-found call", err, calls)
	}
}

func TestReadAppliesTimeout(t *testing.T) {
	start := time.Now()
	_, err := Read(context.Background(), fastPolicy(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("read was not bounded by the policy timeout")
	}
}
