package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const sendTimeout = 10 * time.Second

// Dispatcher delivers a notification somewhere.
type Dispatcher interface {
	Notify(ctx context.Context, n Notification) error
}

// Send delivers notes through d without reporting failures to the caller.
// It detaches from ctx's cancellation: by the time Send runs the state
// change has committed, so the notification must go out even if the
// request that caused it has gone away.
func Send(ctx context.Context, d Dispatcher, notes ...Notification) {
	if d == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	for _, n := range notes {
		if err := d.Notify(ctx, n); err != nil {
			slog.Warn("notification failed",
				"kind", n.Kind,
				"user_id", n.UserID,
				"bid_id", n.BidID,
				"error", err,
			)
		}
	}
}

// LogDispatcher writes notifications to the structured log.
type LogDispatcher struct{}

// Notify logs n.
func (LogDispatcher) Notify(ctx context.Context, n Notification) error {
	slog.InfoContext(ctx, "notification",
		"id", n.ID,
		"kind", n.Kind,
		"user_id", n.UserID,
		"property_id", n.PropertyID,
		"bid_id", n.BidID,
	)
	return nil
}

// Fanout delivers each notification to every dispatcher concurrently.
type Fanout []Dispatcher

// Notify sends n to all dispatchers and joins their errors.
func (f Fanout) Notify(ctx context.Context, n Notification) error {
	errs := make([]error, len(f))
	var g errgroup.Group
	for i, d := range f {
		g.Go(func() error {
			errs[i] = d.Notify(ctx, n)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
