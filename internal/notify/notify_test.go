package notify

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/evcraddock/estate-bids/internal/apperr"
	"github.com/evcraddock/estate-bids/internal/db"
)

type recorder struct {
	mu    sync.Mutex
	notes []Notification
	err   error
}

func (r *recorder) Notify(ctx context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return r.err
}

func testInbox(t *testing.T) *Inbox {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return NewInbox(d)
}

func TestInboxStoresAndLists(t *testing.T) {
	inbox := testInbox(t)
	ctx := context.Background()

	n := New("user-1", BidSubmitted, "prop-1", "bid-1", "new bid")
	if err := inbox.Notify(ctx, n); err != nil {
		t.Fatalf("notify: %v", err)
	}
	// Redelivery of the same ID is ignored.
	if err := inbox.Notify(ctx, n); err != nil {
		t.Fatalf("redeliver: %v", err)
	}
	if err := inbox.Notify(ctx, New("user-2", BidRejected, "prop-1", "bid-2", "")); err != nil {
		t.Fatalf("notify other user: %v", err)
	}

	notes, err := inbox.ListForUser(ctx, "user-1", false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notes))
	}
	if notes[0].Kind != BidSubmitted || notes[0].BidID != "bid-1" {
		t.Errorf("notification = %+v", notes[0])
	}
}

func TestInboxMarkRead(t *testing.T) {
	inbox := testInbox(t)
	ctx := context.Background()

	n := New("user-1", BidAccepted, "prop-1", "bid-1", "")
	if err := inbox.Notify(ctx, n); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if err := inbox.MarkRead(ctx, "user-2", n.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("other user mark read err = %v, want not found", err)
	}
	if err := inbox.MarkRead(ctx, "user-1", n.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	unread, err := inbox.ListForUser(ctx, "user-1", true)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 0 {
		t.Errorf("got %d unread, want 0", len(unread))
	}
}

func TestInboxRequiresRecipient(t *testing.T) {
	inbox := testInbox(t)
	if err := inbox.Notify(context.Background(), New("", BidSubmitted, "", "", "")); err == nil {
		t.Fatal("expected error for missing recipient")
	}
}

func TestSendSwallowsErrors(t *testing.T) {
	r := &recorder{err: errors.New("smtp down")}

	// Must not panic or propagate; both notifications are attempted.
	Send(context.Background(), r,
		New("a", BidSubmitted, "", "", ""),
		New("b", BidSubmitted, "", "", ""),
	)
	if len(r.notes) != 2 {
		t.Errorf("attempted %d notifications, want 2", len(r.notes))
	}

	Send(context.Background(), nil, New("a", BidSubmitted, "", "", ""))
}

func TestSendSurvivesCancelledContext(t *testing.T) {
	r := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	var errAtDelivery error
	d := dispatcherFunc(func(ctx context.Context, n Notification) error {
		called = true
		errAtDelivery = ctx.Err()
		return r.Notify(ctx, n)
	})
	Send(ctx, d, New("a", BidAccepted, "", "", ""))

	if !called || errAtDelivery != nil {
		t.Error("expected delivery context to outlive the cancelled request")
	}
}

func TestFanoutJoinsErrors(t *testing.T) {
	ok := &recorder{}
	failing := &recorder{err: errors.New("boom")}

	err := Fanout{ok, failing}.Notify(context.Background(), New("a", BidSubmitted, "", "", ""))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(ok.notes) != 1 || len(failing.notes) != 1 {
		t.Error("expected every dispatcher to be called")
	}
}

func TestDeliverHandler(t *testing.T) {
	r := &recorder{}
	n := New("user-1", OwnershipTransferred, "prop-1", "", "you own this now")

	task, err := newDeliverTask(n)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := DeliverHandler(r)(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(r.notes) != 1 || r.notes[0].ID != n.ID {
		t.Errorf("delivered = %+v", r.notes)
	}
}

func TestDeliverHandlerSkipsRetryOnBadPayload(t *testing.T) {
	task := asynq.NewTask(TypeDeliver, []byte("{not json"))

	err := DeliverHandler(&recorder{})(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("err = %v, want SkipRetry", err)
	}
}

type dispatcherFunc func(ctx context.Context, n Notification) error

func (f dispatcherFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }
