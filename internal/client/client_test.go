package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evcraddock/estate-bids/internal/apperr"
	"github.com/evcraddock/estate-bids/internal/bid"
	"github.com/evcraddock/estate-bids/internal/property"
	"github.com/evcraddock/estate-bids/internal/reconcile"
)

func fastPolicy() reconcile.Policy {
	return reconcile.Policy{Timeout: 100 * time.Millisecond, PollInterval: 5 * time.Millisecond, PollAttempts: 3}
}

func writeJSON(t *testing.T, w http.ResponseWriter, code int, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode: %v", err)
	}
}

func TestListProperties(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/properties" {
			t.Errorf("path = %q, want /api/properties", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer testtoken" {
			t.Error("expected Bearer testtoken")
		}
		if r.URL.Query().Get("accepting") != "true" || r.URL.Query().Get("status") != "available" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		writeJSON(t, w, http.StatusOK, []*property.Property{{ID: "p1", Address: "1 Quay St"}})
	}))
	defer srv.Close()

	c := New(srv.URL, "testtoken", WithPolicy(fastPolicy()))
	accepting := true
	props, err := c.ListProperties(context.Background(), PropertyFilter{Status: property.StatusAvailable, AcceptingBids: &accepting})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(props) != 1 || props[0].Address != "1 Quay St" {
		t.Errorf("props = %+v", props)
	}
}

func TestTypedErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusConflict, map[string]string{
			"error": "cannot move bid from rejected to withdrawn",
			"kind":  "INVALID_TRANSITION",
			"from":  "rejected",
			"to":    "withdrawn",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "t", WithPolicy(fastPolicy()))
	_, err := c.Withdraw(context.Background(), "b1")

	var e *apperr.Error
	if !errors.As(err, &e) {
		t.Fatalf("err = %v, want *apperr.Error", err)
	}
	if e.Kind != apperr.KindInvalidTransition || e.From != "rejected" || e.To != "withdrawn" {
		t.Errorf("got %+v", e)
	}
}

func TestValidationViolationsDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, map[string]interface{}{
			"error": "validation failed: amount must be at least 450000",
			"kind":  "VALIDATION_ERROR",
			"violations": []apperr.Violation{
				{Field: "amount", Message: "amount must be at least 450000"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "t", WithPolicy(fastPolicy()))
	_, err := c.SubmitBid(context.Background(), "p1", bid.SubmitInput{BidType: bid.TypePurchase, Amount: decimal.NewFromInt(400000)})

	var e *apperr.Error
	if !errors.As(err, &e) || e.Kind != apperr.KindValidation {
		t.Fatalf("err = %v", err)
	}
	if len(e.Violations) != 1 || e.Violations[0].Field != "amount" {
		t.Errorf("violations = %+v", e.Violations)
	}
}

func TestLostWithdrawIsReconciled(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/bids/b1/withdraw":
			posts.Add(1)
			// The write lands but the response never arrives in time.
			time.Sleep(300 * time.Millisecond)
		case r.Method == http.MethodGet && r.URL.Path == "/api/bids/b1":
			writeJSON(t, w, http.StatusOK, bid.Bid{ID: "b1", Status: bid.StatusWithdrawn})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "t", WithPolicy(fastPolicy()))
	b, err := c.Withdraw(context.Background(), "b1")
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if b.Status != bid.StatusWithdrawn {
		t.Errorf("status = %s, want withdrawn", b.Status)
	}
	if n := posts.Load(); n != 1 {
		t.Errorf("withdraw sent %d times, want 1", n)
	}
}

func TestLostTransferNotConfirmed(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode: %v", err)
			}
			if body["expected_owner_id"] != "o1" || body["new_owner_id"] != "o2" {
				t.Errorf("body = %v", body)
			}
			time.Sleep(300 * time.Millisecond)
			return
		}
		writeJSON(t, w, http.StatusOK, property.Property{ID: "p1", OwnerID: "o1"})
	}))
	defer srv.Close()

	c := New(srv.URL, "t", WithPolicy(fastPolicy()))
	_, err := c.TransferOwnership(context.Background(), "p1", "o2", "o1")
	if !errors.Is(err, reconcile.ErrUnknownOutcome) {
		t.Fatalf("err = %v, want unknown outcome", err)
	}
	if !apperr.Is(err, apperr.KindNetwork) {
		t.Errorf("kind = %q, want network", apperr.KindOf(err))
	}
	if n := posts.Load(); n != 1 {
		t.Errorf("transfer sent %d times, want 1", n)
	}
}

func TestReadRetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, http.StatusOK, bid.Bid{ID: "b1", Status: bid.StatusPending})
	}))
	defer srv.Close()

	c := New(srv.URL, "t", WithPolicy(fastPolicy()))
	b, err := c.GetBid(context.Background(), "b1")
	if err != nil {
		t.Fatalf("GetBid: %v", err)
	}
	if b.ID != "b1" || calls.Load() != 2 {
		t.Errorf("bid = %+v after %d calls", b, calls.Load())
	}
}

func TestUnauthorizedWithoutKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "", WithPolicy(fastPolicy()))
	if _, err := c.Me(context.Background()); !apperr.Is(err, apperr.KindAuth) {
		t.Errorf("err = %v, want auth error", err)
	}
}

func TestConnectionRefusedIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, "t", WithPolicy(fastPolicy()))
	if err := c.Health(context.Background()); !apperr.Is(err, apperr.KindNetwork) {
		t.Errorf("err = %v, want network error", err)
	}
}

func TestListingApplied(t *testing.T) {
	closed := false
	rented := property.StatusRented
	p := &property.Property{Status: property.StatusRented, IsAcceptingBids: false}

	if !listingApplied(p, property.ListingUpdate{Status: &rented, IsAcceptingBids: &closed}) {
		t.Error("expected update to be seen as applied")
	}
	lo := decimal.NewNullDecimal(decimal.NewFromInt(10))
	if listingApplied(p, property.ListingUpdate{MinimumBidAmount: &lo}) {
		t.Error("missing bound should not count as applied")
	}
}
