// Package web provides the JSON HTTP API for the bid and ownership workflows.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/evcraddock/estate-bids/internal/auth"
	"github.com/evcraddock/estate-bids/internal/bid"
	"github.com/evcraddock/estate-bids/internal/logging"
	"github.com/evcraddock/estate-bids/internal/notify"
	"github.com/evcraddock/estate-bids/internal/profile"
	"github.com/evcraddock/estate-bids/internal/property"
)

// Deps are the services the server exposes.
type Deps struct {
	Profiles      *profile.Repository
	Properties    *property.Service
	Bids          *bid.Service
	Inbox         *notify.Inbox
	Authenticator *auth.Authenticator
}

// Server is the API HTTP server.
type Server struct {
	profiles   *profile.Repository
	properties *property.Service
	bids       *bid.Service
	inbox      *notify.Inbox
	handler    http.Handler
	mux        *http.ServeMux
}

// NewServer creates an API server.
func NewServer(d Deps) *Server {
	s := &Server{
		profiles:   d.Profiles,
		properties: d.Properties,
		bids:       d.Bids,
		inbox:      d.Inbox,
		mux:        http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/me", s.handleMe)
	s.mux.HandleFunc("GET /api/profiles", s.handleListProfiles)
	s.mux.HandleFunc("POST /api/profiles", s.handleCreateProfile)
	s.mux.HandleFunc("GET /api/profiles/{id}", s.handleGetProfile)

	s.mux.HandleFunc("GET /api/properties", s.handleListProperties)
	s.mux.HandleFunc("POST /api/properties", s.handleCreateProperty)
	s.mux.HandleFunc("GET /api/properties/{id}", s.handleGetProperty)
	s.mux.HandleFunc("PATCH /api/properties/{id}", s.handleUpdateListing)
	s.mux.HandleFunc("POST /api/properties/{id}/owner", s.handleTransferOwnership)
	s.mux.HandleFunc("GET /api/properties/{id}/transfers", s.handleListTransfers)
	s.mux.HandleFunc("GET /api/properties/{id}/bids", s.handleListPropertyBids)
	s.mux.HandleFunc("POST /api/properties/{id}/bids", s.handleSubmitBid)

	s.mux.HandleFunc("GET /api/bids", s.handleListMyBids)
	s.mux.HandleFunc("GET /api/bids/{id}", s.handleGetBid)
	s.mux.HandleFunc("POST /api/bids/{id}/manager-approve", s.handleManagerApprove)
	s.mux.HandleFunc("POST /api/bids/{id}/owner-approve", s.handleOwnerApprove)
	s.mux.HandleFunc("POST /api/bids/{id}/reject", s.handleReject)
	s.mux.HandleFunc("POST /api/bids/{id}/withdraw", s.handleWithdraw)

	s.mux.HandleFunc("GET /api/notifications", s.handleListNotifications)
	s.mux.HandleFunc("POST /api/notifications/{id}/read", s.handleMarkRead)

	var h http.Handler = s.mux
	if d.Authenticator != nil {
		h = d.Authenticator.Require(h)
	}
	s.handler = logging.RequestLogger(h)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on port until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting API server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// identity returns the acting user. The authenticator guarantees one on
// every /api route; a missing identity is answered with 401.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		apiError(w, "authorization required", http.StatusUnauthorized)
	}
	return id, ok
}
