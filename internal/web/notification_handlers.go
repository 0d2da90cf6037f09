package web

import (
	"net/http"

	"github.com/evcraddock/estate-bids/internal/notify"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	notes, err := s.inbox.ListForUser(r.Context(), actor.UserID, r.URL.Query().Get("unread") == "true")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notes == nil {
		notes = []*notify.Notification{}
	}
	apiJSON(w, notes, http.StatusOK)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	if err := s.inbox.MarkRead(r.Context(), actor.UserID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, map[string]interface{}{"id": r.PathValue("id"), "read": true}, http.StatusOK)
}
