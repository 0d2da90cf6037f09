package web

import (
	"net/http"

	"github.com/evcraddock/estate-bids/internal/apperr"
	"github.com/evcraddock/estate-bids/internal/profile"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	p, err := s.profiles.GetByID(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	if !actor.CanManage() {
		writeError(w, r, apperr.PermissionDenied("only managers can list profiles"))
		return
	}

	opts := profile.ListOptions{}
	if role := r.URL.Query().Get("role"); role != "" {
		opts.Role = profile.Role(role)
		if !opts.Role.IsValid() {
			writeError(w, r, apperr.Validation(apperr.Violation{Field: "role", Message: "unknown role " + role}))
			return
		}
	}

	profiles, err := s.profiles.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if profiles == nil {
		profiles = []*profile.Profile{}
	}
	apiJSON(w, profiles, http.StatusOK)
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	if actor.Role != profile.RoleAdmin {
		writeError(w, r, apperr.PermissionDenied("only admins can create profiles"))
		return
	}

	var req struct {
		Email string       `json:"email"`
		Name  string       `json:"name"`
		Role  profile.Role `json:"role"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := s.profiles.Insert(r.Context(), &profile.Profile{Email: req.Email, Name: req.Name, Role: req.Role})
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusCreated)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if id != actor.UserID && !actor.CanManage() {
		writeError(w, r, apperr.PermissionDenied("not allowed to view profile %s", id))
		return
	}

	p, err := s.profiles.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}
