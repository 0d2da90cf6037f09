package web

import (
	"net/http"

	"github.com/evcraddock/estate-bids/internal/apperr"
	"github.com/evcraddock/estate-bids/internal/property"
)

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}

	q := r.URL.Query()
	opts := property.ListOptions{
		Status:  property.Status(q.Get("status")),
		OwnerID: q.Get("owner_id"),
	}
	if opts.Status != "" && !property.ValidStatus(opts.Status) {
		writeError(w, r, apperr.Validation(apperr.Violation{Field: "status", Message: "unknown status " + string(opts.Status)}))
		return
	}
	switch q.Get("accepting") {
	case "":
	case "true":
		v := true
		opts.AcceptingBids = &v
	case "false":
		v := false
		opts.AcceptingBids = &v
	default:
		writeError(w, r, apperr.Validation(apperr.Violation{Field: "accepting", Message: "accepting must be true or false"}))
		return
	}

	props, err := s.properties.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if props == nil {
		props = []*property.Property{}
	}
	apiJSON(w, props, http.StatusOK)
}

func (s *Server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var in property.CreateInput
	if !decodeBody(w, r, &in) {
		return
	}

	p, err := s.properties.Create(r.Context(), in, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusCreated)
}

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	p, err := s.properties.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

func (s *Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var u property.ListingUpdate
	if !decodeBody(w, r, &u) {
		return
	}

	p, err := s.properties.UpdateListing(r.Context(), r.PathValue("id"), u, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var req struct {
		NewOwnerID      string `json:"new_owner_id"`
		ExpectedOwnerID string `json:"expected_owner_id,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := s.properties.TransferOwnership(r.Context(), property.TransferInput{
		PropertyID:      r.PathValue("id"),
		NewOwnerID:      req.NewOwnerID,
		ExpectedOwnerID: req.ExpectedOwnerID,
	}, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

func (s *Server) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	p, err := s.properties.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !actor.CanManage() && actor.UserID != p.OwnerID {
		writeError(w, r, apperr.PermissionDenied("not allowed to view transfers of property %s", p.ID))
		return
	}

	transfers, err := s.properties.ListTransfers(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if transfers == nil {
		transfers = []*property.OwnershipTransfer{}
	}
	apiJSON(w, transfers, http.StatusOK)
}
