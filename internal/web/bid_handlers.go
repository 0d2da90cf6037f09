package web

import (
	"net/http"

	"github.com/evcraddock/estate-bids/internal/apperr"
	"github.com/evcraddock/estate-bids/internal/auth"
	"github.com/evcraddock/estate-bids/internal/bid"
)

func (s *Server) handleListPropertyBids(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	bids, err := s.bids.ListForProperty(r.Context(), r.PathValue("id"), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeBids(w, bids)
}

func (s *Server) handleSubmitBid(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var in bid.SubmitInput
	if !decodeBody(w, r, &in) {
		return
	}
	in.PropertyID = r.PathValue("id")

	b, err := s.bids.Submit(r.Context(), in, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, b, http.StatusCreated)
}

func (s *Server) handleListMyBids(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	bids, err := s.bids.ListForBidder(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeBids(w, bids)
}

func (s *Server) handleGetBid(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	b, err := s.bids.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if b.BidderID != actor.UserID && !actor.CanManage() {
		p, err := s.properties.GetByID(r.Context(), b.PropertyID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if p.OwnerID != actor.UserID {
			writeError(w, r, apperr.PermissionDenied("not allowed to view bid %s", b.ID))
			return
		}
	}
	apiJSON(w, b, http.StatusOK)
}

type bidAction func(r *http.Request, id string, actor auth.Identity) (*bid.Bid, error)

func (s *Server) runBidAction(w http.ResponseWriter, r *http.Request, action bidAction) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	b, err := action(r, r.PathValue("id"), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	apiJSON(w, b, http.StatusOK)
}

func (s *Server) handleManagerApprove(w http.ResponseWriter, r *http.Request) {
	s.runBidAction(w, r, func(r *http.Request, id string, actor auth.Identity) (*bid.Bid, error) {
		return s.bids.ApproveByManager(r.Context(), id, actor)
	})
}

func (s *Server) handleOwnerApprove(w http.ResponseWriter, r *http.Request) {
	s.runBidAction(w, r, func(r *http.Request, id string, actor auth.Identity) (*bid.Bid, error) {
		return s.bids.ApproveByOwner(r.Context(), id, actor)
	})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.runBidAction(w, r, func(r *http.Request, id string, actor auth.Identity) (*bid.Bid, error) {
		return s.bids.Reject(r.Context(), id, req.Reason, actor)
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.runBidAction(w, r, func(r *http.Request, id string, actor auth.Identity) (*bid.Bid, error) {
		return s.bids.Withdraw(r.Context(), id, actor)
	})
}

func writeBids(w http.ResponseWriter, bids []*bid.Bid) {
	if bids == nil {
		bids = []*bid.Bid{}
	}
	apiJSON(w, bids, http.StatusOK)
}
