package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/evcraddock/estate-bids/internal/bid"
	"github.com/evcraddock/estate-bids/internal/notify"
	"github.com/evcraddock/estate-bids/internal/profile"
	"github.com/evcraddock/estate-bids/internal/property"
	"github.com/evcraddock/estate-bids/internal/reconcile"
)

// Me returns the profile of the authenticated user.
func (c *Client) Me(ctx context.Context) (*profile.Profile, error) {
	return get[*profile.Profile](ctx, c, "/api/me")
}

// ListProfiles lists profiles, optionally by role.
func (c *Client) ListProfiles(ctx context.Context, role profile.Role) ([]*profile.Profile, error) {
	path := "/api/profiles"
	if role != "" {
		path += "?role=" + url.QueryEscape(string(role))
	}
	return get[[]*profile.Profile](ctx, c, path)
}

// GetProfile returns one profile.
func (c *Client) GetProfile(ctx context.Context, id string) (*profile.Profile, error) {
	return get[*profile.Profile](ctx, c, "/api/profiles/"+escape(id))
}

// CreateProfile registers a profile. A lost response is settled by looking
// the email up among profiles of that role.
func (c *Client) CreateProfile(ctx context.Context, email, name string, role profile.Role) (*profile.Profile, error) {
	body := map[string]string{"email": email, "name": name, "role": string(role)}
	return mutate(ctx, c, http.MethodPost, "/api/profiles", body, func(ctx context.Context) (*profile.Profile, bool, error) {
		profiles, err := c.ListProfiles(ctx, role)
		if err != nil {
			return nil, false, err
		}
		for _, p := range profiles {
			if equalFoldTrim(p.Email, email) {
				return p, true, nil
			}
		}
		return nil, false, nil
	})
}

// PropertyFilter controls filtering for ListProperties.
type PropertyFilter struct {
	Status        property.Status
	OwnerID       string
	AcceptingBids *bool
}

// ListProperties returns properties, optionally filtered.
func (c *Client) ListProperties(ctx context.Context, f PropertyFilter) ([]*property.Property, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.OwnerID != "" {
		q.Set("owner_id", f.OwnerID)
	}
	if f.AcceptingBids != nil {
		q.Set("accepting", strconv.FormatBool(*f.AcceptingBids))
	}
	path := "/api/properties"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return get[[]*property.Property](ctx, c, path)
}

// GetProperty returns one property.
func (c *Client) GetProperty(ctx context.Context, id string) (*property.Property, error) {
	return get[*property.Property](ctx, c, "/api/properties/"+escape(id))
}

// CreateProperty lists a new property.
func (c *Client) CreateProperty(ctx context.Context, in property.CreateInput) (*property.Property, error) {
	started := time.Now().Add(-time.Minute)
	return mutate(ctx, c, http.MethodPost, "/api/properties", in, func(ctx context.Context) (*property.Property, bool, error) {
		props, err := c.ListProperties(ctx, PropertyFilter{OwnerID: in.OwnerID})
		if err != nil {
			return nil, false, err
		}
		for _, p := range props {
			if p.Title == in.Title && p.Address == in.Address && p.CreatedAt.After(started) {
				return p, true, nil
			}
		}
		return nil, false, nil
	})
}

// UpdateListing applies a partial listing update.
func (c *Client) UpdateListing(ctx context.Context, id string, u property.ListingUpdate) (*property.Property, error) {
	return mutate(ctx, c, http.MethodPatch, "/api/properties/"+escape(id), u, func(ctx context.Context) (*property.Property, bool, error) {
		p, err := c.GetProperty(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return p, listingApplied(p, u), nil
	})
}

// TransferOwnership reassigns the owner. expectedOwnerID, when set, is the
// owner the caller last saw.
func (c *Client) TransferOwnership(ctx context.Context, id, newOwnerID, expectedOwnerID string) (*property.Property, error) {
	body := map[string]string{"new_owner_id": newOwnerID}
	if expectedOwnerID != "" {
		body["expected_owner_id"] = expectedOwnerID
	}
	return mutate(ctx, c, http.MethodPost, "/api/properties/"+escape(id)+"/owner", body, func(ctx context.Context) (*property.Property, bool, error) {
		p, err := c.GetProperty(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return p, p.OwnerID == newOwnerID, nil
	})
}

// ListTransfers returns the ownership audit log of a property.
func (c *Client) ListTransfers(ctx context.Context, id string) ([]*property.OwnershipTransfer, error) {
	return get[[]*property.OwnershipTransfer](ctx, c, "/api/properties/"+escape(id)+"/transfers")
}

// SubmitBid places a bid on a property. A lost response is settled by
// looking for the caller's live bid on that property.
func (c *Client) SubmitBid(ctx context.Context, propertyID string, in bid.SubmitInput) (*bid.Bid, error) {
	in.PropertyID = propertyID
	path := "/api/properties/" + escape(propertyID) + "/bids"
	return mutate(ctx, c, http.MethodPost, path, in, func(ctx context.Context) (*bid.Bid, bool, error) {
		mine, err := c.ListMyBids(ctx)
		if err != nil {
			return nil, false, err
		}
		for _, b := range mine {
			if b.PropertyID == propertyID && b.Status.IsLive() && b.Amount.Equal(in.Amount) {
				return b, true, nil
			}
		}
		return nil, false, nil
	})
}

// ListPropertyBids returns the bids on a property visible to the caller.
func (c *Client) ListPropertyBids(ctx context.Context, propertyID string) ([]*bid.Bid, error) {
	return get[[]*bid.Bid](ctx, c, "/api/properties/"+escape(propertyID)+"/bids")
}

// ListMyBids returns the caller's own bids.
func (c *Client) ListMyBids(ctx context.Context) ([]*bid.Bid, error) {
	return get[[]*bid.Bid](ctx, c, "/api/bids")
}

// GetBid returns one bid with its effective status.
func (c *Client) GetBid(ctx context.Context, id string) (*bid.Bid, error) {
	return get[*bid.Bid](ctx, c, "/api/bids/"+escape(id))
}

// ApproveByManager moves a pending bid to manager_approved.
func (c *Client) ApproveByManager(ctx context.Context, id string) (*bid.Bid, error) {
	return c.bidAction(ctx, id, "manager-approve", nil, bid.StatusManagerApproved)
}

// ApproveByOwner accepts a manager-approved bid.
func (c *Client) ApproveByOwner(ctx context.Context, id string) (*bid.Bid, error) {
	return c.bidAction(ctx, id, "owner-approve", nil, bid.StatusOwnerApproved)
}

// Reject declines a bid with an optional reason.
func (c *Client) Reject(ctx context.Context, id, reason string) (*bid.Bid, error) {
	return c.bidAction(ctx, id, "reject", map[string]string{"reason": reason}, bid.StatusRejected)
}

// Withdraw retracts the caller's bid.
func (c *Client) Withdraw(ctx context.Context, id string) (*bid.Bid, error) {
	return c.bidAction(ctx, id, "withdraw", nil, bid.StatusWithdrawn)
}

func (c *Client) bidAction(ctx context.Context, id, action string, body interface{}, target bid.Status) (*bid.Bid, error) {
	path := "/api/bids/" + escape(id) + "/" + action
	return mutate(ctx, c, http.MethodPost, path, body, func(ctx context.Context) (*bid.Bid, bool, error) {
		b, err := c.GetBid(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return b, b.Status == target, nil
	})
}

// Notifications returns the caller's inbox.
func (c *Client) Notifications(ctx context.Context, unreadOnly bool) ([]*notify.Notification, error) {
	path := "/api/notifications"
	if unreadOnly {
		path += "?unread=true"
	}
	return get[[]*notify.Notification](ctx, c, path)
}

// MarkRead marks one notification read. Repeating it is harmless, so it is
// retried like a read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	_, err := reconcile.Read(ctx, c.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.do(ctx, http.MethodPost, "/api/notifications/"+escape(id)+"/read", nil, nil)
	})
	return err
}

func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// listingApplied reports whether p reflects every field set in u.
func listingApplied(p *property.Property, u property.ListingUpdate) bool {
	if u.Status != nil && p.Status != *u.Status {
		return false
	}
	if u.IsAcceptingBids != nil && p.IsAcceptingBids != *u.IsAcceptingBids {
		return false
	}
	if u.ListingType != nil && p.ListingType != *u.ListingType {
		return false
	}
	if u.ManagerID != nil && p.ManagerID != *u.ManagerID {
		return false
	}
	if u.ClearMinimum && p.MinimumBidAmount.Valid {
		return false
	}
	if u.ClearMaximum && p.MaximumBidAmount.Valid {
		return false
	}
	if u.MinimumBidAmount != nil && !sameBound(p.MinimumBidAmount, *u.MinimumBidAmount) {
		return false
	}
	if u.MaximumBidAmount != nil && !sameBound(p.MaximumBidAmount, *u.MaximumBidAmount) {
		return false
	}
	return true
}

func sameBound(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}
