// Package notify delivers workflow events to users. Delivery is
// fire-and-forget: a failed notification never fails the state change that
// produced it.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Kind names the event a notification reports.
type Kind string

const (
	BidSubmitted         Kind = "bid_submitted"
	BidManagerApproved   Kind = "bid_manager_approved"
	BidAccepted          Kind = "bid_accepted"
	BidRejected          Kind = "bid_rejected"
	BidWithdrawn         Kind = "bid_withdrawn"
	OwnershipTransferred Kind = "ownership_transferred"
)

// Notification is a message for one user.
type Notification struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Kind       Kind       `json:"kind"`
	PropertyID string     `json:"property_id,omitempty"`
	BidID      string     `json:"bid_id,omitempty"`
	Message    string     `json:"message"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

// New builds a notification with a fresh ID. The ID doubles as the
// deduplication key when the notification is redelivered.
func New(userID string, kind Kind, propertyID, bidID, message string) Notification {
	return Notification{
		ID:         uuid.NewString(),
		UserID:     userID,
		Kind:       kind,
		PropertyID: propertyID,
		BidID:      bidID,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}
}
