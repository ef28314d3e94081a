package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReferralStatus is the lifecycle state of a referral posting.
type ReferralStatus string

const (
	ReferralStatusPending  ReferralStatus = "Pending"
	ReferralStatusAccepted ReferralStatus = "Accepted"
	ReferralStatusClosed   ReferralStatus = "Closed"
)

func (s ReferralStatus) IsValid() bool {
	switch s {
	case ReferralStatusPending, ReferralStatusAccepted, ReferralStatusClosed:
		return true
	}
	return false
}

// ReferralStatuses lists the allowed values in display order.
func ReferralStatuses() []ReferralStatus {
	return []ReferralStatus{ReferralStatusPending, ReferralStatusAccepted, ReferralStatusClosed}
}

type Referral struct {
	ID          uuid.UUID      `json:"id"`
	UserID      uuid.UUID      `json:"user_id"`
	Title       string         `json:"title"`
	Company     string         `json:"company"`
	Description string         `json:"description"`
	Status      ReferralStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// FeedReferral is a referral as shown on the public feed: the raw owner id
// is replaced by the owner's name and email, under the same user_id key.
type FeedReferral struct {
	ID          uuid.UUID      `json:"id"`
	Owner       *OwnerView     `json:"user_id"`
	Title       string         `json:"title"`
	Company     string         `json:"company"`
	Description string         `json:"description"`
	Status      ReferralStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ToFeed builds the feed entry. owner may be nil when the user no longer exists.
func (r *Referral) ToFeed(owner *User) FeedReferral {
	fr := FeedReferral{
		ID:          r.ID,
		Title:       r.Title,
		Company:     r.Company,
		Description: r.Description,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if owner != nil {
		v := owner.OwnerView()
		fr.Owner = &v
	}
	return fr
}

// Page bounds a list query. A nil *Page means no bound.
type Page struct {
	Offset int
	Limit  int
}
