package auth

import (
	"referral_server/pkg/apperr"

	"github.com/google/uuid"
)

// Decision is the outcome of an ownership check.
type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// AuthorizeMutation allows a mutation only when the requester created the
// resource. It is a pure comparison; reads never go through it.
func AuthorizeMutation(ownerID, requesterID uuid.UUID) Decision {
	if requesterID == uuid.Nil || ownerID != requesterID {
		return Denied
	}
	return Allowed
}

// Err maps Denied to a 403, distinct from the Auth Gate's 401.
func (d Decision) Err() error {
	if d == Allowed {
		return nil
	}
	return apperr.Forbidden("Only the owner can modify this referral")
}
