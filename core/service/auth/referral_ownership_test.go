package auth

import (
	"net/http"
	"testing"

	"referral_server/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAuthorizeMutation(t *testing.T) {
	ann := uuid.New()
	bob := uuid.New()

	tests := []struct {
		name      string
		owner     uuid.UUID
		requester uuid.UUID
		want      Decision
	}{
		{"owner", ann, ann, Allowed},
		{"other user", ann, bob, Denied},
		{"no requester", ann, uuid.Nil, Denied},
		{"both empty", uuid.Nil, uuid.Nil, Denied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AuthorizeMutation(tt.owner, tt.requester))
		})
	}
}

func TestDecision_Err(t *testing.T) {
	assert.NoError(t, Allowed.Err())

	err := Denied.Err()
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, http.StatusForbidden, apperr.GetHTTPStatus(err))
}
