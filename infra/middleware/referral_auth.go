package middleware

import (
	"strings"

	"referral_server/core/port/out"
	"referral_server/core/service/auth"
	"referral_server/pkg/apperr"
	"referral_server/pkg/logger"
	"referral_server/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	LocalUserID      = "user_id"
	LocalTokenClaims = "token_claims"

	msgMissingToken = "Unauthorized: missing token"
	msgInvalidToken = "Unauthorized: invalid token"
)

// AuthConfig wires the gate. Revocations and Metrics may be nil.
type AuthConfig struct {
	Tokens      *auth.TokenService
	Revocations out.TokenRevocationStore
	Metrics     *metrics.Metrics
}

// JWTAuth is the gate in front of every protected route. It trusts the token
// alone and never loads the user.
func JWTAuth(cfg AuthConfig) fiber.Handler {
	tokens, revocations := cfg.Tokens, cfg.Revocations

	return func(c *fiber.Ctx) error {
		// CORS preflight carries no credentials
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		tokenString, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			cfg.Metrics.AuthRejected(metrics.AuthMissingToken)
			return apperr.Unauthorized(msgMissingToken)
		}

		claims, err := tokens.Verify(tokenString)
		if err != nil {
			logger.WithField("request_id", requestIDFrom(c)).
				WithError(err).
				Warn("token rejected")
			cfg.Metrics.AuthRejected(metrics.AuthInvalidToken)
			return apperr.Unauthorized(msgInvalidToken)
		}

		if revocations != nil && claims.ID != "" {
			revoked, err := revocations.IsRevoked(c.UserContext(), claims.ID)
			if err != nil {
				// Fail open: an outage of the revocation store must not lock
				// everyone out.
				logger.WithError(err).Warn("revocation lookup failed, allowing token")
			} else if revoked {
				cfg.Metrics.AuthRejected(metrics.AuthRevoked)
				return apperr.Unauthorized(msgInvalidToken)
			}
		}

		c.Locals(LocalUserID, uuid.MustParse(claims.Subject))
		c.Locals(LocalTokenClaims, claims)
		return c.Next()
	}
}

// bearerToken extracts the token from "Bearer <token>". Anything else,
// including an empty token, counts as no token.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// ClaimsFrom returns the verified claims stored by JWTAuth.
func ClaimsFrom(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(LocalTokenClaims).(*auth.Claims)
	return claims, ok
}

func requestIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalRequestID).(string)
	return id
}
