// Package auth issues and verifies the signed session tokens carried in the
// `token` cookie.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"social/internal/models"
	"social/internal/util"
)

const SessionTTL = 7 * 24 * time.Hour

var errMissingSubject = errors.New("token has no user")

type claims struct {
	User string `json:"user"`
	jwt.RegisteredClaims
}

// Issuer signs tokens with an HMAC secret. It holds no per-session state:
// a token stays valid until it expires.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  util.Clock
}

func NewIssuer(secret string, clock util.Clock) *Issuer {
	if clock == nil {
		clock = util.System
	}
	return &Issuer{secret: []byte(secret), ttl: SessionTTL, clock: clock}
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue returns a token for userID and its absolute expiry.
func (i *Issuer) Issue(userID string) (string, time.Time, error) {
	now := i.clock.NowUtc()
	expires := now.Add(i.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		User: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "signing token")
	}
	return signed, expires, nil
}

// Verify returns the user id carried by token. Missing, malformed, tampered
// and expired tokens all fail with an unauthenticated error.
func (i *Issuer) Verify(token string) (string, error) {
	if token == "" {
		return "", models.Unauthenticated("Invalid token or invalid username", nil)
	}
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.NowUtc),
	)
	if err == nil && c.User == "" {
		err = errMissingSubject
	}
	if err != nil {
		return "", models.Unauthenticated("User is not authenticated, please login to access this resource", err)
	}
	return c.User, nil
}
