package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes the two token flavours; each has its own fixed lifetime.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the signed payload. Email is only embedded in access tokens so the
// gate can resolve an identity without a store lookup.
type Claims struct {
	jwt.RegisteredClaims
	Kind  Kind   `json:"kind"`
	Email string `json:"email,omitempty"`
}

// Claim holds the caller-supplied fields of a token.
type Claim struct {
	Subject string
	Email   string
}

type Codec interface {
	Issue(kind Kind, claim Claim) (token string, exp time.Time, err error)
	// Verify never fails with anything but errors.ErrTokenInvalid, whatever raw holds.
	Verify(kind Kind, raw string) (Claims, error)
}
