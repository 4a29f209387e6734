package jwt

import (
	"errors"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/errors"
	jwt2 "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/infra/config"
	"github.com/golang-jwt/jwt/v5"
)

var (
	errEmptySecret = errors.New("signing secret is empty")
	errUnknownKind = errors.New("unknown token kind")
	errNoSubject   = errors.New("claim subject is empty")
)

// JwtUtilImpl signs and verifies HS256 tokens with a process-wide shared secret,
// so any instance holding the same secret verifies tokens issued by any other.
type JwtUtilImpl struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   string
	now        func() time.Time
}

func NewJWTUtil(cfg *config.Config) (*JwtUtilImpl, error) {
	if cfg.SecretKey == "" {
		return nil, customErrors.WrapInternal(errEmptySecret, "NewJWTUtil")
	}

	accessTTL, refreshTTL := cfg.AccessTokenTTL, cfg.RefreshTokenTTL
	if accessTTL <= 0 {
		accessTTL = config.DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = config.DefaultRefreshTokenTTL
	}

	return &JwtUtilImpl{
		secret:     []byte(cfg.SecretKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		now:        time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and verifying.
func (j *JwtUtilImpl) WithClock(now func() time.Time) *JwtUtilImpl {
	j.now = now
	return j
}

func (j *JwtUtilImpl) lifetime(kind jwt2.Kind) (time.Duration, bool) {
	switch kind {
	case jwt2.KindAccess:
		return j.accessTTL, true
	case jwt2.KindRefresh:
		return j.refreshTTL, true
	default:
		return 0, false
	}
}

func (j *JwtUtilImpl) Issue(kind jwt2.Kind, claim jwt2.Claim) (string, time.Time, error) {
	ttl, ok := j.lifetime(kind)
	if !ok {
		return "", time.Time{}, customErrors.WrapInternal(errUnknownKind, string(kind))
	}
	if claim.Subject == "" {
		return "", time.Time{}, customErrors.WrapInternal(errNoSubject, "Issue")
	}

	now := j.now()
	claims := jwt2.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claim.Subject,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	}
	if j.audience != "" {
		claims.Audience = jwt.ClaimStrings{j.audience}
	}
	if kind == jwt2.KindAccess {
		claims.Email = claim.Email
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "sign "+string(kind)+" token")
	}

	return signed, claims.ExpiresAt.Time, nil
}

func (j *JwtUtilImpl) Verify(kind jwt2.Kind, raw string) (jwt2.Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}

	var claims jwt2.Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, customErrors.ErrTokenInvalid
		}
		return j.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return jwt2.Claims{}, customErrors.ErrTokenInvalid
	}

	if claims.Kind != kind || claims.Subject == "" {
		return jwt2.Claims{}, customErrors.ErrTokenInvalid
	}

	return claims, nil
}
