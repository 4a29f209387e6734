package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/Miraines/MoonyAndStarry/blog-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/app/auth/password"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/app/auth/validator"
	customErrors "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/model"
	repo "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/repo"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service interface {
	SignUp(context.Context, dto.SignUpDTO) (model.TokenPair, error)
	SignIn(context.Context, dto.SignInDTO) (model.TokenPair, error)
	Check(context.Context, dto.CheckDTO) (model.TokenPair, error)
}

type authService struct {
	userRepo repo.UserRepo
	limiter  repo.AttemptLimiter
	jwtUtil  jwt.Codec
	hasher   password.Hasher
	v        *validator.Validator
	log      *zap.Logger
}

// New wires the session service. limiter and log may be nil: sign-in is then
// unthrottled and nothing is logged.
func New(
	ur repo.UserRepo,
	jm jwt.Codec,
	h password.Hasher,
	v *validator.Validator,
	limiter repo.AttemptLimiter,
	log *zap.Logger,
) Service {
	if limiter == nil {
		limiter = noopLimiter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &authService{
		userRepo: ur, limiter: limiter, jwtUtil: jm, hasher: h, v: v, log: log,
	}
}

func (a *authService) SignUp(ctx context.Context, in dto.SignUpDTO) (model.TokenPair, error) {
	if err := a.v.Struct(in); err != nil {
		return model.TokenPair{}, err
	}

	exists, err := a.userRepo.ExistsByIdentifierOrEmail(ctx, in.Identifier, in.Email)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "SignUp")
	}
	if exists {
		return model.TokenPair{}, customErrors.ErrUserExists
	}

	if err := ctx.Err(); err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "SignUp")
	}
	passwordHash, err := a.hasher.Hash(in.Password)
	switch {
	case errors.Is(err, password.ErrTooLong):
		return model.TokenPair{}, customErrors.NewInputInvalid("password")
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "SignUp")
	}

	user := model.User{
		ID:           uuid.New(),
		Identifier:   in.Identifier,
		Email:        in.Email,
		PasswordHash: passwordHash,
	}
	if _, err = a.userRepo.CreateUser(ctx, user); err != nil {
		if customErrors.IsUserExists(err) {
			// lost the race against a concurrent sign-up
			return model.TokenPair{}, customErrors.ErrUserExists
		}
		return model.TokenPair{}, customErrors.WrapInternal(err, "SignUp")
	}

	a.log.Info("user signed up", zap.String("user", fingerprint(user.Identifier)))
	return a.issueTokens(user)
}

func (a *authService) SignIn(ctx context.Context, in dto.SignInDTO) (model.TokenPair, error) {
	if err := a.v.Struct(in); err != nil {
		return model.TokenPair{}, err
	}

	allowed, err := a.limiter.Allow(ctx, in.Identifier)
	if err != nil {
		a.log.Warn("attempt limiter unavailable", zap.Error(err))
	} else if !allowed {
		return model.TokenPair{}, customErrors.ErrTooManyAttempts
	}

	user, err := a.userRepo.GetUserByIdentifier(ctx, in.Identifier)
	switch {
	case customErrors.IsUserDoesNotExist(err):
		a.recordFailure(ctx, in.Identifier)
		return model.TokenPair{}, customErrors.ErrUserDoesNotExist
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "SignIn")
	}

	if !a.hasher.Compare(in.Password, user.PasswordHash) {
		a.recordFailure(ctx, in.Identifier)
		return model.TokenPair{}, customErrors.ErrPasswordIncorrect
	}

	if err := a.limiter.Reset(ctx, in.Identifier); err != nil {
		a.log.Warn("reset sign-in attempts", zap.Error(err))
	}
	return a.issueTokens(user)
}

// Check renews the access token. A still-valid access token short-circuits
// without touching the store; the refresh token is handed back unchanged.
func (a *authService) Check(ctx context.Context, in dto.CheckDTO) (model.TokenPair, error) {
	if strings.TrimSpace(in.AccessToken) == "" || strings.TrimSpace(in.RefreshToken) == "" {
		return model.TokenPair{}, customErrors.ErrTokenEmpty
	}

	if _, err := a.jwtUtil.Verify(jwt.KindAccess, in.AccessToken); err == nil {
		return model.TokenPair{AccessToken: in.AccessToken, RefreshToken: in.RefreshToken}, nil
	}

	claims, err := a.jwtUtil.Verify(jwt.KindRefresh, in.RefreshToken)
	if err != nil {
		return model.TokenPair{}, customErrors.ErrTokenInvalid
	}

	user, err := a.userRepo.GetUserByIdentifier(ctx, claims.Subject)
	switch {
	case customErrors.IsUserDoesNotExist(err):
		return model.TokenPair{}, customErrors.ErrUserDoesNotExist
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Check")
	}

	at, _, err := a.jwtUtil.Issue(jwt.KindAccess, jwt.Claim{Subject: user.Identifier, Email: user.Email})
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "Check")
	}

	a.log.Debug("access token renewed", zap.String("user", fingerprint(user.Identifier)))
	return model.TokenPair{AccessToken: at, RefreshToken: in.RefreshToken}, nil
}

func (a *authService) issueTokens(user model.User) (model.TokenPair, error) {
	at, _, err := a.jwtUtil.Issue(jwt.KindAccess, jwt.Claim{Subject: user.Identifier, Email: user.Email})
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "issue access token")
	}
	rt, _, err := a.jwtUtil.Issue(jwt.KindRefresh, jwt.Claim{Subject: user.Identifier})
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "issue refresh token")
	}
	return model.TokenPair{AccessToken: at, RefreshToken: rt}, nil
}

func (a *authService) recordFailure(ctx context.Context, identifier string) {
	if err := a.limiter.RecordFailure(ctx, identifier); err != nil {
		a.log.Warn("record failed sign-in", zap.Error(err))
	}
}

// fingerprint keeps raw identifiers out of the logs.
func fingerprint(s string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(s)))[:16]
}

type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string) (bool, error)  { return true, nil }
func (noopLimiter) RecordFailure(context.Context, string) error { return nil }
func (noopLimiter) Reset(context.Context, string) error         { return nil }
