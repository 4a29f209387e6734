package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Miraines/MoonyAndStarry/blog-service/internal/adapters/db/memory"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/adapters/transport/http/dto"
	appjwt "github.com/Miraines/MoonyAndStarry/blog-service/internal/app/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/app/auth/password"
	appsvc "github.com/Miraines/MoonyAndStarry/blog-service/internal/app/auth/service"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/app/auth/validator"
	authErrors "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/model"
	repo "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/repo"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/infra/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

/* ──────────────────────────────── stubs ──────────────────────────────── */

// countingRepo records every store access.
type countingRepo struct {
	*memory.UserRepo
	calls   atomic.Int32
	creates atomic.Int32
}

func (c *countingRepo) CreateUser(ctx context.Context, u model.User) (uuid.UUID, error) {
	c.calls.Add(1)
	c.creates.Add(1)
	return c.UserRepo.CreateUser(ctx, u)
}

func (c *countingRepo) GetUserByIdentifier(ctx context.Context, id string) (model.User, error) {
	c.calls.Add(1)
	return c.UserRepo.GetUserByIdentifier(ctx, id)
}

func (c *countingRepo) ExistsByIdentifierOrEmail(ctx context.Context, id, email string) (bool, error) {
	c.calls.Add(1)
	return c.UserRepo.ExistsByIdentifierOrEmail(ctx, id, email)
}

type brokenRepo struct{ *memory.UserRepo }

func (brokenRepo) GetUserByIdentifier(context.Context, string) (model.User, error) {
	return model.User{}, errors.New("connection refused")
}

func (brokenRepo) ExistsByIdentifierOrEmail(context.Context, string, string) (bool, error) {
	return false, errors.New("connection refused")
}

// racingRepo reports no conflict on the pre-check, then loses the insert.
type racingRepo struct{ *memory.UserRepo }

func (racingRepo) ExistsByIdentifierOrEmail(context.Context, string, string) (bool, error) {
	return false, nil
}

func (racingRepo) CreateUser(context.Context, model.User) (uuid.UUID, error) {
	return uuid.Nil, authErrors.ErrUserExists
}

type limiterStub struct {
	mu       sync.Mutex
	blocked  bool
	failures map[string]int
	resets   int
}

func (l *limiterStub) Allow(context.Context, string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.blocked, nil
}

func (l *limiterStub) RecordFailure(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[id]++
	return nil
}

func (l *limiterStub) Reset(context.Context, string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resets++
	return nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

/* ───────────────────────────── helpers ───────────────────────────── */

type fixture struct {
	svc     appsvc.Service
	repo    *countingRepo
	codec   *appjwt.JwtUtilImpl
	clock   *clock
	limiter *limiterStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cr := &countingRepo{UserRepo: memory.NewUserRepo()}
	f := newFixtureWith(t, cr)
	f.repo = cr
	return f
}

func newFixtureWith(t *testing.T, ur repo.UserRepo) *fixture {
	t.Helper()
	codec, err := appjwt.NewJWTUtil(&config.Config{
		SecretKey:       "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
	require.NoError(t, err)
	c := &clock{t: time.Now()}
	codec.WithClock(c.Now)

	limiter := &limiterStub{failures: map[string]int{}}
	svc := appsvc.New(ur, codec, &password.BcryptHasher{Cost: 4}, validator.New(), limiter, nil)
	return &fixture{svc: svc, codec: codec, clock: c, limiter: limiter}
}

var alice = dto.SignUpDTO{Identifier: "alice1", Email: "a@x.com", Password: "Aa1!aaaa"}

/* ───────────────────────────── tests ───────────────────────────── */

func TestAuthService_SignUpSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.SignUp(ctx, alice)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := f.codec.Verify(jwt.KindAccess, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice1", claims.Subject)
	require.Equal(t, "a@x.com", claims.Email)

	stored, err := f.repo.UserRepo.GetUserByIdentifier(ctx, "alice1")
	require.NoError(t, err)
	require.NotEqual(t, alice.Password, stored.PasswordHash)

	pair2, err := f.svc.SignIn(ctx, dto.SignInDTO{Identifier: "alice1", Password: "Aa1!aaaa"})
	require.NoError(t, err)
	require.NotEmpty(t, pair2.RefreshToken)
	require.Equal(t, 1, f.limiter.resets)
}

func TestAuthService_SignUpInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, dto.SignUpDTO{})
	require.True(t, authErrors.IsInputEmpty(err))

	_, err = f.svc.SignUp(ctx, dto.SignUpDTO{Identifier: "alice1", Email: "a@x.com", Password: "weakpass"})
	require.True(t, authErrors.IsInputInvalid(err))

	_, err = f.svc.SignUp(ctx, dto.SignUpDTO{Identifier: "al", Email: "a@x.com", Password: "Aa1!aaaa"})
	require.True(t, authErrors.IsInputInvalid(err))

	require.Zero(t, f.repo.calls.Load(), "validation failures must not reach the store")
}

func TestAuthService_SignUpDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, alice)
	require.NoError(t, err)

	_, err = f.svc.SignUp(ctx, alice)
	require.True(t, authErrors.IsUserExists(err))

	_, err = f.svc.SignUp(ctx, dto.SignUpDTO{Identifier: "alice1", Email: "other@x.com", Password: "Aa1!aaaa"})
	require.True(t, authErrors.IsUserExists(err))

	_, err = f.svc.SignUp(ctx, dto.SignUpDTO{Identifier: "other1", Email: "a@x.com", Password: "Aa1!aaaa"})
	require.True(t, authErrors.IsUserExists(err))

	require.Equal(t, int32(1), f.repo.creates.Load(), "conflicts must not insert")
}

func TestAuthService_SignUpLostRace(t *testing.T) {
	f := newFixtureWith(t, racingRepo{memory.NewUserRepo()})
	_, err := f.svc.SignUp(context.Background(), alice)
	require.True(t, authErrors.IsUserExists(err))
}

func TestAuthService_SignUpConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ok, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SignUp(ctx, alice)
			switch {
			case err == nil:
				ok.Add(1)
			case authErrors.IsUserExists(err):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), ok.Load())
	require.Equal(t, int32(7), conflicts.Load())
}

func TestAuthService_SignInErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, alice)
	require.NoError(t, err)

	_, err = f.svc.SignIn(ctx, dto.SignInDTO{Identifier: "alice1", Password: "wrong"})
	require.True(t, authErrors.IsPasswordIncorrect(err), "got %v", err)

	_, err = f.svc.SignIn(ctx, dto.SignInDTO{Identifier: "nobody1", Password: "Aa1!aaaa"})
	require.True(t, authErrors.IsUserDoesNotExist(err), "got %v", err)
	require.False(t, authErrors.IsPasswordIncorrect(err))

	_, err = f.svc.SignIn(ctx, dto.SignInDTO{Identifier: "alice1"})
	require.True(t, authErrors.IsInputEmpty(err))

	_, err = f.svc.SignIn(ctx, dto.SignInDTO{Identifier: "ali", Password: "Aa1!aaaa"})
	require.True(t, authErrors.IsInputInvalid(err))

	require.Equal(t, 1, f.limiter.failures["alice1"])
	require.Equal(t, 1, f.limiter.failures["nobody1"])
}

func TestAuthService_SignInThrottled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, alice)
	require.NoError(t, err)

	f.limiter.blocked = true
	_, err = f.svc.SignIn(ctx, dto.SignInDTO{Identifier: "alice1", Password: "Aa1!aaaa"})
	require.True(t, authErrors.IsTooManyAttempts(err))
}

func TestAuthService_CheckValidAccessSkipsStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.SignUp(ctx, alice)
	require.NoError(t, err)
	before := f.repo.calls.Load()

	got, err := f.svc.Check(ctx, dto.CheckDTO{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	require.Equal(t, pair, got)
	require.Equal(t, before, f.repo.calls.Load(), "fast path must not touch the store")
}

func TestAuthService_CheckRenewsExpiredAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.SignUp(ctx, alice)
	require.NoError(t, err)

	f.clock.t = f.clock.t.Add(2 * time.Hour)
	_, err = f.codec.Verify(jwt.KindAccess, pair.AccessToken)
	require.Error(t, err)

	got, err := f.svc.Check(ctx, dto.CheckDTO{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, got.AccessToken)
	require.Equal(t, pair.RefreshToken, got.RefreshToken)

	claims, err := f.codec.Verify(jwt.KindAccess, got.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice1", claims.Subject)
	require.Equal(t, "a@x.com", claims.Email)
}

func TestAuthService_CheckBothExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.SignUp(ctx, alice)
	require.NoError(t, err)

	f.clock.t = f.clock.t.Add(25 * time.Hour)
	_, err = f.svc.Check(ctx, dto.CheckDTO{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
	require.True(t, authErrors.IsTokenInvalid(err))
}

func TestAuthService_CheckGarbage(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Check(context.Background(), dto.CheckDTO{AccessToken: "bad", RefreshToken: "worse"})
	require.True(t, authErrors.IsTokenInvalid(err))
}

func TestAuthService_CheckAccessAsRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.SignUp(ctx, alice)
	require.NoError(t, err)

	f.clock.t = f.clock.t.Add(2 * time.Hour)
	_, err = f.svc.Check(ctx, dto.CheckDTO{AccessToken: pair.AccessToken, RefreshToken: pair.AccessToken})
	require.True(t, authErrors.IsTokenInvalid(err))
}

func TestAuthService_CheckEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Check(ctx, dto.CheckDTO{AccessToken: "a"})
	require.True(t, authErrors.IsTokenEmpty(err))

	_, err = f.svc.Check(ctx, dto.CheckDTO{AccessToken: " ", RefreshToken: "r"})
	require.True(t, authErrors.IsTokenEmpty(err))
}

func TestAuthService_CheckDeletedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair, err := f.svc.SignUp(ctx, alice)
	require.NoError(t, err)
	require.NoError(t, f.repo.DeleteUser(ctx, "alice1"))

	f.clock.t = f.clock.t.Add(2 * time.Hour)
	_, err = f.svc.Check(ctx, dto.CheckDTO{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
	require.True(t, authErrors.IsUserDoesNotExist(err))
}

func TestAuthService_InternalErrors(t *testing.T) {
	f := newFixtureWith(t, brokenRepo{memory.NewUserRepo()})
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, alice)
	require.True(t, authErrors.IsInternal(err))

	_, err = f.svc.SignIn(ctx, dto.SignInDTO{Identifier: "alice1", Password: "Aa1!aaaa"})
	require.True(t, authErrors.IsInternal(err))

	refresh, _, err := f.codec.Issue(jwt.KindRefresh, jwt.Claim{Subject: "alice1"})
	require.NoError(t, err)
	_, err = f.svc.Check(ctx, dto.CheckDTO{AccessToken: "expired", RefreshToken: refresh})
	require.True(t, authErrors.IsInternal(err))
}
