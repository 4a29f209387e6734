package memory

import (
	"context"
	"sync"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/model"
	"github.com/google/uuid"
)

// UserRepo is a process-local credential store for development and tests.
// Uniqueness is checked and the record written under one lock.
type UserRepo struct {
	mu           sync.RWMutex
	byIdentifier map[string]model.User
	emails       map[string]struct{}
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byIdentifier: make(map[string]model.User),
		emails:       make(map[string]struct{}),
	}
}

func (r *UserRepo) CreateUser(ctx context.Context, u model.User) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, customErrors.WrapInternal(err, "CreateUser")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byIdentifier[u.Identifier]; ok {
		return uuid.Nil, customErrors.ErrUserExists
	}
	if _, ok := r.emails[u.Email]; ok {
		return uuid.Nil, customErrors.ErrUserExists
	}

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now

	r.byIdentifier[u.Identifier] = u
	r.emails[u.Email] = struct{}{}
	return u.ID, nil
}

func (r *UserRepo) GetUserByIdentifier(ctx context.Context, identifier string) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, customErrors.WrapInternal(err, "GetUserByIdentifier")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byIdentifier[identifier]
	if !ok {
		return model.User{}, customErrors.ErrUserDoesNotExist
	}
	return u, nil
}

func (r *UserRepo) ExistsByIdentifierOrEmail(ctx context.Context, identifier, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, customErrors.WrapInternal(err, "ExistsByIdentifierOrEmail")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, idTaken := r.byIdentifier[identifier]
	_, emailTaken := r.emails[email]
	return idTaken || emailTaken, nil
}

// DeleteUser removes the record for identifier and releases its email.
func (r *UserRepo) DeleteUser(_ context.Context, identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byIdentifier[identifier]
	if !ok {
		return customErrors.ErrUserDoesNotExist
	}
	delete(r.byIdentifier, identifier)
	delete(r.emails, u.Email)
	return nil
}

func (r *UserRepo) Ping(ctx context.Context) error {
	return ctx.Err()
}
