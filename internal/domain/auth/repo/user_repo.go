package repo

import (
	"context"

	"github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/model"
	"github.com/google/uuid"
)

type UserRepo interface {
	// CreateUser inserts u only if neither its identifier nor its email is taken.
	// A conflicting insert fails with errors.ErrUserExists and writes nothing.
	CreateUser(ctx context.Context, u model.User) (uuid.UUID, error)

	// GetUserByIdentifier returns errors.ErrUserDoesNotExist on a miss.
	GetUserByIdentifier(ctx context.Context, identifier string) (model.User, error)

	ExistsByIdentifierOrEmail(ctx context.Context, identifier, email string) (bool, error)
}

// AttemptLimiter throttles failed sign-in attempts per identifier.
type AttemptLimiter interface {
	Allow(ctx context.Context, identifier string) (bool, error)

	RecordFailure(ctx context.Context, identifier string) error

	Reset(ctx context.Context, identifier string) error
}

// Pinger is implemented by backends the health endpoint probes.
type Pinger interface {
	Ping(ctx context.Context) error
}
