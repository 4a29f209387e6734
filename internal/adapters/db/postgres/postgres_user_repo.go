package postgres

import (
	"context"
	"errors"

	customErrors "github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/errors"
	"github.com/Miraines/MoonyAndStarry/blog-service/internal/domain/auth/model"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgresUserRepo relies on the unique indexes on users.identifier and
// users.email; a violating INSERT is the only uniqueness authority.
type PostgresUserRepo struct {
	db *gorm.DB
}

func NewPostgresUserRepo(db *gorm.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func (p *PostgresUserRepo) CreateUser(ctx context.Context, user model.User) (uuid.UUID, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	res := p.db.WithContext(ctx).Create(&user)
	if err := res.Error; err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, customErrors.ErrUserExists
		}
		return uuid.Nil, customErrors.WrapInternal(err, "CreateUser")
	}
	return user.ID, nil
}

func (p *PostgresUserRepo) GetUserByIdentifier(ctx context.Context, identifier string) (model.User, error) {
	var u model.User
	res := p.db.WithContext(ctx).Where("identifier = ?", identifier).First(&u)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return model.User{}, customErrors.ErrUserDoesNotExist
	}
	if err := res.Error; err != nil {
		return model.User{}, customErrors.WrapInternal(err, "GetUserByIdentifier")
	}

	return u, nil
}

func (p *PostgresUserRepo) ExistsByIdentifierOrEmail(ctx context.Context, identifier, email string) (bool, error) {
	var n int64
	res := p.db.WithContext(ctx).
		Model(&model.User{}).
		Where("identifier = ? OR email = ?", identifier, email).
		Count(&n)
	if err := res.Error; err != nil {
		return false, customErrors.WrapInternal(err, "ExistsByIdentifierOrEmail")
	}
	return n > 0, nil
}

func (p *PostgresUserRepo) DeleteUser(ctx context.Context, identifier string) error {
	res := p.db.WithContext(ctx).Where("identifier = ?", identifier).Delete(&model.User{})
	if err := res.Error; err != nil {
		return customErrors.WrapInternal(err, "DeleteUser")
	}
	if res.RowsAffected == 0 {
		return customErrors.ErrUserDoesNotExist
	}

	return nil
}

func (p *PostgresUserRepo) Ping(ctx context.Context) error {
	return p.db.WithContext(ctx).Exec("SELECT 1").Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
