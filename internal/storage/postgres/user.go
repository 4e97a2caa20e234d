package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/food-orders/internal/domain/auth"
	"github.com/xenking/food-orders/internal/domain/user"
)

var _ user.Repository = (*UserRepository)(nil)

const userColumns = `id, email, name, phone, address, role, created_at`

const (
	getUserByIDSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	countUsersSQL     = `SELECT count(*) FROM users WHERE role = $1`
	insertUserSQL     = `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u    user.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.Address, &role, &u.CreatedAt)
	u.Role = auth.Role(role)
	return u, err
}

func (r *UserRepository) findOne(ctx context.Context, query, arg string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("finding user %q: %w", arg, err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("finding user %q: %w", arg, err)
	}
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	return r.findOne(ctx, getUserByIDSQL, id)
}

// FindByEmail matches the email case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.findOne(ctx, getUserByEmailSQL, email)
}

func (r *UserRepository) CountByRole(ctx context.Context, role auth.Role) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, countUsersSQL, string(role)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s users: %w", role, err)
	}
	return n, nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if _, err := r.pool.Exec(ctx, insertUserSQL, u.ID, u.Email, u.Name, u.Phone,
		u.Address, string(u.Role), u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("creating user %q: %w", u.Email, user.ErrDuplicateEmail)
		}
		return fmt.Errorf("creating user %q: %w", u.Email, err)
	}
	return nil
}
