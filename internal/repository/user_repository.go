package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRepository is the user directory. List preserves directory order.
type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	FirstByRole(ctx context.Context, role domain.Role) (domain.User, error)
	Upsert(ctx context.Context, user domain.User) error
}

type userRepository struct {
	pool querier
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, role, email FROM users ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Role, &user.Email); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *userRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `SELECT id, name, role, email FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) FirstByRole(ctx context.Context, role domain.Role) (domain.User, error) {
	const query = `SELECT id, name, role, email FROM users WHERE role=$1 ORDER BY seq LIMIT 1`
	return r.fetchSingle(ctx, query, role)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Name, &user.Role, &user.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func (r *userRepository) Upsert(ctx context.Context, user domain.User) error {
	const query = `
        INSERT INTO users (id, name, role, email) VALUES ($1,$2,$3,$4)
        ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, role=EXCLUDED.role, email=EXCLUDED.email`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Name, user.Role, user.Email)
	return err
}
