package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-ops/internal/domain"
)

type PGUserStore struct {
	pool *pgxpool.Pool
}

func NewPGUserStore(pool *pgxpool.Pool) *PGUserStore { return &PGUserStore{pool: pool} }

func (s *PGUserStore) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	var role string
	err := s.pool.QueryRow(ctx, `
SELECT id, company_id, username, password_hash, role, is_active, created_at
FROM users WHERE username = $1
`, username).Scan(&u.ID, &u.CompanyID, &u.Username, &u.PasswordHash, &role, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	u.Role = domain.Role(role)
	return u, nil
}
