package chat

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"restaurant-ops/internal/domain"
)

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore { return &PGStore{pool: pool} }

func (s *PGStore) SaveMessage(ctx context.Context, m *domain.ChatMessage) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO chat_messages (id, company_id, channel, user_id, username, content, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, m.ID, m.CompanyID, m.Channel, m.UserID, m.Username, m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (s *PGStore) ListMessages(ctx context.Context, companyID, channel string, limit, offset int) ([]domain.ChatMessage, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, company_id, channel, user_id, username, content, created_at
FROM chat_messages
WHERE company_id = $1 AND channel = $2
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`, companyID, channel, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.CompanyID, &m.Channel, &m.UserID, &m.Username, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
