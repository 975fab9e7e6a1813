package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"race-quiz-service/internal/domain"
)

// UserStore persists users as JSONB rows. The password hash is excluded from
// the domain type's JSON form on purpose, so the row document uses its own
// record shape.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

type userRecord struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"passwordHash"`
	Role         domain.Role `json:"role"`
	CreatedAt    time.Time   `json:"createdAt"`
}

func toRecord(user domain.User) userRecord {
	return userRecord{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		CreatedAt:    user.CreatedAt,
	}
}

func (r userRecord) toUser() domain.User {
	return domain.User{
		ID:           r.ID,
		Email:        r.Email,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Role:         r.Role,
		CreatedAt:    r.CreatedAt,
	}
}

func (s *UserStore) Create(ctx context.Context, user domain.User) error {
	data, err := json.Marshal(toRecord(user))
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, email, created_at, data) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Email, user.CreatedAt, data)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) Get(ctx context.Context, id string) (domain.User, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM users WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return unmarshalUser(raw)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM users WHERE email = $1`, email).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("load user by email: %w", err)
	}
	user, err := unmarshalUser(raw)
	if err != nil {
		return domain.User{}, false, err
	}
	return user, true, nil
}

func (s *UserStore) List(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user, err := unmarshalUser(raw)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *UserStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (s *UserStore) SetRole(ctx context.Context, id string, role domain.Role) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET data = jsonb_set(data, '{role}', to_jsonb($2::text)) WHERE id = $1`,
		id, string(role))
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func unmarshalUser(raw []byte) (domain.User, error) {
	var record userRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal user: %w", err)
	}
	return record.toUser(), nil
}
