// Package postgres stores users and providers as JSONB documents. Email and
// password hash are kept in columns so the unique index lives in the database.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-finder/internal/providers"
	"service-finder/internal/store"
	"service-finder/internal/users"
)

const uniqueViolation = "23505"

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrDuplicate
	}
	return err
}

// Users is the users table.
type Users struct {
	pool *pgxpool.Pool
}

func NewUsers(pool *pgxpool.Pool) *Users { return &Users{pool: pool} }

func (s *Users) Create(ctx context.Context, u *users.User) error {
	doc, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, doc, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.PasswordHash, doc, u.CreatedAt)
	return mapErr(err)
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	var (
		hash string
		doc  []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT password_hash, doc FROM users WHERE email = $1`, email).Scan(&hash, &doc)
	if err != nil {
		return nil, mapErr(err)
	}
	var u users.User
	if err := json.Unmarshal(doc, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	u.PasswordHash = hash
	return &u, nil
}

// Providers is the providers table.
type Providers struct {
	pool *pgxpool.Pool
}

func NewProviders(pool *pgxpool.Pool) *Providers { return &Providers{pool: pool} }

func (s *Providers) Create(ctx context.Context, p *providers.Provider) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode provider: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO providers (id, email, password_hash, doc, created_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Email, p.PasswordHash, doc, p.CreatedAt)
	return mapErr(err)
}

func (s *Providers) FindByEmail(ctx context.Context, email string) (*providers.Provider, error) {
	return scanProvider(s.pool.QueryRow(ctx,
		`SELECT password_hash, doc FROM providers WHERE email = $1`, email))
}

func (s *Providers) FindByID(ctx context.Context, id string) (*providers.Provider, error) {
	return scanProvider(s.pool.QueryRow(ctx,
		`SELECT password_hash, doc FROM providers WHERE id = $1`, id))
}

func (s *Providers) List(ctx context.Context, category providers.Category) ([]*providers.Provider, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT password_hash, doc FROM providers
		WHERE $1 = '' OR doc->>'serviceCategory' = $1
		ORDER BY created_at, id`, string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*providers.Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AppendReview pushes r onto doc.reviews in a single statement so concurrent
// appends never lose each other.
func (s *Providers) AppendReview(ctx context.Context, id string, r providers.Review) (*providers.Provider, error) {
	review, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode review: %w", err)
	}
	return scanProvider(s.pool.QueryRow(ctx, `
		UPDATE providers
		SET doc = jsonb_set(doc, '{reviews}', COALESCE(doc->'reviews', '[]'::jsonb) || jsonb_build_array($2::jsonb))
		WHERE id = $1
		RETURNING password_hash, doc`, id, review))
}

func scanProvider(row pgx.Row) (*providers.Provider, error) {
	var (
		hash string
		doc  []byte
	)
	if err := row.Scan(&hash, &doc); err != nil {
		return nil, mapErr(err)
	}
	var p providers.Provider
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode provider: %w", err)
	}
	p.PasswordHash = hash
	if p.Reviews == nil {
		p.Reviews = []providers.Review{}
	}
	return &p, nil
}
