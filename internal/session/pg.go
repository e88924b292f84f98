package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists sessions in Postgres so a restart does not force every
// user through a fresh login. Per-user atomicity is the same keyed-mutex
// scheme as the memory store; the database is only the backing copy.
type PGStore struct {
	pool  *pgxpool.Pool
	users *keyedMutex
	nowF  func() time.Time
}

func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PGStore{
		pool:  pool,
		users: newKeyedMutex(),
		nowF:  time.Now,
	}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (p *PGStore) Close() {
	p.pool.Close()
}

func (p *PGStore) migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			user_id TEXT PRIMARY KEY,
			destination TEXT NOT NULL DEFAULT '',
			auth_token TEXT NOT NULL DEFAULT '',
			organization_id TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			step INT NOT NULL DEFAULT 0,
			scratch JSONB NOT NULL DEFAULT '{}',
			last_activity_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func (p *PGStore) Get(ctx context.Context, userID string) (*Session, error) {
	s, err := p.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &Session{UserID: userID, Step: StepIdle, LastActivityAt: p.nowF()}
	}
	return s, nil
}

func (p *PGStore) Update(ctx context.Context, userID string, mutate func(*Session) error) error {
	unlock := p.users.lock(userID)
	defer unlock()

	work, err := p.Get(ctx, userID)
	if err != nil {
		return err
	}

	mutateErr := mutate(work)

	if err := p.save(ctx, work); err != nil {
		return err
	}
	return mutateErr
}

func (p *PGStore) Reset(ctx context.Context, userID string) error {
	unlock := p.users.lock(userID)
	defer unlock()

	_, err := p.pool.Exec(ctx, "DELETE FROM sessions WHERE user_id = $1", userID)
	return err
}

func (p *PGStore) load(ctx context.Context, userID string) (*Session, error) {
	var (
		s       Session
		scratch []byte
	)
	err := p.pool.QueryRow(ctx,
		`SELECT user_id, destination, auth_token, organization_id, email, step, scratch, last_activity_at
		 FROM sessions WHERE user_id = $1`,
		userID,
	).Scan(&s.UserID, &s.Destination, &s.AuthToken, &s.OrganizationID, &s.Email, &s.Step, &scratch, &s.LastActivityAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(scratch, &s.Scratch); err != nil {
		return nil, fmt.Errorf("failed to decode scratch: %w", err)
	}
	return &s, nil
}

func (p *PGStore) save(ctx context.Context, s *Session) error {
	scratch, err := json.Marshal(s.Scratch)
	if err != nil {
		return fmt.Errorf("failed to encode scratch: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO sessions (user_id, destination, auth_token, organization_id, email, step, scratch, last_activity_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id) DO UPDATE SET
			destination = EXCLUDED.destination,
			auth_token = EXCLUDED.auth_token,
			organization_id = EXCLUDED.organization_id,
			email = EXCLUDED.email,
			step = EXCLUDED.step,
			scratch = EXCLUDED.scratch,
			last_activity_at = EXCLUDED.last_activity_at`,
		s.UserID, s.Destination, s.AuthToken, s.OrganizationID, s.Email, s.Step, scratch, s.LastActivityAt,
	)
	return err
}
