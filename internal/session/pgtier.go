package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"retensync.io/internal/rbac"
)

// PGTier is a Postgres-backed tier. Each deployment keys its record by
// a fixed store key so the zero-or-one invariant maps to one row.
type PGTier struct {
	db  *sql.DB
	key string
}

func OpenPG(dsn, key string) (*PGTier, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return NewPGTier(db, key), nil
}

func NewPGTier(db *sql.DB, key string) *PGTier {
	if key == "" {
		key = "default"
	}
	return &PGTier{db: db, key: key}
}

func (t *PGTier) Name() string { return "postgres" }

func (t *PGTier) DB() *sql.DB { return t.db }

func (t *PGTier) Close() error { return t.db.Close() }

// EnsureSchema creates the session table when missing. Idempotent.
func (t *PGTier) EnsureSchema(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `
		create table if not exists session_records (
			store_key  text primary key,
			token      text not null,
			role       text not null,
			user_id    text not null default '',
			email      text not null default '',
			expires_at timestamptz,
			updated_at timestamptz not null default now()
		)`)
	return err
}

func (t *PGTier) Read(ctx context.Context) (Record, error) {
	var (
		rec     Record
		role    string
		expires sql.NullTime
	)
	err := t.db.QueryRowContext(ctx, `
		select token, role, user_id, email, expires_at
		from session_records where store_key = $1`, t.key).
		Scan(&rec.Token, &role, &rec.UserID, &rec.Email, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNoRecord
	}
	if err != nil {
		return Record{}, err
	}
	if parsed, ok := rbac.Parse(role); ok {
		rec.Role = parsed
	}
	if expires.Valid {
		rec.ExpiresAt = expires.Time
	}
	return rec, nil
}

func (t *PGTier) Write(ctx context.Context, rec Record) error {
	var expires any
	if !rec.ExpiresAt.IsZero() {
		expires = rec.ExpiresAt.UTC()
	}
	_, err := t.db.ExecContext(ctx, `
		insert into session_records(store_key, token, role, user_id, email, expires_at, updated_at)
		values ($1,$2,$3,$4,$5,$6, now())
		on conflict (store_key) do update
		set token = excluded.token,
		    role = excluded.role,
		    user_id = excluded.user_id,
		    email = excluded.email,
		    expires_at = excluded.expires_at,
		    updated_at = now()`,
		t.key, rec.Token, string(rec.Role), rec.UserID, rec.Email, expires)
	return err
}

func (t *PGTier) Clear(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, `delete from session_records where store_key = $1`, t.key)
	return err
}
