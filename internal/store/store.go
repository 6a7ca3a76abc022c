// Package store persists users and property documents in PostgreSQL.
// Every save of a property appends a snapshot; readers load the latest one.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	// ErrConflict is returned when a snapshot version was taken by another save.
	ErrConflict = errors.New("version conflict")
)

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DB = (*pgxpool.Pool)(nil)

type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// Connect opens a pool and checks the connection.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL UNIQUE,
	password     TEXT NOT NULL,
	display_name TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS properties (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS property_snapshots (
	id          TEXT PRIMARY KEY,
	property_id TEXT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
	version     INTEGER NOT NULL,
	document    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (property_id, version)
);
`

// Migrate creates the tables when they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type User struct {
	ID          string
	Email       string
	Password    string // bcrypt hash
	DisplayName string
	CreatedAt   time.Time
}

func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO users (id, email, password, display_name) VALUES ($1, $2, $3, $4)
		 RETURNING id, email, password, display_name, created_at`,
		u.ID, u.Email, u.Password, u.DisplayName)
	out, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", mapError(err))
	}
	return out, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, email, password, display_name, created_at FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", mapError(err))
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, email, password, display_name, created_at FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", mapError(err))
	}
	return u, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

type Property struct {
	ID        string
	OwnerID   string
	Name      string
	Kind      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Snapshot struct {
	ID         string
	PropertyID string
	Version    int
	Document   json.RawMessage
	CreatedAt  time.Time
}

// CreateProperty inserts the property row and its first snapshot in one
// transaction.
func (s *Store) CreateProperty(ctx context.Context, p Property, first Snapshot) (Property, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return Property{}, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`INSERT INTO properties (id, owner_id, name, kind) VALUES ($1, $2, $3, $4)
		 RETURNING id, owner_id, name, kind, created_at, updated_at`,
		p.ID, p.OwnerID, p.Name, p.Kind)
	out, err := scanProperty(row)
	if err != nil {
		return Property{}, fmt.Errorf("create property: %w", mapError(err))
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO property_snapshots (id, property_id, version, document) VALUES ($1, $2, $3, $4)`,
		first.ID, out.ID, first.Version, first.Document); err != nil {
		return Property{}, fmt.Errorf("create snapshot: %w", mapError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return Property{}, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (s *Store) GetProperty(ctx context.Context, id string) (Property, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, owner_id, name, kind, created_at, updated_at FROM properties WHERE id = $1`, id)
	p, err := scanProperty(row)
	if err != nil {
		return Property{}, fmt.Errorf("get property: %w", mapError(err))
	}
	return p, nil
}

func (s *Store) ListProperties(ctx context.Context, ownerID string) ([]Property, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, owner_id, name, kind, created_at, updated_at FROM properties
		 WHERE owner_id = $1 ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	props, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Property, error) {
		return scanProperty(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return props, nil
}

func scanProperty(row pgx.Row) (Property, error) {
	var p Property
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Kind, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// SaveSnapshot appends a snapshot. The version must be unused for the
// property, otherwise ErrConflict is returned.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO property_snapshots (id, property_id, version, document) VALUES ($1, $2, $3, $4)`,
		snap.ID, snap.PropertyID, snap.Version, snap.Document); err != nil {
		if errors.Is(mapError(err), ErrDuplicate) {
			return ErrConflict
		}
		return fmt.Errorf("save snapshot: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE properties SET updated_at = now() WHERE id = $1`, snap.PropertyID); err != nil {
		return fmt.Errorf("touch property: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) LatestSnapshot(ctx context.Context, propertyID string) (Snapshot, error) {
	var snap Snapshot
	err := s.db.QueryRow(ctx,
		`SELECT id, property_id, version, document, created_at FROM property_snapshots
		 WHERE property_id = $1 ORDER BY version DESC LIMIT 1`, propertyID).
		Scan(&snap.ID, &snap.PropertyID, &snap.Version, &snap.Document, &snap.CreatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot: %w", mapError(err))
	}
	return snap, nil
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func (s *Store) begin(ctx context.Context) (pgx.Tx, error) {
	b, ok := s.db.(beginner)
	if !ok {
		return nil, errors.New("store: database does not support transactions")
	}
	tx, err := b.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return tx, nil
}

// mapError translates driver errors into the store's sentinels.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
