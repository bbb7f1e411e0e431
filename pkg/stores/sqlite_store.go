package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

var _ Store = (*SQLiteStore)(nil)

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		cfg: cfg,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must not
	// grow past one.
	if s.cfg.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(s.cfg.MaxOpenConns)
		db.SetMaxIdleConns(s.cfg.MaxIdleConns)
		db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// PutResource inserts or replaces a resource checkpoint.
func (s *SQLiteStore) PutResource(ctx context.Context, res *Resource) error {
	if res.URN == "" {
		return fmt.Errorf("resource urn is required")
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO resources (urn, id, type, inputs, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(urn) DO UPDATE SET
			id = excluded.id,
			type = excluded.type,
			inputs = excluded.inputs,
			state = excluded.state,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		res.URN,
		res.ID,
		res.Type,
		blobOrEmpty(res.Inputs),
		blobOrEmpty(res.State),
		now,
		now,
	)

	if err != nil {
		return fmt.Errorf("failed to put resource: %w", err)
	}

	return nil
}

// GetResource retrieves a checkpoint by URN.
func (s *SQLiteStore) GetResource(ctx context.Context, urn string) (*Resource, error) {
	query := `
		SELECT urn, id, type, inputs, state, created_at, updated_at
		FROM resources
		WHERE urn = ?
	`
	return s.scanResource(s.db.QueryRowContext(ctx, query, urn))
}

// GetResourceByID retrieves a checkpoint by resource type and provider ID.
func (s *SQLiteStore) GetResourceByID(ctx context.Context, resourceType, id string) (*Resource, error) {
	query := `
		SELECT urn, id, type, inputs, state, created_at, updated_at
		FROM resources
		WHERE type = ? AND id = ?
	`
	return s.scanResource(s.db.QueryRowContext(ctx, query, resourceType, id))
}

func (s *SQLiteStore) scanResource(row *sql.Row) (*Resource, error) {
	res := &Resource{}
	err := row.Scan(
		&res.URN,
		&res.ID,
		&res.Type,
		&res.Inputs,
		&res.State,
		&res.CreatedAt,
		&res.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}

	return res, nil
}

// ListResources lists checkpoints with pagination. An empty resourceType
// lists every type.
func (s *SQLiteStore) ListResources(ctx context.Context, resourceType string, limit, offset int) ([]*Resource, error) {
	query := `
		SELECT urn, id, type, inputs, state, created_at, updated_at
		FROM resources
		WHERE (? = '' OR type = ?)
		ORDER BY urn
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, resourceType, resourceType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	resources := []*Resource{}
	for rows.Next() {
		res := &Resource{}
		err := rows.Scan(
			&res.URN,
			&res.ID,
			&res.Type,
			&res.Inputs,
			&res.State,
			&res.CreatedAt,
			&res.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resources: %w", err)
	}

	return resources, nil
}

// DeleteResource removes a checkpoint.
func (s *SQLiteStore) DeleteResource(ctx context.Context, urn string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM resources WHERE urn = ?`, urn)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// AppendOperation appends an entry to the operation log.
func (s *SQLiteStore) AppendOperation(ctx context.Context, op *Operation) error {
	if op.URN == "" || op.Op == "" {
		return fmt.Errorf("operation urn and op are required")
	}

	ts := op.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	query := `
		INSERT INTO operations (urn, op, status, error, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query, op.URN, op.Op, op.Status, op.Error, ts)
	if err != nil {
		return fmt.Errorf("failed to append operation: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		op.ID = id
	}
	op.Timestamp = ts

	return nil
}

// ListOperations lists log entries, newest first. An empty urn lists
// entries for every resource.
func (s *SQLiteStore) ListOperations(ctx context.Context, urn string, limit, offset int) ([]*Operation, error) {
	query := `
		SELECT id, urn, op, status, error, timestamp
		FROM operations
		WHERE (? = '' OR urn = ?)
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, urn, urn, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	ops := []*Operation{}
	for rows.Next() {
		op := &Operation{}
		if err := rows.Scan(&op.ID, &op.URN, &op.Op, &op.Status, &op.Error, &op.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operations: %w", err)
	}

	return ops, nil
}

// HealthCheck verifies the database is reachable.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func blobOrEmpty(blob string) string {
	if blob == "" {
		return "{}"
	}
	return blob
}
