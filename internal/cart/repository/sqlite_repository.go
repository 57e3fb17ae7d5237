package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps carts in a single-file database, for deployments without MongoDB.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	query := `
		SELECT session_id, lines, created_at, updated_at
		FROM carts
		WHERE session_id = ?
	`

	var (
		cart    domain.Cart
		payload []byte
	)
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&cart.SessionID, &payload, &cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	if err := json.Unmarshal(payload, &cart.Lines); err != nil {
		return nil, fmt.Errorf("failed to decode cart lines: %w", err)
	}

	return &cart, nil
}

func (r *SQLiteRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	lines := cart.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart lines: %w", err)
	}

	query := `
		INSERT INTO carts (session_id, lines, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET lines = excluded.lines, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, cart.SessionID, payload, cart.CreatedAt, cart.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) DeleteCart(ctx context.Context, sessionID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
