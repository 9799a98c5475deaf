package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by Store.Load when no document exists under the
// requested name. Callers generally treat it as "start from empty".
var ErrNotFound = errors.New("storage: document not found")

// Store persists small named JSON documents (leaderboard, tokens, settings).
type Store interface {
	Load(name string, v interface{}) error
	Save(name string, v interface{}) error
}

// FileStore keeps each document as an indented JSON file under Dir,
// matching the original bot's data/ directory layout.
type FileStore struct {
	Dir string
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

func (fs *FileStore) path(name string) string {
	return filepath.Join(fs.Dir, name+".json")
}

func (fs *FileStore) Load(name string, v interface{}) error {
	data, err := os.ReadFile(fs.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

func (fs *FileStore) Save(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	// Write-through via a temp file so a crash mid-write never truncates
	// the previous snapshot.
	tmp := fs.path(name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, fs.path(name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// PostgresStore keeps documents in a bot_state(name, data jsonb) table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// SetupPostgresStore connects to DATABASE_URL and ensures the state table
// exists. Returns (nil, nil) when DATABASE_URL is unset so the caller can
// fall back to file storage.
func SetupPostgresStore() (*PostgresStore, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, nil
	}

	ctx := context.Background()

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Light pool tuning for a single-guild bot workload.
	config.MaxConns = 5
	config.MinConns = 1
	config.MaxConnLifetime = 45 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second
	config.ConnConfig.RuntimeParams = map[string]string{
		"application_name": "leobot",
		"timezone":         "UTC",
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	conn.Release()

	ps := &PostgresStore{pool: pool}
	if err := ps.createStateTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return ps, nil
}

func (ps *PostgresStore) createStateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS bot_state (
			name TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	if _, err := ps.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create bot_state table: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (ps *PostgresStore) Close() {
	if ps != nil && ps.pool != nil {
		ps.pool.Close()
	}
}

func (ps *PostgresStore) Load(name string, v interface{}) error {
	ctx := context.Background()
	var data []byte
	err := ps.pool.QueryRow(ctx, `SELECT data FROM bot_state WHERE name = $1`, name).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

func (ps *PostgresStore) Save(name string, v interface{}) error {
	ctx := context.Background()
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	query := `
		INSERT INTO bot_state (name, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
	if _, err := ps.pool.Exec(ctx, query, name, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}
