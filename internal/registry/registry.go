package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"LaunchCore/internal/engine"
)

// ConfigStore persists versioned platform configurations. The operation
// core holds the live config in memory; the store is the durable copy the
// orchestrator reloads on restart (the ConfigUpdated event is a summary,
// not the full document).
type ConfigStore interface {
	// SaveConfig stores a configuration version. Saving an existing
	// version is a no-op, so replays are idempotent.
	SaveConfig(ctx context.Context, cfg engine.Config) error

	// LoadLatestConfig returns the highest stored version, or nil when
	// no configuration has ever been saved (cold start).
	LoadLatestConfig(ctx context.Context) (*engine.Config, error)
}

// PostgresStore implements ConfigStore plus token-registry reads over the
// launch schema.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveConfig(ctx context.Context, cfg engine.Config) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO launch.platform_config (version, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (version) DO NOTHING
	`, int64(cfg.Version), payload)
	return err
}

func (s *PostgresStore) LoadLatestConfig(ctx context.Context) (*engine.Config, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM launch.platform_config
		ORDER BY version DESC
		LIMIT 1
	`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg engine.Config
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// TokenCount returns how many tokens have been launched.
func (s *PostgresStore) TokenCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projections.tokens`).Scan(&n)
	return n, err
}

// IsLaunched reports whether a token identifier was ever launched.
func (s *PostgresStore) IsLaunched(ctx context.Context, token string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM projections.tokens WHERE token = $1
	`, token).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InMemoryStore is the test implementation of ConfigStore.
type InMemoryStore struct {
	configs map[uint64]engine.Config
	latest  uint64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{configs: make(map[uint64]engine.Config)}
}

func (s *InMemoryStore) SaveConfig(_ context.Context, cfg engine.Config) error {
	if _, exists := s.configs[cfg.Version]; exists {
		return nil
	}
	s.configs[cfg.Version] = cfg
	if cfg.Version > s.latest {
		s.latest = cfg.Version
	}
	return nil
}

func (s *InMemoryStore) LoadLatestConfig(_ context.Context) (*engine.Config, error) {
	if len(s.configs) == 0 {
		return nil, nil
	}
	cfg := s.configs[s.latest]
	return &cfg, nil
}
