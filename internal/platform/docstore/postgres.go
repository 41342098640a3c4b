package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// pgStore keeps each collection as a JSONB table inside one schema named
// after the configured database.
type pgStore struct {
	pool   *pgxpool.Pool
	schema string

	mu    sync.Mutex
	ready map[string]bool
}

func newPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func dialPostgres(ctx context.Context, cfg Config) (Store, error) {
	if !identPattern.MatchString(cfg.Database) {
		return nil, fmt.Errorf("invalid schema name %q", cfg.Database)
	}

	pool, err := newPool(ctx, cfg.URL, cfg.MaxConns, cfg.MinConns)
	if err != nil {
		return nil, err
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", cfg.Database)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema %s: %w", cfg.Database, err)
	}

	return &pgStore{pool: pool, schema: cfg.Database, ready: make(map[string]bool)}, nil
}

func (s *pgStore) Backend() string { return "postgres" }

func (s *pgStore) table(collection string) (string, error) {
	if !identPattern.MatchString(collection) {
		return "", fmt.Errorf("invalid collection name %q", collection)
	}
	return s.schema + "." + collection, nil
}

func (s *pgStore) ensureCollection(ctx context.Context, collection string) (string, error) {
	table, err := s.table(collection)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready[collection] {
		return table, nil
	}

	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq        BIGSERIAL,
			id         UUID PRIMARY KEY,
			doc        JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, table))
	if err != nil {
		return "", fmt.Errorf("create collection %s: %w", table, err)
	}
	_, err = s.pool.Exec(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_doc_idx ON %s USING GIN (doc jsonb_path_ops)`, collection, table))
	if err != nil {
		return "", fmt.Errorf("index collection %s: %w", table, err)
	}

	s.ready[collection] = true
	return table, nil
}

func (s *pgStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	table, err := s.ensureCollection(ctx, collection)
	if err != nil {
		return "", pgErr(err)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	id := uuid.New()
	_, err = s.pool.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb)`, table), id, string(body))
	if err != nil {
		return "", pgErr(err)
	}
	return id.String(), nil
}

func (s *pgStore) Find(ctx context.Context, collection string, filter Filter, limit int) ([]Document, error) {
	table, err := s.table(collection)
	if err != nil {
		return nil, err
	}

	var exists *string
	if err := s.pool.QueryRow(ctx, `SELECT to_regclass($1)::text`, table).Scan(&exists); err != nil {
		return nil, pgErr(err)
	}
	if exists == nil {
		return []Document{}, nil
	}

	match, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id::text, doc FROM %s WHERE doc @> $1::jsonb ORDER BY seq LIMIT $2`, table), string(match), limit)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, pgErr(err)
		}
		var doc Document
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
		doc["id"] = id
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr(err)
	}
	return docs, nil
}

func (s *pgStore) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 ORDER BY table_name`, s.schema)
	if err != nil {
		return nil, pgErr(err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, pgErr(err)
	}
	return names, nil
}

func (s *pgStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return pgErr(err)
	}
	return nil
}

func (s *pgStore) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}

func pgErr(err error) error {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return unavailable(err)
	}
	return err
}
