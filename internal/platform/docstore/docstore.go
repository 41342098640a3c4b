// Package docstore is the persistence gateway for resource records. It maps
// resource kinds to collections and fronts interchangeable document store
// backends (MongoDB, PostgreSQL JSONB, in-memory) behind one Store interface.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Document is one stored record. Documents returned by a Store carry their
// identifier under the "id" key.
type Document map[string]any

// Filter holds field/value pairs that must all match (equality).
type Filter map[string]any

var (
	// ErrStoreUnavailable means the store was never reached or the connection
	// was lost. It is distinct from an empty result.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotConfigured is wrapped in a ConnectionError when the connection
	// string or database name is missing.
	ErrNotConfigured = errors.New("store connection not configured")

	ErrInvalidLimit = errors.New("limit must be positive")
)

// Store is the contract every backend implements. Implementations must be
// safe for concurrent use.
type Store interface {
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	Find(ctx context.Context, collection string, filter Filter, limit int) ([]Document, error)
	Collections(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	Backend() string
}

// Config is what the gateway needs to reach a backend.
type Config struct {
	URL            string
	Database       string
	MaxConns       int32
	MinConns       int32
	ConnectTimeout time.Duration
}

func (c Config) configured() bool {
	return c.URL != "" && c.Database != ""
}

// Dialer opens a Store. Open is the production dialer; tests inject fakes.
type Dialer func(ctx context.Context, cfg Config) (Store, error)

// ConnectionError reports a failed dial. It matches ErrStoreUnavailable.
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("connect to store: %v", e.Err)
	}
	return fmt.Sprintf("connect to %s store: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrStoreUnavailable }

// OperationError reports a store operation that failed while the store was
// reachable, e.g. a malformed filter or a rejected write.
type OperationError struct {
	Op         string
	Collection string
	Err        error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// unavailable marks a backend error as a connectivity failure.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// CollectionName maps a resource kind to its collection: the lowercase form
// of the kind ("MedicalRecord" -> "medicalrecord").
func CollectionName(kind string) string {
	return strings.ToLower(kind)
}

// Scheme returns the lowercase URL scheme of a connection string.
func Scheme(url string) string {
	scheme, _, found := strings.Cut(url, "://")
	if !found {
		return ""
	}
	return strings.ToLower(scheme)
}

// Open dials the backend selected by the scheme of cfg.URL.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Scheme(cfg.URL) {
	case "mongodb", "mongodb+srv":
		return dialMongo(ctx, cfg)
	case "postgres", "postgresql":
		return dialPostgres(ctx, cfg)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", Scheme(cfg.URL))
	}
}

func (d Document) clone() Document {
	out := make(Document, len(d)+2)
	for k, v := range d {
		out[k] = v
	}
	return out
}
