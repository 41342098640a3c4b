package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Observer receives timing for every store operation the gateway performs.
type Observer interface {
	ObserveStoreOp(op, collection string, elapsed time.Duration, err error)
}

type Option func(*Gateway)

func WithObserver(o Observer) Option {
	return func(g *Gateway) { g.observer = o }
}

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

type handle struct {
	store Store
}

// Gateway owns the process-wide store handle. The handle is dialed lazily on
// first use and then shared by all requests; a failed dial is retried on the
// next call.
type Gateway struct {
	cfg      Config
	dial     Dialer
	observer Observer
	now      func() time.Time

	mu      sync.Mutex
	current atomic.Pointer[handle]
}

func NewGateway(cfg Config, dial Dialer, opts ...Option) *Gateway {
	if dial == nil {
		dial = Open
	}
	g := &Gateway{cfg: cfg, dial: dial, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connect returns the shared store, dialing it if needed. Concurrent callers
// wait on a single dial. Failures are *ConnectionError values.
func (g *Gateway) Connect(ctx context.Context) (Store, error) {
	if h := g.current.Load(); h != nil {
		return h.store, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if h := g.current.Load(); h != nil {
		return h.store, nil
	}
	if !g.cfg.configured() {
		return nil, &ConnectionError{Err: ErrNotConfigured}
	}

	dialCtx := ctx
	if g.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, g.cfg.ConnectTimeout)
		defer cancel()
	}

	start := time.Now()
	store, err := g.dial(dialCtx, g.cfg)
	g.observe("connect", "", start, err)
	if err != nil {
		return nil, &ConnectionError{Backend: Scheme(g.cfg.URL), Err: err}
	}
	g.current.Store(&handle{store: store})
	return store, nil
}

// Connected reports whether a handle exists, without dialing.
func (g *Gateway) Connected() bool {
	return g.current.Load() != nil
}

// Config returns the configuration the gateway dials with.
func (g *Gateway) Config() Config {
	return g.cfg
}

// Insert stamps created_at/updated_at when absent and writes one document to
// the kind's collection, returning the store-generated id.
func (g *Gateway) Insert(ctx context.Context, kind string, doc Document) (string, error) {
	coll := CollectionName(kind)
	store, err := g.Connect(ctx)
	if err != nil {
		return "", err
	}

	stamped := doc.clone()
	delete(stamped, "id")
	now := g.now().UTC()
	for _, key := range []string{"created_at", "updated_at"} {
		if v, ok := stamped[key]; !ok || v == nil {
			stamped[key] = now
		}
	}

	start := time.Now()
	id, err := store.Insert(ctx, coll, stamped)
	g.observe("insert", coll, start, err)
	if err != nil {
		return "", wrapOp("insert", coll, err)
	}
	if id == "" {
		return "", &OperationError{Op: "insert", Collection: coll, Err: errors.New("store returned an empty id")}
	}
	return id, nil
}

// List returns up to limit documents of kind matching every pair in filter,
// in store-native order. No match yields an empty, non-nil slice.
func (g *Gateway) List(ctx context.Context, kind string, filter Filter, limit int) ([]Document, error) {
	coll := CollectionName(kind)
	if limit <= 0 {
		return nil, &OperationError{Op: "list", Collection: coll, Err: ErrInvalidLimit}
	}
	store, err := g.Connect(ctx)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = Filter{}
	}

	start := time.Now()
	docs, err := store.Find(ctx, coll, filter, limit)
	g.observe("find", coll, start, err)
	if err != nil {
		return nil, wrapOp("find", coll, err)
	}
	if docs == nil {
		docs = []Document{}
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// Collections lists at most max collection names of the connected store.
func (g *Gateway) Collections(ctx context.Context, max int) ([]string, error) {
	store, err := g.Connect(ctx)
	if err != nil {
		return nil, err
	}
	names, err := store.Collections(ctx)
	if err != nil {
		return nil, wrapOp("list collections", "*", err)
	}
	if max > 0 && len(names) > max {
		names = names[:max]
	}
	return names, nil
}

// Ping checks the connected store.
func (g *Gateway) Ping(ctx context.Context) error {
	store, err := g.Connect(ctx)
	if err != nil {
		return err
	}
	if err := store.Ping(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// Close releases the handle. A later call to Connect dials again.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	h := g.current.Swap(nil)
	if h == nil {
		return nil
	}
	if err := h.store.Close(ctx); err != nil {
		return fmt.Errorf("close %s store: %w", h.store.Backend(), err)
	}
	return nil
}

func (g *Gateway) observe(op, coll string, start time.Time, err error) {
	if g.observer != nil {
		g.observer.ObserveStoreOp(op, coll, time.Since(start), err)
	}
}

func wrapOp(op, coll string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s %s: %w", op, coll, err)
	}
	return &OperationError{Op: op, Collection: coll, Err: err}
}
