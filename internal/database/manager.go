// Package database owns the process-wide MongoDB connection. Handlers reach
// the database only through a Manager, which connects lazily on first use
// and hands every later caller the same handle.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"golang.org/x/sync/singleflight"
)

// Collection names used by the catalog.
const (
	FilmsCollection  = "Movies"
	ActorsCollection = "Actors"
)

const (
	defaultDBName         = "007"
	defaultConnectTimeout = 10 * time.Second
)

// ErrNoURI is returned by Acquire when the manager has no connection string.
var ErrNoURI = errors.New("database: no connection string configured")

// ConnectFunc opens and verifies a client. The default dials the configured
// URI and pings the primary.
type ConnectFunc func(ctx context.Context) (*mongo.Client, error)

// Config describes where to connect.
type Config struct {
	URI            string        // MongoDB connection string
	Name           string        // database name, defaults to "007"
	ConnectTimeout time.Duration // bound on one connection attempt
}

// Option customises a Manager.
type Option func(*Manager)

// WithConnectFunc replaces the dialer, mainly for tests.
func WithConnectFunc(fn ConnectFunc) Option {
	return func(m *Manager) { m.connect = fn }
}

// Manager hands out one shared *mongo.Database. Concurrent callers that
// arrive while the first connection attempt is in flight wait on that same
// attempt. A failed attempt leaves the handle unset so the next Acquire
// tries again.
type Manager struct {
	name    string
	timeout time.Duration
	connect ConnectFunc

	group singleflight.Group

	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
}

// NewManager builds a Manager without connecting.
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		name:    cfg.Name,
		timeout: cfg.ConnectTimeout,
	}
	if m.name == "" {
		m.name = defaultDBName
	}
	if m.timeout <= 0 {
		m.timeout = defaultConnectTimeout
	}
	m.connect = dialer(cfg.URI)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the selected database name.
func (m *Manager) Name() string { return m.name }

// Acquire returns the shared database handle, connecting on first use.
func (m *Manager) Acquire(ctx context.Context) (*mongo.Database, error) {
	if db := m.cached(); db != nil {
		return db, nil
	}

	ch := m.group.DoChan("connect", func() (any, error) {
		// A caller may have read nil just before an earlier attempt stored
		// the handle.
		if db := m.cached(); db != nil {
			return db, nil
		}
		// The attempt is shared, so one caller's cancellation must not fail
		// the others.
		connCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()

		client, err := m.connect(connCtx)
		if err != nil {
			log.Error().Err(err).Msg("MongoDB connection failed")
			return nil, err
		}
		db := client.Database(m.name)

		m.mu.Lock()
		m.client = client
		m.db = db
		m.mu.Unlock()

		log.Info().Str("database", m.name).Msg("Connected to MongoDB")
		return db, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*mongo.Database), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ping acquires the database and checks that the primary answers.
func (m *Manager) Ping(ctx context.Context) error {
	db, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	return db.Client().Ping(ctx, readpref.Primary())
}

// Close disconnects the client if one was established.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client, m.db = nil, nil
	m.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func (m *Manager) cached() *mongo.Database {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

func dialer(uri string) ConnectFunc {
	return func(ctx context.Context) (*mongo.Client, error) {
		if uri == "" {
			return nil, ErrNoURI
		}
		client, err := mongo.Connect(options.Client().ApplyURI(uri).SetAppName("filmsapi"))
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("ping MongoDB: %w", err)
		}
		return client, nil
	}
}
