package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"blog-cms/internal/shared/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config holds connection settings shared by every client the manager opens
type Config struct {
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize    uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"50"`
	MinPoolSize    uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"2"`
	AppName        string        `env:"MONGODB_APP_NAME" envDefault:"blog-cms"`
}

// DefaultConfig returns the defaults used when no configuration is given
func DefaultConfig() *Config {
	return &Config{
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    50,
		MinPoolSize:    2,
		AppName:        "blog-cms",
	}
}

// Manager opens one client per connection URI and hands out databases on
// them. The admin and public stores may live on different clusters or share one.
type Manager struct {
	mu        sync.Mutex
	clients   map[string]*mongo.Client
	databases map[string]*mongo.Database
	config    *Config
	logger    logger.Logger
}

// NewManager creates a new manager
func NewManager(config *Config, log logger.Logger) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{
		clients:   make(map[string]*mongo.Client),
		databases: make(map[string]*mongo.Database),
		config:    config,
		logger:    log.WithComponent("database"),
	}
}

// Database returns database name on the cluster at uri, connecting on first use
func (m *Manager) Database(ctx context.Context, uri, name string) (*mongo.Database, error) {
	if err := ValidateDatabaseName(name); err != nil {
		return nil, err
	}
	key := uri + "|" + name

	m.mu.Lock()
	defer m.mu.Unlock()

	if db, exists := m.databases[key]; exists {
		return db, nil
	}

	client, err := m.client(ctx, uri)
	if err != nil {
		return nil, err
	}
	db := client.Database(name)
	m.databases[key] = db

	m.logger.WithFields(map[string]interface{}{
		"host":     redactURI(uri),
		"database": name,
	}).Info("Opened database")
	return db, nil
}

// client must be called with mu held
func (m *Manager) client(ctx context.Context, uri string) (*mongo.Client, error) {
	if client, exists := m.clients[uri]; exists {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetAppName(m.config.AppName).
		SetMaxPoolSize(m.config.MaxPoolSize).
		SetMinPoolSize(m.config.MinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB at %s: %w", redactURI(uri), err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB at %s: %w", redactURI(uri), err)
	}

	m.clients[uri] = client
	return client, nil
}

// Ping checks every open client
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for uri, client := range m.clients {
		if err := client.Ping(ctx, nil); err != nil {
			return fmt.Errorf("MongoDB at %s unreachable: %w", redactURI(uri), err)
		}
	}
	return nil
}

// Close disconnects every client
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for uri, client := range m.clients {
		if err := client.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to disconnect from %s: %w", redactURI(uri), err)
		}
	}
	m.clients = make(map[string]*mongo.Client)
	m.databases = make(map[string]*mongo.Database)

	m.logger.Info("Closed all database connections")
	return firstErr
}

// GetConnectionCount returns the number of open clients
func (m *Manager) GetConnectionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// ValidateDatabaseName checks name against MongoDB's database naming rules
func ValidateDatabaseName(name string) error {
	if name == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if len(name) > 63 {
		return fmt.Errorf("database name too long (max 63 characters)")
	}
	if strings.ContainsAny(name, `/\. "$*<>:|?`) {
		return fmt.Errorf("database name %q contains invalid characters", name)
	}
	return nil
}

// redactURI drops credentials from uri for logging
func redactURI(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return scheme + "://" + rest
}
