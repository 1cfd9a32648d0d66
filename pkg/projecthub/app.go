package projecthub

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/auth"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/logger"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store/gormstore"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store/mongostore"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store/surrealdb"
)

// Config holds the application configuration. Field tags are the flag, env and YAML keys.
type Config struct {
	Port string `mapstructure:"port"`

	Store         string `mapstructure:"store"`
	SQLitePath    string `mapstructure:"sqlite-path"`
	PostgresDSN   string `mapstructure:"postgres-dsn"`
	SurrealDBURL  string `mapstructure:"surrealdb-url"`
	SurrealDBNS   string `mapstructure:"surrealdb-ns"`
	SurrealDBDB   string `mapstructure:"surrealdb-db"`
	SurrealDBUser string `mapstructure:"surrealdb-user"`
	SurrealDBPass string `mapstructure:"surrealdb-pass"`
	MongoURI      string `mapstructure:"mongodb-uri"`
	MongoDB       string `mapstructure:"mongodb-db"`

	JWTSecret    string   `mapstructure:"jwt-secret"`
	CookieSecure bool     `mapstructure:"cookie-secure"`
	BcryptCost   int      `mapstructure:"bcrypt-cost"`
	CORSOrigins  []string `mapstructure:"cors-origins"`

	// ReadOnly is the initial read-only state. It can be changed at runtime.
	ReadOnly bool `mapstructure:"read-only"`

	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
	LogFile   string `mapstructure:"log-file"`
}

// App holds the application state.
type App struct {
	store    store.Store
	config   *Config
	log      zerolog.Logger
	logData  *logger.LogData
	gate     *auth.Gate
	managers *lifecycle.Managers
	metrics  *metrics
	readOnly atomic.Bool
}

// Option configures an App built by NewWithStore.
type Option func(*options)

type options struct {
	log zerolog.Logger
	now func() time.Time
}

// WithLogger sets the application logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithClock replaces time.Now in the managers and the session gate, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New builds the logger and connects to the store selected by config.
func New(ctx context.Context, config *Config) (*App, error) {
	logData, err := newLogData(config)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, config, logData.Logger)
	if err != nil {
		logData.Close()
		return nil, err
	}

	app, err := NewWithStore(config, st, WithLogger(logData.Logger))
	if err != nil {
		st.Close()
		logData.Close()
		return nil, err
	}
	app.logData = logData
	return app, nil
}

func newLogData(config *Config) (*logger.LogData, error) {
	logData, err := logger.New().
		FromPath(config.LogFile).
		WithLevel(config.LogLevel).
		WithFormat(logger.Format(config.LogFormat)).
		WithService("projecthub").
		Make()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logData, nil
}

func openStore(ctx context.Context, config *Config, log zerolog.Logger) (store.Store, error) {
	switch config.Store {
	case StoreSQLite:
		st, err := gormstore.NewSQLiteStore(config.SQLitePath, gormstore.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite: %w", err)
		}
		log.Info().Str("path", config.SQLitePath).Msg("opened SQLite")
		return st, nil
	case StorePostgres:
		st, err := gormstore.NewPostgresStore(config.PostgresDSN, gormstore.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		log.Info().Msg("connected to PostgreSQL")
		return st, nil
	case StoreSurrealDB:
		st, err := surrealdb.NewSurrealStore(ctx,
			config.SurrealDBURL,
			config.SurrealDBNS,
			config.SurrealDBDB,
			config.SurrealDBUser,
			config.SurrealDBPass,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
		}
		log.Info().Str("url", config.SurrealDBURL).Msg("connected to SurrealDB")
		return st, nil
	case StoreMongo:
		st, err := mongostore.NewMongoStore(ctx, config.MongoURI, config.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		log.Info().Str("database", config.MongoDB).Msg("connected to MongoDB")
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store %q", config.Store)
	}
}

// NewWithStore builds an App over an already opened store. The App takes ownership of st
// and closes it in Close. config.JWTSecret must be set.
func NewWithStore(config *Config, st store.Store, opts ...Option) (*App, error) {
	o := options{log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	gate, err := auth.NewGate(config.JWTSecret,
		auth.WithSecureCookie(config.CookieSecure),
		auth.WithClock(o.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session gate: %w", err)
	}

	app := &App{
		config:  config,
		log:     o.log,
		gate:    gate,
		metrics: newMetrics(prometheus.NewRegistry()),
	}
	app.readOnly.Store(config.ReadOnly)
	app.store = store.NewReadOnlyStore(st, app.IsReadOnly)
	app.managers = lifecycle.New(app.store,
		lifecycle.WithLogger(o.log),
		lifecycle.WithClock(o.now),
		lifecycle.WithHasher(auth.NewHasher(config.BcryptCost)),
	)
	return app, nil
}

// Close closes the store and the log file.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.logData != nil {
		errs = append(errs, a.logData.Close())
	}
	return errors.Join(errs...)
}

// Store returns the read-only guarded store.
func (a *App) Store() store.Store {
	return a.store
}

// SetReadOnly switches read-only mode. While it is on every write fails with
// store.ErrReadOnly and the API answers 503; reads keep working.
func (a *App) SetReadOnly(readOnly bool) {
	a.readOnly.Store(readOnly)
	a.log.Warn().Bool("read_only", readOnly).Msg("read-only mode changed")
}

// IsReadOnly reports whether writes are currently rejected.
func (a *App) IsReadOnly() bool {
	return a.readOnly.Load()
}
