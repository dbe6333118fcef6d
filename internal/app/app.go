// Package app wires the complaint core together. Everything is built
// explicitly in New and released in reverse order by Close.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/MohammedShoaib07/campus-care/internal/config"
	"github.com/MohammedShoaib07/campus-care/internal/db"
	"github.com/MohammedShoaib07/campus-care/internal/events"
	"github.com/MohammedShoaib07/campus-care/internal/infrastructure/kv"
	"github.com/MohammedShoaib07/campus-care/internal/infrastructure/persistence"
	"github.com/MohammedShoaib07/campus-care/internal/logger"
	"github.com/MohammedShoaib07/campus-care/internal/metrics"
	"github.com/MohammedShoaib07/campus-care/internal/storage"
	"github.com/MohammedShoaib07/campus-care/internal/usecase/complaint"
	"github.com/MohammedShoaib07/campus-care/internal/usecase/identity"
)

type App struct {
	Config     *config.Config
	Log        logrus.FieldLogger
	Store      kv.Store
	Assets     storage.AssetStore
	Metrics    *metrics.Recorder
	Identity   *identity.Provider
	Complaints *persistence.ComplaintStore
	Lifecycle  *complaint.Controller

	redisClient *redis.Client
	closers     []func() error
}

type options struct {
	store      kv.Store
	assets     storage.AssetStore
	bcryptCost int
}

type Option func(*options)

// WithStore uses store instead of opening the configured backend. The
// caller keeps ownership and closes it.
func WithStore(store kv.Store) Option {
	return func(o *options) { o.store = store }
}

// WithAssets uses assets instead of the configured asset backend.
func WithAssets(assets storage.AssetStore) Option {
	return func(o *options) { o.assets = assets }
}

func WithBcryptCost(cost int) Option {
	return func(o *options) { o.bcryptCost = cost }
}

func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		Config:  cfg,
		Log:     logger.OrDiscard(log),
		Metrics: metrics.New(),
	}

	a.Store = o.store
	if a.Store == nil {
		store, err := a.openStore(ctx)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Store = store
	}

	a.Assets = o.assets
	if a.Assets == nil {
		assets, err := openAssets(ctx, cfg)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.Assets = storage.WithLatency(assets, cfg.UploadLatency)
	}

	attempts, err := a.loginAttemptStore()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	provider, err := identity.NewProvider(persistence.NewSessionStore(a.Store), identity.Config{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		SessionSecret: cfg.SessionSecret,
		SessionTTL:    cfg.SessionTTL,
		LoginLimit:    cfg.LoginRateLimit,
		LoginPeriod:   cfg.LoginRatePeriod,
		BcryptCost:    o.bcryptCost,
	}, a.Log.WithField("component", "identity"),
		identity.WithMetrics(a.Metrics),
		identity.WithLimiterStore(attempts))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Identity = provider

	a.Complaints = persistence.NewComplaintStore(a.Store, a.Log.WithField("component", "record_store"), persistence.WithMetrics(a.Metrics))
	a.Lifecycle = complaint.NewController(a.Complaints, a.Assets, a.Metrics, a.Log.WithField("component", "lifecycle"))

	a.Log.WithFields(logrus.Fields{
		"store_driver": cfg.StoreDriver,
		"asset_driver": cfg.AssetDriver,
		"env":          cfg.Env,
	}).Debug("application initialized")
	return a, nil
}

func (a *App) openStore(ctx context.Context) (kv.Store, error) {
	cfg := a.Config
	log := a.Log.WithField("component", "kv")

	switch cfg.StoreDriver {
	case config.StoreMemory:
		store := kv.NewMemory(log)
		a.onClose(store.Close)
		return store, nil

	case config.StoreSQLite:
		conn, err := db.NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.onClose(conn.Close)
		if err := db.RunMigrations(ctx, conn); err != nil {
			return nil, err
		}
		store, err := kv.NewSQLite(ctx, conn, log)
		if err != nil {
			return nil, err
		}
		a.onClose(store.Close)
		return store, nil

	case config.StorePostgres:
		conn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.onClose(conn.Close)
		if err := db.RunMigrations(ctx, conn); err != nil {
			return nil, err
		}
		store := kv.NewPostgres(conn, cfg.DatabaseURL, log)
		a.onClose(store.Close)
		return store, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("app: redis ping %s: %w", cfg.RedisAddr, err)
		}
		store := kv.NewRedis(client, cfg.RedisPrefix, log)
		a.onClose(store.Close)
		a.redisClient = client
		return store, nil
	}
	return nil, fmt.Errorf("app: unknown store driver %q", cfg.StoreDriver)
}

// loginAttemptStore keeps login failure counters next to the sessions, so
// the throttle holds across separate invocations.
func (a *App) loginAttemptStore() (limiter.Store, error) {
	if a.redisClient == nil {
		return persistence.NewAttemptStore(a.Store), nil
	}
	store, err := limiterredis.NewStoreWithOptions(a.redisClient, limiter.StoreOptions{
		Prefix: a.Config.RedisPrefix + ":login",
	})
	if err != nil {
		return nil, fmt.Errorf("app: redis login limiter: %w", err)
	}
	return store, nil
}

func openAssets(ctx context.Context, cfg *config.Config) (storage.AssetStore, error) {
	switch cfg.AssetDriver {
	case config.AssetFS:
		return storage.NewPhotoStorage(cfg.AssetPath, cfg.MaxUploadBytes())
	case config.AssetMemory:
		return storage.NewMemoryAssetStore(cfg.MaxUploadBytes()), nil
	case config.AssetS3:
		return storage.NewS3AssetStore(ctx, storage.S3Config{
			Bucket:         cfg.S3Bucket,
			Region:         cfg.S3Region,
			Endpoint:       cfg.S3Endpoint,
			PathStyle:      cfg.S3PathStyle,
			PresignExpiry:  cfg.S3PresignTTL,
			MaxUploadBytes: cfg.MaxUploadBytes(),
		})
	}
	return nil, fmt.Errorf("app: unknown asset driver %q", cfg.AssetDriver)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Watch calls refresh whenever the complaint collection changes, including
// changes made by other processes sharing the store. It blocks until ctx is
// done.
func (a *App) Watch(ctx context.Context, refresh func(events.Event)) error {
	return complaint.Watch(ctx, a.Store, persistence.ComplaintsKey, refresh, a.Log.WithField("component", "watch"))
}

// Close releases resources in reverse order of acquisition. It is safe to
// call more than once.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
