// Package app composes the client out of its parts with fx. The TUI
// binary and the plain CLI commands both build on this module.
package app

import (
	"context"

	"github.com/sms-terminal/smsterm/internal/bus"
	"github.com/sms-terminal/smsterm/internal/cache"
	"github.com/sms-terminal/smsterm/internal/compose"
	"github.com/sms-terminal/smsterm/internal/config"
	"github.com/sms-terminal/smsterm/internal/conn"
	"github.com/sms-terminal/smsterm/internal/gateway"
	"github.com/sms-terminal/smsterm/internal/lock"
	"github.com/sms-terminal/smsterm/internal/logging"
	"github.com/sms-terminal/smsterm/internal/notify"
	"github.com/sms-terminal/smsterm/internal/router"
	"github.com/sms-terminal/smsterm/internal/store"
	"github.com/sms-terminal/smsterm/internal/wire"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved configuration passed to the fx module.
type Params struct {
	Config *config.Config
}

// Module returns the fx module composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("app",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideCache,
			provideCenter,
			provideGateway,
			provideConnManager,
			providePipeline,
			providePersister,
			provideRouter,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger() (*zap.Logger, error) {
	return logging.New(config.LogPath(), false)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(logger *zap.Logger) (*lock.Lock, error) {
	if err := config.EnsureDirs(); err != nil {
		return nil, err
	}
	l, err := lock.Acquire(config.LockPath())
	if err != nil {
		return nil, err
	}
	logger.Info("instance lock acquired")
	return l, nil
}

func provideStore(logger *zap.Logger) (*store.DB, error) {
	dbPath := config.PhonebookDBPath()
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	contacts, err := db.ContactCount()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("store initialized", zap.String("path", dbPath), zap.Int64("contacts", contacts))
	return db, nil
}

func provideCache() *cache.Cache {
	return cache.New()
}

func provideCenter(b *bus.Bus) *notify.Center {
	return notify.NewCenter(b)
}

func provideGateway(p Params) *gateway.Client {
	var opts []gateway.Option
	if p.Config.Auth != "" {
		opts = append(opts, gateway.WithAuthToken(p.Config.Auth))
	}
	return gateway.NewClient(p.Config.HTTPBaseURL(), opts...)
}

// provideConnManager builds the live connection manager. When the
// websocket is disabled in the config the client runs HTTP-only and the
// manager is nil.
func provideConnManager(p Params, b *bus.Bus, logger *zap.Logger) *conn.Manager {
	if !p.Config.WSEnabled {
		return nil
	}
	return conn.NewManager(conn.Config{
		URL:       p.Config.WSURL(),
		AuthToken: p.Config.Auth,
	}, b, logger)
}

func providePipeline(p Params, gw *gateway.Client, c *cache.Cache, b *bus.Bus, logger *zap.Logger) *compose.Pipeline {
	limits := compose.Limits{GSM7: p.Config.PartLimitGSM7, UCS2: p.Config.PartLimitUCS2}
	return compose.NewPipeline(gw, c, b, logger, limits)
}

func providePersister(db *store.DB, c *cache.Cache, b *bus.Bus, logger *zap.Logger) *Persister {
	return NewPersister(db, c, b, logger)
}

func provideRouter(p Params, gw *gateway.Client, c *cache.Cache, pipeline *compose.Pipeline, center *notify.Center, b *bus.Bus, mgr *conn.Manager, logger *zap.Logger) *router.Router {
	var frames <-chan *wire.Frame
	if mgr != nil {
		frames = mgr.Frames()
	}
	cfg := router.Config{PageSize: p.Config.PageSize}
	return router.New(cfg, gw, c, pipeline, center, b, frames, logger)
}

func registerLifecycle(lc fx.Lifecycle, rt *router.Router, persister *Persister, mgr *conn.Manager, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := persister.SeedCache(); err != nil {
				logger.Warn("phonebook preload failed", zap.Error(err))
			}
			persister.Start(context.Background())

			if err := rt.Start(context.Background()); err != nil {
				return err
			}
			rt.RefreshContacts()
			rt.RefreshDeviceInfo()

			if mgr != nil {
				if err := mgr.Connect(context.Background()); err != nil {
					return err
				}
			}
			return nil
		},
		OnStop: func(context.Context) error {
			if mgr != nil {
				mgr.Disconnect()
			}
			rt.Stop()
			persister.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
