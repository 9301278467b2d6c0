package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/telecopter/core/bootstrap"
	corecmd "github.com/m3rciful/telecopter/core/cmd"
	coreconfig "github.com/m3rciful/telecopter/core/config"
	"github.com/m3rciful/telecopter/core/logger"
	"github.com/m3rciful/telecopter/core/metrics"
	tg "github.com/m3rciful/telecopter/core/telegram"
	tghelpers "github.com/m3rciful/telecopter/core/telegram/helpers"
	"github.com/m3rciful/telecopter/core/telegram/sender"
	"github.com/m3rciful/telecopter/core/telegram/state"
	"github.com/m3rciful/telecopter/internal/bot"
	"github.com/m3rciful/telecopter/internal/lifecycle"
	"github.com/m3rciful/telecopter/internal/moderation"
	"github.com/m3rciful/telecopter/internal/store"
	"github.com/m3rciful/telecopter/internal/submission"
	"github.com/m3rciful/telecopter/internal/tmdb"
)

const rateLimitedText = "Too many messages. Please slow down."

var sendOptions = sender.Options{MaxRetries: 1, RetryBackoff: 500 * time.Millisecond}

// App owns the process-wide resources.
type App struct {
	cfg     *Config
	db      *sqlx.DB
	redis   *redis.Client
	tracker state.Manager
	store   *store.Store
	// dispatcher is shared by reply helpers and out-of-band notifications.
	dispatcher *sender.Dispatcher

	stopMetrics context.CancelFunc
}

// Bootstrap adapts New to the runner's signature.
func Bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(ctx, cfg, bootstrap.Options{})
}

// LoadConfig adapts Load to the runner's signature.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	return Load(path)
}

// New runs the bootstrap pipeline and opens the state backend. Fields of
// base other than Config, Database and Modules are passed through, which
// lets tests replace the logger, migrations and connection.
func New(ctx context.Context, cfg *Config, base bootstrap.Options) (*App, error) {
	base.Config = &cfg.Config
	base.Database = cfg.Database
	base.Modules.Seeders = append(base.Modules.Seeders, AdminSeeder(cfg.Telegram.AdminID))

	res, err := bootstrap.Run(ctx, base)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, db: res.DB, store: store.New(res.DB)}
	if err := a.openState(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// AdminSeeder marks the configured admin as an approved user.
func AdminSeeder(adminID int64) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, db sqlx.ExtContext) error {
		return store.SeedAdmin(ctx, db, adminID)
	})
}

func (a *App) openState(ctx context.Context) error {
	st := a.cfg.State
	if st.Backend != coreconfig.StateBackendRedis {
		a.tracker = state.NewMemoryManager(st.TTL)
		return nil
	}
	r := a.cfg.Redis
	a.redis = redis.NewClient(&redis.Options{Addr: r.Addr, Password: r.Password, DB: r.DB})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("app: redis ping: %w", err)
	}
	a.tracker = state.NewRedisManager(a.redis, state.RedisOptions{Prefix: r.Prefix, TTL: st.TTL})
	logger.Info(ctx, "app", "state.backend", slog.String("backend", st.Backend), slog.String("addr", r.Addr))
	return nil
}

// TelegramRunOptions builds the bot, the services and their routes.
func (a *App) TelegramRunOptions(ctx context.Context) (tg.RunOptions, error) {
	core := &a.cfg.Config
	tb, err := tg.NewBot(core)
	if err != nil {
		return tg.RunOptions{}, err
	}
	w, err := a.wire(tb)
	if err != nil {
		return tg.RunOptions{}, err
	}
	return tg.RunOptions{
		Config:      core,
		Registry:    w.registry,
		Bot:         tb,
		Dispatcher:  a.dispatcher,
		Middlewares: tg.DefaultMiddlewares(core, onLimited),
		Routes:      w.routes,
		OnStart:     a.startMetrics,
		OnStop:      a.stopMetricsServer,
	}, nil
}

type wiring struct {
	registry *tg.Registry
	routes   []tg.Route
}

// wire connects the services to tb and registers their handlers.
func (a *App) wire(tb bot.Sender) (wiring, error) {
	adminID := a.cfg.Telegram.AdminID
	pageSize := a.cfg.Limits.PageSize
	if a.dispatcher == nil {
		a.dispatcher = sender.NewDispatcher(sendOptions)
	}
	notifier := bot.NewNotifier(tb, a.dispatcher, adminID)

	engine := lifecycle.New(a.store, notifier, lifecycle.WithNotifyTimeout(a.cfg.Limits.NotifyTimeout))
	search := tmdb.New(a.cfg.TMDB, nil)
	sub := submission.New(a.store, a.tracker, search, notifier, submission.WithPageSize(pageSize))
	mod := moderation.New(engine, a.store, a.tracker, notifier, moderation.WithPageSize(pageSize))

	handlers := bot.New(sub, mod, a.tracker, adminID)
	reg := tg.NewRegistry()
	if err := handlers.Register(reg); err != nil {
		return wiring{}, fmt.Errorf("app: register handlers: %w", err)
	}
	return wiring{registry: reg, routes: handlers.Routes(reg)}, nil
}

func onLimited(c tele.Context) error {
	if c.Callback() != nil {
		return tghelpers.Toast(c, rateLimitedText)
	}
	return nil
}

func (a *App) startMetrics(ctx context.Context, _ tg.Runtime) error {
	m := a.cfg.Metrics
	if m.Listen == "" {
		return nil
	}
	mctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopMetrics = cancel
	go func() {
		if err := metrics.Serve(mctx, m.Listen, m.Path); err != nil {
			logger.Error(mctx, "metrics", "metrics.serve", slog.String("status", "fail"), slog.Any("err", err))
		}
	}()
	return nil
}

func (a *App) stopMetricsServer(context.Context, tg.Runtime) error {
	if a.stopMetrics != nil {
		a.stopMetrics()
		a.stopMetrics = nil
	}
	return nil
}

// Close releases the state backend and the database pool.
func (a *App) Close() error {
	_ = a.stopMetricsServer(context.Background(), tg.Runtime{})
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
