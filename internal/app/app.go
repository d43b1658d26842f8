package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/atmanstudio/booking/internal/config"
	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/mq"
	"github.com/atmanstudio/booking/internal/notify"
	"github.com/atmanstudio/booking/internal/obs"
	"github.com/atmanstudio/booking/internal/payment"
	"github.com/atmanstudio/booking/internal/payment/yookassa"
	"github.com/atmanstudio/booking/internal/postgres"
	"github.com/atmanstudio/booking/internal/redis"
	"github.com/atmanstudio/booking/internal/repository"
	"github.com/atmanstudio/booking/internal/repository/memory"
	postgresrepo "github.com/atmanstudio/booking/internal/repository/postgres"
	redisrepo "github.com/atmanstudio/booking/internal/repository/redis"
	"github.com/atmanstudio/booking/internal/service"
	"github.com/atmanstudio/booking/internal/service/ledger"
	"github.com/atmanstudio/booking/internal/service/payments"
	httpgin "github.com/atmanstudio/booking/internal/transport/http/gin"
	"github.com/atmanstudio/booking/migrations"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
	worker     *notify.Worker

	closers []func(context.Context) error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	shutdownTracing, err := obs.Setup(ctx, obs.Config{
		Endpoint:    cfg.OTel.Endpoint,
		ServiceName: cfg.OTel.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, shutdownTracing)

	store, err := a.openStore(ctx)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	deps := service.Deps{Logger: logger}
	var idem *redisrepo.IdempotencyStore

	if cfg.Redis.Addr != "" {
		rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })

		deps.Cache = redisrepo.New(rdb)
		deps.PubSub = redisrepo.NewSchedulePubSub(rdb)
		if cfg.Booking.RateLimit > 0 {
			deps.Limiter = redisrepo.NewLimiter(rdb, redisrepo.KeyRateLimit("bookings"), cfg.Booking.RateLimit, cfg.Booking.RateWindow)
		}
		idem = redisrepo.NewIdempotencyStore(rdb, cfg.Booking.IdempotencyTTL)
	} else {
		logger.Warn("REDIS_ADDR is empty: schedule cache, rate limiting and idempotency replay are disabled")
	}

	if p := newProvider(cfg.YooKassa); p != nil {
		deps.Provider = p
	} else {
		logger.Info("payment provider not configured, bookings need manual confirmation")
	}

	if cfg.AMQP.URL != "" {
		if err := a.openMessaging(deps.Logger, &deps); err != nil {
			a.close(ctx)
			return nil, err
		}
	}

	a.services = service.NewServices(store, deps, service.Config{
		Ledger:   ledger.Config{ScheduleTTL: cfg.Booking.ScheduleTTL},
		Payments: payments.Config{ReturnURL: cfg.YooKassa.ReturnURL},
	})

	router := httpgin.NewRouter(a.services, idem, httpgin.RouterConfig{
		AdminSecret: cfg.Admin.JWTSecret,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	if a.cfg.Storage == config.StorageMemory {
		a.logger.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		seedDemo(store, time.Now().UTC())
		return store, nil
	}

	pg := a.cfg.Postgres
	pool, err := postgres.New(ctx, postgres.Config{
		DSN: postgres.DSN(pg.User, pg.Password, pg.Host, pg.Port, pg.Name, pg.SSLMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })

	if err := postgres.Migrate(ctx, pool, migrations.FS); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return postgresrepo.NewStore(pool), nil
}

// openMessaging connects the booking event publisher and the notification
// worker that consumes those events.
func (a *App) openMessaging(logger *slog.Logger, deps *service.Deps) error {
	pub, err := mq.NewPublisher(a.cfg.AMQP.URL, a.cfg.AMQP.Exchange)
	if err != nil {
		return fmt.Errorf("failed to initialize amqp publisher: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return pub.Close() })
	deps.Publisher = pub

	consumer, err := mq.NewConsumer(a.cfg.AMQP.URL, a.cfg.AMQP.Exchange, a.cfg.AMQP.Queue, notify.Bindings, 16)
	if err != nil {
		return fmt.Errorf("failed to initialize amqp consumer: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return consumer.Close() })
	a.worker = notify.NewWorker(consumer, notify.NewLogNotifier(logger), logger)

	return nil
}

func newProvider(cfg config.YooKassaConfig) payment.Provider {
	if !cfg.Enabled() {
		return nil
	}
	return yookassa.New(yookassa.Config{
		ShopID:        cfg.ShopID,
		SecretKey:     cfg.SecretKey,
		ReturnURL:     cfg.ReturnURL,
		WebhookSecret: cfg.WebhookSecret,
		APIBase:       cfg.APIBase,
	})
}

// Handler exposes the HTTP API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "addr", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.services.Changes.Relay(gCtx); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return fmt.Errorf("schedule change relay: %w", err)
		}
		return nil
	})

	if a.worker != nil {
		g.Go(func() error {
			a.logger.Info("notification worker started", "queue", a.cfg.AMQP.Queue)
			return a.worker.Run(gCtx)
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	err := g.Wait()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	a.close(closeCtx)

	return err
}

// close releases resources in reverse order of acquisition.
func (a *App) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown step failed", slog.Any("err", err))
		}
	}
	a.closers = nil
}

// seedDemo fills an in-memory store with two services and a week of classes.
func seedDemo(store *memory.Store, now time.Time) {
	groupPrice := domain.Money(90000)
	personalPrice := domain.Money(350000)

	group := store.SeedService(domain.Service{
		Slug:     "group-yoga",
		Title:    "Group yoga",
		IsActive: true,
		Pricing:  domain.Pricing{Group: &domain.GroupPrice{PricePerPerson: &groupPrice}},
	})
	personal := store.SeedService(domain.Service{
		Slug:     "personal-session",
		Title:    "Personal session",
		IsActive: true,
		Pricing:  domain.Pricing{Individual: &domain.PriceEntry{Price: &personalPrice}},
	})

	day := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	for i := 0; i < 7; i++ {
		start := day.Add(time.Duration(i)*24*time.Hour + 9*time.Hour)
		store.SeedEvent(domain.ScheduleEvent{
			ServiceID:       group,
			StartTime:       start,
			EndTime:         start.Add(90 * time.Minute),
			MaxParticipants: 10,
			IsActive:        true,
		})
		store.SeedEvent(domain.ScheduleEvent{
			ServiceID:       personal,
			StartTime:       start.Add(3 * time.Hour),
			EndTime:         start.Add(4 * time.Hour),
			MaxParticipants: 1,
			IsIndividual:    true,
			IsActive:        true,
		})
	}
}
