package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	adminapp "github.com/dmehra2102/restaurant-order-system/internal/admin/application"
	adminhttp "github.com/dmehra2102/restaurant-order-system/internal/admin/infrastructure/http"
	adminpg "github.com/dmehra2102/restaurant-order-system/internal/admin/infrastructure/postgres"
	authapp "github.com/dmehra2102/restaurant-order-system/internal/auth/application"
	authdomain "github.com/dmehra2102/restaurant-order-system/internal/auth/domain"
	authhttp "github.com/dmehra2102/restaurant-order-system/internal/auth/infrastructure/http"
	authjwt "github.com/dmehra2102/restaurant-order-system/internal/auth/infrastructure/jwt"
	authpg "github.com/dmehra2102/restaurant-order-system/internal/auth/infrastructure/postgres"
	"github.com/dmehra2102/restaurant-order-system/internal/broadcast"
	catalogapp "github.com/dmehra2102/restaurant-order-system/internal/catalog/application"
	cataloghttp "github.com/dmehra2102/restaurant-order-system/internal/catalog/infrastructure/http"
	catalogpg "github.com/dmehra2102/restaurant-order-system/internal/catalog/infrastructure/postgres"
	"github.com/dmehra2102/restaurant-order-system/internal/config"
	orderapp "github.com/dmehra2102/restaurant-order-system/internal/order/application"
	orderhttp "github.com/dmehra2102/restaurant-order-system/internal/order/infrastructure/http"
	orderpg "github.com/dmehra2102/restaurant-order-system/internal/order/infrastructure/postgres"
	paymentapp "github.com/dmehra2102/restaurant-order-system/internal/payment/application"
	paymenthttp "github.com/dmehra2102/restaurant-order-system/internal/payment/infrastructure/http"
	paymentpg "github.com/dmehra2102/restaurant-order-system/internal/payment/infrastructure/postgres"
	"github.com/dmehra2102/restaurant-order-system/internal/platform/kafka"
	"github.com/dmehra2102/restaurant-order-system/internal/platform/postgres"
	tableapp "github.com/dmehra2102/restaurant-order-system/internal/table/application"
	tablehttp "github.com/dmehra2102/restaurant-order-system/internal/table/infrastructure/http"
	tablepg "github.com/dmehra2102/restaurant-order-system/internal/table/infrastructure/postgres"
	"github.com/dmehra2102/restaurant-order-system/pkg/health"
	"github.com/dmehra2102/restaurant-order-system/pkg/idempotency"
	"github.com/dmehra2102/restaurant-order-system/pkg/logging"
	"github.com/dmehra2102/restaurant-order-system/pkg/metrics"
	"github.com/dmehra2102/restaurant-order-system/pkg/outbox"
	"github.com/dmehra2102/restaurant-order-system/pkg/shutdown"
	"github.com/dmehra2102/restaurant-order-system/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err == nil {
		err = cfg.RequireAuth()
	}
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background(), log)
	defer cancel()

	tp, err := tracing.Init(ctx, "restaurant-service", cfg.Tracing.Endpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	// Postgres
	pool, err := postgres.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, log, pool); err != nil {
		log.Error("pg migrate failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, cfg.Redis.IdempotencyTTL)
	idempotent := idem.Middleware(log, authhttp.CallerScope)

	m := metrics.New()
	hub := broadcast.NewHub(log, m)

	// Outbox relay: Kafka always, RabbitMQ fanout when configured.
	writer := kafka.NewWriter(cfg.Kafka.Brokers)
	defer writer.Close()
	publishers := []outbox.Publisher{outbox.NewKafkaPublisher(log, writer, cfg.Kafka.Topic)}
	if cfg.RabbitMQ.URL != "" {
		amqpPub, err := outbox.NewAMQPPublisher(log, cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Error("rabbitmq connect failed", "err", err)
			os.Exit(1)
		}
		defer amqpPub.Close()
		publishers = append(publishers, amqpPub)
	}
	relayID := "restaurant-service-" + uuid.NewString()[:8]
	relay := outbox.NewRelay(log, outbox.NewPostgresStore(log, pool), relayID, m, publishers...)

	// Repositories & services
	issuer := authjwt.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	authSvc := authapp.NewService(log, authpg.NewRepository(log, pool), issuer)

	catalogSvc := catalogapp.NewService(log, catalogpg.NewRepository(log, pool))
	tableSvc := tableapp.NewService(log, tablepg.NewRepository(log, pool))

	orderRepo := orderpg.NewRepository(log, pool)
	orderSvc := orderapp.NewService(log, orderRepo, orderRepo, orderRepo, hub, m)
	paymentSvc := paymentapp.NewService(log, paymentpg.NewRepository(log, pool), orderRepo, hub, m)
	adminSvc := adminapp.NewService(log, adminpg.NewStore(log, pool, orderRepo), orderSvc, tableSvc, hub)

	// Guards
	managers := authhttp.RequireRoles(log, authdomain.Managers...)
	kitchen := authhttp.RequireRoles(log, authdomain.KitchenStaff...)
	floor := authhttp.RequireRoles(log, authdomain.FloorStaff...)
	prep := authhttp.RequireRoles(log, authdomain.PrepStaff...)
	staff := authhttp.RequireRoles(log, authdomain.Staff...)

	healthSrv := health.NewServer(log, 10*time.Second, map[string]health.Check{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	// HTTP
	authH := authhttp.NewHandler(log, authSvc)
	catalogH := cataloghttp.NewHandler(log, catalogSvc, managers)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", m.Handler())
	r.Handle("/healthz", healthSrv.HTTPHandler())
	r.Mount("/auth", authH.Routes())

	r.Group(func(r chi.Router) {
		r.Use(authhttp.Authenticate(log, issuer))
		r.Mount("/users", authH.UserRoutes())
		r.Mount("/categories", catalogH.CategoryRoutes())
		r.Mount("/menu-items", catalogH.MenuItemRoutes())
		r.Mount("/tables", tablehttp.NewHandler(log, tableSvc, managers, floor).Routes())
		r.Mount("/orders", orderhttp.NewHandler(log, orderSvc, idempotent, prep, managers).Routes())
		r.Mount("/payments", paymenthttp.NewHandler(log, paymentSvc, idempotent, floor, managers).Routes())
		r.Mount("/admin", adminhttp.NewHandler(log, adminSvc, managers, kitchen).Routes())
		r.With(staff).Handle("/ws", broadcast.NewHandler(log, hub, cfg.Live.AllowedOrigins))
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           otelhttp.NewHandler(r, "restaurant-http"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return healthSrv.Run(gctx) })
	g.Go(func() error { return health.Serve(gctx, log, cfg.GRPC.Addr, healthSrv) })
	g.Go(func() error { return adminSvc.BroadcastMetrics(gctx, cfg.Live.MetricsInterval) })
	g.Go(func() error {
		log.Info("http listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("restaurant-service stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("restaurant-service shutdown complete")
}
