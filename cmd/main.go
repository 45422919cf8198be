package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/siddharth-2002/API-Workindia/internal/booking"
	"github.com/siddharth-2002/API-Workindia/internal/booking/application"
	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
	"github.com/siddharth-2002/API-Workindia/internal/booking/infrastructure"
	"github.com/siddharth-2002/API-Workindia/internal/config"
	pkgApp "github.com/siddharth-2002/API-Workindia/pkg/application"
	pkgDomain "github.com/siddharth-2002/API-Workindia/pkg/domain"
	pkgInfra "github.com/siddharth-2002/API-Workindia/pkg/infrastructure"
	promAdapter "github.com/siddharth-2002/API-Workindia/pkg/infrastructure/prometheus/adapter"
	redisAdapter "github.com/siddharth-2002/API-Workindia/pkg/infrastructure/redis/adapter"
	watermillAdapter "github.com/siddharth-2002/API-Workindia/pkg/infrastructure/watermill/adapter"
	zapAdapter "github.com/siddharth-2002/API-Workindia/pkg/infrastructure/zaplogger/adapter"
)

var configPath string

func init() {
	flag.StringVar(&configPath, "config", "", "Path to an optional config file (yaml, json or toml)")
}

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		panic(err)
	}

	appLogger, err := zapAdapter.NewZapAppLogger(zapAdapter.Config{App: "train-booking", Level: cfg.Log.Level})
	if err != nil {
		panic(err)
	}

	store, closeStore, err := infrastructure.NewTrainStore(infrastructure.DatabaseConfig{
		Driver:      cfg.Database.Driver,
		DSN:         cfg.Database.DSN,
		AutoMigrate: cfg.Database.AutoMigrate,
	}, appLogger)
	if err != nil {
		pkgApp.LogError(ctx, appLogger, "Erro ao inicializar o armazenamento", err, map[string]interface{}{
			"driver": cfg.Database.Driver,
		})
		os.Exit(1)
	}
	defer closeStore()

	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled {
		redisClient, err = redisAdapter.NewRedisClient(ctx, redisAdapter.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			pkgApp.LogError(ctx, appLogger, "Erro ao conectar no redis", err, nil)
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	eventBus, closeEvents, err := newEventBus(cfg, redisClient, appLogger)
	if err != nil {
		pkgApp.LogError(ctx, appLogger, "Erro ao inicializar o barramento de eventos", err, map[string]interface{}{
			"driver": cfg.Events.Driver,
		})
		os.Exit(1)
	}
	defer closeEvents()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := promAdapter.NewBookingMetrics(registry)
	if err != nil {
		panic(err)
	}

	commandBus := pkgInfra.NewSimpleCommandBus[pkgDomain.Command[application.BookSeatsData], application.BookSeatsData](appLogger)
	availabilityBus := pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.FindAvailabilityData], application.FindAvailabilityData, application.AvailabilityResult](appLogger)
	userBookingsBus := pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.FindUserBookingsData], application.FindUserBookingsData, []domain.UserBooking](appLogger)

	opts := booking.Options{
		Store:       store,
		LockTimeout: cfg.Booking.LockTimeout,
		Auth: infrastructure.AuthConfig{
			JWTSecret:   []byte(cfg.Auth.JWTSecret),
			AdminAPIKey: cfg.Auth.AdminAPIKey,
		},
		Metrics: metrics,
	}
	if redisClient != nil {
		cache := infrastructure.NewCachedAvailabilityReader(store, redisClient, cfg.Redis.CacheTTL, appLogger)
		opts.Reader = cache
		opts.Invalidator = cache
	}

	bookingSlice := booking.NewBookingSlice(
		commandBus,
		availabilityBus,
		userBookingsBus,
		eventBus,
		pkgInfra.GenerateUUID,
		appLogger,
		opts,
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(infrastructure.RequestIDToContext)
	router.Use(middleware.Recoverer)

	bookingSlice.RegisterRoutes(router)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		appLogger.Info(ctx, "Sinal capturado", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}

	go func() {
		appLogger.Info(ctx, "Server starting on:"+cfg.HTTP.Addr, map[string]interface{}{
			"database": cfg.Database.Driver,
			"events":   cfg.Events.Driver,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			pkgApp.LogError(ctx, appLogger, "Erro ao iniciar o servidor", err, nil)
			cancel()
		}
	}()

	<-ctx.Done()
	appLogger.Info(context.Background(), "Encerrando servidor...", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		pkgApp.LogError(context.Background(), appLogger, "Erro ao encerrar servidor", err, nil)
	}

	appLogger.Info(context.Background(), "Servidor encerrado", nil)
}

// newEventBus monta o barramento em processo ou um transporte watermill, conforme events.driver.
func newEventBus(cfg config.Config, redisClient redis.UniversalClient, appLogger pkgApp.AppLogger) (application.InventoryEventBus, func(), error) {
	if cfg.Events.Driver == "inproc" {
		return pkgInfra.NewSimpleEventBus[pkgDomain.Event[application.InventoryChangedData], application.InventoryChangedData](appLogger), func() {}, nil
	}

	wmLogger := watermillAdapter.NewWatermillLoggerAdapter(appLogger)
	pubSub, err := watermillAdapter.NewPubSub(watermillAdapter.PubSubConfig{
		Driver:             cfg.Events.Driver,
		KafkaBrokers:       cfg.Events.KafkaBrokers,
		KafkaConsumerGroup: cfg.Events.ConsumerGroup,
		RedisConsumerGroup: cfg.Events.ConsumerGroup,
		RedisConsumer:      cfg.Events.Consumer,
	}, redisClient, wmLogger)
	if err != nil {
		return nil, nil, err
	}

	bus := watermillAdapter.NewWatermillEventBus[pkgDomain.Event[application.InventoryChangedData], application.InventoryChangedData](pubSub.Publisher, pubSub.Subscriber, appLogger)
	return bus, func() {
		bus.Close()
		if err := pubSub.Close(); err != nil {
			pkgApp.LogError(context.Background(), appLogger, "Erro ao fechar o transporte de eventos", err, nil)
		}
	}, nil
}
