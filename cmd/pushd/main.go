// Command pushd consumes record-created events and turns them into push
// notifications. It also serves the admin claim and emoji suggestion APIs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/pushkit/pkg/config"
	"github.com/dmitrymomot/pushkit/pkg/httpserver"
	"github.com/dmitrymomot/pushkit/pkg/jwt"
	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/trigger"
	"github.com/dmitrymomot/pushkit/svc/admin"
	"github.com/dmitrymomot/pushkit/svc/dispatch"
	"github.com/dmitrymomot/pushkit/svc/emoji"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Name     string `env:"APP_NAME" envDefault:"pushd"`
	LogLevel string `env:"LOG_LEVEL"`

	DirectoryBackend    string        `env:"DIRECTORY_BACKEND" envDefault:"memory"`
	DirectoryCollection string        `env:"DIRECTORY_COLLECTION" envDefault:"users"`
	DirectoryCacheSize  int           `env:"DIRECTORY_CACHE_SIZE" envDefault:"1024"`
	DirectoryCacheTTL   time.Duration `env:"DIRECTORY_CACHE_TTL" envDefault:"1m"`

	PushTransport   string        `env:"PUSH_TRANSPORT" envDefault:"log"`
	PushSendTimeout time.Duration `env:"PUSH_SEND_TIMEOUT" envDefault:"10s"`

	TriggerSource         string        `env:"TRIGGER_SOURCE" envDefault:"redis"`
	TriggerMaxConcurrent  int           `env:"TRIGGER_MAX_CONCURRENT" envDefault:"16"`
	TriggerHandlerTimeout time.Duration `env:"TRIGGER_HANDLER_TIMEOUT" envDefault:"1m"`

	AnnouncementsGroup string `env:"ANNOUNCEMENTS_GROUP" envDefault:"announcements"`
	AnnouncementsTopic string `env:"ANNOUNCEMENTS_TOPIC" envDefault:"announcements"`

	JWTSecret string `env:"JWT_SECRET,required"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"pushkit"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	HTTP  httpserver.Config
	Emoji emoji.Config
}

func main() {
	if err := run(); err != nil {
		slog.Error("pushd stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithContextExtractors(logger.TraceExtractor(), requestIDAttr),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers closeStack
	defer closers.closeAll(log)

	shutdownTracing, err := setupTracing(ctx, cfg.OTLPEndpoint, cfg.Name)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	closers.push("tracing", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTracing(ctx)
	})

	users, checks, err := openDirectory(ctx, cfg, log, &closers)
	if err != nil {
		return fmt.Errorf("open directory: %w", err)
	}

	transport, err := openTransport(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open transport: %w", err)
	}

	pipeline, err := dispatch.New(users, transport,
		dispatch.WithLogger(log),
		dispatch.WithSendTimeout(cfg.PushSendTimeout),
		dispatch.WithAnnouncementsGroup(cfg.AnnouncementsGroup),
		dispatch.WithAnnouncementsTopic(cfg.AnnouncementsTopic),
		dispatch.WithMetrics(dispatch.NewMetrics(prometheus.DefaultRegisterer)),
	)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	router := trigger.NewRouter()
	pipeline.Register(router)

	source, sourceChecks, err := openSource(ctx, cfg, router.Collections(), log, &closers)
	if err != nil {
		return fmt.Errorf("open trigger source: %w", err)
	}
	checks = append(checks, sourceChecks...)

	worker, err := trigger.NewWorker(source, router,
		trigger.WithMaxConcurrent(cfg.TriggerMaxConcurrent),
		trigger.WithHandlerTimeout(cfg.TriggerHandlerTimeout),
		trigger.WithWorkerLogger(log),
		trigger.WithWorkerMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}

	tokens, err := jwt.NewFromString(cfg.JWTSecret, jwt.WithIssuer(cfg.JWTIssuer))
	if err != nil {
		return fmt.Errorf("create token service: %w", err)
	}

	suggester, err := emoji.New(cfg.Emoji, log)
	if err != nil {
		return fmt.Errorf("create emoji suggester: %w", err)
	}

	handler := newHandler(routes{
		log:     log,
		checks:  checks,
		tokens:  tokens,
		admin:   admin.NewHandler(admin.NewService(users, admin.WithLogger(log))),
		emoji:   emoji.NewHandler(suggester, log),
		metrics: httpserver.NewMetrics(prometheus.DefaultRegisterer),
		service: cfg.Name,
	})
	server := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))

	log.InfoContext(ctx, "pushd starting",
		slog.String("directory", cfg.DirectoryBackend),
		slog.String("transport", cfg.PushTransport),
		slog.String("source", cfg.TriggerSource),
		slog.String("http_addr", cfg.HTTP.Addr),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(worker.Run(ctx))
	g.Go(func() error { return server.Run(ctx, handler) })

	return g.Wait()
}
