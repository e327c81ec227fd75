package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/pushkit/pkg/config"
	"github.com/dmitrymomot/pushkit/pkg/httpserver"
	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/mongo"
	"github.com/dmitrymomot/pushkit/pkg/notifications"
	"github.com/dmitrymomot/pushkit/pkg/pg"
	"github.com/dmitrymomot/pushkit/pkg/push"
	"github.com/dmitrymomot/pushkit/pkg/redis"
	"github.com/dmitrymomot/pushkit/pkg/trigger"
	"github.com/dmitrymomot/pushkit/svc/directory"
)

var (
	errUnknownTransport = errors.New("unknown push transport")
	errUnknownSource    = errors.New("unknown trigger source")
)

// closeStack releases resources in reverse order of acquisition.
type closeStack []namedCloser

type namedCloser struct {
	name string
	fn   func() error
}

func (s *closeStack) push(name string, fn func() error) {
	*s = append(*s, namedCloser{name: name, fn: fn})
}

func (s *closeStack) closeAll(log *slog.Logger) {
	for i := len(*s) - 1; i >= 0; i-- {
		c := (*s)[i]
		if err := c.fn(); err != nil {
			log.Error("close failed", logger.Component(c.name), logger.Error(err))
		}
	}
	*s = nil
}

// openDirectory connects the configured user directory backend. Backend
// configs are loaded only when selected, so their required variables do
// not apply to other backends.
func openDirectory(ctx context.Context, cfg appConfig, log *slog.Logger, closers *closeStack) (directory.Store, []httpserver.Check, error) {
	var (
		store  directory.Store
		checks []httpserver.Check
	)

	switch cfg.DirectoryBackend {
	case "memory":
		store = directory.NewMemory()

	case "mongo":
		var mcfg mongo.Config
		if err := config.Load(&mcfg); err != nil {
			return nil, nil, err
		}
		client, err := mongo.New(ctx, mcfg)
		if err != nil {
			return nil, nil, err
		}
		closers.push("mongo", func() error { return client.Disconnect(context.Background()) })
		checks = append(checks, httpserver.Check{Name: "mongo", Fn: mongo.Healthcheck(client)})
		store = directory.NewMongo(client.Database(mcfg.Database), cfg.DirectoryCollection)

	case "postgres":
		var pcfg pg.Config
		if err := config.Load(&pcfg); err != nil {
			return nil, nil, err
		}
		pool, err := pg.Connect(ctx, pcfg)
		if err != nil {
			return nil, nil, err
		}
		closers.push("postgres", func() error { pool.Close(); return nil })
		if err := pg.Migrate(ctx, pool, directory.Migrations, directory.MigrationsDir, pcfg, log); err != nil {
			return nil, nil, err
		}
		checks = append(checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})
		store = directory.NewPostgres(pool)

	default:
		return nil, nil, fmt.Errorf("%w: %q", directory.ErrUnknownBackend, cfg.DirectoryBackend)
	}

	if cfg.DirectoryCacheSize > 0 && cfg.DirectoryBackend != "memory" {
		store = directory.NewCached(store, cfg.DirectoryCacheSize, cfg.DirectoryCacheTTL)
	}
	return store, checks, nil
}

// openTransport builds the configured push delivery transport.
func openTransport(ctx context.Context, cfg appConfig, log *slog.Logger) (notifications.Transport, error) {
	switch cfg.PushTransport {
	case "fcm":
		var fcfg push.FCMConfig
		if err := config.Load(&fcfg); err != nil {
			return nil, err
		}
		return push.NewFCM(ctx, fcfg, push.WithFCMLogger(log))

	case "gateway":
		var gcfg push.GatewayConfig
		if err := config.Load(&gcfg); err != nil {
			return nil, err
		}
		return push.NewGatewayFromConfig(gcfg, push.WithGatewayLogger(log))

	case "log":
		return notifications.NewLogTransport(log), nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownTransport, cfg.PushTransport)
}

// openSource subscribes to record-created events for the routed collections.
func openSource(ctx context.Context, cfg appConfig, collections []string, log *slog.Logger, closers *closeStack) (trigger.Source, []httpserver.Check, error) {
	switch cfg.TriggerSource {
	case "redis":
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			return nil, nil, err
		}
		var tcfg trigger.RedisConfig
		if err := config.Load(&tcfg); err != nil {
			return nil, nil, err
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			return nil, nil, err
		}
		closers.push("redis", client.Close)

		src, err := trigger.NewRedisStreamSource(ctx, client, tcfg, trigger.WithRedisLogger(log))
		if err != nil {
			return nil, nil, err
		}
		closers.push("redis source", src.Close)
		return src, []httpserver.Check{{Name: "redis", Fn: redis.Healthcheck(client)}}, nil

	case "nats":
		var ncfg trigger.NATSConfig
		if err := config.Load(&ncfg); err != nil {
			return nil, nil, err
		}
		nc, err := trigger.ConnectNATS(ncfg, cfg.Name)
		if err != nil {
			return nil, nil, err
		}
		closers.push("nats", nc.Drain)

		src, err := trigger.NewNATSSource(nc, ncfg, collections, trigger.WithNATSLogger(log))
		if err != nil {
			return nil, nil, err
		}
		closers.push("nats source", src.Close)
		return src, []httpserver.Check{{Name: "nats", Fn: trigger.NATSHealthcheck(nc)}}, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", errUnknownSource, cfg.TriggerSource)
}
