package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/notifications"
	"github.com/dmitrymomot/pushkit/svc/directory"
)

func TestCloseStack(t *testing.T) {
	t.Parallel()

	var order []string
	var s closeStack
	s.push("first", func() error { order = append(order, "first"); return nil })
	s.push("second", func() error { order = append(order, "second"); return errors.New("boom") })
	s.push("third", func() error { order = append(order, "third"); return nil })

	s.closeAll(slog.New(slog.DiscardHandler))

	assert.Equal(t, []string{"third", "second", "first"}, order)
	assert.Empty(t, s)
}

func TestOpenDirectory(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.DiscardHandler)

	t.Run("memory", func(t *testing.T) {
		var closers closeStack
		store, checks, err := openDirectory(context.Background(), appConfig{DirectoryBackend: "memory", DirectoryCacheSize: 10}, log, &closers)
		require.NoError(t, err)
		assert.IsType(t, &directory.Memory{}, store)
		assert.Empty(t, checks)
		assert.Empty(t, closers)
	})

	t.Run("unknown backend", func(t *testing.T) {
		var closers closeStack
		_, _, err := openDirectory(context.Background(), appConfig{DirectoryBackend: "sqlite"}, log, &closers)
		assert.ErrorIs(t, err, directory.ErrUnknownBackend)
	})
}

func TestOpenTransport(t *testing.T) {
	t.Parallel()
	log := slog.New(slog.DiscardHandler)

	tr, err := openTransport(context.Background(), appConfig{PushTransport: "log"}, log)
	require.NoError(t, err)
	assert.IsType(t, &notifications.LogTransport{}, tr)

	_, err = openTransport(context.Background(), appConfig{PushTransport: "carrier-pigeon"}, log)
	assert.ErrorIs(t, err, errUnknownTransport)
}

func TestOpenSourceUnknown(t *testing.T) {
	t.Parallel()

	var closers closeStack
	_, _, err := openSource(context.Background(), appConfig{TriggerSource: "kafka"}, nil, slog.New(slog.DiscardHandler), &closers)
	assert.ErrorIs(t, err, errUnknownSource)
}

func TestSetupTracingWithoutEndpoint(t *testing.T) {
	shutdown, err := setupTracing(context.Background(), "", "pushd")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
