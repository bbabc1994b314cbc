package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"solana-transfer-watch/internal/classify"
	"solana-transfer-watch/internal/config"
	"solana-transfer-watch/internal/dedup"
	"solana-transfer-watch/internal/notify"
	"solana-transfer-watch/internal/observability"
	"solana-transfer-watch/internal/solana"
	"solana-transfer-watch/internal/storage"
	"solana-transfer-watch/internal/storage/memory"
	"solana-transfer-watch/internal/storage/sqlite"
	"solana-transfer-watch/internal/watch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: bad log level %q\n", cfg.LogLevel)
		os.Exit(1)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics := observability.NewMetrics("")

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	var store storage.SubscriberStore
	if cfg.SubscriberDBPath != "" {
		s, err := sqlite.NewSubscriberStore(cfg.SubscriberDBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("opening subscriber store")
		}
		store = s
		log.Info().Str("path", cfg.SubscriberDBPath).Msg("subscriber store on sqlite")
	} else {
		store = memory.NewSubscriberStore()
		log.Warn().Msg("subscriber store in memory only, list is lost on restart")
	}
	defer store.Close()

	// The status closure reads the client; it is wired below.
	var client *solana.Client
	status := func() string {
		state := "starting"
		if client != nil {
			state = client.State().String()
		}
		return fmt.Sprintf(
			"Stream: <b>%s</b>\nWatched addresses: <b>%d</b>\nPolicy: %s",
			state, len(cfg.WatchedAddresses), cfg.Policy,
		)
	}

	bot, err := notify.NewBot(cfg.TelegramToken, store, status, log.With().Str("component", "telegram").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("starting telegram bot")
	}
	sink := notify.NewService(bot, store, 10, log.With().Str("component", "broadcast").Logger())

	watched := classify.NewWatchedSet(cfg.WatchedAddresses)
	classifier := classify.New(watched, cfg.Policy, cfg.NonceAware)
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint)
	cache := dedup.NewCache(dedup.DefaultCapacity)
	processor := watch.NewProcessor(rpc, cache, classifier, sink, metrics,
		log.With().Str("component", "processor").Logger())

	wsCfg := solana.DefaultWSConfig()
	wsCfg.MaxReconnects = cfg.MaxReconnects
	hooks := solana.Hooks{
		Connected: func() {
			metrics.StreamConnected.Set(1)
		},
		Reconnecting: func(attempt int, delay time.Duration) {
			metrics.StreamConnected.Set(0)
			metrics.Reconnects.Inc()
		},
		HeartbeatMiss: func() {
			metrics.HeartbeatMisses.Inc()
		},
		Terminal: func(attempts int) {
			metrics.StreamConnected.Set(0)
			sink.Broadcast(ctx, watch.FormatTerminal(attempts))
		},
	}
	client = solana.NewClient(cfg.WSEndpoint, cfg.WatchedAddresses, &wsCfg, hooks,
		log.With().Str("component", "stream").Logger())

	go bot.Start(ctx)
	go processor.Run(ctx, client.Events())

	log.Info().
		Int("addresses", len(cfg.WatchedAddresses)).
		Str("policy", cfg.Policy.String()).
		Bool("nonce_aware", cfg.NonceAware).
		Msg("watcher starting")

	err = client.Run(ctx)
	switch {
	case errors.Is(err, solana.ErrRetriesExhausted):
		// One terminal alert went out via the hook; the bot keeps
		// serving commands until the process is stopped.
		log.Error().Msg("stream inert after exhausting reconnects, waiting for shutdown signal")
		<-ctx.Done()
	case err != nil && !errors.Is(err, context.Canceled):
		log.Error().Err(err).Msg("stream client stopped")
	}

	log.Info().Msg("shutdown complete")
}
