package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/drakos74/level-trader/client/binance"
	"github.com/drakos74/level-trader/infra/config"
	"github.com/drakos74/level-trader/internal/metrics"
	"github.com/drakos74/level-trader/internal/server"
	"github.com/drakos74/level-trader/internal/storage"
	"github.com/drakos74/level-trader/internal/trader"
	"github.com/drakos74/level-trader/user"
	"github.com/drakos74/level-trader/user/telegram"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	path := flag.String("config", config.Path, "path of the json config")
	console := flag.Bool("console", false, "human friendly log output")
	flag.Parse()

	if *console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	shard, err := cfg.Shard()
	if err != nil {
		log.Fatal().Err(err).Msg("could not create storage")
	}
	store, err := shard(storage.LearnerDir)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create learner storage")
	}
	ledger, err := cfg.NewLedger()
	if err != nil {
		log.Fatal().Err(err).Msg("could not create ledger")
	}

	registry := prometheus.NewRegistry()
	observer, err := metrics.NewObserver(cfg.Trader.Pair, registry)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create metrics")
	}

	var notifier user.Notifier = user.NewVoid()
	if bot, err := telegram.NewBot(cfg.Token()); err != nil {
		log.Warn().Err(err).Msg("telegram notifications disabled")
	} else {
		notifier = bot
	}

	loop := trader.New(cfg.Trader, store, ledger).
		WithNotifier(notifier).
		WithObserver(observer)

	srv := server.NewServer("levels", cfg.Server.Port, loop, ledger, registry)
	if cfg.Server.Debug {
		srv.Debug()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	g.Go(func() error {
		return loop.Run(ctx, binance.NewSource(cfg.User, cfg.Binance))
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("stopped")
	}
	log.Info().Msg("shut down")
}
