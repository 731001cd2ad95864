package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/drakos74/level-trader/client/history"
	"github.com/drakos74/level-trader/infra/config"
	"github.com/drakos74/level-trader/internal/account"
	"github.com/drakos74/level-trader/internal/model"
	"github.com/drakos74/level-trader/internal/storage"
	"github.com/drakos74/level-trader/internal/trader"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const backtestPrefix = "backtest"

func init() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func main() {
	csv := flag.String("csv", "", "path of the 1m klines csv file")
	path := flag.String("config", config.Path, "path of the json config")
	maxTrades := flag.Int("max-trades", 0, "stop after the given number of trades, 0 for no limit")
	start := flag.Int("start-idx", history.DefaultStart, "index of the first bar to trade on")
	trainReal := flag.Bool("train-real", false, "train the learners of the live pair instead of the backtest ones")
	verbose := flag.Bool("v", false, "log at the configured level instead of warn")
	flag.Parse()

	if *csv == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load config")
	}
	if *verbose {
		zerolog.SetGlobalLevel(cfg.Level())
	}

	bars, err := history.Load(*csv)
	if err != nil {
		log.Fatal().Err(err).Str("csv", *csv).Msg("could not load klines")
	}
	if len(bars) <= *start {
		log.Fatal().Int("bars", len(bars)).Int("start", *start).Msg("not enough klines")
	}

	tc := cfg.Trader
	if !*trainReal {
		tc.Pair = fmt.Sprintf("%s_%s", backtestPrefix, tc.Pair)
	}
	tc.TradePrefix = "bt"
	if *maxTrades > 0 {
		tc.MaxTrades = *maxTrades
	}

	shard, err := cfg.Shard()
	if err != nil {
		log.Fatal().Err(err).Msg("could not create storage")
	}
	store, err := shard(storage.LearnerDir)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create learner storage")
	}
	ledger := storage.NewMemoryLedger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	loop := trader.New(tc, store, ledger)
	if err := loop.Run(ctx, history.NewReplay(bars, *start, model.SnapshotBars)); err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}

	trades, err := ledger.Recent(0)
	if err != nil {
		log.Fatal().Err(err).Msg("could not read trades")
	}
	summary := account.Summarize(trades)
	fmt.Printf("file      : %s\n", filepath.Base(*csv))
	fmt.Printf("pair      : %s\n", tc.Pair)
	fmt.Printf("bars      : %d\n", len(bars)-*start)
	fmt.Printf("trades    : %d (%d wins / %d losses)\n", summary.Trades, summary.Wins, summary.Losses)
	fmt.Printf("win rate  : %.1f%%\n", summary.WinRate*100)
	fmt.Printf("pnl       : %+.2f (%+.2f%%)\n", summary.TotalPnL, summary.TotalPnLPercent)
	fmt.Printf("drawdown  : %.2f\n", summary.MaxDrawdown)
	fmt.Printf("profit f. : %.2f\n", summary.ProfitFactor)
	fmt.Printf("balance   : %.2f\n", loop.Balance())
	for reason, n := range summary.Exits {
		fmt.Printf("  %-20s %d\n", reason, n)
	}
	fmt.Printf("weights   : %v\n", loop.Weights())
}
