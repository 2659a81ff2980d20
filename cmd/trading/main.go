package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantfork/cryptbot/internal/exchange"
	"github.com/quantfork/cryptbot/internal/live"
	"github.com/quantfork/cryptbot/internal/logger"
	"github.com/quantfork/cryptbot/internal/report"
	"github.com/quantfork/cryptbot/internal/strategy"
	"github.com/urfave/cli/v3"
)

func loadStrategyConfig(path string) (strategy.Config, error) {
	if path == "" {
		return strategy.DefaultConfig(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return strategy.Config{}, fmt.Errorf("failed to read strategy config: %w", err)
	}

	return strategy.ParseConfig(string(raw))
}

// tradeAction runs a live session until interrupted, the capital floor is
// breached, or the stream is lost for good.
func tradeAction(ctx context.Context, cmd *cli.Command) error {
	zlog, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer zlog.Sync()

	cfg, err := loadStrategyConfig(cmd.String("strategy-config"))
	if err != nil {
		return err
	}

	exCfg := exchange.Config{
		BaseAsset:  cmd.String("base"),
		QuoteAsset: cmd.String("quote"),
		APIKey:     os.Getenv("BINANCE_API_KEY"),
		SecretKey:  os.Getenv("BINANCE_SECRET_KEY"),
		UseTestnet: cmd.Bool("testnet"),
	}

	ex, err := exchange.NewBinanceExchange(exCfg, zlog)
	if err != nil {
		return err
	}

	strat, err := strategy.NewSMACross(cfg)
	if err != nil {
		return err
	}

	writer, err := report.NewCSVWriter(cmd.String("out"), strat.Name())
	if err != nil {
		return err
	}
	defer writer.Close()

	// SIGINT and SIGTERM end the session between candles.
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := live.NewRunner(ex, ex, strat, cfg, writer, zlog)

	summary, err := runner.Run(runCtx)
	if err != nil {
		return err
	}

	fmt.Printf("session %s finished (%s): final capital %s, report in %s\n",
		summary.RunID, summary.StopReason, summary.FinalCapital.String(), writer.RunDir())

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "trading",
		Usage: "Run the SMA crossover strategy live against Binance",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "base",
				Aliases: []string{"b"},
				Usage:   "Base asset of the traded pair",
				Value:   "BTC",
			},
			&cli.StringFlag{
				Name:    "quote",
				Aliases: []string{"q"},
				Usage:   "Quote asset of the traded pair",
				Value:   "USDT",
			},
			&cli.StringFlag{
				Name:    "strategy-config",
				Aliases: []string{"c"},
				Usage:   "Path to the strategy YAML config. Defaults apply when omitted.",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Report output directory",
				Value:   "results",
			},
			&cli.BoolFlag{
				Name:  "testnet",
				Usage: "Trade against the Binance spot testnet",
			},
		},
		Action: tradeAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
