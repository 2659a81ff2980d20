package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/quantfork/cryptbot/internal/backtest"
	"github.com/quantfork/cryptbot/internal/exchange"
	"github.com/quantfork/cryptbot/internal/logger"
	"github.com/quantfork/cryptbot/internal/report"
	"github.com/quantfork/cryptbot/internal/strategy"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
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

// runAction replays the configured period through the strategy and writes the
// report to the output directory.
func runAction(ctx context.Context, cmd *cli.Command) error {
	zlog, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer zlog.Sync()

	cfg, err := loadStrategyConfig(cmd.String("strategy-config"))
	if err != nil {
		return err
	}

	capital, err := decimal.NewFromString(cmd.String("capital"))
	if err != nil {
		return fmt.Errorf("invalid --capital value: %w", err)
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

	candles, err := ex.GetHistoricalCandles(ctx, cfg.Interval, cmd.Timestamp("start"), cmd.Timestamp("end"))
	if err != nil {
		return err
	}

	engine := backtest.NewEngine(
		strat,
		ex.Symbol(), cfg.Interval,
		capital,
		decimal.NewFromFloat(cfg.TradingFraction),
		decimal.NewFromFloat(cfg.LossFraction),
		zlog,
	)

	bar := progressbar.Default(int64(len(candles)))
	engine.OnProgress(func(done, total int) {
		bar.Set(done) //nolint:errcheck // progress display only
	})

	result, err := engine.Run(ctx, candles)
	if err != nil {
		return err
	}

	writer, err := report.NewCSVWriter(cmd.String("out"), strat.Name())
	if err != nil {
		return err
	}
	defer writer.Close()

	if err := writer.WriteRows(result.Rows); err != nil {
		return err
	}

	final := result.FinalRow()
	summary := report.Summarize(result, final, time.Now().UTC())

	if err := writer.WriteSummary(summary); err != nil {
		return err
	}

	fmt.Printf("run %s finished (%s): final capital %s, report in %s\n",
		result.RunID, result.StopReason, final.Capital.String(), writer.RunDir())

	return nil
}

// schemaAction prints the strategy configuration JSON schema.
func schemaAction(_ context.Context, _ *cli.Command) error {
	cfg := strategy.DefaultConfig()

	schema, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Replay historical candles through the SMA crossover strategy",
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
			&cli.TimestampFlag{
				Name:     "start",
				Aliases:  []string{"s"},
				Usage:    "Start of the replay period in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End of the replay period in `YYYY-MM-DD` format. Defaults to now.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:  "capital",
				Usage: "Initial quote-asset capital",
				Value: "1000",
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
				Usage: "Fetch candles from the Binance spot testnet",
			},
		},
		Action: runAction,
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Print the strategy configuration JSON schema",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
