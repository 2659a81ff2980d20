package report

import (
	"time"

	"github.com/quantfork/cryptbot/internal/types"
)

// Summarize condenses a finished backtest into its run summary. The final
// position is read off the ledger: any base holding means the run ended open.
func Summarize(result *types.BacktestReport, final types.ReportRow, finishedAt time.Time) types.RunSummary {
	position := types.PositionFlat
	if final.BaseAmount.IsPositive() {
		position = types.PositionOpen
	}

	return types.RunSummary{
		RunID:         result.RunID,
		StrategyName:  result.StrategyName,
		Symbol:        result.Symbol,
		Interval:      result.Interval,
		StartedAt:     result.StartedAt,
		FinishedAt:    finishedAt,
		StopReason:    result.StopReason,
		FinalPosition: position,
		FinalBase:     final.BaseAmount,
		FinalQuote:    final.QuoteAmount,
		FinalCapital:  final.Capital,
		CandleCount:   len(result.Rows),
	}
}
