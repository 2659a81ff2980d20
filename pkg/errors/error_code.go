package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidConfiguration ErrorCode = 100
	ErrCodeInvalidWindow        ErrorCode = 101
	ErrCodeInvalidFraction      ErrorCode = 102
	ErrCodeInvalidInterval      ErrorCode = 103
	ErrCodeInvalidParameter     ErrorCode = 104

	// Data errors (200-299)
	ErrCodeInsufficientData ErrorCode = 200
	ErrCodeNoDataFound      ErrorCode = 201

	// Strategy errors (400-499)
	ErrCodeStrategyNotReady ErrorCode = 400

	// Trading errors (500-599)
	ErrCodeOrderFailed       ErrorCode = 500
	ErrCodeOrderNotFound     ErrorCode = 501
	ErrCodeCancelFailed      ErrorCode = 502
	ErrCodeWalletUnavailable ErrorCode = 503

	// Backtest errors (600-699)
	ErrCodeBacktestConfigError ErrorCode = 600
	ErrCodeReportWriteFailed   ErrorCode = 601

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 701
	ErrCodeStreamClosed          ErrorCode = 702
	ErrCodeSubscribeFailed       ErrorCode = 703
)
