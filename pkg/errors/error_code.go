package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidSignal        ErrorCode = 102
	ErrCodeInvalidOrder         ErrorCode = 103

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound   ErrorCode = 200
	ErrCodeArchiveFailed  ErrorCode = 201
	ErrCodeQueryFailed    ErrorCode = 202
	ErrCodeSessionFailed  ErrorCode = 203
	ErrCodeConfigNotFound ErrorCode = 204

	// Risk errors (300-399)
	ErrCodeRiskRejected          ErrorCode = 300
	ErrCodeCircuitBreakerTripped ErrorCode = 301
	ErrCodeExposureExceeded      ErrorCode = 302
	ErrCodeDrawdownExceeded      ErrorCode = 303

	// Execution errors (400-499)
	ErrCodeSignalExpired     ErrorCode = 400
	ErrCodeUnknownExchange   ErrorCode = 401
	ErrCodeInvalidTransition ErrorCode = 402
	ErrCodeOrderNotFound     ErrorCode = 403

	// Trading errors (500-599)
	ErrCodeOrderFailed       ErrorCode = 500
	ErrCodePositionNotFound  ErrorCode = 501
	ErrCodeMarketDataMissing ErrorCode = 502
	ErrCodeCancelFailed      ErrorCode = 503
	ErrCodeFetchFailed       ErrorCode = 504
	ErrCodeInsufficientFunds ErrorCode = 505

	// Transport errors (700-799)
	ErrCodeExchangeUnavailable ErrorCode = 700
	ErrCodeRateLimited         ErrorCode = 701

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)
