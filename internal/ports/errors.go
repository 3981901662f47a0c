package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Exchange Specific Errors
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrInvalidSymbol        = errors.New("invalid or unknown symbol")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrStateCorrupt   = errors.New("persisted state is corrupt")

	// Market Data Errors
	ErrMissingData      = errors.New("market data not found")
	ErrMalformedSeries  = errors.New("malformed price series")
	ErrInsufficientData = errors.New("not enough bars for warm-up")

	// Model Errors
	ErrModelNotTrained  = errors.New("classifier has not been trained")
	ErrEmptyDataset     = errors.New("dataset has no usable rows")
	ErrInvalidFeatures  = errors.New("feature vector contains non-finite values")
	ErrModelFileCorrupt = errors.New("classifier model file is corrupt")
)
