package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Quoting error codes. These carry the venue-failure taxonomy: a missing
// pool is expected and frequent, degenerate pool state is worth a warning,
// and transport failures are transient and retryable by the caller.
const (
	CodeNoLiquidity         Code = "NO_LIQUIDITY"
	CodeStalePoolState      Code = "STALE_POOL_STATE"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"

	CodeContractCallFailed Code = "CONTRACT_CALL_FAILED"
	CodeInvalidQuote       Code = "INVALID_QUOTE"
)

// Chain connectivity error codes
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
)

// Aggregator API error codes
const (
	CodeAggregatorAPIError    Code = "AGGREGATOR_API_ERROR"
	CodeAggregatorRateLimited Code = "AGGREGATOR_RATE_LIMITED"
)

// Funding error codes
const (
	CodeFundingQuoteFailed Code = "FUNDING_QUOTE_FAILED"
)

// Analysis error codes
const (
	CodePriceCalculationFailed Code = "PRICE_CALCULATION_FAILED"
	CodeInvalidTradeSize       Code = "INVALID_TRADE_SIZE"
)

// Circuit breaker error codes
const (
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
