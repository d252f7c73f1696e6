package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	// Quoting errors
	CodeNoLiquidity:         "No pool or path exists for this pair on the venue",
	CodeStalePoolState:      "Pool returned degenerate or stale state",
	CodeUpstreamUnavailable: "Upstream read could not be completed",
	CodeContractCallFailed:  "Smart contract call failed",
	CodeInvalidQuote:        "Invalid quote data",

	// Chain connectivity errors
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeGasEstimationFailed:      "Gas estimation failed",

	// Aggregator API errors
	CodeAggregatorAPIError:    "Aggregator API error",
	CodeAggregatorRateLimited: "Aggregator rate limit exceeded",

	// Funding errors
	CodeFundingQuoteFailed: "Failed to fetch funding quote",

	// Analysis errors
	CodePriceCalculationFailed: "Price calculation failed",
	CodeInvalidTradeSize:       "Invalid trade size",

	// Circuit breaker errors
	CodeCircuitOpen: "Circuit breaker is open",
}
