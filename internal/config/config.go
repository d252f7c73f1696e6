// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Ethereum   EthereumConfig   `mapstructure:"ethereum"`
	Tokens     []TokenConfig    `mapstructure:"tokens"`
	Pairs      []string         `mapstructure:"pairs"`
	Venues     []VenueConfig    `mapstructure:"venues"`
	Funding    FundingConfig    `mapstructure:"funding"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name         string        `mapstructure:"name"`
	Environment  string        `mapstructure:"environment"`
	LogLevel     string        `mapstructure:"log_level"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	HTTPURL        string        `mapstructure:"http_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
	RequestBurst   int           `mapstructure:"request_burst"`
	GasPriceGwei   float64       `mapstructure:"gas_price_gwei"`
}

// TokenConfig describes a tradable token. Identity is address + chain;
// decimals come from here, never fetched on the fly.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Name     string `mapstructure:"name"`
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
}

// VenueConfig describes one liquidity venue. Addressing fields are
// kind-specific: constant-product and concentrated venues use Factory,
// stable-swap venues use Pool, aggregator venues use none.
type VenueConfig struct {
	Name         string  `mapstructure:"name"`
	Kind         string  `mapstructure:"kind"`
	FeeBps       int64   `mapstructure:"fee_bps"`
	Factory      string  `mapstructure:"factory"`
	Router       string  `mapstructure:"router"`
	Pool         string  `mapstructure:"pool"`
	SwapGas      uint64  `mapstructure:"swap_gas"`
	LiquidityUSD float64 `mapstructure:"liquidity_usd"`
}

// FactoryAddress returns the factory address as common.Address.
func (v *VenueConfig) FactoryAddress() common.Address {
	return common.HexToAddress(v.Factory)
}

// PoolAddress returns the pool address as common.Address.
func (v *VenueConfig) PoolAddress() common.Address {
	return common.HexToAddress(v.Pool)
}

// FundingConfig holds flash-loan provider configuration.
type FundingConfig struct {
	PoolAddress       string            `mapstructure:"pool_address"`
	ATokens           map[string]string `mapstructure:"atokens"` // token symbol -> aToken address
	DefaultPremiumBps float64           `mapstructure:"default_premium_bps"`
	LoanGasUnits      uint64            `mapstructure:"loan_gas_units"`
}

// PoolAddressHex returns the lending pool address as common.Address.
func (f *FundingConfig) PoolAddressHex() common.Address {
	return common.HexToAddress(f.PoolAddress)
}

// AggregatorConfig holds external quote aggregator API configuration.
type AggregatorConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RequestsPerMin int           `mapstructure:"requests_per_min"`
}

// AnalysisConfig holds the policy constants for scanning and sizing.
type AnalysisConfig struct {
	MinScanSpreadPct      float64       `mapstructure:"min_scan_spread_pct"`
	MinOpportunitySpread  float64       `mapstructure:"min_opportunity_spread_pct"`
	MinProfitUSD          float64       `mapstructure:"min_profit_usd"`
	SlippageTolerancePct  float64       `mapstructure:"slippage_tolerance_pct"`
	SlippageCapPct        float64       `mapstructure:"slippage_cap_pct"`
	MinTradeNotionalUSD   float64       `mapstructure:"min_trade_notional_usd"`
	MaxLiquidityFraction  float64       `mapstructure:"max_liquidity_fraction"`
	SearchIterations      int           `mapstructure:"search_iterations"`
	GrowthStepFraction    float64       `mapstructure:"growth_step_fraction"`
	GasAssetPriceUSD      float64       `mapstructure:"gas_asset_price_usd"`
	QuoteCacheTTL         time.Duration `mapstructure:"quote_cache_ttl"`
}

// MinProfitUSDDecimal returns the profit target as decimal.Decimal.
func (c *AnalysisConfig) MinProfitUSDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitUSD)
}

// SlippageToleranceDecimal returns the tolerance as a fraction.
func (c *AnalysisConfig) SlippageToleranceDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SlippageTolerancePct / 100)
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	HealthPort     int    `mapstructure:"health_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("FLASH")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "FLASH_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "FLASH_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "FLASH_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.http_url", "FLASH_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "FLASH_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	// Funding
	v.BindEnv("funding.pool_address", "FLASH_FUNDING_POOL")

	// Aggregator
	v.BindEnv("aggregator.base_url", "FLASH_AGGREGATOR_URL")
	v.BindEnv("aggregator.api_key", "FLASH_AGGREGATOR_API_KEY")

	// Analysis
	v.BindEnv("analysis.min_profit_usd", "FLASH_MIN_PROFIT_USD")
	v.BindEnv("analysis.slippage_tolerance_pct", "FLASH_SLIPPAGE_TOLERANCE_PCT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "FLASH_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "FLASH_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "FLASH_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "flasharb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.scan_interval", "12s") // ~1 block

	// Ethereum defaults
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.call_timeout", "5s")
	v.SetDefault("ethereum.requests_per_sec", 20)
	v.SetDefault("ethereum.request_burst", 10)
	v.SetDefault("ethereum.gas_price_gwei", 25)

	// Pairs
	v.SetDefault("pairs", []string{"WETH-USDC"})

	// Funding defaults (Aave V3 Mainnet pool)
	v.SetDefault("funding.pool_address", "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2")
	v.SetDefault("funding.default_premium_bps", 9) // 0.09%
	v.SetDefault("funding.loan_gas_units", 250000)

	// Aggregator defaults
	v.SetDefault("aggregator.request_timeout", "3s")
	v.SetDefault("aggregator.requests_per_min", 60)

	// Analysis defaults
	v.SetDefault("analysis.min_scan_spread_pct", 0.1)
	v.SetDefault("analysis.min_opportunity_spread_pct", 0.5)
	v.SetDefault("analysis.min_profit_usd", 50)
	v.SetDefault("analysis.slippage_tolerance_pct", 1.0)
	v.SetDefault("analysis.slippage_cap_pct", 10.0)
	v.SetDefault("analysis.min_trade_notional_usd", 100)
	v.SetDefault("analysis.max_liquidity_fraction", 0.1)
	v.SetDefault("analysis.search_iterations", 20)
	v.SetDefault("analysis.growth_step_fraction", 0.25)
	v.SetDefault("analysis.gas_asset_price_usd", 3400)
	v.SetDefault("analysis.quote_cache_ttl", "3s")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flasharb")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.health_port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if len(c.Pairs) == 0 {
		return fmt.Errorf("pairs cannot be empty")
	}
	for _, t := range c.Tokens {
		if !common.IsHexAddress(t.Address) {
			return fmt.Errorf("invalid token address for %s: %s", t.Symbol, t.Address)
		}
		if t.Symbol == "" {
			return fmt.Errorf("token with address %s has no symbol", t.Address)
		}
	}
	for i := range c.Venues {
		if err := c.Venues[i].validate(); err != nil {
			return err
		}
	}
	if c.Funding.PoolAddress != "" && !common.IsHexAddress(c.Funding.PoolAddress) {
		return fmt.Errorf("invalid funding.pool_address: %s", c.Funding.PoolAddress)
	}
	if c.Analysis.MaxLiquidityFraction <= 0 || c.Analysis.MaxLiquidityFraction > 1 {
		return fmt.Errorf("analysis.max_liquidity_fraction must be in (0, 1]")
	}
	return nil
}

func (v *VenueConfig) validate() error {
	if v.Name == "" {
		return fmt.Errorf("venue with kind %q has no name", v.Kind)
	}
	if v.FeeBps < 0 || v.FeeBps >= 10000 {
		return fmt.Errorf("venue %s: fee_bps must be in [0, 10000)", v.Name)
	}
	switch v.Kind {
	case "constant_product", "concentrated_liquidity":
		if !common.IsHexAddress(v.Factory) {
			return fmt.Errorf("venue %s: invalid factory address %q", v.Name, v.Factory)
		}
	case "stable_swap":
		if !common.IsHexAddress(v.Pool) {
			return fmt.Errorf("venue %s: invalid pool address %q", v.Name, v.Pool)
		}
	case "external_aggregator":
		// addressing lives in aggregator config
	default:
		return fmt.Errorf("venue %s: unknown kind %q", v.Name, v.Kind)
	}
	return nil
}
