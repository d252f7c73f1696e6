// Package main is the entry point for the flash-loan arbitrage scanner.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	arbitrageApp "github.com/msolari/flasharb/business/arbitrage/app"
	arbitrageInfra "github.com/msolari/flasharb/business/arbitrage/infra"
	chainEthereum "github.com/msolari/flasharb/business/chain/infra/ethereum"
	fundingApp "github.com/msolari/flasharb/business/funding/app"
	"github.com/msolari/flasharb/business/funding/infra/aave"
	quotingApp "github.com/msolari/flasharb/business/quoting/app"
	quotingDomain "github.com/msolari/flasharb/business/quoting/domain"
	"github.com/msolari/flasharb/business/quoting/infra/aggregator"
	"github.com/msolari/flasharb/business/quoting/infra/curve"
	"github.com/msolari/flasharb/business/quoting/infra/univ2"
	"github.com/msolari/flasharb/business/quoting/infra/univ3"
	"github.com/msolari/flasharb/internal/apm"
	"github.com/msolari/flasharb/internal/asset"
	"github.com/msolari/flasharb/internal/config"
	"github.com/msolari/flasharb/internal/health"
	"github.com/msolari/flasharb/internal/logger"
	"github.com/msolari/flasharb/internal/metrics"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	once := flag.Bool("once", false, "Run a single scan pass and exit")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flasharb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath, *once); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, once bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting flash arbitrage scanner",
		"version", version,
		"environment", cfg.App.Environment,
	)

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "telemetry initialized", "prometheus_port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	// Chain access, shared by all on-chain adapters.
	callerCfg := chainEthereum.DefaultCallerConfig(cfg.Ethereum.HTTPURL)
	if cfg.Ethereum.ChainID != 0 {
		callerCfg.ChainID = cfg.Ethereum.ChainID
	}
	if cfg.Ethereum.CallTimeout > 0 {
		callerCfg.CallTimeout = cfg.Ethereum.CallTimeout
	}
	if cfg.Ethereum.RequestsPerSec > 0 {
		callerCfg.RequestsPerSec = cfg.Ethereum.RequestsPerSec
	}
	if cfg.Ethereum.RequestBurst > 0 {
		callerCfg.RequestBurst = cfg.Ethereum.RequestBurst
	}

	caller, err := chainEthereum.NewContractCaller(callerCfg, log)
	if err != nil {
		return fmt.Errorf("failed to create contract caller: %w", err)
	}
	if err := caller.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to ethereum node: %w", err)
	}
	defer caller.Close()

	gasOracle, err := chainEthereum.NewGasOracle(chainEthereum.DefaultGasOracleConfig(cfg.Ethereum.HTTPURL), log)
	if err != nil {
		return fmt.Errorf("failed to create gas oracle: %w", err)
	}
	gasOracle.UseClient(caller.Client())
	defer gasOracle.Close()

	healthPort := cfg.Telemetry.HealthPort
	if healthPort == 0 {
		healthPort = 8081
	}
	healthServer := health.NewServer(healthPort, version, log)
	healthServer.RegisterCheck("ethereum_rpc", func(ctx context.Context) (bool, string) {
		if _, err := gasOracle.GetGasPrice(ctx); err != nil {
			return false, err.Error()
		}
		return true, "rpc reachable"
	})
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}
	defer healthServer.Stop(ctx)

	// Domain wiring: tokens, pairs, venues.
	registry, err := buildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("invalid token configuration: %w", err)
	}
	pairs, err := buildPairs(cfg, registry)
	if err != nil {
		return fmt.Errorf("invalid pair configuration: %w", err)
	}
	venues, err := buildVenues(cfg)
	if err != nil {
		return fmt.Errorf("invalid venue configuration: %w", err)
	}

	adapters, err := buildAdapters(cfg, caller, log)
	if err != nil {
		return fmt.Errorf("failed to build venue adapters: %w", err)
	}

	quoter, err := quotingApp.NewQuoter(adapters, cfg.Analysis.QuoteCacheTTL, log)
	if err != nil {
		return fmt.Errorf("failed to create quoter: %w", err)
	}

	fundingService, err := buildFunding(cfg, caller, log)
	if err != nil {
		return fmt.Errorf("failed to create funding service: %w", err)
	}

	costModel := arbitrageApp.NewCostModel(arbitrageApp.CostModelConfig{
		SlippageCapPct:    decimal.NewFromFloat(cfg.Analysis.SlippageCapPct),
		GasPriceGwei:      decimal.NewFromFloat(cfg.Ethereum.GasPriceGwei),
		GasAssetPriceUSD:  decimal.NewFromFloat(cfg.Analysis.GasAssetPriceUSD),
		DefaultPremiumBps: decimal.NewFromFloat(cfg.Funding.DefaultPremiumBps),
		DefaultLoanGas:    cfg.Funding.LoanGasUnits,
	})

	optimizer := arbitrageApp.NewOptimizer(costModel, arbitrageApp.OptimizerConfig{
		MinTradeNotional:     decimal.NewFromFloat(cfg.Analysis.MinTradeNotionalUSD),
		MaxLiquidityFraction: decimal.NewFromFloat(cfg.Analysis.MaxLiquidityFraction),
		SearchIterations:     cfg.Analysis.SearchIterations,
		GrowthStepFraction:   decimal.NewFromFloat(cfg.Analysis.GrowthStepFraction),
	})

	scanner, err := arbitrageApp.NewScanner(quoter, decimal.NewFromFloat(cfg.Analysis.MinScanSpreadPct), log)
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	analyzer, err := arbitrageApp.NewAnalyzer(scanner, optimizer, costModel, fundingService, arbitrageApp.AnalyzerConfig{
		MinOpportunitySpreadPct: decimal.NewFromFloat(cfg.Analysis.MinOpportunitySpread),
		MinProfitUSD:            decimal.NewFromFloat(cfg.Analysis.MinProfitUSD),
		SlippageTolerancePct:    decimal.NewFromFloat(cfg.Analysis.SlippageTolerancePct),
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}

	var reporter arbitrageApp.Reporter = arbitrageInfra.NewConsoleReporter()

	log.Info(ctx, "scanner ready",
		"pairs", len(pairs),
		"venues", len(venues),
		"scan_interval", cfg.App.ScanInterval.String(),
	)

	runPass := func() {
		// Live gas price sharpens the pass; the configured reference
		// stands in when the oracle cannot deliver.
		if price, err := gasOracle.GetGasPrice(ctx); err == nil {
			costModel.UpdateGasPrice(decimal.NewFromFloat(price.Gwei()))
		} else {
			log.Warn(ctx, "gas price refresh failed, using reference", "error", err)
		}

		quoter.ResetCache()

		opportunities, rejections := analyzer.ScanAll(ctx, pairs, venues)
		for _, opp := range opportunities {
			reporter.Report(opp)
		}
		for _, none := range rejections {
			reporter.ReportNone(none)
		}
		reporter.Summary(opportunities, rejections)
	}

	runPass()
	if once {
		return nil
	}

	interval := cfg.App.ScanInterval
	if interval <= 0 {
		interval = 12 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info(ctx, "shutting down")
			return nil
		case <-ticker.C:
			runPass()
		}
	}
}

func buildRegistry(cfg *config.Config) (*asset.Registry, error) {
	registry := asset.NewRegistry()
	for _, token := range cfg.Tokens {
		if !common.IsHexAddress(token.Address) {
			return nil, fmt.Errorf("token %s: invalid address %q", token.Symbol, token.Address)
		}
		registry.Register(asset.MustNewToken(
			cfg.Ethereum.ChainID,
			common.HexToAddress(token.Address),
			token.Symbol,
			token.Name,
			token.Decimals,
		))
	}
	return registry, nil
}

func buildPairs(cfg *config.Config, registry *asset.Registry) ([]quotingDomain.Pair, error) {
	pairs := make([]quotingDomain.Pair, 0, len(cfg.Pairs))
	for _, spec := range cfg.Pairs {
		parts := strings.Split(spec, "-")
		if len(parts) != 2 {
			return nil, fmt.Errorf("pair %q: want BASE-QUOTE", spec)
		}
		base, ok := registry.GetBySymbolAndChain(parts[0], cfg.Ethereum.ChainID)
		if !ok {
			return nil, fmt.Errorf("pair %q: unknown token %s", spec, parts[0])
		}
		quote, ok := registry.GetBySymbolAndChain(parts[1], cfg.Ethereum.ChainID)
		if !ok {
			return nil, fmt.Errorf("pair %q: unknown token %s", spec, parts[1])
		}
		pairs = append(pairs, quotingDomain.NewPair(base, quote))
	}
	return pairs, nil
}

func buildVenues(cfg *config.Config) ([]quotingDomain.Venue, error) {
	venues := make([]quotingDomain.Venue, 0, len(cfg.Venues))
	for _, vc := range cfg.Venues {
		kind, err := quotingDomain.ParseVenueKind(vc.Kind)
		if err != nil {
			return nil, fmt.Errorf("venue %s: %w", vc.Name, err)
		}
		venues = append(venues, quotingDomain.Venue{
			Name:         vc.Name,
			Kind:         kind,
			FeeBps:       vc.FeeBps,
			Factory:      vc.FactoryAddress(),
			Router:       common.HexToAddress(vc.Router),
			Pool:         vc.PoolAddress(),
			SwapGas:      vc.SwapGas,
			LiquidityUSD: decimal.NewFromFloat(vc.LiquidityUSD),
		})
	}
	return venues, nil
}

func buildAdapters(cfg *config.Config, caller *chainEthereum.ContractCaller, log logger.LoggerInterface) (map[quotingDomain.VenueKind]quotingApp.VenueQuoter, error) {
	v2, err := univ2.NewQuoter(caller, log)
	if err != nil {
		return nil, err
	}
	v3, err := univ3.NewQuoter(caller, log)
	if err != nil {
		return nil, err
	}
	stable, err := curve.NewQuoter(caller, log)
	if err != nil {
		return nil, err
	}

	adapters := map[quotingDomain.VenueKind]quotingApp.VenueQuoter{
		quotingDomain.KindConstantProduct:       v2,
		quotingDomain.KindConcentratedLiquidity: v3,
		quotingDomain.KindStableSwap:            stable,
	}

	// The aggregator leg only exists when an API base URL is configured.
	if cfg.Aggregator.BaseURL != "" {
		agg, err := aggregator.NewQuoter(aggregator.Config{
			BaseURL:        cfg.Aggregator.BaseURL,
			APIKey:         cfg.Aggregator.APIKey,
			RequestTimeout: cfg.Aggregator.RequestTimeout,
			RequestsPerMin: cfg.Aggregator.RequestsPerMin,
		}, log)
		if err != nil {
			return nil, err
		}
		adapters[quotingDomain.KindExternalAggregator] = agg
	}

	return adapters, nil
}

func buildFunding(cfg *config.Config, caller *chainEthereum.ContractCaller, log logger.LoggerInterface) (*fundingApp.Service, error) {
	var provider fundingApp.FundingProvider

	if cfg.Funding.PoolAddress != "" {
		atokens := make(map[string]common.Address, len(cfg.Funding.ATokens))
		for symbol, addr := range cfg.Funding.ATokens {
			atokens[symbol] = common.HexToAddress(addr)
		}

		aaveProvider, err := aave.NewProvider(caller, aave.Config{
			PoolAddress: cfg.Funding.PoolAddressHex(),
			ATokens:     atokens,
		}, log)
		if err != nil {
			return nil, err
		}
		provider = aaveProvider
	}

	return fundingApp.NewService(provider, fundingApp.Config{
		DefaultPremiumBps: cfg.Funding.DefaultPremiumBps,
		LoanGasUnits:      cfg.Funding.LoanGasUnits,
	}, log)
}
