// Package ethereum provides go-ethereum backed adapters for the chain context.
package ethereum

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/msolari/flasharb/internal/apperror"
	"github.com/msolari/flasharb/internal/circuitbreaker"
	"github.com/msolari/flasharb/internal/logger"
	"github.com/msolari/flasharb/internal/ratelimit"
)

const (
	tracerName = "chain.ethereum"
	meterName  = "chain.ethereum"
)

// CallerConfig holds configuration for the contract caller.
type CallerConfig struct {
	RPCURL         string
	ChainID        uint64
	CallTimeout    time.Duration
	RequestsPerSec float64
	RequestBurst   int
}

// DefaultCallerConfig returns sensible defaults for a mainnet node.
func DefaultCallerConfig(rpcURL string) CallerConfig {
	return CallerConfig{
		RPCURL:         rpcURL,
		ChainID:        1,
		CallTimeout:    5 * time.Second,
		RequestsPerSec: 20,
		RequestBurst:   10,
	}
}

type callerMetrics struct {
	calls     metric.Int64Counter
	callErrs  metric.Int64Counter
	latencyMs metric.Float64Histogram
}

// ContractCaller executes eth_call requests through a rate limiter and
// a circuit breaker.
type ContractCaller struct {
	config CallerConfig
	logger logger.LoggerInterface

	client   *ethclient.Client
	clientMu sync.RWMutex

	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *callerMetrics
}

// NewContractCaller creates a caller. Connect must be called before use.
func NewContractCaller(cfg CallerConfig, log logger.LoggerInterface) (*ContractCaller, error) {
	c := &ContractCaller{
		config:  cfg,
		logger:  log,
		limiter: ratelimit.NewWithBurst(cfg.RequestsPerSec, cfg.RequestBurst),
		cb:      circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("eth-caller")),
		tracer:  otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *ContractCaller) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &callerMetrics{}

	c.metrics.calls, err = meter.Int64Counter(
		"eth_calls_total",
		metric.WithDescription("Total eth_call requests"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	c.metrics.callErrs, err = meter.Int64Counter(
		"eth_call_errors_total",
		metric.WithDescription("Failed eth_call requests"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	c.metrics.latencyMs, err = meter.Float64Histogram(
		"eth_call_latency_ms",
		metric.WithDescription("eth_call round trip latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Connect establishes connection to the Ethereum node.
func (c *ContractCaller) Connect(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "chain.connect",
		trace.WithAttributes(attribute.String("url", c.config.RPCURL)),
	)
	defer span.End()

	client, err := ethclient.DialContext(ctx, c.config.RPCURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect contract caller"))
	}

	c.clientMu.Lock()
	c.client = client
	c.clientMu.Unlock()

	span.SetStatus(codes.Ok, "connected")
	c.logger.Info(ctx, "contract caller connected", "url", c.config.RPCURL)

	return nil
}

// Call executes an eth_call at the latest block.
func (c *ContractCaller) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "chain.call",
		trace.WithAttributes(
			attribute.String("to", to.Hex()),
			attribute.Int("data_len", len(data)),
		),
	)
	defer span.End()

	c.clientMu.RLock()
	client := c.client
	c.clientMu.RUnlock()

	if client == nil {
		err := apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("contract caller not connected"))
		span.RecordError(err)
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.metrics.calls.Add(ctx, 1)
	start := time.Now()

	out, err := c.cb.Execute(func() ([]byte, error) {
		callCtx := ctx
		if c.config.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.config.CallTimeout)
			defer cancel()
		}

		msg := ethereum.CallMsg{
			To:   &to,
			Data: data,
		}
		return client.CallContract(callCtx, msg, nil)
	})

	c.metrics.latencyMs.Record(ctx, float64(time.Since(start).Milliseconds()))

	if err != nil {
		c.metrics.callErrs.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")

		if c.cb.IsOpen() {
			return nil, apperror.New(apperror.CodeCircuitOpen,
				apperror.WithCause(err),
				apperror.WithContext("eth-caller circuit open"))
		}
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("eth_call to "+to.Hex()))
	}

	span.SetStatus(codes.Ok, "called")
	return out, nil
}

// ChainID returns the configured chain ID.
func (c *ContractCaller) ChainID() uint64 {
	return c.config.ChainID
}

// Client exposes the underlying ethclient for adapters that need more
// than eth_call, such as the gas oracle.
func (c *ContractCaller) Client() *ethclient.Client {
	c.clientMu.RLock()
	defer c.clientMu.RUnlock()
	return c.client
}

// Close closes the underlying connection.
func (c *ContractCaller) Close() error {
	c.clientMu.Lock()
	defer c.clientMu.Unlock()

	if c.client != nil {
		c.client.Close()
		c.client = nil
	}

	return nil
}
