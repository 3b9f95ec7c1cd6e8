// Package netexec provides the default network executor: the stateless
// collaborator that performs real HTTP calls on behalf of guest fetches.
// The script engine itself never opens sockets.
package netexec

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/relayhq/relay/internal/config"
	"github.com/relayhq/relay/internal/logging"
	"github.com/relayhq/relay/internal/script/bridge"
	"github.com/relayhq/relay/internal/script/marshal"
)

// Executor wraps resty with retries and rate limiting
type Executor struct {
	client  *resty.Client
	limiter *rate.Limiter
	logger  *logging.Logger
}

// New creates a production-ready executor
func New(cfg config.HTTPConfig, logger *logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NewDefault()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil // Disable retryablehttp's own logging

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "relay-script/1.0").
		SetTransport(retryClient.HTTPClient.Transport).
		SetDoNotParseResponse(true) // bodies are drained by the marshaler

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateRPS), 1)
	}

	return &Executor{
		client:  client,
		limiter: limiter,
		logger:  logger.Named("netexec"),
	}
}

// Do performs one request described by the marshaler. It satisfies
// bridge.NetworkExecutor.
func (e *Executor) Do(ctx context.Context, desc *marshal.RequestDescriptor) (*marshal.RawResponse, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := e.client.R().SetContext(ctx)
	for _, h := range desc.Headers {
		req.SetHeader(h.Name, h.Value)
	}
	if desc.Body.Kind != marshal.BodyNone && len(desc.Body.Content) > 0 {
		req.SetBody(bytes.NewReader(desc.Body.Content))
	}

	start := time.Now()
	resp, err := req.Execute(desc.Method, desc.URL)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", desc.Method, desc.URL, err)
	}

	e.logger.Debug("request complete",
		zap.String("method", desc.Method),
		zap.String("url", desc.URL),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)

	raw := marshal.FromHTTPResponse(resp.RawResponse)
	raw.Body = resp.RawBody()
	return raw, nil
}

var _ bridge.NetworkExecutor = (&Executor{}).Do
