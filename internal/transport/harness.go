// Package transport is the caller-side harness that drives one envelope
// through a flow: headers -> url -> body -> network call -> response or error
// handling. The flow implementations themselves stay pure; all I/O, circuit
// breaking, logging and metrics live here.
package transport

import (
	"bytes"
	stdcontext "context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yourorg/payment-connector/internal/connector"
	"github.com/yourorg/payment-connector/internal/envelope"
	"github.com/yourorg/payment-connector/internal/method"
	"github.com/yourorg/payment-connector/internal/reporting"
	"github.com/yourorg/payment-connector/internal/transport/circuitbreaker"
)

// Client executes flows against gateways. Safe for concurrent use; the only
// mutable state is the circuit breaker and the outcome record buffer, both
// behind their own locks.
type Client struct {
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     zerolog.Logger

	mu      sync.Mutex
	records []reporting.FlowRecord
}

// NewClient creates a transport client. A nil httpClient gets a 30s-timeout
// default; a nil breaker gets default settings.
func NewClient(httpClient *http.Client, breaker *circuitbreaker.CircuitBreaker, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if breaker == nil {
		breaker = circuitbreaker.NewCircuitBreaker()
	}
	return &Client{httpClient: httpClient, breaker: breaker, logger: logger}
}

// Breaker exposes the circuit breaker for monitoring.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// Records returns a copy of the flow records accumulated so far, for
// retrospective reporting.
func (c *Client) Records() []reporting.FlowRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]reporting.FlowRecord, len(c.records))
	copy(out, c.records)
	return out
}

func (c *Client) record(rec reporting.FlowRecord) {
	c.mu.Lock()
	c.records = append(c.records, rec)
	c.mu.Unlock()
}

// Meta carries the amount context a flow record needs; the harness cannot
// read it generically out of the flow-specific request type.
type Meta struct {
	Amount   int64
	Currency string
}

// Execute drives one envelope through a flow against its gateway.
//
// The returned envelope is resolved with either a success response or a
// fully-populated error response — except when the network call itself fails
// or is cancelled, in which case the input envelope is returned unresolved
// alongside the error: an unknown outcome the caller may only retry behind
// an idempotency key.
func Execute[Req, Resp any](
	ctx stdcontext.Context,
	c *Client,
	gateway string,
	flow connector.Flow[Req, Resp],
	env *envelope.Envelope[Req, Resp],
	meta Meta,
) (*envelope.Envelope[Req, Resp], error) {
	tracer := otel.Tracer("transport")
	ctx, span := tracer.Start(ctx, "Transport.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("gateway", gateway),
		attribute.String("flow", env.Flow().String()),
	)

	start := time.Now()

	if flow == nil {
		out, err := env.WithError(connector.NotSupported(gateway, "flow "+env.Flow().String()))
		if err != nil {
			return nil, err
		}
		c.finish(out.Common, env.Flow(), gateway, meta, outcomeNotSupported, envelope.KindNotSupported, "NOT_SUPPORTED", start)
		return out, nil
	}

	if !c.breaker.IsHealthy(gateway) {
		out, err := env.WithError(envelope.ErrorResponse{
			StatusCode: http.StatusServiceUnavailable,
			Kind:       envelope.KindTransient,
			Code:       "CIRCUIT_OPEN",
			Message:    fmt.Sprintf("circuit open for gateway %q", gateway),
		})
		if err != nil {
			return nil, err
		}
		c.finish(out.Common, env.Flow(), gateway, meta, outcomeCircuitOpen, envelope.KindTransient, "CIRCUIT_OPEN", start)
		return out, nil
	}

	headers, url, body, buildErr := buildRequest(flow, env)
	if buildErr != nil {
		// Build failures never reach the network and never trip the breaker.
		var notSupported *method.NotSupportedError
		var missing *envelope.MissingRequiredFieldError
		switch {
		case errors.As(buildErr, &notSupported):
			out, err := env.WithError(connector.NotSupported(gateway, "payment method "+string(notSupported.Method)))
			if err != nil {
				return nil, err
			}
			c.finish(out.Common, env.Flow(), gateway, meta, outcomeNotSupported, envelope.KindNotSupported, "NOT_SUPPORTED", start)
			return out, nil
		case errors.As(buildErr, &missing):
			out, err := env.WithError(envelope.ErrorResponse{
				StatusCode: http.StatusBadRequest,
				Kind:       envelope.KindValidation,
				Code:       "MISSING_REQUIRED_FIELD",
				Message:    missing.Error(),
			})
			if err != nil {
				return nil, err
			}
			c.finish(out.Common, env.Flow(), gateway, meta, outcomeError, envelope.KindValidation, "MISSING_REQUIRED_FIELD", start)
			return out, nil
		default:
			return nil, fmt.Errorf("transport: building %s request for gateway %s: %w", env.Flow(), gateway, buildErr)
		}
	}

	var reader io.Reader
	if payload, present := body.Bytes(); present {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, flow.HTTPMethod(), url, reader)
	if err != nil {
		return nil, fmt.Errorf("transport: creating %s request for gateway %s: %w", env.Flow(), gateway, err)
	}
	req.Header = headers

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Unknown outcome: the envelope stays unresolved on purpose.
		c.breaker.RecordFailure(gateway)
		flowExecutions.WithLabelValues(gateway, env.Flow().String(), outcomeNetwork).Inc()
		c.logger.Warn().
			Str("gateway", gateway).
			Str("flow", env.Flow().String()).
			Str("reference_id", env.Common.ReferenceID).
			Err(err).
			Msg("gateway call failed before a response was received")
		return env, fmt.Errorf("transport: calling gateway %s: %w", gateway, err)
	}
	defer resp.Body.Close()
	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure(gateway)
		flowExecutions.WithLabelValues(gateway, env.Flow().String(), outcomeNetwork).Inc()
		return env, fmt.Errorf("transport: reading gateway %s response: %w", gateway, err)
	}

	raw := connector.RawResponse{StatusCode: resp.StatusCode, Body: rawBody, Headers: resp.Header}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		out, err := flow.HandleResponse(env, raw)
		if err != nil {
			c.breaker.RecordFailure(gateway)
			return nil, fmt.Errorf("transport: handling gateway %s response: %w", gateway, err)
		}
		c.breaker.RecordSuccess(gateway)
		c.finish(out.Common, env.Flow(), gateway, meta, outcomeSuccess, "", "", start)
		return out, nil
	}

	er := flow.HandleError(raw)
	out, werr := env.WithError(er)
	if werr != nil {
		return nil, werr
	}
	// Declines are a healthy gateway doing its job; only server-side and
	// throttling responses count against the circuit.
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		c.breaker.RecordFailure(gateway)
	} else {
		c.breaker.RecordSuccess(gateway)
	}
	c.finish(out.Common, env.Flow(), gateway, meta, outcomeError, er.Kind, er.Code, start)
	return out, nil
}

// buildRequest runs the pure build sequence for a flow.
func buildRequest[Req, Resp any](
	flow connector.Flow[Req, Resp],
	env *envelope.Envelope[Req, Resp],
) (http.Header, string, connector.Body, error) {
	headers, err := flow.Headers(env)
	if err != nil {
		return nil, "", connector.Body{}, err
	}
	url, err := flow.URL(env)
	if err != nil {
		return nil, "", connector.Body{}, err
	}
	body, err := flow.Body(env)
	if err != nil {
		return nil, "", connector.Body{}, err
	}
	return headers, url, body, nil
}

// finish records metrics, the retrospective record, and the structured log
// line for one completed flow. Credentials never appear here.
func (c *Client) finish(
	common envelope.CommonData,
	flow envelope.Flow,
	gateway string,
	meta Meta,
	outcome string,
	errKind envelope.ErrorKind,
	errCode string,
	start time.Time,
) {
	latency := time.Since(start)
	flowExecutions.WithLabelValues(gateway, flow.String(), outcome).Inc()
	flowLatency.WithLabelValues(gateway, flow.String()).Observe(latency.Seconds())

	c.record(reporting.FlowRecord{
		Timestamp:   time.Now().UTC(),
		Gateway:     gateway,
		Flow:        flow,
		ReferenceID: common.ReferenceID,
		Status:      common.Status,
		ErrorKind:   errKind,
		ErrorCode:   errCode,
		Amount:      meta.Amount,
		Currency:    meta.Currency,
		LatencyMs:   latency.Milliseconds(),
	})

	evt := c.logger.Info()
	if errKind != "" {
		evt = c.logger.Warn().Str("error_kind", string(errKind)).Str("error_code", errCode)
	}
	evt.
		Str("gateway", gateway).
		Str("flow", flow.String()).
		Str("reference_id", common.ReferenceID).
		Str("status", string(common.Status)).
		Str("outcome", outcome).
		Int64("latency_ms", latency.Milliseconds()).
		Msg("flow executed")
}
