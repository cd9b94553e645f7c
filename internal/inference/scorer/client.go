// Package scorer calls the local speech metric inference service over HTTP.
package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/9ooDa/mopic/internal/apierr"
	"github.com/9ooDa/mopic/internal/config"
	"github.com/9ooDa/mopic/internal/inference"
)

const (
	inferencePath     = "/run_inference/"
	defaultRetryDelay = 500 * time.Millisecond
)

// Client implements inference.Client.
type Client struct {
	httpClient       *resty.Client
	maxRetryAttempts uint
	retryDelay       time.Duration
	logger           *zap.Logger
}

// NewClient creates a client for the service at cfg.BaseURL.
func NewClient(cfg config.InferenceConfig, logger *zap.Logger) *Client {
	return newClient(cfg.BaseURL, time.Duration(cfg.TimeoutSeconds)*time.Second, cfg.MaxRetryAttempts, defaultRetryDelay, logger)
}

func newClient(baseURL string, timeout time.Duration, retryAttempts uint, retryDelay time.Duration, logger *zap.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	return &Client{
		httpClient:       client,
		maxRetryAttempts: retryAttempts,
		retryDelay:       retryDelay,
		logger:           logger.With(zap.String("component", "inference")),
	}
}

// Close releases the underlying HTTP client.
func (client *Client) Close() error {
	return client.httpClient.Close()
}

// Infer implements the inference.Client interface.
// Timeouts and unavailability are retried; rejected requests and malformed
// responses are returned immediately.
func (client *Client) Infer(ctx context.Context, req inference.Request) (*inference.Metrics, error) {
	var result *inference.Metrics
	err := retry.Do(
		func() error {
			metrics, err := client.infer(ctx, req)
			if err != nil {
				return err
			}
			result = metrics
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(client.maxRetryAttempts+1),
		retry.Delay(client.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(apierr.IsRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			client.logger.Warn("retrying inference call",
				zap.Uint("attempt", n+1),
				zap.String("path", req.Path),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, classifyContextError(err)
	}
	return result, nil
}

func (client *Client) infer(ctx context.Context, req inference.Request) (*inference.Metrics, error) {
	start := time.Now()
	response, err := client.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		Post(inferencePath)
	if err != nil {
		if isTimeout(err) {
			return nil, apierr.Errorf(apierr.ErrInferenceTimeout, "inference call timed out: %w", err)
		}
		return nil, apierr.Errorf(apierr.ErrInferenceUnavailable, "inference call failed: %w", err)
	}

	status := response.StatusCode()
	switch {
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return nil, apierr.Errorf(apierr.ErrInferenceTimeout, "response error %d: %s", status, response.String())
	case status >= http.StatusInternalServerError:
		return nil, apierr.Errorf(apierr.ErrInferenceUnavailable, "response error %d: %s", status, response.String())
	case response.IsError():
		return nil, apierr.Errorf(apierr.ErrInferenceRejected, "response error %d: %s", status, response.String())
	}

	var metrics inference.Metrics
	if err := json.Unmarshal([]byte(response.String()), &metrics); err != nil {
		return nil, apierr.Errorf(apierr.ErrInvalidMetrics, "json.Unmarshal(%s) > %w", response.String(), err)
	}
	if err := metrics.Validate(); err != nil {
		return nil, err
	}

	client.logger.Debug("inference call succeeded",
		zap.String("path", req.Path),
		zap.Duration("elapsed", time.Since(start)))
	return &metrics, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classifyContextError maps a deadline hit while waiting between attempts.
func classifyContextError(err error) error {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.Errorf(apierr.ErrInferenceTimeout, "inference call timed out: %w", err)
	}
	return fmt.Errorf("inference call: %w", err)
}
