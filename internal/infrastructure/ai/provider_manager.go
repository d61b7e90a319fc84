package ai

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lukeberetta/wealthvue/pkg/metrics"
)

// ProviderManager runs completions against a rotation of providers with
// automatic failover. A provider that reports a quota error is skipped
// immediately so the next configured key gets a chance; only when the whole
// rotation is quota-exhausted does the caller see ErrAllQuotaExhausted.
type ProviderManager struct {
	providers     []Provider
	logger        *zap.Logger
	tracer        trace.Tracer
	retryAttempts int
	retryDelay    time.Duration
}

// ErrAllQuotaExhausted is returned when every provider in the rotation hit
// its quota. RetryAfter carries the smallest wait any provider suggested.
type ErrAllQuotaExhausted struct {
	RetryAfter time.Duration
}

func (e *ErrAllQuotaExhausted) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("all AI providers are over quota, retry after %s", e.RetryAfter)
	}
	return "all AI providers are over quota"
}

// ProviderManagerConfig configures the provider manager
type ProviderManagerConfig struct {
	RetryAttempts int
	RetryDelay    time.Duration
}

// NewProviderManager creates a new provider manager
func NewProviderManager(providers []Provider, config *ProviderManagerConfig, logger *zap.Logger) *ProviderManager {
	if config == nil {
		config = &ProviderManagerConfig{
			RetryAttempts: 2,
			RetryDelay:    time.Second,
		}
	}

	return &ProviderManager{
		providers:     providers,
		logger:        logger,
		tracer:        otel.Tracer("provider-manager"),
		retryAttempts: config.RetryAttempts,
		retryDelay:    config.RetryDelay,
	}
}

// Complete performs a completion with automatic failover across the rotation
func (m *ProviderManager) Complete(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := m.tracer.Start(ctx, "provider_manager.complete", trace.WithAttributes(
		attribute.Int("provider_count", len(m.providers)),
		attribute.Int("image_count", len(req.Images)),
	))
	defer span.End()

	var (
		lastErr       error
		allQuota      = len(m.providers) > 0
		minRetryAfter time.Duration
	)

	for i, provider := range m.providers {
		providerName := provider.Name()

		m.logger.Debug("Attempting completion",
			zap.String("provider", providerName),
			zap.Int("rotation_position", i+1),
		)

		resp, err := m.tryProviderWithRetry(ctx, provider, req)
		if err == nil {
			span.SetAttributes(
				attribute.String("provider_used", providerName),
				attribute.Int("rotation_position", i+1),
			)

			m.logger.Info("Completion successful",
				zap.String("provider", providerName),
				zap.Int("tokens", resp.TokensUsed),
			)

			return resp, nil
		}

		lastErr = err

		if IsQuotaError(err) {
			metrics.AIProviderRotationsTotal.Inc()
			m.logger.Warn("Provider over quota, rotating",
				zap.String("provider", providerName),
				zap.Error(err),
			)
			if provErr, ok := err.(*ProviderError); ok && provErr.RetryAfter > 0 {
				if minRetryAfter == 0 || provErr.RetryAfter < minRetryAfter {
					minRetryAfter = provErr.RetryAfter
				}
			}
			continue
		}

		allQuota = false
		m.logger.Warn("Provider failed",
			zap.String("provider", providerName),
			zap.Error(err),
		)
	}

	span.RecordError(lastErr)
	span.SetAttributes(attribute.Bool("all_providers_failed", true))

	if allQuota {
		return nil, &ErrAllQuotaExhausted{RetryAfter: minRetryAfter}
	}

	m.logger.Error("All AI providers failed",
		zap.Error(lastErr),
		zap.Int("providers_tried", len(m.providers)),
	)

	return nil, fmt.Errorf("all AI providers failed, last error: %w", lastErr)
}

// tryProviderWithRetry attempts one provider with exponential backoff.
// Quota errors are not retried against the same provider; rotation handles
// those.
func (m *ProviderManager) tryProviderWithRetry(ctx context.Context, provider Provider, req *Request) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= m.retryAttempts; attempt++ {
		if attempt > 0 {
			delay := m.retryDelay * time.Duration(1<<uint(attempt-1))
			m.logger.Debug("Retrying after delay",
				zap.String("provider", provider.Name()),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if IsQuotaError(err) {
			return nil, err
		}
		if provErr, ok := err.(*ProviderError); ok && !provErr.Retryable {
			m.logger.Debug("Non-retryable error, stopping retries",
				zap.String("provider", provider.Name()),
				zap.String("error_code", provErr.Code),
			)
			return nil, provErr
		}
	}

	return nil, lastErr
}

// Providers returns the configured rotation
func (m *ProviderManager) Providers() []Provider {
	return m.providers
}
