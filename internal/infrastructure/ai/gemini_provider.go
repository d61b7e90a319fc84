package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	geminiAPIURLTemplate = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s"
)

// GeminiProvider implements Provider for Google's Gemini API
type GeminiProvider struct {
	config  *ProviderConfig
	client  *http.Client
	logger  *zap.Logger
	tracer  trace.Tracer
	limiter *rate.Limiter
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(config *ProviderConfig, logger *zap.Logger) *GeminiProvider {
	// Create rate limiter based on RPM config
	rps := float64(config.RateLimitRPM) / 60.0
	limiter := rate.NewLimiter(rate.Limit(rps), 1)

	return &GeminiProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  logger,
		tracer:  otel.Tracer("gemini-provider"),
		limiter: limiter,
	}
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Complete performs a completion, attaching inline images when present.
func (p *GeminiProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	startTime := time.Now()
	ctx, span := p.tracer.Start(ctx, "gemini.complete", trace.WithAttributes(
		attribute.Int("image_count", len(req.Images)),
		attribute.Bool("json_only", req.JSONOnly),
	))
	defer span.End()

	// Wait for rate limiter
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{
			Provider:  p.Name(),
			Code:      ErrorCodeRateLimit,
			Message:   "rate limit exceeded",
			Retryable: true,
		}
	}

	geminiReq := p.buildGeminiRequest(req)

	reqBody, err := json.Marshal(geminiReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := fmt.Sprintf(geminiAPIURLTemplate, p.config.Model, p.config.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", apiURL, bytes.NewReader(reqBody))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, &ProviderError{
			Provider:  p.Name(),
			Code:      ErrorCodeTimeout,
			Message:   err.Error(),
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.handleHTTPError(resp.StatusCode, resp.Header, body)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	result := p.convertResponse(&geminiResp, time.Since(startTime))

	span.SetAttributes(
		attribute.Int("tokens_used", result.TokensUsed),
		attribute.String("finish_reason", result.FinishReason),
	)

	p.logger.Debug("Gemini completion successful",
		zap.Int("tokens", result.TokensUsed),
		zap.Duration("duration", result.Duration),
		zap.String("model", result.Model),
	)

	return result, nil
}

// buildGeminiRequest converts our Request to Gemini's format. Images become
// inlineData parts alongside the prompt text.
func (p *GeminiProvider) buildGeminiRequest(req *Request) map[string]interface{} {
	text := req.Prompt
	if req.SystemPrompt != "" {
		// Gemini doesn't have a system role, prepend to the user prompt
		text = req.SystemPrompt + "\n\n" + text
	}

	parts := []map[string]interface{}{
		{"text": text},
	}
	for _, img := range req.Images {
		parts = append(parts, map[string]interface{}{
			"inlineData": map[string]string{
				"mimeType": img.MIMEType,
				"data":     img.Data,
			},
		})
	}

	geminiReq := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"role": "user", "parts": parts},
		},
	}

	genConfig := make(map[string]interface{})

	if req.MaxTokens > 0 {
		genConfig["maxOutputTokens"] = req.MaxTokens
	} else if p.config.MaxTokens > 0 {
		genConfig["maxOutputTokens"] = p.config.MaxTokens
	}

	if req.Temperature > 0 {
		genConfig["temperature"] = req.Temperature
	} else if p.config.Temperature > 0 {
		genConfig["temperature"] = p.config.Temperature
	}

	if req.JSONOnly {
		genConfig["responseMimeType"] = "application/json"
	}

	if len(genConfig) > 0 {
		geminiReq["generationConfig"] = genConfig
	}

	return geminiReq
}

// convertResponse converts Gemini response to our Response format
func (p *GeminiProvider) convertResponse(resp *geminiResponse, duration time.Duration) *Response {
	if len(resp.Candidates) == 0 {
		return &Response{
			Provider: p.Name(),
			Model:    p.config.Model,
			Duration: duration,
		}
	}

	candidate := resp.Candidates[0]
	result := &Response{
		Provider:     p.Name(),
		FinishReason: candidate.FinishReason,
		Model:        p.config.Model,
		Duration:     duration,
	}

	// Extract content from parts
	if len(candidate.Content.Parts) > 0 {
		if text, ok := candidate.Content.Parts[0]["text"].(string); ok {
			result.Content = text
		}
	}

	// Token usage
	if resp.UsageMetadata != nil {
		result.TokensUsed = resp.UsageMetadata.TotalTokenCount
	}

	return result
}

// handleHTTPError converts HTTP error responses to ProviderError
func (p *GeminiProvider) handleHTTPError(statusCode int, headers http.Header, body []byte) error {
	var errorResp struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}

	_ = json.Unmarshal(body, &errorResp)

	provErr := &ProviderError{
		Provider:  p.Name(),
		Message:   errorResp.Error.Message,
		Retryable: false,
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		provErr.Code = ErrorCodeRateLimit
		provErr.Retryable = true
		if secs, err := strconv.Atoi(headers.Get("Retry-After")); err == nil {
			provErr.RetryAfter = time.Duration(secs) * time.Second
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		provErr.Code = ErrorCodeAuthentication
	case http.StatusBadRequest:
		provErr.Code = ErrorCodeInvalidRequest
	case http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		provErr.Code = ErrorCodeServerError
		provErr.Retryable = true
	default:
		provErr.Code = ErrorCodeUnavailable
	}

	p.logger.Error("Gemini API error",
		zap.Int("status_code", statusCode),
		zap.String("error_status", errorResp.Error.Status),
		zap.String("error_message", errorResp.Error.Message),
	)

	return provErr
}

// Gemini API response structures
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []map[string]interface{} `json:"parts"`
			Role  string                   `json:"role"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
}
