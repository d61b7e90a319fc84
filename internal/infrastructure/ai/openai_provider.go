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
	openAIAPIURL = "https://api.openai.com/v1/chat/completions"
)

// OpenAIProvider implements Provider for OpenAI's API
type OpenAIProvider struct {
	config  *ProviderConfig
	client  *http.Client
	logger  *zap.Logger
	tracer  trace.Tracer
	limiter *rate.Limiter
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config *ProviderConfig, logger *zap.Logger) *OpenAIProvider {
	// Create rate limiter based on RPM config
	rps := float64(config.RateLimitRPM) / 60.0
	limiter := rate.NewLimiter(rate.Limit(rps), 1)

	return &OpenAIProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  logger,
		tracer:  otel.Tracer("openai-provider"),
		limiter: limiter,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete performs a completion. Images are attached as data-URL
// image_url parts on the user message.
func (p *OpenAIProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	startTime := time.Now()
	ctx, span := p.tracer.Start(ctx, "openai.complete", trace.WithAttributes(
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

	openAIReq := p.buildOpenAIRequest(req)

	reqBody, err := json.Marshal(openAIReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", openAIAPIURL, bytes.NewReader(reqBody))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)

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

	var openAIResp openAIResponse
	if err := json.Unmarshal(body, &openAIResp); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	result := p.convertResponse(&openAIResp, time.Since(startTime))

	span.SetAttributes(
		attribute.Int("tokens_used", result.TokensUsed),
		attribute.String("finish_reason", result.FinishReason),
	)

	p.logger.Debug("OpenAI completion successful",
		zap.Int("tokens", result.TokensUsed),
		zap.Duration("duration", result.Duration),
		zap.String("model", result.Model),
	)

	return result, nil
}

// buildOpenAIRequest converts our Request to OpenAI's chat format
func (p *OpenAIProvider) buildOpenAIRequest(req *Request) map[string]interface{} {
	messages := make([]map[string]interface{}, 0, 2)

	if req.SystemPrompt != "" {
		messages = append(messages, map[string]interface{}{
			"role":    "system",
			"content": req.SystemPrompt,
		})
	}

	if len(req.Images) == 0 {
		messages = append(messages, map[string]interface{}{
			"role":    "user",
			"content": req.Prompt,
		})
	} else {
		parts := []map[string]interface{}{
			{"type": "text", "text": req.Prompt},
		}
		for _, img := range req.Images {
			parts = append(parts, map[string]interface{}{
				"type": "image_url",
				"image_url": map[string]string{
					"url": "data:" + img.MIMEType + ";base64," + img.Data,
				},
			})
		}
		messages = append(messages, map[string]interface{}{
			"role":    "user",
			"content": parts,
		})
	}

	openAIReq := map[string]interface{}{
		"model":    p.config.Model,
		"messages": messages,
	}

	if req.MaxTokens > 0 {
		openAIReq["max_tokens"] = req.MaxTokens
	} else if p.config.MaxTokens > 0 {
		openAIReq["max_tokens"] = p.config.MaxTokens
	}

	if req.Temperature > 0 {
		openAIReq["temperature"] = req.Temperature
	} else if p.config.Temperature > 0 {
		openAIReq["temperature"] = p.config.Temperature
	}

	if req.JSONOnly {
		openAIReq["response_format"] = map[string]string{"type": "json_object"}
	}

	return openAIReq
}

// convertResponse converts OpenAI response to our Response format
func (p *OpenAIProvider) convertResponse(resp *openAIResponse, duration time.Duration) *Response {
	result := &Response{
		Provider:   p.Name(),
		Model:      resp.Model,
		Duration:   duration,
		TokensUsed: resp.Usage.TotalTokens,
	}
	if result.Model == "" {
		result.Model = p.config.Model
	}

	if len(resp.Choices) > 0 {
		result.Content = resp.Choices[0].Message.Content
		result.FinishReason = resp.Choices[0].FinishReason
	}

	return result
}

// handleHTTPError converts HTTP error responses to ProviderError
func (p *OpenAIProvider) handleHTTPError(statusCode int, headers http.Header, body []byte) error {
	var errorResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
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

	p.logger.Error("OpenAI API error",
		zap.Int("status_code", statusCode),
		zap.String("error_type", errorResp.Error.Type),
		zap.String("error_message", errorResp.Error.Message),
	)

	return provErr
}

// OpenAI API response structures
type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
