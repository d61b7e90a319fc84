package ai

import (
	"context"
	"errors"
	"time"
)

// Provider defines the interface for AI completion providers (Gemini, OpenAI, etc.)
type Provider interface {
	// Complete performs a single-turn completion. Requests may carry inline
	// images for multimodal extraction.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Name returns the provider name (e.g., "gemini", "openai")
	Name() string
}

// Request represents a completion request
type Request struct {
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Prompt       string  `json:"prompt"`
	Images       []Image `json:"images,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	// JSONOnly asks the provider to constrain output to a JSON document
	// where the API supports it.
	JSONOnly bool `json:"json_only,omitempty"`
}

// Image is an inline image attachment (screenshot extraction)
type Image struct {
	MIMEType string `json:"mime_type"` // "image/png", "image/jpeg"
	Data     string `json:"data"`      // base64-encoded bytes
}

// Response represents the response from a completion
type Response struct {
	Content      string        `json:"content"`
	TokensUsed   int           `json:"tokens_used"`
	Provider     string        `json:"provider"`
	FinishReason string        `json:"finish_reason"`
	Model        string        `json:"model"`
	Duration     time.Duration `json:"duration"`
}

// ProviderConfig holds configuration for AI providers
type ProviderConfig struct {
	APIKey       string
	Model        string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
	RateLimitRPM int // Requests per minute
}

// ProviderError represents an error from an AI provider
type ProviderError struct {
	Provider  string
	Code      string
	Message   string
	Retryable bool
	// RetryAfter is the provider's suggested wait before retrying,
	// populated on quota errors when the API reports one.
	RetryAfter time.Duration
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Message
}

// IsQuotaError reports whether err is a quota/rate-limit failure from a
// provider, meaning a different provider (or a later retry) may succeed.
func IsQuotaError(err error) bool {
	var provErr *ProviderError
	return errors.As(err, &provErr) && provErr.Code == ErrorCodeRateLimit
}

// Common error codes
const (
	ErrorCodeRateLimit      = "rate_limit"
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeAuthentication = "authentication"
	ErrorCodeServerError    = "server_error"
	ErrorCodeTimeout        = "timeout"
	ErrorCodeUnavailable    = "unavailable"
)
