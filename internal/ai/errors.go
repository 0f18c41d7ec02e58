package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-2xx reply from a provider. Provider is the runtime
// name (groq, openrouter, ollama) so hints can name the right key or host.
type APIError struct {
	Provider   string         `json:"-"`
	StatusCode int            `json:"-"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider + ": ")
	}
	fmt.Fprintf(&b, "status %d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " [request %s]", e.RequestID)
	}
	return b.String()
}

// AuthError is a rejected API key (401/403).
type AuthError struct{ *APIError }

func (e *AuthError) Error() string { return "invalid or missing API key: " + e.APIError.Error() }

// RateLimitError is a 429. RetryAfter is zero when the provider sent no hint.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited for ~%ds: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return "rate limited: " + e.APIError.Error()
}

// ModelNotFoundError means the model name is unknown, decommissioned or,
// for Ollama, not pulled.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string { return "model unavailable: " + e.APIError.Error() }

// BadRequestError is a 400 the provider would not accept, usually a prompt
// that exceeds the context window.
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return "request rejected: " + e.APIError.Error() }

type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string { return "quota exhausted: " + e.APIError.Error() }

type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return "provider unavailable: " + e.APIError.Error() }

// UnreachableError is a connection failure before any HTTP reply.
type UnreachableError struct {
	Provider string
	Host     string
	Err      error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	who := e.Provider
	if who == "" {
		who = "endpoint"
	}
	if e.Host != "" {
		return fmt.Sprintf("%s unreachable at %s: %v", who, e.Host, e.Err)
	}
	return fmt.Sprintf("%s unreachable: %v", who, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

func (e *APIError) providerName() string {
	if e == nil {
		return ""
	}
	return e.Provider
}

func (e *UnreachableError) providerName() string { return e.Provider }

// ProviderOf returns the provider recorded on the first provider error in
// err's chain, or "".
func ProviderOf(err error) string {
	var pe interface{ providerName() string }
	if errors.As(err, &pe) {
		return pe.providerName()
	}
	return ""
}

// decodeAPIError reads a best-effort structured error. Both the
// {"error":{"message","code"}} and {"error":"msg"} shapes are understood.
func decodeAPIError(provider string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{Provider: provider, StatusCode: resp.StatusCode, Raw: raw, RequestID: extractRequestID(resp)}
	src := raw
	switch v := raw["error"].(type) {
	case map[string]any:
		src = v
	case string:
		apiErr.Message = v
	}
	if msg, ok := src["message"].(string); ok && apiErr.Message == "" {
		apiErr.Message = msg
	}
	if code, ok := src["code"].(string); ok {
		apiErr.Code = code
	}
	return apiErr
}

// classifyAPIError maps an OpenAI-compatible error reply onto the typed errors.
func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	sc := apiErr.StatusCode
	msg := apiErr.Message
	code := apiErr.Code
	switch {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		return &RateLimitError{APIError: apiErr, RetryAfter: retryAfter(resp)}
	case sc == http.StatusNotFound:
		if code == "model_not_found" || containsAllFold(msg, "model", "not", "found") {
			return &ModelNotFoundError{APIError: apiErr}
		}
		return apiErr
	case sc == http.StatusBadRequest:
		if code == "model_not_found" || code == "model_decommissioned" {
			return &ModelNotFoundError{APIError: apiErr}
		}
		return &BadRequestError{APIError: apiErr}
	case code == "quota_exceeded" || containsAnyFold(msg, "quota", "billing", "limit exceeded"):
		return &QuotaExceededError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}
