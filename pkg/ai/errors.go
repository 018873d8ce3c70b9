package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	// CredentialEnvVar names the environment variable holding the API key.
	CredentialEnvVar = "OPENAI_API_KEY"
	// GeminiCredentialEnvVar holds the key when the gemini provider is selected.
	GeminiCredentialEnvVar = "GEMINI_API_KEY"
)

// CredentialEnvVarFor returns the key variable a provider reads. Providers
// that need no key return "".
func CredentialEnvVarFor(provider string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOllama:
		return ""
	case ProviderGemini:
		return GeminiCredentialEnvVar
	default:
		return CredentialEnvVar
	}
}

var (
	ErrQuotaExceeded        = errors.New("api quota exceeded")
	ErrAuthenticationFailed = errors.New("api authentication failed")
	ErrMissingCredentials   = errors.New("api key not configured")
)

// APIError is a non-2xx response from a model provider.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s api error: %d %s", e.Provider, e.StatusCode, msg)
}

// Classify maps a generation failure onto ErrQuotaExceeded,
// ErrAuthenticationFailed or ErrMissingCredentials. The result wraps both the
// sentinel and the original error. Provider status codes decide when present;
// message text is inspected only for errors without one. Unrecognised errors
// are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrQuotaExceeded, ErrAuthenticationFailed, ErrMissingCredentials} {
		if errors.Is(err, known) {
			return err
		}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.Code == "insufficient_quota",
			apiErr.Type == "insufficient_quota":
			return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
		case apiErr.StatusCode == http.StatusUnauthorized,
			apiErr.Code == "invalid_api_key":
			return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		}
		// Some routers put the provider code only in the message text.
		msg := apiErr.Message
		switch {
		case strings.Contains(msg, "insufficient_quota"):
			return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
		case strings.Contains(msg, "invalid_api_key"):
			return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
		case mentionsCredentialVar(msg):
			return fmt.Errorf("%w: %w", ErrMissingCredentials, err)
		}
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "insufficient_quota"):
		return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	case strings.Contains(msg, "401"), strings.Contains(msg, "authentication"):
		return fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	case mentionsCredentialVar(msg):
		return fmt.Errorf("%w: %w", ErrMissingCredentials, err)
	}
	return err
}

func mentionsCredentialVar(msg string) bool {
	return strings.Contains(msg, CredentialEnvVar) || strings.Contains(msg, GeminiCredentialEnvVar)
}
