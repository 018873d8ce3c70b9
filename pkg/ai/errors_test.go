package ai

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassifyStructuredStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"rate limited", &APIError{Provider: "openai-compat", StatusCode: http.StatusTooManyRequests}, ErrQuotaExceeded},
		{"quota code", &APIError{Provider: "openai-compat", StatusCode: http.StatusForbidden, Code: "insufficient_quota"}, ErrQuotaExceeded},
		{"quota type", &APIError{Provider: "openai-compat", StatusCode: http.StatusBadRequest, Type: "insufficient_quota"}, ErrQuotaExceeded},
		{"unauthorized", &APIError{Provider: "openai-compat", StatusCode: http.StatusUnauthorized}, ErrAuthenticationFailed},
		{"invalid key code", &APIError{Provider: "openai-compat", StatusCode: http.StatusForbidden, Code: "invalid_api_key"}, ErrAuthenticationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			var apiErr *APIError
			if !errors.As(got, &apiErr) {
				t.Fatalf("classified error should keep the provider error")
			}
		})
	}
}

func TestClassifyStatusWinsOverMessage(t *testing.T) {
	// A 500 whose message happens to mention 401 must not be treated as auth.
	err := &APIError{Provider: "openai-compat", StatusCode: http.StatusInternalServerError, Message: "upstream returned 401"}
	got := Classify(err)
	if errors.Is(got, ErrAuthenticationFailed) || errors.Is(got, ErrQuotaExceeded) {
		t.Fatalf("server error should stay unclassified, got %v", got)
	}
	if got != error(err) {
		t.Fatalf("unclassified error should be returned unchanged")
	}
}

func TestClassifyMessageFallback(t *testing.T) {
	cases := []struct {
		msg  string
		want error
	}{
		{"You exceeded your current quota: insufficient_quota", ErrQuotaExceeded},
		{"request failed with status 429", ErrQuotaExceeded},
		{"status 401 returned", ErrAuthenticationFailed},
		{"authentication required", ErrAuthenticationFailed},
		{"the OPENAI_API_KEY environment variable is missing", ErrMissingCredentials},
	}
	for _, tc := range cases {
		got := Classify(errors.New(tc.msg))
		if !errors.Is(got, tc.want) {
			t.Fatalf("%q: expected %v, got %v", tc.msg, tc.want, got)
		}
	}
}

func TestClassifyPassesThrough(t *testing.T) {
	if Classify(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	plain := errors.New("connection reset by peer")
	if got := Classify(plain); got != plain {
		t.Fatalf("expected unchanged error, got %v", got)
	}
	already := fmt.Errorf("%w: earlier", ErrAuthenticationFailed)
	if got := Classify(already); got != already {
		t.Fatalf("classified error should not be wrapped twice")
	}
}

func TestClassifyStructuredMessageTokens(t *testing.T) {
	cases := []struct {
		name string
		err  *APIError
		want error
	}{
		{"quota in message", &APIError{Provider: "openai-compat", StatusCode: http.StatusForbidden, Message: "You exceeded your current quota: insufficient_quota"}, ErrQuotaExceeded},
		{"payment required quota", &APIError{Provider: "openai-compat", StatusCode: http.StatusPaymentRequired, Message: "insufficient_quota"}, ErrQuotaExceeded},
		{"invalid key in message", &APIError{Provider: "openai-compat", StatusCode: http.StatusForbidden, Message: "invalid_api_key: rotate it"}, ErrAuthenticationFailed},
		{"gemini key var", &APIError{Provider: "gemini", StatusCode: http.StatusBadRequest, Message: "GEMINI_API_KEY is empty"}, ErrMissingCredentials},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestCredentialEnvVarFor(t *testing.T) {
	cases := map[string]string{
		"":       CredentialEnvVar,
		"openai": CredentialEnvVar,
		"ollama": "",
		"Gemini": GeminiCredentialEnvVar,
	}
	for provider, want := range cases {
		if got := CredentialEnvVarFor(provider); got != want {
			t.Fatalf("CredentialEnvVarFor(%q) = %q, want %q", provider, got, want)
		}
	}
}
