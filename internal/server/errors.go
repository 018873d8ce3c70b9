package server

import (
	"errors"
	"net/http"
	"strings"

	"docqa/pkg/ai"
)

// modelFailure maps a classified generation error to a status and message.
// An empty message means the caller's fallback applies.
func modelFailure(err error) (int, string) {
	switch {
	case errors.Is(err, ai.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "API quota exceeded"
	case errors.Is(err, ai.ErrAuthenticationFailed):
		return http.StatusUnauthorized, "OpenAI API authentication failed"
	case errors.Is(err, ai.ErrMissingCredentials):
		return http.StatusInternalServerError, "OpenAI API key is not configured"
	default:
		return http.StatusInternalServerError, ""
	}
}

func errorCode(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "too many requests":
		return "SYSTEM_RATE_LIMITED"
	case message == "document not found":
		return "DOCUMENT_NOT_FOUND"
	case message == "no file provided":
		return "DOCUMENT_FILE_REQUIRED"
	case message == "only text files are allowed":
		return "DOCUMENT_UNSUPPORTED_FILE_TYPE"
	case strings.HasPrefix(message, "file is too large"):
		return "DOCUMENT_FILE_TOO_LARGE"
	case message == "file is empty", message == "file contains binary data":
		return "DOCUMENT_INVALID_CONTENT"
	case message == "invalid form data", message == "invalid json body":
		return "REQUEST_INVALID_BODY"
	case strings.HasPrefix(message, "question"):
		return "QA_INVALID_QUESTION"
	case message == "api quota exceeded":
		return "LLM_QUOTA_EXCEEDED"
	case message == "openai api authentication failed":
		return "LLM_AUTH_FAILED"
	case message == "openai api key is not configured":
		return "LLM_NOT_CONFIGURED"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case message == "not found":
		return "SYSTEM_NOT_FOUND"
	}

	switch status {
	case http.StatusBadRequest:
		return "REQUEST_INVALID"
	case http.StatusNotFound:
		return "SYSTEM_NOT_FOUND"
	case http.StatusTooManyRequests:
		return "SYSTEM_RATE_LIMITED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}
