package ai

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidCredentials reports a key that is present but cannot be real.
var ErrInvalidCredentials = errors.New("api key invalid")

var placeholderKeys = map[string]struct{}{
	"your-key-here":       {},
	"your-api-key":        {},
	"your-openai-api-key": {},
	"changeme":            {},
}

// CheckCredentials inspects only the presence and shape of apiKey. It never
// contacts the provider.
func CheckCredentials(apiKey string) error {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return ErrMissingCredentials
	}
	if _, ok := placeholderKeys[strings.ToLower(key)]; ok {
		return ErrInvalidCredentials
	}
	if strings.HasPrefix(key, "<") && strings.HasSuffix(key, ">") {
		return ErrInvalidCredentials
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return ErrInvalidCredentials
	}
	return nil
}
