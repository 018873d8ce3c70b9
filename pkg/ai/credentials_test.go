package ai

import (
	"errors"
	"testing"
)

func TestCheckCredentials(t *testing.T) {
	cases := []struct {
		key  string
		want error
	}{
		{"", ErrMissingCredentials},
		{"   ", ErrMissingCredentials},
		{"your-key-here", ErrInvalidCredentials},
		{"CHANGEME", ErrInvalidCredentials},
		{"<openai key>", ErrInvalidCredentials},
		{"sk-abc def", ErrInvalidCredentials},
		{"sk-proj-abc123", nil},
		{"hf_abcdef", nil},
	}
	for _, tc := range cases {
		if err := CheckCredentials(tc.key); !errors.Is(err, tc.want) {
			t.Fatalf("%q: expected %v, got %v", tc.key, tc.want, err)
		}
	}
}
