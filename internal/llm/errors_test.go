package llm

import (
	"errors"
	"testing"
)

func TestErrUnsupportedProvider_Error(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{provider: "anthropic", want: "unsupported LLM provider: anthropic"},
		{provider: "", want: "unsupported LLM provider: "},
	}
	for _, tt := range tests {
		err := ErrUnsupportedProvider{Provider: tt.provider}
		if got := err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestErrUnsupportedProvider_As(t *testing.T) {
	var err error = ErrUnsupportedProvider{Provider: "x"}
	var target ErrUnsupportedProvider
	if !errors.As(err, &target) {
		t.Fatal("expected errors.As to match")
	}
	if target.Provider != "x" {
		t.Errorf("expected provider 'x', got %q", target.Provider)
	}
}
