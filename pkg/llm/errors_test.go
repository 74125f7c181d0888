package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		rateLimited bool
	}{
		{"nil", nil, false},
		{"status 429", fmt.Errorf("unexpected status code: 429"), true},
		{"rate limit text", fmt.Errorf("provider rate limit exceeded"), true},
		{"too many requests", fmt.Errorf("Too Many Requests"), true},
		{"hard error", fmt.Errorf("model not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			assert.Equal(t, tt.rateLimited, errors.Is(got, ErrRateLimited))
		})
	}
}
