// internal/common/camunda/client_test.go
package camunda

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		err      string
		expected bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"read tcp: connection reset by peer", true},
		{"rpc error: code = NotFound desc = no process with key 12", false},
		{"rpc error: code = PermissionDenied desc = unauthorized", false},
	}

	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryableZeebeError(errors.New(tt.err)))
		})
	}
}

func TestBackoff(t *testing.T) {
	retry := RetryConfig{MaxRetries: 10, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	assert.Equal(t, time.Second, backoff(retry, 0))
	assert.Equal(t, 2*time.Second, backoff(retry, 1))
	assert.Equal(t, 8*time.Second, backoff(retry, 3))
	assert.Equal(t, 10*time.Second, backoff(retry, 4))
	assert.Equal(t, 10*time.Second, backoff(retry, 20))
}
