// internal/engine/negotiate/retry.go
package negotiate

import (
	"fmt"

	apperrors "gbif-workers/internal/common/errors"
)

const DefaultMaxAttempts = 3

// RetryPolicy bounds re-extraction after validation failures. The attempt counter
// belongs to the caller; the policy holds no state.
type RetryPolicy struct {
	MaxAttempts int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts}
}

func (p RetryPolicy) max() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

// Next reports whether extraction attempt n (1-based), which failed with err, should
// be followed by another one.
func (p RetryPolicy) Next(n int, err error) bool {
	return err != nil && apperrors.IsRecoverableByExtraction(err) && n < p.max()
}

// Exhausted reports whether attempt n was the last one allowed.
func (p RetryPolicy) Exhausted(n int) bool {
	return n >= p.max()
}

// Feedback renders a rejected attempt as context for the next extraction.
func Feedback(n int, err error) string {
	return fmt.Sprintf("Attempt %d was rejected: %v. Only use fields from the schema and values that appear verbatim in the request.", n, err)
}
