package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRateLimited marks a transient provider rejection. Callers retry with
// bounded backoff on errors.Is(err, ErrRateLimited); every other generation
// error is final.
var ErrRateLimited = errors.New("llm: rate limited")

// classifyError tags provider errors once, at the client boundary, so
// callers can use errors.Is instead of inspecting messages. The underlying
// client surfaces HTTP failures as opaque errors, so the 429 check has to
// happen on the text here and nowhere else.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return err
}
