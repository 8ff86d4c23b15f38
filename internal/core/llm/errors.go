package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// StatusError is a non-2xx answer from an HTTP-based provider.
// It keeps only the machine-readable error type and code; provider messages can quote the prompt.
type StatusError struct {
	Provider   string
	StatusCode int
	Type       string
	Code       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s error %d", e.Provider, e.StatusCode)
	if e.Type != "" || e.Code != "" {
		fmt.Fprintf(&b, " (type=%s code=%s)", e.Type, e.Code)
	}
	if e.RetryAfter > 0 {
		fmt.Fprintf(&b, ", retry-after: %gs", e.RetryAfter.Seconds())
	}
	return b.String()
}

// IsRetryable reports whether a failed call may succeed if repeated:
// rate limits, quota exhaustion, server-side failures and per-call timeouts.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrEmptyResponse) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= http.StatusInternalServerError
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "resource_exhausted", "quota", "rate limit", "overloaded", "unavailable", "503", "502", "500 internal"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+|retry-after[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses a server-suggested delay out of an error message.
// Returns 0 if none is present.
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}
	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
