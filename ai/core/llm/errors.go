package llm

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrClass categorizes gateway errors for the research loop. Quota errors
// stop a task fast with whatever evidence was gathered; transient errors may
// be retried by callers; invalid errors are caller bugs.
type ErrClass int

const (
	ErrClassUnknown ErrClass = iota

	// Examples: HTTP 429, provider quota exhausted, rate limited.
	ErrClassQuota

	// Examples: network timeout, temporary service unavailability.
	ErrClassTransient

	// Examples: bad model name, malformed request, permission denied.
	ErrClassInvalid
)

// String returns the string representation of ErrClass.
func (e ErrClass) String() string {
	switch e {
	case ErrClassQuota:
		return "quota"
	case ErrClassTransient:
		return "transient"
	case ErrClassInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps a gateway error with its classification.
type ClassifiedError struct {
	Original error
	Class    ErrClass
}

// Error returns a formatted error message.
func (c *ClassifiedError) Error() string {
	if c.Original == nil {
		return fmt.Sprintf("classified error: class=%s", c.Class)
	}
	return fmt.Sprintf("%s: %v", c.Class, c.Original)
}

// Unwrap returns the original error for errors.Is/As.
func (c *ClassifiedError) Unwrap() error {
	return c.Original
}

// IsQuota reports whether the error indicates exhausted provider quota.
func (c *ClassifiedError) IsQuota() bool {
	return c.Class == ErrClassQuota
}

// IsTransient reports whether the error is temporary.
func (c *ClassifiedError) IsTransient() bool {
	return c.Class == ErrClassTransient
}

// Classify analyzes a gateway error and determines its class. Passing an
// already classified error returns it unchanged.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return &ClassifiedError{Original: err, Class: ErrClassQuota}
		case apiErr.HTTPStatusCode >= 500:
			return &ClassifiedError{Original: err, Class: ErrClassTransient}
		case apiErr.HTTPStatusCode >= 400:
			return &ClassifiedError{Original: err, Class: ErrClassInvalid}
		}
	}

	if isQuotaError(err) {
		return &ClassifiedError{Original: err, Class: ErrClassQuota}
	}
	if isNetworkError(err) || isTimeoutError(err) {
		return &ClassifiedError{Original: err, Class: ErrClassTransient}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "invalid") ||
		strings.Contains(errMsg, "not found") ||
		strings.Contains(errMsg, "unauthorized") ||
		strings.Contains(errMsg, "forbidden") {
		return &ClassifiedError{Original: err, Class: ErrClassInvalid}
	}

	return &ClassifiedError{Original: err, Class: ErrClassUnknown}
}

// IsQuotaExhausted reports whether err (classified or raw) indicates
// exhausted quota.
func IsQuotaExhausted(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).IsQuota()
}

// isQuotaError checks for quota/rate-limit markers in the error message.
func isQuotaError(err error) bool {
	errMsg := strings.ToLower(err.Error())
	quotaPatterns := []string{
		"quota",
		"resource_exhausted",
		"resource exhausted",
		"rate limit",
		"too many requests",
		"429",
	}

	for _, pattern := range quotaPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// isNetworkError checks if an error is network-related (transient).
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"network is unreachable",
		"no such host",
		"temporary failure",
		"dial tcp",
		"eof",
	}

	for _, pattern := range networkPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// isTimeoutError checks if an error is timeout-related (transient).
func isTimeoutError(err error) bool {
	errMsg := strings.ToLower(err.Error())
	timeoutPatterns := []string{
		"timeout",
		"deadline exceeded",
		"i/o timeout",
		"operation timed out",
	}

	for _, pattern := range timeoutPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// isToolUnsupported detects providers rejecting the web_search tool type.
func isToolUnsupported(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "tool") &&
		(strings.Contains(errMsg, "unsupported") ||
			strings.Contains(errMsg, "not supported") ||
			strings.Contains(errMsg, "invalid"))
}
