package vision

import (
	"context"
	"errors"
	"strings"
)

// ErrorCode classifies a provider failure for the HTTP error taxonomy.
type ErrorCode string

const (
	ErrBillingNotEnabled ErrorCode = "BILLING_NOT_ENABLED"
	ErrCredential        ErrorCode = "CREDENTIAL_ERROR"
	ErrTimeout           ErrorCode = "TIMEOUT"
	ErrInvalidFormat     ErrorCode = "INVALID_FORMAT"
	ErrProcessing        ErrorCode = "PROCESSING_ERROR"
)

// ClassifyError maps a provider error onto an ErrorCode by substring
// matching the provider's message. The provider does not expose typed
// errors for these conditions, so message matching is the only handle.
func ClassifyError(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "billing") || strings.Contains(message, "permission"):
		return ErrBillingNotEnabled
	case strings.Contains(message, "credential") ||
		strings.Contains(message, "unauthenticated") ||
		strings.Contains(message, "authentication"):
		return ErrCredential
	case strings.Contains(message, "deadline") || strings.Contains(message, "timed out"):
		return ErrTimeout
	case strings.Contains(message, "bad image") ||
		strings.Contains(message, "unsupported") ||
		strings.Contains(message, "image format"):
		return ErrInvalidFormat
	default:
		return ErrProcessing
	}
}
