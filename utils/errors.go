package utils

import (
	"errors"
	"fmt"
)

// PipelineError is the error type used across the capture and dispatch
// pipeline. Code identifies the failure class; Subject names the capability,
// evidence field, or channel involved.
type PipelineError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Subject string `json:"subject,omitempty"`
	Cause   error  `json:"-"` // Original error, not exposed in JSON
}

func (e PipelineError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Subject)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e PipelineError) Unwrap() error {
	return e.Cause
}

// Error code constants
const (
	ErrCodePermissionDenied   = "PERMISSION_DENIED"
	ErrCodeCaptureFailed      = "CAPTURE_FAILED"
	ErrCodeUploadFailed       = "UPLOAD_FAILED"
	ErrCodeChannelUnavailable = "CHANNEL_UNAVAILABLE"
	ErrCodeChannelSendFailed  = "CHANNEL_SEND_FAILED"
	ErrCodeNoRecipients       = "NO_RECIPIENTS"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewPermissionDeniedError reports a capability that stayed denied after a
// request. Fatal for mandatory capabilities, ignorable for optional ones —
// the caller decides.
func NewPermissionDeniedError(capability string) error {
	return PipelineError{
		Code:    ErrCodePermissionDenied,
		Message: fmt.Sprintf("%s permission denied", capability),
		Subject: capability,
	}
}

// NewCaptureFailedError reports a failed evidence capture. Non-fatal; the
// corresponding bundle field degrades to absent.
func NewCaptureFailedError(field string, cause error) error {
	return PipelineError{
		Code:    ErrCodeCaptureFailed,
		Message: fmt.Sprintf("failed to capture %s", field),
		Subject: field,
		Cause:   cause,
	}
}

// NewUploadFailedError reports a failed media upload. Non-fatal; the
// uploaded reference degrades to absent.
func NewUploadFailedError(field string, cause error) error {
	return PipelineError{
		Code:    ErrCodeUploadFailed,
		Message: fmt.Sprintf("failed to upload %s", field),
		Subject: field,
		Cause:   cause,
	}
}

// NewChannelUnavailableError reports a channel whose transport is not
// usable on this device or deployment (e.g. mail composition missing).
func NewChannelUnavailableError(channel string) error {
	return PipelineError{
		Code:    ErrCodeChannelUnavailable,
		Message: fmt.Sprintf("%s channel is not available", channel),
		Subject: channel,
	}
}

// NewChannelSendFailedError reports a channel whose send attempt(s) failed.
func NewChannelSendFailedError(channel string, cause error) error {
	return PipelineError{
		Code:    ErrCodeChannelSendFailed,
		Message: fmt.Sprintf("failed to send through %s channel", channel),
		Subject: channel,
		Cause:   cause,
	}
}

// NewNoRecipientsError reports a channel skipped because no contact has the
// address type it needs.
func NewNoRecipientsError(channel string) error {
	return PipelineError{
		Code:    ErrCodeNoRecipients,
		Message: "no recipients",
		Subject: channel,
	}
}

func NewValidationError(message string) error {
	return PipelineError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

func NewInternalError(message string, cause error) error {
	return PipelineError{
		Code:    ErrCodeInternal,
		Message: message,
		Cause:   cause,
	}
}

// GetPipelineError extracts a PipelineError from an error chain.
func GetPipelineError(err error) (PipelineError, bool) {
	var pe PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return PipelineError{}, false
}

func hasCode(err error, code string) bool {
	pe, ok := GetPipelineError(err)
	return ok && pe.Code == code
}

// IsPermissionDenied checks if an error is a permission denial.
func IsPermissionDenied(err error) bool {
	return hasCode(err, ErrCodePermissionDenied)
}

// IsNoRecipients checks if an error is a skipped-channel no-recipients error.
func IsNoRecipients(err error) bool {
	return hasCode(err, ErrCodeNoRecipients)
}

// IsChannelUnavailable checks if an error is a channel availability error.
func IsChannelUnavailable(err error) bool {
	return hasCode(err, ErrCodeChannelUnavailable)
}

// DeniedCapability returns the capability named by a permission denial, or
// "" if the error is not one.
func DeniedCapability(err error) string {
	if pe, ok := GetPipelineError(err); ok && pe.Code == ErrCodePermissionDenied {
		return pe.Subject
	}
	return ""
}
