package utils

import (
	"errors"
	"testing"
)

func TestPipelineErrorPredicates(t *testing.T) {
	denied := NewPermissionDeniedError("camera")
	if !IsPermissionDenied(denied) {
		t.Error("IsPermissionDenied() = false for a permission denial")
	}
	if got := DeniedCapability(denied); got != "camera" {
		t.Errorf("DeniedCapability() = %q, want camera", got)
	}

	skipped := NewNoRecipientsError("email")
	if !IsNoRecipients(skipped) {
		t.Error("IsNoRecipients() = false for a no-recipients skip")
	}
	if IsNoRecipients(denied) {
		t.Error("IsNoRecipients() = true for an unrelated error")
	}

	unavailable := NewChannelUnavailableError("sms")
	if !IsChannelUnavailable(unavailable) {
		t.Error("IsChannelUnavailable() = false for an unavailable channel")
	}
}

func TestPipelineErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewCaptureFailedError("photo", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause through Unwrap")
	}

	pe, ok := GetPipelineError(err)
	if !ok {
		t.Fatal("GetPipelineError() failed")
	}
	if pe.Code != ErrCodeCaptureFailed || pe.Subject != "photo" {
		t.Errorf("unexpected error fields: %+v", pe)
	}
}

func TestDeniedCapabilityOnOtherErrors(t *testing.T) {
	if got := DeniedCapability(errors.New("boom")); got != "" {
		t.Errorf("DeniedCapability() = %q for a plain error, want empty", got)
	}
}
