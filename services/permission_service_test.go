package services

import (
	"context"
	"testing"

	"resqall/interfaces"
	"resqall/utils"
)

func TestEnsurePermissionsDoesNotRePromptGranted(t *testing.T) {
	checker := newFakePermissionChecker()
	checker.grantAll()
	gate := NewPermissionGate(checker)

	granted, err := gate.EnsurePermissions(context.Background(),
		interfaces.CapabilityCamera, interfaces.CapabilityMicrophone)
	if err != nil {
		t.Fatalf("EnsurePermissions() error = %v", err)
	}

	for c, status := range granted {
		if status != interfaces.PermissionGranted {
			t.Errorf("%s = %s, want granted", c, status)
		}
	}
	for c, n := range checker.requests {
		if n != 0 {
			t.Errorf("%s was re-prompted %d time(s)", c, n)
		}
	}
}

func TestEnsurePermissionsRequestsUndeterminedOnce(t *testing.T) {
	checker := newFakePermissionChecker()
	checker.grantOnRequest[interfaces.CapabilityCamera] = true
	gate := NewPermissionGate(checker)

	granted, err := gate.EnsurePermissions(context.Background(), interfaces.CapabilityCamera)
	if err != nil {
		t.Fatalf("EnsurePermissions() error = %v", err)
	}
	if granted[interfaces.CapabilityCamera] != interfaces.PermissionGranted {
		t.Errorf("camera = %s, want granted", granted[interfaces.CapabilityCamera])
	}
	if checker.requests[interfaces.CapabilityCamera] != 1 {
		t.Errorf("camera requested %d time(s), want 1", checker.requests[interfaces.CapabilityCamera])
	}
}

func TestEnsurePermissionsNamesFirstDenied(t *testing.T) {
	checker := newFakePermissionChecker()
	checker.grantOnRequest[interfaces.CapabilityCamera] = true
	// Microphone and location both stay denied.
	gate := NewPermissionGate(checker)

	granted, err := gate.EnsurePermissions(context.Background(),
		interfaces.CapabilityCamera,
		interfaces.CapabilityMicrophone,
		interfaces.CapabilityLocation,
	)
	if err == nil {
		t.Fatal("EnsurePermissions() should report the denial")
	}
	if got := utils.DeniedCapability(err); got != string(interfaces.CapabilityMicrophone) {
		t.Errorf("denied capability = %q, want microphone (first in request order)", got)
	}

	// The map still reports every capability, including the granted one.
	if len(granted) != 3 {
		t.Errorf("status map has %d entries, want 3", len(granted))
	}
	if granted[interfaces.CapabilityCamera] != interfaces.PermissionGranted {
		t.Error("granted capabilities must appear in the map even on error")
	}
}
