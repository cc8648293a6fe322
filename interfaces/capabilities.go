package interfaces

import (
	"context"

	"resqall/models"
)

// Capabilities the pipeline may need permission for.
type Capability string

const (
	CapabilityCamera       Capability = "camera"
	CapabilityMicrophone   Capability = "microphone"
	CapabilityLocation     Capability = "location"
	CapabilityMediaLibrary Capability = "mediaLibrary"
)

type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// PermissionChecker is the platform permission surface. Status never shows
// a dialog; Request may show at most one.
type PermissionChecker interface {
	Status(ctx context.Context, capability Capability) (PermissionStatus, error)
	Request(ctx context.Context, capability Capability) (PermissionStatus, error)
}

// CameraHandle is a live camera surface provided by the UI layer for the
// duration of one capture. The pipeline treats it as a capability, passes it
// by value, and never stores it.
type CameraHandle interface {
	TakePicture(ctx context.Context) (*models.PhotoEvidence, error)
}

// AudioRecorder is a platform recording session.
type AudioRecorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (*models.AudioEvidence, error)
}

// MediaLibrary saves captured media to the device gallery. Best-effort: a
// failure here never aborts a capture.
type MediaLibrary interface {
	SaveToLibrary(ctx context.Context, localPath string) error
}

// LocationProvider is the platform geolocation surface.
type LocationProvider interface {
	// CurrentPosition requests a fresh high-accuracy fix.
	CurrentPosition(ctx context.Context) (*models.LocationFix, error)
	// LastKnownPosition returns the most recent cached fix, if any.
	LastKnownPosition(ctx context.Context) (*models.LocationFix, error)
}

// DeviceInfoProvider reads device metadata. Best-effort.
type DeviceInfoProvider interface {
	DeviceInfo(ctx context.Context) (models.DeviceInfo, error)
}

// SOSStore persists SOS records written by the persist channel.
type SOSStore interface {
	SaveSOS(ctx context.Context, record models.SOSRecord) error
	// Available reports whether the store is configured and reachable
	// enough to attempt a write.
	Available() bool
}
