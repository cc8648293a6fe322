package models

import "time"

// LocationFix is a single geolocation reading.
type LocationFix struct {
	Latitude       float64   `json:"latitude" bson:"latitude" validate:"coordinate"`
	Longitude      float64   `json:"longitude" bson:"longitude" validate:"coordinate"`
	AccuracyMeters float64   `json:"accuracyMeters" bson:"accuracyMeters"`
	CapturedAt     time.Time `json:"capturedAt" bson:"capturedAt"`
}

// PhotoEvidence references a captured photo on local storage.
type PhotoEvidence struct {
	LocalPath string `json:"localPath"`
	MimeType  string `json:"mimeType"`
}

// AudioEvidence references a captured audio clip on local storage.
type AudioEvidence struct {
	LocalPath string        `json:"localPath"`
	MimeType  string        `json:"mimeType"`
	Duration  time.Duration `json:"durationMs"`
}

// DeviceInfo describes the device the alert originated from. All fields are
// best-effort and fall back to "Unknown".
type DeviceInfo struct {
	DeviceName string `json:"deviceName"`
	Platform   string `json:"platform"`
	OSVersion  string `json:"osVersion"`
}

const deviceInfoUnknown = "Unknown"

// DefaultDeviceInfo is the fallback used when device metadata cannot be read.
func DefaultDeviceInfo() DeviceInfo {
	return DeviceInfo{
		DeviceName: deviceInfoUnknown,
		Platform:   deviceInfoUnknown,
		OSVersion:  deviceInfoUnknown,
	}
}

// Normalize fills empty fields with "Unknown" so downstream formatting never
// has to special-case missing metadata.
func (d DeviceInfo) Normalize() DeviceInfo {
	if d.DeviceName == "" {
		d.DeviceName = deviceInfoUnknown
	}
	if d.Platform == "" {
		d.Platform = deviceInfoUnknown
	}
	if d.OSVersion == "" {
		d.OSVersion = deviceInfoUnknown
	}
	return d
}

// EvidenceBundle is everything one pipeline run managed to capture. Each
// media field is independently optional; a nil field means that capture
// failed or timed out. The bundle is immutable once the collector returns it.
type EvidenceBundle struct {
	Location   *LocationFix   `json:"location,omitempty"`
	Photo      *PhotoEvidence `json:"photo,omitempty"`
	Audio      *AudioEvidence `json:"audio,omitempty"`
	Device     DeviceInfo     `json:"deviceInfo"`
	CapturedAt time.Time      `json:"capturedAt"`
}

// UploadedEvidence holds the durable references produced by the upload
// stage. Absence in the bundle propagates here: no photo, no photo URL.
type UploadedEvidence struct {
	PhotoURL string `json:"photoUrl,omitempty"`
	AudioURL string `json:"audioUrl,omitempty"`
}
