package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"resqall/models"
)

func newTestCollector(t *testing.T, provider *fakeLocationProvider) *EvidenceCollector {
	t.Helper()

	collector := NewEvidenceCollector(
		NewLocationService(provider, nil, 50*time.Millisecond),
		NewCameraService(nil, t.TempDir(), 70, 1600),
		NewAudioService(20*time.Millisecond),
		NewDeviceService(fakeDeviceProvider{}),
	)
	collector.rampInterval = 5 * time.Millisecond
	return collector
}

func TestCollectAllCapturesSucceed(t *testing.T) {
	provider := &fakeLocationProvider{fix: &models.LocationFix{Latitude: 1, Longitude: 2}}
	collector := newTestCollector(t, provider)
	camera, recorder := testCapture(t)

	bundle := collector.Collect(context.Background(), "u1", camera, recorder, nil)

	if bundle.Location == nil || bundle.Photo == nil || bundle.Audio == nil {
		t.Errorf("bundle has absent fields: location=%v photo=%v audio=%v",
			bundle.Location != nil, bundle.Photo != nil, bundle.Audio != nil)
	}
	if bundle.Device.DeviceName != "Test Device" {
		t.Errorf("device name = %q", bundle.Device.DeviceName)
	}
	if bundle.CapturedAt.IsZero() {
		t.Error("CapturedAt must be stamped")
	}
}

func TestCollectPartialFailure(t *testing.T) {
	// Location errors, camera handle fails, only audio succeeds.
	provider := &fakeLocationProvider{err: errors.New("gps unavailable")}
	collector := newTestCollector(t, provider)

	_, recorder := testCapture(t)
	camera := &fakeCameraHandle{err: errors.New("camera busy")}

	final := map[models.StepID]models.StepStatus{}
	bundle := collector.Collect(context.Background(), "u1", camera, recorder, func(step models.StepID, status models.StepStatus, pct int) {
		final[step] = status
	})

	if bundle.Location != nil || bundle.Photo != nil {
		t.Error("failed captures must leave their fields absent")
	}
	if bundle.Audio == nil {
		t.Error("audio capture should survive the other failures")
	}

	if final[models.StepLocation] != models.StepStatusFailed {
		t.Errorf("location step = %s, want failed", final[models.StepLocation])
	}
	if final[models.StepPhoto] != models.StepStatusFailed {
		t.Errorf("photo step = %s, want failed", final[models.StepPhoto])
	}
	if final[models.StepAudio] != models.StepStatusCompleted {
		t.Errorf("audio step = %s, want completed", final[models.StepAudio])
	}
}

func TestCollectEverythingFailsStillReturnsBundle(t *testing.T) {
	provider := &fakeLocationProvider{err: errors.New("gps unavailable")}
	collector := newTestCollector(t, provider)

	bundle := collector.Collect(context.Background(), "u1", nil, nil, nil)

	if bundle.Location != nil || bundle.Photo != nil || bundle.Audio != nil {
		t.Error("all evidence fields should be absent")
	}
	// Device info still comes back, normalized.
	if bundle.Device.DeviceName == "" {
		t.Error("device info must never be empty")
	}
}

func TestAudioRecorderStartFailure(t *testing.T) {
	as := NewAudioService(10 * time.Millisecond)
	clip := as.RecordClip(context.Background(), &fakeAudioRecorder{
		path:     filepath.Join(t.TempDir(), "x.m4a"),
		startErr: errors.New("microphone in use"),
	})
	if clip != nil {
		t.Error("RecordClip() should return nil when the recorder cannot start")
	}
}

func TestAudioClipDurationFilled(t *testing.T) {
	as := NewAudioService(20 * time.Millisecond)
	clip := as.RecordClip(context.Background(), &fakeAudioRecorder{path: "x.m4a"})
	if clip == nil {
		t.Fatal("RecordClip() returned nil")
	}
	if clip.Duration <= 0 {
		t.Error("clip duration must be filled from elapsed time when the recorder reports none")
	}
	if clip.MimeType != "audio/m4a" {
		t.Errorf("mime type = %q, want audio/m4a", clip.MimeType)
	}
}
