package services

import (
	"context"
	"time"

	"resqall/interfaces"
	"resqall/models"

	"github.com/sirupsen/logrus"
)

// AudioService records the audio evidence clip. The capture duration is a
// fixed wall-clock wait, not a race against a timeout: the recording simply
// runs for the configured duration. Context cancellation stops the
// recording early and still finalizes the file.
type AudioService struct {
	duration time.Duration
}

func NewAudioService(duration time.Duration) *AudioService {
	if duration <= 0 {
		duration = 30 * time.Second
	}
	return &AudioService{
		duration: duration,
	}
}

// RecordClip records for the configured duration. It never returns an
// error: a nil result means the recording failed and the audio field of the
// bundle stays absent.
func (as *AudioService) RecordClip(ctx context.Context, recorder interfaces.AudioRecorder) *models.AudioEvidence {
	if recorder == nil {
		logrus.Warn("No audio recorder available, skipping audio capture")
		return nil
	}

	if err := recorder.Start(ctx); err != nil {
		logrus.Errorf("Failed to start audio recording: %v", err)
		return nil
	}

	started := time.Now()
	timer := time.NewTimer(as.duration)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		logrus.Warnf("Audio recording cut short: %v", ctx.Err())
	}

	clip, err := recorder.Stop(ctx)
	if err != nil || clip == nil {
		logrus.Errorf("Failed to stop audio recording: %v", err)
		return nil
	}

	if clip.Duration <= 0 {
		clip.Duration = time.Since(started)
	}
	if clip.MimeType == "" {
		clip.MimeType = "audio/m4a"
	}

	return clip
}
