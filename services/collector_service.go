package services

import (
	"context"
	"sync"
	"time"

	"resqall/interfaces"
	"resqall/models"

	"github.com/sirupsen/logrus"
)

// StepProgressFunc receives live step updates from the pipeline stages. The
// orchestrator supplies an implementation that enforces the monotonic step
// lifecycle and publishes to subscribers; stages just report.
type StepProgressFunc func(step models.StepID, status models.StepStatus, progress int)

func noopProgress(models.StepID, models.StepStatus, int) {}

// EvidenceCollector orchestrates the three captures. The captures run
// concurrently, each with its own failure mode; the collector itself never
// fails — it returns the best bundle it could assemble and absent fields
// signal partial failure.
type EvidenceCollector struct {
	location *LocationService
	camera   *CameraService
	audio    *AudioService
	device   *DeviceService

	// rampInterval drives the simulated progress ramps. This is
	// client-perceived progress: the platform capture calls expose no
	// fine-grained progress API, so a periodic timer walks the bar
	// forward while the real operation independently resolves the step.
	rampInterval time.Duration
}

func NewEvidenceCollector(location *LocationService, camera *CameraService, audio *AudioService, device *DeviceService) *EvidenceCollector {
	return &EvidenceCollector{
		location:     location,
		camera:       camera,
		audio:        audio,
		device:       device,
		rampInterval: 250 * time.Millisecond,
	}
}

// Collect runs the location, photo and audio captures concurrently and
// waits for all three to settle before finalizing the bundle.
func (ec *EvidenceCollector) Collect(ctx context.Context, userID string, camera interfaces.CameraHandle, recorder interfaces.AudioRecorder, progress StepProgressFunc) models.EvidenceBundle {
	if progress == nil {
		progress = noopProgress
	}

	bundle := models.EvidenceBundle{
		CapturedAt: time.Now(),
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		bundle.Location = captureWithRamp(ctx, models.StepLocation, ec.rampInterval, progress, func() *models.LocationFix {
			return ec.location.GetFix(ctx, userID)
		})
	}()

	go func() {
		defer wg.Done()
		bundle.Photo = captureWithRamp(ctx, models.StepPhoto, ec.rampInterval, progress, func() *models.PhotoEvidence {
			return ec.camera.CapturePhoto(ctx, camera)
		})
	}()

	go func() {
		defer wg.Done()
		bundle.Audio = captureWithRamp(ctx, models.StepAudio, ec.rampInterval, progress, func() *models.AudioEvidence {
			return ec.audio.RecordClip(ctx, recorder)
		})
	}()

	wg.Wait()

	bundle.Device = ec.device.GetDeviceInfo(ctx)

	logrus.Infof("Evidence collection finished: location=%t photo=%t audio=%t",
		bundle.Location != nil, bundle.Photo != nil, bundle.Audio != nil)

	return bundle
}

// captureWithRamp runs one capture while a fixed-interval timer walks its
// progress bar from 0 toward 90. The capture result, not the ramp, decides
// the terminal status: completed at 100 when evidence came back, failed
// otherwise.
func captureWithRamp[T any](ctx context.Context, step models.StepID, interval time.Duration, progress StepProgressFunc, capture func() *T) *T {
	progress(step, models.StepStatusProcessing, 0)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		pct := 0
		for {
			select {
			case <-ticker.C:
				if pct < 90 {
					pct += 10
					progress(step, models.StepStatusProcessing, pct)
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	result := capture()
	close(done)

	if result != nil {
		progress(step, models.StepStatusCompleted, 100)
	} else {
		progress(step, models.StepStatusFailed, 0)
	}

	return result
}
