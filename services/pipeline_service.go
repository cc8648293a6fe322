package services

import (
	"context"
	"fmt"
	"sync"

	"resqall/interfaces"
	"resqall/models"
	"resqall/utils"

	"github.com/sirupsen/logrus"
)

// Step labels shown in the progress feed, in pipeline order.
var pipelineSteps = []models.DispatchStep{
	{ID: models.StepLocation, Label: "Getting Location"},
	{ID: models.StepPhoto, Label: "Taking Photo"},
	{ID: models.StepAudio, Label: "Recording Audio"},
	{ID: models.StepUpload, Label: "Uploading Evidence"},
	{ID: models.StepEmail, Label: "Sending Email Alert"},
	{ID: models.StepSMS, Label: "Sending SMS Alert"},
	{ID: models.StepPersist, Label: "Saving SOS Record"},
}

// AlertSystemCheck is the report of a dry-run readiness check. Nothing is
// sent; it answers "would an alert go out right now, and through what".
type AlertSystemCheck struct {
	EmailAvailable  bool `json:"emailAvailable"`
	SMSAvailable    bool `json:"smsAvailable"`
	StoreAvailable  bool `json:"storeAvailable"`
	EmailRecipients int  `json:"emailRecipients"`
	PhoneRecipients int  `json:"phoneRecipients"`
	Ready           bool `json:"ready"`
}

// PipelineService is the SOS pipeline orchestrator: a state machine that
// walks one trigger through permission check, evidence collection, upload
// and dispatch, publishing step progress to subscribers along the way.
//
// One run at a time. A run that hits a fatal precondition (camera denied)
// parks in the error state; Retry starts over from scratch with a fresh
// bundle, Abort returns to idle.
type PipelineService struct {
	gate       *PermissionGate
	collector  *EvidenceCollector
	uploader   *UploadService
	dispatcher *AlertDispatcher
	validator  *utils.ValidationService

	mu          sync.Mutex
	state       models.PipelineState
	steps       []models.DispatchStep
	result      *models.PipelineResult
	runErr      error
	running     bool
	subscribers []chan models.ProgressUpdate

	// Inputs of the last run, kept so Retry can replay the trigger.
	lastSnapshot models.UserSnapshot
	lastCamera   interfaces.CameraHandle
	lastRecorder interfaces.AudioRecorder
}

func NewPipelineService(gate *PermissionGate, collector *EvidenceCollector, uploader *UploadService, dispatcher *AlertDispatcher) *PipelineService {
	return &PipelineService{
		gate:       gate,
		collector:  collector,
		uploader:   uploader,
		dispatcher: dispatcher,
		validator:  utils.NewValidationService(),
		state:      models.StateIdle,
		steps:      freshSteps(),
	}
}

func freshSteps() []models.DispatchStep {
	steps := make([]models.DispatchStep, len(pipelineSteps))
	copy(steps, pipelineSteps)
	for i := range steps {
		steps[i].Status = models.StepStatusPending
		steps[i].Progress = 0
	}
	return steps
}

// Subscribe returns a channel of progress updates for the lifetime of the
// service. Slow subscribers drop frames rather than stall the pipeline.
func (ps *PipelineService) Subscribe() <-chan models.ProgressUpdate {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch := make(chan models.ProgressUpdate, 64)
	ps.subscribers = append(ps.subscribers, ch)
	return ch
}

// State returns the current pipeline state.
func (ps *PipelineService) State() models.PipelineState {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.state
}

// Steps returns a copy of the current step list.
func (ps *PipelineService) Steps() []models.DispatchStep {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	steps := make([]models.DispatchStep, len(ps.steps))
	copy(steps, ps.steps)
	return steps
}

// Result returns the terminal result of the last finished run, or nil.
func (ps *PipelineService) Result() *models.PipelineResult {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.result == nil {
		return nil
	}
	result := *ps.result
	return &result
}

// Run executes one full SOS trigger. It blocks until the run reaches a
// terminal state and returns the result, or an error when the run could not
// get past its preconditions (already running, camera denied).
func (ps *PipelineService) Run(ctx context.Context, snapshot models.UserSnapshot, camera interfaces.CameraHandle, recorder interfaces.AudioRecorder) (*models.PipelineResult, error) {
	ps.mu.Lock()
	if ps.running {
		ps.mu.Unlock()
		return nil, fmt.Errorf("pipeline already running")
	}
	if ps.state == models.StateError {
		ps.mu.Unlock()
		return nil, fmt.Errorf("pipeline is in error state; retry or abort first")
	}
	snapshot = ps.sanitizeSnapshot(snapshot)
	ps.running = true
	ps.state = models.StatePermissionCheck
	ps.steps = freshSteps()
	ps.result = nil
	ps.runErr = nil
	ps.lastSnapshot = snapshot
	ps.lastCamera = camera
	ps.lastRecorder = recorder
	ps.mu.Unlock()

	defer func() {
		ps.mu.Lock()
		ps.running = false
		ps.mu.Unlock()
	}()

	ps.publish()
	logrus.Infof("SOS pipeline triggered for user %s", snapshot.UserID)

	granted, permErr := ps.gate.EnsurePermissions(ctx,
		interfaces.CapabilityCamera,
		interfaces.CapabilityMicrophone,
		interfaces.CapabilityLocation,
		interfaces.CapabilityMediaLibrary,
	)

	// Only the camera is mandatory. Everything else degrades the bundle.
	if granted[interfaces.CapabilityCamera] != interfaces.PermissionGranted {
		err := utils.NewPermissionDeniedError(string(interfaces.CapabilityCamera))
		ps.enterError(err)
		return nil, err
	}
	if permErr != nil {
		logrus.Warnf("Continuing with degraded captures: %v", permErr)
	}

	if granted[interfaces.CapabilityMicrophone] != interfaces.PermissionGranted {
		recorder = nil
	}

	ps.setState(models.StateCollecting)
	bundle := ps.collector.Collect(ctx, snapshot.UserID, camera, recorder, ps.updateStep)

	ps.setState(models.StateUploading)
	ps.updateStep(models.StepUpload, models.StepStatusProcessing, 0)
	uploaded := ps.uploader.Upload(ctx, bundle)
	if (bundle.Photo != nil && uploaded.PhotoURL == "") || (bundle.Audio != nil && uploaded.AudioURL == "") {
		ps.updateStep(models.StepUpload, models.StepStatusFailed, 0)
	} else {
		ps.updateStep(models.StepUpload, models.StepStatusCompleted, 100)
	}

	ps.setState(models.StateDispatching)
	result := ps.dispatcher.Dispatch(ctx, snapshot, bundle, uploaded, ps.updateStep)

	ps.mu.Lock()
	ps.result = &result
	switch result.OverallStatus {
	case models.StatusCompleted:
		ps.state = models.StateCompleted
	case models.StatusPartiallyFailed:
		ps.state = models.StatePartiallyFailed
	default:
		ps.state = models.StateFailed
	}
	ps.mu.Unlock()
	ps.publish()

	logrus.Infof("SOS pipeline finished: %s", result.OverallStatus)
	return &result, nil
}

// Retry replays the last trigger from scratch: a fresh bundle, a fresh
// permission check. Valid from the error state and from any terminal state.
func (ps *PipelineService) Retry(ctx context.Context) (*models.PipelineResult, error) {
	ps.mu.Lock()
	if ps.running {
		ps.mu.Unlock()
		return nil, fmt.Errorf("pipeline already running")
	}
	switch ps.state {
	case models.StateError, models.StateCompleted, models.StatePartiallyFailed, models.StateFailed:
	default:
		ps.mu.Unlock()
		return nil, fmt.Errorf("nothing to retry from state %s", ps.state)
	}
	snapshot := ps.lastSnapshot
	camera := ps.lastCamera
	recorder := ps.lastRecorder
	ps.state = models.StateIdle
	ps.mu.Unlock()

	return ps.Run(ctx, snapshot, camera, recorder)
}

// Abort leaves the error state (or a terminal state) and returns to idle
// without retrying.
func (ps *PipelineService) Abort() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.running {
		return fmt.Errorf("cannot abort a running pipeline")
	}
	ps.state = models.StateIdle
	ps.steps = freshSteps()
	ps.result = nil
	ps.runErr = nil
	ps.publishLocked()
	return nil
}

// TestAlertSystem performs a dry-run readiness check: channel availability
// and recipient coverage, without sending anything.
func (ps *PipelineService) TestAlertSystem(ctx context.Context, snapshot models.UserSnapshot) AlertSystemCheck {
	d := ps.dispatcher

	check := AlertSystemCheck{
		EmailAvailable:  d.email != nil && d.email.IsAvailable(),
		SMSAvailable:    d.sms != nil && d.sms.IsAvailable(),
		StoreAvailable:  d.store != nil && d.store.Available(),
		EmailRecipients: len(snapshot.EmailRecipients()),
		PhoneRecipients: len(snapshot.PhoneRecipients()),
	}

	check.Ready = (check.EmailAvailable && check.EmailRecipients > 0) ||
		(check.SMSAvailable && check.PhoneRecipients > 0)

	logrus.Infof("Alert system check for user %s: ready=%t", snapshot.UserID, check.Ready)
	return check
}

// LastError returns the error that parked the pipeline in the error state.
func (ps *PipelineService) LastError() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.runErr
}

// sanitizeSnapshot drops contacts that could never be alerted: unreachable
// ones and ones with malformed addresses. The contacts UI validates at
// creation, but snapshots can come from older persisted data.
func (ps *PipelineService) sanitizeSnapshot(snapshot models.UserSnapshot) models.UserSnapshot {
	valid := make([]models.EmergencyContact, 0, len(snapshot.Contacts))
	for _, contact := range snapshot.Contacts {
		if err := contact.Validate(); err != nil {
			logrus.Warnf("Dropping contact %s: %v", contact.ID, err)
			continue
		}
		if errs := ps.validator.ValidateStruct(contact); len(errs) > 0 {
			logrus.Warnf("Dropping contact %s: %s", contact.ID, errs[0].Message)
			continue
		}
		valid = append(valid, contact)
	}
	snapshot.Contacts = valid
	return snapshot
}

func (ps *PipelineService) enterError(err error) {
	ps.mu.Lock()
	ps.state = models.StateError
	ps.runErr = err
	ps.mu.Unlock()

	logrus.Errorf("SOS pipeline entered error state: %v", err)
	ps.publish()
}

func (ps *PipelineService) setState(state models.PipelineState) {
	ps.mu.Lock()
	ps.state = state
	ps.mu.Unlock()
	ps.publish()
}

// updateStep applies one step update under the monotonic lifecycle: a step
// never regresses, terminal statuses never change, and progress within a
// status only moves forward.
func (ps *PipelineService) updateStep(step models.StepID, status models.StepStatus, progress int) {
	ps.mu.Lock()
	changed := false
	for i := range ps.steps {
		if ps.steps[i].ID != step {
			continue
		}
		current := ps.steps[i].Status
		if current == status {
			if progress > ps.steps[i].Progress {
				ps.steps[i].Progress = progress
				changed = true
			}
		} else if current.CanTransition(status) {
			ps.steps[i].Status = status
			ps.steps[i].Progress = progress
			changed = true
		}
		break
	}
	ps.mu.Unlock()

	if changed {
		ps.publish()
	}
}

func (ps *PipelineService) publish() {
	ps.mu.Lock()
	ps.publishLocked()
	ps.mu.Unlock()
}

// publishLocked fans the current frame out to subscribers. Sends are
// non-blocking: a full subscriber buffer drops the frame.
func (ps *PipelineService) publishLocked() {
	steps := make([]models.DispatchStep, len(ps.steps))
	copy(steps, ps.steps)

	completed := 0
	for _, s := range steps {
		if s.Status == models.StepStatusCompleted {
			completed++
		}
	}

	update := models.ProgressUpdate{
		State:           ps.state,
		Steps:           steps,
		OverallProgress: completed * 100 / len(steps),
	}

	for _, ch := range ps.subscribers {
		select {
		case ch <- update:
		default:
		}
	}
}
