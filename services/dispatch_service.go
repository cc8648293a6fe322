package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resqall/interfaces"
	"resqall/models"
	"resqall/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const alertEmailSubject = "🚨 EMERGENCY ALERT - Immediate Attention Required"

// DispatcherConfig carries the tunables of the alert fan-out. The source
// app's variants disagreed on whether a single channel failure should block
// completion; LenientRollup exposes that as a policy switch instead of a
// hardcoded answer. When set, one delivered human channel is enough for
// Completed even if the other failed or was skipped.
type DispatcherConfig struct {
	SMSMaxAttempts int
	SMSBackoffBase time.Duration
	LenientRollup  bool
}

// AlertDispatcher formats the emergency message and fans it out to the
// email, SMS and persistence channels. Channels run in a fixed declared
// order for deterministic progress feeds, but a failure in an earlier
// channel never blocks a later one.
type AlertDispatcher struct {
	email  EmailService
	sms    SMSService
	store  interfaces.SOSStore
	config DispatcherConfig
}

func NewAlertDispatcher(email EmailService, sms SMSService, store interfaces.SOSStore, config DispatcherConfig) *AlertDispatcher {
	if config.SMSMaxAttempts <= 0 {
		config.SMSMaxAttempts = 3
	}
	if config.SMSBackoffBase <= 0 {
		config.SMSBackoffBase = time.Second
	}
	return &AlertDispatcher{
		email:  email,
		sms:    sms,
		store:  store,
		config: config,
	}
}

// Dispatch sends the alert through every channel and rolls the per-channel
// outcomes up into the terminal result. It never returns an error; channel
// failures are absorbed into ChannelResults.
func (ad *AlertDispatcher) Dispatch(ctx context.Context, snapshot models.UserSnapshot, bundle models.EvidenceBundle, uploaded models.UploadedEvidence, progress StepProgressFunc) models.PipelineResult {
	if progress == nil {
		progress = noopProgress
	}

	message := FormatAlertMessage(bundle, uploaded)
	results := make(map[string]models.ChannelResult, 3)

	runChannel := func(step models.StepID, channel string, send func() error) {
		progress(step, models.StepStatusProcessing, 0)
		if err := send(); err != nil {
			logrus.Warnf("Channel %s failed: %v", channel, err)
			results[channel] = models.ChannelResult{Sent: false, Error: channelErrorString(err)}
			progress(step, models.StepStatusFailed, 0)
			return
		}
		results[channel] = models.ChannelResult{Sent: true}
		progress(step, models.StepStatusCompleted, 100)
	}

	runChannel(models.StepEmail, models.ChannelEmail, func() error {
		return ad.sendEmail(ctx, snapshot, bundle, message)
	})
	runChannel(models.StepSMS, models.ChannelSMS, func() error {
		return ad.sendSMS(ctx, snapshot, uploaded, message)
	})
	runChannel(models.StepPersist, models.ChannelPersist, func() error {
		return ad.persist(ctx, snapshot, bundle, uploaded)
	})

	return models.PipelineResult{
		OverallStatus:  ad.rollup(results),
		ChannelResults: results,
		Evidence:       bundle,
		Uploaded:       uploaded,
		FinishedAt:     time.Now(),
	}
}

// sendEmail attaches the local evidence files; the uploaded URLs exist for
// transports that cannot carry attachments.
func (ad *AlertDispatcher) sendEmail(ctx context.Context, snapshot models.UserSnapshot, bundle models.EvidenceBundle, message string) error {
	recipients := snapshot.EmailRecipients()
	if len(recipients) == 0 {
		return utils.NewNoRecipientsError(models.ChannelEmail)
	}

	if ad.email == nil || !ad.email.IsAvailable() {
		return utils.NewChannelUnavailableError(models.ChannelEmail)
	}

	var attachments []string
	if bundle.Photo != nil {
		attachments = append(attachments, bundle.Photo.LocalPath)
	}
	if bundle.Audio != nil {
		attachments = append(attachments, bundle.Audio.LocalPath)
	}

	err := ad.email.SendAlertEmail(ctx, AlertEmail{
		To:          recipients,
		Subject:     alertEmailSubject,
		Body:        message,
		Attachments: attachments,
	})
	if err != nil {
		return utils.NewChannelSendFailedError(models.ChannelEmail, err)
	}
	return nil
}

// sendSMS sends the alert text to every phone recipient, retrying failed
// numbers with exponential backoff: the wait before retry n is
// 2^n * base seconds. The channel counts as sent when at least one number
// was reached.
func (ad *AlertDispatcher) sendSMS(ctx context.Context, snapshot models.UserSnapshot, uploaded models.UploadedEvidence, message string) error {
	recipients := snapshot.PhoneRecipients()
	if len(recipients) == 0 {
		return utils.NewNoRecipientsError(models.ChannelSMS)
	}

	if ad.sms == nil || !ad.sms.IsAvailable() {
		return utils.NewChannelUnavailableError(models.ChannelSMS)
	}

	// SMS cannot carry attachments; inline the uploaded URLs instead.
	body := message
	if uploaded.PhotoURL != "" {
		body += "\nPhoto: " + uploaded.PhotoURL
	}
	if uploaded.AudioURL != "" {
		body += "\nAudio: " + uploaded.AudioURL
	}

	remaining := recipients
	delivered := 0

	operation := func() error {
		var failed []string
		var lastErr error
		for _, phone := range remaining {
			if err := ad.sms.SendSMS(ctx, phone, body); err != nil {
				logrus.Warnf("SMS to %s failed: %v", phone, err)
				failed = append(failed, phone)
				lastErr = err
				continue
			}
			delivered++
		}
		remaining = failed
		if len(failed) > 0 {
			return lastErr
		}
		return nil
	}

	ebo := backoff.NewExponentialBackOff()
	ebo.InitialInterval = 2 * ad.config.SMSBackoffBase
	ebo.Multiplier = 2
	ebo.RandomizationFactor = 0
	ebo.MaxInterval = time.Hour

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(ebo, uint64(ad.config.SMSMaxAttempts-1)), ctx))

	if delivered == 0 {
		return utils.NewChannelSendFailedError(models.ChannelSMS, err)
	}
	if err != nil {
		logrus.Warnf("SMS delivered to %d/%d recipient(s)", delivered, len(recipients))
	}
	return nil
}

// persist writes the SOS record. Best-effort: its failure is recorded but
// never gates the human notification channels.
func (ad *AlertDispatcher) persist(ctx context.Context, snapshot models.UserSnapshot, bundle models.EvidenceBundle, uploaded models.UploadedEvidence) error {
	if ad.store == nil || !ad.store.Available() {
		return utils.NewChannelUnavailableError(models.ChannelPersist)
	}

	var recipients []string
	recipients = append(recipients, snapshot.EmailRecipients()...)
	recipients = append(recipients, snapshot.PhoneRecipients()...)

	record := models.SOSRecord{
		UserID:     snapshot.UserID,
		PhotoURL:   uploaded.PhotoURL,
		AudioURL:   uploaded.AudioURL,
		Location:   bundle.Location,
		Recipients: recipients,
	}

	if err := ad.store.SaveSOS(ctx, record); err != nil {
		return utils.NewChannelSendFailedError(models.ChannelPersist, err)
	}
	return nil
}

// rollup derives the overall status from the human channels (email, SMS):
// Completed when every attempted one delivered (at least one of them), a mix
// of delivered and failed — a no-recipients skip counts as failed — is
// PartiallyFailed, unless LenientRollup accepts one delivery as Completed.
// Persist never gates Completed, but when no human channel delivered, a
// successful persist still distinguishes PartiallyFailed from Failed.
func (ad *AlertDispatcher) rollup(results map[string]models.ChannelResult) models.OverallStatus {
	humanSent := false
	humanFailed := false

	for _, channel := range []string{models.ChannelEmail, models.ChannelSMS} {
		result, ok := results[channel]
		if !ok {
			continue
		}
		if result.Sent {
			humanSent = true
		} else {
			humanFailed = true
		}
	}

	if humanSent {
		if humanFailed && !ad.config.LenientRollup {
			return models.StatusPartiallyFailed
		}
		return models.StatusCompleted
	}

	if persist, ok := results[models.ChannelPersist]; ok && persist.Sent {
		return models.StatusPartiallyFailed
	}
	return models.StatusFailed
}

const noRecipientsError = "no recipients"

// channelErrorString keeps the fixed "no recipients" wire form for skipped
// channels and a compact code+message for everything else.
func channelErrorString(err error) string {
	if utils.IsNoRecipients(err) {
		return noRecipientsError
	}
	if pe, ok := utils.GetPipelineError(err); ok {
		if pe.Cause != nil {
			return fmt.Sprintf("%s: %v", pe.Code, pe.Cause)
		}
		return pe.Error()
	}
	return err.Error()
}

// FormatAlertMessage builds the canonical human-readable alert. It is total
// over the evidence domain: any combination of absent fields formats
// cleanly.
func FormatAlertMessage(bundle models.EvidenceBundle, uploaded models.UploadedEvidence) string {
	timestamp := bundle.CapturedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	locationLine := "Location: Not available"
	mapsLine := "Google Maps Link: Not available"
	if bundle.Location != nil {
		locationLine = "Location: " + utils.FormatCoordinates(bundle.Location.Latitude, bundle.Location.Longitude)
		mapsLine = "Google Maps Link: " + utils.GoogleMapsLink(bundle.Location.Latitude, bundle.Location.Longitude)
	}

	photoLine := "📷 Photo not available"
	if bundle.Photo != nil || uploaded.PhotoURL != "" {
		photoLine = "📷 Photo attached"
	}

	audioLine := "🎤 Audio not available"
	if bundle.Audio != nil || uploaded.AudioURL != "" {
		audioLine = "🎤 Audio recording attached"
	}

	device := bundle.Device.Normalize()

	var b strings.Builder
	b.WriteString("🚨 EMERGENCY ALERT 🚨\n\n")
	fmt.Fprintf(&b, "This is an automated emergency alert sent at %s.\n\n", timestamp.Format("Jan 2, 2006 3:04:05 PM"))
	b.WriteString(locationLine + "\n\n")
	fmt.Fprintf(&b, "Device: %s %s %s\n\n", device.DeviceName, device.Platform, device.OSVersion)
	b.WriteString(photoLine + "\n")
	b.WriteString(audioLine + "\n\n")
	b.WriteString("If this is a real emergency, please call local emergency services immediately.\n\n")
	b.WriteString(mapsLine)

	return b.String()
}
