package services

import (
	"strings"
	"testing"
)

func TestBuildMessageMultipart(t *testing.T) {
	es := &SMTPEmailService{
		host: "smtp.example.com", port: "587",
		username: "u", password: "p", from: "alerts@example.com",
	}

	attachment := tempEvidenceFile(t, "photo.jpg")
	message, err := es.buildMessage(AlertEmail{
		To:          []string{"mom@example.com"},
		Subject:     "Alert",
		Body:        "body text",
		Attachments: []string{attachment, "/nonexistent/a.m4a"},
	})
	if err != nil {
		t.Fatalf("buildMessage() error = %v", err)
	}

	msg := string(message)
	if !strings.Contains(msg, "Content-Type: multipart/mixed") {
		t.Error("message should be multipart/mixed")
	}
	if !strings.Contains(msg, "body text") {
		t.Error("message body missing")
	}
	if !strings.Contains(msg, `filename="photo.jpg"`) {
		t.Error("readable attachment missing")
	}
	// The unreadable attachment is skipped, not fatal.
	if strings.Contains(msg, "a.m4a") {
		t.Error("unreadable attachment should be skipped")
	}
}

func TestSMTPAvailability(t *testing.T) {
	if (&SMTPEmailService{}).IsAvailable() {
		t.Error("unconfigured SMTP service must not be available")
	}

	es := &SMTPEmailService{host: "smtp.example.com", username: "u", password: "p"}
	if !es.IsAvailable() {
		t.Error("configured SMTP service should be available")
	}
}
