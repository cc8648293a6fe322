package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// AlertEmail is the content of one emergency alert email. Attachments are
// local file paths: the email channel attaches the captured files directly,
// the uploaded URLs are for transports that cannot carry binary payloads.
type AlertEmail struct {
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments,omitempty"`
}

// EmailService is the email channel transport.
type EmailService interface {
	// IsAvailable reports whether the transport can send at all on this
	// device/deployment.
	IsAvailable() bool
	SendAlertEmail(ctx context.Context, email AlertEmail) error
}

// SMTPEmailService implements EmailService using SMTP.
type SMTPEmailService struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewSMTPEmailService(host, port, username, password, from string) EmailService {
	return &SMTPEmailService{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (es *SMTPEmailService) IsAvailable() bool {
	return es.host != "" && es.username != "" && es.password != ""
}

// SendAlertEmail sends one multipart message to all recipients at once.
func (es *SMTPEmailService) SendAlertEmail(ctx context.Context, email AlertEmail) error {
	if len(email.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	message, err := es.buildMessage(email)
	if err != nil {
		return err
	}

	auth := smtp.PlainAuth("", es.username, es.password, es.host)
	addr := fmt.Sprintf("%s:%s", es.host, es.port)

	if err := smtp.SendMail(addr, auth, es.from, email.To, message); err != nil {
		logrus.Errorf("Failed to send alert email to %s: %v", strings.Join(email.To, ", "), err)
		return err
	}

	logrus.Infof("Alert email sent to %d recipient(s)", len(email.To))
	return nil
}

// buildMessage assembles a multipart/mixed MIME message with the body as
// text/plain and every readable attachment base64-encoded. An unreadable
// attachment is skipped with a warning, never a hard failure — the alert
// text must still go out.
func (es *SMTPEmailService) buildMessage(email AlertEmail) ([]byte, error) {
	boundary := "resqall-alert-boundary"

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", es.from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(email.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", email.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n", boundary)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.Body)
	buf.WriteString("\r\n")

	for _, path := range email.Attachments {
		data, err := os.ReadFile(path)
		if err != nil {
			logrus.Warnf("Skipping unreadable attachment %s: %v", path, err)
			continue
		}

		filename := filepath.Base(path)
		contentType := mime.TypeByExtension(filepath.Ext(path))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: %s\r\n", contentType)
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n", filename)
		buf.WriteString("\r\n")

		encoded := base64.StdEncoding.EncodeToString(data)
		for len(encoded) > 76 {
			buf.WriteString(encoded[:76])
			buf.WriteString("\r\n")
			encoded = encoded[76:]
		}
		buf.WriteString(encoded)
		buf.WriteString("\r\n")
	}

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), nil
}

// MockEmailService logs instead of sending. Used when SMTP is not
// configured.
type MockEmailService struct{}

func NewMockEmailService() EmailService {
	return &MockEmailService{}
}

func (es *MockEmailService) IsAvailable() bool {
	return true
}

func (es *MockEmailService) SendAlertEmail(ctx context.Context, email AlertEmail) error {
	logrus.Infof("MOCK EMAIL to %s: %s (%d attachment(s))",
		strings.Join(email.To, ", "), email.Subject, len(email.Attachments))
	return nil
}
