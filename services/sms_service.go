package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMS bodies are capped well below carrier concatenation limits so the
// alert arrives as few segments even with a maps link inlined.
const maxSMSBodyLength = 1200

// SMSService is the SMS channel transport.
type SMSService interface {
	IsAvailable() bool
	SendSMS(ctx context.Context, phoneNumber, message string) error
}

// TwilioSMSService implements SMSService using the Twilio REST API.
type TwilioSMSService struct {
	client     *twilio.RestClient
	fromNumber string
}

func NewTwilioSMSService(accountSID, authToken, fromNumber string) *TwilioSMSService {
	var client *twilio.RestClient
	if accountSID != "" {
		client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		})
	}

	return &TwilioSMSService{
		client:     client,
		fromNumber: fromNumber,
	}
}

func (ss *TwilioSMSService) IsAvailable() bool {
	return ss.client != nil && ss.fromNumber != ""
}

func (ss *TwilioSMSService) SendSMS(ctx context.Context, phoneNumber, message string) error {
	if !ss.IsAvailable() {
		return fmt.Errorf("Twilio not configured")
	}

	if err := ValidatePhoneNumber(phoneNumber); err != nil {
		return fmt.Errorf("invalid phone number: %w", err)
	}

	if len(message) > maxSMSBodyLength {
		message = message[:maxSMSBodyLength-3] + "..."
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(ss.fromNumber)
	params.SetTo(phoneNumber)
	params.SetBody(message)

	resp, err := ss.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	if resp.ErrorCode != nil {
		errMessage := ""
		if resp.ErrorMessage != nil {
			errMessage = *resp.ErrorMessage
		}
		return fmt.Errorf("SMS error %d: %s", *resp.ErrorCode, errMessage)
	}

	status := ""
	if resp.Status != nil {
		status = *resp.Status
	}
	logrus.Infof("SMS sent to %s - Status: %s", phoneNumber, status)
	return nil
}

// ValidatePhoneNumber validates a phone number format
func ValidatePhoneNumber(phoneNumber string) error {
	if phoneNumber == "" {
		return fmt.Errorf("phone number cannot be empty")
	}

	// Remove common formatting characters
	cleaned := strings.ReplaceAll(phoneNumber, " ", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ReplaceAll(cleaned, "(", "")
	cleaned = strings.ReplaceAll(cleaned, ")", "")

	// Check if it starts with + (international format)
	if !strings.HasPrefix(cleaned, "+") {
		return fmt.Errorf("phone number must be in international format (+1234567890)")
	}

	// Basic length check (international numbers are typically 10-15 digits)
	if len(cleaned) < 10 || len(cleaned) > 16 {
		return fmt.Errorf("invalid phone number length")
	}

	// Check if remaining characters are digits
	for _, char := range cleaned[1:] {
		if char < '0' || char > '9' {
			return fmt.Errorf("phone number contains invalid characters")
		}
	}

	return nil
}

// FormatPhoneNumber formats a phone number to international format
func FormatPhoneNumber(phoneNumber, countryCode string) string {
	// Remove all non-digit characters
	cleaned := ""
	for _, char := range phoneNumber {
		if char >= '0' && char <= '9' {
			cleaned += string(char)
		}
	}

	// Add country code if not present
	if !strings.HasPrefix(phoneNumber, "+") {
		if countryCode == "" {
			countryCode = "1" // Default to US
		}
		cleaned = "+" + countryCode + cleaned
	} else {
		cleaned = "+" + cleaned
	}

	return cleaned
}

// MockSMSService logs instead of sending. Used when Twilio is not
// configured.
type MockSMSService struct{}

func NewMockSMSService() *MockSMSService {
	return &MockSMSService{}
}

func (ss *MockSMSService) IsAvailable() bool {
	return true
}

func (ss *MockSMSService) SendSMS(ctx context.Context, phoneNumber, message string) error {
	logrus.Infof("MOCK SMS to %s (%d chars)", phoneNumber, len(message))
	return nil
}
