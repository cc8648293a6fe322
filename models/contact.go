package models

import (
	"errors"
	"sort"
)

// Contact priority levels, highest first.
const (
	ContactPriorityHigh   = "high"
	ContactPriorityMedium = "medium"
	ContactPriorityLow    = "low"
)

// EmergencyContact is a person to be alerted when an SOS is triggered.
// The contacts UI owns creation and editing; the pipeline only reads
// snapshots of this data.
type EmergencyContact struct {
	ID           string `json:"id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,phone"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Relationship string `json:"relationship,omitempty"`
	Priority     string `json:"priority,omitempty"`
}

var ErrContactUnreachable = errors.New("contact must have a phone number or an email address")

// Validate enforces the reachability invariant: a contact with neither
// phone nor email can never be alerted and is rejected at creation.
func (c EmergencyContact) Validate() error {
	if c.Phone == "" && c.Email == "" {
		return ErrContactUnreachable
	}
	return nil
}

// UserSnapshot is the read-only user context handed to the pipeline at run
// start. The pipeline never refreshes or mutates it.
type UserSnapshot struct {
	UserID   string             `json:"userId"`
	Contacts []EmergencyContact `json:"contacts"`
}

func priorityRank(priority string) int {
	switch priority {
	case ContactPriorityHigh:
		return 0
	case ContactPriorityMedium:
		return 1
	case ContactPriorityLow:
		return 2
	default:
		return 1
	}
}

func (s UserSnapshot) sortedContacts() []EmergencyContact {
	contacts := make([]EmergencyContact, len(s.Contacts))
	copy(contacts, s.Contacts)
	sort.SliceStable(contacts, func(i, j int) bool {
		return priorityRank(contacts[i].Priority) < priorityRank(contacts[j].Priority)
	})
	return contacts
}

// EmailRecipients returns the email addresses of all reachable contacts,
// highest priority first.
func (s UserSnapshot) EmailRecipients() []string {
	var emails []string
	for _, c := range s.sortedContacts() {
		if c.Email != "" {
			emails = append(emails, c.Email)
		}
	}
	return emails
}

// PhoneRecipients returns the phone numbers of all reachable contacts,
// highest priority first.
func (s UserSnapshot) PhoneRecipients() []string {
	var phones []string
	for _, c := range s.sortedContacts() {
		if c.Phone != "" {
			phones = append(phones, c.Phone)
		}
	}
	return phones
}
