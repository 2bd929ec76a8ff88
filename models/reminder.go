package models

import (
	"time"

	"github.com/google/uuid"
)

// Reminder template and log types
const (
	ReminderBirthday            = "birthday"
	ReminderAnniversary         = "anniversary"
	ReminderAppointment         = "appointment_reminder"
	ReminderBookingConfirmation = "booking_confirmation"
	ReminderWaitlist            = "waitlist"
	ReminderGiftCard            = "gift_card"
)

var ReminderTemplateTypes = []string{ReminderBirthday, ReminderAnniversary, ReminderAppointment}

// DefaultReminderMessages is used when a salon has no active template
var DefaultReminderMessages = map[string]string{
	ReminderBirthday:    "Happy birthday [ClientName]! Everyone at [SalonName] wishes you a wonderful day.",
	ReminderAnniversary: "Happy anniversary [ClientName]! Treat yourselves with a visit to [SalonName].",
	ReminderAppointment: "Hi [ClientName], this is a reminder of your appointment at [SalonName] on [Time].",
}

type ReminderTemplate struct {
	Base
	SalonID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_template_salon_type,priority:1;not null" json:"salonId"`
	Type     string    `gorm:"type:varchar(30);uniqueIndex:idx_template_salon_type,priority:2;not null" json:"type"`
	Message  string    `gorm:"type:text;not null" json:"message"`
	IsActive bool      `json:"isActive"`
}

type ReminderLog struct {
	Base
	SalonID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"salonId"`
	ClientID      *uuid.UUID `gorm:"type:uuid;index" json:"clientId"`
	AppointmentID *uuid.UUID `gorm:"type:uuid;index" json:"appointmentId"`
	Type          string     `gorm:"type:varchar(30)" json:"type"`
	Recipient     string     `json:"recipient"`
	Message       string     `gorm:"type:text" json:"message"`
	Status        string     `gorm:"type:varchar(20)" json:"status"` // sent, failed, skipped
	ErrorMessage  string     `gorm:"type:text" json:"errorMessage"`
	Channel       string     `gorm:"type:varchar(20)" json:"channel"` // whatsapp, sms, log
	ProviderID    string     `json:"providerId"`
	SentAt        time.Time  `json:"sentAt"`
}
