package models

import (
	"github.com/google/uuid"
)

// Salon booking defaults
const (
	DefaultBookingLeadTimeHours    = 2
	DefaultBookingWindowDays       = 60
	DefaultCancellationPolicyHours = 24
	DefaultReminderHoursBefore     = 24
)

type Salon struct {
	Base
	OwnerID     uuid.UUID `gorm:"type:uuid;index;not null" json:"ownerId"`
	Name        string    `gorm:"not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description string    `json:"description"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Website     string    `json:"website"`

	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
	Country      string `gorm:"default:'USA'" json:"country"`
	Timezone     string `gorm:"default:'America/New_York'" json:"timezone"`
	LogoURL      string `json:"logoUrl"`

	BusinessHours JSONB `gorm:"type:jsonb" json:"businessHours"`

	BookingLeadTimeHours    int     `json:"bookingLeadTimeHours"`
	BookingWindowDays       int     `json:"bookingWindowDays"`
	CancellationPolicyHours int     `json:"cancellationPolicyHours"`
	DepositRequired         bool    `gorm:"default:false" json:"depositRequired"`
	DepositPercentage       float64 `gorm:"type:decimal(5,2);default:0" json:"depositPercentage"`
	AutoConfirmAppointments bool    `json:"autoConfirmAppointments"`
	ReminderHoursBefore     int     `json:"reminderHoursBefore"`

	SMSNotifications      bool `gorm:"default:false" json:"smsNotifications"`
	WhatsAppNotifications bool `gorm:"default:false" json:"whatsAppNotifications"`
	BirthdayReminders     bool `json:"birthdayReminders"`
	AnniversaryReminders  bool `json:"anniversaryReminders"`

	InstagramAccountID   string `json:"-"`
	InstagramAccessToken string `json:"-"`
	InstagramHandle      string `json:"instagramHandle"`

	IsActive bool `json:"isActive"`
}

// Address joins the non-empty address parts for display
func (s *Salon) Address() string {
	parts := []string{}
	if s.AddressLine1 != "" {
		parts = append(parts, s.AddressLine1)
	}
	if s.City != "" {
		cityLine := s.City
		if s.State != "" {
			cityLine += ", " + s.State
		}
		if s.ZipCode != "" {
			cityLine += " " + s.ZipCode
		}
		parts = append(parts, cityLine)
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// InstagramConnected reports whether posts can be published to Instagram
func (s *Salon) InstagramConnected() bool {
	return s.InstagramAccountID != "" && s.InstagramAccessToken != ""
}
