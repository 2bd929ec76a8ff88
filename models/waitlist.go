package models

import (
	"time"

	"github.com/google/uuid"
)

// Waitlist statuses
const (
	WaitlistPending   = "pending"
	WaitlistNotified  = "notified"
	WaitlistBooked    = "booked"
	WaitlistExpired   = "expired"
	WaitlistCancelled = "cancelled"
)

// Waitlist priorities, ordered low to high by PriorityRank
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityVIP    = "vip"
)

// PriorityRank maps a priority to its sort weight
var PriorityRank = map[string]int{
	PriorityLow:    0,
	PriorityNormal: 1,
	PriorityHigh:   2,
	PriorityVIP:    3,
}

const WaitlistExpiryDays = 7

type WaitlistEntry struct {
	Base
	SalonID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"salonId"`
	ClientID *uuid.UUID `gorm:"type:uuid;index" json:"clientId"`

	ClientName  string `gorm:"not null" json:"clientName"`
	ClientEmail string `gorm:"index" json:"clientEmail"`
	ClientPhone string `json:"clientPhone"`

	ServiceID *uuid.UUID `gorm:"type:uuid;index" json:"serviceId"`
	StaffID   *uuid.UUID `gorm:"type:uuid;index" json:"staffId"`

	PreferredDate      time.Time `gorm:"index;not null" json:"preferredDate"`
	PreferredTimeStart string    `gorm:"type:varchar(5)" json:"preferredTimeStart"`
	PreferredTimeEnd   string    `gorm:"type:varchar(5)" json:"preferredTimeEnd"`
	FlexibleDates      bool      `json:"flexibleDates"`
	FlexibleStaff      bool      `json:"flexibleStaff"`

	Status                 string `gorm:"type:varchar(20);index;not null" json:"status"`
	Priority               string `gorm:"type:varchar(10);not null" json:"priority"`
	PriorityRank           int    `gorm:"index" json:"-"`
	NotificationPreference string `gorm:"type:varchar(10)" json:"notificationPreference"`

	Notes         string `gorm:"type:text" json:"notes"`
	InternalNotes string `gorm:"type:text" json:"internalNotes"`

	NotificationCount int        `gorm:"default:0" json:"notificationCount"`
	LastNotifiedAt    *time.Time `json:"lastNotifiedAt"`
	BookedAt          *time.Time `json:"bookedAt"`
	AppointmentID     *uuid.UUID `gorm:"type:uuid" json:"appointmentId"`
	ExpiresAt         *time.Time `gorm:"index" json:"expiresAt"`

	Service *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Staff   *Staff   `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
}

// IsActive reports whether the entry is still waiting for a slot
func (w *WaitlistEntry) IsActive() bool {
	return w.Status == WaitlistPending || w.Status == WaitlistNotified
}

// SetPriority stores the priority together with its sort rank
func (w *WaitlistEntry) SetPriority(priority string) {
	w.Priority = priority
	w.PriorityRank = PriorityRank[priority]
}

// DefaultWaitlistExpiry is the end of the day one week after the preferred date
func DefaultWaitlistExpiry(preferred time.Time) time.Time {
	y, m, d := preferred.AddDate(0, 0, WaitlistExpiryDays).Date()
	return time.Date(y, m, d, 23, 59, 59, 0, preferred.Location())
}

func (w *WaitlistEntry) MarkNotified(now time.Time) {
	w.Status = WaitlistNotified
	w.NotificationCount++
	w.LastNotifiedAt = &now
}

func (w *WaitlistEntry) MarkBooked(appointmentID uuid.UUID, now time.Time) {
	w.Status = WaitlistBooked
	w.AppointmentID = &appointmentID
	w.BookedAt = &now
}

func (w *WaitlistEntry) Cancel() {
	w.Status = WaitlistCancelled
}

// WantsSMS reports whether the entry should be texted
func (w *WaitlistEntry) WantsSMS() bool {
	return w.ClientPhone != "" && (w.NotificationPreference == "sms" || w.NotificationPreference == "both")
}
