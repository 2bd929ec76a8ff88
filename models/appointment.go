package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Appointment statuses
const (
	AppointmentScheduled  = "scheduled"
	AppointmentConfirmed  = "confirmed"
	AppointmentCheckedIn  = "checked_in"
	AppointmentInProgress = "in_progress"
	AppointmentCompleted  = "completed"
	AppointmentCancelled  = "cancelled"
	AppointmentNoShow     = "no_show"
)

// Appointment sources
const (
	SourceStaff  = "staff"
	SourceOnline = "online"
	SourcePhone  = "phone"
	SourceWalkIn = "walk_in"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// appointmentTransitions lists the statuses each status may move to
var appointmentTransitions = map[string][]string{
	AppointmentScheduled:  {AppointmentConfirmed, AppointmentCheckedIn, AppointmentInProgress, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow},
	AppointmentConfirmed:  {AppointmentCheckedIn, AppointmentInProgress, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow},
	AppointmentCheckedIn:  {AppointmentInProgress, AppointmentCompleted, AppointmentCancelled},
	AppointmentInProgress: {AppointmentCompleted},
}

type Appointment struct {
	Base
	SalonID  uuid.UUID `gorm:"type:uuid;index;not null" json:"salonId"`
	ClientID uuid.UUID `gorm:"type:uuid;index;not null" json:"clientId"`
	StaffID  uuid.UUID `gorm:"type:uuid;index;not null" json:"staffId"`

	StartTime    time.Time `gorm:"index;not null" json:"startTime"`
	EndTime      time.Time `gorm:"not null" json:"endTime"`
	DurationMins int       `gorm:"not null" json:"durationMins"`

	Status string `gorm:"type:varchar(20);index;not null" json:"status"`
	Source string `gorm:"type:varchar(20);not null" json:"source"`

	EstimatedTotal   float64  `gorm:"type:decimal(10,2);default:0" json:"estimatedTotal"`
	FinalTotal       *float64 `gorm:"type:decimal(10,2)" json:"finalTotal"`
	DepositAmount    float64  `gorm:"type:decimal(10,2);default:0" json:"depositAmount"`
	ConfirmationCode string   `gorm:"type:varchar(12);index" json:"confirmationCode"`

	ClientNotes string `gorm:"type:text" json:"clientNotes"`
	StaffNotes  string `gorm:"type:text" json:"staffNotes"`

	ConfirmedAt        *time.Time `json:"confirmedAt"`
	CheckedInAt        *time.Time `json:"checkedInAt"`
	StartedAt          *time.Time `json:"startedAt"`
	CompletedAt        *time.Time `json:"completedAt"`
	CancelledAt        *time.Time `json:"cancelledAt"`
	CancelledBy        string     `json:"cancelledBy"`
	CancellationReason string     `gorm:"type:text" json:"cancellationReason"`
	ReminderSentAt     *time.Time `json:"reminderSentAt"`

	CreatedByID *uuid.UUID `gorm:"type:uuid" json:"createdById"`

	Services []AppointmentService `gorm:"foreignKey:AppointmentID" json:"services"`
	Client   *Client              `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Staff    *Staff               `gorm:"foreignKey:StaffID" json:"staff,omitempty"`
}

type AppointmentService struct {
	Base
	AppointmentID uuid.UUID `gorm:"type:uuid;index;not null" json:"appointmentId"`
	ServiceID     uuid.UUID `gorm:"type:uuid;index;not null" json:"serviceId"`
	ServiceName   string    `gorm:"not null" json:"serviceName"`
	Price         float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	DurationMins  int       `gorm:"not null" json:"durationMins"`
	Sequence      int       `gorm:"default:0" json:"sequence"`
}

// IsActive reports whether the appointment still blocks its time slot
func (a *Appointment) IsActive() bool {
	return a.Status != AppointmentCancelled && a.Status != AppointmentNoShow
}

// CanTransition reports whether the appointment may move to status
func (a *Appointment) CanTransition(status string) bool {
	for _, next := range appointmentTransitions[a.Status] {
		if next == status {
			return true
		}
	}
	return false
}

// Transition moves the appointment to status and stamps the matching time
func (a *Appointment) Transition(status string, now time.Time) error {
	if !a.CanTransition(status) {
		return ErrInvalidTransition
	}
	a.Status = status
	switch status {
	case AppointmentConfirmed:
		a.ConfirmedAt = &now
	case AppointmentCheckedIn:
		a.CheckedInAt = &now
	case AppointmentInProgress:
		a.StartedAt = &now
	case AppointmentCompleted:
		a.CompletedAt = &now
	case AppointmentCancelled, AppointmentNoShow:
		a.CancelledAt = &now
	}
	return nil
}

// CancellationDeadline is the last moment a client may cancel online
func (a *Appointment) CancellationDeadline(policyHours int) time.Time {
	if policyHours <= 0 {
		policyHours = DefaultCancellationPolicyHours
	}
	return a.StartTime.Add(-time.Duration(policyHours) * time.Hour)
}

// CanClientModify reports whether an online client may still cancel or move
// the booking.
func (a *Appointment) CanClientModify(policyHours int, now time.Time) bool {
	if a.Status != AppointmentScheduled && a.Status != AppointmentConfirmed {
		return false
	}
	return now.Before(a.CancellationDeadline(policyHours))
}
