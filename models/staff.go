package models

import (
	"github.com/google/uuid"
)

// Staff roles inside a salon
const (
	StaffRoleOwner         = "owner"
	StaffRoleManager       = "manager"
	StaffRoleSeniorStylist = "senior_stylist"
	StaffRoleStylist       = "stylist"
	StaffRoleJuniorStylist = "junior_stylist"
	StaffRoleReceptionist  = "receptionist"
	StaffRoleAssistant     = "assistant"
)

// Staff statuses
const (
	StaffStatusActive     = "active"
	StaffStatusOnLeave    = "on_leave"
	StaffStatusTerminated = "terminated"
)

var StaffRoles = []string{
	StaffRoleOwner, StaffRoleManager, StaffRoleSeniorStylist, StaffRoleStylist,
	StaffRoleJuniorStylist, StaffRoleReceptionist, StaffRoleAssistant,
}

type Staff struct {
	Base
	SalonID uuid.UUID  `gorm:"type:uuid;index;not null;uniqueIndex:idx_staff_salon_user,priority:1" json:"salonId"`
	UserID  *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_staff_salon_user,priority:2" json:"userId"`

	FirstName string `gorm:"not null" json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Title     string `json:"title"`
	Bio       string `gorm:"type:text" json:"bio"`
	PhotoURL  string `json:"photoUrl"`

	Role        string     `gorm:"type:varchar(30);not null" json:"role"`
	Status      string     `gorm:"type:varchar(20);not null;index" json:"status"`
	Specialties StringList `gorm:"type:jsonb" json:"specialties"`

	CommissionRate    float64    `gorm:"type:decimal(5,2);default:0" json:"commissionRate"`
	DefaultSchedule   JSONB      `gorm:"type:jsonb" json:"defaultSchedule"`
	ServiceIDs        StringList `gorm:"type:jsonb" json:"serviceIds"`
	BookingBufferMins int        `gorm:"default:0" json:"bookingBufferMins"`
	ShowOnBooking     bool       `json:"showOnBooking"`
	DisplayOrder      int        `gorm:"default:0" json:"displayOrder"`
	Notes             string     `gorm:"type:text" json:"notes"`
}

func (Staff) TableName() string {
	return "staff"
}

func (s *Staff) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// IsManager reports whether the role may manage salon settings and staff
func (s *Staff) IsManager() bool {
	return s.Role == StaffRoleOwner || s.Role == StaffRoleManager
}

// CanPerform reports whether the staff member offers a service. An empty
// service list means every service.
func (s *Staff) CanPerform(serviceID uuid.UUID) bool {
	if len(s.ServiceIDs) == 0 {
		return true
	}
	return s.ServiceIDs.Contains(serviceID.String())
}

func IsValidStaffRole(role string) bool {
	for _, r := range StaffRoles {
		if r == role {
			return true
		}
	}
	return false
}
