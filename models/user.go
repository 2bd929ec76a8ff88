package models

import (
	"time"

	"salonsync-backend/utils"

	"gorm.io/gorm"
)

// User roles
const (
	RoleClient = "client"
	RoleOwner  = "owner"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
)

const (
	MaxFailedLogins = 5
	LockoutDuration = 30 * time.Minute
)

type User struct {
	Base
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"`
	FirstName string `gorm:"not null" json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`

	Role        string `gorm:"type:varchar(20);not null;default:'client'" json:"role"`
	IsSuperuser bool   `gorm:"default:false" json:"isSuperuser"`
	IsActive    bool   `json:"isActive"`

	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLogin           *time.Time `json:"lastLogin"`
}

// Hash the password and assign the id before creating
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if err = u.Base.BeforeCreate(tx); err != nil {
		return err
	}
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsLocked reports whether the account is inside a lockout window
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// RegisterFailedLogin counts a bad password and locks the account once the
// limit is reached.
func (u *User) RegisterFailedLogin(now time.Time) {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= MaxFailedLogins {
		until := now.Add(LockoutDuration)
		u.LockedUntil = &until
	}
}
