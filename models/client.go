package models

import (
	"time"

	"github.com/google/uuid"
)

type Client struct {
	Base
	SalonID uuid.UUID  `gorm:"type:uuid;index;not null" json:"salonId"`
	UserID  *uuid.UUID `gorm:"type:uuid;index" json:"userId"`

	FirstName string `gorm:"not null" json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `gorm:"index" json:"email"`
	Phone     string `gorm:"index" json:"phone"`

	Birthday    *time.Time `json:"birthday"`
	Anniversary *time.Time `json:"anniversary"`

	PreferredStaffID        *uuid.UUID `gorm:"type:uuid" json:"preferredStaffId"`
	CommunicationPreference string     `gorm:"type:varchar(20);default:'sms'" json:"communicationPreference"`

	HairType     string `json:"hairType"`
	HairTexture  string `json:"hairTexture"`
	CurrentColor string `json:"currentColor"`
	Allergies    string `gorm:"type:text" json:"allergies"`
	Notes        string `gorm:"type:text" json:"notes"`

	PhotoConsent       bool       `json:"photoConsent"`
	SocialMediaConsent bool       `json:"socialMediaConsent"`
	WebsiteConsent     bool       `json:"websiteConsent"`
	SMSConsent         bool       `json:"smsConsent"`
	ConsentUpdatedAt   *time.Time `json:"consentUpdatedAt"`

	ReferralCode string     `gorm:"uniqueIndex" json:"referralCode"`
	ReferredByID *uuid.UUID `gorm:"type:uuid" json:"referredById"`
	Source       string     `gorm:"type:varchar(30)" json:"source"`

	TotalSpent        float64    `gorm:"type:decimal(12,2);default:0" json:"totalSpent"`
	AverageTicket     float64    `gorm:"type:decimal(10,2);default:0" json:"averageTicket"`
	VisitCount        int        `gorm:"default:0" json:"visitCount"`
	LastVisit         *time.Time `json:"lastVisit"`
	CancellationCount int        `gorm:"default:0" json:"cancellationCount"`
	NoShowCount       int        `gorm:"default:0" json:"noShowCount"`

	Tags     StringList `gorm:"type:jsonb" json:"tags"`
	IsVIP    bool       `json:"isVip"`
	IsActive bool       `gorm:"index" json:"isActive"`
}

func (c *Client) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// WithTags returns a new tag list with the given tags appended, skipping
// blanks and duplicates.
func (c *Client) WithTags(tags ...string) StringList {
	out := make(StringList, 0, len(c.Tags)+len(tags))
	out = append(out, c.Tags...)
	for _, t := range tags {
		if t == "" || out.Contains(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// WithoutTag returns a new tag list without tag
func (c *Client) WithoutTag(tag string) StringList {
	out := make(StringList, 0, len(c.Tags))
	for _, t := range c.Tags {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}
