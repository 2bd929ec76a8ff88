package models

import (
	"github.com/google/uuid"
)

var ServiceCategories = []string{
	"Haircut", "Color", "Styling", "Treatment", "Extensions", "Nails",
	"Skincare", "Makeup", "Waxing", "Massage", "Other",
}

type Service struct {
	Base
	SalonID     uuid.UUID `gorm:"type:uuid;index;not null" json:"salonId"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"type:varchar(30);default:'Other'" json:"category"`

	Price           float64  `gorm:"type:decimal(10,2);not null" json:"price"`
	PriceMin        *float64 `gorm:"type:decimal(10,2)" json:"priceMin"`
	PriceMax        *float64 `gorm:"type:decimal(10,2)" json:"priceMax"`
	IsPriceVariable bool     `json:"isPriceVariable"`

	DurationMins       int `gorm:"not null" json:"durationMins"`
	BufferBeforeMins   int `gorm:"default:0" json:"bufferBeforeMins"`
	BufferAfterMins    int `gorm:"default:0" json:"bufferAfterMins"`
	ProcessingTimeMins int `gorm:"default:0" json:"processingTimeMins"`

	IsActive             bool       `gorm:"index" json:"isActive"`
	IsOnlineBookable     bool       `json:"isOnlineBookable"`
	IsAddon              bool       `json:"isAddon"`
	RequiresConsultation bool       `json:"requiresConsultation"`
	DisplayOrder         int        `gorm:"default:0" json:"displayOrder"`
	Color                string     `json:"color"`
	ImageURL             string     `json:"imageUrl"`
	Tags                 StringList `gorm:"type:jsonb" json:"tags"`
}

// TotalDuration is the time the service blocks on the calendar
func (s *Service) TotalDuration() int {
	return s.DurationMins + s.BufferBeforeMins + s.BufferAfterMins
}

func IsValidServiceCategory(category string) bool {
	for _, c := range ServiceCategories {
		if c == category {
			return true
		}
	}
	return false
}
