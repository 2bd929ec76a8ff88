package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type MediaSet struct {
	Base
	SalonID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"salonId"`
	StaffID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"staffId"`
	ClientID      *uuid.UUID `gorm:"type:uuid;index" json:"clientId"`
	AppointmentID *uuid.UUID `gorm:"type:uuid" json:"appointmentId"`
	Title         string     `json:"title"`
	ServiceDate   time.Time  `json:"serviceDate"`

	BeforePhotoURL     string   `json:"beforePhotoUrl"`
	BeforePhotoKey     string   `json:"-"`
	AfterPhotoURL      string   `json:"afterPhotoUrl"`
	AfterPhotoKey      string   `json:"-"`
	ComparisonPhotoURL string   `json:"comparisonPhotoUrl"`
	AdditionalPhotos   JSONList `gorm:"type:jsonb" json:"additionalPhotos"`

	ServicesPerformed StringList `gorm:"type:jsonb" json:"servicesPerformed"`
	TechniquesUsed    StringList `gorm:"type:jsonb" json:"techniquesUsed"`
	ColorFormulas     JSONList   `gorm:"type:jsonb" json:"colorFormulas"`
	ProductsUsed      JSONList   `gorm:"type:jsonb" json:"productsUsed"`
	StartingLevel     string     `json:"startingLevel"`
	AchievedLevel     string     `json:"achievedLevel"`
	Tags              StringList `gorm:"type:jsonb" json:"tags"`
	Notes             string     `gorm:"type:text" json:"notes"`

	AICaption          string     `gorm:"column:ai_caption;type:text" json:"generatedCaption"`
	SuggestedHashtags  StringList `gorm:"type:jsonb" json:"suggestedHashtags"`
	CaptionGeneratedAt *time.Time `json:"captionGeneratedAt"`

	ClientPhotoConsent  bool `json:"clientPhotoConsent"`
	ClientSocialConsent bool `json:"clientSocialConsent"`
	IsPortfolioPiece    bool `gorm:"index" json:"isPortfolioPiece"`
	IsPrivate           bool `json:"isPrivate"`
}

func (m *MediaSet) HasBeforeAfter() bool {
	return m.BeforePhotoURL != "" && m.AfterPhotoURL != ""
}

// CanPostToSocial requires both photos, social consent and a public set
func (m *MediaSet) CanPostToSocial() bool {
	return m.HasBeforeAfter() && m.ClientSocialConsent && !m.IsPrivate
}

func (m *MediaSet) PhotoCount() int {
	n := len(m.AdditionalPhotos)
	for _, url := range []string{m.BeforePhotoURL, m.AfterPhotoURL, m.ComparisonPhotoURL} {
		if url != "" {
			n++
		}
	}
	return n
}

// FormulaSummary renders color formulas as "Brand shade + developer" lines
func (m *MediaSet) FormulaSummary() string {
	lines := make([]string, 0, len(m.ColorFormulas))
	for _, f := range m.ColorFormulas {
		var parts []string
		for _, key := range []string{"brand", "line", "shade"} {
			if v, ok := f[key].(string); ok && v != "" {
				parts = append(parts, v)
			}
		}
		line := strings.Join(parts, " ")
		if dev, ok := f["developer"].(string); ok && dev != "" {
			line += " + " + dev
		}
		if t, ok := f["processingTime"]; ok && t != nil {
			line += fmt.Sprintf(" (%v min)", t)
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// WithPhoto returns a new photo list with photo appended
func (m *MediaSet) WithPhoto(photo map[string]interface{}) JSONList {
	out := make(JSONList, 0, len(m.AdditionalPhotos)+1)
	out = append(out, m.AdditionalPhotos...)
	return append(out, photo)
}

// MediaSetView adds the derived flags to the JSON representation
type MediaSetView struct {
	*MediaSet
	HasBeforeAfter  bool   `json:"hasBeforeAfter"`
	CanPostToSocial bool   `json:"canPostToSocial"`
	PhotoCount      int    `json:"photoCount"`
	FormulaSummary  string `json:"formulaSummary"`
}

func (m *MediaSet) View() MediaSetView {
	return MediaSetView{
		MediaSet:        m,
		HasBeforeAfter:  m.HasBeforeAfter(),
		CanPostToSocial: m.CanPostToSocial(),
		PhotoCount:      m.PhotoCount(),
		FormulaSummary:  m.FormulaSummary(),
	}
}
