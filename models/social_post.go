package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Social platforms
const (
	PlatformInstagram        = "instagram"
	PlatformInstagramStories = "instagram_stories"
	PlatformInstagramReels   = "instagram_reels"
	PlatformTikTok           = "tiktok"
	PlatformFacebook         = "facebook"
)

// Post statuses
const (
	PostDraft      = "draft"
	PostScheduled  = "scheduled"
	PostPublishing = "publishing"
	PostPublished  = "published"
	PostFailed     = "failed"
	PostDeleted    = "deleted"
)

const MaxPublishAttempts = 3

var SocialPlatforms = []string{
	PlatformInstagram, PlatformInstagramStories, PlatformInstagramReels,
	PlatformTikTok, PlatformFacebook,
}

type SocialPost struct {
	Base
	SalonID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"salonId"`
	MediaSetID  *uuid.UUID `gorm:"type:uuid;index" json:"mediaSetId"`
	CreatedByID *uuid.UUID `gorm:"type:uuid" json:"createdById"`

	Platform   string     `gorm:"type:varchar(30);not null" json:"platform"`
	Caption    string     `gorm:"type:text" json:"caption"`
	Hashtags   StringList `gorm:"type:jsonb" json:"hashtags"`
	MediaURLs  JSONList   `gorm:"type:jsonb" json:"mediaUrls"`
	IsCarousel bool       `json:"isCarousel"`

	CaptionGeneratedByAI bool   `json:"captionGenerated"`
	CaptionEdited        bool   `json:"captionEdited"`
	OriginalCaption      string `gorm:"type:text" json:"originalCaption"`

	Status          string     `gorm:"type:varchar(20);index;not null" json:"status"`
	ScheduledTime   *time.Time `gorm:"index" json:"scheduledTime"`
	PublishedAt     *time.Time `json:"publishedAt"`
	PlatformPostID  string     `json:"platformPostId"`
	PlatformPostURL string     `json:"platformPostUrl"`
	PublishAttempts int        `gorm:"default:0" json:"publishAttempts"`
	LastAttemptAt   *time.Time `json:"lastAttemptAt"`
	ErrorMessage    string     `gorm:"type:text" json:"errorMessage"`

	Likes          int        `gorm:"default:0" json:"likes"`
	Comments       int        `gorm:"default:0" json:"comments"`
	Shares         int        `gorm:"default:0" json:"shares"`
	Saves          int        `gorm:"default:0" json:"saves"`
	Reach          int        `gorm:"default:0" json:"reach"`
	Impressions    int        `gorm:"default:0" json:"impressions"`
	MetricsHistory JSONList   `gorm:"type:jsonb" json:"metricsHistory"`
	MetricsAt      *time.Time `json:"metricsUpdatedAt"`
}

// FullCaption appends the hashtags to the caption
func (p *SocialPost) FullCaption() string {
	if len(p.Hashtags) == 0 {
		return p.Caption
	}
	tags := make([]string, 0, len(p.Hashtags))
	for _, h := range p.Hashtags {
		tags = append(tags, "#"+strings.TrimPrefix(h, "#"))
	}
	return p.Caption + "\n\n" + strings.Join(tags, " ")
}

// IsEditable reports whether the caption and schedule can still change
func (p *SocialPost) IsEditable() bool {
	return p.Status == PostDraft || p.Status == PostScheduled
}

func (p *SocialPost) CanRetry() bool {
	return p.Status == PostFailed && p.PublishAttempts < MaxPublishAttempts
}

// EngagementRate is interactions over reach, as a percentage
func (p *SocialPost) EngagementRate() float64 {
	if p.Reach == 0 {
		return 0
	}
	return RoundMoney(float64(p.Likes+p.Comments+p.Shares+p.Saves) / float64(p.Reach) * 100)
}

// Metrics is a point-in-time engagement reading
type Metrics struct {
	Likes       int
	Comments    int
	Shares      int
	Saves       int
	Reach       int
	Impressions int
}

// RecordMetrics stores the new counters and appends a snapshot to the
// history as a new slice.
func (p *SocialPost) RecordMetrics(m Metrics, now time.Time) {
	p.Likes, p.Comments, p.Shares = m.Likes, m.Comments, m.Shares
	p.Saves, p.Reach, p.Impressions = m.Saves, m.Reach, m.Impressions
	p.MetricsAt = &now

	history := make(JSONList, 0, len(p.MetricsHistory)+1)
	history = append(history, p.MetricsHistory...)
	p.MetricsHistory = append(history, map[string]interface{}{
		"timestamp":   now.Format(time.RFC3339),
		"likes":       m.Likes,
		"comments":    m.Comments,
		"shares":      m.Shares,
		"saves":       m.Saves,
		"reach":       m.Reach,
		"impressions": m.Impressions,
	})
}

func IsValidPlatform(platform string) bool {
	for _, p := range SocialPlatforms {
		if p == platform {
			return true
		}
	}
	return false
}
