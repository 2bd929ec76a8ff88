// services/social.go
package services

import (
	"context"
	"errors"
	"time"

	"salonsync-backend/models"

	"gorm.io/gorm"
)

var ErrPostNotPublishable = errors.New("post cannot be published in its current status")

var publishableStatuses = []string{models.PostDraft, models.PostScheduled, models.PostFailed}

// PublishPost pushes a post through the publisher and records the outcome.
// The post is claimed with a conditional status update first, so a copy
// loaded before another caller's claim is rejected with ErrPostNotPublishable.
// A failed attempt is saved with its error and returned.
func PublishPost(ctx context.Context, db *gorm.DB, publisher Publisher, salon *models.Salon, post *models.SocialPost, now time.Time) error {
	switch post.Status {
	case models.PostDraft, models.PostScheduled, models.PostFailed:
	default:
		return ErrPostNotPublishable
	}

	claim := db.Model(&models.SocialPost{}).
		Where("id = ? AND status IN ?", post.ID, publishableStatuses).
		Updates(map[string]interface{}{
			"status":           models.PostPublishing,
			"publish_attempts": gorm.Expr("publish_attempts + 1"),
			"last_attempt_at":  now,
		})
	if claim.Error != nil {
		return claim.Error
	}
	if claim.RowsAffected == 0 {
		return ErrPostNotPublishable
	}

	var claimed models.SocialPost
	if err := db.Select("publish_attempts").First(&claimed, "id = ?", post.ID).Error; err != nil {
		return err
	}
	post.Status = models.PostPublishing
	post.PublishAttempts = claimed.PublishAttempts
	post.LastAttemptAt = &now

	result, err := publisher.Publish(ctx, salon, post)
	if err != nil {
		post.Status = models.PostFailed
		post.ErrorMessage = err.Error()
		if saveErr := db.Save(post).Error; saveErr != nil {
			return saveErr
		}
		return err
	}

	published := time.Now()
	post.Status = models.PostPublished
	post.PublishedAt = &published
	post.PlatformPostID = result.PostID
	post.PlatformPostURL = result.URL
	post.ErrorMessage = ""
	return db.Save(post).Error
}
