// controllers/social_post.go
package controllers

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/models"
	"salonsync-backend/services"
	"salonsync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CreateSocialPostInput struct {
	Platform      string     `json:"platform" binding:"required"`
	Caption       string     `json:"caption"`
	Hashtags      []string   `json:"hashtags"`
	MediaURLs     []string   `json:"mediaUrls" binding:"required,min=1,dive,url"`
	MediaSetID    *uuid.UUID `json:"mediaSetId"`
	ScheduledTime *time.Time `json:"scheduledTime"`
}

type FromMediaSetInput struct {
	Platform      string     `json:"platform"`
	Carousel      bool       `json:"carousel"`
	ScheduledTime *time.Time `json:"scheduledTime"`
	CaptionInput
}

type UpdateSocialPostInput struct {
	Platform  *string   `json:"platform"`
	Caption   *string   `json:"caption"`
	Hashtags  *[]string `json:"hashtags"`
	MediaURLs *[]string `json:"mediaUrls" binding:"omitempty,min=1,dive,url"`
}

type SchedulePostInput struct {
	ScheduledTime time.Time `json:"scheduledTime" binding:"required"`
}

type PostCaptionInput struct {
	MediaSetID uuid.UUID `json:"mediaSetId" binding:"required"`
	CaptionInput
}

type SocialPostController struct {
	Publisher services.Publisher
	Captions  *services.CaptionGenerator
}

func NewSocialPostController(publisher services.Publisher, captions *services.CaptionGenerator) *SocialPostController {
	return &SocialPostController{Publisher: publisher, Captions: captions}
}

func mediaList(urls ...string) models.JSONList {
	list := make(models.JSONList, 0, len(urls))
	for _, u := range urls {
		if u != "" {
			list = append(list, map[string]interface{}{"url": u})
		}
	}
	return list
}

func cleanHashtags(tags []string) models.StringList {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		cleaned = append(cleaned, strings.TrimPrefix(strings.TrimSpace(t), "#"))
	}
	return models.NewStringList(cleaned...)
}

// applySchedule sets the post scheduled when at is in the future
func applySchedule(post *models.SocialPost, at *time.Time, now time.Time) bool {
	if at == nil {
		post.Status = models.PostDraft
		return true
	}
	if !at.After(now) {
		return false
	}
	post.Status = models.PostScheduled
	post.ScheduledTime = at
	return true
}

func (sc *SocialPostController) CreateSocialPost(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	userUUID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	var input CreateSocialPostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}
	if !models.IsValidPlatform(input.Platform) {
		utils.RespondWithError(c, http.StatusBadRequest, "Unsupported platform")
		return
	}
	if input.MediaSetID != nil {
		exists, err := existsInSalon(&models.MediaSet{}, salonUUID, *input.MediaSetID)
		if err != nil || !exists {
			utils.RespondWithError(c, http.StatusBadRequest, "Media set not found")
			return
		}
	}

	post := models.SocialPost{
		SalonID:     salonUUID,
		MediaSetID:  input.MediaSetID,
		CreatedByID: &userUUID,
		Platform:    input.Platform,
		Caption:     input.Caption,
		Hashtags:    cleanHashtags(input.Hashtags),
		MediaURLs:   mediaList(input.MediaURLs...),
		IsCarousel:  len(input.MediaURLs) > 1,
	}
	if !applySchedule(&post, input.ScheduledTime, time.Now()) {
		utils.RespondWithError(c, http.StatusBadRequest, "scheduledTime must be in the future")
		return
	}

	if err := config.DB.Create(&post).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create post")
		return
	}

	c.JSON(http.StatusCreated, post)
}

// CreateFromMediaSet drafts a post from a consented before/after set
func (sc *SocialPostController) CreateFromMediaSet(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}
	userUUID, ok := userIDFromContext(c)
	if !ok {
		return
	}
	setUUID, ok := parseIDParam(c, "id", "media set")
	if !ok {
		return
	}

	var input FromMediaSetInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithBindError(c, err)
			return
		}
	}
	if input.Platform == "" {
		input.Platform = models.PlatformInstagram
	}
	if !models.IsValidPlatform(input.Platform) {
		utils.RespondWithError(c, http.StatusBadRequest, "Unsupported platform")
		return
	}

	var set models.MediaSet
	if !findInSalon(c, &set, salon.ID, setUUID, "Media set") {
		return
	}
	if !set.CanPostToSocial() {
		utils.RespondWithError(c, http.StatusBadRequest,
			"Media set needs before and after photos, client social media consent and must not be private")
		return
	}

	post := models.SocialPost{
		SalonID:     salon.ID,
		MediaSetID:  &set.ID,
		CreatedByID: &userUUID,
		Platform:    input.Platform,
		Caption:     set.AICaption,
		Hashtags:    set.SuggestedHashtags,
	}
	if post.Caption == "" {
		caption := sc.Captions.Generate(captionFor(&set, salon.Name, input.CaptionInput))
		post.Caption = caption.Caption
		post.Hashtags = models.NewStringList(caption.Hashtags...)
	}
	post.CaptionGeneratedByAI = true
	post.OriginalCaption = post.Caption

	switch {
	case input.Carousel:
		post.MediaURLs = mediaList(set.BeforePhotoURL, set.AfterPhotoURL)
		post.IsCarousel = true
	case set.ComparisonPhotoURL != "":
		post.MediaURLs = mediaList(set.ComparisonPhotoURL)
	default:
		post.MediaURLs = mediaList(set.AfterPhotoURL)
	}

	if !applySchedule(&post, input.ScheduledTime, time.Now()) {
		utils.RespondWithError(c, http.StatusBadRequest, "scheduledTime must be in the future")
		return
	}

	if err := config.DB.Create(&post).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create post")
		return
	}

	c.JSON(http.StatusCreated, post)
}

func (sc *SocialPostController) GetSocialPosts(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	page := utils.GetPage(c, utils.DefaultPageLimit)

	query := config.DB.Model(&models.SocialPost{}).Where("salon_id = ?", salonUUID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	} else {
		query = query.Where("status <> ?", models.PostDeleted)
	}
	if platform := c.Query("platform"); platform != "" {
		query = query.Where("platform = ?", platform)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count posts")
		return
	}

	var posts []models.SocialPost
	if err := query.Order("created_at DESC").Offset(page.Skip).Limit(page.Limit).Find(&posts).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve posts")
		return
	}

	c.JSON(http.StatusOK, utils.Paginated(posts, total, page))
}

func (sc *SocialPostController) loadPost(c *gin.Context) (*models.SocialPost, bool) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return nil, false
	}
	postUUID, ok := parseIDParam(c, "id", "post")
	if !ok {
		return nil, false
	}

	var post models.SocialPost
	if err := config.DB.Where("salon_id = ? AND id = ? AND status <> ?", salonUUID, postUUID, models.PostDeleted).
		First(&post).Error; err != nil {
		respondLookupError(c, err, "Post")
		return nil, false
	}
	return &post, true
}

func (sc *SocialPostController) GetSocialPost(c *gin.Context) {
	post, ok := sc.loadPost(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post, "fullCaption": post.FullCaption(), "engagementRate": post.EngagementRate()})
}

func (sc *SocialPostController) UpdateSocialPost(c *gin.Context) {
	post, ok := sc.loadPost(c)
	if !ok {
		return
	}

	var input UpdateSocialPostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}
	if !post.IsEditable() {
		utils.RespondWithError(c, http.StatusBadRequest, "Only draft or scheduled posts can be edited")
		return
	}

	if input.Platform != nil {
		if !models.IsValidPlatform(*input.Platform) {
			utils.RespondWithError(c, http.StatusBadRequest, "Unsupported platform")
			return
		}
		post.Platform = *input.Platform
	}
	if input.Caption != nil && *input.Caption != post.Caption {
		post.Caption = *input.Caption
		if post.CaptionGeneratedByAI {
			post.CaptionEdited = true
		}
	}
	if input.Hashtags != nil {
		post.Hashtags = cleanHashtags(*input.Hashtags)
	}
	if input.MediaURLs != nil {
		post.MediaURLs = mediaList(*input.MediaURLs...)
		post.IsCarousel = len(*input.MediaURLs) > 1
	}

	if err := config.DB.Save(post).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update post")
		return
	}

	c.JSON(http.StatusOK, post)
}

// DeleteSocialPost marks an unpublished post deleted
func (sc *SocialPostController) DeleteSocialPost(c *gin.Context) {
	post, ok := sc.loadPost(c)
	if !ok {
		return
	}
	if post.Status == models.PostPublished {
		utils.RespondWithError(c, http.StatusBadRequest, "Published posts cannot be deleted")
		return
	}
	if !post.IsEditable() {
		utils.RespondWithError(c, http.StatusBadRequest, "Only draft or scheduled posts can be deleted")
		return
	}

	if err := config.DB.Model(&models.SocialPost{}).Where("id = ?", post.ID).
		Update("status", models.PostDeleted).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

func (sc *SocialPostController) SchedulePost(c *gin.Context) {
	post, ok := sc.loadPost(c)
	if !ok {
		return
	}

	var input SchedulePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}
	if !post.IsEditable() {
		utils.RespondWithError(c, http.StatusBadRequest, "Only draft or scheduled posts can be scheduled")
		return
	}
	if !applySchedule(post, &input.ScheduledTime, time.Now()) {
		utils.RespondWithError(c, http.StatusBadRequest, "scheduledTime must be in the future")
		return
	}

	if err := config.DB.Model(&models.SocialPost{}).Where("id = ?", post.ID).Updates(map[string]interface{}{
		"status":         post.Status,
		"scheduled_time": post.ScheduledTime,
	}).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to schedule post")
		return
	}

	c.JSON(http.StatusOK, post)
}

func (sc *SocialPostController) publish(c *gin.Context, post *models.SocialPost) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}

	err := services.PublishPost(c.Request.Context(), config.DB, sc.Publisher, salon, post, time.Now())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, post)
	case errors.Is(err, services.ErrPostNotPublishable):
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrPlatformUnsupported), errors.Is(err, services.ErrAccountNotConnected),
		errors.Is(err, services.ErrNoMedia):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "post": post})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Publishing failed: " + err.Error(), "post": post})
	}
}

// PublishSocialPost publishes immediately
func (sc *SocialPostController) PublishSocialPost(c *gin.Context) {
	post, ok := sc.loadPost(c)
	if !ok {
		return
	}
	sc.publish(c, post)
}

// RetrySocialPost publishes a failed post again while attempts remain
func (sc *SocialPostController) RetrySocialPost(c *gin.Context) {
	post, ok := sc.loadPost(c)
	if !ok {
		return
	}
	if !post.CanRetry() {
		utils.RespondWithError(c, http.StatusBadRequest, "Only failed posts with remaining attempts can be retried")
		return
	}
	sc.publish(c, post)
}

// RefreshMetrics pulls engagement numbers for a published post
func (sc *SocialPostController) RefreshMetrics(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}
	post, ok := sc.loadPost(c)
	if !ok {
		return
	}
	if post.Status != models.PostPublished {
		utils.RespondWithError(c, http.StatusBadRequest, "Only published posts have metrics")
		return
	}

	metrics, err := sc.Publisher.FetchMetrics(c.Request.Context(), salon, post)
	if err != nil {
		if errors.Is(err, services.ErrPlatformUnsupported) || errors.Is(err, services.ErrAccountNotConnected) {
			utils.RespondWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithError(c, http.StatusBadGateway, "Failed to fetch metrics: "+err.Error())
		return
	}

	post.RecordMetrics(*metrics, time.Now())
	if err := config.DB.Save(post).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save metrics")
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": post, "engagementRate": post.EngagementRate()})
}

type PostPerformance struct {
	ID             uuid.UUID `json:"id"`
	Platform       string    `json:"platform"`
	PublishedAt    time.Time `json:"publishedAt"`
	URL            string    `json:"url"`
	Likes          int       `json:"likes"`
	Reach          int       `json:"reach"`
	EngagementRate float64   `json:"engagementRate"`
}

// GetSocialAnalytics aggregates engagement for posts published in a range
func (sc *SocialPostController) GetSocialAnalytics(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	start, ok := parseDateQuery(c, "start")
	if !ok {
		return
	}
	end, ok := parseDateQuery(c, "end")
	if !ok {
		return
	}

	now := time.Now()
	from := utils.BeginningOfDay(now.AddDate(0, 0, -30))
	to := utils.EndOfDay(now)
	if start != nil {
		from = utils.BeginningOfDay(*start)
	}
	if end != nil {
		to = utils.EndOfDay(*end)
	}

	var posts []models.SocialPost
	if err := config.DB.Where("salon_id = ? AND status = ? AND published_at >= ? AND published_at <= ?",
		salonUUID, models.PostPublished, from, to).Find(&posts).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve posts")
		return
	}

	var likes, comments, shares, saves, reach, impressions int
	var engagement float64
	byPlatform := map[string]int{}
	performance := make([]PostPerformance, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		likes += p.Likes
		comments += p.Comments
		shares += p.Shares
		saves += p.Saves
		reach += p.Reach
		impressions += p.Impressions
		engagement += p.EngagementRate()
		byPlatform[p.Platform]++
		performance = append(performance, PostPerformance{
			ID:             p.ID,
			Platform:       p.Platform,
			PublishedAt:    *p.PublishedAt,
			URL:            p.PlatformPostURL,
			Likes:          p.Likes,
			Reach:          p.Reach,
			EngagementRate: p.EngagementRate(),
		})
	}

	sort.SliceStable(performance, func(i, j int) bool {
		return performance[i].EngagementRate > performance[j].EngagementRate
	})
	if len(performance) > 5 {
		performance = performance[:5]
	}

	averageEngagement := 0.0
	if len(posts) > 0 {
		averageEngagement = models.RoundMoney(engagement / float64(len(posts)))
	}

	c.JSON(http.StatusOK, gin.H{
		"start":                 from.Format(utils.DateLayout),
		"end":                   to.Format(utils.DateLayout),
		"totalPosts":            len(posts),
		"likes":                 likes,
		"comments":              comments,
		"shares":                shares,
		"saves":                 saves,
		"reach":                 reach,
		"impressions":           impressions,
		"averageEngagementRate": averageEngagement,
		"byPlatform":            byPlatform,
		"topPosts":              performance,
	})
}

// GeneratePostCaption previews a caption for a media set without storing it
func (sc *SocialPostController) GeneratePostCaption(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}

	var input PostCaptionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}
	if input.Tone != "" && !services.IsValidTone(input.Tone) {
		utils.RespondWithError(c, http.StatusBadRequest, "tone must be one of professional, casual, fun, luxurious")
		return
	}

	var set models.MediaSet
	if !findInSalon(c, &set, salon.ID, input.MediaSetID, "Media set") {
		return
	}

	c.JSON(http.StatusOK, sc.Captions.Generate(captionFor(&set, salon.Name, input.CaptionInput)))
}
