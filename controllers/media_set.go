// controllers/media_set.go
package controllers

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/models"
	"salonsync-backend/services"
	"salonsync-backend/storage"
	"salonsync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// Photo kinds stored on a media set
const (
	PhotoBefore     = "before"
	PhotoAfter      = "after"
	PhotoComparison = "comparison"
)

var additionalPhotoTypes = map[string]bool{"process": true, "detail": true, "styling": true}

type MediaSetInput struct {
	StaffID             *uuid.UUID               `json:"staffId"`
	ClientID            *uuid.UUID               `json:"clientId"`
	AppointmentID       *uuid.UUID               `json:"appointmentId"`
	Title               *string                  `json:"title"`
	ServiceDate         *string                  `json:"serviceDate"`
	ServicesPerformed   []string                 `json:"servicesPerformed"`
	TechniquesUsed      []string                 `json:"techniquesUsed"`
	ColorFormulas       []map[string]interface{} `json:"colorFormulas"`
	ProductsUsed        []map[string]interface{} `json:"productsUsed"`
	StartingLevel       *string                  `json:"startingLevel"`
	AchievedLevel       *string                  `json:"achievedLevel"`
	Tags                []string                 `json:"tags"`
	Notes               *string                  `json:"notes"`
	ClientPhotoConsent  *bool                    `json:"clientPhotoConsent"`
	ClientSocialConsent *bool                    `json:"clientSocialConsent"`
	IsPortfolioPiece    *bool                    `json:"isPortfolioPiece"`
	IsPrivate           *bool                    `json:"isPrivate"`
}

type CaptionInput struct {
	Tone                string `json:"tone"`
	IncludeHashtags     *bool  `json:"includeHashtags"`
	HashtagCount        int    `json:"hashtagCount" binding:"omitempty,min=5,max=30"`
	IncludeCallToAction *bool  `json:"includeCallToAction"`
	MentionProducts     bool   `json:"mentionProducts"`
}

type MediaSetController struct {
	Store    storage.Store
	Captions *services.CaptionGenerator
}

func NewMediaSetController(store storage.Store, captions *services.CaptionGenerator) *MediaSetController {
	return &MediaSetController{Store: store, Captions: captions}
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

// applyMediaSetInput copies the provided fields onto set, validating the
// referenced records against the salon
func applyMediaSetInput(c *gin.Context, set *models.MediaSet, input *MediaSetInput) bool {
	if input.StaffID != nil {
		exists, err := existsInSalon(&models.Staff{}, set.SalonID, *input.StaffID)
		if err != nil || !exists {
			utils.RespondWithError(c, http.StatusBadRequest, "Staff member not found")
			return false
		}
		set.StaffID = *input.StaffID
	}
	if input.ClientID != nil {
		var client models.Client
		if err := config.DB.Where("salon_id = ? AND id = ?", set.SalonID, *input.ClientID).First(&client).Error; err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Client not found")
			return false
		}
		set.ClientID = input.ClientID
		// Consents follow the client record unless given explicitly
		set.ClientPhotoConsent = boolOr(input.ClientPhotoConsent, client.PhotoConsent)
		set.ClientSocialConsent = boolOr(input.ClientSocialConsent, client.SocialMediaConsent)
	}
	if input.AppointmentID != nil {
		exists, err := existsInSalon(&models.Appointment{}, set.SalonID, *input.AppointmentID)
		if err != nil || !exists {
			utils.RespondWithError(c, http.StatusBadRequest, "Appointment not found")
			return false
		}
		set.AppointmentID = input.AppointmentID
	}
	if input.ServiceDate != nil {
		day, err := utils.ParseDate(*input.ServiceDate)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "serviceDate must be YYYY-MM-DD")
			return false
		}
		set.ServiceDate = day
	}
	if input.Title != nil {
		set.Title = *input.Title
	}
	if input.ServicesPerformed != nil {
		set.ServicesPerformed = models.NewStringList(input.ServicesPerformed...)
	}
	if input.TechniquesUsed != nil {
		set.TechniquesUsed = models.NewStringList(input.TechniquesUsed...)
	}
	if input.ColorFormulas != nil {
		set.ColorFormulas = models.JSONList(input.ColorFormulas)
	}
	if input.ProductsUsed != nil {
		set.ProductsUsed = models.JSONList(input.ProductsUsed)
	}
	if input.StartingLevel != nil {
		set.StartingLevel = *input.StartingLevel
	}
	if input.AchievedLevel != nil {
		set.AchievedLevel = *input.AchievedLevel
	}
	if input.Tags != nil {
		set.Tags = models.NewStringList(input.Tags...)
	}
	if input.Notes != nil {
		set.Notes = *input.Notes
	}
	if input.ClientID == nil {
		set.ClientPhotoConsent = boolOr(input.ClientPhotoConsent, set.ClientPhotoConsent)
		set.ClientSocialConsent = boolOr(input.ClientSocialConsent, set.ClientSocialConsent)
	}
	set.IsPortfolioPiece = boolOr(input.IsPortfolioPiece, set.IsPortfolioPiece)
	set.IsPrivate = boolOr(input.IsPrivate, set.IsPrivate)
	return true
}

// CreateMediaSet records a transformation without photos
func (mc *MediaSetController) CreateMediaSet(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	var input MediaSetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}
	if input.StaffID == nil {
		utils.RespondWithError(c, http.StatusBadRequest, "staffId is required")
		return
	}

	set := models.MediaSet{SalonID: salonUUID, ServiceDate: utils.BeginningOfDay(time.Now())}
	if !applyMediaSetInput(c, &set, &input) {
		return
	}

	if err := config.DB.Create(&set).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create media set")
		return
	}

	c.JSON(http.StatusCreated, set.View())
}

// storePhoto sniffs and uploads one multipart file
func (mc *MediaSetController) storePhoto(ctx context.Context, salonID, setID uuid.UUID, kind string, header *multipart.FileHeader) (*storage.Object, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	photo, err := storage.ReadPhoto(file)
	if err != nil {
		return nil, err
	}
	key := storage.PhotoKey(salonID, setID, kind, photo.Extension)
	return mc.Store.Put(ctx, key, photo.Reader(), photo.Size(), photo.ContentType)
}

func (mc *MediaSetController) removeObjects(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := mc.Store.Delete(ctx, key); err != nil {
			slog.Warn("failed to delete stored photo", "key", key, "error", err)
		}
	}
}

func respondPhotoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		utils.RespondWithError(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, storage.ErrPhotoTooLarge):
		utils.RespondWithError(c, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, storage.ErrNotAnImage):
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	default:
		slog.Error("photo upload failed", "error", err)
		utils.RespondWithError(c, http.StatusBadGateway, "Failed to store photo")
	}
}

func splitFormList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.PostFormArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func formUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	v := c.PostForm(key)
	if v == "" {
		return nil, true
	}
	id, err := uuid.Parse(v)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+key)
		return nil, false
	}
	return &id, true
}

func formBool(c *gin.Context, key string) *bool {
	v, ok := c.GetPostForm(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func formString(c *gin.Context, key string) *string {
	v, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &v
}

// UploadMediaSet creates a media set from before and after photos
func (mc *MediaSetController) UploadMediaSet(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	if !storage.Configured(mc.Store) {
		respondPhotoError(c, storage.ErrNotConfigured)
		return
	}

	before, err := c.FormFile("beforePhoto")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "beforePhoto is required")
		return
	}
	after, err := c.FormFile("afterPhoto")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "afterPhoto is required")
		return
	}

	input := MediaSetInput{
		Title:               formString(c, "title"),
		ServiceDate:         formString(c, "serviceDate"),
		ServicesPerformed:   splitFormList(c, "servicesPerformed"),
		TechniquesUsed:      splitFormList(c, "techniquesUsed"),
		Tags:                splitFormList(c, "tags"),
		StartingLevel:       formString(c, "startingLevel"),
		AchievedLevel:       formString(c, "achievedLevel"),
		Notes:               formString(c, "notes"),
		ClientPhotoConsent:  formBool(c, "clientPhotoConsent"),
		ClientSocialConsent: formBool(c, "clientSocialConsent"),
		IsPortfolioPiece:    formBool(c, "isPortfolioPiece"),
		IsPrivate:           formBool(c, "isPrivate"),
	}
	if input.StaffID, ok = formUUID(c, "staffId"); !ok {
		return
	}
	if input.ClientID, ok = formUUID(c, "clientId"); !ok {
		return
	}
	if input.AppointmentID, ok = formUUID(c, "appointmentId"); !ok {
		return
	}
	if input.StaffID == nil {
		utils.RespondWithError(c, http.StatusBadRequest, "staffId is required")
		return
	}

	set := models.MediaSet{SalonID: salonUUID, ServiceDate: utils.BeginningOfDay(time.Now())}
	set.ID = uuid.New()
	if !applyMediaSetInput(c, &set, &input) {
		return
	}

	ctx := c.Request.Context()
	beforeObj, err := mc.storePhoto(ctx, salonUUID, set.ID, PhotoBefore, before)
	if err != nil {
		respondPhotoError(c, err)
		return
	}
	afterObj, err := mc.storePhoto(ctx, salonUUID, set.ID, PhotoAfter, after)
	if err != nil {
		mc.removeObjects(ctx, beforeObj.Key)
		respondPhotoError(c, err)
		return
	}

	set.BeforePhotoURL, set.BeforePhotoKey = beforeObj.URL, beforeObj.Key
	set.AfterPhotoURL, set.AfterPhotoKey = afterObj.URL, afterObj.Key

	if err := config.DB.Create(&set).Error; err != nil {
		mc.removeObjects(ctx, beforeObj.Key, afterObj.Key)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create media set")
		return
	}

	c.JSON(http.StatusCreated, set.View())
}

// AddPhoto attaches an additional process, detail or styling photo
func (mc *MediaSetController) AddPhoto(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	setUUID, ok := parseIDParam(c, "id", "media set")
	if !ok {
		return
	}

	var set models.MediaSet
	if !findInSalon(c, &set, salonUUID, setUUID, "Media set") {
		return
	}

	kind := c.DefaultPostForm("type", "process")
	if !additionalPhotoTypes[kind] {
		utils.RespondWithError(c, http.StatusBadRequest, "type must be one of process, detail, styling")
		return
	}
	header, err := c.FormFile("photo")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "photo is required")
		return
	}

	ctx := c.Request.Context()
	obj, err := mc.storePhoto(ctx, salonUUID, set.ID, kind, header)
	if err != nil {
		respondPhotoError(c, err)
		return
	}

	set.AdditionalPhotos = set.WithPhoto(map[string]interface{}{
		"url":        obj.URL,
		"key":        obj.Key,
		"type":       kind,
		"caption":    c.PostForm("caption"),
		"uploadedAt": time.Now().Format(time.RFC3339),
	})
	if err := config.DB.Model(&models.MediaSet{}).Where("id = ?", set.ID).
		Update("additional_photos", set.AdditionalPhotos).Error; err != nil {
		mc.removeObjects(ctx, obj.Key)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save photo")
		return
	}

	c.JSON(http.StatusCreated, set.View())
}

func viewsOf(sets []models.MediaSet) []models.MediaSetView {
	views := make([]models.MediaSetView, len(sets))
	for i := range sets {
		views[i] = sets[i].View()
	}
	return views
}

// GetMediaSets lists media sets with staff, client, portfolio and photo filters
func (mc *MediaSetController) GetMediaSets(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	page := utils.GetPage(c, utils.DefaultPageLimit)

	staffID, ok := parseUUIDQuery(c, "staffId")
	if !ok {
		return
	}
	clientID, ok := parseUUIDQuery(c, "clientId")
	if !ok {
		return
	}

	query := config.DB.Model(&models.MediaSet{}).Where("salon_id = ?", salonUUID)
	if staffID != nil {
		query = query.Where("staff_id = ?", *staffID)
	}
	if clientID != nil {
		query = query.Where("client_id = ?", *clientID)
	}
	if portfolio, set := utils.QueryBool(c, "isPortfolio"); set {
		query = query.Where("is_portfolio_piece = ?", portfolio)
	}
	if hasBoth, set := utils.QueryBool(c, "hasBeforeAfter"); set {
		if hasBoth {
			query = query.Where("before_photo_url <> '' AND after_photo_url <> ''")
		} else {
			query = query.Where("before_photo_url = '' OR after_photo_url = ''")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count media sets")
		return
	}

	var sets []models.MediaSet
	if err := query.Order("service_date DESC, created_at DESC").
		Offset(page.Skip).Limit(page.Limit).Find(&sets).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve media sets")
		return
	}

	c.JSON(http.StatusOK, utils.Paginated(viewsOf(sets), total, page))
}

// portfolioSets loads public portfolio pieces for a salon
func portfolioSets(salonID uuid.UUID, staffID *uuid.UUID, limit int) ([]models.MediaSet, error) {
	query := config.DB.Where("salon_id = ? AND is_portfolio_piece = ? AND is_private = ?", salonID, true, false).
		Where("before_photo_url <> '' AND after_photo_url <> ''")
	if staffID != nil {
		query = query.Where("staff_id = ?", *staffID)
	}
	var sets []models.MediaSet
	err := query.Order("service_date DESC, created_at DESC").Limit(limit).Find(&sets).Error
	return sets, err
}

func (mc *MediaSetController) GetPortfolio(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	staffID, ok := parseUUIDQuery(c, "staffId")
	if !ok {
		return
	}
	page := utils.GetPage(c, 50)

	sets, err := portfolioSets(salonUUID, staffID, page.Limit)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve portfolio")
		return
	}

	c.JSON(http.StatusOK, viewsOf(sets))
}

type FormulaRecord struct {
	MediaSetID    uuid.UUID       `json:"mediaSetId"`
	ServiceDate   time.Time       `json:"serviceDate"`
	StaffID       uuid.UUID       `json:"staffId"`
	StartingLevel string          `json:"startingLevel"`
	AchievedLevel string          `json:"achievedLevel"`
	Formulas      models.JSONList `json:"formulas"`
	Summary       string          `json:"summary"`
}

// GetFormulaHistory returns a client's color formulas, newest first
func (mc *MediaSetController) GetFormulaHistory(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	clientID, ok := parseUUIDQuery(c, "clientId")
	if !ok {
		return
	}
	if clientID == nil {
		utils.RespondWithError(c, http.StatusBadRequest, "clientId is required")
		return
	}

	var sets []models.MediaSet
	if err := config.DB.Where("salon_id = ? AND client_id = ?", salonUUID, *clientID).
		Order("service_date DESC, created_at DESC").Find(&sets).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve formulas")
		return
	}

	history := []FormulaRecord{}
	for i := range sets {
		set := &sets[i]
		if len(set.ColorFormulas) == 0 {
			continue
		}
		history = append(history, FormulaRecord{
			MediaSetID:    set.ID,
			ServiceDate:   set.ServiceDate,
			StaffID:       set.StaffID,
			StartingLevel: set.StartingLevel,
			AchievedLevel: set.AchievedLevel,
			Formulas:      set.ColorFormulas,
			Summary:       set.FormulaSummary(),
		})
	}

	c.JSON(http.StatusOK, history)
}

func (mc *MediaSetController) GetMediaSet(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	setUUID, ok := parseIDParam(c, "id", "media set")
	if !ok {
		return
	}

	var set models.MediaSet
	if !findInSalon(c, &set, salonUUID, setUUID, "Media set") {
		return
	}

	c.JSON(http.StatusOK, set.View())
}

func (mc *MediaSetController) UpdateMediaSet(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	setUUID, ok := parseIDParam(c, "id", "media set")
	if !ok {
		return
	}

	var input MediaSetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	var set models.MediaSet
	if !findInSalon(c, &set, salonUUID, setUUID, "Media set") {
		return
	}
	if !applyMediaSetInput(c, &set, &input) {
		return
	}

	if err := config.DB.Omit(clause.Associations).Save(&set).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update media set")
		return
	}

	c.JSON(http.StatusOK, set.View())
}

// DeleteMediaSet removes the set and its stored photos
func (mc *MediaSetController) DeleteMediaSet(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	setUUID, ok := parseIDParam(c, "id", "media set")
	if !ok {
		return
	}

	var set models.MediaSet
	if !findInSalon(c, &set, salonUUID, setUUID, "Media set") {
		return
	}

	if err := config.DB.Delete(&set).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete media set")
		return
	}

	keys := []string{set.BeforePhotoKey, set.AfterPhotoKey}
	for _, photo := range set.AdditionalPhotos {
		if key, ok := photo["key"].(string); ok {
			keys = append(keys, key)
		}
	}
	if storage.Configured(mc.Store) {
		mc.removeObjects(c.Request.Context(), keys...)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Media set deleted successfully"})
}

// captionFor builds a caption request from a media set
func captionFor(set *models.MediaSet, salonName string, input CaptionInput) services.CaptionRequest {
	count := input.HashtagCount
	if count == 0 {
		count = services.DefaultHashtagCount
	}

	var stylist models.Staff
	stylistName := ""
	if err := config.DB.Select("first_name", "last_name").Where("id = ?", set.StaffID).First(&stylist).Error; err == nil {
		stylistName = stylist.FullName()
	}

	return services.CaptionRequest{
		ServicesPerformed:   set.ServicesPerformed,
		TechniquesUsed:      set.TechniquesUsed,
		ColorFormulas:       set.ColorFormulas,
		ProductsUsed:        set.ProductsUsed,
		StartingLevel:       set.StartingLevel,
		AchievedLevel:       set.AchievedLevel,
		Tags:                set.Tags,
		SalonName:           salonName,
		StylistName:         stylistName,
		Tone:                input.Tone,
		IncludeHashtags:     boolOr(input.IncludeHashtags, true),
		HashtagCount:        count,
		IncludeCallToAction: boolOr(input.IncludeCallToAction, true),
		MentionProducts:     input.MentionProducts,
	}
}

// GenerateCaption writes a caption for the set and stores it
func (mc *MediaSetController) GenerateCaption(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}
	setUUID, ok := parseIDParam(c, "id", "media set")
	if !ok {
		return
	}

	var input CaptionInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithBindError(c, err)
			return
		}
	}
	if input.Tone != "" && !services.IsValidTone(input.Tone) {
		utils.RespondWithError(c, http.StatusBadRequest, "tone must be one of professional, casual, fun, luxurious")
		return
	}

	var set models.MediaSet
	if !findInSalon(c, &set, salon.ID, setUUID, "Media set") {
		return
	}

	caption := mc.Captions.Generate(captionFor(&set, salon.Name, input))

	now := time.Now()
	set.AICaption = caption.Caption
	set.SuggestedHashtags = models.NewStringList(caption.Hashtags...)
	set.CaptionGeneratedAt = &now
	if err := config.DB.Model(&models.MediaSet{}).Where("id = ?", set.ID).Updates(map[string]interface{}{
		"ai_caption":           set.AICaption,
		"suggested_hashtags":   set.SuggestedHashtags,
		"caption_generated_at": now,
	}).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save caption")
		return
	}

	c.JSON(http.StatusOK, gin.H{"mediaSetId": set.ID, "caption": caption})
}
