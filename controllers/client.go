// controllers/client.go
package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/middleware"
	"salonsync-backend/models"
	"salonsync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateClientInput carries no salon id; the tenant comes from the URL
type CreateClientInput struct {
	FirstName               string     `json:"firstName" binding:"required"`
	LastName                string     `json:"lastName"`
	Email                   string     `json:"email" binding:"omitempty,email"`
	Phone                   string     `json:"phone" binding:"omitempty,phone"`
	Birthday                *time.Time `json:"birthday"`
	Anniversary             *time.Time `json:"anniversary"`
	PreferredStaffID        *uuid.UUID `json:"preferredStaffId"`
	CommunicationPreference string     `json:"communicationPreference" binding:"omitempty,oneof=sms email whatsapp none"`
	HairType                string     `json:"hairType"`
	HairTexture             string     `json:"hairTexture"`
	CurrentColor            string     `json:"currentColor"`
	Allergies               string     `json:"allergies"`
	Notes                   string     `json:"notes"`
	PhotoConsent            bool       `json:"photoConsent"`
	SocialMediaConsent      bool       `json:"socialMediaConsent"`
	WebsiteConsent          bool       `json:"websiteConsent"`
	SMSConsent              bool       `json:"smsConsent"`
	ReferredByCode          string     `json:"referredByCode"`
	Source                  string     `json:"source"`
	Tags                    []string   `json:"tags"`
	IsVIP                   bool       `json:"isVip"`
}

type UpdateClientInput struct {
	FirstName               *string    `json:"firstName"`
	LastName                *string    `json:"lastName"`
	Email                   *string    `json:"email" binding:"omitempty,email"`
	Phone                   *string    `json:"phone" binding:"omitempty,phone"`
	Birthday                *time.Time `json:"birthday"`
	Anniversary             *time.Time `json:"anniversary"`
	PreferredStaffID        *uuid.UUID `json:"preferredStaffId"`
	CommunicationPreference *string    `json:"communicationPreference" binding:"omitempty,oneof=sms email whatsapp none"`
	HairType                *string    `json:"hairType"`
	HairTexture             *string    `json:"hairTexture"`
	CurrentColor            *string    `json:"currentColor"`
	Allergies               *string    `json:"allergies"`
	Notes                   *string    `json:"notes"`
	Tags                    *[]string  `json:"tags"`
	IsVIP                   *bool      `json:"isVip"`
	IsActive                *bool      `json:"isActive"`
}

type ClientNoteInput struct {
	Note string `json:"note" binding:"required,max=2000"`
}

type ClientTagsInput struct {
	Tags []string `json:"tags" binding:"required,min=1"`
}

type ConsentInput struct {
	PhotoConsent       *bool `json:"photoConsent"`
	SocialMediaConsent *bool `json:"socialMediaConsent"`
	WebsiteConsent     *bool `json:"websiteConsent"`
	SMSConsent         *bool `json:"smsConsent"`
}

// CreateClient creates a new client for the salon in the URL
func CreateClient(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	var input CreateClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	// Check if email already exists for this salon
	if email != "" {
		var count int64
		if err := config.DB.Model(&models.Client{}).Where("salon_id = ? AND email = ?", salonUUID, email).
			Count(&count).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
		if count > 0 {
			utils.RespondWithError(c, http.StatusConflict, "A client with this email already exists")
			return
		}
	}

	if input.PreferredStaffID != nil {
		found, err := existsInSalon(&models.Staff{}, salonUUID, *input.PreferredStaffID)
		if err != nil || !found {
			utils.RespondWithError(c, http.StatusBadRequest, "Preferred staff member not found")
			return
		}
	}

	client := models.Client{
		SalonID:                 salonUUID,
		FirstName:               input.FirstName,
		LastName:                input.LastName,
		Email:                   email,
		Phone:                   utils.CleanPhone(input.Phone),
		Birthday:                input.Birthday,
		Anniversary:             input.Anniversary,
		PreferredStaffID:        input.PreferredStaffID,
		CommunicationPreference: input.CommunicationPreference,
		HairType:                input.HairType,
		HairTexture:             input.HairTexture,
		CurrentColor:            input.CurrentColor,
		Allergies:               input.Allergies,
		Notes:                   input.Notes,
		PhotoConsent:            input.PhotoConsent,
		SocialMediaConsent:      input.SocialMediaConsent,
		WebsiteConsent:          input.WebsiteConsent,
		SMSConsent:              input.SMSConsent,
		Source:                  input.Source,
		IsVIP:                   input.IsVIP,
		IsActive:                true,
	}
	client.Tags = client.WithTags(input.Tags...)
	if client.CommunicationPreference == "" {
		client.CommunicationPreference = "sms"
	}
	if client.Source == "" {
		client.Source = models.SourceStaff
	}
	if input.PhotoConsent || input.SocialMediaConsent || input.WebsiteConsent || input.SMSConsent {
		now := time.Now()
		client.ConsentUpdatedAt = &now
	}

	if input.ReferredByCode != "" {
		var referrer models.Client
		if err := config.DB.Where("salon_id = ? AND referral_code = ?", salonUUID, strings.ToUpper(input.ReferredByCode)).
			First(&referrer).Error; err == nil {
			client.ReferredByID = &referrer.ID
		}
	}

	if err := createClientWithReferralCode(config.DB, &client); err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create client")
		return
	}

	c.JSON(http.StatusCreated, client)
}

// createClientWithReferralCode retries on the rare referral code collision.
// Each attempt runs in its own (nested) transaction so a failed insert does
// not abort an enclosing one.
func createClientWithReferralCode(db *gorm.DB, client *models.Client) error {
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		client.ReferralCode = utils.GenerateReferralCode()
		err = db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(client).Error
		})
		if err == nil || !utils.IsUniqueViolation(err) {
			return err
		}
		client.ID = uuid.Nil
	}
	return err
}

// GetClients lists clients with filters, ordered by last name
func GetClients(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	page := utils.GetPage(c, utils.DefaultPageLimit)

	query := config.DB.Model(&models.Client{}).Where("salon_id = ?", salonUUID)

	active := true
	if v, ok := utils.QueryBool(c, "isActive"); ok {
		active = v
	}
	query = query.Where("is_active = ?", active)

	if vip, ok := utils.QueryBool(c, "isVip"); ok {
		query = query.Where("is_vip = ?", vip)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		// punctuation-only input cleans to an empty phone that would match everyone
		if phone := utils.CleanPhone(search); phone != "" {
			query = query.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?",
				pattern, pattern, pattern, "%"+phone+"%")
		} else {
			query = query.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?",
				pattern, pattern, pattern)
		}
	}
	if tag := strings.TrimSpace(c.Query("tag")); tag != "" {
		query = query.Where("CAST(tags AS TEXT) LIKE ?", "%\""+tag+"\"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count clients")
		return
	}

	var clients []models.Client
	if err := query.Order("last_name, first_name").Offset(page.Skip).Limit(page.Limit).Find(&clients).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve clients")
		return
	}

	c.JSON(http.StatusOK, utils.Paginated(clients, total, page))
}

func GetClient(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	clientUUID, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}

	var client models.Client
	if !findInSalon(c, &client, salonUUID, clientUUID, "Client") {
		return
	}

	c.JSON(http.StatusOK, client)
}

func UpdateClient(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	clientUUID, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}

	var input UpdateClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	var client models.Client
	if !findInSalon(c, &client, salonUUID, clientUUID, "Client") {
		return
	}

	if input.FirstName != nil {
		client.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		client.LastName = *input.LastName
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		// Check if email is being changed to another existing client
		if email != "" && email != client.Email {
			var count int64
			if err := config.DB.Model(&models.Client{}).Where("salon_id = ? AND email = ? AND id <> ?", salonUUID, email, client.ID).
				Count(&count).Error; err != nil {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
				return
			}
			if count > 0 {
				utils.RespondWithError(c, http.StatusConflict, "Another client with this email already exists")
				return
			}
		}
		client.Email = email
	}
	if input.Phone != nil {
		client.Phone = utils.CleanPhone(*input.Phone)
	}
	if input.Birthday != nil {
		client.Birthday = input.Birthday
	}
	if input.Anniversary != nil {
		client.Anniversary = input.Anniversary
	}
	if input.PreferredStaffID != nil {
		found, err := existsInSalon(&models.Staff{}, salonUUID, *input.PreferredStaffID)
		if err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
		if !found {
			utils.RespondWithError(c, http.StatusBadRequest, "Preferred staff member not found")
			return
		}
		client.PreferredStaffID = input.PreferredStaffID
	}
	if input.CommunicationPreference != nil {
		client.CommunicationPreference = *input.CommunicationPreference
	}
	if input.HairType != nil {
		client.HairType = *input.HairType
	}
	if input.HairTexture != nil {
		client.HairTexture = *input.HairTexture
	}
	if input.CurrentColor != nil {
		client.CurrentColor = *input.CurrentColor
	}
	if input.Allergies != nil {
		client.Allergies = *input.Allergies
	}
	if input.Notes != nil {
		client.Notes = *input.Notes
	}
	if input.Tags != nil {
		client.Tags = models.NewStringList(*input.Tags...)
	}
	if input.IsVIP != nil {
		client.IsVIP = *input.IsVIP
	}
	if input.IsActive != nil {
		client.IsActive = *input.IsActive
	}

	if err := config.DB.Save(&client).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update client")
		return
	}

	c.JSON(http.StatusOK, client)
}

// DeleteClient soft deletes a client
func DeleteClient(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	clientUUID, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}

	result := config.DB.Model(&models.Client{}).
		Where("salon_id = ? AND id = ?", salonUUID, clientUUID).
		Update("is_active", false)
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete client")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Client not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Client deleted successfully"})
}

// AddClientNote appends a timestamped note signed by the caller
func AddClientNote(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	clientUUID, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}

	var input ClientNoteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	var client models.Client
	if !findInSalon(c, &client, salonUUID, clientUUID, "Client") {
		return
	}

	entry := fmt.Sprintf("[%s - %s] %s", time.Now().Format("2006-01-02 15:04"), user.FullName(), strings.TrimSpace(input.Note))
	if client.Notes == "" {
		client.Notes = entry
	} else {
		client.Notes = client.Notes + "\n\n" + entry
	}

	if err := config.DB.Model(&client).Update("notes", client.Notes).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to add note")
		return
	}

	c.JSON(http.StatusOK, client)
}

// AddClientTags adds tags, assigning a new list so the column is rewritten
func AddClientTags(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	clientUUID, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}

	var input ClientTagsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	var client models.Client
	if !findInSalon(c, &client, salonUUID, clientUUID, "Client") {
		return
	}

	trimmed := make([]string, 0, len(input.Tags))
	for _, t := range input.Tags {
		trimmed = append(trimmed, strings.TrimSpace(t))
	}
	client.Tags = client.WithTags(trimmed...)

	if err := config.DB.Model(&client).Update("tags", client.Tags).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to add tags")
		return
	}

	c.JSON(http.StatusOK, client)
}

func RemoveClientTag(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	clientUUID, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}

	var client models.Client
	if !findInSalon(c, &client, salonUUID, clientUUID, "Client") {
		return
	}

	client.Tags = client.WithoutTag(c.Param("tag"))
	if err := config.DB.Model(&client).Update("tags", client.Tags).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to remove tag")
		return
	}

	c.JSON(http.StatusOK, client)
}

func consentResponse(client *models.Client) gin.H {
	return gin.H{
		"clientId":           client.ID,
		"photoConsent":       client.PhotoConsent,
		"socialMediaConsent": client.SocialMediaConsent,
		"websiteConsent":     client.WebsiteConsent,
		"smsConsent":         client.SMSConsent,
		"consentUpdatedAt":   client.ConsentUpdatedAt,
	}
}

func GetClientConsent(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	clientUUID, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}

	var client models.Client
	if !findInSalon(c, &client, salonUUID, clientUUID, "Client") {
		return
	}

	c.JSON(http.StatusOK, consentResponse(&client))
}

func UpdateClientConsent(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	clientUUID, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}

	var input ConsentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	var client models.Client
	if !findInSalon(c, &client, salonUUID, clientUUID, "Client") {
		return
	}

	if input.PhotoConsent != nil {
		client.PhotoConsent = *input.PhotoConsent
	}
	if input.SocialMediaConsent != nil {
		client.SocialMediaConsent = *input.SocialMediaConsent
	}
	if input.WebsiteConsent != nil {
		client.WebsiteConsent = *input.WebsiteConsent
	}
	if input.SMSConsent != nil {
		client.SMSConsent = *input.SMSConsent
	}
	now := time.Now()
	client.ConsentUpdatedAt = &now

	if err := config.DB.Model(&client).Updates(map[string]interface{}{
		"photo_consent":        client.PhotoConsent,
		"social_media_consent": client.SocialMediaConsent,
		"website_consent":      client.WebsiteConsent,
		"sms_consent":          client.SMSConsent,
		"consent_updated_at":   client.ConsentUpdatedAt,
	}).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update consent")
		return
	}

	c.JSON(http.StatusOK, consentResponse(&client))
}

// GetClientHistory returns the client's recent appointments and purchases
func GetClientHistory(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	clientUUID, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}

	var client models.Client
	if !findInSalon(c, &client, salonUUID, clientUUID, "Client") {
		return
	}

	page := utils.GetPage(c, 10)

	var appointments []models.Appointment
	if err := config.DB.Preload("Services").Preload("Staff").
		Where("salon_id = ? AND client_id = ?", salonUUID, client.ID).
		Order("start_time DESC").Limit(page.Limit).Find(&appointments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}

	var sales []models.Sale
	if err := config.DB.Preload("Items").
		Where("salon_id = ? AND client_id = ?", salonUUID, client.ID).
		Order("created_at DESC").Limit(page.Limit).Find(&sales).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve sales")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client":       client,
		"appointments": appointments,
		"sales":        sales,
		"stats": gin.H{
			"visitCount":        client.VisitCount,
			"totalSpent":        client.TotalSpent,
			"averageTicket":     client.AverageTicket,
			"lastVisit":         client.LastVisit,
			"cancellationCount": client.CancellationCount,
			"noShowCount":       client.NoShowCount,
		},
	})
}

// recordClientVisit updates the client's running totals. countVisit adds a
// visit; amount is added to total spent.
func recordClientVisit(tx *gorm.DB, clientID uuid.UUID, amount float64, countVisit bool, at time.Time) error {
	updates := map[string]interface{}{
		"total_spent": gorm.Expr("total_spent + ?", models.RoundMoney(amount)),
	}
	if countVisit {
		updates["visit_count"] = gorm.Expr("visit_count + 1")
		updates["last_visit"] = at
	}
	if err := tx.Model(&models.Client{}).Where("id = ?", clientID).Updates(updates).Error; err != nil {
		return err
	}
	return tx.Model(&models.Client{}).Where("id = ?", clientID).
		Update("average_ticket", gorm.Expr("CASE WHEN visit_count > 0 THEN total_spent * 1.0 / visit_count ELSE total_spent END")).Error
}

// bumpClientCounter increments cancellation_count or no_show_count
func bumpClientCounter(tx *gorm.DB, clientID uuid.UUID, column string) error {
	return tx.Model(&models.Client{}).Where("id = ?", clientID).
		Update(column, gorm.Expr(column+" + 1")).Error
}
