// controllers/salon.go
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

type CreateSalonInput struct {
	Name          string       `json:"name" binding:"required,min=2,max=100"`
	Description   string       `json:"description"`
	Email         string       `json:"email" binding:"omitempty,email"`
	Phone         string       `json:"phone" binding:"omitempty,phone"`
	Website       string       `json:"website"`
	AddressLine1  string       `json:"addressLine1"`
	AddressLine2  string       `json:"addressLine2"`
	City          string       `json:"city"`
	State         string       `json:"state"`
	ZipCode       string       `json:"zipCode"`
	Country       string       `json:"country"`
	Timezone      string       `json:"timezone"`
	BusinessHours models.JSONB `json:"businessHours"`
}

type UpdateSalonInput struct {
	Name         *string `json:"name" binding:"omitempty,min=2,max=100"`
	Description  *string `json:"description"`
	Email        *string `json:"email" binding:"omitempty,email"`
	Phone        *string `json:"phone" binding:"omitempty,phone"`
	Website      *string `json:"website"`
	AddressLine1 *string `json:"addressLine1"`
	AddressLine2 *string `json:"addressLine2"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	ZipCode      *string `json:"zipCode"`
	Country      *string `json:"country"`
	Timezone     *string `json:"timezone"`
	LogoURL      *string `json:"logoUrl"`
}

type SalonSettingsInput struct {
	BookingLeadTimeHours    *int         `json:"bookingLeadTimeHours" binding:"omitempty,min=0,max=168"`
	BookingWindowDays       *int         `json:"bookingWindowDays" binding:"omitempty,min=1,max=365"`
	CancellationPolicyHours *int         `json:"cancellationPolicyHours" binding:"omitempty,min=0,max=168"`
	DepositRequired         *bool        `json:"depositRequired"`
	DepositPercentage       *float64     `json:"depositPercentage" binding:"omitempty,min=0,max=100"`
	AutoConfirmAppointments *bool        `json:"autoConfirmAppointments"`
	ReminderHoursBefore     *int         `json:"reminderHoursBefore" binding:"omitempty,min=1,max=168"`
	BusinessHours           models.JSONB `json:"businessHours"`
	SMSNotifications        *bool        `json:"smsNotifications"`
	WhatsAppNotifications   *bool        `json:"whatsAppNotifications"`
	BirthdayReminders       *bool        `json:"birthdayReminders"`
	AnniversaryReminders    *bool        `json:"anniversaryReminders"`
}

type ReminderTemplateInput struct {
	Type     string `json:"type" binding:"required,oneof=birthday anniversary appointment_reminder"`
	Message  string `json:"message" binding:"required,max=1000"`
	IsActive *bool  `json:"isActive"`
}

type ConnectInstagramInput struct {
	AccessToken string `json:"accessToken" binding:"required"`
	AccountID   string `json:"accountId" binding:"required"`
	Handle      string `json:"handle"`
}

// DefaultBusinessHours is used when a salon is created without hours
func DefaultBusinessHours() models.JSONB {
	day := func(open, close string, closed bool) map[string]interface{} {
		return map[string]interface{}{"open": open, "close": close, "closed": closed}
	}
	return models.JSONB{
		"monday":    day("09:00", "19:00", false),
		"tuesday":   day("09:00", "19:00", false),
		"wednesday": day("09:00", "19:00", false),
		"thursday":  day("09:00", "20:00", false),
		"friday":    day("09:00", "20:00", false),
		"saturday":  day("09:00", "18:00", false),
		"sunday":    day("10:00", "16:00", true),
	}
}

// CreateSalon creates a salon owned by the caller, with an owner staff
// profile and default reminder templates. A client caller becomes an owner.
func CreateSalon(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}

	var input CreateSalonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	slug, err := uniqueSlug(input.Name)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate salon slug")
		return
	}

	salon := models.Salon{
		OwnerID:                 user.ID,
		Name:                    strings.TrimSpace(input.Name),
		Slug:                    slug,
		Description:             input.Description,
		Email:                   input.Email,
		Phone:                   utils.CleanPhone(input.Phone),
		Website:                 input.Website,
		AddressLine1:            input.AddressLine1,
		AddressLine2:            input.AddressLine2,
		City:                    input.City,
		State:                   input.State,
		ZipCode:                 input.ZipCode,
		Country:                 input.Country,
		Timezone:                input.Timezone,
		BusinessHours:           input.BusinessHours,
		BookingLeadTimeHours:    models.DefaultBookingLeadTimeHours,
		BookingWindowDays:       models.DefaultBookingWindowDays,
		CancellationPolicyHours: models.DefaultCancellationPolicyHours,
		ReminderHoursBefore:     models.DefaultReminderHoursBefore,
		SMSNotifications:        true,
		BirthdayReminders:       true,
		AnniversaryReminders:    true,
		IsActive:                true,
	}
	if salon.BusinessHours == nil {
		salon.BusinessHours = DefaultBusinessHours()
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&salon).Error; err != nil {
			return err
		}

		userID := user.ID
		owner := models.Staff{
			SalonID:       salon.ID,
			UserID:        &userID,
			FirstName:     user.FirstName,
			LastName:      user.LastName,
			Email:         user.Email,
			Phone:         user.Phone,
			Title:         "Owner",
			Role:          models.StaffRoleOwner,
			Status:        models.StaffStatusActive,
			ShowOnBooking: true,
		}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}

		if err := createDefaultReminderTemplates(tx, salon.ID); err != nil {
			return err
		}

		if user.Role == models.RoleClient {
			if err := tx.Model(user).Update("role", models.RoleOwner).Error; err != nil {
				return err
			}
			user.Role = models.RoleOwner
		}
		return nil
	})
	if err != nil {
		if utils.IsUniqueViolation(err) {
			utils.RespondWithError(c, http.StatusConflict, "A salon with this slug already exists")
			return
		}
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create salon")
		return
	}

	c.JSON(http.StatusCreated, salon)
}

// uniqueSlug slugifies name and appends -2, -3... until the slug is free
func uniqueSlug(name string) (string, error) {
	base := utils.Slugify(name)
	slug := base
	for i := 2; ; i++ {
		var count int64
		if err := config.DB.Model(&models.Salon{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func createDefaultReminderTemplates(tx *gorm.DB, salonID uuid.UUID) error {
	for _, templateType := range models.ReminderTemplateTypes {
		template := models.ReminderTemplate{
			SalonID:  salonID,
			Type:     templateType,
			Message:  models.DefaultReminderMessages[templateType],
			IsActive: true,
		}
		if err := tx.Create(&template).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetSalons lists the salons the caller works at. Superusers see all.
func GetSalons(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}
	page := utils.GetPage(c, utils.DefaultPageLimit)

	query := config.DB.Model(&models.Salon{}).Where("is_active = ?", true)
	if !user.IsSuperuser {
		query = query.Where("id IN (?)", config.DB.Model(&models.Staff{}).
			Select("salon_id").
			Where("user_id = ? AND status <> ?", user.ID, models.StaffStatusTerminated))
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(city) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count salons")
		return
	}

	var salons []models.Salon
	if err := query.Order("name").Offset(page.Skip).Limit(page.Limit).Find(&salons).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve salons")
		return
	}

	c.JSON(http.StatusOK, utils.Paginated(salons, total, page))
}

func GetSalon(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"salon":              salon,
		"address":            salon.Address(),
		"instagramConnected": salon.InstagramConnected(),
	})
}

func UpdateSalon(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}

	var input UpdateSalonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Email != nil {
		updates["email"] = *input.Email
	}
	if input.Phone != nil {
		updates["phone"] = utils.CleanPhone(*input.Phone)
	}
	if input.Website != nil {
		updates["website"] = *input.Website
	}
	if input.AddressLine1 != nil {
		updates["address_line1"] = *input.AddressLine1
	}
	if input.AddressLine2 != nil {
		updates["address_line2"] = *input.AddressLine2
	}
	if input.City != nil {
		updates["city"] = *input.City
	}
	if input.State != nil {
		updates["state"] = *input.State
	}
	if input.ZipCode != nil {
		updates["zip_code"] = *input.ZipCode
	}
	if input.Country != nil {
		updates["country"] = *input.Country
	}
	if input.Timezone != nil {
		updates["timezone"] = *input.Timezone
	}
	if input.LogoURL != nil {
		updates["logo_url"] = *input.LogoURL
	}

	if len(updates) > 0 {
		if err := config.DB.Model(salon).Updates(updates).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update salon")
			return
		}
		config.DB.First(salon, "id = ?", salon.ID)
	}

	c.JSON(http.StatusOK, salon)
}

// DeleteSalon deactivates the salon
func DeleteSalon(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}

	if err := config.DB.Model(salon).Update("is_active", false).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete salon")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Salon deleted successfully"})
}

func settingsResponse(salon *models.Salon) gin.H {
	return gin.H{
		"bookingLeadTimeHours":    salon.BookingLeadTimeHours,
		"bookingWindowDays":       salon.BookingWindowDays,
		"cancellationPolicyHours": salon.CancellationPolicyHours,
		"depositRequired":         salon.DepositRequired,
		"depositPercentage":       salon.DepositPercentage,
		"autoConfirmAppointments": salon.AutoConfirmAppointments,
		"reminderHoursBefore":     salon.ReminderHoursBefore,
		"businessHours":           salon.BusinessHours,
		"smsNotifications":        salon.SMSNotifications,
		"whatsAppNotifications":   salon.WhatsAppNotifications,
		"birthdayReminders":       salon.BirthdayReminders,
		"anniversaryReminders":    salon.AnniversaryReminders,
	}
}

func GetSalonSettings(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, settingsResponse(salon))
}

func UpdateSalonSettings(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}

	var input SalonSettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	// Validate business hours before touching the record
	for day, value := range input.BusinessHours {
		entry, ok := value.(map[string]interface{})
		if !ok {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid business hours for "+day)
			return
		}
		for _, key := range []string{"open", "close"} {
			if v, ok := entry[key].(string); ok {
				if _, _, err := utils.ParseClock(v); err != nil {
					utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+key+" time for "+day)
					return
				}
			}
		}
	}

	updates := map[string]interface{}{}
	if input.BookingLeadTimeHours != nil {
		updates["booking_lead_time_hours"] = *input.BookingLeadTimeHours
	}
	if input.BookingWindowDays != nil {
		updates["booking_window_days"] = *input.BookingWindowDays
	}
	if input.CancellationPolicyHours != nil {
		updates["cancellation_policy_hours"] = *input.CancellationPolicyHours
	}
	if input.DepositRequired != nil {
		updates["deposit_required"] = *input.DepositRequired
	}
	if input.DepositPercentage != nil {
		updates["deposit_percentage"] = *input.DepositPercentage
	}
	if input.AutoConfirmAppointments != nil {
		updates["auto_confirm_appointments"] = *input.AutoConfirmAppointments
	}
	if input.ReminderHoursBefore != nil {
		updates["reminder_hours_before"] = *input.ReminderHoursBefore
	}
	if input.BusinessHours != nil {
		updates["business_hours"] = input.BusinessHours
	}
	if input.SMSNotifications != nil {
		updates["sms_notifications"] = *input.SMSNotifications
	}
	if input.WhatsAppNotifications != nil {
		updates["whats_app_notifications"] = *input.WhatsAppNotifications
	}
	if input.BirthdayReminders != nil {
		updates["birthday_reminders"] = *input.BirthdayReminders
	}
	if input.AnniversaryReminders != nil {
		updates["anniversary_reminders"] = *input.AnniversaryReminders
	}

	if len(updates) > 0 {
		if err := config.DB.Model(salon).Updates(updates).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update settings")
			return
		}
		if err := config.DB.First(salon, "id = ?", salon.ID).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
	}

	c.JSON(http.StatusOK, settingsResponse(salon))
}

// GetReminderTemplates lists the salon's message templates
func GetReminderTemplates(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	var templates []models.ReminderTemplate
	if err := config.DB.Where("salon_id = ?", salonUUID).Order("type").Find(&templates).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve templates")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"templates":    templates,
		"placeholders": []string{"[ClientName]", "[SalonName]", "[Time]"},
	})
}

// UpsertReminderTemplate creates or replaces the template for a type
func UpsertReminderTemplate(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	var input ReminderTemplateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	var template models.ReminderTemplate
	err := config.DB.Where("salon_id = ? AND type = ?", salonUUID, input.Type).First(&template).Error
	if err != nil && !utils.IsNotFound(err) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	template.SalonID = salonUUID
	template.Type = input.Type
	template.Message = input.Message
	template.IsActive = true
	if input.IsActive != nil {
		template.IsActive = *input.IsActive
	}

	if err := config.DB.Save(&template).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save template")
		return
	}

	c.JSON(http.StatusOK, template)
}

// GetSalonStats returns headline counts for the salon
func GetSalonStats(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	now := time.Now()
	var clients, staff, services, upcoming int64
	config.DB.Model(&models.Client{}).Where("salon_id = ? AND is_active = ?", salonUUID, true).Count(&clients)
	config.DB.Model(&models.Staff{}).Where("salon_id = ? AND status = ?", salonUUID, models.StaffStatusActive).Count(&staff)
	config.DB.Model(&models.Service{}).Where("salon_id = ? AND is_active = ?", salonUUID, true).Count(&services)
	config.DB.Model(&models.Appointment{}).
		Where("salon_id = ? AND start_time >= ? AND status IN ?", salonUUID, now,
			[]string{models.AppointmentScheduled, models.AppointmentConfirmed}).
		Count(&upcoming)

	monthRevenue, err := revenueBetween(salonUUID, utils.BeginningOfMonth(now), now)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to calculate revenue")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalClients":         clients,
		"totalStaff":           staff,
		"totalServices":        services,
		"upcomingAppointments": upcoming,
		"monthRevenue":         monthRevenue,
	})
}

// ConnectInstagram stores the Graph API credentials for the salon
func ConnectInstagram(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}

	var input ConnectInstagramInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	if err := config.DB.Model(salon).Updates(map[string]interface{}{
		"instagram_account_id":   input.AccountID,
		"instagram_access_token": input.AccessToken,
		"instagram_handle":       strings.TrimPrefix(input.Handle, "@"),
	}).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to connect Instagram")
		return
	}
	config.DB.First(salon, "id = ?", salon.ID)

	c.JSON(http.StatusOK, socialStatus(salon))
}

func DisconnectInstagram(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}

	if err := config.DB.Model(salon).Updates(map[string]interface{}{
		"instagram_account_id":   "",
		"instagram_access_token": "",
		"instagram_handle":       "",
	}).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to disconnect Instagram")
		return
	}
	config.DB.First(salon, "id = ?", salon.ID)

	c.JSON(http.StatusOK, socialStatus(salon))
}

func GetSocialStatus(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, socialStatus(salon))
}

func socialStatus(salon *models.Salon) gin.H {
	return gin.H{
		"instagram": gin.H{
			"connected": salon.InstagramConnected(),
			"handle":    salon.InstagramHandle,
		},
		"tiktok":   gin.H{"connected": false},
		"facebook": gin.H{"connected": false},
	}
}
