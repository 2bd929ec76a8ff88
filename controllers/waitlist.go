// controllers/waitlist.go
package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/models"
	"salonsync-backend/services"
	"salonsync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FlexibleDateDays is how far a flexible entry may move from its date
const FlexibleDateDays = 3

type CreateWaitlistInput struct {
	ClientID               *uuid.UUID `json:"clientId"`
	ClientName             string     `json:"clientName" binding:"required"`
	ClientEmail            string     `json:"clientEmail" binding:"omitempty,email"`
	ClientPhone            string     `json:"clientPhone" binding:"omitempty,phone"`
	ServiceID              *uuid.UUID `json:"serviceId"`
	StaffID                *uuid.UUID `json:"staffId"`
	PreferredDate          string     `json:"preferredDate" binding:"required"`
	PreferredTimeStart     string     `json:"preferredTimeStart" binding:"omitempty,clock"`
	PreferredTimeEnd       string     `json:"preferredTimeEnd" binding:"omitempty,clock"`
	FlexibleDates          bool       `json:"flexibleDates"`
	FlexibleStaff          bool       `json:"flexibleStaff"`
	Priority               string     `json:"priority" binding:"omitempty,oneof=low normal high vip"`
	NotificationPreference string     `json:"notificationPreference" binding:"omitempty,oneof=sms email both"`
	Notes                  string     `json:"notes"`
}

type UpdateWaitlistInput struct {
	PreferredDate          *string    `json:"preferredDate"`
	PreferredTimeStart     *string    `json:"preferredTimeStart" binding:"omitempty,clock"`
	PreferredTimeEnd       *string    `json:"preferredTimeEnd" binding:"omitempty,clock"`
	ServiceID              *uuid.UUID `json:"serviceId"`
	StaffID                *uuid.UUID `json:"staffId"`
	FlexibleDates          *bool      `json:"flexibleDates"`
	FlexibleStaff          *bool      `json:"flexibleStaff"`
	Priority               *string    `json:"priority" binding:"omitempty,oneof=low normal high vip"`
	NotificationPreference *string    `json:"notificationPreference" binding:"omitempty,oneof=sms email both"`
	Notes                  *string    `json:"notes"`
	InternalNotes          *string    `json:"internalNotes"`
}

type NotifyWaitlistInput struct {
	Message string `json:"message"`
}

type BookWaitlistInput struct {
	AppointmentID uuid.UUID `json:"appointmentId" binding:"required"`
}

type WaitlistController struct {
	Notifier services.Notifier
}

func NewWaitlistController(notifier services.Notifier) *WaitlistController {
	return &WaitlistController{Notifier: notifier}
}

var activeWaitlistStatuses = []string{models.WaitlistPending, models.WaitlistNotified}

func waitlistOrder(query *gorm.DB) *gorm.DB {
	return query.Order("priority_rank DESC").Order("preferred_date").Order("created_at")
}

// CreateWaitlistEntry adds a client to the waitlist for a date
func (wc *WaitlistController) CreateWaitlistEntry(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	var input CreateWaitlistInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.ClientEmail))
	phone := utils.CleanPhone(input.ClientPhone)
	if email == "" && phone == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Either email or phone is required")
		return
	}

	preferred, err := utils.ParseDate(input.PreferredDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "preferredDate must be YYYY-MM-DD")
		return
	}

	refs := []struct {
		id    *uuid.UUID
		model interface{}
		label string
	}{
		{input.ClientID, &models.Client{}, "Client"},
		{input.ServiceID, &models.Service{}, "Service"},
		{input.StaffID, &models.Staff{}, "Staff member"},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		exists, err := existsInSalon(ref.model, salonUUID, *ref.id)
		if err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
		if !exists {
			utils.RespondWithError(c, http.StatusBadRequest, ref.label+" not found")
			return
		}
	}

	if email != "" {
		var count int64
		if err := config.DB.Model(&models.WaitlistEntry{}).
			Where("salon_id = ? AND client_email = ? AND preferred_date = ? AND status IN ?",
				salonUUID, email, preferred, activeWaitlistStatuses).
			Count(&count).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
		if count > 0 {
			utils.RespondWithError(c, http.StatusConflict, "Client is already on the waitlist for this date")
			return
		}
	}

	expires := models.DefaultWaitlistExpiry(preferred)
	entry := models.WaitlistEntry{
		SalonID:                salonUUID,
		ClientID:               input.ClientID,
		ClientName:             strings.TrimSpace(input.ClientName),
		ClientEmail:            email,
		ClientPhone:            phone,
		ServiceID:              input.ServiceID,
		StaffID:                input.StaffID,
		PreferredDate:          preferred,
		PreferredTimeStart:     input.PreferredTimeStart,
		PreferredTimeEnd:       input.PreferredTimeEnd,
		FlexibleDates:          input.FlexibleDates,
		FlexibleStaff:          input.FlexibleStaff,
		Status:                 models.WaitlistPending,
		NotificationPreference: input.NotificationPreference,
		Notes:                  input.Notes,
		ExpiresAt:              &expires,
	}
	if entry.NotificationPreference == "" {
		entry.NotificationPreference = "sms"
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	entry.SetPriority(priority)

	if err := config.DB.Create(&entry).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to add to waitlist")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// GetWaitlist lists entries, most urgent first
func (wc *WaitlistController) GetWaitlist(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	page := utils.GetPage(c, 50)

	startDate, ok := parseDateQuery(c, "startDate")
	if !ok {
		return
	}
	endDate, ok := parseDateQuery(c, "endDate")
	if !ok {
		return
	}
	staffID, ok := parseUUIDQuery(c, "staffId")
	if !ok {
		return
	}
	serviceID, ok := parseUUIDQuery(c, "serviceId")
	if !ok {
		return
	}

	activeOnly, set := utils.QueryBool(c, "activeOnly")
	if !set {
		activeOnly = true
	}

	query := config.DB.Model(&models.WaitlistEntry{}).Where("salon_id = ?", salonUUID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	} else if activeOnly {
		query = query.Where("status IN ?", activeWaitlistStatuses)
	}
	if startDate != nil {
		query = query.Where("preferred_date >= ?", utils.BeginningOfDay(*startDate))
	}
	if endDate != nil {
		query = query.Where("preferred_date <= ?", utils.EndOfDay(*endDate))
	}
	if staffID != nil {
		query = query.Where("staff_id = ?", *staffID)
	}
	if serviceID != nil {
		query = query.Where("service_id = ?", *serviceID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count waitlist")
		return
	}

	var entries []models.WaitlistEntry
	if err := waitlistOrder(query.Preload("Service").Preload("Staff")).
		Offset(page.Skip).Limit(page.Limit).Find(&entries).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve waitlist")
		return
	}

	c.JSON(http.StatusOK, utils.Paginated(entries, total, page))
}

type ServiceDemand struct {
	ServiceID   *uuid.UUID `json:"serviceId"`
	ServiceName string     `json:"serviceName"`
	Count       int        `json:"count"`
}

// GetWaitlistStats summarizes demand on the waitlist
func (wc *WaitlistController) GetWaitlistStats(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	var entries []models.WaitlistEntry
	if err := config.DB.Preload("Service").Where("salon_id = ?", salonUUID).Find(&entries).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve waitlist")
		return
	}

	weekStart := utils.BeginningOfWeek(time.Now())
	var pending, notified, bookedThisWeek, booked int
	var waitDays float64
	demand := map[string]*ServiceDemand{}
	order := []string{}

	for i := range entries {
		e := &entries[i]
		switch e.Status {
		case models.WaitlistPending:
			pending++
		case models.WaitlistNotified:
			notified++
		case models.WaitlistBooked:
			if e.BookedAt != nil {
				booked++
				waitDays += e.BookedAt.Sub(e.CreatedAt).Hours() / 24
				if !e.BookedAt.Before(weekStart) {
					bookedThisWeek++
				}
			}
		}

		if !e.IsActive() {
			continue
		}
		key, name := "none", "Any service"
		if e.ServiceID != nil {
			key = e.ServiceID.String()
			if e.Service != nil {
				name = e.Service.Name
			}
		}
		d, exists := demand[key]
		if !exists {
			d = &ServiceDemand{ServiceID: e.ServiceID, ServiceName: name}
			demand[key] = d
			order = append(order, key)
		}
		d.Count++
	}

	byService := make([]ServiceDemand, 0, len(order))
	for _, key := range order {
		byService = append(byService, *demand[key])
	}

	averageWait := 0.0
	if booked > 0 {
		averageWait = models.RoundMoney(waitDays / float64(booked))
	}

	c.JSON(http.StatusOK, gin.H{
		"pending":         pending,
		"notified":        notified,
		"totalActive":     pending + notified,
		"bookedThisWeek":  bookedThisWeek,
		"averageWaitDays": averageWait,
		"byService":       byService,
	})
}

// GetWaitlistForDate returns active entries for a date, including flexible
// entries whose date is within FlexibleDateDays of it
func (wc *WaitlistController) GetWaitlistForDate(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	day, err := utils.ParseDate(c.Param("date"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	from := utils.BeginningOfDay(day.AddDate(0, 0, -FlexibleDateDays))
	to := utils.EndOfDay(day.AddDate(0, 0, FlexibleDateDays))

	var entries []models.WaitlistEntry
	query := config.DB.Preload("Service").Preload("Staff").
		Where("salon_id = ? AND status IN ?", salonUUID, activeWaitlistStatuses).
		Where("(preferred_date >= ? AND preferred_date <= ?) OR (flexible_dates = ? AND preferred_date >= ? AND preferred_date <= ?)",
			utils.BeginningOfDay(day), utils.EndOfDay(day), true, from, to)
	if err := waitlistOrder(query).Find(&entries).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve waitlist")
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": day.Format(utils.DateLayout), "entries": entries})
}

func (wc *WaitlistController) GetWaitlistEntry(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	entryUUID, ok := parseIDParam(c, "id", "waitlist entry")
	if !ok {
		return
	}

	var entry models.WaitlistEntry
	if err := config.DB.Preload("Service").Preload("Staff").
		Where("salon_id = ? AND id = ?", salonUUID, entryUUID).First(&entry).Error; err != nil {
		respondLookupError(c, err, "Waitlist entry")
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (wc *WaitlistController) UpdateWaitlistEntry(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	entryUUID, ok := parseIDParam(c, "id", "waitlist entry")
	if !ok {
		return
	}

	var input UpdateWaitlistInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	var entry models.WaitlistEntry
	if !findInSalon(c, &entry, salonUUID, entryUUID, "Waitlist entry") {
		return
	}
	if !entry.IsActive() {
		utils.RespondWithError(c, http.StatusBadRequest, "Only active waitlist entries can be updated")
		return
	}

	if input.PreferredDate != nil {
		preferred, err := utils.ParseDate(*input.PreferredDate)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "preferredDate must be YYYY-MM-DD")
			return
		}
		entry.PreferredDate = preferred
		expires := models.DefaultWaitlistExpiry(preferred)
		entry.ExpiresAt = &expires
	}
	if input.ServiceID != nil {
		exists, err := existsInSalon(&models.Service{}, salonUUID, *input.ServiceID)
		if err != nil || !exists {
			utils.RespondWithError(c, http.StatusBadRequest, "Service not found")
			return
		}
		entry.ServiceID = input.ServiceID
	}
	if input.StaffID != nil {
		exists, err := existsInSalon(&models.Staff{}, salonUUID, *input.StaffID)
		if err != nil || !exists {
			utils.RespondWithError(c, http.StatusBadRequest, "Staff member not found")
			return
		}
		entry.StaffID = input.StaffID
	}
	if input.PreferredTimeStart != nil {
		entry.PreferredTimeStart = *input.PreferredTimeStart
	}
	if input.PreferredTimeEnd != nil {
		entry.PreferredTimeEnd = *input.PreferredTimeEnd
	}
	if input.FlexibleDates != nil {
		entry.FlexibleDates = *input.FlexibleDates
	}
	if input.FlexibleStaff != nil {
		entry.FlexibleStaff = *input.FlexibleStaff
	}
	if input.Priority != nil {
		entry.SetPriority(*input.Priority)
	}
	if input.NotificationPreference != nil {
		entry.NotificationPreference = *input.NotificationPreference
	}
	if input.Notes != nil {
		entry.Notes = *input.Notes
	}
	if input.InternalNotes != nil {
		entry.InternalNotes = *input.InternalNotes
	}

	if err := config.DB.Omit(clause.Associations).Save(&entry).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update waitlist entry")
		return
	}

	c.JSON(http.StatusOK, entry)
}

// DeleteWaitlistEntry cancels the entry; history is kept
func (wc *WaitlistController) DeleteWaitlistEntry(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	entryUUID, ok := parseIDParam(c, "id", "waitlist entry")
	if !ok {
		return
	}

	var entry models.WaitlistEntry
	if !findInSalon(c, &entry, salonUUID, entryUUID, "Waitlist entry") {
		return
	}

	entry.Cancel()
	if err := config.DB.Model(&models.WaitlistEntry{}).Where("id = ?", entry.ID).
		Update("status", entry.Status).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to cancel waitlist entry")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Waitlist entry cancelled"})
}

// NotifyWaitlistEntry tells the client a slot has opened
func (wc *WaitlistController) NotifyWaitlistEntry(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}
	entryUUID, ok := parseIDParam(c, "id", "waitlist entry")
	if !ok {
		return
	}

	var input NotifyWaitlistInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithBindError(c, err)
			return
		}
	}

	var entry models.WaitlistEntry
	if err := config.DB.Preload("Service").Where("salon_id = ? AND id = ?", salon.ID, entryUUID).
		First(&entry).Error; err != nil {
		respondLookupError(c, err, "Waitlist entry")
		return
	}
	if !entry.IsActive() {
		utils.RespondWithError(c, http.StatusBadRequest, "Only active waitlist entries can be notified")
		return
	}

	body := input.Message
	if body == "" {
		service := "your appointment"
		if entry.Service != nil {
			service = entry.Service.Name
		}
		body = fmt.Sprintf("Hi %s, a spot has opened up at %s for %s around %s. Reply or call us to book!",
			entry.ClientName, salon.Name, service, entry.PreferredDate.Format("Mon Jan 2"))
	}

	sent := false
	if entry.WantsSMS() {
		if err := services.Deliver(c.Request.Context(), config.DB, wc.Notifier, services.Message{
			SalonID:  salon.ID,
			ClientID: entry.ClientID,
			Type:     models.ReminderWaitlist,
			To:       entry.ClientPhone,
			Body:     body,
		}); err != nil {
			utils.RespondWithError(c, http.StatusBadGateway, "Failed to notify client: "+err.Error())
			return
		}
		sent = true
	}

	entry.MarkNotified(time.Now())
	if err := config.DB.Model(&models.WaitlistEntry{}).Where("id = ?", entry.ID).Updates(map[string]interface{}{
		"status":             entry.Status,
		"notification_count": entry.NotificationCount,
		"last_notified_at":   entry.LastNotifiedAt,
	}).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update waitlist entry")
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": entry, "smsSent": sent})
}

// BookWaitlistEntry links the entry to the appointment that filled it
func (wc *WaitlistController) BookWaitlistEntry(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	entryUUID, ok := parseIDParam(c, "id", "waitlist entry")
	if !ok {
		return
	}

	var input BookWaitlistInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	var entry models.WaitlistEntry
	if !findInSalon(c, &entry, salonUUID, entryUUID, "Waitlist entry") {
		return
	}
	if !entry.IsActive() {
		utils.RespondWithError(c, http.StatusBadRequest, "Only active waitlist entries can be booked")
		return
	}

	exists, err := existsInSalon(&models.Appointment{}, salonUUID, input.AppointmentID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		utils.RespondWithError(c, http.StatusBadRequest, "Appointment not found")
		return
	}

	entry.MarkBooked(input.AppointmentID, time.Now())
	if err := config.DB.Model(&models.WaitlistEntry{}).Where("id = ?", entry.ID).Updates(map[string]interface{}{
		"status":         entry.Status,
		"appointment_id": entry.AppointmentID,
		"booked_at":      entry.BookedAt,
	}).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update waitlist entry")
		return
	}

	c.JSON(http.StatusOK, entry)
}
