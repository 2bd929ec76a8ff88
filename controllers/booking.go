// controllers/booking.go
package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
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

const (
	DefaultAvailabilityDays = 7
	MaxAvailabilityDays     = 30
)

var (
	errBookingClosed = errors.New("date is outside the booking window")
	errSaveClient    = errors.New("failed to save client")
)

type PublicBookingInput struct {
	FirstName    string     `json:"firstName" binding:"required"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email" binding:"required,email"`
	Phone        string     `json:"phone" binding:"omitempty,phone"`
	ServiceID    uuid.UUID  `json:"serviceId" binding:"required"`
	StaffID      *uuid.UUID `json:"staffId"`
	Date         string     `json:"date" binding:"required"`
	Time         string     `json:"time" binding:"required,clock"`
	Notes        string     `json:"notes"`
	SMSReminders bool       `json:"smsReminders"`
}

type PublicCancelInput struct {
	Email            string `json:"email" binding:"required,email"`
	ConfirmationCode string `json:"confirmationCode" binding:"required"`
	Reason           string `json:"reason"`
}

type BookingController struct {
	Notifier services.Notifier
}

func NewBookingController(notifier services.Notifier) *BookingController {
	return &BookingController{Notifier: notifier}
}

// salonBySlug loads an active salon for the public pages
func salonBySlug(c *gin.Context) (*models.Salon, bool) {
	var salon models.Salon
	if err := config.DB.Where("slug = ? AND is_active = ?", c.Param("slug"), true).First(&salon).Error; err != nil {
		respondLookupError(c, err, "Salon")
		return nil, false
	}
	return &salon, true
}

func bookingWindowEnd(salon *models.Salon, now time.Time) time.Time {
	days := salon.BookingWindowDays
	if days <= 0 {
		days = models.DefaultBookingWindowDays
	}
	return utils.EndOfDay(now.AddDate(0, 0, days))
}

func (bc *BookingController) GetPublicSalon(c *gin.Context) {
	salon, ok := salonBySlug(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                      salon.ID,
		"name":                    salon.Name,
		"slug":                    salon.Slug,
		"description":             salon.Description,
		"address":                 salon.Address(),
		"phone":                   salon.Phone,
		"email":                   salon.Email,
		"website":                 salon.Website,
		"logoUrl":                 salon.LogoURL,
		"timezone":                salon.Timezone,
		"businessHours":           salon.BusinessHours,
		"bookingLeadTimeHours":    salon.BookingLeadTimeHours,
		"bookingWindowDays":       salon.BookingWindowDays,
		"cancellationPolicyHours": salon.CancellationPolicyHours,
		"depositRequired":         salon.DepositRequired,
		"instagramHandle":         salon.InstagramHandle,
	})
}

func (bc *BookingController) GetPublicServices(c *gin.Context) {
	salon, ok := salonBySlug(c)
	if !ok {
		return
	}

	query := config.DB.Where("salon_id = ? AND is_active = ? AND is_online_bookable = ?", salon.ID, true, true)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var offered []models.Service
	if err := query.Order("category, display_order, name").Find(&offered).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve services")
		return
	}

	c.JSON(http.StatusOK, offered)
}

type PublicStaff struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Bio         string    `json:"bio"`
	PhotoURL    string    `json:"photoUrl"`
	Specialties []string  `json:"specialties"`
}

func (bc *BookingController) GetPublicStaff(c *gin.Context) {
	salon, ok := salonBySlug(c)
	if !ok {
		return
	}
	serviceID, ok := parseUUIDQuery(c, "serviceId")
	if !ok {
		return
	}

	var staff []models.Staff
	if err := config.DB.Where("salon_id = ? AND status = ? AND show_on_booking = ?", salon.ID, models.StaffStatusActive, true).
		Order("display_order, first_name").Find(&staff).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve staff")
		return
	}

	out := []PublicStaff{}
	for i := range staff {
		member := &staff[i]
		if serviceID != nil && !member.CanPerform(*serviceID) {
			continue
		}
		out = append(out, PublicStaff{
			ID:          member.ID,
			Name:        member.FullName(),
			Title:       member.Title,
			Bio:         member.Bio,
			PhotoURL:    member.PhotoURL,
			Specialties: member.Specialties,
		})
	}

	c.JSON(http.StatusOK, out)
}

func bookableService(c *gin.Context, salonID, serviceID uuid.UUID) (*models.Service, bool) {
	var service models.Service
	if err := config.DB.Where("salon_id = ? AND id = ? AND is_active = ? AND is_online_bookable = ?",
		salonID, serviceID, true, true).First(&service).Error; err != nil {
		if utils.IsNotFound(err) {
			utils.RespondWithError(c, http.StatusNotFound, "Service not available for online booking")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &service, true
}

type DayAvailability struct {
	Date  string              `json:"date"`
	Staff []StaffAvailability `json:"staff"`
}

// GetPublicAvailability lists open slots over a range of days
func (bc *BookingController) GetPublicAvailability(c *gin.Context) {
	salon, ok := salonBySlug(c)
	if !ok {
		return
	}

	serviceID, ok := parseUUIDQuery(c, "serviceId")
	if !ok {
		return
	}
	if serviceID == nil {
		utils.RespondWithError(c, http.StatusBadRequest, "serviceId is required")
		return
	}
	staffID, ok := parseUUIDQuery(c, "staffId")
	if !ok {
		return
	}
	startDate, ok := parseDateQuery(c, "startDate")
	if !ok {
		return
	}
	days := DefaultAvailabilityDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxAvailabilityDays {
			utils.RespondWithError(c, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", MaxAvailabilityDays))
			return
		}
		days = n
	}

	service, ok := bookableService(c, salon.ID, *serviceID)
	if !ok {
		return
	}

	now := time.Now()
	day := utils.BeginningOfDay(now)
	if startDate != nil && startDate.After(day) {
		day = utils.BeginningOfDay(*startDate)
	}
	windowEnd := bookingWindowEnd(salon, now)

	result := []DayAvailability{}
	for i := 0; i < days; i++ {
		current := day.AddDate(0, 0, i)
		if current.After(windowEnd) {
			break
		}
		staff, err := staffAvailability(salon, service, staffID, current, now, true)
		if err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to compute availability")
			return
		}
		result = append(result, DayAvailability{Date: current.Format(utils.DateLayout), Staff: staff})
	}

	c.JSON(http.StatusOK, gin.H{
		"serviceId":    service.ID,
		"durationMins": service.DurationMins,
		"days":         result,
	})
}

// findOrCreateOnlineClient matches the booking to a client by email
func findOrCreateOnlineClient(db *gorm.DB, salonID uuid.UUID, input *PublicBookingInput, email, phone string) (*models.Client, error) {
	var client models.Client
	err := db.Where("salon_id = ? AND email = ?", salonID, email).First(&client).Error
	if err == nil {
		updates := map[string]interface{}{}
		if client.Phone == "" && phone != "" {
			client.Phone = phone
			updates["phone"] = phone
		}
		if input.SMSReminders && !client.SMSConsent {
			now := time.Now()
			client.SMSConsent = true
			updates["sms_consent"] = true
			updates["consent_updated_at"] = now
		}
		if len(updates) > 0 {
			if err := db.Model(&models.Client{}).Where("id = ?", client.ID).Updates(updates).Error; err != nil {
				return nil, err
			}
		}
		return &client, nil
	}
	if !utils.IsNotFound(err) {
		return nil, err
	}

	now := time.Now()
	client = models.Client{
		SalonID:                 salonID,
		FirstName:               strings.TrimSpace(input.FirstName),
		LastName:                strings.TrimSpace(input.LastName),
		Email:                   email,
		Phone:                   phone,
		Source:                  models.SourceOnline,
		CommunicationPreference: "sms",
		SMSConsent:              input.SMSReminders,
		ConsentUpdatedAt:        &now,
		IsActive:                true,
	}
	if err := createClientWithReferralCode(db, &client); err != nil {
		return nil, err
	}
	return &client, nil
}

// pickStaff finds the first bookable staff member free at start
func pickStaff(salon *models.Salon, service *models.Service, start time.Time, now time.Time) (*models.Staff, error) {
	var staff []models.Staff
	if err := config.DB.Where("salon_id = ? AND status = ? AND show_on_booking = ?", salon.ID, models.StaffStatusActive, true).
		Order("display_order, first_name").Find(&staff).Error; err != nil {
		return nil, err
	}
	for i := range staff {
		member := &staff[i]
		if !member.CanPerform(service.ID) {
			continue
		}
		err := services.CheckSlot(config.DB, salon, member, start, services.SlotDuration(service, member), now, nil, true)
		if err == nil {
			return member, nil
		}
		if !errors.Is(err, services.ErrSlotUnavailable) && !errors.Is(err, services.ErrOutsideHours) {
			return nil, err
		}
	}
	return nil, services.ErrSlotUnavailable
}

// BookAppointment books a service online for a new or returning client
func (bc *BookingController) BookAppointment(c *gin.Context) {
	salon, ok := salonBySlug(c)
	if !ok {
		return
	}

	var input PublicBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	day, err := utils.ParseDate(input.Date)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	start, err := utils.AtClock(day, input.Time)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "time must be HH:MM")
		return
	}

	now := time.Now()
	if start.After(bookingWindowEnd(salon, now)) {
		utils.RespondWithError(c, http.StatusBadRequest, errBookingClosed.Error())
		return
	}
	if start.Before(services.LeadTimeCutoff(salon, now)) {
		utils.RespondWithError(c, http.StatusBadRequest, services.ErrLeadTime.Error())
		return
	}

	service, ok := bookableService(c, salon.ID, input.ServiceID)
	if !ok {
		return
	}

	var staff *models.Staff
	if input.StaffID != nil {
		var member models.Staff
		if err := config.DB.Where("salon_id = ? AND id = ? AND status = ? AND show_on_booking = ?",
			salon.ID, *input.StaffID, models.StaffStatusActive, true).First(&member).Error; err != nil {
			if utils.IsNotFound(err) {
				utils.RespondWithError(c, http.StatusBadRequest, "Staff member not found")
			} else {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			}
			return
		}
		if !member.CanPerform(service.ID) {
			utils.RespondWithError(c, http.StatusBadRequest, "Staff member does not perform this service")
			return
		}
		staff = &member
	} else {
		staff, err = pickStaff(salon, service, start, now)
		if err != nil {
			respondSlotError(c, err)
			return
		}
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	phone := utils.CleanPhone(input.Phone)

	duration := services.SlotDuration(service, staff)
	appt := models.Appointment{
		SalonID:          salon.ID,
		StaffID:          staff.ID,
		StartTime:        start,
		EndTime:          start.Add(duration),
		DurationMins:     service.DurationMins,
		Status:           models.AppointmentScheduled,
		Source:           models.SourceOnline,
		EstimatedTotal:   service.Price,
		ConfirmationCode: utils.GenerateConfirmationCode(),
		ClientNotes:      input.Notes,
		Services: []models.AppointmentService{{
			ServiceID:    service.ID,
			ServiceName:  service.Name,
			Price:        service.Price,
			DurationMins: service.DurationMins,
		}},
	}
	if salon.AutoConfirmAppointments {
		appt.Status = models.AppointmentConfirmed
		appt.ConfirmedAt = &now
	}
	if salon.DepositRequired && salon.DepositPercentage > 0 {
		appt.DepositAmount = models.RoundMoney(service.Price * salon.DepositPercentage / 100)
	}

	// the client is only created or updated when the slot is still free
	var client *models.Client
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := services.CheckSlot(tx, salon, staff, start, duration, now, nil, true); err != nil {
			return err
		}
		var err error
		client, err = findOrCreateOnlineClient(tx, salon.ID, &input, email, phone)
		if err != nil {
			return errSaveClient
		}
		appt.ClientID = client.ID
		return tx.Create(&appt).Error
	})
	if errors.Is(err, errSaveClient) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save client")
		return
	}
	if err != nil {
		respondSlotError(c, err)
		return
	}

	smsSent := false
	if input.SMSReminders && client.Phone != "" {
		body := fmt.Sprintf("Hi %s, your %s at %s with %s is booked for %s. Confirmation code: %s",
			client.FirstName, service.Name, salon.Name, staff.FirstName,
			start.Format("Mon Jan 2 at 3:04 PM"), appt.ConfirmationCode)
		smsSent = services.Deliver(c.Request.Context(), config.DB, bc.Notifier, services.Message{
			SalonID:       salon.ID,
			ClientID:      &client.ID,
			AppointmentID: &appt.ID,
			Type:          models.ReminderBookingConfirmation,
			To:            client.Phone,
			Body:          body,
		}) == nil
	}

	c.JSON(http.StatusCreated, gin.H{
		"appointmentId":    appt.ID,
		"confirmationCode": appt.ConfirmationCode,
		"status":           appt.Status,
		"startTime":        appt.StartTime,
		"endTime":          appt.EndTime,
		"service":          service.Name,
		"staff":            staff.FullName(),
		"estimatedTotal":   appt.EstimatedTotal,
		"depositAmount":    appt.DepositAmount,
		"smsSent":          smsSent,
	})
}

func findBooking(salonID uuid.UUID, email, code string) (*models.Appointment, error) {
	var client models.Client
	if err := config.DB.Where("salon_id = ? AND email = ?", salonID, strings.ToLower(strings.TrimSpace(email))).
		First(&client).Error; err != nil {
		return nil, err
	}

	var appt models.Appointment
	err := config.DB.Preload("Services").Preload("Staff").
		Where("salon_id = ? AND client_id = ? AND confirmation_code = ?",
			salonID, client.ID, strings.ToUpper(strings.TrimSpace(code))).
		First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func publicBookingView(salon *models.Salon, appt *models.Appointment) gin.H {
	staffName := ""
	if appt.Staff != nil {
		staffName = appt.Staff.FullName()
	}
	serviceNames := make([]string, 0, len(appt.Services))
	for _, s := range appt.Services {
		serviceNames = append(serviceNames, s.ServiceName)
	}
	return gin.H{
		"appointmentId":        appt.ID,
		"confirmationCode":     appt.ConfirmationCode,
		"status":               appt.Status,
		"startTime":            appt.StartTime,
		"endTime":              appt.EndTime,
		"services":             serviceNames,
		"staff":                staffName,
		"estimatedTotal":       appt.EstimatedTotal,
		"canCancel":            appt.CanClientModify(salon.CancellationPolicyHours, time.Now()),
		"cancellationDeadline": appt.CancellationDeadline(salon.CancellationPolicyHours),
	}
}

// LookupBooking finds a booking by email and confirmation code
func (bc *BookingController) LookupBooking(c *gin.Context) {
	salon, ok := salonBySlug(c)
	if !ok {
		return
	}
	email, code := c.Query("email"), c.Query("confirmationCode")
	if email == "" || code == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "email and confirmationCode are required")
		return
	}

	appt, err := findBooking(salon.ID, email, code)
	if err != nil {
		respondLookupError(c, err, "Booking")
		return
	}

	c.JSON(http.StatusOK, publicBookingView(salon, appt))
}

// CancelBooking lets a client cancel before the policy deadline
func (bc *BookingController) CancelBooking(c *gin.Context) {
	salon, ok := salonBySlug(c)
	if !ok {
		return
	}

	var input PublicCancelInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	appt, err := findBooking(salon.ID, input.Email, input.ConfirmationCode)
	if err != nil {
		respondLookupError(c, err, "Booking")
		return
	}

	now := time.Now()
	if !appt.CanClientModify(salon.CancellationPolicyHours, now) {
		utils.RespondWithError(c, http.StatusBadRequest, "This booking can no longer be cancelled online, please call the salon")
		return
	}
	if err := appt.Transition(models.AppointmentCancelled, now); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "This booking cannot be cancelled")
		return
	}
	appt.CancelledBy = "client"
	appt.CancellationReason = input.Reason

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(appt).Error; err != nil {
			return err
		}
		return bumpClientCounter(tx, appt.ClientID, "cancellation_count")
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to cancel booking")
		return
	}

	c.JSON(http.StatusOK, publicBookingView(salon, appt))
}

// GetPublicPortfolio shows the salon's public before/after work
func (bc *BookingController) GetPublicPortfolio(c *gin.Context) {
	salon, ok := salonBySlug(c)
	if !ok {
		return
	}
	staffID, ok := parseUUIDQuery(c, "staffId")
	if !ok {
		return
	}
	page := utils.GetPage(c, 24)

	sets, err := portfolioSets(salon.ID, staffID, page.Limit)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve portfolio")
		return
	}

	items := make([]gin.H, 0, len(sets))
	for _, set := range sets {
		items = append(items, gin.H{
			"id":                 set.ID,
			"title":              set.Title,
			"beforePhotoUrl":     set.BeforePhotoURL,
			"afterPhotoUrl":      set.AfterPhotoURL,
			"comparisonPhotoUrl": set.ComparisonPhotoURL,
			"servicesPerformed":  set.ServicesPerformed,
			"tags":               set.Tags,
			"serviceDate":        set.ServiceDate,
		})
	}

	c.JSON(http.StatusOK, items)
}
