// controllers/appointment.go
package controllers

import (
	"errors"
	"net/http"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/middleware"
	"salonsync-backend/models"
	"salonsync-backend/services"
	"salonsync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AppointmentServiceInput struct {
	ServiceID    uuid.UUID `json:"serviceId" binding:"required"`
	Price        *float64  `json:"price" binding:"omitempty,min=0"`
	DurationMins *int      `json:"durationMins" binding:"omitempty,min=5"`
}

// CreateAppointmentInput takes the salon from the URL
type CreateAppointmentInput struct {
	ClientID      uuid.UUID                 `json:"clientId" binding:"required"`
	StaffID       uuid.UUID                 `json:"staffId" binding:"required"`
	StartTime     time.Time                 `json:"startTime" binding:"required"`
	Services      []AppointmentServiceInput `json:"services" binding:"required,min=1,dive"`
	ClientNotes   string                    `json:"clientNotes"`
	StaffNotes    string                    `json:"staffNotes"`
	Source        string                    `json:"source" binding:"omitempty,oneof=staff online phone walk_in"`
	DepositAmount float64                   `json:"depositAmount" binding:"min=0"`
}

type UpdateAppointmentInput struct {
	ClientNotes   *string  `json:"clientNotes"`
	StaffNotes    *string  `json:"staffNotes"`
	DepositAmount *float64 `json:"depositAmount" binding:"omitempty,min=0"`
}

type CompleteAppointmentInput struct {
	FinalTotal *float64 `json:"finalTotal" binding:"omitempty,min=0"`
	StaffNotes *string  `json:"staffNotes"`
}

type CancelAppointmentInput struct {
	Reason string `json:"reason"`
}

type RescheduleInput struct {
	StartTime time.Time  `json:"startTime" binding:"required"`
	StaffID   *uuid.UUID `json:"staffId"`
}

// appointmentPlan is the priced and timed list of service lines
type appointmentPlan struct {
	lines         []models.AppointmentService
	durationMins  int
	blockingMins  int
	estimatedCost float64
}

// planServices loads the requested services, checks the staff member
// performs them and totals duration and price.
func planServices(db *gorm.DB, salonID uuid.UUID, staff *models.Staff, inputs []AppointmentServiceInput) (*appointmentPlan, error) {
	plan := &appointmentPlan{}
	for i, in := range inputs {
		var service models.Service
		if err := db.Where("salon_id = ? AND id = ? AND is_active = ?", salonID, in.ServiceID, true).
			First(&service).Error; err != nil {
			if utils.IsNotFound(err) {
				return nil, errServiceNotFound
			}
			return nil, err
		}
		if !staff.CanPerform(service.ID) {
			return nil, errStaffCannotPerform
		}

		line := models.AppointmentService{
			ServiceID:    service.ID,
			ServiceName:  service.Name,
			Price:        service.Price,
			DurationMins: service.DurationMins,
			Sequence:     i,
		}
		if in.Price != nil {
			line.Price = *in.Price
		}
		if in.DurationMins != nil {
			line.DurationMins = *in.DurationMins
		}

		plan.lines = append(plan.lines, line)
		plan.durationMins += line.DurationMins
		plan.blockingMins += line.DurationMins + service.BufferBeforeMins + service.BufferAfterMins
		plan.estimatedCost += line.Price
	}
	plan.blockingMins += staff.BookingBufferMins
	plan.estimatedCost = models.RoundMoney(plan.estimatedCost)
	return plan, nil
}

var (
	errServiceNotFound    = errors.New("service not found")
	errStaffCannotPerform = errors.New("staff member does not perform this service")
)

func loadAppointment(db *gorm.DB, salonID, id uuid.UUID) (*models.Appointment, error) {
	var appt models.Appointment
	err := db.Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("sequence") }).
		Preload("Client").Preload("Staff").
		Where("salon_id = ? AND id = ?", salonID, id).First(&appt).Error
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// CreateAppointment books services with a staff member for a client
func CreateAppointment(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}
	userUUID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	var input CreateAppointmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	// Validate client and staff exist in the same salon
	var client models.Client
	if err := config.DB.Where("salon_id = ? AND id = ? AND is_active = ?", salon.ID, input.ClientID, true).
		First(&client).Error; err != nil {
		if utils.IsNotFound(err) {
			utils.RespondWithError(c, http.StatusBadRequest, "Client not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}
	var staff models.Staff
	if err := config.DB.Where("salon_id = ? AND id = ? AND status = ?", salon.ID, input.StaffID, models.StaffStatusActive).
		First(&staff).Error; err != nil {
		if utils.IsNotFound(err) {
			utils.RespondWithError(c, http.StatusBadRequest, "Staff member not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	plan, err := planServices(config.DB, salon.ID, &staff, input.Services)
	if err != nil {
		respondPlanError(c, err)
		return
	}

	now := time.Now()
	start := input.StartTime
	if err := services.CheckSlot(config.DB, salon, &staff, start, time.Duration(plan.blockingMins)*time.Minute, now, nil, false); err != nil {
		respondSlotError(c, err)
		return
	}

	appt := models.Appointment{
		SalonID:          salon.ID,
		ClientID:         client.ID,
		StaffID:          staff.ID,
		StartTime:        start,
		EndTime:          start.Add(time.Duration(plan.blockingMins) * time.Minute),
		DurationMins:     plan.durationMins,
		Status:           models.AppointmentScheduled,
		Source:           input.Source,
		EstimatedTotal:   plan.estimatedCost,
		DepositAmount:    input.DepositAmount,
		ConfirmationCode: utils.GenerateConfirmationCode(),
		ClientNotes:      input.ClientNotes,
		StaffNotes:       input.StaffNotes,
		CreatedByID:      &userUUID,
		Services:         plan.lines,
	}
	if appt.Source == "" {
		appt.Source = models.SourceStaff
	}
	if salon.AutoConfirmAppointments {
		appt.Status = models.AppointmentConfirmed
		appt.ConfirmedAt = &now
	}

	if err := config.DB.Create(&appt).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create appointment")
		return
	}

	created, err := loadAppointment(config.DB, salon.ID, appt.ID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func respondPlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errServiceNotFound):
		utils.RespondWithError(c, http.StatusBadRequest, "Service not found")
	case errors.Is(err, errStaffCannotPerform):
		utils.RespondWithError(c, http.StatusBadRequest, "Staff member does not perform this service")
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
	}
}

func respondSlotError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSlotUnavailable):
		utils.RespondWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrLeadTime), errors.Is(err, services.ErrOutsideHours):
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to check availability")
	}
}

// GetAppointments lists appointments with date, staff, client and status filters
func GetAppointments(c *gin.Context) {
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
	clientID, ok := parseUUIDQuery(c, "clientId")
	if !ok {
		return
	}

	query := config.DB.Model(&models.Appointment{}).Where("salon_id = ?", salonUUID)
	if startDate != nil {
		query = query.Where("start_time >= ?", utils.BeginningOfDay(*startDate))
	}
	if endDate != nil {
		query = query.Where("start_time <= ?", utils.EndOfDay(*endDate))
	}
	if staffID != nil {
		query = query.Where("staff_id = ?", *staffID)
	}
	if clientID != nil {
		query = query.Where("client_id = ?", *clientID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count appointments")
		return
	}

	var appointments []models.Appointment
	if err := query.Preload("Services").Preload("Client").Preload("Staff").
		Order("start_time").Offset(page.Skip).Limit(page.Limit).Find(&appointments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}

	c.JSON(http.StatusOK, utils.Paginated(appointments, total, page))
}

// GetTodayAppointments returns today's schedule, optionally for one staff member
func GetTodayAppointments(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	staffID, ok := parseUUIDQuery(c, "staffId")
	if !ok {
		return
	}

	now := time.Now()
	query := config.DB.Preload("Services").Preload("Client").Preload("Staff").
		Where("salon_id = ? AND start_time >= ? AND start_time <= ?", salonUUID, utils.BeginningOfDay(now), utils.EndOfDay(now))
	if staffID != nil {
		query = query.Where("staff_id = ?", *staffID)
	}

	var appointments []models.Appointment
	if err := query.Order("start_time").Find(&appointments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": now.Format(utils.DateLayout), "appointments": appointments})
}

type StaffAvailability struct {
	StaffID   uuid.UUID `json:"staffId"`
	StaffName string    `json:"staffName"`
	Slots     []Slot    `json:"slots"`
}

type Slot struct {
	Time  string    `json:"time"`
	Start time.Time `json:"start"`
}

func toSlots(times []time.Time) []Slot {
	out := make([]Slot, len(times))
	for i, t := range times {
		out[i] = Slot{Time: t.Format("15:04"), Start: t}
	}
	return out
}

// staffAvailability computes slots on day for the staff members who can
// perform service
func staffAvailability(salon *models.Salon, service *models.Service, staffID *uuid.UUID, day, now time.Time, bookableOnly bool) ([]StaffAvailability, error) {
	query := config.DB.Where("salon_id = ? AND status = ?", salon.ID, models.StaffStatusActive)
	if staffID != nil {
		query = query.Where("id = ?", *staffID)
	}
	if bookableOnly {
		query = query.Where("show_on_booking = ?", true)
	}

	var staff []models.Staff
	if err := query.Order("display_order, first_name").Find(&staff).Error; err != nil {
		return nil, err
	}

	result := []StaffAvailability{}
	for i := range staff {
		member := &staff[i]
		if !member.CanPerform(service.ID) {
			continue
		}
		slots, err := services.AvailableSlots(config.DB, salon, member, service, day, now)
		if err != nil {
			return nil, err
		}
		result = append(result, StaffAvailability{
			StaffID:   member.ID,
			StaffName: member.FullName(),
			Slots:     toSlots(slots),
		})
	}
	return result, nil
}

// GetAvailability lists free slots for a service on a date
func GetAvailability(c *gin.Context) {
	salon, ok := salonFromContext(c)
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
	day, ok := parseDateQuery(c, "date")
	if !ok {
		return
	}
	if day == nil {
		today := utils.BeginningOfDay(time.Now())
		day = &today
	}

	var service models.Service
	if !findInSalon(c, &service, salon.ID, *serviceID, "Service") {
		return
	}

	availability, err := staffAvailability(salon, &service, staffID, *day, time.Now(), false)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to compute availability")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":         day.Format(utils.DateLayout),
		"serviceId":    service.ID,
		"durationMins": service.TotalDuration(),
		"staff":        availability,
	})
}

func GetAppointment(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	apptUUID, ok := parseIDParam(c, "id", "appointment")
	if !ok {
		return
	}

	appt, err := loadAppointment(config.DB, salonUUID, apptUUID)
	if err != nil {
		respondLookupError(c, err, "Appointment")
		return
	}

	c.JSON(http.StatusOK, appt)
}

func respondLookupError(c *gin.Context, err error, label string) {
	if utils.IsNotFound(err) {
		utils.RespondWithError(c, http.StatusNotFound, label+" not found")
		return
	}
	utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
}

func UpdateAppointment(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	apptUUID, ok := parseIDParam(c, "id", "appointment")
	if !ok {
		return
	}

	var input UpdateAppointmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	appt, err := loadAppointment(config.DB, salonUUID, apptUUID)
	if err != nil {
		respondLookupError(c, err, "Appointment")
		return
	}

	updates := map[string]interface{}{}
	if input.ClientNotes != nil {
		updates["client_notes"] = *input.ClientNotes
		appt.ClientNotes = *input.ClientNotes
	}
	if input.StaffNotes != nil {
		updates["staff_notes"] = *input.StaffNotes
		appt.StaffNotes = *input.StaffNotes
	}
	if input.DepositAmount != nil {
		updates["deposit_amount"] = *input.DepositAmount
		appt.DepositAmount = *input.DepositAmount
	}

	if len(updates) > 0 {
		if err := config.DB.Model(&models.Appointment{}).Where("id = ?", appt.ID).Updates(updates).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update appointment")
			return
		}
	}

	c.JSON(http.StatusOK, appt)
}

// transitionAppointment moves an appointment to status, running after in
// the same transaction
func transitionAppointment(c *gin.Context, status string, after func(tx *gorm.DB, appt *models.Appointment) error) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	apptUUID, ok := parseIDParam(c, "id", "appointment")
	if !ok {
		return
	}

	appt, err := loadAppointment(config.DB, salonUUID, apptUUID)
	if err != nil {
		respondLookupError(c, err, "Appointment")
		return
	}

	if err := appt.Transition(status, time.Now()); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Cannot change appointment from "+appt.Status+" to "+status)
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(appt).Error; err != nil {
			return err
		}
		if after != nil {
			return after(tx, appt)
		}
		return nil
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update appointment")
		return
	}

	c.JSON(http.StatusOK, appt)
}

func ConfirmAppointment(c *gin.Context) {
	transitionAppointment(c, models.AppointmentConfirmed, nil)
}

func CheckInAppointment(c *gin.Context) {
	transitionAppointment(c, models.AppointmentCheckedIn, nil)
}

func StartAppointment(c *gin.Context) {
	transitionAppointment(c, models.AppointmentInProgress, nil)
}

// CompleteAppointment closes the appointment and counts the client's visit
func CompleteAppointment(c *gin.Context) {
	var input CompleteAppointmentInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithBindError(c, err)
			return
		}
	}

	transitionAppointment(c, models.AppointmentCompleted, func(tx *gorm.DB, appt *models.Appointment) error {
		updates := map[string]interface{}{}
		if input.FinalTotal != nil {
			total := models.RoundMoney(*input.FinalTotal)
			appt.FinalTotal = &total
			updates["final_total"] = total
		} else {
			total := appt.EstimatedTotal
			appt.FinalTotal = &total
			updates["final_total"] = total
		}
		if input.StaffNotes != nil {
			appt.StaffNotes = *input.StaffNotes
			updates["staff_notes"] = *input.StaffNotes
		}
		if err := tx.Model(&models.Appointment{}).Where("id = ?", appt.ID).Updates(updates).Error; err != nil {
			return err
		}
		return recordClientVisit(tx, appt.ClientID, 0, true, *appt.CompletedAt)
	})
}

func CancelAppointment(c *gin.Context) {
	var input CancelAppointmentInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithBindError(c, err)
			return
		}
	}

	user, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}
	cancelledBy := user.FullName()

	transitionAppointment(c, models.AppointmentCancelled, func(tx *gorm.DB, appt *models.Appointment) error {
		appt.CancelledBy = cancelledBy
		appt.CancellationReason = input.Reason
		if err := tx.Model(&models.Appointment{}).Where("id = ?", appt.ID).Updates(map[string]interface{}{
			"cancelled_by":        appt.CancelledBy,
			"cancellation_reason": appt.CancellationReason,
		}).Error; err != nil {
			return err
		}
		return bumpClientCounter(tx, appt.ClientID, "cancellation_count")
	})
}

func NoShowAppointment(c *gin.Context) {
	transitionAppointment(c, models.AppointmentNoShow, func(tx *gorm.DB, appt *models.Appointment) error {
		return bumpClientCounter(tx, appt.ClientID, "no_show_count")
	})
}

// RescheduleAppointment moves an open appointment to a new time and
// optionally a new staff member
func RescheduleAppointment(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}
	apptUUID, ok := parseIDParam(c, "id", "appointment")
	if !ok {
		return
	}

	var input RescheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	appt, err := loadAppointment(config.DB, salon.ID, apptUUID)
	if err != nil {
		respondLookupError(c, err, "Appointment")
		return
	}
	if appt.Status != models.AppointmentScheduled && appt.Status != models.AppointmentConfirmed {
		utils.RespondWithError(c, http.StatusBadRequest, "Only scheduled or confirmed appointments can be rescheduled")
		return
	}

	staffID := appt.StaffID
	if input.StaffID != nil {
		staffID = *input.StaffID
	}
	var staff models.Staff
	if err := config.DB.Where("salon_id = ? AND id = ? AND status = ?", salon.ID, staffID, models.StaffStatusActive).
		First(&staff).Error; err != nil {
		if utils.IsNotFound(err) {
			utils.RespondWithError(c, http.StatusBadRequest, "Staff member not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}
	for _, line := range appt.Services {
		if !staff.CanPerform(line.ServiceID) {
			utils.RespondWithError(c, http.StatusBadRequest, "Staff member does not perform this service")
			return
		}
	}

	length := appt.EndTime.Sub(appt.StartTime)
	if err := services.CheckSlot(config.DB, salon, &staff, input.StartTime, length, time.Now(), &appt.ID, false); err != nil {
		respondSlotError(c, err)
		return
	}

	appt.StaffID = staff.ID
	appt.StartTime = input.StartTime
	appt.EndTime = input.StartTime.Add(length)
	appt.ReminderSentAt = nil
	if err := config.DB.Model(&models.Appointment{}).Where("id = ?", appt.ID).Updates(map[string]interface{}{
		"staff_id":         appt.StaffID,
		"start_time":       appt.StartTime,
		"end_time":         appt.EndTime,
		"reminder_sent_at": nil,
	}).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to reschedule appointment")
		return
	}

	updated, err := loadAppointment(config.DB, salon.ID, appt.ID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	c.JSON(http.StatusOK, updated)
}
