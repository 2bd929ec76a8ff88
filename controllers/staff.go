// controllers/staff.go
package controllers

import (
	"net/http"
	"strings"

	"salonsync-backend/config"
	"salonsync-backend/models"
	"salonsync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CreateStaffInput struct {
	UserEmail         string       `json:"userEmail" binding:"omitempty,email"`
	FirstName         string       `json:"firstName" binding:"required"`
	LastName          string       `json:"lastName"`
	Email             string       `json:"email" binding:"omitempty,email"`
	Phone             string       `json:"phone" binding:"omitempty,phone"`
	Title             string       `json:"title"`
	Bio               string       `json:"bio"`
	PhotoURL          string       `json:"photoUrl"`
	Role              string       `json:"role" binding:"omitempty,oneof=owner manager senior_stylist stylist junior_stylist receptionist assistant"`
	Specialties       []string     `json:"specialties"`
	CommissionRate    float64      `json:"commissionRate" binding:"min=0,max=100"`
	DefaultSchedule   models.JSONB `json:"defaultSchedule"`
	ServiceIDs        []string     `json:"serviceIds"`
	BookingBufferMins int          `json:"bookingBufferMins" binding:"min=0,max=120"`
	ShowOnBooking     *bool        `json:"showOnBooking"`
	DisplayOrder      int          `json:"displayOrder"`
	Notes             string       `json:"notes"`
}

type UpdateStaffInput struct {
	FirstName         *string   `json:"firstName"`
	LastName          *string   `json:"lastName"`
	Email             *string   `json:"email" binding:"omitempty,email"`
	Phone             *string   `json:"phone" binding:"omitempty,phone"`
	Title             *string   `json:"title"`
	Bio               *string   `json:"bio"`
	PhotoURL          *string   `json:"photoUrl"`
	Role              *string   `json:"role" binding:"omitempty,oneof=owner manager senior_stylist stylist junior_stylist receptionist assistant"`
	Status            *string   `json:"status" binding:"omitempty,oneof=active on_leave terminated"`
	Specialties       *[]string `json:"specialties"`
	CommissionRate    *float64  `json:"commissionRate" binding:"omitempty,min=0,max=100"`
	ServiceIDs        *[]string `json:"serviceIds"`
	BookingBufferMins *int      `json:"bookingBufferMins" binding:"omitempty,min=0,max=120"`
	ShowOnBooking     *bool     `json:"showOnBooking"`
	DisplayOrder      *int      `json:"displayOrder"`
	Notes             *string   `json:"notes"`
}

type ScheduleInput struct {
	Schedule models.JSONB `json:"schedule" binding:"required"`
}

// CreateStaff adds a staff member, optionally linked to an existing user
func CreateStaff(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	var input CreateStaffInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	if input.Role == models.StaffRoleOwner && !isOwnerRole(c) {
		utils.RespondWithError(c, http.StatusForbidden, "Only owners can add other owners")
		return
	}

	serviceIDs, ok := validServiceIDs(c, salonUUID, input.ServiceIDs)
	if !ok {
		return
	}
	if err := validateSchedule(input.DefaultSchedule); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	staff := models.Staff{
		SalonID:           salonUUID,
		FirstName:         input.FirstName,
		LastName:          input.LastName,
		Email:             input.Email,
		Phone:             utils.CleanPhone(input.Phone),
		Title:             input.Title,
		Bio:               input.Bio,
		PhotoURL:          input.PhotoURL,
		Role:              input.Role,
		Status:            models.StaffStatusActive,
		Specialties:       models.StringList(input.Specialties),
		CommissionRate:    input.CommissionRate,
		DefaultSchedule:   input.DefaultSchedule,
		ServiceIDs:        serviceIDs,
		BookingBufferMins: input.BookingBufferMins,
		ShowOnBooking:     true,
		DisplayOrder:      input.DisplayOrder,
		Notes:             input.Notes,
	}
	if staff.Role == "" {
		staff.Role = models.StaffRoleStylist
	}
	if input.ShowOnBooking != nil {
		staff.ShowOnBooking = *input.ShowOnBooking
	}

	// Link to a user account when an email is given
	if input.UserEmail != "" {
		var user models.User
		if err := config.DB.Where("email = ?", strings.ToLower(input.UserEmail)).First(&user).Error; err != nil {
			if utils.IsNotFound(err) {
				utils.RespondWithError(c, http.StatusBadRequest, "No user found with that email")
			} else {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			}
			return
		}

		var count int64
		config.DB.Model(&models.Staff{}).Where("salon_id = ? AND user_id = ?", salonUUID, user.ID).Count(&count)
		if count > 0 {
			utils.RespondWithError(c, http.StatusConflict, "This user already has a staff profile at this salon")
			return
		}

		staff.UserID = &user.ID
		if staff.Email == "" {
			staff.Email = user.Email
		}
		if user.Role == models.RoleClient {
			config.DB.Model(&user).Update("role", models.RoleStaff)
		}
	}

	if err := config.DB.Create(&staff).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			utils.RespondWithError(c, http.StatusConflict, "This user already has a staff profile at this salon")
			return
		}
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create staff member")
		return
	}

	c.JSON(http.StatusCreated, staff)
}

// GetStaffList lists staff, active only unless a status is given
func GetStaffList(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	page := utils.GetPage(c, 50)

	query := config.DB.Model(&models.Staff{}).Where("salon_id = ?", salonUUID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	} else {
		query = query.Where("status <> ?", models.StaffStatusTerminated)
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count staff")
		return
	}

	var staff []models.Staff
	if err := query.Order("display_order, first_name").Offset(page.Skip).Limit(page.Limit).Find(&staff).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve staff")
		return
	}

	c.JSON(http.StatusOK, utils.Paginated(staff, total, page))
}

func GetStaff(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	staffUUID, ok := parseIDParam(c, "id", "staff")
	if !ok {
		return
	}

	var staff models.Staff
	if !findInSalon(c, &staff, salonUUID, staffUUID, "Staff member") {
		return
	}

	c.JSON(http.StatusOK, staff)
}

func UpdateStaff(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	staffUUID, ok := parseIDParam(c, "id", "staff")
	if !ok {
		return
	}

	var input UpdateStaffInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	var staff models.Staff
	if !findInSalon(c, &staff, salonUUID, staffUUID, "Staff member") {
		return
	}

	if input.Role != nil && (*input.Role == models.StaffRoleOwner || staff.Role == models.StaffRoleOwner) && !isOwnerRole(c) {
		utils.RespondWithError(c, http.StatusForbidden, "Only owners can change owner roles")
		return
	}

	if input.FirstName != nil {
		staff.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		staff.LastName = *input.LastName
	}
	if input.Email != nil {
		staff.Email = *input.Email
	}
	if input.Phone != nil {
		staff.Phone = utils.CleanPhone(*input.Phone)
	}
	if input.Title != nil {
		staff.Title = *input.Title
	}
	if input.Bio != nil {
		staff.Bio = *input.Bio
	}
	if input.PhotoURL != nil {
		staff.PhotoURL = *input.PhotoURL
	}
	if input.Role != nil {
		staff.Role = *input.Role
	}
	if input.Status != nil {
		staff.Status = *input.Status
	}
	if input.Specialties != nil {
		staff.Specialties = models.StringList(append([]string{}, (*input.Specialties)...))
	}
	if input.CommissionRate != nil {
		staff.CommissionRate = *input.CommissionRate
	}
	if input.ServiceIDs != nil {
		ids, ok := validServiceIDs(c, salonUUID, *input.ServiceIDs)
		if !ok {
			return
		}
		staff.ServiceIDs = ids
	}
	if input.BookingBufferMins != nil {
		staff.BookingBufferMins = *input.BookingBufferMins
	}
	if input.ShowOnBooking != nil {
		staff.ShowOnBooking = *input.ShowOnBooking
	}
	if input.DisplayOrder != nil {
		staff.DisplayOrder = *input.DisplayOrder
	}
	if input.Notes != nil {
		staff.Notes = *input.Notes
	}

	if err := config.DB.Save(&staff).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update staff member")
		return
	}

	c.JSON(http.StatusOK, staff)
}

// DeleteStaff terminates the staff member; history stays intact
func DeleteStaff(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	staffUUID, ok := parseIDParam(c, "id", "staff")
	if !ok {
		return
	}

	var staff models.Staff
	if !findInSalon(c, &staff, salonUUID, staffUUID, "Staff member") {
		return
	}
	if staff.Role == models.StaffRoleOwner {
		utils.RespondWithError(c, http.StatusBadRequest, "The salon owner cannot be removed")
		return
	}

	if err := config.DB.Model(&staff).Update("status", models.StaffStatusTerminated).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete staff member")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Staff member deleted successfully"})
}

func GetStaffSchedule(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	staffUUID, ok := parseIDParam(c, "id", "staff")
	if !ok {
		return
	}

	var staff models.Staff
	if !findInSalon(c, &staff, salonUUID, staffUUID, "Staff member") {
		return
	}

	c.JSON(http.StatusOK, gin.H{"staffId": staff.ID, "schedule": staff.DefaultSchedule})
}

func UpdateStaffSchedule(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	staffUUID, ok := parseIDParam(c, "id", "staff")
	if !ok {
		return
	}

	var input ScheduleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}
	if err := validateSchedule(input.Schedule); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	var staff models.Staff
	if !findInSalon(c, &staff, salonUUID, staffUUID, "Staff member") {
		return
	}

	if err := config.DB.Model(&staff).Update("default_schedule", input.Schedule).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update schedule")
		return
	}
	staff.DefaultSchedule = input.Schedule

	c.JSON(http.StatusOK, gin.H{"staffId": staff.ID, "schedule": staff.DefaultSchedule})
}

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

type scheduleError string

func (e scheduleError) Error() string { return string(e) }

// validateSchedule checks a {weekday: {working, start, end}} schedule
func validateSchedule(schedule models.JSONB) error {
	for day, value := range schedule {
		if !weekdays[day] {
			return scheduleError("Invalid weekday in schedule: " + day)
		}
		entry, ok := value.(map[string]interface{})
		if !ok {
			return scheduleError("Invalid schedule entry for " + day)
		}
		if working, ok := entry["working"].(bool); ok && !working {
			continue
		}
		start, _ := entry["start"].(string)
		end, _ := entry["end"].(string)
		sh, sm, err := utils.ParseClock(start)
		if err != nil {
			return scheduleError("Invalid start time for " + day)
		}
		eh, em, err := utils.ParseClock(end)
		if err != nil {
			return scheduleError("Invalid end time for " + day)
		}
		if eh*60+em <= sh*60+sm {
			return scheduleError("End time must be after start time for " + day)
		}
	}
	return nil
}

// validServiceIDs checks that every id is a service of the salon and returns
// them as a new list
func validServiceIDs(c *gin.Context, salonID uuid.UUID, ids []string) (models.StringList, bool) {
	out := make(models.StringList, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid service ID format")
			return nil, false
		}
		found, err := existsInSalon(&models.Service{}, salonID, id)
		if err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return nil, false
		}
		if !found {
			utils.RespondWithError(c, http.StatusBadRequest, "Service not found: "+raw)
			return nil, false
		}
		if !out.Contains(id.String()) {
			out = append(out, id.String())
		}
	}
	return out, true
}
