// controllers/helpers.go
package controllers

import (
	"net/http"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/middleware"
	"salonsync-backend/models"
	"salonsync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// salonFromContext returns the salon resolved by middleware.SalonAccess
func salonFromContext(c *gin.Context) (*models.Salon, bool) {
	value, exists := c.Get(middleware.SalonKey)
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "Salon not found in context")
		return nil, false
	}
	salon, ok := value.(*models.Salon)
	if !ok {
		utils.RespondWithError(c, http.StatusInternalServerError, "Invalid salon in context")
		return nil, false
	}
	return salon, true
}

// salonIDFromContext returns the tenant id taken from the URL
func salonIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	salonID, exists := c.Get(middleware.SalonIDKey)
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "Salon ID not found in context")
		return uuid.Nil, false
	}
	salonUUID, err := uuid.Parse(salonID.(string))
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Invalid salon ID format")
		return uuid.Nil, false
	}
	return salonUUID, true
}

func userIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	userUUID, err := uuid.Parse(c.GetString("userId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return uuid.Nil, false
	}
	return userUUID, true
}

// parseIDParam parses a uuid path parameter, answering 400 when malformed
func parseIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+label+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

// findInSalon loads a salon-scoped record by id, answering 404 or 500
func findInSalon(c *gin.Context, dest interface{}, salonID, id uuid.UUID, label string) bool {
	if err := config.DB.Where("salon_id = ? AND id = ?", salonID, id).First(dest).Error; err != nil {
		if utils.IsNotFound(err) {
			utils.RespondWithError(c, http.StatusNotFound, label+" not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return false
	}
	return true
}

// existsInSalon reports whether a record with id belongs to the salon
func existsInSalon(model interface{}, salonID, id uuid.UUID) (bool, error) {
	var count int64
	err := config.DB.Model(model).Where("salon_id = ? AND id = ?", salonID, id).Count(&count).Error
	return count > 0, err
}

// parseDateQuery parses an optional YYYY-MM-DD query parameter
func parseDateQuery(c *gin.Context, key string) (*time.Time, bool) {
	v := c.Query(key)
	if v == "" {
		return nil, true
	}
	t, err := utils.ParseDate(v)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+key+", expected YYYY-MM-DD")
		return nil, false
	}
	return &t, true
}

// parseUUIDQuery parses an optional uuid query parameter
func parseUUIDQuery(c *gin.Context, key string) (*uuid.UUID, bool) {
	v := c.Query(key)
	if v == "" {
		return nil, true
	}
	id, err := uuid.Parse(v)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+key+" format")
		return nil, false
	}
	return &id, true
}

func isManagerRole(c *gin.Context) bool {
	role := c.GetString(middleware.StaffRoleKey)
	return role == models.StaffRoleOwner || role == models.StaffRoleManager
}

func isOwnerRole(c *gin.Context) bool {
	return c.GetString(middleware.StaffRoleKey) == models.StaffRoleOwner
}
