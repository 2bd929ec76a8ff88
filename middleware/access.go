package middleware

import (
	"net/http"

	"salonsync-backend/config"
	"salonsync-backend/models"
	"salonsync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccessLevel is the minimum salon role a route requires
type AccessLevel int

const (
	AccessStaff AccessLevel = iota
	AccessManager
	AccessOwner
)

// Context keys set by SalonAccess
const (
	SalonKey     = "salon"
	SalonIDKey   = "salonId"
	StaffRoleKey = "staffRole"
	UserKey      = "user"
)

// CurrentUser loads the authenticated user and caches it on the context
func CurrentUser(c *gin.Context) (*models.User, bool) {
	if cached, ok := c.Get(UserKey); ok {
		if user, ok := cached.(*models.User); ok {
			return user, true
		}
	}

	userID := c.GetString("userId")
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid user in token")
		return nil, false
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", userUUID).Error; err != nil {
		if utils.IsNotFound(err) {
			utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	if !user.IsActive {
		utils.RespondWithError(c, http.StatusForbidden, "Account is inactive")
		return nil, false
	}

	c.Set(UserKey, &user)
	return &user, true
}

// SalonAccess resolves :salonId and checks the caller's membership
func SalonAccess(level AccessLevel) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			return
		}

		salonUUID, err := uuid.Parse(c.Param("salonId"))
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid salon ID format")
			return
		}

		var salon models.Salon
		if err := config.DB.Where("id = ? AND is_active = ?", salonUUID, true).First(&salon).Error; err != nil {
			if utils.IsNotFound(err) {
				utils.RespondWithError(c, http.StatusNotFound, "Salon not found")
			} else {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			}
			return
		}

		role := models.StaffRoleOwner
		if !user.IsSuperuser {
			var staff models.Staff
			err := config.DB.Where("salon_id = ? AND user_id = ? AND status <> ?",
				salon.ID, user.ID, models.StaffStatusTerminated).First(&staff).Error
			if err != nil {
				if utils.IsNotFound(err) {
					utils.RespondWithError(c, http.StatusForbidden, "You do not have access to this salon")
				} else {
					utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
				}
				return
			}
			role = staff.Role
			if !allowed(level, &staff, &salon, user) {
				utils.RespondWithError(c, http.StatusForbidden, "Insufficient permissions for this salon")
				return
			}
		}

		c.Set(SalonKey, &salon)
		c.Set(SalonIDKey, salon.ID.String())
		c.Set(StaffRoleKey, role)
		c.Next()
	}
}

func allowed(level AccessLevel, staff *models.Staff, salon *models.Salon, user *models.User) bool {
	switch level {
	case AccessOwner:
		return staff.Role == models.StaffRoleOwner || salon.OwnerID == user.ID
	case AccessManager:
		return staff.IsManager() || salon.OwnerID == user.ID
	default:
		return true
	}
}

// Superuser lets only platform admins through
func Superuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			return
		}
		if !user.IsSuperuser {
			utils.RespondWithError(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}
