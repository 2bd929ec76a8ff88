package controllers

import (
	"net/http"
	"strings"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/middleware"
	"salonsync-backend/models"
	"salonsync-backend/utils"

	"github.com/gin-gonic/gin"
)

type RegisterInput struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone" binding:"omitempty,phone"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

// Register creates a client account and returns a token for it
func Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	var count int64
	if err := config.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if count > 0 {
		utils.RespondWithError(c, http.StatusConflict, "Email already registered")
		return
	}

	user := models.User{
		Email:     email,
		Password:  input.Password, // Will be hashed in BeforeCreate hook
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     utils.CleanPhone(input.Phone),
		Role:      models.RoleClient,
		IsActive:  true,
	}

	if err := config.DB.Create(&user).Error; err != nil {
		if utils.IsUniqueViolation(err) {
			utils.RespondWithError(c, http.StatusConflict, "Email already registered")
			return
		}
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	token, err := utils.GenerateToken(user.ID.String(), user.Role)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":     token,
		"tokenType": "bearer",
		"expiresIn": int(utils.TokenExpiry().Seconds()),
		"user":      user,
	})
}

// Login checks credentials, locking the account after repeated failures
func Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	var user models.User
	if err := config.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error; err != nil {
		if utils.IsNotFound(err) {
			utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	now := time.Now()
	if user.IsLocked(now) {
		utils.RespondWithError(c, http.StatusLocked, "Account is locked due to too many failed login attempts, try again later")
		return
	}

	if !utils.CheckPasswordHash(input.Password, user.Password) {
		user.RegisterFailedLogin(now)
		config.DB.Model(&user).Updates(map[string]interface{}{
			"failed_login_attempts": user.FailedLoginAttempts,
			"locked_until":          user.LockedUntil,
		})
		if user.IsLocked(now) {
			utils.RespondWithError(c, http.StatusLocked, "Account is locked due to too many failed login attempts, try again later")
			return
		}
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !user.IsActive {
		utils.RespondWithError(c, http.StatusForbidden, "Account is inactive")
		return
	}

	// Reset lockout state and update last login
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLogin = &now
	config.DB.Model(&user).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login":            &now,
	})

	token, err := utils.GenerateToken(user.ID.String(), user.Role)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"tokenType": "bearer",
		"expiresIn": int(utils.TokenExpiry().Seconds()),
		"user":      user,
	})
}

// Me returns the authenticated user and their salon memberships
func Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}

	var memberships []models.Staff
	if err := config.DB.Where("user_id = ? AND status <> ?", user.ID, models.StaffStatusTerminated).
		Find(&memberships).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	salons := make([]gin.H, 0, len(memberships))
	for _, m := range memberships {
		salons = append(salons, gin.H{"salonId": m.SalonID, "staffId": m.ID, "role": m.Role})
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "salons": salons})
}

// Logout is stateless; the client discards its token
func Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return
	}

	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	if !utils.CheckPasswordHash(input.CurrentPassword, user.Password) {
		utils.RespondWithError(c, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	hashed, err := utils.HashPassword(input.NewPassword)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	if err := config.DB.Model(user).Update("password", hashed).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}
