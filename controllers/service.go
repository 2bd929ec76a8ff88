// controllers/service.go
package controllers

import (
	"net/http"
	"strings"

	"salonsync-backend/config"
	"salonsync-backend/models"
	"salonsync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateServiceInput defines the expected JSON structure for creating a service
type CreateServiceInput struct {
	Name                 string   `json:"name" binding:"required,max=100"`
	Description          string   `json:"description"`
	Category             string   `json:"category"`
	Price                float64  `json:"price" binding:"min=0"`
	PriceMin             *float64 `json:"priceMin" binding:"omitempty,min=0"`
	PriceMax             *float64 `json:"priceMax" binding:"omitempty,min=0"`
	IsPriceVariable      bool     `json:"isPriceVariable"`
	DurationMins         int      `json:"durationMins" binding:"required,min=5,max=720"`
	BufferBeforeMins     int      `json:"bufferBeforeMins" binding:"min=0,max=120"`
	BufferAfterMins      int      `json:"bufferAfterMins" binding:"min=0,max=120"`
	ProcessingTimeMins   int      `json:"processingTimeMins" binding:"min=0"`
	IsOnlineBookable     *bool    `json:"isOnlineBookable"`
	IsAddon              bool     `json:"isAddon"`
	RequiresConsultation bool     `json:"requiresConsultation"`
	DisplayOrder         int      `json:"displayOrder"`
	Color                string   `json:"color"`
	ImageURL             string   `json:"imageUrl"`
	Tags                 []string `json:"tags"`
}

// UpdateServiceInput defines the expected JSON structure for updating a service
type UpdateServiceInput struct {
	Name                 *string   `json:"name" binding:"omitempty,max=100"`
	Description          *string   `json:"description"`
	Category             *string   `json:"category"`
	Price                *float64  `json:"price" binding:"omitempty,min=0"`
	PriceMin             *float64  `json:"priceMin" binding:"omitempty,min=0"`
	PriceMax             *float64  `json:"priceMax" binding:"omitempty,min=0"`
	IsPriceVariable      *bool     `json:"isPriceVariable"`
	DurationMins         *int      `json:"durationMins" binding:"omitempty,min=5,max=720"`
	BufferBeforeMins     *int      `json:"bufferBeforeMins" binding:"omitempty,min=0,max=120"`
	BufferAfterMins      *int      `json:"bufferAfterMins" binding:"omitempty,min=0,max=120"`
	ProcessingTimeMins   *int      `json:"processingTimeMins" binding:"omitempty,min=0"`
	IsActive             *bool     `json:"isActive"`
	IsOnlineBookable     *bool     `json:"isOnlineBookable"`
	IsAddon              *bool     `json:"isAddon"`
	RequiresConsultation *bool     `json:"requiresConsultation"`
	DisplayOrder         *int      `json:"displayOrder"`
	Color                *string   `json:"color"`
	ImageURL             *string   `json:"imageUrl"`
	Tags                 *[]string `json:"tags"`
}

type ReorderItem struct {
	ID           uuid.UUID `json:"id" binding:"required"`
	DisplayOrder int       `json:"displayOrder"`
}

type ServiceView struct {
	models.Service
	TotalDurationMins int `json:"totalDurationMins"`
}

func viewService(s models.Service) ServiceView {
	return ServiceView{Service: s, TotalDurationMins: s.TotalDuration()}
}

func viewServices(services []models.Service) []ServiceView {
	out := make([]ServiceView, len(services))
	for i, s := range services {
		out[i] = viewService(s)
	}
	return out
}

// CreateService creates a new service for the salon
func CreateService(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	var input CreateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	category := input.Category
	if category == "" {
		category = "Other"
	}
	if !models.IsValidServiceCategory(category) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid service category")
		return
	}
	if input.PriceMin != nil && input.PriceMax != nil && *input.PriceMin > *input.PriceMax {
		utils.RespondWithError(c, http.StatusBadRequest, "Minimum price cannot exceed maximum price")
		return
	}

	service := models.Service{
		SalonID:              salonUUID,
		Name:                 strings.TrimSpace(input.Name),
		Description:          input.Description,
		Category:             category,
		Price:                input.Price,
		PriceMin:             input.PriceMin,
		PriceMax:             input.PriceMax,
		IsPriceVariable:      input.IsPriceVariable,
		DurationMins:         input.DurationMins,
		BufferBeforeMins:     input.BufferBeforeMins,
		BufferAfterMins:      input.BufferAfterMins,
		ProcessingTimeMins:   input.ProcessingTimeMins,
		IsActive:             true,
		IsOnlineBookable:     true,
		IsAddon:              input.IsAddon,
		RequiresConsultation: input.RequiresConsultation,
		DisplayOrder:         input.DisplayOrder,
		Color:                input.Color,
		ImageURL:             input.ImageURL,
		Tags:                 models.NewStringList(input.Tags...),
	}
	if input.IsOnlineBookable != nil {
		service.IsOnlineBookable = *input.IsOnlineBookable
	}

	if err := config.DB.Create(&service).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create service")
		return
	}

	c.JSON(http.StatusCreated, viewService(service))
}

// GetServices lists services with optional filters
func GetServices(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	page := utils.GetPage(c, 50)

	query := config.DB.Model(&models.Service{}).Where("salon_id = ?", salonUUID)
	active := true
	if v, ok := utils.QueryBool(c, "isActive"); ok {
		active = v
	}
	query = query.Where("is_active = ?", active)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if v, ok := utils.QueryBool(c, "isOnlineBookable"); ok {
		query = query.Where("is_online_bookable = ?", v)
	}
	if v, ok := utils.QueryBool(c, "isAddon"); ok {
		query = query.Where("is_addon = ?", v)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count services")
		return
	}

	var services []models.Service
	if err := query.Order("display_order, name").Offset(page.Skip).Limit(page.Limit).Find(&services).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve services")
		return
	}

	c.JSON(http.StatusOK, utils.Paginated(viewServices(services), total, page))
}

func GetServiceCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": models.ServiceCategories})
}

// GetServicesByCategory groups active services by category
func GetServicesByCategory(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	var services []models.Service
	if err := config.DB.Where("salon_id = ? AND is_active = ?", salonUUID, true).
		Order("display_order, name").Find(&services).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve services")
		return
	}

	grouped := map[string][]ServiceView{}
	for _, s := range services {
		grouped[s.Category] = append(grouped[s.Category], viewService(s))
	}

	categories := make([]gin.H, 0, len(grouped))
	for _, name := range models.ServiceCategories {
		if items, ok := grouped[name]; ok {
			categories = append(categories, gin.H{"category": name, "services": items})
		}
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func GetService(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	serviceUUID, ok := parseIDParam(c, "id", "service")
	if !ok {
		return
	}

	var service models.Service
	if !findInSalon(c, &service, salonUUID, serviceUUID, "Service") {
		return
	}

	c.JSON(http.StatusOK, viewService(service))
}

// UpdateService updates an existing service
func UpdateService(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	serviceUUID, ok := parseIDParam(c, "id", "service")
	if !ok {
		return
	}

	var input UpdateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	var service models.Service
	if !findInSalon(c, &service, salonUUID, serviceUUID, "Service") {
		return
	}

	if input.Name != nil {
		service.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		service.Description = *input.Description
	}
	if input.Category != nil {
		if !models.IsValidServiceCategory(*input.Category) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid service category")
			return
		}
		service.Category = *input.Category
	}
	if input.Price != nil {
		service.Price = *input.Price
	}
	if input.PriceMin != nil {
		service.PriceMin = input.PriceMin
	}
	if input.PriceMax != nil {
		service.PriceMax = input.PriceMax
	}
	if input.IsPriceVariable != nil {
		service.IsPriceVariable = *input.IsPriceVariable
	}
	if input.DurationMins != nil {
		service.DurationMins = *input.DurationMins
	}
	if input.BufferBeforeMins != nil {
		service.BufferBeforeMins = *input.BufferBeforeMins
	}
	if input.BufferAfterMins != nil {
		service.BufferAfterMins = *input.BufferAfterMins
	}
	if input.ProcessingTimeMins != nil {
		service.ProcessingTimeMins = *input.ProcessingTimeMins
	}
	if input.IsActive != nil {
		service.IsActive = *input.IsActive
	}
	if input.IsOnlineBookable != nil {
		service.IsOnlineBookable = *input.IsOnlineBookable
	}
	if input.IsAddon != nil {
		service.IsAddon = *input.IsAddon
	}
	if input.RequiresConsultation != nil {
		service.RequiresConsultation = *input.RequiresConsultation
	}
	if input.DisplayOrder != nil {
		service.DisplayOrder = *input.DisplayOrder
	}
	if input.Color != nil {
		service.Color = *input.Color
	}
	if input.ImageURL != nil {
		service.ImageURL = *input.ImageURL
	}
	if input.Tags != nil {
		service.Tags = models.NewStringList(*input.Tags...)
	}
	if service.PriceMin != nil && service.PriceMax != nil && *service.PriceMin > *service.PriceMax {
		utils.RespondWithError(c, http.StatusBadRequest, "Minimum price cannot exceed maximum price")
		return
	}

	if err := config.DB.Save(&service).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update service")
		return
	}

	c.JSON(http.StatusOK, viewService(service))
}

// DeleteService deactivates a service; past appointments keep their lines
func DeleteService(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	serviceUUID, ok := parseIDParam(c, "id", "service")
	if !ok {
		return
	}

	result := config.DB.Model(&models.Service{}).
		Where("salon_id = ? AND id = ?", salonUUID, serviceUUID).
		Update("is_active", false)
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete service")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Service deleted successfully"})
}

// DuplicateService copies a service as an inactive "(Copy)"
func DuplicateService(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	serviceUUID, ok := parseIDParam(c, "id", "service")
	if !ok {
		return
	}

	var original models.Service
	if !findInSalon(c, &original, salonUUID, serviceUUID, "Service") {
		return
	}

	copied := original
	copied.Base = models.Base{}
	copied.Name = original.Name + " (Copy)"
	copied.IsActive = false
	copied.Tags = append(models.StringList{}, original.Tags...)

	if err := config.DB.Create(&copied).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to duplicate service")
		return
	}

	c.JSON(http.StatusCreated, viewService(copied))
}

// ReorderServices sets display order for a batch of services
func ReorderServices(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	var input []ReorderItem
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		for _, item := range input {
			result := tx.Model(&models.Service{}).
				Where("salon_id = ? AND id = ?", salonUUID, item.ID).
				Update("display_order", item.DisplayOrder)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
	if err != nil {
		if utils.IsNotFound(err) {
			utils.RespondWithError(c, http.StatusNotFound, "Service not found")
			return
		}
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to reorder services")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Services reordered successfully", "updated": len(input)})
}
