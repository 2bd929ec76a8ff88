// controllers/sale.go
package controllers

import (
	"errors"
	"net/http"
	"time"

	"salonsync-backend/config"
	"salonsync-backend/models"
	"salonsync-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaleItemInput is one line of a sale
type SaleItemInput struct {
	ItemType  string     `json:"itemType" binding:"required,oneof=service product tip"`
	ItemID    *uuid.UUID `json:"itemId"`
	StaffID   *uuid.UUID `json:"staffId"`
	Name      string     `json:"name" binding:"required"`
	Quantity  int        `json:"quantity" binding:"omitempty,min=1"`
	UnitPrice float64    `json:"unitPrice" binding:"min=0"`
	Discount  float64    `json:"discount" binding:"min=0"`
}

// CreateSaleInput never carries a salon id; the sale belongs to the URL tenant
type CreateSaleInput struct {
	ClientID       *uuid.UUID      `json:"clientId"`
	AppointmentID  *uuid.UUID      `json:"appointmentId"`
	StaffID        *uuid.UUID      `json:"staffId"`
	Items          []SaleItemInput `json:"items" binding:"required,min=1,dive"`
	DiscountAmount float64         `json:"discountAmount" binding:"min=0"`
	TipAmount      float64         `json:"tipAmount" binding:"min=0"`
	TaxAmount      float64         `json:"taxAmount" binding:"min=0"`
	PaymentMethod  string          `json:"paymentMethod" binding:"required,oneof=cash card check gift_card split"`
	GiftCardCode   string          `json:"giftCardCode"`
	GiftCardAmount *float64        `json:"giftCardAmount" binding:"omitempty,gt=0"`
	Notes          string          `json:"notes"`
}

type RefundInput struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Reason string  `json:"reason"`
}

var errInsufficientGiftCard = errors.New("gift card balance does not cover the sale total")

// CreateSale records a completed sale and updates the client's spend
func CreateSale(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	userUUID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	var input CreateSaleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	if input.PaymentMethod == models.PaymentGiftCard && input.GiftCardCode == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "giftCardCode is required for gift card payments")
		return
	}

	// Linked records must belong to the same salon
	var appt *models.Appointment
	if input.AppointmentID != nil {
		var found models.Appointment
		if err := config.DB.Where("salon_id = ? AND id = ?", salonUUID, *input.AppointmentID).First(&found).Error; err != nil {
			if utils.IsNotFound(err) {
				utils.RespondWithError(c, http.StatusBadRequest, "Appointment not found")
			} else {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			}
			return
		}
		appt = &found
		if input.ClientID == nil {
			input.ClientID = &found.ClientID
		}
		if input.StaffID == nil {
			input.StaffID = &found.StaffID
		}
	}
	checks := []struct {
		id    *uuid.UUID
		model interface{}
		label string
	}{
		{input.ClientID, &models.Client{}, "Client"},
		{input.StaffID, &models.Staff{}, "Staff member"},
	}
	for _, check := range checks {
		if check.id == nil {
			continue
		}
		exists, err := existsInSalon(check.model, salonUUID, *check.id)
		if err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
		if !exists {
			utils.RespondWithError(c, http.StatusBadRequest, check.label+" not found")
			return
		}
	}

	sale := models.Sale{
		SalonID:        salonUUID,
		ClientID:       input.ClientID,
		StaffID:        input.StaffID,
		AppointmentID:  input.AppointmentID,
		CreatedByID:    userUUID,
		DiscountAmount: input.DiscountAmount,
		TaxAmount:      input.TaxAmount,
		TipAmount:      input.TipAmount,
		PaymentMethod:  input.PaymentMethod,
		PaymentStatus:  models.PaymentCompleted,
		Notes:          input.Notes,
	}
	for _, item := range input.Items {
		quantity := item.Quantity
		if quantity == 0 {
			quantity = 1
		}
		staffID := item.StaffID
		if staffID == nil {
			staffID = input.StaffID
		}
		sale.Items = append(sale.Items, models.SaleItem{
			ItemType:  item.ItemType,
			ItemID:    item.ItemID,
			StaffID:   staffID,
			Name:      item.Name,
			Quantity:  quantity,
			UnitPrice: item.UnitPrice,
			Discount:  item.Discount,
		})
	}
	sale.CalculateTotals()
	if sale.Total < 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Discount exceeds sale total")
		return
	}

	var card *models.GiftCard
	if input.GiftCardCode != "" {
		var found models.GiftCard
		code := utils.NormalizeGiftCardCode(input.GiftCardCode)
		if err := config.DB.Where("salon_id = ? AND code = ?", salonUUID, code).First(&found).Error; err != nil {
			if utils.IsNotFound(err) {
				utils.RespondWithError(c, http.StatusBadRequest, "Gift card not found")
			} else {
				utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			}
			return
		}
		card = &found
		sale.GiftCardID = &found.ID
	}

	now := time.Now()
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sale).Error; err != nil {
			return err
		}

		if card != nil {
			amount := sale.Total
			if input.GiftCardAmount != nil && *input.GiftCardAmount < amount {
				amount = *input.GiftCardAmount
			}
			redeemed, err := redeemGiftCard(tx, card, amount, &sale.ID, &userUUID, "", now)
			if err != nil {
				return err
			}
			if sale.PaymentMethod == models.PaymentGiftCard && redeemed < sale.Total {
				return errInsufficientGiftCard
			}
		}

		if sale.ClientID != nil {
			// A sale tied to an appointment was already counted as a visit
			if err := recordClientVisit(tx, *sale.ClientID, sale.Total, appt == nil, now); err != nil {
				return err
			}
		}
		if appt != nil && appt.FinalTotal == nil {
			return tx.Model(&models.Appointment{}).Where("id = ?", appt.ID).Update("final_total", sale.Total).Error
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errInsufficientGiftCard):
			utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, models.ErrGiftCardNotActive), errors.Is(err, models.ErrGiftCardEmpty),
			errors.Is(err, models.ErrInvalidAmount), errors.Is(err, errGiftCardChanged):
			respondRedeemError(c, err)
		default:
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create sale")
		}
		return
	}

	c.JSON(http.StatusCreated, sale)
}

// GetSales lists sales with client, staff, status and date filters
func GetSales(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	page := utils.GetPage(c, utils.DefaultPageLimit)

	clientID, ok := parseUUIDQuery(c, "clientId")
	if !ok {
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
	endDate, ok := parseDateQuery(c, "endDate")
	if !ok {
		return
	}

	query := config.DB.Model(&models.Sale{}).Where("salon_id = ?", salonUUID)
	if clientID != nil {
		query = query.Where("client_id = ?", *clientID)
	}
	if staffID != nil {
		query = query.Where("staff_id = ?", *staffID)
	}
	if status := c.Query("paymentStatus"); status != "" {
		query = query.Where("payment_status = ?", status)
	}
	if startDate != nil {
		query = query.Where("created_at >= ?", utils.BeginningOfDay(*startDate))
	}
	if endDate != nil {
		query = query.Where("created_at <= ?", utils.EndOfDay(*endDate))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count sales")
		return
	}

	var sales []models.Sale
	if err := query.Preload("Items").Order("created_at DESC").
		Offset(page.Skip).Limit(page.Limit).Find(&sales).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve sales")
		return
	}

	c.JSON(http.StatusOK, utils.Paginated(sales, total, page))
}

func GetSale(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	saleUUID, ok := parseIDParam(c, "id", "sale")
	if !ok {
		return
	}

	var sale models.Sale
	if err := config.DB.Preload("Items").Where("salon_id = ? AND id = ?", salonUUID, saleUUID).
		First(&sale).Error; err != nil {
		respondLookupError(c, err, "Sale")
		return
	}

	c.JSON(http.StatusOK, sale)
}

// SalesSummary totals a set of sales
type SalesSummary struct {
	Date            string             `json:"date"`
	Count           int                `json:"count"`
	Revenue         float64            `json:"revenue"`
	Tips            float64            `json:"tips"`
	Refunds         float64            `json:"refunds"`
	ByPaymentMethod map[string]float64 `json:"byPaymentMethod"`
}

func summarizeSales(sales []models.Sale) SalesSummary {
	summary := SalesSummary{ByPaymentMethod: map[string]float64{}}
	for _, s := range sales {
		if s.PaymentStatus == models.PaymentPending || s.PaymentStatus == models.PaymentFailed {
			continue
		}
		net := s.Total - s.RefundAmount
		summary.Count++
		summary.Revenue += net
		summary.Tips += s.TipAmount
		summary.Refunds += s.RefundAmount
		summary.ByPaymentMethod[s.PaymentMethod] = models.RoundMoney(summary.ByPaymentMethod[s.PaymentMethod] + net)
	}
	summary.Revenue = models.RoundMoney(summary.Revenue)
	summary.Tips = models.RoundMoney(summary.Tips)
	summary.Refunds = models.RoundMoney(summary.Refunds)
	return summary
}

// GetTodaySales summarizes the day's takings
func GetTodaySales(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}

	now := time.Now()
	var sales []models.Sale
	if err := config.DB.Where("salon_id = ? AND created_at >= ? AND created_at <= ?",
		salonUUID, utils.BeginningOfDay(now), utils.EndOfDay(now)).Find(&sales).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve sales")
		return
	}

	summary := summarizeSales(sales)
	summary.Date = now.Format(utils.DateLayout)
	c.JSON(http.StatusOK, summary)
}

// RefundSale refunds part or all of what is still refundable
func RefundSale(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	saleUUID, ok := parseIDParam(c, "id", "sale")
	if !ok {
		return
	}

	var input RefundInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	var sale models.Sale
	if err := config.DB.Preload("Items").Where("salon_id = ? AND id = ?", salonUUID, saleUUID).
		First(&sale).Error; err != nil {
		respondLookupError(c, err, "Sale")
		return
	}

	if sale.PaymentStatus != models.PaymentCompleted && sale.PaymentStatus != models.PaymentPartiallyRefunded {
		utils.RespondWithError(c, http.StatusBadRequest, "Sale cannot be refunded")
		return
	}

	amount := models.RoundMoney(input.Amount)
	if err := sale.ApplyRefund(amount, input.Reason, time.Now()); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Refund amount exceeds refundable balance")
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(&sale).Error; err != nil {
			return err
		}
		if sale.ClientID == nil {
			return nil
		}
		return recordClientVisit(tx, *sale.ClientID, -amount, false, time.Now())
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to refund sale")
		return
	}

	c.JSON(http.StatusOK, sale)
}
