// controllers/gift_card.go
package controllers

import (
	"crypto/subtle"
	"errors"
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
)

// errGiftCardChanged means the balance moved between read and write
var errGiftCardChanged = errors.New("gift card was modified concurrently")

type CreateGiftCardInput struct {
	Amount         float64 `json:"amount" binding:"required,gt=0,lte=10000"`
	PurchaserName  string  `json:"purchaserName"`
	PurchaserEmail string  `json:"purchaserEmail" binding:"omitempty,email"`
	PurchaserPhone string  `json:"purchaserPhone" binding:"omitempty,phone"`
	RecipientName  string  `json:"recipientName"`
	RecipientEmail string  `json:"recipientEmail" binding:"omitempty,email"`
	RecipientPhone string  `json:"recipientPhone" binding:"omitempty,phone"`
	Message        string  `json:"message"`
	IsPhysical     bool    `json:"isPhysical"`
	ExpiresInDays  *int    `json:"expiresInDays" binding:"omitempty,min=1"`
}

type RedeemGiftCardInput struct {
	Amount float64    `json:"amount" binding:"required,gt=0"`
	SaleID *uuid.UUID `json:"saleId"`
	Notes  string     `json:"notes"`
}

type CancelGiftCardInput struct {
	Reason string `json:"reason"`
}

type GiftCardController struct {
	Notifier services.Notifier
}

func NewGiftCardController(notifier services.Notifier) *GiftCardController {
	return &GiftCardController{Notifier: notifier}
}

// redeemGiftCard takes up to amount from card inside tx and records the
// redemption. The update only applies if the balance is unchanged.
func redeemGiftCard(tx *gorm.DB, card *models.GiftCard, amount float64, saleID, performedBy *uuid.UUID, notes string, now time.Time) (float64, error) {
	previous := card.Balance
	redeemed, err := card.Redeem(amount, now)
	if err != nil {
		return 0, err
	}

	result := tx.Model(&models.GiftCard{}).
		Where("id = ? AND balance = ? AND status = ?", card.ID, previous, models.GiftCardActive).
		Updates(map[string]interface{}{
			"balance":      card.Balance,
			"status":       card.Status,
			"last_used_at": card.LastUsedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected != 1 {
		return 0, errGiftCardChanged
	}

	entry := models.GiftCardTransaction{
		GiftCardID:   card.ID,
		Type:         models.GiftCardTxRedemption,
		Amount:       redeemed,
		BalanceAfter: card.Balance,
		SaleID:       saleID,
		PerformedBy:  performedBy,
		Notes:        notes,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, err
	}
	return redeemed, nil
}

func respondRedeemError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrGiftCardNotActive), errors.Is(err, models.ErrGiftCardEmpty),
		errors.Is(err, models.ErrInvalidAmount):
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, errGiftCardChanged):
		utils.RespondWithError(c, http.StatusConflict, "Gift card balance changed, please retry")
	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to redeem gift card")
	}
}

func (gc *GiftCardController) sendGiftCard(c *gin.Context, salon *models.Salon, card *models.GiftCard) error {
	to := utils.CleanPhone(card.RecipientPhone)
	if to == "" {
		return nil
	}

	name := card.RecipientName
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf("Hi %s! You've received a $%.2f gift card to %s. Code: %s",
		name, card.Balance, salon.Name, card.Code)
	if card.PurchaserName != "" {
		body += " from " + card.PurchaserName
	}
	if card.Message != "" {
		body += "\n\n" + card.Message
	}

	if err := services.Deliver(c.Request.Context(), config.DB, gc.Notifier, services.Message{
		SalonID: salon.ID,
		Type:    models.ReminderGiftCard,
		To:      to,
		Body:    body,
	}); err != nil {
		return err
	}

	now := time.Now()
	card.LastDeliveredAt = &now
	return config.DB.Model(&models.GiftCard{}).Where("id = ?", card.ID).Update("last_delivered_at", now).Error
}

// CreateGiftCard sells a new card and texts the recipient when possible
func (gc *GiftCardController) CreateGiftCard(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}
	userUUID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	var input CreateGiftCardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	amount := models.RoundMoney(input.Amount)
	card := models.GiftCard{
		SalonID:        salon.ID,
		InitialAmount:  amount,
		Balance:        amount,
		Status:         models.GiftCardActive,
		IsPhysical:     input.IsPhysical,
		PurchaserName:  input.PurchaserName,
		PurchaserEmail: input.PurchaserEmail,
		PurchaserPhone: utils.CleanPhone(input.PurchaserPhone),
		RecipientName:  input.RecipientName,
		RecipientEmail: input.RecipientEmail,
		RecipientPhone: utils.CleanPhone(input.RecipientPhone),
		Message:        input.Message,
		PurchasedByID:  &userUUID,
	}
	if input.IsPhysical {
		card.PIN = utils.GeneratePIN()
	}
	if input.ExpiresInDays != nil {
		expires := utils.EndOfDay(time.Now().AddDate(0, 0, *input.ExpiresInDays))
		card.ExpiresAt = &expires
	}

	// Codes are random; retry on the rare collision
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		card.ID = uuid.Nil
		card.Code = utils.GenerateGiftCardCode()
		err = config.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&card).Error; err != nil {
				return err
			}
			return tx.Create(&models.GiftCardTransaction{
				GiftCardID:   card.ID,
				Type:         models.GiftCardTxPurchase,
				Amount:       amount,
				BalanceAfter: amount,
				PerformedBy:  &userUUID,
			}).Error
		})
		if err == nil || !utils.IsUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create gift card")
		return
	}

	// Delivery failures are logged; the card can be resent later
	delivered := gc.sendGiftCard(c, salon, &card) == nil && card.LastDeliveredAt != nil

	c.JSON(http.StatusCreated, gin.H{"giftCard": card, "pin": card.PIN, "delivered": delivered})
}

func (gc *GiftCardController) GetGiftCards(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	page := utils.GetPage(c, utils.DefaultPageLimit)

	query := config.DB.Model(&models.GiftCard{}).Where("salon_id = ?", salonUUID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := c.Query("search"); search != "" {
		term := "%" + utils.NormalizeGiftCardCode(search) + "%"
		name := "%" + strings.ToLower(search) + "%"
		query = query.Where("code LIKE ? OR LOWER(recipient_name) LIKE ? OR LOWER(purchaser_name) LIKE ?", term, name, name)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count gift cards")
		return
	}

	var cards []models.GiftCard
	if err := query.Order("created_at DESC").Offset(page.Skip).Limit(page.Limit).Find(&cards).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve gift cards")
		return
	}

	c.JSON(http.StatusOK, utils.Paginated(cards, total, page))
}

func (gc *GiftCardController) GetGiftCard(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	cardUUID, ok := parseIDParam(c, "id", "gift card")
	if !ok {
		return
	}

	var card models.GiftCard
	if !findInSalon(c, &card, salonUUID, cardUUID, "Gift card") {
		return
	}

	c.JSON(http.StatusOK, card)
}

func (gc *GiftCardController) GetGiftCardTransactions(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	cardUUID, ok := parseIDParam(c, "id", "gift card")
	if !ok {
		return
	}

	var card models.GiftCard
	if !findInSalon(c, &card, salonUUID, cardUUID, "Gift card") {
		return
	}

	var transactions []models.GiftCardTransaction
	if err := config.DB.Where("gift_card_id = ?", card.ID).Order("created_at").Find(&transactions).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// RedeemGiftCard takes up to amount from the card's balance
func (gc *GiftCardController) RedeemGiftCard(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	userUUID, ok := userIDFromContext(c)
	if !ok {
		return
	}
	cardUUID, ok := parseIDParam(c, "id", "gift card")
	if !ok {
		return
	}

	var input RedeemGiftCardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithBindError(c, err)
		return
	}

	var card models.GiftCard
	if !findInSalon(c, &card, salonUUID, cardUUID, "Gift card") {
		return
	}

	if input.SaleID != nil {
		exists, err := existsInSalon(&models.Sale{}, salonUUID, *input.SaleID)
		if err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
		if !exists {
			utils.RespondWithError(c, http.StatusBadRequest, "Sale not found")
			return
		}
	}

	var redeemed float64
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		redeemed, err = redeemGiftCard(tx, &card, input.Amount, input.SaleID, &userUUID, input.Notes, time.Now())
		return err
	})
	if err != nil {
		respondRedeemError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"amountRedeemed":   redeemed,
		"remainingBalance": card.Balance,
		"status":           card.Status,
		"giftCard":         card,
	})
}

// CancelGiftCard voids an active card and forfeits its balance
func (gc *GiftCardController) CancelGiftCard(c *gin.Context) {
	salonUUID, ok := salonIDFromContext(c)
	if !ok {
		return
	}
	userUUID, ok := userIDFromContext(c)
	if !ok {
		return
	}
	cardUUID, ok := parseIDParam(c, "id", "gift card")
	if !ok {
		return
	}

	var input CancelGiftCardInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithBindError(c, err)
			return
		}
	}

	var card models.GiftCard
	if !findInSalon(c, &card, salonUUID, cardUUID, "Gift card") {
		return
	}

	forfeited, err := card.Cancel()
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Only active gift cards can be cancelled")
		return
	}

	err = config.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.GiftCard{}).
			Where("id = ? AND status = ? AND balance = ?", card.ID, models.GiftCardActive, forfeited).
			Updates(map[string]interface{}{
				"balance": 0,
				"status":  card.Status,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errGiftCardChanged
		}
		return tx.Create(&models.GiftCardTransaction{
			GiftCardID:   card.ID,
			Type:         models.GiftCardTxCancellation,
			Amount:       forfeited,
			BalanceAfter: 0,
			PerformedBy:  &userUUID,
			Notes:        input.Reason,
		}).Error
	})
	if errors.Is(err, errGiftCardChanged) {
		utils.RespondWithError(c, http.StatusConflict, "Gift card changed, please retry")
		return
	}
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to cancel gift card")
		return
	}

	c.JSON(http.StatusOK, card)
}

// ResendGiftCard texts the code to the recipient again
func (gc *GiftCardController) ResendGiftCard(c *gin.Context) {
	salon, ok := salonFromContext(c)
	if !ok {
		return
	}
	cardUUID, ok := parseIDParam(c, "id", "gift card")
	if !ok {
		return
	}

	var card models.GiftCard
	if !findInSalon(c, &card, salon.ID, cardUUID, "Gift card") {
		return
	}
	if card.Status != models.GiftCardActive {
		utils.RespondWithError(c, http.StatusBadRequest, "Only active gift cards can be resent")
		return
	}
	if card.RecipientPhone == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Gift card has no recipient phone number")
		return
	}

	if err := gc.sendGiftCard(c, salon, &card); err != nil {
		utils.RespondWithError(c, http.StatusBadGateway, "Failed to send gift card: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Gift card sent", "lastDeliveredAt": card.LastDeliveredAt})
}

// CheckGiftCardBalance is the public balance lookup
func (gc *GiftCardController) CheckGiftCardBalance(c *gin.Context) {
	code := utils.NormalizeGiftCardCode(c.Query("code"))
	if code == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "code is required")
		return
	}

	var card models.GiftCard
	if err := config.DB.Where("code = ?", code).First(&card).Error; err != nil {
		if utils.IsNotFound(err) {
			utils.RespondWithError(c, http.StatusNotFound, "Gift card not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if card.PIN != "" && subtle.ConstantTimeCompare([]byte(c.Query("pin")), []byte(card.PIN)) != 1 {
		utils.RespondWithError(c, http.StatusForbidden, "Invalid PIN")
		return
	}

	now := time.Now()
	if card.Status == models.GiftCardActive && card.IsExpired(now) {
		card.Status = models.GiftCardExpired
		if err := config.DB.Model(&models.GiftCard{}).Where("id = ?", card.ID).
			Update("status", models.GiftCardExpired).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
			return
		}
	}

	var salon models.Salon
	config.DB.Select("name").Where("id = ?", card.SalonID).First(&salon)

	c.JSON(http.StatusOK, gin.H{
		"code":      card.Code,
		"balance":   card.Balance,
		"status":    card.Status,
		"isValid":   card.IsValid(now),
		"expiresAt": card.ExpiresAt,
		"salonName": salon.Name,
	})
}
