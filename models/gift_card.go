package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Gift card statuses
const (
	GiftCardActive    = "active"
	GiftCardRedeemed  = "redeemed"
	GiftCardExpired   = "expired"
	GiftCardCancelled = "cancelled"
)

// Gift card transaction types
const (
	GiftCardTxPurchase     = "purchase"
	GiftCardTxRedemption   = "redemption"
	GiftCardTxCancellation = "cancellation"
)

const MaxGiftCardAmount = 10000

var (
	ErrGiftCardNotActive = errors.New("gift card is not active")
	ErrGiftCardEmpty     = errors.New("gift card has no remaining balance")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
)

type GiftCard struct {
	Base
	SalonID uuid.UUID `gorm:"type:uuid;index;not null" json:"salonId"`
	Code    string    `gorm:"uniqueIndex;not null" json:"code"`
	PIN     string    `gorm:"column:pin" json:"-"`

	InitialAmount float64 `gorm:"type:decimal(10,2);not null" json:"initialAmount"`
	Balance       float64 `gorm:"type:decimal(10,2);not null" json:"balance"`
	Status        string  `gorm:"type:varchar(20);index;not null" json:"status"`
	IsPhysical    bool    `json:"isPhysical"`

	PurchaserName   string     `json:"purchaserName"`
	PurchaserEmail  string     `json:"purchaserEmail"`
	PurchaserPhone  string     `json:"purchaserPhone"`
	RecipientName   string     `json:"recipientName"`
	RecipientEmail  string     `json:"recipientEmail"`
	RecipientPhone  string     `json:"recipientPhone"`
	Message         string     `gorm:"type:text" json:"message"`
	PurchasedByID   *uuid.UUID `gorm:"type:uuid" json:"purchasedById"`
	ExpiresAt       *time.Time `json:"expiresAt"`
	LastUsedAt      *time.Time `json:"lastUsedAt"`
	LastDeliveredAt *time.Time `json:"lastDeliveredAt"`

	Transactions []GiftCardTransaction `gorm:"foreignKey:GiftCardID" json:"transactions,omitempty"`
}

type GiftCardTransaction struct {
	Base
	GiftCardID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"giftCardId"`
	Type         string     `gorm:"type:varchar(20);not null" json:"type"`
	Amount       float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	BalanceAfter float64    `gorm:"type:decimal(10,2);not null" json:"balanceAfter"`
	SaleID       *uuid.UUID `gorm:"type:uuid" json:"saleId"`
	PerformedBy  *uuid.UUID `gorm:"type:uuid" json:"performedBy"`
	Notes        string     `json:"notes"`
}

// IsExpired reports whether the card passed its expiry date
func (g *GiftCard) IsExpired(now time.Time) bool {
	return g.ExpiresAt != nil && now.After(*g.ExpiresAt)
}

// IsValid reports whether the card can be redeemed right now
func (g *GiftCard) IsValid(now time.Time) bool {
	return g.Status == GiftCardActive && g.Balance > 0 && !g.IsExpired(now)
}

// Redeem takes up to amount from the balance and returns what was taken
func (g *GiftCard) Redeem(amount float64, now time.Time) (float64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if g.Status != GiftCardActive || g.IsExpired(now) {
		return 0, ErrGiftCardNotActive
	}
	if g.Balance <= 0 {
		return 0, ErrGiftCardEmpty
	}

	redeemed := amount
	if redeemed > g.Balance {
		redeemed = g.Balance
	}
	g.Balance = RoundMoney(g.Balance - redeemed)
	g.LastUsedAt = &now
	if g.Balance <= 0 {
		g.Balance = 0
		g.Status = GiftCardRedeemed
	}
	return RoundMoney(redeemed), nil
}

// Cancel voids an active card and returns the forfeited balance
func (g *GiftCard) Cancel() (float64, error) {
	if g.Status != GiftCardActive {
		return 0, ErrGiftCardNotActive
	}
	forfeited := g.Balance
	g.Balance = 0
	g.Status = GiftCardCancelled
	return forfeited, nil
}
