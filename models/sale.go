package models

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// Payment statuses
const (
	PaymentPending           = "pending"
	PaymentCompleted         = "completed"
	PaymentRefunded          = "refunded"
	PaymentPartiallyRefunded = "partially_refunded"
	PaymentFailed            = "failed"
)

// Payment methods
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentCheck    = "check"
	PaymentGiftCard = "gift_card"
	PaymentSplit    = "split"
)

// Sale item types
const (
	ItemService = "service"
	ItemProduct = "product"
	ItemTip     = "tip"
)

var ErrRefundExceedsTotal = errors.New("refund amount exceeds refundable balance")

type Sale struct {
	Base
	SalonID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"salonId"`
	ClientID      *uuid.UUID `gorm:"type:uuid;index" json:"clientId"`
	StaffID       *uuid.UUID `gorm:"type:uuid;index" json:"staffId"`
	AppointmentID *uuid.UUID `gorm:"type:uuid;index" json:"appointmentId"`
	CreatedByID   uuid.UUID  `gorm:"type:uuid;not null" json:"createdById"`

	Subtotal       float64 `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	DiscountAmount float64 `gorm:"type:decimal(10,2);default:0" json:"discountAmount"`
	TaxAmount      float64 `gorm:"type:decimal(10,2);default:0" json:"taxAmount"`
	TipAmount      float64 `gorm:"type:decimal(10,2);default:0" json:"tipAmount"`
	Total          float64 `gorm:"type:decimal(10,2);not null" json:"total"`

	PaymentMethod string     `gorm:"type:varchar(20);not null" json:"paymentMethod"`
	PaymentStatus string     `gorm:"type:varchar(20);index;not null" json:"paymentStatus"`
	GiftCardID    *uuid.UUID `gorm:"type:uuid" json:"giftCardId"`

	RefundAmount float64    `gorm:"type:decimal(10,2);default:0" json:"refundAmount"`
	RefundReason string     `gorm:"type:text" json:"refundReason"`
	RefundedAt   *time.Time `json:"refundedAt"`
	Notes        string     `gorm:"type:text" json:"notes"`

	Items []SaleItem `gorm:"foreignKey:SaleID" json:"items"`
}

type SaleItem struct {
	Base
	SaleID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"saleId"`
	ItemType  string     `gorm:"type:varchar(20);not null" json:"itemType"`
	ItemID    *uuid.UUID `gorm:"type:uuid" json:"itemId"`
	StaffID   *uuid.UUID `gorm:"type:uuid" json:"staffId"`
	Name      string     `gorm:"not null" json:"name"`
	Quantity  int        `gorm:"default:1" json:"quantity"`
	UnitPrice float64    `gorm:"type:decimal(10,2);not null" json:"unitPrice"`
	Discount  float64    `gorm:"type:decimal(10,2);default:0" json:"discount"`
	Total     float64    `gorm:"type:decimal(10,2);not null" json:"total"`
}

// LineTotal is unit price times quantity less the line discount
func (i *SaleItem) LineTotal() float64 {
	return RoundMoney(i.UnitPrice*float64(i.Quantity) - i.Discount)
}

// CalculateTotals fills item totals, subtotal and total from the items and
// the sale-level adjustments.
func (s *Sale) CalculateTotals() {
	subtotal := 0.0
	for i := range s.Items {
		s.Items[i].Total = s.Items[i].LineTotal()
		subtotal += s.Items[i].Total
	}
	s.Subtotal = RoundMoney(subtotal)
	s.Total = RoundMoney(s.Subtotal + s.TaxAmount - s.DiscountAmount + s.TipAmount)
}

// Refundable is the amount that can still be refunded
func (s *Sale) Refundable() float64 {
	return RoundMoney(s.Total - s.RefundAmount)
}

// ApplyRefund records a refund and updates the payment status
func (s *Sale) ApplyRefund(amount float64, reason string, now time.Time) error {
	if amount <= 0 || amount > s.Refundable()+0.001 {
		return ErrRefundExceedsTotal
	}
	s.RefundAmount = RoundMoney(s.RefundAmount + amount)
	s.RefundReason = reason
	s.RefundedAt = &now
	if s.RefundAmount >= s.Total {
		s.PaymentStatus = PaymentRefunded
	} else {
		s.PaymentStatus = PaymentPartiallyRefunded
	}
	return nil
}

func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
