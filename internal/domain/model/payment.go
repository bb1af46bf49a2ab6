package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	// successは終端。二重確定（＝二重在庫減算）はここで弾く。
	PaymentStatusSuccess PaymentStatus = "success"
)

type PaymentMethod string

const (
	PaymentMethodMock           PaymentMethod = "mock"
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func IsPaymentMethod(s string) bool {
	switch PaymentMethod(s) {
	case PaymentMethodMock, PaymentMethodCreditCard, PaymentMethodBankTransfer, PaymentMethodCashOnDelivery:
		return true
	default:
		return false
	}
}

// 支払い。amountは作成時に注文のtotalと一致していることを検証する。
type Payment struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       int64         `gorm:"not null;index" json:"order_id"`
	UserID        int64         `gorm:"not null;index" json:"user_id"`
	Method        PaymentMethod `gorm:"type:varchar(30);not null" json:"payment_method"`
	Amount        int64         `gorm:"not null" json:"amount"`
	Status        PaymentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	TransactionID string        `gorm:"type:varchar(64);not null;uniqueIndex" json:"transaction_id"`
	CreatedAt     time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
