package model

import "time"

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReadyToShip    OrderStatus = "ready_to_ship"
	OrderStatusShipping       OrderStatus = "shipping"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// ステータス語彙（APIの入力チェックにも使う）
var orderStatuses = map[OrderStatus]bool{
	OrderStatusPendingPayment: true,
	OrderStatusConfirmed:      true,
	OrderStatusPreparing:      true,
	OrderStatusReadyToShip:    true,
	OrderStatusShipping:       true,
	OrderStatusCompleted:      true,
	OrderStatusCancelled:      true,
}

func IsOrderStatus(s string) bool {
	return orderStatuses[OrderStatus(s)]
}

// 遷移表
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingPayment: {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing:      {OrderStatusReadyToShip, OrderStatusCancelled},
	OrderStatusReadyToShip:    {OrderStatusShipping},
	OrderStatusShipping:       {OrderStatusCompleted},
}

// CanTransition は from→to が遷移表で許可されているかを返す。
func CanTransition(from OrderStatus, to OrderStatus) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanCancelFrom はキャンセル可能なステータスかを返す。
// completed / cancelled / shipping / ready_to_ship からは不可。
func CanCancelFrom(s OrderStatus) bool {
	switch s {
	case OrderStatusPendingPayment, OrderStatusConfirmed, OrderStatusPreparing:
		return true
	default:
		return false
	}
}

// 注文。配送先は注文時点のスナップショットで、以後住所テーブルとはJOINしない。
// total = subtotal + shipping_fee（作成時に確定、以後再計算しない）。
type Order struct {
	ID      int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID  int64       `gorm:"not null;index" json:"user_id"`
	OrderNo string      `gorm:"type:varchar(40);not null;uniqueIndex" json:"order_no"`
	Status  OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	// 配送先スナップショット
	RecipientName string `gorm:"type:varchar(255);not null" json:"recipient_name"`
	Phone         string `gorm:"type:varchar(30);not null" json:"phone"`
	AddressLine   string `gorm:"type:varchar(255);not null" json:"address_line"`
	Subdistrict   string `gorm:"type:varchar(100)" json:"subdistrict"`
	District      string `gorm:"type:varchar(100)" json:"district"`
	Province      string `gorm:"type:varchar(100)" json:"province"`
	PostalCode    string `gorm:"type:varchar(20)" json:"postal_code"`

	Subtotal    int64 `gorm:"not null" json:"subtotal"`
	ShippingFee int64 `gorm:"not null" json:"shipping_fee"`
	Total       int64 `gorm:"not null" json:"total"`

	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}
