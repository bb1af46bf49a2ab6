package repository

import (
	"context"
	"time"

	"petstore/internal/domain/model"
)

// 管理者一覧に載せる集計
type OrderStats struct {
	TotalOrders    int64 `json:"total_orders"`
	TotalRevenue   int64 `json:"total_revenue"`
	TotalCustomers int64 `json:"total_customers"`
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)

	// 行ロック付き取得（SELECT ... FOR UPDATE）。Tx内でのみ使う。
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)

	// 本人の注文を新しい順に返す
	ListByUserID(ctx context.Context, userID int64) ([]model.Order, error)

	// 全注文を新しい順に返す（limit件まで）
	ListAll(ctx context.Context, limit int) ([]model.Order, error)

	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	// 配達完了：statusをcompletedにしてdelivered_atを打刻
	MarkDelivered(ctx context.Context, orderID int64, deliveredAt time.Time) error

	// 件数・売上合計・顧客数の集計
	Stats(ctx context.Context) (OrderStats, error)

	// 対象商品を含む completed/confirmed の注文があるか（レビュー投稿のゲート）
	HasPurchased(ctx context.Context, userID int64, productID int64) (bool, error)
}
