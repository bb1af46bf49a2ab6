package repository

import (
	"context"

	"petstore/internal/domain/model"
)

type PaymentRepository interface {
	Create(ctx context.Context, p model.Payment) (int64, error)
	FindByID(ctx context.Context, paymentID int64) (model.Payment, error)

	// 行ロック付き取得。同一支払いへの同時確定を直列化する。
	FindByIDForUpdate(ctx context.Context, paymentID int64) (model.Payment, error)

	UpdateStatus(ctx context.Context, paymentID int64, status model.PaymentStatus) error

	ListByOrderID(ctx context.Context, orderID int64) ([]model.Payment, error)

	// 複数注文の支払い履歴を一括で取る
	ListByOrderIDs(ctx context.Context, orderIDs []int64) ([]model.Payment, error)
}
