package repository

import (
	"context"

	"petstore/internal/domain/model"
)

type CartRepository interface {
	// ACTIVEカートを返す（無ければ作る）
	GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)

	// ACTIVEカートを返す（無ければErrNotFound）
	FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error)

	UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error

	// 明細を全削除
	Clear(ctx context.Context, cartID int64) error
}
