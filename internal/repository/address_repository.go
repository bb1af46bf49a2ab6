package repository

import (
	"context"

	"petstore/internal/domain/model"
)

type AddressRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.Address, error)
	FindByID(ctx context.Context, addressID int64) (model.Address, error)
	Create(ctx context.Context, a model.Address) (model.Address, error)
	Update(ctx context.Context, a model.Address) error
	Delete(ctx context.Context, addressID int64) error

	// 他のデフォルトを外してから対象をデフォルトにする（同一Tx内）
	SetDefault(ctx context.Context, userID int64, addressID int64) error
}
