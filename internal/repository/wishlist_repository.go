package repository

import (
	"context"

	"petstore/internal/domain/model"
)

type WishlistRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.WishlistItem, error)
	Exists(ctx context.Context, userID int64, productID int64) (bool, error)
	Add(ctx context.Context, item model.WishlistItem) error
	Remove(ctx context.Context, userID int64, productID int64) error
}
