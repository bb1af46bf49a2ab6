package repository

import (
	"context"

	"petstore/internal/domain/model"
)

type ReviewRepository interface {
	ListByProductID(ctx context.Context, productID int64) ([]model.Review, error)
	ExistsByUserAndProduct(ctx context.Context, userID int64, productID int64) (bool, error)
	Create(ctx context.Context, r model.Review) (model.Review, error)
}
