package repository

import (
	"context"

	"petstore/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error

	FindByID(ctx context.Context, userID int64) (*model.User, error)

	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// アクティブかどうか・最終ログインの更新など
	Update(ctx context.Context, user *model.User) error

	// 表示名解決用（管理者の注文一覧）
	ListByIDs(ctx context.Context, ids []int64) ([]model.User, error)

	// 管理者用の一覧
	List(ctx context.Context, page int, limit int) ([]model.User, int64, error)
}
