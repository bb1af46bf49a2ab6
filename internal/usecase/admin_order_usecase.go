package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"petstore/internal/domain/model"
	repo "petstore/internal/repository"
)

// 管理者一覧は直近500件まで
const adminOrderListLimit = 500

type AdminOrderUsecase struct {
	tx    repo.TransactionManager
	users repo.UserRepository
	audit repo.AuditLogRepository
	log   *slog.Logger
}

func NewAdminOrderUsecase(tx repo.TransactionManager, users repo.UserRepository, audit repo.AuditLogRepository, log *slog.Logger) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, users: users, audit: audit, log: log}
}

type AdminOrderListOutput struct {
	Orders []OrderOutput   `json:"orders"`
	Stats  repo.OrderStats `json:"stats"`
}

type AdminUpdateOrderStatusInput struct {
	Status string `json:"status"`
}

// List は全注文（直近500件）＋集計を返す。
// 顧客名はユーザーテーブルから解決し、name→email→user#<id>の順でフォールバックする。
func (u *AdminOrderUsecase) List(ctx context.Context) (AdminOrderListOutput, error) {
	var out AdminOrderListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListAll(ctx, adminOrderListLimit)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs, err := enrichOrders(ctx, r, orders)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		stats, err := r.Orders().Stats(ctx)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out.Orders = outs
		out.Stats = stats
		return nil
	})

	if err != nil {
		return AdminOrderListOutput{}, err
	}

	//顧客の表示名を解決する
	userIDs := make([]int64, 0, len(out.Orders))
	seen := make(map[int64]bool)
	for _, o := range out.Orders {
		if !seen[o.UserID] {
			seen[o.UserID] = true
			userIDs = append(userIDs, o.UserID)
		}
	}

	users, err := u.users.ListByIDs(ctx, userIDs)
	if err != nil {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	nameByID := make(map[int64]string, len(users))
	for _, usr := range users {
		name := usr.Name
		if name == "" {
			name = usr.Email
		}
		nameByID[usr.ID] = name
	}

	for i := range out.Orders {
		name := nameByID[out.Orders[i].UserID]
		if name == "" {
			//ユーザーレコードが消えている場合
			name = fmt.Sprintf("user#%d", out.Orders[i].UserID)
		}
		out.Orders[i].CustomerName = name
	}

	return out, nil
}

// UpdateStatus はステータス変更。管理者でも遷移表どおりにしか動かせない。
// cancelledにする場合はキャンセルと同じ在庫戻しを行う。completedは本人の配達確定専用。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus := strings.TrimSpace(in.Status)
	if !model.IsOrderStatus(newStatus) {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if model.OrderStatus(newStatus) == model.OrderStatusCompleted {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "completed is set via delivery confirmation")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// すでに同じなら何もしない（200）
		if string(o.Status) == newStatus {
			items, err := r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			payments, err := r.Payments().ListByOrderID(ctx, orderID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out = toOrderOutput(o, items, payments)
			return nil
		}

		if !model.CanTransition(o.Status, model.OrderStatus(newStatus)) {
			return NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("cannot change status from %s to %s", o.Status, newStatus))
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//cancelledへの変更はキャンセル扱い：在庫戻し
		if model.OrderStatus(newStatus) == model.OrderStatusCancelled {
			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					u.log.Error("failed to restore stock", slog.Int64("product_id", it.ProductID), slog.Any("error", err))
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
		}

		beforeStatus := string(o.Status)
		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatus(newStatus)); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		beforeJSON := `{"status":"` + beforeStatus + `"}`
		afterJSON := `{"status":"` + newStatus + `"}`
		if err := u.audit.Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		o.Status = model.OrderStatus(newStatus)

		payments, err := r.Payments().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items, payments)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}
