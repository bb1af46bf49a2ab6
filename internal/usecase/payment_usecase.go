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

	"github.com/google/uuid"
)

type PaymentUsecase struct {
	tx  repo.TransactionManager
	log *slog.Logger
}

func NewPaymentUsecase(tx repo.TransactionManager, log *slog.Logger) *PaymentUsecase {
	return &PaymentUsecase{tx: tx, log: log}
}

type CreatePaymentInput struct {
	OrderID int64  `json:"order_id"`
	Amount  int64  `json:"amount"`
	Method  string `json:"payment_method"`
}

// CreatePayment はpending状態の支払いを作る。
// amountは注文の保存済みtotalと完全一致していなければ400。
func (u *PaymentUsecase) CreatePayment(ctx context.Context, userID int64, isAdmin bool, in CreatePaymentInput) (PaymentOutput, error) {
	if userID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.OrderID <= 0 {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order_id")
	}
	method := strings.TrimSpace(in.Method)
	if !model.IsPaymentMethod(method) {
		return PaymentOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}

	var out PaymentOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, in.OrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID && !isAdmin {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}
		if in.Amount != o.Total {
			return NewHTTPError(http.StatusBadRequest, "amount does not match order total")
		}

		now := time.Now()
		p := model.Payment{
			OrderID:       o.ID,
			UserID:        o.UserID,
			Method:        model.PaymentMethod(method),
			Amount:        in.Amount,
			Status:        model.PaymentStatusPending,
			TransactionID: newTransactionID(),
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		id, err := r.Payments().Create(ctx, p)
		if err != nil {
			u.log.Error("failed to create payment", slog.Int64("order_id", o.ID), slog.Any("error", err))
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		p.ID = id
		out = toPaymentOutput(p)
		return nil
	})

	if err != nil {
		return PaymentOutput{}, err
	}
	return out, nil
}

// ConfirmSuccess は支払い確定の中核。全部を1つのTxで行う：
//  1. 支払い行をロックして取得。無ければ404、既にsuccessなら400（二重減算防止）
//  2. 所有者チェック
//  3. 注文行をロックして取得
//  4. 明細ごとに商品行をロックし、在庫-数量が負なら商品名を添えて中断（全体ロールバック）
//  5. 全明細ぶんの在庫を反映し、支払いをsuccess、注文をconfirmedにしてコミット
func (u *PaymentUsecase) ConfirmSuccess(ctx context.Context, userID int64, isAdmin bool, paymentID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if paymentID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payments().FindByIDForUpdate(ctx, paymentID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "payment not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if p.Status == model.PaymentStatusSuccess {
			return NewHTTPError(http.StatusBadRequest, "payment already confirmed")
		}
		if p.UserID != userID && !isAdmin {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

		o, err := r.Orders().FindByIDForUpdate(ctx, p.OrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//在庫減算。1件でも足りなければ全体をロールバック
		for _, it := range items {
			prod, err := r.Products().FindByIDForUpdate(ctx, it.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, fmt.Sprintf("product %d not found", it.ProductID))
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			newStock := prod.Stock - it.Quantity
			if newStock < 0 {
				return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("insufficient stock for %s", prod.Name))
			}
			if err := r.Inventory().SetStock(ctx, prod.ID, newStock); err != nil {
				u.log.Error("failed to decrement stock", slog.Int64("product_id", prod.ID), slog.Any("error", err))
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if err := r.Payments().UpdateStatus(ctx, paymentID, model.PaymentStatusSuccess); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Orders().UpdateStatus(ctx, o.ID, model.OrderStatusConfirmed); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		o.Status = model.OrderStatusConfirmed

		payments, err := r.Payments().ListByOrderID(ctx, o.ID)
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

func newTransactionID() string {
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
