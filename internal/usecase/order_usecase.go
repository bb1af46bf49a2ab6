package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"petstore/internal/domain/model"
	repo "petstore/internal/repository"

	"github.com/google/uuid"
)

type OrderUsecase struct {
	tx  repo.TransactionManager
	log *slog.Logger
}

func NewOrderUsecase(tx repo.TransactionManager, log *slog.Logger) *OrderUsecase {
	return &OrderUsecase{tx: tx, log: log}
}

// POST /api/orders の入力。
// subtotal/total は表示用のエコーとして受けるだけで、サーバ側で再計算する。
type PlaceOrderItemInput struct {
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	ProductPrice int64  `json:"product_price"`
	Quantity     int64  `json:"quantity"`
	Subtotal     int64  `json:"subtotal"`
}

type ShippingInput struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	AddressLine   string `json:"address_line"`
	Subdistrict   string `json:"subdistrict"`
	District      string `json:"district"`
	Province      string `json:"province"`
	PostalCode    string `json:"postal_code"`
}

type PlaceOrderInput struct {
	Items       []PlaceOrderItemInput
	Shipping    ShippingInput
	Subtotal    int64
	ShippingFee int64
	Total       int64
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"product_name"`
	Price     int64  `json:"product_price"`
	Quantity  int64  `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type PaymentOutput struct {
	ID            int64     `json:"id"`
	OrderID       int64     `json:"order_id"`
	Method        string    `json:"payment_method"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type ShippingOutput struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	AddressLine   string `json:"address_line"`
	Subdistrict   string `json:"subdistrict"`
	District      string `json:"district"`
	Province      string `json:"province"`
	PostalCode    string `json:"postal_code"`
}

type OrderOutput struct {
	ID           int64             `json:"id"`
	OrderNo      string            `json:"order_no"`
	UserID       int64             `json:"user_id"`
	CustomerName string            `json:"customer_name,omitempty"`
	Status       string            `json:"status"`
	Shipping     ShippingOutput    `json:"shipping"`
	Subtotal     int64             `json:"subtotal"`
	ShippingFee  int64             `json:"shipping_fee"`
	Total        int64             `json:"total"`
	CreatedAt    time.Time         `json:"created_at"`
	DeliveredAt  *time.Time        `json:"delivered_at,omitempty"`
	Items        []OrderItemOutput `json:"items"`
	Payments     []PaymentOutput   `json:"payments"`
}

// PlaceOrder は注文を作成する。明細・注文行の挿入は単一Tx。
// 商品名・単価はカタログからスナップショットし、小計・合計はサーバ側で再計算する。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if len(in.Items) == 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
		}
		if it.Quantity < 1 {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}
	}
	if in.ShippingFee < 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid shipping_fee")
	}
	if strings.TrimSpace(in.Shipping.RecipientName) == "" ||
		strings.TrimSpace(in.Shipping.Phone) == "" ||
		strings.TrimSpace(in.Shipping.AddressLine) == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid shipping address")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := time.Now()

		//明細を作る。単価と商品名はカタログ側を正とする
		orderItems := make([]model.OrderItem, 0, len(in.Items))
		var subtotal int64 = 0

		for _, it := range in.Items {
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusBadRequest, "invalid product")
			}
			if err != nil {
				u.log.Error("failed to load product", slog.Int64("product_id", it.ProductID), slog.Any("error", err))
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusBadRequest, "invalid product")
			}

			line := p.Price * it.Quantity
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           p.ID,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   p.Price,
				Quantity:            it.Quantity,
				Subtotal:            line,
				CreatedAt:           now,
			})
			subtotal += line
		}

		total := subtotal + in.ShippingFee

		order := model.Order{
			UserID:        userID,
			OrderNo:       newOrderNo(now),
			Status:        model.OrderStatusPendingPayment,
			RecipientName: in.Shipping.RecipientName,
			Phone:         in.Shipping.Phone,
			AddressLine:   in.Shipping.AddressLine,
			Subdistrict:   in.Shipping.Subdistrict,
			District:      in.Shipping.District,
			Province:      in.Shipping.Province,
			PostalCode:    in.Shipping.PostalCode,
			Subtotal:      subtotal,
			ShippingFee:   in.ShippingFee,
			Total:         total,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			u.log.Error("failed to create order", slog.Any("error", err))
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			u.log.Error("failed to create order items", slog.Int64("order_id", orderID), slog.Any("error", err))
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//ACTIVEカートがあればCHECKED_OUTにして明細をクリア（再注文防止）
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == nil {
			if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if err := r.Carts().Clear(ctx, cart.ID); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		} else if !errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order.ID = orderID
		out = toOrderOutput(order, orderItems, nil)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// ListMyOrders は本人の注文を新しい順に返す。
// 明細と支払いは注文ID一式でまとめて取り、メモリ上でグルーピングする（注文ごとの往復をしない）。
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListByUserID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs, err = enrichOrders(ctx, r, orders)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// GetOrderDetail は本人か管理者のみ。どちらでもなければ403。
func (u *OrderUsecase) GetOrderDetail(ctx context.Context, userID int64, isAdmin bool, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID && !isAdmin {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}

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
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// ConfirmDelivery は配達完了の確定。本人のみ、statusがshippingのときだけ。
// 注文行をロックして同時操作を直列化する。
func (u *OrderUsecase) ConfirmDelivery(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
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
		if o.UserID != userID {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}
		if o.Status != model.OrderStatusShipping {
			return NewHTTPError(http.StatusBadRequest, "order is not in shipping status")
		}

		now := time.Now()
		if err := r.Orders().MarkDelivered(ctx, orderID, now); err != nil {
			u.log.Error("failed to mark delivered", slog.Int64("order_id", orderID), slog.Any("error", err))
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		o.Status = model.OrderStatusCompleted
		o.DeliveredAt = &now

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
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// Cancel は注文キャンセル。本人か管理者のみ。
// completed / cancelled / shipping / ready_to_ship からは不可。
// 注文行をロックし、各明細の数量を商品在庫に戻してからcancelledにする。
func (u *OrderUsecase) Cancel(ctx context.Context, userID int64, isAdmin bool, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
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
		if o.UserID != userID && !isAdmin {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}
		if !model.CanCancelFrom(o.Status) {
			return NewHTTPError(http.StatusBadRequest, "order cannot be cancelled in status "+string(o.Status))
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//在庫戻し
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				u.log.Error("failed to restore stock", slog.Int64("product_id", it.ProductID), slog.Any("error", err))
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		o.Status = model.OrderStatusCancelled

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

// CheckPurchase は対象商品を購入済み（completed/confirmed）かを返す。副作用なし。
func (u *OrderUsecase) CheckPurchase(ctx context.Context, userID int64, productID int64) (bool, error) {
	if userID <= 0 {
		return false, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return false, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	var purchased bool

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		has, err := r.Orders().HasPurchased(ctx, userID, productID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		purchased = has
		return nil
	})

	if err != nil {
		return false, err
	}
	return purchased, nil
}

// 注文番号：時刻由来＋ランダムサフィックス。uniqueインデックスが最後の砦。
func newOrderNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "PS" + now.Format("20060102150405") + suffix
}

// enrichOrders は注文の集合に明細と支払い履歴を付ける。
// 注文IDの集合で一括取得してからorder_idでグルーピングする。
func enrichOrders(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderOutput, error) {
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	items, err := r.OrderItems().ListByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	payments, err := r.Payments().ListByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	itemsByOrder := make(map[int64][]model.OrderItem, len(orders))
	for _, it := range items {
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], it)
	}
	paymentsByOrder := make(map[int64][]model.Payment, len(orders))
	for _, p := range payments {
		paymentsByOrder[p.OrderID] = append(paymentsByOrder[p.OrderID], p)
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, toOrderOutput(o, itemsByOrder[o.ID], paymentsByOrder[o.ID]))
	}
	return outs, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem, payments []model.Payment) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal,
		})
	}

	outPayments := make([]PaymentOutput, 0, len(payments))
	for _, p := range payments {
		outPayments = append(outPayments, toPaymentOutput(p))
	}

	return OrderOutput{
		ID:      o.ID,
		OrderNo: o.OrderNo,
		UserID:  o.UserID,
		Status:  string(o.Status),
		Shipping: ShippingOutput{
			RecipientName: o.RecipientName,
			Phone:         o.Phone,
			AddressLine:   o.AddressLine,
			Subdistrict:   o.Subdistrict,
			District:      o.District,
			Province:      o.Province,
			PostalCode:    o.PostalCode,
		},
		Subtotal:    o.Subtotal,
		ShippingFee: o.ShippingFee,
		Total:       o.Total,
		CreatedAt:   o.CreatedAt,
		DeliveredAt: o.DeliveredAt,
		Items:       outItems,
		Payments:    outPayments,
	}
}

func toPaymentOutput(p model.Payment) PaymentOutput {
	return PaymentOutput{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Method:        string(p.Method),
		Amount:        p.Amount,
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		CreatedAt:     p.CreatedAt,
	}
}
