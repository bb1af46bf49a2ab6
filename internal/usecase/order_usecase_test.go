package usecase_test

import (
	"context"
	"testing"
	"time"

	"petstore/internal/domain/model"
	repo "petstore/internal/repository"
	"petstore/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// PlaceOrder tests
// =====================

func TestOrderUsecase_PlaceOrder_Unauthorized(t *testing.T) {
	tx := new(TxManagerMock)
	uc := usecase.NewOrderUsecase(tx, discardLogger())

	_, err := uc.PlaceOrder(context.Background(), 0, usecase.PlaceOrderInput{
		Items: []usecase.PlaceOrderItemInput{{ProductID: 1, Quantity: 1}},
	})
	assertErrContains(t, err, "unauthorized")
}

func TestOrderUsecase_PlaceOrder_EmptyItems(t *testing.T) {
	tx := new(TxManagerMock)
	uc := usecase.NewOrderUsecase(tx, discardLogger())

	_, err := uc.PlaceOrder(context.Background(), 1, usecase.PlaceOrderInput{})
	assertErrContains(t, err, "cart empty")
}

func TestOrderUsecase_PlaceOrder_InvalidQuantity(t *testing.T) {
	tx := new(TxManagerMock)
	uc := usecase.NewOrderUsecase(tx, discardLogger())

	_, err := uc.PlaceOrder(context.Background(), 1, usecase.PlaceOrderInput{
		Items:    []usecase.PlaceOrderItemInput{{ProductID: 1, Quantity: 0}},
		Shipping: usecase.ShippingInput{RecipientName: "a", Phone: "b", AddressLine: "c"},
	})
	assertErrContains(t, err, "invalid quantity")
}

// 単価と商品名はカタログを正とし、合計はサーバ側で再計算する
func TestOrderUsecase_PlaceOrder_RecomputesTotalsFromCatalog(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	itemsRepo := new(OrderItemRepoMock)
	productsRepo := new(ProductRepoMock)
	cartsRepo := new(CartRepoMock)

	tx.Repos = &TxReposMock{
		orders:     ordersRepo,
		orderItems: itemsRepo,
		products:   productsRepo,
		carts:      cartsRepo,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	userID := int64(7)

	productsRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{
		ID: 100, Name: "Dog Food 2kg", Price: 500, Stock: 10, IsActive: true,
	}, nil)
	productsRepo.On("FindByID", mock.Anything, int64(101)).Return(model.Product{
		ID: 101, Name: "Cat Toy", Price: 250, Stock: 5, IsActive: true,
	}, nil)

	ordersRepo.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.UserID == userID &&
			o.Status == model.OrderStatusPendingPayment &&
			o.Subtotal == int64(1250) &&
			o.ShippingFee == int64(50) &&
			o.Total == int64(1300) &&
			o.OrderNo != ""
	})).Return(int64(42), nil)

	itemsRepo.On("CreateBulk", mock.Anything, int64(42), mock.MatchedBy(func(items []model.OrderItem) bool {
		if len(items) != 2 {
			return false
		}
		// スナップショットはカタログ値（クライアント申告は無視）
		return items[0].ProductNameSnapshot == "Dog Food 2kg" &&
			items[0].UnitPriceSnapshot == int64(500) &&
			items[0].Subtotal == int64(1000) &&
			items[1].UnitPriceSnapshot == int64(250) &&
			items[1].Subtotal == int64(250)
	})).Return(nil)

	cartsRepo.On("FindActiveByUserID", mock.Anything, userID).Return(model.Cart{}, repo.ErrNotFound)

	uc := usecase.NewOrderUsecase(tx, discardLogger())

	out, err := uc.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{
		Items: []usecase.PlaceOrderItemInput{
			// クライアントは偽の価格を申告してくる
			{ProductID: 100, ProductPrice: 1, Quantity: 2, Subtotal: 2},
			{ProductID: 101, ProductPrice: 1, Quantity: 1, Subtotal: 1},
		},
		Shipping:    usecase.ShippingInput{RecipientName: "Somchai", Phone: "0812345678", AddressLine: "1 Main Rd"},
		ShippingFee: 50,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(42), out.ID)
	assert.Equal(t, "pending_payment", out.Status)
	assert.Equal(t, int64(1250), out.Subtotal)
	assert.Equal(t, int64(1300), out.Total)
	assert.Len(t, out.Items, 2)

	ordersRepo.AssertExpectations(t)
	itemsRepo.AssertExpectations(t)
}

func TestOrderUsecase_PlaceOrder_InactiveProduct(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	productsRepo := new(ProductRepoMock)

	tx.Repos = &TxReposMock{products: productsRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	productsRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{
		ID: 100, IsActive: false,
	}, nil)

	uc := usecase.NewOrderUsecase(tx, discardLogger())

	_, err := uc.PlaceOrder(ctx, 1, usecase.PlaceOrderInput{
		Items:    []usecase.PlaceOrderItemInput{{ProductID: 100, Quantity: 1}},
		Shipping: usecase.ShippingInput{RecipientName: "a", Phone: "b", AddressLine: "c"},
	})
	assertErrContains(t, err, "invalid product")
}

// 注文確定でACTIVEカートはCHECKED_OUTになり明細はクリアされる
func TestOrderUsecase_PlaceOrder_ChecksOutActiveCart(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	itemsRepo := new(OrderItemRepoMock)
	productsRepo := new(ProductRepoMock)
	cartsRepo := new(CartRepoMock)

	tx.Repos = &TxReposMock{
		orders:     ordersRepo,
		orderItems: itemsRepo,
		products:   productsRepo,
		carts:      cartsRepo,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	userID := int64(3)

	productsRepo.On("FindByID", mock.Anything, int64(1)).Return(model.Product{
		ID: 1, Name: "Bird Seed", Price: 90, IsActive: true,
	}, nil)
	ordersRepo.On("Create", mock.Anything, mock.Anything).Return(int64(10), nil)
	itemsRepo.On("CreateBulk", mock.Anything, int64(10), mock.Anything).Return(nil)

	cartsRepo.On("FindActiveByUserID", mock.Anything, userID).Return(model.Cart{ID: 77, UserID: userID}, nil)
	cartsRepo.On("UpdateStatus", mock.Anything, int64(77), model.CartStatusCheckedOut).Return(nil)
	cartsRepo.On("Clear", mock.Anything, int64(77)).Return(nil)

	uc := usecase.NewOrderUsecase(tx, discardLogger())

	_, err := uc.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{
		Items:    []usecase.PlaceOrderItemInput{{ProductID: 1, Quantity: 1}},
		Shipping: usecase.ShippingInput{RecipientName: "a", Phone: "b", AddressLine: "c"},
	})
	assert.NoError(t, err)

	cartsRepo.AssertExpectations(t)
}

// =====================
// ListMyOrders tests
// =====================

// 明細・支払いは注文IDの集合で一括取得し、注文ごとの往復をしない
func TestOrderUsecase_ListMyOrders_BatchFetch(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	itemsRepo := new(OrderItemRepoMock)
	paymentsRepo := new(PaymentRepoMock)

	tx.Repos = &TxReposMock{
		orders:     ordersRepo,
		orderItems: itemsRepo,
		payments:   paymentsRepo,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	userID := int64(5)
	orders := []model.Order{
		{ID: 11, UserID: userID, Status: model.OrderStatusConfirmed},
		{ID: 12, UserID: userID, Status: model.OrderStatusPendingPayment},
	}

	ordersRepo.On("ListByUserID", mock.Anything, userID).Return(orders, nil)
	itemsRepo.On("ListByOrderIDs", mock.Anything, []int64{11, 12}).Return([]model.OrderItem{
		{OrderID: 11, ProductID: 1, Quantity: 2},
		{OrderID: 12, ProductID: 2, Quantity: 1},
	}, nil)
	paymentsRepo.On("ListByOrderIDs", mock.Anything, []int64{11, 12}).Return([]model.Payment{
		{ID: 900, OrderID: 11, Status: model.PaymentStatusSuccess},
	}, nil)

	uc := usecase.NewOrderUsecase(tx, discardLogger())

	outs, err := uc.ListMyOrders(ctx, userID)
	assert.NoError(t, err)
	assert.Len(t, outs, 2)
	assert.Len(t, outs[0].Items, 1)
	assert.Len(t, outs[0].Payments, 1)
	assert.Len(t, outs[1].Payments, 0)

	// 一括取得のみ（ListByOrderIDは使わない）
	itemsRepo.AssertNotCalled(t, "ListByOrderID", mock.Anything, mock.Anything)
	paymentsRepo.AssertNotCalled(t, "ListByOrderID", mock.Anything, mock.Anything)
}

// =====================
// GetOrderDetail tests
// =====================

func TestOrderUsecase_GetOrderDetail_ForbiddenForNonOwner(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(9)).Return(model.Order{ID: 9, UserID: 2}, nil)

	uc := usecase.NewOrderUsecase(tx, discardLogger())

	_, err := uc.GetOrderDetail(ctx, 1, false, 9)
	assertErrContains(t, err, "forbidden")
}

func TestOrderUsecase_GetOrderDetail_AdminCanSeeAny(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	itemsRepo := new(OrderItemRepoMock)
	paymentsRepo := new(PaymentRepoMock)

	tx.Repos = &TxReposMock{
		orders:     ordersRepo,
		orderItems: itemsRepo,
		payments:   paymentsRepo,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByID", mock.Anything, int64(9)).Return(model.Order{ID: 9, UserID: 2}, nil)
	itemsRepo.On("ListByOrderID", mock.Anything, int64(9)).Return([]model.OrderItem{}, nil)
	paymentsRepo.On("ListByOrderID", mock.Anything, int64(9)).Return([]model.Payment{}, nil)

	uc := usecase.NewOrderUsecase(tx, discardLogger())

	out, err := uc.GetOrderDetail(ctx, 999, true, 9)
	assert.NoError(t, err)
	assert.Equal(t, int64(9), out.ID)
}

// =====================
// ConfirmDelivery tests
// =====================

func TestOrderUsecase_ConfirmDelivery_OnlyFromShipping(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(model.Order{
		ID: 5, UserID: 1, Status: model.OrderStatusConfirmed,
	}, nil)

	uc := usecase.NewOrderUsecase(tx, discardLogger())

	_, err := uc.ConfirmDelivery(ctx, 1, 5)
	assertErrContains(t, err, "not in shipping status")

	ordersRepo.AssertNotCalled(t, "MarkDelivered", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_ConfirmDelivery_OwnerOnly(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(model.Order{
		ID: 5, UserID: 2, Status: model.OrderStatusShipping,
	}, nil)

	uc := usecase.NewOrderUsecase(tx, discardLogger())

	_, err := uc.ConfirmDelivery(ctx, 1, 5)
	assertErrContains(t, err, "forbidden")
}

func TestOrderUsecase_ConfirmDelivery_Success(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	itemsRepo := new(OrderItemRepoMock)
	paymentsRepo := new(PaymentRepoMock)

	tx.Repos = &TxReposMock{
		orders:     ordersRepo,
		orderItems: itemsRepo,
		payments:   paymentsRepo,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(model.Order{
		ID: 5, UserID: 1, Status: model.OrderStatusShipping,
	}, nil)
	ordersRepo.On("MarkDelivered", mock.Anything, int64(5), mock.AnythingOfType("time.Time")).Return(nil)
	itemsRepo.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{}, nil)
	paymentsRepo.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.Payment{}, nil)

	uc := usecase.NewOrderUsecase(tx, discardLogger())

	out, err := uc.ConfirmDelivery(ctx, 1, 5)
	assert.NoError(t, err)
	assert.Equal(t, "completed", out.Status)
	if assert.NotNil(t, out.DeliveredAt) {
		assert.WithinDuration(t, time.Now(), *out.DeliveredAt, 5*time.Second)
	}

	ordersRepo.AssertExpectations(t)
}

// =====================
// Cancel tests
// =====================

func TestOrderUsecase_Cancel_RestoresStock(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	itemsRepo := new(OrderItemRepoMock)
	invRepo := new(InventoryRepoMock)
	paymentsRepo := new(PaymentRepoMock)

	tx.Repos = &TxReposMock{
		orders:     ordersRepo,
		orderItems: itemsRepo,
		inventory:  invRepo,
		payments:   paymentsRepo,
	}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByIDForUpdate", mock.Anything, int64(8)).Return(model.Order{
		ID: 8, UserID: 1, Status: model.OrderStatusConfirmed,
	}, nil)
	itemsRepo.On("ListByOrderID", mock.Anything, int64(8)).Return([]model.OrderItem{
		{OrderID: 8, ProductID: 100, Quantity: 2},
		{OrderID: 8, ProductID: 101, Quantity: 1},
	}, nil)
	invRepo.On("IncreaseStock", mock.Anything, int64(100), int64(2)).Return(nil)
	invRepo.On("IncreaseStock", mock.Anything, int64(101), int64(1)).Return(nil)
	ordersRepo.On("UpdateStatus", mock.Anything, int64(8), model.OrderStatusCancelled).Return(nil)
	paymentsRepo.On("ListByOrderID", mock.Anything, int64(8)).Return([]model.Payment{}, nil)

	uc := usecase.NewOrderUsecase(tx, discardLogger())

	out, err := uc.Cancel(ctx, 1, false, 8)
	assert.NoError(t, err)
	assert.Equal(t, "cancelled", out.Status)

	invRepo.AssertExpectations(t)
	ordersRepo.AssertExpectations(t)
}

func TestOrderUsecase_Cancel_RejectedStatuses(t *testing.T) {
	for _, st := range []model.OrderStatus{
		model.OrderStatusReadyToShip,
		model.OrderStatusShipping,
		model.OrderStatusCompleted,
		model.OrderStatusCancelled,
	} {
		t.Run(string(st), func(t *testing.T) {
			tx := new(TxManagerMock)
			ordersRepo := new(OrderRepoMock)
			invRepo := new(InventoryRepoMock)

			tx.Repos = &TxReposMock{orders: ordersRepo, inventory: invRepo}
			tx.On("WithinTx", mock.Anything).Return(nil)

			ordersRepo.On("FindByIDForUpdate", mock.Anything, int64(8)).Return(model.Order{
				ID: 8, UserID: 1, Status: st,
			}, nil)

			uc := usecase.NewOrderUsecase(tx, discardLogger())

			_, err := uc.Cancel(context.Background(), 1, false, 8)
			assertErrContains(t, err, "cannot be cancelled")

			invRepo.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
			ordersRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestOrderUsecase_Cancel_ForbiddenForNonOwner(t *testing.T) {
	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByIDForUpdate", mock.Anything, int64(8)).Return(model.Order{
		ID: 8, UserID: 2, Status: model.OrderStatusConfirmed,
	}, nil)

	uc := usecase.NewOrderUsecase(tx, discardLogger())

	_, err := uc.Cancel(context.Background(), 1, false, 8)
	assertErrContains(t, err, "forbidden")
}

// =====================
// CheckPurchase tests
// =====================

func TestOrderUsecase_CheckPurchase(t *testing.T) {
	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("HasPurchased", mock.Anything, int64(1), int64(100)).Return(true, nil)

	uc := usecase.NewOrderUsecase(tx, discardLogger())

	has, err := uc.CheckPurchase(context.Background(), 1, 100)
	assert.NoError(t, err)
	assert.True(t, has)
}
