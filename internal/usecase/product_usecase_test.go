package usecase_test

import (
	"context"
	"testing"

	"petstore/internal/domain/model"
	repo "petstore/internal/repository"
	"petstore/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newProductUC() (*usecase.ProductUsecase, *ProductRepoMock, *InventoryRepoMock, *AuditRepoMock) {
	products := new(ProductRepoMock)
	inventory := new(InventoryRepoMock)
	audit := new(AuditRepoMock)
	return usecase.NewProductUsecase(products, inventory, audit), products, inventory, audit
}

func TestProductUsecase_List_InvalidPage(t *testing.T) {
	uc, _, _, _ := newProductUC()

	_, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{Page: 0, Limit: 20})
	assertErrContains(t, err, "invalid page")
}

func TestProductUsecase_List_MinOverMax(t *testing.T) {
	uc, _, _, _ := newProductUC()

	min := int64(500)
	max := int64(100)
	_, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{
		Page: 1, Limit: 20, MinPrice: &min, MaxPrice: &max,
	})
	assertErrContains(t, err, "min_price must be <= max_price")
}

func TestProductUsecase_List_Success(t *testing.T) {
	uc, products, _, _ := newProductUC()

	products.On("ListPublic", mock.Anything, mock.MatchedBy(func(q repo.ProductListQuery) bool {
		return q.Page == 1 && q.Limit == 20 && q.Q == "dog"
	})).Return([]model.Product{{ID: 1, Name: "Dog Food"}}, int64(1), nil)

	out, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{
		Page: 1, Limit: 20, Q: "dog",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	assert.Len(t, out.Items, 1)
}

// 非公開商品は存在しない扱い（404）
func TestProductUsecase_Detail_InactiveIsNotFound(t *testing.T) {
	uc, products, _, _ := newProductUC()

	products.On("FindByID", mock.Anything, int64(5)).Return(model.Product{
		ID: 5, IsActive: false,
	}, nil)

	_, err := uc.GetProductDetail(context.Background(), 5)
	assertErrContains(t, err, "not found")
}

func TestProductUsecase_Create_NameRequired(t *testing.T) {
	uc, _, _, _ := newProductUC()

	_, err := uc.CreateProduct(context.Background(), 1, usecase.AdminProductInput{Name: "  "})
	assertErrContains(t, err, "name is required")
}

func TestProductUsecase_Create_NegativePrice(t *testing.T) {
	uc, _, _, _ := newProductUC()

	_, err := uc.CreateProduct(context.Background(), 1, usecase.AdminProductInput{Name: "x", Price: -1})
	assertErrContains(t, err, "price and stock must be >= 0")
}

// 在庫設定：調整履歴（delta）と監査ログを残す
func TestProductUsecase_SetStock_RecordsAdjustmentAndAudit(t *testing.T) {
	uc, products, inventory, audit := newProductUC()

	adminID := int64(9)
	productID := int64(100)

	products.On("FindByID", mock.Anything, productID).Return(model.Product{
		ID: productID, Name: "Dog Food", Stock: 5,
	}, nil)
	inventory.On("SetStock", mock.Anything, productID, int64(12)).Return(nil)
	inventory.On("CreateAdjustment", mock.Anything, mock.MatchedBy(func(a model.InventoryAdjustment) bool {
		return a.ProductID == productID &&
			a.AdminUserID == adminID &&
			a.Delta == int64(7) &&
			a.Reason == "restock"
	})).Return(nil)
	audit.On("Create", mock.Anything, mock.MatchedBy(func(a model.AuditLog) bool {
		return a.ActorUserID == adminID &&
			a.Action == model.AuditActionUpdateStock &&
			a.ResourceType == model.AuditResourceProduct &&
			a.ResourceID == productID &&
			a.BeforeJSON == `{"stock":5}` &&
			a.AfterJSON == `{"stock":12}`
	})).Return(nil)

	err := uc.SetStock(context.Background(), adminID, productID, usecase.SetStockInput{
		Stock: 12, Reason: "restock",
	})
	assert.NoError(t, err)

	inventory.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestProductUsecase_SetStock_NegativeRejected(t *testing.T) {
	uc, _, inventory, _ := newProductUC()

	err := uc.SetStock(context.Background(), 1, 100, usecase.SetStockInput{Stock: -1})
	assertErrContains(t, err, "stock must be >= 0")

	inventory.AssertNotCalled(t, "SetStock", mock.Anything, mock.Anything, mock.Anything)
}
