package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/product"
)

type mockProductService struct {
	listFn           func(ctx context.Context, page, pageSize int, viewerID string) ([]*model.Product, model.Page, error)
	searchFn         func(ctx context.Context, keyword string, page, pageSize int, viewerID string) ([]*model.Product, model.Page, error)
	getFn            func(ctx context.Context, id, viewerID string) (*model.Product, error)
	listMineFn       func(ctx context.Context, userID string, page, pageSize int) ([]*model.Product, model.Page, error)
	createFn         func(ctx context.Context, userID string, input product.CreateInput) (*model.Product, error)
	updateFn         func(ctx context.Context, actorID, productID string, input product.UpdateInput) (*model.Product, error)
	deleteFn         func(ctx context.Context, actorID, productID string) error
	saveFn           func(ctx context.Context, userID, productID string) error
	unsaveFn         func(ctx context.Context, userID, productID string) error
	listSavedFn      func(ctx context.Context, userID string, page, pageSize int) ([]*model.Product, model.Page, error)
	addToCartFn      func(ctx context.Context, userID, productID string) error
	removeFromCartFn func(ctx context.Context, userID, productID string) error
	listCartFn       func(ctx context.Context, userID string) ([]*model.CartItem, []*model.CartItem, error)
}

var _ ProductServiceInterface = (*mockProductService)(nil)

func (m *mockProductService) List(ctx context.Context, page, pageSize int, viewerID string) ([]*model.Product, model.Page, error) {
	return m.listFn(ctx, page, pageSize, viewerID)
}

func (m *mockProductService) Search(ctx context.Context, keyword string, page, pageSize int, viewerID string) ([]*model.Product, model.Page, error) {
	return m.searchFn(ctx, keyword, page, pageSize, viewerID)
}

func (m *mockProductService) Get(ctx context.Context, id, viewerID string) (*model.Product, error) {
	return m.getFn(ctx, id, viewerID)
}

func (m *mockProductService) ListMine(ctx context.Context, userID string, page, pageSize int) ([]*model.Product, model.Page, error) {
	return m.listMineFn(ctx, userID, page, pageSize)
}

func (m *mockProductService) Create(ctx context.Context, userID string, input product.CreateInput) (*model.Product, error) {
	return m.createFn(ctx, userID, input)
}

func (m *mockProductService) Update(ctx context.Context, actorID, productID string, input product.UpdateInput) (*model.Product, error) {
	return m.updateFn(ctx, actorID, productID, input)
}

func (m *mockProductService) Delete(ctx context.Context, actorID, productID string) error {
	return m.deleteFn(ctx, actorID, productID)
}

func (m *mockProductService) Save(ctx context.Context, userID, productID string) error {
	return m.saveFn(ctx, userID, productID)
}

func (m *mockProductService) Unsave(ctx context.Context, userID, productID string) error {
	return m.unsaveFn(ctx, userID, productID)
}

func (m *mockProductService) ListSaved(ctx context.Context, userID string, page, pageSize int) ([]*model.Product, model.Page, error) {
	return m.listSavedFn(ctx, userID, page, pageSize)
}

func (m *mockProductService) AddToCart(ctx context.Context, userID, productID string) error {
	return m.addToCartFn(ctx, userID, productID)
}

func (m *mockProductService) RemoveFromCart(ctx context.Context, userID, productID string) error {
	return m.removeFromCartFn(ctx, userID, productID)
}

func (m *mockProductService) ListCart(ctx context.Context, userID string) ([]*model.CartItem, []*model.CartItem, error) {
	return m.listCartFn(ctx, userID)
}

func testProduct(id string) *model.Product {
	return &model.Product{
		ID:         id,
		UserID:     "seller-1",
		Title:      "面接対策講座",
		Content:    "<p>講座の説明</p>",
		Price:      50000,
		Discount:   10000,
		AuthorName: "鈴木商店",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

func TestProductHandler_Get(t *testing.T) {
	service := &mockProductService{
		getFn: func(_ context.Context, id, viewerID string) (*model.Product, error) {
			p := testProduct(id)
			p.Saved = viewerID != ""
			return p, nil
		},
	}
	h := NewProductHandler(service)

	req := authedRequest(http.MethodGet, "/product/product-1", "viewer-1", "")
	req = withURLParams(req, map[string]string{"id": "product-1"})
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp productResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスのデコードに失敗: %v", err)
	}
	if resp.Price != 50000 || resp.Discount != 10000 {
		t.Errorf("price = %d, discount = %d", resp.Price, resp.Discount)
	}
	if !resp.Saved {
		t.Error("認証済み閲覧者の保存状態が反映されていない")
	}
}

func TestProductHandler_Create(t *testing.T) {
	service := &mockProductService{
		createFn: func(_ context.Context, userID string, input product.CreateInput) (*model.Product, error) {
			if input.Price != 30000 {
				t.Errorf("price = %d", input.Price)
			}
			p := testProduct("product-1")
			p.Title = input.Title
			p.Price = input.Price
			return p, nil
		},
	}
	h := NewProductHandler(service)

	body := `{"title":"履歴書添削","content":"<p>説明</p>","price":30000}`
	rec := httptest.NewRecorder()
	h.Create(rec, authedRequest(http.MethodPost, "/product", "seller-1", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
}

func TestProductHandler_Delete_NotFound(t *testing.T) {
	service := &mockProductService{
		deleteFn: func(_ context.Context, _, productID string) error {
			return model.NewProductNotFoundError(productID)
		},
	}
	h := NewProductHandler(service)

	req := authedRequest(http.MethodDelete, "/product/missing", "seller-1", "")
	req = withURLParams(req, map[string]string{"id": "missing"})
	rec := httptest.NewRecorder()

	h.Delete(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestProductHandler_AddToCart(t *testing.T) {
	var gotUserID, gotProductID string
	service := &mockProductService{
		addToCartFn: func(_ context.Context, userID, productID string) error {
			gotUserID = userID
			gotProductID = productID
			return nil
		},
	}
	h := NewProductHandler(service)

	req := authedRequest(http.MethodPost, "/product/product-1/cart", "user-1", "")
	req = withURLParams(req, map[string]string{"id": "product-1"})
	rec := httptest.NewRecorder()

	h.AddToCart(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if gotUserID != "user-1" || gotProductID != "product-1" {
		t.Errorf("userID = %q, productID = %q", gotUserID, gotProductID)
	}
}

func TestProductHandler_ListCart(t *testing.T) {
	expires := time.Now().Add(24 * time.Hour)
	service := &mockProductService{
		listCartFn: func(_ context.Context, userID string) ([]*model.CartItem, []*model.CartItem, error) {
			pending := []*model.CartItem{
				{ID: "cart-1", UserID: userID, ProductID: "product-1", ExpiresAt: &expires, Product: testProduct("product-1")},
			}
			bought := []*model.CartItem{
				{ID: "cart-2", UserID: userID, ProductID: "product-2", IsBought: true, Product: testProduct("product-2")},
			}
			return pending, bought, nil
		},
	}
	h := NewProductHandler(service)

	rec := httptest.NewRecorder()
	h.ListCart(rec, authedRequest(http.MethodGet, "/product/cart", "user-1", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp cartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスのデコードに失敗: %v", err)
	}
	if len(resp.Pending) != 1 || len(resp.Bought) != 1 {
		t.Fatalf("pending = %d件, bought = %d件", len(resp.Pending), len(resp.Bought))
	}
	if resp.Pending[0].ExpiresAt == nil {
		t.Error("pendingに有効期限がない")
	}
	if !resp.Bought[0].IsBought {
		t.Error("boughtのis_boughtがfalse")
	}
	if resp.Pending[0].Product == nil || resp.Pending[0].Product.Title != "面接対策講座" {
		t.Errorf("product = %+v", resp.Pending[0].Product)
	}
}

func TestProductHandler_ListCart_Unauthenticated(t *testing.T) {
	h := NewProductHandler(&mockProductService{})

	rec := httptest.NewRecorder()
	h.ListCart(rec, httptest.NewRequest(http.MethodGet, "/product/cart", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestProductHandler_RemoveFromCart(t *testing.T) {
	var removed string
	service := &mockProductService{
		removeFromCartFn: func(_ context.Context, _, productID string) error {
			removed = productID
			return nil
		},
	}
	h := NewProductHandler(service)

	req := authedRequest(http.MethodDelete, "/product/product-1/cart", "user-1", "")
	req = withURLParams(req, map[string]string{"id": "product-1"})
	rec := httptest.NewRecorder()

	h.RemoveFromCart(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if removed != "product-1" {
		t.Errorf("removed = %q", removed)
	}
}
