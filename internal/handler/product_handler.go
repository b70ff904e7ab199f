package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/product"
)

// ProductServiceInterface は商品ハンドラーが必要とするサービスインターフェース。
type ProductServiceInterface interface {
	List(ctx context.Context, page, pageSize int, viewerID string) ([]*model.Product, model.Page, error)
	Search(ctx context.Context, keyword string, page, pageSize int, viewerID string) ([]*model.Product, model.Page, error)
	Get(ctx context.Context, id, viewerID string) (*model.Product, error)
	ListMine(ctx context.Context, userID string, page, pageSize int) ([]*model.Product, model.Page, error)
	Create(ctx context.Context, userID string, input product.CreateInput) (*model.Product, error)
	Update(ctx context.Context, actorID, productID string, input product.UpdateInput) (*model.Product, error)
	Delete(ctx context.Context, actorID, productID string) error
	Save(ctx context.Context, userID, productID string) error
	Unsave(ctx context.Context, userID, productID string) error
	ListSaved(ctx context.Context, userID string, page, pageSize int) ([]*model.Product, model.Page, error)
	AddToCart(ctx context.Context, userID, productID string) error
	RemoveFromCart(ctx context.Context, userID, productID string) error
	ListCart(ctx context.Context, userID string) (pending, bought []*model.CartItem, err error)
}

// ProductHandler は商品のHTTPハンドラー。
type ProductHandler struct {
	service ProductServiceInterface
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(service ProductServiceInterface) *ProductHandler {
	return &ProductHandler{service: service}
}

// --- リクエスト/レスポンス型 ---

type productRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Thumbnail   string `json:"thumbnail"`
	DetailImage string `json:"detail_image"`
	Price       int    `json:"price"`
	Discount    int    `json:"discount"`
}

type productResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Thumbnail   string    `json:"thumbnail"`
	DetailImage string    `json:"detail_image"`
	Price       int       `json:"price"`
	Discount    int       `json:"discount"`
	ViewCount   int       `json:"view_count"`
	AuthorName  string    `json:"author_name"`
	Saved       bool      `json:"saved"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type productListResponse struct {
	Products []productResponse `json:"products"`
	Page     model.Page        `json:"page"`
}

type cartItemResponse struct {
	ID        string           `json:"id"`
	ProductID string           `json:"product_id"`
	IsBought  bool             `json:"is_bought"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	Product   *productResponse `json:"product,omitempty"`
}

type cartResponse struct {
	Pending []cartItemResponse `json:"pending"`
	Bought  []cartItemResponse `json:"bought"`
}

func toProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Title:       p.Title,
		Content:     p.Content,
		Thumbnail:   p.Thumbnail,
		DetailImage: p.DetailImage,
		Price:       p.Price,
		Discount:    p.Discount,
		ViewCount:   p.ViewCount,
		AuthorName:  p.AuthorName,
		Saved:       p.Saved,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProductListResponse(products []*model.Product, page model.Page) productListResponse {
	resp := productListResponse{
		Products: make([]productResponse, 0, len(products)),
		Page:     page,
	}
	for _, p := range products {
		resp.Products = append(resp.Products, toProductResponse(p))
	}
	return resp
}

func toCartItemResponses(items []*model.CartItem) []cartItemResponse {
	resp := make([]cartItemResponse, 0, len(items))
	for _, item := range items {
		cr := cartItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			IsBought:  item.IsBought,
			ExpiresAt: item.ExpiresAt,
		}
		if item.Product != nil {
			pr := toProductResponse(item.Product)
			cr.Product = &pr
		}
		resp = append(resp, cr)
	}
	return resp
}

// List は商品一覧を返す。
// GET /product?page=1&page_size=10
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	products, pageInfo, err := h.service.List(r.Context(), page, pageSize, viewerID(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductListResponse(products, pageInfo))
}

// Search は商品の全文検索を行う。
// GET /product/search?keyword=xxx
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	keyword := r.URL.Query().Get("keyword")

	products, pageInfo, err := h.service.Search(r.Context(), keyword, page, pageSize, viewerID(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductListResponse(products, pageInfo))
}

// Get は商品詳細を返す。
// GET /product/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), viewerID(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// ListMine は自分が登録した商品一覧を返す。
// GET /product/me
func (h *ProductHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	page, pageSize := pageParams(r)

	products, pageInfo, err := h.service.ListMine(r.Context(), userID, page, pageSize)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductListResponse(products, pageInfo))
}

// Create は商品を登録する。
// POST /product
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req productRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	p, err := h.service.Create(r.Context(), userID, product.CreateInput{
		Title:       req.Title,
		Content:     req.Content,
		Thumbnail:   req.Thumbnail,
		DetailImage: req.DetailImage,
		Price:       req.Price,
		Discount:    req.Discount,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

// Update は商品を更新する。登録者本人または管理者のみ。
// PUT /product/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req productRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	p, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), product.UpdateInput{
		Title:       req.Title,
		Content:     req.Content,
		Thumbnail:   req.Thumbnail,
		DetailImage: req.DetailImage,
		Price:       req.Price,
		Discount:    req.Discount,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// Delete は商品を削除する。登録者本人または管理者のみ。
// DELETE /product/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Save は商品を保存リストに追加する。
// POST /product/{id}/save
func (h *ProductHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Save(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unsave は商品を保存リストから外す。冪等。
// DELETE /product/{id}/save
func (h *ProductHandler) Unsave(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Unsave(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSaved は保存済み商品の一覧を返す。
// GET /product/saved
func (h *ProductHandler) ListSaved(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	page, pageSize := pageParams(r)

	products, pageInfo, err := h.service.ListSaved(r.Context(), userID, page, pageSize)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductListResponse(products, pageInfo))
}

// AddToCart は商品をカートに追加する。
// POST /product/{id}/cart
func (h *ProductHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.AddToCart(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveFromCart は商品をカートから外す。冪等。
// DELETE /product/{id}/cart
func (h *ProductHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveFromCart(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListCart はカートの内容を未購入と購入済みに分けて返す。
// GET /product/cart
func (h *ProductHandler) ListCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	pending, bought, err := h.service.ListCart(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cartResponse{
		Pending: toCartItemResponses(pending),
		Bought:  toCartItemResponses(bought),
	})
}
