package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/careerhub/internal/article"
	"github.com/hitoshi/careerhub/internal/model"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	List(ctx context.Context, page, pageSize int, viewerID string) ([]*model.Article, model.Page, error)
	Search(ctx context.Context, keyword string, page, pageSize int, viewerID string) ([]*model.Article, model.Page, error)
	Get(ctx context.Context, id, viewerID string) (*model.Article, error)
	ListMine(ctx context.Context, userID string, page, pageSize int) ([]*model.Article, model.Page, error)
	Create(ctx context.Context, userID string, input article.CreateInput) (*model.Article, error)
	Update(ctx context.Context, actorID, articleID string, input article.UpdateInput) (*model.Article, error)
	Delete(ctx context.Context, actorID, articleID string) error
	Save(ctx context.Context, userID, articleID string) error
	Unsave(ctx context.Context, userID, articleID string) error
	ListSaved(ctx context.Context, userID string, page, pageSize int) ([]*model.Article, model.Page, error)
}

// ArticleHandler は記事のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface) *ArticleHandler {
	return &ArticleHandler{service: service}
}

// --- リクエスト/レスポンス型 ---

type articleRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Thumbnail string `json:"thumbnail"`
}

type articleResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Thumbnail  string    `json:"thumbnail"`
	ViewCount  int       `json:"view_count"`
	AuthorName string    `json:"author_name"`
	Saved      bool      `json:"saved"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type articleListResponse struct {
	Articles []articleResponse `json:"articles"`
	Page     model.Page        `json:"page"`
}

func toArticleResponse(a *model.Article) articleResponse {
	return articleResponse{
		ID:         a.ID,
		Title:      a.Title,
		Content:    a.Content,
		Thumbnail:  a.Thumbnail,
		ViewCount:  a.ViewCount,
		AuthorName: a.AuthorName,
		Saved:      a.Saved,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func toArticleListResponse(articles []*model.Article, page model.Page) articleListResponse {
	resp := articleListResponse{
		Articles: make([]articleResponse, 0, len(articles)),
		Page:     page,
	}
	for _, a := range articles {
		resp.Articles = append(resp.Articles, toArticleResponse(a))
	}
	return resp
}

// List は記事一覧を返す。任意ガード配下で保存済みフラグを埋める。
// GET /article?page=1&page_size=10
func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	articles, pageInfo, err := h.service.List(r.Context(), page, pageSize, viewerID(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toArticleListResponse(articles, pageInfo))
}

// Search は記事の全文検索を行う。
// GET /article/search?keyword=xxx&page=1
func (h *ArticleHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	keyword := r.URL.Query().Get("keyword")

	articles, pageInfo, err := h.service.Search(r.Context(), keyword, page, pageSize, viewerID(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toArticleListResponse(articles, pageInfo))
}

// Get は記事詳細を返す。閲覧のたびにビューカウントが増える。
// GET /article/{id}
func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), viewerID(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toArticleResponse(a))
}

// ListMine は自分が作成した記事一覧を返す。
// GET /article/me
func (h *ArticleHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	page, pageSize := pageParams(r)

	articles, pageInfo, err := h.service.ListMine(r.Context(), userID, page, pageSize)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toArticleListResponse(articles, pageInfo))
}

// Create は記事を作成する。本文はサービス層でサニタイズされる。
// POST /article
func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req articleRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	a, err := h.service.Create(r.Context(), userID, article.CreateInput{
		Title:     req.Title,
		Content:   req.Content,
		Thumbnail: req.Thumbnail,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toArticleResponse(a))
}

// Update は記事を更新する。作成者本人または管理者のみ。
// PUT /article/{id}
func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req articleRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	a, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), article.UpdateInput{
		Title:     req.Title,
		Content:   req.Content,
		Thumbnail: req.Thumbnail,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toArticleResponse(a))
}

// Delete は記事を削除する。作成者本人または管理者のみ。
// DELETE /article/{id}
func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// Save は記事を保存リストに追加する。
// POST /article/{id}/save
func (h *ArticleHandler) Save(w http.ResponseWriter, r *http.Request) {
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

// Unsave は記事を保存リストから外す。冪等。
// DELETE /article/{id}/save
func (h *ArticleHandler) Unsave(w http.ResponseWriter, r *http.Request) {
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

// ListSaved は保存済み記事の一覧を返す。
// GET /article/saved
func (h *ArticleHandler) ListSaved(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	page, pageSize := pageParams(r)

	articles, pageInfo, err := h.service.ListSaved(r.Context(), userID, page, pageSize)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toArticleListResponse(articles, pageInfo))
}
