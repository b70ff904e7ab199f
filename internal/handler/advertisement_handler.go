package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/careerhub/internal/advertisement"
	"github.com/hitoshi/careerhub/internal/model"
)

// AdvertisementServiceInterface は広告ハンドラーが必要とするサービスインターフェース。
type AdvertisementServiceInterface interface {
	ListBySlot(ctx context.Context, adNumber int) ([]*model.Advertisement, error)
	ListAll(ctx context.Context) ([]*model.Advertisement, error)
	Get(ctx context.Context, id string) (*model.Advertisement, error)
	Create(ctx context.Context, input advertisement.AdInput) (*model.Advertisement, error)
	Update(ctx context.Context, id string, input advertisement.AdInput) (*model.Advertisement, error)
	Delete(ctx context.Context, id string) error
}

// AdvertisementHandler は広告のHTTPハンドラー。
type AdvertisementHandler struct {
	service AdvertisementServiceInterface
}

// NewAdvertisementHandler はAdvertisementHandlerを生成する。
func NewAdvertisementHandler(service AdvertisementServiceInterface) *AdvertisementHandler {
	return &AdvertisementHandler{service: service}
}

type advertisementRequest struct {
	AdNumber    int    `json:"ad_number"`
	ImagePC     string `json:"image_pc"`
	ImageMobile string `json:"image_mobile"`
	Link        string `json:"link"`
	Memo        string `json:"memo"`
}

type advertisementResponse struct {
	ID          string    `json:"id"`
	AdNumber    int       `json:"ad_number"`
	ImagePC     string    `json:"image_pc"`
	ImageMobile string    `json:"image_mobile"`
	Link        string    `json:"link"`
	Memo        string    `json:"memo"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toAdvertisementResponse(ad *model.Advertisement) advertisementResponse {
	return advertisementResponse{
		ID:          ad.ID,
		AdNumber:    ad.AdNumber,
		ImagePC:     ad.ImagePC,
		ImageMobile: ad.ImageMobile,
		Link:        ad.Link,
		Memo:        ad.Memo,
		CreatedAt:   ad.CreatedAt,
		UpdatedAt:   ad.UpdatedAt,
	}
}

func toAdvertisementResponses(ads []*model.Advertisement) []advertisementResponse {
	resp := make([]advertisementResponse, 0, len(ads))
	for _, ad := range ads {
		resp = append(resp, toAdvertisementResponse(ad))
	}
	return resp
}

// ListBySlot は指定スロットの広告を返す。未認証でも参照できる。
// GET /advertisement?ad_number=1
func (h *AdvertisementHandler) ListBySlot(w http.ResponseWriter, r *http.Request) {
	adNumber, err := strconv.Atoi(r.URL.Query().Get("ad_number"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_AD_NUMBER",
			Message:  "ad_numberには数値を指定してください",
			Category: "validation",
			Action:   "クエリパラメータを確認してください",
		})
		return
	}

	ads, svcErr := h.service.ListBySlot(r.Context(), adNumber)
	if svcErr != nil {
		handleServiceError(w, svcErr)
		return
	}

	writeJSON(w, http.StatusOK, toAdvertisementResponses(ads))
}

// ListAll は全広告を返す。管理者のみ。
// GET /advertisement/all
func (h *AdvertisementHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	ads, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAdvertisementResponses(ads))
}

// Get は広告の詳細を返す。管理者のみ。
// GET /advertisement/{id}
func (h *AdvertisementHandler) Get(w http.ResponseWriter, r *http.Request) {
	ad, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAdvertisementResponse(ad))
}

// Create は広告を登録する。管理者のみ。
// POST /advertisement
func (h *AdvertisementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req advertisementRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	ad, err := h.service.Create(r.Context(), advertisement.AdInput{
		AdNumber:    req.AdNumber,
		ImagePC:     req.ImagePC,
		ImageMobile: req.ImageMobile,
		Link:        req.Link,
		Memo:        req.Memo,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAdvertisementResponse(ad))
}

// Update は広告を更新する。管理者のみ。
// PUT /advertisement/{id}
func (h *AdvertisementHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req advertisementRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	ad, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), advertisement.AdInput{
		AdNumber:    req.AdNumber,
		ImagePC:     req.ImagePC,
		ImageMobile: req.ImageMobile,
		Link:        req.Link,
		Memo:        req.Memo,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAdvertisementResponse(ad))
}

// Delete は広告を削除する。管理者のみ。
// DELETE /advertisement/{id}
func (h *AdvertisementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
