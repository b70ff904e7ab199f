package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/careerhub/internal/career"
	"github.com/hitoshi/careerhub/internal/model"
)

// CareerServiceInterface は経歴ハンドラーが必要とするサービスインターフェース。
type CareerServiceInterface interface {
	ListMine(ctx context.Context, userID string) ([]*model.Career, error)
	Create(ctx context.Context, userID string, input career.CareerInput) (*model.Career, error)
	Update(ctx context.Context, userID, careerID string, input career.CareerInput) (*model.Career, error)
	Delete(ctx context.Context, userID, careerID string) error
	ListJobRanks(ctx context.Context) ([]*model.JobRank, error)
	CreateJobRank(ctx context.Context, name string, sortOrder int) (*model.JobRank, error)
	DeleteJobRank(ctx context.Context, id string) error
	ListPrimaryOccupations(ctx context.Context) ([]*model.Occupation, error)
	ListSecondaryOccupations(ctx context.Context, parentID string) ([]*model.Occupation, error)
	CreateOccupation(ctx context.Context, name string, parentID string) (*model.Occupation, error)
	DeleteOccupation(ctx context.Context, id string) error
}

// CareerHandler は経歴と職種カタログのHTTPハンドラー。
type CareerHandler struct {
	service CareerServiceInterface
}

// NewCareerHandler はCareerHandlerを生成する。
func NewCareerHandler(service CareerServiceInterface) *CareerHandler {
	return &CareerHandler{service: service}
}

type careerRequest struct {
	Company      string     `json:"company"`
	JobRankID    *string    `json:"job_rank_id"`
	OccupationID *string    `json:"occupation_id"`
	StartedAt    *time.Time `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at"`
	IsCurrent    bool       `json:"is_current"`
}

func (req careerRequest) toInput() career.CareerInput {
	return career.CareerInput{
		Company:      req.Company,
		JobRankID:    req.JobRankID,
		OccupationID: req.OccupationID,
		StartedAt:    req.StartedAt,
		EndedAt:      req.EndedAt,
		IsCurrent:    req.IsCurrent,
	}
}

type careerResponse struct {
	ID           string     `json:"id"`
	Company      string     `json:"company"`
	JobRankID    *string    `json:"job_rank_id,omitempty"`
	OccupationID *string    `json:"occupation_id,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	IsCurrent    bool       `json:"is_current"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type jobRankResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

type occupationResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Primary  bool    `json:"primary"`
	ParentID *string `json:"parent_id,omitempty"`
}

type jobRankRequest struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

type occupationRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
}

func toCareerResponse(c *model.Career) careerResponse {
	return careerResponse{
		ID:           c.ID,
		Company:      c.Company,
		JobRankID:    c.JobRankID,
		OccupationID: c.OccupationID,
		StartedAt:    c.StartedAt,
		EndedAt:      c.EndedAt,
		IsCurrent:    c.IsCurrent,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toOccupationResponses(occupations []*model.Occupation) []occupationResponse {
	resp := make([]occupationResponse, 0, len(occupations))
	for _, o := range occupations {
		resp = append(resp, occupationResponse{
			ID:       o.ID,
			Name:     o.Name,
			Primary:  o.Primary,
			ParentID: o.ParentID,
		})
	}
	return resp
}

// ListMine は自分の経歴一覧を返す。
// GET /career
func (h *CareerHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	careers, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]careerResponse, 0, len(careers))
	for _, c := range careers {
		resp = append(resp, toCareerResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create は経歴を追加する.
// POST /career
func (h *CareerHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req careerRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), userID, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCareerResponse(c))
}

// Update は自分の経歴を更新する。
// PUT /career/{id}
func (h *CareerHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req careerRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	c, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCareerResponse(c))
}

// Delete は自分の経歴を削除する。
// DELETE /career/{id}
func (h *CareerHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// ListJobRanks は役職カタログをsort_order順で返す。
// GET /career/job-ranks
func (h *CareerHandler) ListJobRanks(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.service.ListJobRanks(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]jobRankResponse, 0, len(ranks))
	for _, jr := range ranks {
		resp = append(resp, jobRankResponse{ID: jr.ID, Name: jr.Name, SortOrder: jr.SortOrder})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateJobRank は役職を追加する。管理者のみ。
// POST /career/job-ranks
func (h *CareerHandler) CreateJobRank(w http.ResponseWriter, r *http.Request) {
	var req jobRankRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	jr, err := h.service.CreateJobRank(r.Context(), req.Name, req.SortOrder)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, jobRankResponse{ID: jr.ID, Name: jr.Name, SortOrder: jr.SortOrder})
}

// DeleteJobRank は役職を削除する。管理者のみ。
// DELETE /career/job-ranks/{id}
func (h *CareerHandler) DeleteJobRank(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteJobRank(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListPrimaryOccupations は大分類の職種一覧を返す。
// GET /career/occupations
func (h *CareerHandler) ListPrimaryOccupations(w http.ResponseWriter, r *http.Request) {
	occupations, err := h.service.ListPrimaryOccupations(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOccupationResponses(occupations))
}

// ListSecondaryOccupations は指定した大分類配下の職種一覧を返す。
// GET /career/occupations/{id}/secondary
func (h *CareerHandler) ListSecondaryOccupations(w http.ResponseWriter, r *http.Request) {
	occupations, err := h.service.ListSecondaryOccupations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOccupationResponses(occupations))
}

// CreateOccupation は職種を追加する。parent_idが空なら大分類になる。管理者のみ。
// POST /career/occupations
func (h *CareerHandler) CreateOccupation(w http.ResponseWriter, r *http.Request) {
	var req occupationRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	o, err := h.service.CreateOccupation(r.Context(), req.Name, req.ParentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, occupationResponse{ID: o.ID, Name: o.Name, Primary: o.Primary, ParentID: o.ParentID})
}

// DeleteOccupation は職種を削除する。管理者のみ。
// DELETE /career/occupations/{id}
func (h *CareerHandler) DeleteOccupation(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOccupation(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
