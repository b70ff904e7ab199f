package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/careerhub/internal/model"
	"github.com/hitoshi/careerhub/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Get(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, input user.UpdateProfileInput) (*model.User, error)
	UpdateMarketing(ctx context.Context, userID string, isMarketing bool) error
	List(ctx context.Context, page, pageSize int) ([]*model.User, model.Page, error)
	AssignRole(ctx context.Context, userID, roleName string) error
	RevokeRole(ctx context.Context, userID, roleName string) error
	Withdraw(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// --- レスポンス型 ---

type profileResponse struct {
	Name         string `json:"name"`
	Image        string `json:"image"`
	Phone        string `json:"phone"`
	BirthDate    string `json:"birth_date"`
	CareerGoal   string `json:"career_goal"`
	ExpectSalary int    `json:"expect_salary"`
}

type roleResponse struct {
	RoleName   string     `json:"role_name"`
	Status     string     `json:"status"`
	AssignedAt time.Time  `json:"assigned_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

type userResponse struct {
	ID           string           `json:"id"`
	Email        string           `json:"email"`
	IsMarketing  bool             `json:"is_marketing"`
	LastActiveAt time.Time        `json:"last_active_at"`
	CreatedAt    time.Time        `json:"created_at"`
	Profile      *profileResponse `json:"profile,omitempty"`
	Roles        []roleResponse   `json:"roles"`
}

type userListResponse struct {
	Users []userResponse `json:"users"`
	Page  model.Page     `json:"page"`
}

func toUserResponse(u *model.User) userResponse {
	resp := userResponse{
		ID:           u.ID,
		Email:        u.Email,
		IsMarketing:  u.IsMarketing,
		LastActiveAt: u.LastActiveAt,
		CreatedAt:    u.CreatedAt,
		Roles:        make([]roleResponse, 0, len(u.Roles)),
	}
	if u.Profile != nil {
		resp.Profile = &profileResponse{
			Name:         u.Profile.Name,
			Image:        u.Profile.Image,
			Phone:        u.Profile.Phone,
			BirthDate:    u.Profile.BirthDate,
			CareerGoal:   u.Profile.CareerGoal,
			ExpectSalary: u.Profile.ExpectSalary,
		}
	}
	for _, role := range u.Roles {
		resp.Roles = append(resp.Roles, roleResponse{
			RoleName:   role.RoleName,
			Status:     role.Status,
			AssignedAt: role.AssignedAt,
			RevokedAt:  role.RevokedAt,
		})
	}
	return resp
}

// --- リクエスト型 ---

type updateProfileRequest struct {
	Name         string `json:"name"`
	Image        string `json:"image"`
	Phone        string `json:"phone"`
	BirthDate    string `json:"birth_date"`
	CareerGoal   string `json:"career_goal"`
	ExpectSalary int    `json:"expect_salary"`
}

type updateMarketingRequest struct {
	IsMarketing bool `json:"is_marketing"`
}

type roleRequest struct {
	Role string `json:"role"`
}

// Me は自分のユーザー情報を返す。
// GET /users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	u, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// UpdateProfile は自分のプロフィールを更新する。
// PUT /users/me/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), userID, user.UpdateProfileInput{
		Name:         req.Name,
		Image:        req.Image,
		Phone:        req.Phone,
		BirthDate:    req.BirthDate,
		CareerGoal:   req.CareerGoal,
		ExpectSalary: req.ExpectSalary,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// UpdateMarketing はマーケティング同意フラグを更新する。
// PUT /users/me/marketing
func (h *UserHandler) UpdateMarketing(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateMarketingRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.service.UpdateMarketing(r.Context(), userID, req.IsMarketing); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Withdraw は退会処理を実行する。
// DELETE /users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List はユーザー一覧をロール付きで返す（管理者用）。
// GET /users?page=1&page_size=10
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	users, pageInfo, err := h.service.List(r.Context(), page, pageSize)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := userListResponse{
		Users: make([]userResponse, 0, len(users)),
		Page:  pageInfo,
	}
	for _, u := range users {
		resp.Users = append(resp.Users, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// AssignRole は指定ユーザーにロールを付与する（管理者用）。
// POST /users/{id}/roles
func (h *UserHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")

	var req roleRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.service.AssignRole(r.Context(), targetID, req.Role); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RevokeRole は指定ユーザーのロール付与を取り消す（管理者用）。
// DELETE /users/{id}/roles/{role}
func (h *UserHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")
	roleName := chi.URLParam(r, "role")

	if err := h.service.RevokeRole(r.Context(), targetID, roleName); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
