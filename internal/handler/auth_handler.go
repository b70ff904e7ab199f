package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/careerhub/internal/auth"
	"github.com/hitoshi/careerhub/internal/middleware"
	"github.com/hitoshi/careerhub/internal/model"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
	deviceIDCookie     = "deviceId"
	oauthStateCookie   = "oauth_state"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, input auth.RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password, deviceID string, isMobile bool) (*auth.TokenPair, *model.User, error)
	GetKakaoLoginURL(state string) string
	KakaoLogin(ctx context.Context, code, deviceID string, isMobile bool) (*auth.TokenPair, *model.User, error)
	Refresh(ctx context.Context, refreshToken, deviceID string) (string, error)
	Logout(ctx context.Context, userID, deviceID string) error
}

// UserLoader は現在ユーザーの取得に必要なインターフェース。
type UserLoader interface {
	Get(ctx context.Context, userID string) (*model.User, error)
}

// AuthMetrics は認証イベントのメトリクス記録インターフェース。
type AuthMetrics interface {
	RecordLoginSuccess(provider string)
	RecordLoginFailure(provider string)
	RecordSignup()
	RecordTokenRefresh()
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL      string // OAuthコールバック後のリダイレクト先
	CookieDomain string
	CookieSecure bool
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	users   UserLoader
	config  AuthHandlerConfig
	metrics AuthMetrics // nilの場合は記録しない
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, users UserLoader, config AuthHandlerConfig, metrics AuthMetrics) *AuthHandler {
	return &AuthHandler{
		service: service,
		users:   users,
		config:  config,
		metrics: metrics,
	}
}

// --- リクエスト/レスポンス型 ---

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	BirthDate   string `json:"birth_date"`
	Role        string `json:"role"`
	IsMarketing bool   `json:"is_marketing"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceID   string `json:"device_id,omitempty"`
	IsMobile   bool   `json:"is_mobile"`
	RememberMe bool   `json:"remember_me"`
}

type loginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
	DeviceID     string `json:"device_id,omitempty"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// Register は新規会員登録を処理する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST_BODY",
			Message:  "email、password、nameは必須です。",
			Category: "validation",
			Action:   "必須項目を入力してください。",
		})
		return
	}

	user, err := h.service.Register(r.Context(), auth.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		Phone:       req.Phone,
		BirthDate:   req.BirthDate,
		Role:        req.Role,
		IsMarketing: req.IsMarketing,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSignup()
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Login はメールアドレスとパスワードによるログインを処理する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	deviceID := h.resolveDeviceID(r, req.DeviceID)

	pair, user, err := h.service.Login(r.Context(), req.Email, req.Password, deviceID, req.IsMobile)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordLoginFailure(model.ProviderCredential)
		}
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordLoginSuccess(model.ProviderCredential)
	}

	h.setAuthCookies(w, pair, deviceID, req.IsMobile, req.RememberMe)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         toUserResponse(user),
	})
}

// KakaoLogin はKakao OAuthフローを開始する。
// GET /auth/kakao
func (h *AuthHandler) KakaoLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewUnauthorizedError())
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.GetKakaoLoginURL(state), http.StatusTemporaryRedirect)
}

// KakaoCallback はKakao OAuthコールバックを処理する。
// GET /auth/callback/kakao?code=xxx&state=yyy
func (h *AuthHandler) KakaoCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_OAUTH_STATE",
			Message:  "OAuth stateパラメータが一致しません。",
			Category: "auth",
			Action:   "ログインを最初からやり直してください。",
		})
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "MISSING_AUTHORIZATION_CODE",
			Message:  "認可コードがありません。",
			Category: "auth",
			Action:   "ログインを最初からやり直してください。",
		})
		return
	}

	deviceID := h.resolveDeviceID(r, "")

	pair, _, err := h.service.KakaoLogin(r.Context(), code, deviceID, false)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordLoginFailure(model.ProviderKakao)
		}
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordLoginSuccess(model.ProviderKakao)
	}

	h.setAuthCookies(w, pair, deviceID, false, true)
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Refresh は新しいアクセストークンを発行する。
// リフレッシュトークンとデバイスIDはボディ優先、なければCookieから読む。
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	// ボディなしのCookie運用も許容する
	_ = decodeBodyIfPresent(r, &req)

	refreshToken := req.RefreshToken
	if refreshToken == "" {
		if c, err := r.Cookie(refreshTokenCookie); err == nil {
			refreshToken = c.Value
		}
	}
	deviceID := req.DeviceID
	if deviceID == "" {
		if c, err := r.Cookie(deviceIDCookie); err == nil {
			deviceID = c.Value
		}
	}
	if refreshToken == "" || deviceID == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidRefreshTokenError())
		return
	}

	accessToken, err := h.service.Refresh(r.Context(), refreshToken, deviceID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordTokenRefresh()
	}

	// アクセストークンCookieのみ更新する（リフレッシュトークンは再発行しない）
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: accessToken})
}

// Logout はセッションを破棄する。リフレッシュガード配下で使う。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	deviceID, err := middleware.DeviceIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidRefreshTokenError())
		return
	}

	if err := h.service.Logout(r.Context(), userID, deviceID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.clearAuthCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// Authenticate は現在のログインユーザー情報を返す。
// GET /auth/authenticate
func (h *AuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// resolveDeviceID はリクエストからデバイスIDを決定する。
// ボディ指定 → 既存Cookie → 新規生成の順。
func (h *AuthHandler) resolveDeviceID(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if c, err := r.Cookie(deviceIDCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return uuid.New().String()
}

// setAuthCookies はaccessToken/refreshToken/deviceIdのHTTP Only Cookieを設定する。
// rememberがfalseの場合はMaxAgeを付けずセッションCookieにする。
func (h *AuthHandler) setAuthCookies(w http.ResponseWriter, pair *auth.TokenPair, deviceID string, isMobile, remember bool) {
	maxAge := 0
	if remember {
		maxAge = int(time.Until(pair.RefreshExpiresAt) / time.Second)
	}

	for _, c := range []*http.Cookie{
		{Name: accessTokenCookie, Value: pair.AccessToken},
		{Name: refreshTokenCookie, Value: pair.RefreshToken},
		{Name: deviceIDCookie, Value: deviceID},
	} {
		c.Path = "/"
		c.Domain = h.config.CookieDomain
		c.MaxAge = maxAge
		c.HttpOnly = true
		c.Secure = h.config.CookieSecure
		c.SameSite = http.SameSiteLaxMode
		http.SetCookie(w, c)
	}
}

// clearAuthCookies は認証関連のCookieをすべて破棄する。
func (h *AuthHandler) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie, deviceIDCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   h.config.CookieDomain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.config.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
