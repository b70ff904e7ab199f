// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/careerhub/internal/auth"
	"github.com/hitoshi/careerhub/internal/model"
)

const (
	// refreshTokenCookieName はリフレッシュトークンを保持するHTTP Only Cookieの名前。
	refreshTokenCookieName = "refreshToken"

	// deviceIDCookieName はデバイス識別子を保持するCookieの名前。
	deviceIDCookieName = "deviceId"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userIDContextKey       = contextKey("user_id")
	claimsContextKey       = contextKey("access_claims")
	deviceIDContextKey     = contextKey("device_id")
	refreshTokenContextKey = contextKey("refresh_token")
)

// AccessTokenVerifier はアクセストークンの検証に必要なインターフェース。
// auth.TokenIssuerの部分集合として定義する。
type AccessTokenVerifier interface {
	ParseAccessToken(tokenString string) (*auth.AccessClaims, error)
}

// RefreshTokenVerifier はリフレッシュトークンの検証に必要なインターフェース。
type RefreshTokenVerifier interface {
	ParseRefreshToken(tokenString string) (*auth.RefreshClaims, error)
}

// SessionValidator はリフレッシュセッションの照合に必要なインターフェース。
type SessionValidator interface {
	Validate(ctx context.Context, userID, deviceID, refreshToken string) (*model.Session, error)
}

// LastActiveUpdater は最終アクティブ日時の更新に必要なインターフェース。
type LastActiveUpdater interface {
	UpdateLastActive(ctx context.Context, userID string) error
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// ヘッダーがない、または形式が不正な場合は空文字を返す。
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// NewAccessAuthMiddleware はアクセストークン必須のガードを返す。
// Authorization: Bearerヘッダーのトークンを検証し、
// 認証済みユーザーIDとクレームをリクエストコンテキストに注入する。
// 検証が通れば最終アクティブ日時をベストエフォートで更新する。
// トークンがない・不正・期限切れの場合は一律401を返す。
func NewAccessAuthMiddleware(verifier AccessTokenVerifier, users LastActiveUpdater) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			claims, err := verifier.ParseAccessToken(token)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 最終アクティブ日時の更新失敗はリクエストを妨げない
			if users != nil {
				if err := users.UpdateLastActive(r.Context(), claims.ID); err != nil {
					slog.Warn("failed to update last active",
						slog.String("user_id", claims.ID),
						slog.String("error", err.Error()),
					)
				}
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, claims.ID)
			ctx = context.WithValue(ctx, claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewOptionalAccessAuthMiddleware はアクセストークン任意のガードを返す。
// 有効なトークンがあれば認証情報をコンテキストに注入し、最終アクティブ日時を更新する。
// トークンがない・不正な場合も匿名リクエストとして処理を継続する。
func NewOptionalAccessAuthMiddleware(verifier AccessTokenVerifier, users LastActiveUpdater) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.ParseAccessToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			// 最終アクティブ日時の更新失敗はリクエストを妨げない
			if users != nil {
				if err := users.UpdateLastActive(r.Context(), claims.ID); err != nil {
					slog.Warn("failed to update last active",
						slog.String("user_id", claims.ID),
						slog.String("error", err.Error()),
					)
				}
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, claims.ID)
			ctx = context.WithValue(ctx, claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRefreshAuthMiddleware はリフレッシュトークンのガードを返す。
// refresh_tokenとdevice_idのCookieを読み取り、トークンの署名・期限と
// セッションの照合の両方を検証する。どちらかが欠けていても一律401を返す。
// 検証済みのユーザーID・デバイスID・リフレッシュトークンをコンテキストに注入する。
func NewRefreshAuthMiddleware(verifier RefreshTokenVerifier, sessions SessionValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenCookie, err := r.Cookie(refreshTokenCookieName)
			if err != nil || tokenCookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidRefreshTokenError())
				return
			}
			deviceCookie, err := r.Cookie(deviceIDCookieName)
			if err != nil || deviceCookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidRefreshTokenError())
				return
			}

			claims, err := verifier.ParseRefreshToken(tokenCookie.Value)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidRefreshTokenError())
				return
			}

			session, err := sessions.Validate(r.Context(), claims.ID, deviceCookie.Value, tokenCookie.Value)
			if err != nil {
				slog.Error("failed to validate refresh session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if session == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidRefreshTokenError())
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, claims.ID)
			ctx = context.WithValue(ctx, deviceIDContextKey, deviceCookie.Value)
			ctx = context.WithValue(ctx, refreshTokenContextKey, tokenCookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFinder は管理者判定に必要なユーザー取得インターフェース。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// NewAdminAuthMiddleware は管理者専用のガードを返す。
// アクセストークンガードの内側で使い、コンテキストのユーザーIDから
// ロールをロードしてアクティブなadminロールを持つ場合のみ通過させる。
// 取り消し済みロールしか持たないユーザーは403になる。
func NewAdminAuthMiddleware(users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("failed to load user for admin check",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if user == nil || !user.IsAdmin() {
				WriteErrorResponse(w, http.StatusForbidden, model.NewNotOwnerError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ガードを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ClaimsFromContext はリクエストコンテキストからアクセストークンのクレームを取得する。
func ClaimsFromContext(ctx context.Context) (*auth.AccessClaims, error) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.AccessClaims)
	if !ok || claims == nil {
		return nil, fmt.Errorf("access claims not found in context")
	}
	return claims, nil
}

// DeviceIDFromContext はリクエストコンテキストからデバイスIDを取得する。
// リフレッシュガードを通過したリクエストでのみ有効。
func DeviceIDFromContext(ctx context.Context) (string, error) {
	deviceID, ok := ctx.Value(deviceIDContextKey).(string)
	if !ok || deviceID == "" {
		return "", fmt.Errorf("device ID not found in context")
	}
	return deviceID, nil
}

// RefreshTokenFromContext はリクエストコンテキストから検証済みリフレッシュトークンを取得する。
func RefreshTokenFromContext(ctx context.Context) (string, error) {
	token, ok := ctx.Value(refreshTokenContextKey).(string)
	if !ok || token == "" {
		return "", fmt.Errorf("refresh token not found in context")
	}
	return token, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ContextWithDeviceID はコンテキストにデバイスIDを注入する。
func ContextWithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDContextKey, deviceID)
}
