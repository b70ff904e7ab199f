package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/careerhub/internal/middleware"
)

// RouterConfig はルーターの横断的な設定。
type RouterConfig struct {
	CORSAllowedOrigin string
	CSRF              middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
}

// RouterDeps はルーターが配線するハンドラーとガードの依存一式。
type RouterDeps struct {
	Auth          *AuthHandler
	User          *UserHandler
	Article       *ArticleHandler
	Product       *ProductHandler
	Career        *CareerHandler
	Advertisement *AdvertisementHandler
	Upload        *UploadHandler
	Payment       *PaymentHandler

	AccessVerifier   middleware.AccessTokenVerifier
	RefreshVerifier  middleware.RefreshTokenVerifier
	SessionValidator middleware.SessionValidator
	LastActive       middleware.LastActiveUpdater
	UserFinder       middleware.UserFinder

	Logger         *slog.Logger
	HTTPMetrics    middleware.HTTPMetricsRecorder
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントを配線したchiルーターを返す。
//
// ルートは5つのグループに分かれる:
//   - public: 認証不要
//   - optional: アクセストークンがあれば閲覧者として扱う公開読み取り
//   - required: アクセスガード必須
//   - admin: アクセスガード + 管理者ロール
//   - refresh: リフレッシュガード（ログアウトのみ)
func NewRouter(deps RouterDeps, config RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(config.CORSAllowedOrigin))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	if config.RateLimiter != nil {
		r.Use(config.RateLimiter.GeneralMiddleware())
	}

	accessGuard := middleware.NewAccessAuthMiddleware(deps.AccessVerifier, deps.LastActive)
	optionalGuard := middleware.NewOptionalAccessAuthMiddleware(deps.AccessVerifier, deps.LastActive)
	refreshGuard := middleware.NewRefreshAuthMiddleware(deps.RefreshVerifier, deps.SessionValidator)
	adminGuard := middleware.NewAdminAuthMiddleware(deps.UserFinder)
	csrfGuard := middleware.NewCSRFMiddleware(config.CSRF)

	r.Get("/health", healthHandler)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(config.CSRF))

	// 認証エンドポイント。Cookieを発行するためCSRFガードを通す。
	r.Group(func(r chi.Router) {
		r.Use(csrfGuard)

		r.Group(func(r chi.Router) {
			if config.RateLimiter != nil {
				r.Use(config.RateLimiter.LoginMiddleware())
			}
			r.Post("/auth/register", deps.Auth.Register)
			r.Post("/auth/login", deps.Auth.Login)
		})

		r.Get("/auth/kakao", deps.Auth.KakaoLogin)
		r.Get("/auth/callback/kakao", deps.Auth.KakaoCallback)
		r.Post("/auth/refresh", deps.Auth.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(refreshGuard)
			r.Post("/auth/logout", deps.Auth.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(accessGuard)
			r.Get("/auth/authenticate", deps.Auth.Authenticate)
		})
	})

	// 公開読み取り。トークンがあれば保存状態の反映と最終アクセス更新を行う。
	r.Group(func(r chi.Router) {
		r.Use(optionalGuard)

		r.Get("/article", deps.Article.List)
		r.Get("/article/search", deps.Article.Search)
		r.Get("/article/{id}", deps.Article.Get)

		r.Get("/product", deps.Product.List)
		r.Get("/product/search", deps.Product.Search)
		r.Get("/product/{id}", deps.Product.Get)
	})

	// 完全公開のカタログ類。
	r.Get("/advertisement", deps.Advertisement.ListBySlot)
	r.Get("/career/job-ranks", deps.Career.ListJobRanks)
	r.Get("/career/occupations", deps.Career.ListPrimaryOccupations)
	r.Get("/career/occupations/{id}/secondary", deps.Career.ListSecondaryOccupations)

	// 認証必須。
	r.Group(func(r chi.Router) {
		r.Use(accessGuard)

		r.Get("/users/me", deps.User.Me)
		r.Put("/users/me/profile", deps.User.UpdateProfile)
		r.Put("/users/me/marketing", deps.User.UpdateMarketing)
		r.Delete("/users/me", deps.User.Withdraw)

		r.Get("/article/me", deps.Article.ListMine)
		r.Get("/article/saved", deps.Article.ListSaved)
		r.Post("/article", deps.Article.Create)
		r.Put("/article/{id}", deps.Article.Update)
		r.Delete("/article/{id}", deps.Article.Delete)
		r.Post("/article/{id}/save", deps.Article.Save)
		r.Delete("/article/{id}/save", deps.Article.Unsave)

		r.Get("/product/me", deps.Product.ListMine)
		r.Get("/product/saved", deps.Product.ListSaved)
		r.Get("/product/cart", deps.Product.ListCart)
		r.Post("/product", deps.Product.Create)
		r.Put("/product/{id}", deps.Product.Update)
		r.Delete("/product/{id}", deps.Product.Delete)
		r.Post("/product/{id}/save", deps.Product.Save)
		r.Delete("/product/{id}/save", deps.Product.Unsave)
		r.Post("/product/{id}/cart", deps.Product.AddToCart)
		r.Delete("/product/{id}/cart", deps.Product.RemoveFromCart)

		r.Get("/career", deps.Career.ListMine)
		r.Post("/career", deps.Career.Create)
		r.Put("/career/{id}", deps.Career.Update)
		r.Delete("/career/{id}", deps.Career.Delete)

		r.Post("/uploads/image", deps.Upload.UploadImage)
		r.Post("/uploads/document", deps.Upload.UploadDocument)

		r.Post("/payments/toss", deps.Payment.Confirm)
		r.Get("/payments", deps.Payment.History)
	})

	// 管理者専用。
	r.Group(func(r chi.Router) {
		r.Use(accessGuard)
		r.Use(adminGuard)

		r.Get("/users", deps.User.List)
		r.Post("/users/{id}/roles", deps.User.AssignRole)
		r.Delete("/users/{id}/roles/{role}", deps.User.RevokeRole)

		r.Get("/advertisement/all", deps.Advertisement.ListAll)
		r.Get("/advertisement/{id}", deps.Advertisement.Get)
		r.Post("/advertisement", deps.Advertisement.Create)
		r.Put("/advertisement/{id}", deps.Advertisement.Update)
		r.Delete("/advertisement/{id}", deps.Advertisement.Delete)

		r.Post("/career/job-ranks", deps.Career.CreateJobRank)
		r.Delete("/career/job-ranks/{id}", deps.Career.DeleteJobRank)
		r.Post("/career/occupations", deps.Career.CreateOccupation)
		r.Delete("/career/occupations/{id}", deps.Career.DeleteOccupation)
	})

	return r
}

// healthHandler は稼働確認用エンドポイント。
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
