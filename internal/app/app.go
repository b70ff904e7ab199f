package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/careerhub/internal/advertisement"
	"github.com/hitoshi/careerhub/internal/article"
	"github.com/hitoshi/careerhub/internal/auth"
	"github.com/hitoshi/careerhub/internal/career"
	"github.com/hitoshi/careerhub/internal/config"
	"github.com/hitoshi/careerhub/internal/database"
	"github.com/hitoshi/careerhub/internal/handler"
	"github.com/hitoshi/careerhub/internal/logger"
	"github.com/hitoshi/careerhub/internal/metrics"
	"github.com/hitoshi/careerhub/internal/middleware"
	"github.com/hitoshi/careerhub/internal/payment"
	"github.com/hitoshi/careerhub/internal/product"
	"github.com/hitoshi/careerhub/internal/repository"
	"github.com/hitoshi/careerhub/internal/security"
	"github.com/hitoshi/careerhub/internal/uploads"
	"github.com/hitoshi/careerhub/internal/user"
	"github.com/hitoshi/careerhub/internal/worker/cleanup"
)

// sessionCleanupInterval は期限切れリフレッシュセッションの掃除間隔。
const sessionCleanupInterval = 24 * time.Hour

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	providerRepo := repository.NewPostgresProviderRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	roleRepo := repository.NewPostgresRoleRepo(db)
	articleRepo := repository.NewPostgresArticleRepo(db)
	productRepo := repository.NewPostgresProductRepo(db)
	careerRepo := repository.NewPostgresCareerRepo(db)
	adRepo := repository.NewPostgresAdvertisementRepo(db)
	paymentRepo := repository.NewPostgresPaymentRepo(db)

	// 3. セキュリティサービスとメトリクスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 認証基盤の初期化
	tokens := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		AccessSecret:     []byte(cfg.AccessTokenSecret),
		RefreshSecret:    []byte(cfg.RefreshTokenSecret),
		AccessTTL:        cfg.AccessTokenTTL,
		MobileRefreshTTL: cfg.MobileRefreshTTL,
		WebRefreshTTL:    cfg.WebRefreshTTL,
	})
	sessions := auth.NewSessionService(sessionRepo, providerRepo)
	kakaoProvider := auth.NewKakaoOAuthProvider(auth.KakaoOAuthConfig{
		ClientID:     cfg.KakaoClientID,
		ClientSecret: cfg.KakaoClientSecret,
		RedirectURL:  cfg.KakaoCallbackURL,
	})
	authService := auth.NewService(userRepo, roleRepo, sessions, tokens, kakaoProvider)

	// 5. ドメインサービスの初期化
	articleService := article.NewService(articleRepo, userRepo, sanitizer)
	productService := product.NewService(productRepo, userRepo, sanitizer)
	careerService := career.NewService(careerRepo)
	adService := advertisement.NewService(
		adRepo, ssrfGuard, ssrfGuard.NewSafeClient(10*time.Second, 1<<20),
	)
	userService := user.NewService(userRepo, roleRepo, sessionRepo)

	tossClient := payment.NewTossClient(cfg.TossSecretKey)
	paymentService := payment.NewService(paymentRepo, productService, tossClient)

	var store uploads.ObjectStore
	if cfg.GCSBucket != "" {
		gcsStore, err := uploads.NewGCSStore(
			context.Background(), cfg.GCSBucket, cfg.GCSCredentialsFile,
		)
		if err != nil {
			return fmt.Errorf("failed to initialize GCS store: %w", err)
		}
		store = gcsStore
	} else {
		slog.Warn("GCS bucket not configured, uploads are disabled")
	}
	uploadService := uploads.NewService(store, cfg.MaxUploadSizeMB)

	// 6. レート制限の初期化（req/min -> req/sec に変換）
	rlCfg := middleware.DefaultRateLimiterConfig()
	rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rlCfg.GeneralBurst = cfg.RateLimitGeneral
	rlCfg.LoginRate = rate.Limit(float64(cfg.RateLimitLogin) / 60.0)
	rlCfg.LoginBurst = cfg.RateLimitLogin
	rateLimiter := middleware.NewRateLimiter(rlCfg)
	defer rateLimiter.Stop()

	// 7. ルーターの構築
	deps := handler.RouterDeps{
		Auth: handler.NewAuthHandler(authService, userService, handler.AuthHandlerConfig{
			BaseURL:      cfg.BaseURL,
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		}, collector),
		User:          handler.NewUserHandler(userService),
		Article:       handler.NewArticleHandler(articleService),
		Product:       handler.NewProductHandler(productService),
		Career:        handler.NewCareerHandler(careerService),
		Advertisement: handler.NewAdvertisementHandler(adService),
		Upload:        handler.NewUploadHandler(uploadService, collector, int64(cfg.MaxUploadSizeMB)),
		Payment:       handler.NewPaymentHandler(paymentService, collector),

		AccessVerifier:   tokens,
		RefreshVerifier:  tokens,
		SessionValidator: sessions,
		LastActive:       userRepo,
		UserFinder:       userRepo,

		Logger:         slog.Default(),
		HTTPMetrics:    collector,
		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps, handler.RouterConfig{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rateLimiter,
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れリフレッシュセッションのクリーンアップジョブを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. クリーンアップジョブの初期化
	sessionRepo := repository.NewPostgresSessionRepo(db)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	cleanupJob := cleanup.NewCleanupJob(sessionRepo, slog.Default(), collector)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", sessionCleanupInterval),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, sessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
