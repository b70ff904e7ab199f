package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// ビジネスロジック内でos.Getenvを直接呼んではならない。
type Config struct {
	// Database
	DatabaseURL string

	// JWT
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	MobileRefreshTTL   time.Duration
	WebRefreshTTL      time.Duration

	// Kakao OAuth
	KakaoClientID     string
	KakaoClientSecret string
	KakaoCallbackURL  string

	// Uploads
	GCSBucket          string
	GCSCredentialsFile string
	MaxUploadSizeMB    int

	// Payments
	TossSecretKey string

	// Rate Limit
	RateLimitGeneral int
	RateLimitLogin   int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// アクセストークンとリフレッシュトークンの秘密鍵が同一の場合もエラーとする。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AccessTokenSecret = os.Getenv("JWT_ACCESS_SECRET")
	if cfg.AccessTokenSecret == "" {
		missing = append(missing, "JWT_ACCESS_SECRET")
	}

	cfg.RefreshTokenSecret = os.Getenv("JWT_REFRESH_SECRET")
	if cfg.RefreshTokenSecret == "" {
		missing = append(missing, "JWT_REFRESH_SECRET")
	}

	cfg.KakaoClientID = os.Getenv("KAKAO_CLIENT_ID")
	if cfg.KakaoClientID == "" {
		missing = append(missing, "KAKAO_CLIENT_ID")
	}

	cfg.KakaoClientSecret = os.Getenv("KAKAO_CLIENT_SECRET")
	if cfg.KakaoClientSecret == "" {
		missing = append(missing, "KAKAO_CLIENT_SECRET")
	}

	cfg.KakaoCallbackURL = os.Getenv("KAKAO_CALLBACK_URL")
	if cfg.KakaoCallbackURL == "" {
		missing = append(missing, "KAKAO_CALLBACK_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// アクセス用とリフレッシュ用の秘密鍵は必ず分離する。
	// 片方が漏洩してももう片方のトークンを偽造できないようにするため。
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be different values")
	}

	// Optional fields with defaults
	// トークン有効期間は秒単位の整数で指定する。
	// モバイルは明示ログインの間隔が長いため、Webより長い期限を持つ。
	cfg.AccessTokenTTL = getEnvSeconds("JWT_ACCESS_EXPIRATION_TIME", 15*time.Minute)
	cfg.MobileRefreshTTL = getEnvSeconds("JWT_MOBILE_REFRESH_EXPIRATION_TIME", 3*28*24*time.Hour)
	cfg.WebRefreshTTL = getEnvSeconds("JWT_WEB_REFRESH_EXPIRATION_TIME", 14*24*time.Hour)

	cfg.GCSBucket = getEnvString("GCS_BUCKET", "")
	cfg.GCSCredentialsFile = getEnvString("GCS_CREDENTIALS_FILE", "")
	cfg.MaxUploadSizeMB = getEnvInt("MAX_UPLOAD_SIZE_MB", 5)
	cfg.TossSecretKey = getEnvString("TOSS_SECRET_KEY", "")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvSeconds(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		return defaultVal
	}
	return time.Duration(sec) * time.Second
}
