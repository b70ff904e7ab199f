// Package auth は認証フロー、トークン発行、セッション管理を提供する。
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/careerhub/internal/model"
)

// AccessClaims はアクセストークンのペイロード。
type AccessClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// RefreshClaims はリフレッシュトークンのペイロード。
// アクセストークンより情報を絞り、ユーザーIDのみを含める。
type RefreshClaims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenIssuerConfig はトークン発行の設定。
// アクセスとリフレッシュで署名鍵を分離し、どちらか一方の漏洩が
// もう一方の偽造に繋がらないようにする。
type TokenIssuerConfig struct {
	AccessSecret     []byte
	RefreshSecret    []byte
	AccessTTL        time.Duration
	MobileRefreshTTL time.Duration
	WebRefreshTTL    time.Duration
}

// TokenIssuer はJWTアクセストークン/リフレッシュトークンの発行と検証を行う。
type TokenIssuer struct {
	config TokenIssuerConfig
}

// NewTokenIssuer はTokenIssuerを生成する。
func NewTokenIssuer(config TokenIssuerConfig) *TokenIssuer {
	return &TokenIssuer{config: config}
}

// IssueAccessToken はユーザーのアクセストークンを発行する。
func (t *TokenIssuer) IssueAccessToken(user *model.User) (string, error) {
	now := time.Now()
	name := ""
	if user.Profile != nil {
		name = user.Profile.Name
	}

	claims := AccessClaims{
		ID:    user.ID,
		Email: user.Email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.config.AccessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.config.AccessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

// IssueRefreshToken はユーザーのリフレッシュトークンを発行する。
// モバイルクライアントはWebより長い有効期間を持つ。有効期限も返す。
func (t *TokenIssuer) IssueRefreshToken(userID string, isMobile bool) (string, time.Time, error) {
	now := time.Now()
	ttl := t.config.WebRefreshTTL
	if isMobile {
		ttl = t.config.MobileRefreshTTL
	}
	expiresAt := now.Add(ttl)

	claims := RefreshClaims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.config.RefreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return signed, expiresAt, nil
}

// ParseAccessToken はアクセストークンを検証し、クレームを返す。
// 署名不正・期限切れ・署名アルゴリズム不一致はすべてエラーになる。
func (t *TokenIssuer) ParseAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return t.config.AccessSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	return claims, nil
}

// ParseRefreshToken はリフレッシュトークンを検証し、クレームを返す。
func (t *TokenIssuer) ParseRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return t.config.RefreshSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	return claims, nil
}
