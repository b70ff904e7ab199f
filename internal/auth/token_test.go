package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/careerhub/internal/model"
)

func testTokenIssuer() *TokenIssuer {
	return NewTokenIssuer(TokenIssuerConfig{
		AccessSecret:     []byte("test-access-secret"),
		RefreshSecret:    []byte("test-refresh-secret"),
		AccessTTL:        15 * time.Minute,
		MobileRefreshTTL: 3 * 28 * 24 * time.Hour,
		WebRefreshTTL:    14 * 24 * time.Hour,
	})
}

func testUser() *model.User {
	return &model.User{
		ID:    "user-1",
		Email: "test@example.com",
		Profile: &model.Profile{
			Name: "テストユーザー",
		},
	}
}

func TestIssueAccessToken_RoundTrip(t *testing.T) {
	issuer := testTokenIssuer()

	token, err := issuer.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := issuer.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}
	if claims.ID != "user-1" {
		t.Errorf("claims.ID = %q, want %q", claims.ID, "user-1")
	}
	if claims.Email != "test@example.com" {
		t.Errorf("claims.Email = %q, want %q", claims.Email, "test@example.com")
	}
	if claims.Name != "テストユーザー" {
		t.Errorf("claims.Name = %q, want %q", claims.Name, "テストユーザー")
	}
}

func TestIssueAccessToken_WithoutProfile_EmptyName(t *testing.T) {
	issuer := testTokenIssuer()

	token, err := issuer.IssueAccessToken(&model.User{ID: "user-2", Email: "np@example.com"})
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	claims, err := issuer.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken() error = %v", err)
	}
	if claims.Name != "" {
		t.Errorf("claims.Name = %q, want empty", claims.Name)
	}
}

func TestIssueRefreshToken_RoundTrip(t *testing.T) {
	issuer := testTokenIssuer()

	token, expiresAt, err := issuer.IssueRefreshToken("user-1", false)
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}
	if expiresAt.Before(time.Now()) {
		t.Error("expected future expiry")
	}

	claims, err := issuer.ParseRefreshToken(token)
	if err != nil {
		t.Fatalf("ParseRefreshToken() error = %v", err)
	}
	if claims.ID != "user-1" {
		t.Errorf("claims.ID = %q, want %q", claims.ID, "user-1")
	}
}

func TestIssueRefreshToken_MobileHasLongerTTL(t *testing.T) {
	issuer := testTokenIssuer()

	_, webExp, err := issuer.IssueRefreshToken("user-1", false)
	if err != nil {
		t.Fatalf("IssueRefreshToken(web) error = %v", err)
	}
	_, mobileExp, err := issuer.IssueRefreshToken("user-1", true)
	if err != nil {
		t.Fatalf("IssueRefreshToken(mobile) error = %v", err)
	}

	if !mobileExp.After(webExp) {
		t.Errorf("mobile expiry %v should be after web expiry %v", mobileExp, webExp)
	}
}

// アクセスとリフレッシュの署名鍵は分離されており、相互に検証できない
func TestTokens_SecretsAreNotInterchangeable(t *testing.T) {
	issuer := testTokenIssuer()

	accessToken, err := issuer.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}
	refreshToken, _, err := issuer.IssueRefreshToken("user-1", false)
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}

	if _, err := issuer.ParseRefreshToken(accessToken); err == nil {
		t.Error("access token should not validate as refresh token")
	}
	if _, err := issuer.ParseAccessToken(refreshToken); err == nil {
		t.Error("refresh token should not validate as access token")
	}
}

func TestParseAccessToken_WrongSecret_Fails(t *testing.T) {
	issuer := testTokenIssuer()
	other := NewTokenIssuer(TokenIssuerConfig{
		AccessSecret:  []byte("different-secret"),
		RefreshSecret: []byte("different-refresh"),
		AccessTTL:     15 * time.Minute,
	})

	token, err := issuer.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	if _, err := other.ParseAccessToken(token); err == nil {
		t.Error("expected error for token signed with different secret")
	}
}

func TestParseAccessToken_Expired_Fails(t *testing.T) {
	issuer := NewTokenIssuer(TokenIssuerConfig{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     -1 * time.Minute,
	})

	token, err := issuer.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	if _, err := issuer.ParseAccessToken(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestParseAccessToken_Garbage_Fails(t *testing.T) {
	issuer := testTokenIssuer()

	for _, tokenString := range []string{"", "not-a-jwt", strings.Repeat("a", 100)} {
		if _, err := issuer.ParseAccessToken(tokenString); err == nil {
			t.Errorf("expected error for token %q", tokenString)
		}
	}
}
