package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func csrfTestHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestCSRFMiddleware_ReadOnlyMethods_SkipValidation(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := mw(csrfTestHandler(&called))

			req := httptest.NewRequest(method, "/auth/authenticate", nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if !called {
				t.Fatalf("%s without token should pass through", method)
			}
		})
	}
}

func TestCSRFMiddleware_MutatingMethods_WithoutToken_Rejected(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/auth/login"},
		{http.MethodPost, "/auth/refresh"},
		{http.MethodPut, "/users/me/profile"},
		{http.MethodPatch, "/cart/item-1"},
		{http.MethodDelete, "/users/me"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not run without CSRF token")
			}))

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Result().StatusCode != http.StatusForbidden {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
			}
		})
	}
}

func TestCSRFMiddleware_Login_CookieWithoutHeader_Rejected(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without header token")
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"hana@example.com"}`))
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "token-abc"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestCSRFMiddleware_Login_MismatchedTokens_Rejected(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run with mismatched tokens")
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "token-abc"})
	req.Header.Set(csrfHeaderName, "token-xyz")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestCSRFMiddleware_MatchingTokens_PassThrough(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := mw(csrfTestHandler(&called))

			req := httptest.NewRequest(method, "/auth/logout", nil)
			req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "matching-token"})
			req.Header.Set(csrfHeaderName, "matching-token")
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if !called {
				t.Fatalf("%s with matching tokens should pass through", method)
			}
			if w.Result().StatusCode != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
			}
		})
	}
}

func TestCSRFMiddleware_ReadRequest_IssuesTokenCookie(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{CookieDomain: "careerhub.example.com"})
	handler := mw(csrfTestHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/article", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	cookie := findCSRFCookie(w.Result().Cookies())
	if cookie == nil {
		t.Fatal("expected CSRF cookie to be issued on read request")
	}
	if cookie.Value == "" {
		t.Error("CSRF cookie value should not be empty")
	}
	if cookie.HttpOnly {
		t.Error("CSRF cookie must be readable from the frontend")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want %v", cookie.SameSite, http.SameSiteLaxMode)
	}
	if cookie.Path != "/" {
		t.Errorf("Path = %q, want %q", cookie.Path, "/")
	}
}

func TestCSRFMiddleware_ReadRequest_KeepsExistingCookie(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})
	handler := mw(csrfTestHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/article", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing-token"})
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	// トークンを配布済みのクライアントには再発行しない
	if findCSRFCookie(w.Result().Cookies()) != nil {
		t.Error("CSRF cookie should not be re-issued when already present")
	}
}

// --- トークン取得エンドポイントのテスト ---

func TestCSRFTokenHandler_IssuesTokenAndCookie(t *testing.T) {
	h := NewCSRFTokenHandler(CSRFConfig{CookieDomain: "careerhub.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Token == "" {
		t.Error("expected non-empty token in response")
	}

	cookie := findCSRFCookie(resp.Cookies())
	if cookie == nil {
		t.Fatal("expected CSRF cookie to be set")
	}
	if cookie.Value != body.Token {
		t.Errorf("cookie token = %q, response token = %q; should match", cookie.Value, body.Token)
	}
}

func TestCSRFTokenHandler_ExistingCookie_ReturnsSameToken(t *testing.T) {
	h := NewCSRFTokenHandler(CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "issued-earlier"})
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Token != "issued-earlier" {
		t.Errorf("token = %q, want %q", body.Token, "issued-earlier")
	}
}

func TestCSRFTokenHandler_IssuedToken_PassesMiddleware(t *testing.T) {
	config := CSRFConfig{}
	h := NewCSRFTokenHandler(config)

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	cookie := findCSRFCookie(w.Result().Cookies())
	if cookie == nil {
		t.Fatal("expected CSRF cookie to be set")
	}

	// 取得したトークンでログインリクエストが通ること
	called := false
	guard := NewCSRFMiddleware(config)(csrfTestHandler(&called))

	loginReq := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	loginReq.AddCookie(&http.Cookie{Name: csrfCookieName, Value: cookie.Value})
	loginReq.Header.Set(csrfHeaderName, cookie.Value)
	lw := httptest.NewRecorder()

	guard.ServeHTTP(lw, loginReq)

	if !called {
		t.Fatal("login with issued token should pass the CSRF guard")
	}
}

func findCSRFCookie(cookies []*http.Cookie) *http.Cookie {
	for _, c := range cookies {
		if c.Name == csrfCookieName {
			return c
		}
	}
	return nil
}
