package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tourbooking/internal/domain"

	"github.com/gin-gonic/gin"
)

type stubParser map[string]domain.RequestContext

func (p stubParser) ParseAccessToken(token string) (domain.RequestContext, error) {
	if rc, ok := p[token]; ok {
		return rc, nil
	}
	return domain.RequestContext{}, errors.New("invalid token")
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	handlers := append(mw, func(c *gin.Context) {
		rc := Caller(c)
		c.JSON(http.StatusOK, gin.H{"userId": rc.UserID, "role": rc.Role})
	})
	r.GET("/x", handlers...)
	return r
}

func get(r *gin.Engine, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var parser = stubParser{
	"cust":  {UserID: 5, Role: domain.RoleCustomer},
	"staff": {UserID: 2, Role: domain.RoleStaff},
}

func TestRequestIDIsEchoedOrGenerated(t *testing.T) {
	r := newEngine()
	if w := get(r, map[string]string{"X-Request-ID": "abc-123"}); w.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("incoming request id not kept: %q", w.Header().Get("X-Request-ID"))
	}
	if w := get(r, nil); len(w.Header().Get("X-Request-ID")) != 36 {
		t.Fatalf("expected generated uuid, got %q", w.Header().Get("X-Request-ID"))
	}
}

func TestAuthRequired(t *testing.T) {
	r := newEngine(AuthRequired(parser))
	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Basic cust", http.StatusUnauthorized},
		{"Bearer cust", http.StatusOK},
		{"bearer staff", http.StatusOK},
	}
	for _, tc := range cases {
		w := get(r, map[string]string{"Authorization": tc.header})
		if w.Code != tc.want {
			t.Errorf("header %q: expected %d, got %d", tc.header, tc.want, w.Code)
		}
	}
}

func TestAuthOptionalPassesAnonymous(t *testing.T) {
	r := newEngine(AuthOptional(parser))
	if w := get(r, map[string]string{"Authorization": "Bearer broken"}); w.Code != http.StatusOK || w.Body.String() != `{"role":"","userId":0}` {
		t.Fatalf("unexpected anonymous response %d %s", w.Code, w.Body.String())
	}
	if w := get(r, map[string]string{"Authorization": "Bearer cust"}); w.Body.String() != `{"role":"CUSTOMER","userId":5}` {
		t.Fatalf("caller not attached: %s", w.Body.String())
	}
}

func TestRequireRoles(t *testing.T) {
	r := newEngine(AuthRequired(parser), RequireRoles("staff", "ADMIN"))
	if w := get(r, map[string]string{"Authorization": "Bearer cust"}); w.Code != http.StatusForbidden {
		t.Fatalf("customer should be forbidden, got %d", w.Code)
	}
	if w := get(r, map[string]string{"Authorization": "Bearer staff"}); w.Code != http.StatusOK {
		t.Fatalf("staff should pass, got %d", w.Code)
	}

	bare := newEngine(RequireRoles("ADMIN"))
	if w := get(bare, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing role should be unauthorized, got %d", w.Code)
	}
}
