package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func adminRouter(key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AdminKey(key))
	r.POST("/setup", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestAdminKeyRejectsMissingHeader(t *testing.T) {
	r := adminRouter("secret")
	req, _ := http.NewRequest(http.MethodPost, "/setup", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAdminKeyAcceptsMatchingHeader(t *testing.T) {
	r := adminRouter("secret")
	req, _ := http.NewRequest(http.MethodPost, "/setup", nil)
	req.Header.Set("X-Admin-Key", "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAdminKeyDisabledWhenUnset(t *testing.T) {
	r := adminRouter("")
	req, _ := http.NewRequest(http.MethodPost, "/setup", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with auth disabled, got %d", w.Code)
	}
}
