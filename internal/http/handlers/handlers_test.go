package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

func testRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	org := r.Group("/api/orgs/:orgID")
	org.POST("/decisions", h.DecisionCreate)
	org.GET("/audit", h.AuditList)
	return r
}

func errorCode(t *testing.T, body *bytes.Buffer) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error.Code
}

func TestDecisionCreateRejectsMalformedJSON(t *testing.T) {
	h := &Handler{Validator: validator.New(), Logger: zerolog.Nop()}
	r := testRouter(h)

	req, _ := http.NewRequest(http.MethodPost, "/api/orgs/org-1/decisions", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if code := errorCode(t, w.Body); code != "INVALID_REQUEST" {
		t.Fatalf("expected INVALID_REQUEST, got %s", code)
	}
}

func TestDecisionCreateRejectsMissingFields(t *testing.T) {
	h := &Handler{Validator: validator.New(), Logger: zerolog.Nop()}
	r := testRouter(h)

	body := `{"question":"Raise prices?"}`
	req, _ := http.NewRequest(http.MethodPost, "/api/orgs/org-1/decisions", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if code := errorCode(t, w.Body); code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", code)
	}
}

func TestAuditListRejectsBadTimestamps(t *testing.T) {
	h := &Handler{Validator: validator.New(), Logger: zerolog.Nop()}
	r := testRouter(h)

	req, _ := http.NewRequest(http.MethodGet, "/api/orgs/org-1/audit?from=yesterday", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAuditListRejectsNonPositiveLimit(t *testing.T) {
	h := &Handler{Validator: validator.New(), Logger: zerolog.Nop()}
	r := testRouter(h)

	req, _ := http.NewRequest(http.MethodGet, "/api/orgs/org-1/audit?limit=0", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPresetOrDefault(t *testing.T) {
	if got := presetOrDefault("", "b2b_saas"); got != "b2b_saas" {
		t.Fatalf("empty request should fall back, got %q", got)
	}
	if got := presetOrDefault("usage_based", "b2b_saas"); got != "usage_based" {
		t.Fatalf("explicit request should win, got %q", got)
	}
	if got := presetOrDefault("", ""); got != "" {
		t.Fatalf("no default configured should stay empty, got %q", got)
	}
}
