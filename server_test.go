package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// Business creation is the bootstrap call; it must be reachable without an
// x-business-id header.
func TestBusinessCreateRouteSkipsTenantHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerRoutes(r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/businesses", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	body := w.Body.String()
	if strings.Contains(body, "x-business-id") {
		t.Fatalf("business creation demanded a tenant header: %s", body)
	}
	if w.Code != http.StatusBadRequest || !strings.Contains(body, "invalid request body") {
		t.Fatalf("request did not reach the handler: %d %s", w.Code, body)
	}
}

func TestScopedRoutesRequireTenantHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerRoutes(r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"sku":"S-1","name":"Chair"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "x-business-id header is required") {
		t.Fatalf("missing tenant header not rejected: %s", w.Body.String())
	}
}
