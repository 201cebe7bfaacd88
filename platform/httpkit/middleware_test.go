package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gigwork_maps/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type testJWTConfig struct{}

func (testJWTConfig) GetJWTAccessSecret() string { return "test-secret" }

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/me", AuthRequired(testJWTConfig{}), func(c *gin.Context) {
		id := MustGetIdentity(c)
		if id == nil {
			return
		}
		OK(c, gin.H{"userId": id.UserID().String(), "role": id.Role()})
	})
	return engine
}

func TestAuthRequiredAcceptsIssuedToken(t *testing.T) {
	userID := uuid.New()
	token, err := IssueAccessToken(testJWTConfig{}, userID, "worker", time.Minute)
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	newTestEngine().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRequiredAcceptsQueryToken(t *testing.T) {
	token, err := IssueAccessToken(testJWTConfig{}, uuid.New(), "employer", time.Minute)
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/me?token="+token, nil)
	rec := httptest.NewRecorder()
	newTestEngine().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with query token, got %d", rec.Code)
	}
}

func TestAuthRequiredRejectsMissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	newTestEngine().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleErrorMapsUpstreamKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	HandleError(c, apperr.Unavailable("routing service unavailable", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for unavailable upstream, got %d", rec.Code)
	}
}
