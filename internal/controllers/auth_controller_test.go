package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tradelog/internal/auth"
	"tradelog/internal/config"
	"tradelog/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testAuthStack(t *testing.T, users ...models.User) (*auth.Service, *auth.MemoryTokenStore) {
	t.Helper()
	tokens := auth.NewMemoryTokenStore()
	svc, err := auth.NewService(auth.Config{
		Secret:     "test-secret",
		Issuer:     "tradelog-test",
		Audience:   "tradelog-web",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, tokens, auth.NewMemoryUserStore(users...))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, tokens
}

func testMessages(t *testing.T) *config.MessagesConfig {
	t.Helper()
	m, err := config.LoadMessages("does-not-exist.yaml")
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	return m
}

// authRouter mounts the token endpoints. Refresh and Logout never touch the
// user table directly, so these run without a database.
func authRouter(t *testing.T, svc *auth.Service, asUser *models.User) *gin.Engine {
	t.Helper()
	ctrl := &AuthController{Auth: svc, Messages: testMessages(t)}
	r := gin.New()
	r.POST("/api/v1/auth/refresh", ctrl.Refresh)
	if asUser != nil {
		r.POST("/api/v1/auth/logout", func(c *gin.Context) {
			c.Set("user", *asUser)
		}, ctrl.Logout)
	}
	return r
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRefreshEndpointRejectsMissingToken(t *testing.T) {
	user := models.User{ID: uuid.New(), Email: "t@example.com", Username: "t", Role: "user"}
	svc, _ := testAuthStack(t, user)
	r := authRouter(t, svc, nil)

	rec := postJSON(r, "/api/v1/auth/refresh", gin.H{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRefreshEndpointUnknownToken(t *testing.T) {
	user := models.User{ID: uuid.New(), Email: "t@example.com", Username: "t", Role: "user"}
	svc, _ := testAuthStack(t, user)
	r := authRouter(t, svc, nil)

	rec := postJSON(r, "/api/v1/auth/refresh", gin.H{"refreshToken": "bogus"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRefreshEndpointRotatesAndDetectsReplay(t *testing.T) {
	user := models.User{ID: uuid.New(), Email: "t@example.com", Username: "t", Role: "user"}
	svc, _ := testAuthStack(t, user)
	r := authRouter(t, svc, nil)

	pair, err := svc.Issue(context.Background(), user, false, "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rec := postJSON(r, "/api/v1/auth/refresh", gin.H{"refreshToken": pair.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("rotate status = %d, body %s", rec.Code, rec.Body.String())
	}
	var rotated auth.TokenPair
	if err := json.Unmarshal(rec.Body.Bytes(), &rotated); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rotated.RefreshToken == "" || rotated.RefreshToken == pair.RefreshToken {
		t.Error("rotation did not return a fresh refresh token")
	}

	// replaying the consumed token must fail and must kill the rotated one too
	if rec := postJSON(r, "/api/v1/auth/refresh", gin.H{"refreshToken": pair.RefreshToken}); rec.Code != http.StatusUnauthorized {
		t.Errorf("replay status = %d, want 401", rec.Code)
	}
	if rec := postJSON(r, "/api/v1/auth/refresh", gin.H{"refreshToken": rotated.RefreshToken}); rec.Code != http.StatusUnauthorized {
		t.Errorf("post-cascade status = %d, want 401", rec.Code)
	}
}

func TestLogoutEndpointIdempotent(t *testing.T) {
	user := models.User{ID: uuid.New(), Email: "t@example.com", Username: "t", Role: "user"}
	svc, _ := testAuthStack(t, user)
	r := authRouter(t, svc, &user)

	pair, err := svc.Issue(context.Background(), user, false, "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	for i := 0; i < 2; i++ {
		rec := postJSON(r, "/api/v1/auth/logout", gin.H{"refreshToken": pair.RefreshToken})
		if rec.Code != http.StatusOK {
			t.Errorf("logout %d status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestLogoutEndpointCrossUserForbidden(t *testing.T) {
	owner := models.User{ID: uuid.New(), Email: "o@example.com", Username: "o", Role: "user"}
	intruder := models.User{ID: uuid.New(), Email: "i@example.com", Username: "i", Role: "user"}
	svc, tokens := testAuthStack(t, owner, intruder)
	r := authRouter(t, svc, &intruder)

	pair, err := svc.Issue(context.Background(), owner, false, "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	rec := postJSON(r, "/api/v1/auth/logout", gin.H{"refreshToken": pair.RefreshToken})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if stored := tokens.ByPlaintext(pair.RefreshToken); stored.RevokedAt != nil {
		t.Error("token revoked despite forbidden response")
	}
}
