package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tradelog/internal/auth"
	"tradelog/internal/config"
	"tradelog/internal/database"
	"tradelog/internal/models"
	"tradelog/internal/ws"
)

type nopMailer struct{}

func (nopMailer) SendVerificationEmail(string, string) error  { return nil }
func (nopMailer) SendPasswordResetEmail(string, string) error { return nil }

// setupServer wires the full router against a real postgres instance.
// Integration tests are opt-in: set TRADELOG_TEST_DB=1 (plus the usual DB_*
// variables) to run them.
func setupServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	if os.Getenv("TRADELOG_TEST_DB") != "1" {
		t.Skip("integration tests are disabled; set TRADELOG_TEST_DB=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "integration-secret")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc, err := auth.NewService(auth.Config{
		Secret:        cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
		Audience:      cfg.JWTAudience,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		RememberMeTTL: cfg.RememberMeTokenTTL,
	}, auth.NewGormTokenStore(db), auth.NewGormUserStore(db))
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}

	hub := ws.NewEventHub()
	go hub.Run()

	messages, err := config.LoadMessages("")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}

	r := gin.New()
	Register(r, Deps{
		DB:       db,
		Cfg:      cfg,
		Messages: messages,
		Auth:     svc,
		Mailer:   nopMailer{},
		Hub:      hub,
	})

	// the tests below verify accounts by hand instead of via email
	t.Cleanup(func() {
		db.Exec("DELETE FROM trades")
		db.Exec("DELETE FROM strategy_versions")
		db.Exec("DELETE FROM strategies")
		db.Exec("DELETE FROM accounts")
		db.Exec("DELETE FROM refresh_tokens")
		db.Exec("DELETE FROM action_tokens")
		db.Exec("DELETE FROM users WHERE role <> 'admin'")
	})

	return r, db
}

func doJSON(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func TestJournalFlow(t *testing.T) {
	r, db := setupServer(t)
	email := fmt.Sprintf("it-%d@example.com", time.Now().UnixNano())

	rec := doJSON(r, http.MethodPost, "/api/v1/auth/register", gin.H{
		"email": email, "username": fmt.Sprintf("it%d", time.Now().UnixNano()), "password": "integration-pass-1",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}

	// login is refused until the email is verified
	rec = doJSON(r, http.MethodPost, "/api/v1/auth/login", gin.H{"email": email, "password": "integration-pass-1"}, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("pre-verification login: %d, want 403", rec.Code)
	}

	// flip the flag directly; the mailer is a no-op here
	if err := db.Model(&models.User{}).Where("email = ?", email).Update("is_verified", true).Error; err != nil {
		t.Fatalf("verify: %v", err)
	}

	rec = doJSON(r, http.MethodPost, "/api/v1/auth/login", gin.H{"email": email, "password": "integration-pass-1"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var pair auth.TokenPair
	decode(t, rec, &pair)

	// accounts
	rec = doJSON(r, http.MethodPost, "/api/v1/accounts", gin.H{"name": "IBKR Margin", "broker": "IBKR", "currency": "usd"}, pair.AccessToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create account: %d %s", rec.Code, rec.Body.String())
	}
	var account models.Account
	decode(t, rec, &account)
	if account.Currency != "USD" {
		t.Errorf("currency not normalized: %q", account.Currency)
	}

	// strategies start at version 1
	rec = doJSON(r, http.MethodPost, "/api/v1/strategies", gin.H{
		"name": "Opening Range Breakout", "rules": "entry above the first 15m range high",
	}, pair.AccessToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create strategy: %d %s", rec.Code, rec.Body.String())
	}
	var strategy models.Strategy
	decode(t, rec, &strategy)
	if len(strategy.Versions) != 1 || strategy.Versions[0].Version != 1 {
		t.Fatalf("unexpected versions: %+v", strategy.Versions)
	}

	rec = doJSON(r, http.MethodPost, fmt.Sprintf("/api/v1/strategies/%s/versions", strategy.ID), gin.H{
		"rules": "entry above the first 15m range high, skip FOMC days",
	}, pair.AccessToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create version: %d %s", rec.Code, rec.Body.String())
	}
	var v2 models.StrategyVersion
	decode(t, rec, &v2)
	if v2.Version != 2 {
		t.Errorf("version = %d, want 2", v2.Version)
	}

	// trades
	rec = doJSON(r, http.MethodPost, "/api/v1/trades", gin.H{
		"accountId":         account.ID,
		"strategyVersionId": v2.ID,
		"symbol":            "aapl",
		"direction":         "long",
		"quantity":          10,
		"entryPrice":        21050,
		"exitPrice":         21500,
		"entryAt":           time.Now().Add(-3 * time.Hour).Format(time.RFC3339),
		"exitAt":            time.Now().Add(-1 * time.Hour).Format(time.RFC3339),
		"fees":              120,
	}, pair.AccessToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create trade: %d %s", rec.Code, rec.Body.String())
	}
	var trade struct {
		models.Trade
		RealizedPnL *int64 `json:"realizedPnl"`
	}
	decode(t, rec, &trade)
	if trade.Symbol != "AAPL" {
		t.Errorf("symbol not normalized: %q", trade.Symbol)
	}
	if trade.RealizedPnL == nil || *trade.RealizedPnL != 4380 {
		t.Errorf("realizedPnl = %v, want 4380", trade.RealizedPnL)
	}

	rec = doJSON(r, http.MethodGet, "/api/v1/trades?status=closed&symbol=AAPL", nil, pair.AccessToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("list trades: %d %s", rec.Code, rec.Body.String())
	}

	// refresh rotation over HTTP
	rec = doJSON(r, http.MethodPost, "/api/v1/auth/refresh", gin.H{"refreshToken": pair.RefreshToken}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rec.Code, rec.Body.String())
	}
	var rotated auth.TokenPair
	decode(t, rec, &rotated)

	rec = doJSON(r, http.MethodPost, "/api/v1/auth/refresh", gin.H{"refreshToken": pair.RefreshToken}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replay: %d, want 401", rec.Code)
	}
	rec = doJSON(r, http.MethodPost, "/api/v1/auth/refresh", gin.H{"refreshToken": rotated.RefreshToken}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("post-cascade refresh: %d, want 401", rec.Code)
	}
}
