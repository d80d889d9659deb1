package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradejournal/internal/auth"
	"tradejournal/internal/models"
	"tradejournal/internal/repository"
	"tradejournal/internal/service"
)

// stubStore overrides only the repository methods these handlers reach;
// anything else panics on the embedded nil interface.
type stubStore struct {
	repository.Repository

	closedTrades    []models.Trade
	closedTradesFor uint64
	listParams      *repository.ListTradesParams
	alerts          []models.Alert
	stats           []models.DailyStats
	logs            []models.EmotionalLog
}

func (s *stubStore) ListClosedTrades(ctx context.Context, userID uint64, limit int) ([]models.Trade, error) {
	s.closedTradesFor = userID
	return s.closedTrades, nil
}

func (s *stubStore) ListRecentEmotionalLogs(ctx context.Context, userID uint64, limit int) ([]models.EmotionalLog, error) {
	return s.logs, nil
}

func (s *stubStore) InsertAlert(ctx context.Context, item *models.Alert) error {
	s.alerts = append(s.alerts, *item)
	return nil
}

func (s *stubStore) UpsertDailyStats(ctx context.Context, item *models.DailyStats) error {
	s.stats = append(s.stats, *item)
	return nil
}

func (s *stubStore) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	s.listParams = &params
	return nil, nil
}

func userClaims(id string) auth.Claims {
	return auth.Claims{Role: "user", RegisteredClaims: jwt.RegisteredClaims{Subject: id}}
}

func adminClaims(id string) auth.Claims {
	return auth.Claims{Role: "admin", RegisteredClaims: jwt.RegisteredClaims{Subject: id}}
}

// testRouter wires one gin engine carrying the given identity, mirroring what
// the auth middleware puts in the request context.
func testRouter(claims auth.Claims, register func(*gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("auth.claims", claims)
		c.Next()
	})
	register(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestRunAlertsAdminOverride(t *testing.T) {
	store := &stubStore{}
	engine := &service.AlertsEngine{Repo: store, Logger: zap.NewNop()}
	h := &AlertsHandler{Repo: store, Engine: engine, Logger: zap.NewNop()}
	r := testRouter(adminClaims("1"), h.Register)

	w := doJSON(t, r, http.MethodPost, "/api/alerts/run", `{"user_id":7}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if store.closedTradesFor != 7 {
		t.Fatalf("rules ran for user %d, want 7", store.closedTradesFor)
	}

	env := decodeEnvelope(t, w)
	var data struct {
		AlertsCreated *int           `json:"alerts_created"`
		Alerts        []models.Alert `json:"alerts"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.AlertsCreated == nil || *data.AlertsCreated != 0 {
		t.Fatalf("alerts_created = %v, want 0", data.AlertsCreated)
	}
	if data.Alerts == nil {
		t.Fatalf("alerts array missing")
	}
}

func TestRunAlertsForbiddenForOtherUser(t *testing.T) {
	store := &stubStore{}
	engine := &service.AlertsEngine{Repo: store, Logger: zap.NewNop()}
	h := &AlertsHandler{Repo: store, Engine: engine, Logger: zap.NewNop()}
	r := testRouter(userClaims("5"), h.Register)

	w := doJSON(t, r, http.MethodPost, "/api/alerts/run", `{"user_id":7}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if store.closedTradesFor != 0 {
		t.Fatalf("rules ran despite forbidden request")
	}
}

func TestComputeStatsResponseShape(t *testing.T) {
	entry := time.Date(2024, 4, 2, 14, 0, 0, 0, time.UTC)
	net := decimal.NewFromInt(100)
	store := &stubStore{
		closedTrades: []models.Trade{{
			ID:        1,
			UserID:    5,
			Status:    models.TradeStatusClosed,
			EntryTime: &entry,
			NetPnL:    &net,
		}},
	}
	h := &StatsHandler{Repo: store, Stats: &service.DailyStatsService{Repo: store}, Logger: zap.NewNop()}
	r := testRouter(userClaims("5"), h.Register)

	w := doJSON(t, r, http.MethodPost, "/api/stats/compute", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	env := decodeEnvelope(t, w)
	var data struct {
		ComputedDates []string `json:"computed_dates"`
		Results       []struct {
			Date string `json:"date"`
		} `json:"results"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(data.ComputedDates) != 1 || data.ComputedDates[0] != "2024-04-02" {
		t.Fatalf("computed_dates = %v", data.ComputedDates)
	}
	if len(data.Results) != 1 || data.Results[0].Date != "2024-04-02" {
		t.Fatalf("results = %+v", data.Results)
	}
}

func TestExportForwardsFilters(t *testing.T) {
	store := &stubStore{}
	h := &CSVHandler{Repo: store, CSV: &service.TradeCSV{Repo: store}, Logger: zap.NewNop()}
	r := testRouter(userClaims("5"), h.Register)

	body := `{"account_id":3,"strategy_id":9,"status":"closed","direction":"long"}`
	w := doJSON(t, r, http.MethodPost, "/api/trades/export", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}

	p := store.listParams
	if p == nil {
		t.Fatalf("trades were not listed")
	}
	if p.UserID != 5 {
		t.Fatalf("user = %d, want 5", p.UserID)
	}
	if p.AccountID == nil || *p.AccountID != 3 {
		t.Fatalf("account filter = %v, want 3", p.AccountID)
	}
	if p.StrategyID == nil || *p.StrategyID != 9 {
		t.Fatalf("strategy filter = %v, want 9", p.StrategyID)
	}
	if p.Status == nil || *p.Status != "closed" {
		t.Fatalf("status filter = %v, want closed", p.Status)
	}
	if p.Direction == nil || *p.Direction != "long" {
		t.Fatalf("direction filter = %v, want long", p.Direction)
	}
	// Newest first, matching the journal's default listing order.
	if p.OrderBy != "entry_time" || p.Asc == nil || *p.Asc {
		t.Fatalf("order = %s asc=%v, want entry_time desc", p.OrderBy, p.Asc)
	}
}
