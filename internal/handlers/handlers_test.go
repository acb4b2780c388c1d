package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"fortune-wheel-backend/internal/config"
	"fortune-wheel-backend/internal/handlers"
	"fortune-wheel-backend/internal/models"
	"fortune-wheel-backend/internal/services"
	"fortune-wheel-backend/internal/wheel"
)

const (
	testAPIKey  = "operator-key"
	testAccount = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"
)

type fakeEngine struct {
	mu         sync.Mutex
	betErr     error
	autoErr    error
	lastBet    *models.BetRequest
	lastResult *models.GameResult
	autoActive bool
	history    []*models.GameResult
}

func (f *fakeEngine) State(amount decimal.Decimal) *models.RoundState {
	return &models.RoundState{
		Connected:     true,
		Account:       testAccount,
		ContractState: "ready",
		CanBet:        amount.IsPositive(),
		CanBetBlock:   true,
	}
}

func (f *fakeEngine) PlaceBet(_ context.Context, req *models.BetRequest) (*models.BetReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.betErr != nil {
		return nil, f.betErr
	}
	f.lastBet = req
	return &models.BetReceipt{TxHash: "0xbb", RoundID: "7", Amount: req.Amount, Risk: req.Risk, Segments: req.Segments}, nil
}

func (f *fakeEngine) AutoBet(*models.AutoBetRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.autoErr != nil {
		return f.autoErr
	}
	f.autoActive = true
	return nil
}

func (f *fakeEngine) StopAutoBet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	was := f.autoActive
	f.autoActive = false
	return was
}

func (f *fakeEngine) LastResult() *models.GameResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastResult
}

func (f *fakeEngine) DismissResult() {
	f.mu.Lock()
	f.lastResult = nil
	f.mu.Unlock()
}

func (f *fakeEngine) History(_ context.Context, limit int64) ([]*models.GameResult, error) {
	if int64(len(f.history)) > limit {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func (f *fakeEngine) Stats(ctx context.Context) (*models.GameStats, error) {
	games, _ := f.History(ctx, services.MaxHistory)
	return models.Aggregate(games), nil
}

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]*models.APISession
	allow    bool
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[string]*models.APISession{}, allow: true}
}

func (m *memorySessions) StoreSession(_ context.Context, s *models.APISession, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = s
	return nil
}

func (m *memorySessions) GetSession(_ context.Context, id string) (*models.APISession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, services.ErrNotFound)
	}
	return s, nil
}

func (m *memorySessions) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memorySessions) CheckRateLimit(context.Context, string, string, int, time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allow, nil
}

type testServer struct {
	router   *gin.Engine
	engine   *fakeEngine
	sessions *memorySessions
	hub      *handlers.WebSocketHub
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := handlers.NewWebSocketHub(log)
	go hub.Run(ctx)

	ts := &testServer{
		engine:   &fakeEngine{},
		sessions: newMemorySessions(),
		hub:      hub,
	}
	ts.router = handlers.NewRouter(handlers.RouterDeps{
		Engine:     ts.engine,
		Sessions:   ts.sessions,
		Limiter:    ts.sessions,
		JWTService: services.NewJWTService(&config.Config{JWTSecret: "test-secret"}),
		Hub:        hub,
		APIKey:     testAPIKey,
		Account:    testAccount,
		Log:        log,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/auth/token", "", gin.H{"api_key": testAPIKey})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /auth/token, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token   string `json:"token"`
		Account string `json:"account"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode token response: %v", err)
	}
	if resp.Account != testAccount {
		t.Errorf("Expected account %s, got %s", testAccount, resp.Account)
	}
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)
	w := ts.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"contract_state":"ready"`) {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}

func TestAuthFlow(t *testing.T) {
	ts := setupServer(t)

	if w := ts.do(t, http.MethodPost, "/auth/token", "", gin.H{"api_key": "wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a wrong key, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/wheel/state", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/wheel/state", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for an invalid token, got %d", w.Code)
	}

	token := ts.login(t)

	w := ts.do(t, http.MethodGet, "/api/me", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /api/me, got %d", w.Code)
	}
	var me struct {
		Account string `json:"account"`
	}
	decode(t, w, &me)
	if me.Account != testAccount {
		t.Errorf("Expected account %s, got %s", testAccount, me.Account)
	}

	if w := ts.do(t, http.MethodPost, "/api/logout", token, nil); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from logout, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/me", token, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Token should stop working after logout, got %d", w.Code)
	}
}

func TestGetState(t *testing.T) {
	ts := setupServer(t)
	token := ts.login(t)

	w := ts.do(t, http.MethodGet, "/api/wheel/state?amount=2.5", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		State models.RoundState `json:"state"`
	}
	decode(t, w, &resp)
	if !resp.State.CanBet {
		t.Error("Expected can_bet for a positive amount")
	}

	w = ts.do(t, http.MethodGet, "/api/wheel/state?amount=0", token, nil)
	decode(t, w, &resp)
	if resp.State.CanBet {
		t.Error("Expected can_bet false for zero amount")
	}

	if w := ts.do(t, http.MethodGet, "/api/wheel/state?amount=abc", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a malformed amount, got %d", w.Code)
	}
}

func TestPlaceBet(t *testing.T) {
	ts := setupServer(t)
	token := ts.login(t)

	w := ts.do(t, http.MethodPost, "/api/wheel/bet", token, gin.H{"amount": "1.5", "risk": "high", "segments": 20})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !ts.engine.lastBet.Amount.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("Expected amount 1.5, got %s", ts.engine.lastBet.Amount)
	}

	if w := ts.do(t, http.MethodPost, "/api/wheel/bet", token, "not an object"); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a malformed body, got %d", w.Code)
	}
}

func TestPlaceBetErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"invalid", fmt.Errorf("%w: bet amount must be positive", services.ErrInvalidBet), http.StatusBadRequest, "bet amount must be positive"},
		{"refused", fmt.Errorf("%w: cooldown active", services.ErrBetRefused), http.StatusConflict, "cooldown active"},
		{"transaction", &services.BetError{Message: "Transaction failed: nonce too low"}, http.StatusBadGateway, "Transaction failed: nonce too low"},
		{"closed", services.ErrEngineClosed, http.StatusServiceUnavailable, "engine closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupServer(t)
			token := ts.login(t)
			ts.engine.betErr = tt.err

			w := ts.do(t, http.MethodPost, "/api/wheel/bet", token, gin.H{"amount": "1", "risk": "low", "segments": 10})
			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, w.Code)
			}
			var resp struct {
				Details string `json:"details"`
			}
			decode(t, w, &resp)
			if !strings.Contains(resp.Details, tt.detail) {
				t.Errorf("Expected details to contain %q, got %q", tt.detail, resp.Details)
			}
		})
	}
}

func TestAutoBet(t *testing.T) {
	ts := setupServer(t)
	token := ts.login(t)

	body := gin.H{"number_of_bets": 3, "amount": "1", "risk": "medium", "segments": 10}
	if w := ts.do(t, http.MethodPost, "/api/wheel/autobet", token, body); w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}

	bad := gin.H{"number_of_bets": 101, "amount": "1", "risk": "medium", "segments": 10}
	if w := ts.do(t, http.MethodPost, "/api/wheel/autobet", token, bad); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for too many bets, got %d", w.Code)
	}

	w := ts.do(t, http.MethodPost, "/api/wheel/autobet/stop", token, nil)
	if !strings.Contains(w.Body.String(), `"stopped":true`) {
		t.Errorf("Expected stopped true, got %s", w.Body.String())
	}

	ts.engine.autoErr = services.ErrSpinInProgress
	if w := ts.do(t, http.MethodPost, "/api/wheel/autobet", token, body); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 while spinning, got %d", w.Code)
	}
}

func TestResultLifecycle(t *testing.T) {
	ts := setupServer(t)
	token := ts.login(t)

	if w := ts.do(t, http.MethodGet, "/api/wheel/result", token, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before any result, got %d", w.Code)
	}

	ts.engine.lastResult = &models.GameResult{ID: "wheel_1", Color: wheel.ColorLoss}
	w := ts.do(t, http.MethodGet, "/api/wheel/result", token, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), wheel.ColorLoss) {
		t.Fatalf("Expected the stored result, got %d %s", w.Code, w.Body.String())
	}

	if w := ts.do(t, http.MethodDelete, "/api/wheel/result", token, nil); w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from dismiss, got %d", w.Code)
	}
	if ts.engine.LastResult() != nil {
		t.Error("Dismiss should clear the result")
	}
}

func TestHistoryAndStats(t *testing.T) {
	ts := setupServer(t)
	token := ts.login(t)
	ts.engine.history = []*models.GameResult{
		{ID: "a", BetAmount: decimal.NewFromInt(1), IsWin: true, Payout: decimal.NewFromInt(3), Multiplier: decimal.NewFromInt(3)},
		{ID: "b", BetAmount: decimal.NewFromInt(2), Multiplier: decimal.Zero},
	}

	w := ts.do(t, http.MethodGet, "/api/wheel/history?limit=1", token, nil)
	var hist struct {
		Count int `json:"count"`
	}
	decode(t, w, &hist)
	if hist.Count != 1 {
		t.Errorf("Expected 1 game, got %d", hist.Count)
	}

	for _, q := range []string{"0", "101", "x"} {
		if w := ts.do(t, http.MethodGet, "/api/wheel/history?limit="+q, token, nil); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for limit=%s, got %d", q, w.Code)
		}
	}

	w = ts.do(t, http.MethodGet, "/api/wheel/stats", token, nil)
	var stats struct {
		Stats models.GameStats `json:"stats"`
	}
	decode(t, w, &stats)
	if stats.Stats.TotalGames != 2 || stats.Stats.Wins != 1 {
		t.Errorf("Unexpected stats %+v", stats.Stats)
	}
	if !stats.Stats.NetProfit.Equal(decimal.Zero) {
		t.Errorf("Expected zero net profit, got %s", stats.Stats.NetProfit)
	}
}

func TestGetPosition(t *testing.T) {
	ts := setupServer(t)
	token := ts.login(t)

	w := ts.do(t, http.MethodGet, "/api/wheel/position?segment=3&segments=10", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var pos models.PositionResponse
	decode(t, w, &pos)
	if math.Abs(pos.TargetAngle-35.49999698556466) > 1e-9 {
		t.Errorf("Expected 35.49999698556466, got %v", pos.TargetAngle)
	}

	for _, q := range []string{"segment=10&segments=10", "segment=0&segments=0", "segment=a&segments=10"} {
		if w := ts.do(t, http.MethodGet, "/api/wheel/position?"+q, token, nil); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %s, got %d", q, w.Code)
		}
	}
}

func TestRateLimit(t *testing.T) {
	ts := setupServer(t)
	token := ts.login(t)
	ts.sessions.allow = false

	w := ts.do(t, http.MethodPost, "/api/wheel/bet", token, gin.H{"amount": "1", "risk": "low", "segments": 10})
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", w.Code)
	}
	if w := ts.do(t, http.MethodGet, "/api/wheel/state", token, nil); w.Code != http.StatusOK {
		t.Errorf("Reads should not be rate limited, got %d", w.Code)
	}
}

func TestWebSocket(t *testing.T) {
	ts := setupServer(t)
	token := ts.login(t)

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg handlers.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read initial state: %v", err)
	}
	if msg.Type != handlers.MsgStateUpdate {
		t.Errorf("Expected %s first, got %s", handlers.MsgStateUpdate, msg.Type)
	}

	if err := conn.WriteJSON(handlers.Message{Type: "PING"}); err != nil {
		t.Fatalf("Failed to send ping: %v", err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read pong: %v", err)
	}
	if msg.Type != handlers.MsgPong {
		t.Errorf("Expected %s, got %s", handlers.MsgPong, msg.Type)
	}

	// The pong proves the client is registered with the hub.
	ts.hub.BroadcastResult(&models.GameResult{ID: "wheel_ws", Color: wheel.ColorWin})
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read broadcast: %v", err)
	}
	if msg.Type != handlers.MsgGameResult {
		t.Errorf("Expected %s, got %s", handlers.MsgGameResult, msg.Type)
	}

	ts.hub.BroadcastError("Transaction failed: boom")
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read error broadcast: %v", err)
	}
	if msg.Type != handlers.MsgBetError {
		t.Errorf("Expected %s, got %s", handlers.MsgBetError, msg.Type)
	}
}
