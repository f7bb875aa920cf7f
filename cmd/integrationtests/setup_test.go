package integrationtests

import (
	"bidbot/internal/account"
	bidding "bidbot/internal/biddingService"
	"bidbot/internal/clock"
	"bidbot/internal/events"
	model "bidbot/internal/models"
	"bidbot/internal/notify"
	"bidbot/internal/repository"
	"bidbot/internal/server"
	"bidbot/internal/session"
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// baseTime is the fixed instant every test environment starts at
var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// testEnv is the full router wired over in-memory backends
type testEnv struct {
	router   *gin.Engine
	repo     *repository.MemoryRepo
	sessions *session.Manager
	clock    *clock.Manual
	hub      *events.Hub
}

func newTestEnv(t *testing.T, items ...model.AuctionItem) *testEnv {
	t.Helper()

	clk := clock.NewManual(baseTime)
	repo := repository.NewMemoryRepo()
	for _, item := range items {
		repo.AddItem(item)
	}

	hub := events.NewHub(64)
	mailer := notify.NewMailer(notify.LogSender{})
	sessions := session.NewManager(session.NewMemoryStore(), clk, time.Hour)

	accounts := account.NewService(repository.NewMemoryUserRepo(), sessions, mailer,
		account.WithBcryptCost(bcrypt.MinCost),
		account.WithClock(clk),
	)
	svc := bidding.NewBiddingService(repo,
		bidding.WithClock(clk),
		bidding.WithNotifier(mailer),
		bidding.WithPublisher(hub),
	)

	return &testEnv{
		router: server.SetupRouter(server.Dependencies{
			Bidding:  svc,
			Accounts: accounts,
			Sessions: sessions,
			Feed:     hub,
			Clock:    clk,
		}),
		repo:     repo,
		sessions: sessions,
		clock:    clk,
		hub:      hub,
	}
}

// item builds an open item ending an hour after baseTime
func item(itemID string, startingBid float64) model.AuctionItem {
	return model.AuctionItem{
		ItemID:      itemID,
		Name:        "Item " + itemID,
		Description: "integration test item",
		StartingBid: startingBid,
		EndTime:     baseTime.Add(time.Hour),
		OwnerID:     "owner@example.com",
		CreatedAt:   baseTime.Add(-time.Hour),
	}
}

// sessionFor issues a session for userID without going through signup
func (e *testEnv) sessionFor(t *testing.T, userID string) string {
	t.Helper()
	s, err := e.sessions.Issue(context.Background(), userID)
	require.NoError(t, err)
	return s.Token
}

// ExecuteRequestAndParse executes an HTTP request on the router and parses the JSON envelope
func (e *testEnv) ExecuteRequestAndParse(t *testing.T, method, url, token string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err, "failed to marshal body")
	}

	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "failed to unmarshal response")
	}
	return resp, w
}

func dataMap(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response has no object data: %v", resp)
	return data
}

func dataList(t *testing.T, resp map[string]any) []any {
	t.Helper()
	data, ok := resp["data"].([]any)
	require.True(t, ok, "response has no list data: %v", resp)
	return data
}
