package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mroshb/betpals/internal/config"
	"github.com/mroshb/betpals/internal/models"
	"github.com/mroshb/betpals/internal/security"
	"github.com/mroshb/betpals/internal/services"
	"github.com/mroshb/betpals/internal/testutil"
	"github.com/mroshb/betpals/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "handlers_test_secret_with_32_chars!!"

type testServer struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	repos := services.NewRepositories(db)
	deps := services.Deps{}
	cfg := &config.Config{JWTSecret: testSecret}

	achievements := services.NewAchievementService(db, repos, deps)
	h := NewHandlerManager(
		cfg,
		services.NewProfileService(db, repos, deps, services.ProfileOptions{SignupBetCoins: 100}),
		services.NewFriendService(repos, deps, achievements),
		services.NewBetService(db, repos, deps, achievements, 20),
		achievements,
		services.NewGroupService(repos, deps, achievements, 8),
		services.NewWalletService(repos),
	)
	return &testServer{t: t, db: db, router: NewRouter(h, nil, nil)}
}

func (s *testServer) do(method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := security.GenerateJWT(userID, userID+"@example.com", testSecret, "", time.Hour)
		require.NoError(s.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFriendRoutes(t *testing.T) {
	s := newTestServer(t)
	a := testutil.CreateUser(t, s.db)
	b := testutil.CreateUser(t, s.db)

	tests := []struct {
		name       string
		actor      string
		body       interface{}
		wantStatus int
	}{
		{"missing friend", a.ID, map[string]string{"userId": a.ID}, http.StatusBadRequest},
		{"someone else's id", a.ID, map[string]string{"userId": b.ID, "friendId": a.ID}, http.StatusForbidden},
		{"self request", a.ID, map[string]string{"userId": a.ID, "friendId": a.ID}, http.StatusBadRequest},
		{"valid", a.ID, map[string]string{"userId": a.ID, "friendId": b.ID}, http.StatusOK},
		{"reverse duplicate", b.ID, map[string]string{"userId": b.ID, "friendId": a.ID}, http.StatusBadRequest},
	}

	var requestID string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/friends/request", tt.actor, tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if rec.Code == http.StatusOK {
				body := decode(t, rec)
				assert.Equal(t, true, body["success"])
				request := body["request"].(map[string]interface{})
				requestID = request["id"].(string)
			} else {
				assert.Contains(t, decode(t, rec), "error")
			}
		})
	}
	require.NotEmpty(t, requestID)

	rec := s.do(http.MethodGet, "/api/friends/pending?userId="+a.ID, b.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/friends/pending", b.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/friends/pending?userId="+b.ID, b.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	requests := decode(t, rec)["requests"].([]interface{})
	require.Len(t, requests, 1)

	rec = s.do(http.MethodPost, "/api/friends/respond", a.ID, map[string]string{"requestId": requestID, "status": "accepted"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/friends/respond", b.ID, map[string]string{"requestId": requestID, "status": "accepted"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])

	rec = s.do(http.MethodGet, "/api/friends", a.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["friends"], 1)

	rec = s.do(http.MethodDelete, "/api/friends/"+b.ID, a.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearchRoute(t *testing.T) {
	s := newTestServer(t)
	me := testutil.CreateUser(t, s.db)
	testutil.CreateUser(t, s.db, testutil.WithUsername("derbyfan"))

	rec := s.do(http.MethodGet, "/api/users/search?query=derby", me.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode(t, rec)["users"].([]interface{})
	require.Len(t, users, 1)
	assert.Equal(t, "derbyfan", users[0].(map[string]interface{})["username"])

	rec = s.do(http.MethodGet, "/api/users/search?query=d", me.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["users"])
}

func TestProfileRoutes(t *testing.T) {
	s := newTestServer(t)
	id := "0b7f9c1e-1111-4222-8333-444455556666"

	rec := s.do(http.MethodPost, "/api/profile", id, map[string]string{"username": "newbie"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, id+"@example.com", body["email"])
	assert.Equal(t, float64(100), body["bet_coins"])

	rec = s.do(http.MethodPost, "/api/profile", id, map[string]string{"username": "newbie"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPatch, "/api/profile", id, map[string]string{"bio": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", decode(t, rec)["bio"])

	rec = s.do(http.MethodGet, "/api/users/"+id+"/stats", id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(100), decode(t, rec)["bet_coins"])

	rec = s.do(http.MethodGet, "/api/users/missing", id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBetRoutes(t *testing.T) {
	s := newTestServer(t)
	creator := testutil.CreateUser(t, s.db, testutil.WithBetCoins(100))
	opponent := testutil.CreateUser(t, s.db, testutil.WithBetCoins(100))

	rec := s.do(http.MethodPost, "/api/bets", creator.ID, map[string]interface{}{
		"title":               "Derby",
		"amount":              25,
		"is_coin_denominated": true,
		"opponent_id":         opponent.ID,
		"is_public":           true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	betID := decode(t, rec)["id"].(string)

	rec = s.do(http.MethodPost, "/api/bets", creator.ID, map[string]interface{}{
		"title": "Nothing", "amount": 0, "opponent_id": opponent.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := fmt.Sprintf("/api/bets/%s", betID)

	rec = s.do(http.MethodPost, path+"/accept", creator.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodPost, path+"/accept", opponent.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.BetStatusActive, decode(t, rec)["status"])

	rec = s.do(http.MethodPost, path+"/comments", opponent.ID, map[string]string{"text": "good luck"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, path+"/resolve", creator.ID, map[string]string{"winnerId": opponent.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, opponent.ID, decode(t, rec)["winner_id"])

	rec = s.do(http.MethodPost, path+"/resolve", creator.ID, map[string]string{"winnerId": creator.ID})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeBetNotActive, decode(t, rec)["code"])

	rec = s.do(http.MethodGet, path, creator.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["comments"], 1)

	rec = s.do(http.MethodGet, path+"/transactions", creator.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["transactions"], 3)

	rec = s.do(http.MethodGet, "/api/bets?status=completed", opponent.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["bets"], 1)
}

func TestWalletRoutes(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db)

	rec := s.do(http.MethodPost, "/api/wallet/deposit", user.ID, map[string]string{"amount": "10.25"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "10.25", decode(t, rec)["balance"])

	rec = s.do(http.MethodPost, "/api/wallet/withdraw", user.ID, map[string]string{"amount": "50"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeInsufficientFunds, decode(t, rec)["code"])

	rec = s.do(http.MethodGet, "/api/wallet/export", user.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, rec.Body.Len())
}

func TestGroupRoutes(t *testing.T) {
	s := newTestServer(t)
	owner := testutil.CreateUser(t, s.db)
	member := testutil.CreateUser(t, s.db)

	rec := s.do(http.MethodPost, "/api/groups", owner.ID, map[string]string{"name": "Office"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	group := decode(t, rec)

	rec = s.do(http.MethodGet, "/api/groups/"+group["id"].(string), member.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/groups/join", member.ID, map[string]interface{}{"inviteCode": group["invite_code"]})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/groups/"+group["id"].(string), member.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["members"], 2)

	rec = s.do(http.MethodPost, "/api/bets", owner.ID, map[string]interface{}{
		"title":               "Office pool",
		"amount":              1,
		"is_coin_denominated": true,
		"opponent_id":         member.ID,
		"group_id":            group["id"],
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/groups/"+group["id"].(string)+"/bets", member.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["bets"], 1)

	rec = s.do(http.MethodPost, "/api/groups/"+group["id"].(string)+"/leave", member.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/groups/"+group["id"].(string)+"/bets", member.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAchievementRoutes(t *testing.T) {
	s := newTestServer(t)
	user := testutil.CreateUser(t, s.db)
	a := &models.Achievement{
		Name: "Collector", Category: "test", MaxTier: 3,
		TierThresholds: []int64{50, 100, 200}, TierRewards: []int64{10, 20, 30},
	}
	require.NoError(t, s.db.Create(a).Error)

	rec := s.do(http.MethodPost, "/api/achievements/"+a.ID+"/progress", user.ID, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/achievements/"+a.ID+"/progress", user.ID, map[string]interface{}{"progress": 150})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["current_tier"])
	assert.Equal(t, float64(50), body["progress_percentage"])
	assert.Equal(t, float64(30), body["rewarded_this_update"])

	metric := models.MetricBetsWon
	tracked := &models.Achievement{
		Name: "Winner", Category: "test", MaxTier: 1, Metric: &metric,
		TierThresholds: []int64{1}, TierRewards: []int64{500},
	}
	require.NoError(t, s.db.Create(tracked).Error)

	rec = s.do(http.MethodPost, "/api/achievements/"+tracked.ID+"/progress", user.ID, map[string]interface{}{"progress": 1000000})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, errors.ErrCodeForbidden, decode(t, rec)["code"])

	rec = s.do(http.MethodGet, "/api/users/"+user.ID+"/achievements", user.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	views := decode(t, rec)["achievements"].([]interface{})
	require.Len(t, views, 2)
	for _, v := range views {
		view := v.(map[string]interface{})
		if view["achievement"].(map[string]interface{})["name"] == "Winner" {
			assert.Equal(t, float64(0), view["progress"])
		}
	}

	rec = s.do(http.MethodGet, "/api/wallet", user.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(30), decode(t, rec)["bet_coins"])
}

func TestSimpleErrorHidesInternalFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"validation", errors.New(errors.ErrCodeValidation, "bad input"), http.StatusBadRequest, "bad input"},
		{"duplicate", errors.New(errors.ErrCodeAlreadyExists, "friend request already exists"), http.StatusBadRequest, "already exists"},
		{"internal", errors.Wrap(fmt.Errorf("pq: connection refused"), errors.ErrCodeInternalError, "failed"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			respondSimpleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}
