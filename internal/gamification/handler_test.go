package gamification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playvault/backend/internal/auth"
	"github.com/playvault/backend/internal/models"
)

func newTestHandler() (*Handler, *fakeRepo) {
	repo := newFakeRepo()
	return NewHandler(newTestService(repo)), repo
}

func authed(r *http.Request, userID string) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), userID))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Message
}

func TestLeaderboardPublicFieldsOnly(t *testing.T) {
	h, repo := newTestHandler()
	email := "ada@example.com"
	code := "ada12345"
	repo.addUser("u1", 500, 1)
	repo.users["u1"].Email = &email
	repo.users["u1"].ReferralCode = &code
	repo.addUser("u2", 900, 1)

	rec := httptest.NewRecorder()
	h.Leaderboard(rec, httptest.NewRequest("GET", "/api/leaderboard?limit=abc", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "email")
	assert.NotContains(t, body, "referralCode")
	assert.NotContains(t, body, email)

	var users []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "u2", users[0]["id"])
}

func TestAddXPHandler(t *testing.T) {
	h, repo := newTestHandler()
	repo.addUser("u1", 0, 1)

	tests := []struct {
		name       string
		userID     string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"no session", "", `{"xpGained":10,"type":"game"}`, http.StatusUnauthorized, "Unauthorized"},
		{"bad json", "u1", `{`, http.StatusBadRequest, "Invalid request body"},
		{"zero amount", "u1", `{"xpGained":0,"type":"game"}`, http.StatusBadRequest, "Invalid XP amount"},
		{"negative amount", "u1", `{"xpGained":-5,"type":"game"}`, http.StatusBadRequest, "Invalid XP amount"},
		{"amount past column range", "u1", `{"xpGained":2147483648,"type":"game"}`, http.StatusBadRequest, "Invalid XP amount"},
		{"bad type", "u1", `{"xpGained":5,"type":"bonus"}`, http.StatusBadRequest, "Invalid activity type"},
		{"unknown user", "ghost", `{"xpGained":5,"type":"game"}`, http.StatusNotFound, "User not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/xp/add", strings.NewReader(tt.body))
			if tt.userID != "" {
				req = authed(req, tt.userID)
			}
			rec := httptest.NewRecorder()
			h.AddXP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMsg, decodeError(t, rec))
		})
	}

	u, _ := repo.GetUser(context.Background(), "u1")
	assert.Equal(t, 0, u.XP)

	rec := httptest.NewRecorder()
	h.AddXP(rec, authed(httptest.NewRequest("POST", "/api/xp/add",
		strings.NewReader(`{"xpGained":2500,"type":"survey","metadata":{"surveyId":"s-9"}}`)), "u1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.AddXPResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2500, resp.XPGained)
	assert.Equal(t, 2, resp.User.Level)
}

func TestRedeemHandlerInsufficientXP(t *testing.T) {
	h, repo := newTestHandler()
	repo.addUser("u1", 100, 1)
	repo.rewards["r1"] = &models.Reward{ID: "r1", XPCost: 1000, IsActive: true}

	rec := httptest.NewRecorder()
	h.Redeem(rec, authed(httptest.NewRequest("POST", "/api/rewards/redeem",
		strings.NewReader(`{"rewardId":"r1"}`)), "u1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Insufficient XP", decodeError(t, rec))
}

func TestCompleteDailyTaskHandler(t *testing.T) {
	h, repo := newTestHandler()
	repo.addUser("u1", 0, 1)

	complete := func() models.CompleteTaskResponse {
		rec := httptest.NewRecorder()
		h.CompleteDailyTask(rec, authed(httptest.NewRequest("POST", "/api/daily-tasks/complete",
			strings.NewReader(`{"taskType":"survey"}`)), "u1"))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp models.CompleteTaskResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		return resp
	}

	first := complete()
	require.NotNil(t, first.Task)
	assert.Equal(t, "Task completed successfully", first.Message)

	second := complete()
	assert.Nil(t, second.Task)

	u, _ := repo.GetUser(context.Background(), "u1")
	assert.Equal(t, 50, u.XP)
}

func TestClaimReferralHandlerConflict(t *testing.T) {
	h, repo := newTestHandler()
	repo.addUser("alice", 0, 1)
	repo.addUser("bob", 0, 1)
	code := "alice0001"
	repo.users["alice"].ReferralCode = &code

	claim := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ClaimReferral(rec, authed(httptest.NewRequest("POST", "/api/referrals/claim",
			strings.NewReader(`{"code":"ALICE0001"}`)), "bob"))
		return rec
	}

	assert.Equal(t, http.StatusOK, claim().Code)

	rec := claim()
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Referral already applied", decodeError(t, rec))
}

func TestIntQueryParam(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 10},
		{"25", 25},
		{"0", 10},
		{"-4", 10},
		{"ten", 10},
	}
	for _, tt := range tests {
		q := map[string][]string{}
		if tt.raw != "" {
			q["limit"] = []string{tt.raw}
		}
		if got := intQueryParam(q, "limit", 10); got != tt.want {
			t.Errorf("intQueryParam(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
