package gamification

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/playvault/backend/internal/auth"
	"github.com/playvault/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func getUserID(r *http.Request) (string, bool) {
	return auth.UserID(r.Context())
}

// ── Users ───────────────────────────────────────────────

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Unauthorized"})
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to fetch user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ── XP & Streak ─────────────────────────────────────────

func (h *Handler) AddXP(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Unauthorized"})
		return
	}

	var req models.AddXPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
		return
	}

	resp, err := h.service.GrantXP(r.Context(), userID, req)
	if err != nil {
		writeError(w, err, "Failed to add XP")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) UpdateStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Unauthorized"})
		return
	}

	user, err := h.service.UpdateStreak(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to update streak")
		return
	}

	writeJSON(w, http.StatusOK, models.UserResponse{User: user})
}

func (h *Handler) Activities(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Unauthorized"})
		return
	}

	limit := intQueryParam(r.URL.Query(), "limit", DefaultActivityLimit)

	activities, err := h.service.GetActivities(r.Context(), userID, limit)
	if err != nil {
		writeError(w, err, "Failed to fetch activities")
		return
	}

	writeJSON(w, http.StatusOK, activities)
}

// ── Leaderboard & Catalog ───────────────────────────────

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := intQueryParam(r.URL.Query(), "limit", DefaultLeaderboardLimit)

	users, err := h.service.GetLeaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err, "Failed to fetch leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) Rewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.service.GetRewards(r.Context())
	if err != nil {
		writeError(w, err, "Failed to fetch rewards")
		return
	}

	writeJSON(w, http.StatusOK, rewards)
}

func (h *Handler) Games(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.GetGameOffers(r.Context())
	if err != nil {
		writeError(w, err, "Failed to fetch games")
		return
	}

	writeJSON(w, http.StatusOK, games)
}

// ── Redemption ──────────────────────────────────────────

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Unauthorized"})
		return
	}

	var req models.RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
		return
	}

	redemption, err := h.service.Redeem(r.Context(), userID, req)
	if err != nil {
		writeError(w, err, "Failed to redeem reward")
		return
	}

	writeJSON(w, http.StatusOK, models.RedeemResponse{
		Redemption: redemption,
		Message:    "Reward redeemed successfully",
	})
}

func (h *Handler) Redemptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Unauthorized"})
		return
	}

	redemptions, err := h.service.GetRedemptions(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to fetch redemptions")
		return
	}

	writeJSON(w, http.StatusOK, redemptions)
}

// ── Daily Tasks & Milestones ────────────────────────────

func (h *Handler) DailyTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Unauthorized"})
		return
	}

	tasks, err := h.service.GetDailyTasks(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to fetch daily tasks")
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handler) CompleteDailyTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Unauthorized"})
		return
	}

	var req models.CompleteTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
		return
	}

	task, err := h.service.CompleteDailyTask(r.Context(), userID, req.TaskType)
	if err != nil {
		writeError(w, err, "Failed to complete task")
		return
	}

	msg := "Task completed successfully"
	if task == nil {
		msg = "Task already completed"
	}
	writeJSON(w, http.StatusOK, models.CompleteTaskResponse{Task: task, Message: msg})
}

func (h *Handler) Milestones(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Unauthorized"})
		return
	}

	milestones, err := h.service.GetMilestones(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to fetch milestones")
		return
	}

	writeJSON(w, http.StatusOK, milestones)
}

// ── Referrals ───────────────────────────────────────────

func (h *Handler) Referrals(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Unauthorized"})
		return
	}

	referrals, err := h.service.GetReferrals(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to fetch referrals")
		return
	}

	writeJSON(w, http.StatusOK, referrals)
}

func (h *Handler) ReferralCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Unauthorized"})
		return
	}

	code, err := h.service.GetOrCreateReferralCode(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to get referral code")
		return
	}

	writeJSON(w, http.StatusOK, models.ReferralCodeResponse{ReferralCode: code})
}

func (h *Handler) ClaimReferral(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Unauthorized"})
		return
	}

	var req models.ClaimReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Message: "code is required"})
		return
	}

	referrerID, err := h.service.ClaimReferral(r.Context(), userID, req.Code)
	if err != nil {
		writeError(w, err, "Failed to claim referral")
		return
	}

	writeJSON(w, http.StatusOK, models.ClaimReferralResponse{
		ReferredBy: referrerID,
		Message:    "Referral applied",
	})
}

// ── Helpers ─────────────────────────────────────────────

var errorStatuses = []struct {
	err     error
	status  int
	message string
}{
	{ErrInvalidAmount, http.StatusBadRequest, "Invalid XP amount"},
	{ErrInvalidCategory, http.StatusBadRequest, "Invalid activity type"},
	{ErrInvalidTaskType, http.StatusBadRequest, "Invalid task type"},
	{ErrInvalidReward, http.StatusBadRequest, "rewardId is required"},
	{ErrInsufficientXP, http.StatusBadRequest, "Insufficient XP"},
	{ErrSelfReferral, http.StatusBadRequest, "You cannot use your own referral code"},
	{ErrUserNotFound, http.StatusNotFound, "User not found"},
	{ErrRewardNotFound, http.StatusNotFound, "Reward not found"},
	{ErrReferralCodeNotFound, http.StatusNotFound, "Referral code not found"},
	{ErrAlreadyReferred, http.StatusConflict, "Referral already applied"},
}

// writeError maps domain errors to their status; anything else is logged and
// reported as a 500 with fallback as the message.
func writeError(w http.ResponseWriter, err error, fallback string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			writeJSON(w, e.status, models.ErrorResponse{Message: e.message})
			return
		}
	}
	log.Printf("[gamification] %s: %v", fallback, err)
	writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Message: fallback})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	return v
}
