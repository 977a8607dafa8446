package fulfillment

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/playvault/backend/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	redemptionID := mux.Vars(r)["id"]

	var req models.UpdateRedemptionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
		return
	}

	redemption, err := h.service.Transition(r.Context(), redemptionID, req.Status)
	switch {
	case errors.Is(err, ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Message: "Status must be delivered or failed"})
		return
	case errors.Is(err, ErrRedemptionNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Message: "Redemption not found"})
		return
	case errors.Is(err, ErrAlreadyFinal):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Message: "Redemption is no longer processing"})
		return
	case err != nil:
		log.Printf("[fulfillment] update %s: %v", redemptionID, err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to update redemption"})
		return
	}

	writeJSON(w, http.StatusOK, redemption)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
