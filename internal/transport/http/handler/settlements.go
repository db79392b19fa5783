package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ottshare/party-api/internal/application/settlement"
	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/transport/http/middleware"
)

// SettlementHandler handles settlement reads and the admin close/run endpoints.
type SettlementHandler struct {
	svc settlement.Service
}

func NewSettlementHandler(svc settlement.Service) *SettlementHandler {
	return &SettlementHandler{svc: svc}
}

type settlementView struct {
	domain.Settlement
	StatusLabel string `json:"status_label"`
}

func toSettlementView(s *domain.Settlement) settlementView {
	return settlementView{Settlement: *s, StatusLabel: domain.SettlementStatusLabel(s.Status)}
}

func (h *SettlementHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	settlements, err := h.svc.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	views := make([]settlementView, len(settlements))
	for i := range settlements {
		views[i] = toSettlementView(&settlements[i])
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *SettlementHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	s, err := h.svc.Get(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementView(s))
}

// ClosePeriod aggregates a party period into a pending settlement. Admin only.
func (h *SettlementHandler) ClosePeriod(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PartyID      string `json:"party_id"`
		LeaderUserID string `json:"leader_user_id"`
		Period       string `json:"period"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil ||
		req.PartyID == "" || req.LeaderUserID == "" || req.Period == "" {
		writeError(w, http.StatusBadRequest, "party_id, leader_user_id and period required")
		return
	}
	s, err := h.svc.ClosePeriod(r.Context(), req.PartyID, req.LeaderUserID, req.Period)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSettlementView(s))
}

// Run pays out a pending settlement. Admin only.
func (h *SettlementHandler) Run(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Run(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettlementView(s))
}
