package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ottshare/party-api/internal/application/deposit"
	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/transport/http/middleware"
)

// DepositHandler handles deposit reads and the admin outcome endpoint.
type DepositHandler struct {
	svc deposit.Service
}

func NewDepositHandler(svc deposit.Service) *DepositHandler {
	return &DepositHandler{svc: svc}
}

type depositView struct {
	domain.Deposit
	StatusLabel string `json:"status_label"`
}

func toDepositView(d *domain.Deposit) depositView {
	return depositView{Deposit: *d, StatusLabel: domain.DepositStatusLabel(d.Status)}
}

func (h *DepositHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	deposits, err := h.svc.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	views := make([]depositView, len(deposits))
	for i := range deposits {
		views[i] = toDepositView(&deposits[i])
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *DepositHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	d, err := h.svc.Get(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDepositView(d))
}

// ApplyOutcome consumes an external party-membership outcome. Admin only.
func (h *DepositHandler) ApplyOutcome(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Outcome domain.DepositStatus `json:"outcome"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	d, err := h.svc.ApplyOutcome(r.Context(), chi.URLParam(r, "id"), req.Outcome)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDepositView(d))
}
