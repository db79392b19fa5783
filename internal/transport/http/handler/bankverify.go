package handler

import (
	"encoding/json"
	"net/http"

	"github.com/ottshare/party-api/internal/application/bankverify"
	"github.com/ottshare/party-api/internal/transport/http/middleware"
)

// BankVerifyHandler drives the micro-deposit ownership verification.
type BankVerifyHandler struct {
	svc bankverify.Service
}

func NewBankVerifyHandler(svc bankverify.Service) *BankVerifyHandler {
	return &BankVerifyHandler{svc: svc}
}

// Start resets the flow to the input stage, whatever state it was left in.
func (h *BankVerifyHandler) Start(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	v, err := h.svc.Enter(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *BankVerifyHandler) SubmitAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		BankCode      string `json:"bank_code"`
		AccountNumber string `json:"account_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.SubmitAccount(r.Context(), claims.UserID, req.BankCode, req.AccountNumber); err != nil {
		httpError(w, err)
		return
	}
	v, err := h.svc.Current(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Issued is the issuance confirmation callback for wires that report the
// deposit landing asynchronously. When the wire answered synchronously the
// session is already at verify and a duplicate confirmation is refused.
func (h *BankVerifyHandler) Issued(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reference == "" {
		writeError(w, http.StatusBadRequest, "reference required")
		return
	}
	if err := h.svc.MarkIssued(r.Context(), claims.UserID, req.Reference); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "issued"})
}

func (h *BankVerifyHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reference == "" {
		writeError(w, http.StatusBadRequest, "reference required")
		return
	}
	account, err := h.svc.ConfirmDeposit(r.Context(), claims.UserID, req.Reference)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *BankVerifyHandler) Current(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	v, err := h.svc.Current(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
