package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ottshare/party-api/internal/application/payment"
	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/transport/http/middleware"
)

// PaymentHandler handles payment read and retry endpoints.
type PaymentHandler struct {
	svc payment.Service
}

func NewPaymentHandler(svc payment.Service) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// paymentView decorates a payment with its display label and whether the
// retry action is currently offered.
type paymentView struct {
	domain.Payment
	StatusLabel  string `json:"status_label"`
	RetryVisible bool   `json:"retry_visible"`
}

func toPaymentView(p *domain.Payment) paymentView {
	return paymentView{
		Payment:      *p,
		StatusLabel:  domain.PaymentStatusLabel(p.Status),
		RetryVisible: p.RetryEligible(),
	}
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	payments, err := h.svc.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	views := make([]paymentView, len(payments))
	for i := range payments {
		views[i] = toPaymentView(&payments[i])
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	p, err := h.svc.Get(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}

func (h *PaymentHandler) Retry(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	p, err := h.svc.Retry(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}
