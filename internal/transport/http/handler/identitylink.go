package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ottshare/party-api/internal/application/identitylink"
	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/pkg/validate"
)

// IdentityLinkHandler drives the phone-certification link flow.
type IdentityLinkHandler struct {
	svc identitylink.Service
}

func NewIdentityLinkHandler(svc identitylink.Service) *IdentityLinkHandler {
	return &IdentityLinkHandler{svc: svc}
}

func (h *IdentityLinkHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req domain.PendingSocialIdentity
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	desc, err := h.svc.Start(r.Context(), req)
	if err != nil {
		if errors.Is(err, identitylink.ErrCertificationInFlight) {
			// treated as a no-op by the client
			writeJSON(w, http.StatusAccepted, MessageEnvelope{Message: "certification already in progress"})
			return
		}
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

func (h *IdentityLinkHandler) Certify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionID == "" {
		writeError(w, http.StatusBadRequest, "transaction_id required")
		return
	}
	if err := h.svc.CompleteCertification(r.Context(), req.TransactionID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "certified"})
}

func (h *IdentityLinkHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transaction_id"`
		Accepted      bool   `json:"accepted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionID == "" {
		writeError(w, http.StatusBadRequest, "transaction_id required")
		return
	}
	res, err := h.svc.Confirm(r.Context(), req.TransactionID, req.Accepted)
	if err != nil {
		httpError(w, err)
		return
	}
	if res.State == domain.LinkDeclined {
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "declined"})
		return
	}
	writeJSON(w, http.StatusOK, authEnvelope(res.Tokens, res.Session))
}
