package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ottshare/party-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// AuthEnvelope wraps responses that issue a token pair.
type AuthEnvelope struct {
	AccessToken  string       `json:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresIn    int64        `json:"expires_in,omitempty"`
	Session      *SafeSession `json:"session,omitempty"`
	User         *SafeUser    `json:"user,omitempty"`
	Message      string       `json:"message,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// SafeUser is the client-visible user projection.
type SafeUser struct {
	UserID        string    `json:"id"`
	Nickname      string    `json:"nickname"`
	Email         string    `json:"email"`
	Phone         *string   `json:"phone,omitempty"`
	Role          string    `json:"role"`
	PhoneVerified bool      `json:"phone_verified"`
	Provider      string    `json:"provider,omitempty"`
	CreatedAt     time.Time `json:"created"`
}

// SafeSession is the client-visible session projection.
type SafeSession struct {
	SessionID string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created"`
}

func toSafeUser(u *domain.User) *SafeUser {
	if u == nil {
		return nil
	}
	return &SafeUser{
		UserID:        u.UserID,
		Nickname:      u.Nickname,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          u.Role,
		PhoneVerified: u.PhoneVerified,
		Provider:      u.Provider,
		CreatedAt:     u.CreatedAt,
	}
}

func toSafeSession(s *domain.Session) *SafeSession {
	if s == nil {
		return nil
	}
	return &SafeSession{SessionID: s.SessionID, UserID: s.UserID, CreatedAt: s.CreatedAt}
}

func authEnvelope(pair *domain.TokenPair, sess *domain.Session) AuthEnvelope {
	env := AuthEnvelope{}
	if pair != nil {
		env.AccessToken = pair.AccessToken
		env.RefreshToken = pair.RefreshToken
		env.ExpiresIn = pair.ExpiresIn
	}
	if sess != nil {
		env.Session = toSafeSession(sess)
		env.User = toSafeUser(sess.User)
	}
	return env
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors to HTTP status codes.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrLinkConflict), errors.Is(err, domain.ErrRetryExhausted):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrVerificationMismatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrExternalProvider):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
