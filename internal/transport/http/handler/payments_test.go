package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ottshare/party-api/internal/config"
	"github.com/ottshare/party-api/internal/domain"
	jwtinfra "github.com/ottshare/party-api/internal/infrastructure/jwt"
	"github.com/ottshare/party-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockPaymentSvc struct{ mock.Mock }

func (m *mockPaymentSvc) Retry(ctx context.Context, userID, paymentID string) (*domain.Payment, error) {
	args := m.Called(ctx, userID, paymentID)
	if p, _ := args.Get(0).(*domain.Payment); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentSvc) Get(ctx context.Context, userID, paymentID string) (*domain.Payment, error) {
	args := m.Called(ctx, userID, paymentID)
	if p, _ := args.Get(0).(*domain.Payment); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentSvc) ListByUser(ctx context.Context, userID string) ([]domain.Payment, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Payment), args.Error(1)
}

// --- helpers ---

// newTestJWTProvider generates a fresh RSA key pair and returns a *jwtinfra.Provider.
func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

// bearerReq builds a request with a signed Bearer token for the given userID and role.
func bearerReq(t *testing.T, p *jwtinfra.Provider, method, target, userID, role string, body []byte) *http.Request {
	t.Helper()
	token, err := p.Sign(userID, role, "sess1")
	require.NoError(t, err)
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// serveAuthed wraps the handler with middleware.Auth before serving.
func serveAuthed(p *jwtinfra.Provider, h http.Handler, w http.ResponseWriter, r *http.Request) {
	middleware.Auth(p)(h).ServeHTTP(w, r)
}

func intp(n int) *int    { return &n }
func boolp(b bool) *bool { return &b }

// --- Retry tests ---

func TestPaymentRetry_MissingClaims(t *testing.T) {
	svc := &mockPaymentSvc{}
	h := NewPaymentHandler(svc)
	r := withChiID(httptest.NewRequest(http.MethodPost, "/v1/payments/p1/retry", nil), "p1")
	rr := httptest.NewRecorder()
	h.Retry(rr, r) // called directly, no claims in context
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPaymentRetry_HappyPath(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockPaymentSvc{}
	completed := &domain.Payment{
		PaymentID: "p1", UserID: "u1", PartyID: "pt1", Period: "2026-08",
		Amount: 4250, Status: domain.PaymentCompleted, AttemptNumber: intp(1),
	}
	svc.On("Retry", mock.Anything, "u1", "p1").Return(completed, nil)
	h := NewPaymentHandler(svc)

	r := bearerReq(t, p, http.MethodPost, "/v1/payments/p1/retry", "u1", domain.RoleUser, nil)
	r = withChiID(r, "p1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Retry), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "COMPLETED", resp["status"])
	assert.Equal(t, "결제 완료", resp["status_label"])
	assert.Equal(t, false, resp["retry_visible"])
	svc.AssertExpectations(t)
}

func TestPaymentRetry_Exhausted(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockPaymentSvc{}
	svc.On("Retry", mock.Anything, "u1", "p1").Return(nil, domain.ErrRetryExhausted)
	h := NewPaymentHandler(svc)

	r := bearerReq(t, p, http.MethodPost, "/v1/payments/p1/retry", "u1", domain.RoleUser, nil)
	r = withChiID(r, "p1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Retry), rr, r)

	assert.Equal(t, http.StatusConflict, rr.Code)
	svc.AssertExpectations(t)
}

func TestPaymentRetry_OtherUsersPayment(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockPaymentSvc{}
	svc.On("Retry", mock.Anything, "u2", "p1").Return(nil, domain.ErrForbidden)
	h := NewPaymentHandler(svc)

	r := bearerReq(t, p, http.MethodPost, "/v1/payments/p1/retry", "u2", domain.RoleUser, nil)
	r = withChiID(r, "p1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Retry), rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	svc.AssertExpectations(t)
}

// --- List tests ---

func TestPaymentList_RetryVisibility(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockPaymentSvc{}
	payments := []domain.Payment{
		{PaymentID: "p1", UserID: "u1", Status: domain.PaymentFailed, AttemptNumber: intp(2)},
		{PaymentID: "p2", UserID: "u1", Status: domain.PaymentFailed, AttemptNumber: intp(4)},
		{PaymentID: "p3", UserID: "u1", Status: domain.PaymentFailed, AttemptNumber: intp(2), CanRetry: boolp(false)},
		{PaymentID: "p4", UserID: "u1", Status: domain.PaymentPending},
	}
	svc.On("ListByUser", mock.Anything, "u1").Return(payments, nil)
	h := NewPaymentHandler(svc)

	r := bearerReq(t, p, http.MethodGet, "/v1/payments", "u1", domain.RoleUser, nil)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp []map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp, 4)
	assert.Equal(t, true, resp[0]["retry_visible"], "failed below ceiling")
	assert.Equal(t, false, resp[1]["retry_visible"], "failed at ceiling")
	assert.Equal(t, false, resp[2]["retry_visible"], "server veto below ceiling")
	assert.Equal(t, false, resp[3]["retry_visible"], "pending payment")
	svc.AssertExpectations(t)
}

func TestPaymentGet_NotFound(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockPaymentSvc{}
	svc.On("Get", mock.Anything, "u1", "nope").Return(nil, domain.ErrNotFound)
	h := NewPaymentHandler(svc)

	r := bearerReq(t, p, http.MethodGet, "/v1/payments/nope", "u1", domain.RoleUser, nil)
	r = withChiID(r, "nope")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Get), rr, r)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	svc.AssertExpectations(t)
}
