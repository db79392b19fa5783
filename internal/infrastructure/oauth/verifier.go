package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ottshare/party-api/internal/config"
	"github.com/ottshare/party-api/internal/domain"
	"google.golang.org/api/idtoken"
)

// Profile holds the verified identity extracted from a provider credential.
type Profile struct {
	Provider       string
	ProviderUserID string
	Email          string
	Phone          string // raw; empty when the provider does not share it
}

// Verifier validates a provider-issued credential server-side and returns
// the profile it attests to.
type Verifier interface {
	Verify(ctx context.Context, provider, credential string) (*Profile, error)
}

type verifier struct {
	googleClientID string
	kakaoAPIBase   string
	naverAPIBase   string
	httpc          *http.Client
}

func NewVerifier(cfg *config.Config) Verifier {
	return &verifier{
		googleClientID: cfg.GoogleClientID,
		kakaoAPIBase:   cfg.KakaoAPIBase,
		naverAPIBase:   cfg.NaverAPIBase,
		httpc:          &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *verifier) Verify(ctx context.Context, provider, credential string) (*Profile, error) {
	switch provider {
	case "google":
		return v.verifyGoogle(ctx, credential)
	case "kakao":
		return v.verifyUserinfo(ctx, provider, v.kakaoAPIBase+"/v2/user/me", credential)
	case "naver":
		return v.verifyUserinfo(ctx, provider, v.naverAPIBase+"/v1/nid/me", credential)
	default:
		return nil, fmt.Errorf("unsupported provider %q: %w", provider, domain.ErrBadRequest)
	}
}

// verifyGoogle validates a Google ID token against the configured client ID.
func (v *verifier) verifyGoogle(ctx context.Context, token string) (*Profile, error) {
	p, err := idtoken.Validate(ctx, token, v.googleClientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google token: %w", domain.ErrUnauthorized)
	}
	email, _ := p.Claims["email"].(string)
	return &Profile{
		Provider:       "google",
		ProviderUserID: p.Subject,
		Email:          email,
	}, nil
}

// userinfoResponse is the subset of the kakao/naver profile payloads we need.
// Both providers nest the fields differently; the flattened form below covers
// the attributes we read from either.
type userinfoResponse struct {
	ID           json.Number `json:"id"`
	KakaoAccount struct {
		Email       string `json:"email"`
		PhoneNumber string `json:"phone_number"`
	} `json:"kakao_account"`
	Response struct {
		ID     string `json:"id"`
		Email  string `json:"email"`
		Mobile string `json:"mobile"`
	} `json:"response"`
}

func (v *verifier) verifyUserinfo(ctx context.Context, provider, url, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s userinfo request: %w", provider, domain.ErrExternalProvider)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s userinfo returned %d: %w", provider, resp.StatusCode, domain.ErrUnauthorized)
	}

	var body userinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%s userinfo decode: %w", provider, domain.ErrExternalProvider)
	}

	p := &Profile{Provider: provider}
	switch provider {
	case "kakao":
		p.ProviderUserID = body.ID.String()
		p.Email = body.KakaoAccount.Email
		p.Phone = body.KakaoAccount.PhoneNumber
	case "naver":
		p.ProviderUserID = body.Response.ID
		p.Email = body.Response.Email
		p.Phone = body.Response.Mobile
	}
	if p.ProviderUserID == "" {
		return nil, fmt.Errorf("%s userinfo missing id: %w", provider, domain.ErrExternalProvider)
	}
	return p, nil
}
