package oauthgw

import (
	"net/url"
	"testing"

	"github.com/ottshare/party-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedirectLogin(t *testing.T) {
	svc := &service{}
	out := svc.ParseRedirect(url.Values{
		"status":       {StatusLogin},
		"accessToken":  {"T1"},
		"refreshToken": {"R1"},
		"expiresIn":    {"3600"},
	})
	require.False(t, out.Failed)
	require.NotNil(t, out.Tokens)
	assert.Equal(t, "T1", out.Tokens.AccessToken)
	assert.Equal(t, "R1", out.Tokens.RefreshToken)
	assert.Equal(t, int64(3600), out.Tokens.ExpiresIn)
	assert.True(t, out.Tokens.Complete())
}

func TestParseRedirectLoginMissingToken(t *testing.T) {
	svc := &service{}
	cases := []url.Values{
		{"status": {StatusLogin}, "accessToken": {"T1"}},
		{"status": {StatusLogin}, "refreshToken": {"R1"}},
		{"status": {StatusLogin}},
	}
	for _, v := range cases {
		out := svc.ParseRedirect(v)
		assert.True(t, out.Failed)
		assert.Nil(t, out.Tokens)
	}
}

func TestParseRedirectUnknownStatus(t *testing.T) {
	svc := &service{}
	for _, status := range []string{"", "LOGGED_IN", "login", "ERROR", "NEED_SOMETHING"} {
		out := svc.ParseRedirect(url.Values{"status": {status}})
		assert.True(t, out.Failed, "status %q should fail", status)
		assert.Nil(t, out.Tokens)
		assert.Nil(t, out.Pending)
	}
}

func TestParseRedirectIdempotent(t *testing.T) {
	svc := &service{}
	v := url.Values{
		"status":         {StatusNeedPhoneConnect},
		"provider":       {"kakao"},
		"providerUserId": {"123"},
		"phone":          {"010****1234"},
	}
	first := svc.ParseRedirect(v)
	second := svc.ParseRedirect(v)
	assert.Equal(t, first, second)
	require.NotNil(t, first.Pending)
	assert.Equal(t, "kakao", first.Pending.Provider)
	assert.Equal(t, "123", first.Pending.ProviderUserID)
	assert.Equal(t, "010****1234", first.Pending.Phone)
}

func TestBuildRedirectRoundTrip(t *testing.T) {
	svc := &service{}
	cases := []*Outcome{
		{Status: StatusLogin, Tokens: &domain.TokenPair{AccessToken: "T1", RefreshToken: "R1", ExpiresIn: 900}},
		{Status: StatusNeedRegister, Pending: &domain.PendingSocialIdentity{Provider: "google", ProviderUserID: "g-1", Email: "a@b.com"}},
		{Status: StatusNeedPhoneConnect, Pending: &domain.PendingSocialIdentity{Provider: "naver", ProviderUserID: "n-9", Phone: "010****5678"}},
	}
	for _, out := range cases {
		raw, err := svc.BuildRedirect("https://app.example.com/oauth", out)
		require.NoError(t, err)
		u, err := url.Parse(raw)
		require.NoError(t, err)
		parsed := svc.ParseRedirect(u.Query())
		assert.False(t, parsed.Failed)
		assert.Equal(t, out.Status, parsed.Status)
		if out.Tokens != nil {
			assert.Equal(t, out.Tokens, parsed.Tokens)
		}
		if out.Pending != nil {
			assert.Equal(t, out.Pending.Provider, parsed.Pending.Provider)
			assert.Equal(t, out.Pending.ProviderUserID, parsed.Pending.ProviderUserID)
		}
	}
}

func TestBuildRedirectRejectsUnknownStatus(t *testing.T) {
	svc := &service{}
	_, err := svc.BuildRedirect("https://app.example.com/oauth", &Outcome{Status: "BOGUS"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "010****1234", maskPhone("01012341234"))
	assert.Equal(t, "010****5678", maskPhone("01012345678"))
	assert.Equal(t, "****", maskPhone("123"))
}
