package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMFAFlow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-jwt", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/auth/v1/factors":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "totp", body["factor_type"])
			w.Write([]byte(`{"id":"f1","type":"totp","totp":{"qr_code":"data:image/svg+xml;...","secret":"S3CR3T","uri":"otpauth://totp/x"}}`))
		case "/auth/v1/factors/f1/challenge":
			w.Write([]byte(`{"id":"c1","expires_at":1700000000}`))
		case "/auth/v1/factors/f1/verify":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "c1", body["challenge_id"])
			if body["code"] != "123456" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				w.Write([]byte(`{"code":422,"error_code":"mfa_verification_failed","msg":"Invalid TOTP code entered"}`))
				return
			}
			w.Write([]byte(`{"access_token":"aal2-jwt","refresh_token":"r","expires_in":3600,"token_type":"bearer"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()
	auth := c.Auth()

	enrollment, err := auth.Enroll(ctx, "user-jwt", "phone", "")
	require.NoError(t, err)
	assert.Equal(t, "f1", enrollment.ID)
	assert.Equal(t, "S3CR3T", enrollment.TOTP.Secret)

	challenge, err := auth.Challenge(ctx, "user-jwt", "f1")
	require.NoError(t, err)
	assert.Equal(t, "c1", challenge.ID)

	session, err := auth.Verify(ctx, "user-jwt", "f1", "c1", "123456")
	require.NoError(t, err)
	assert.Equal(t, "aal2-jwt", session.AccessToken)

	_, err = auth.Verify(ctx, "user-jwt", "f1", "c1", "000000")
	assert.True(t, IsAuthError(err))
}

func TestExchangeCodeForSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "pkce", r.URL.Query().Get("grant_type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["auth_code"] != "good" || body["code_verifier"] != "v" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"invalid flow state"}`))
			return
		}
		w.Write([]byte(`{"access_token":"a","refresh_token":"r","expires_in":3600,"user":{"id":"u1"}}`))
	})

	session, err := c.Auth().ExchangeCodeForSession(context.Background(), "good", "v")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.User.ID)

	_, err = c.Auth().ExchangeCodeForSession(context.Background(), "bad", "v")
	assert.True(t, IsAuthError(err))
}

func TestRefreshSessionRevoked(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["refresh_token"] != "live" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":400,"error_code":"refresh_token_not_found","msg":"Invalid Refresh Token: Refresh Token Not Found"}`))
			return
		}
		w.Write([]byte(`{"access_token":"a2","refresh_token":"r2","expires_in":3600}`))
	})

	session, err := c.Auth().RefreshSession(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, "r2", session.RefreshToken)

	_, err = c.Auth().RefreshSession(context.Background(), "revoked")
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
}

func TestListFactorsNeverNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u1","email":"a@b.c"}`))
	})

	factors, err := c.Auth().ListFactors(context.Background(), "user-jwt")
	require.NoError(t, err)
	assert.NotNil(t, factors)
	assert.Empty(t, factors)
}
