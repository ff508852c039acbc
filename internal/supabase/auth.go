package supabase

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// AuthClient wraps the GoTrue endpoints.
type AuthClient struct {
	client *Client
}

// Auth returns an auth client.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{client: c}
}

// User is a GoTrue user.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone,omitempty"`
	Role         string         `json:"role"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	Factors      []Factor       `json:"factors,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Factor is an enrolled multi-factor credential.
type Factor struct {
	ID           string    `json:"id"`
	FriendlyName string    `json:"friendly_name,omitempty"`
	FactorType   string    `json:"factor_type"`
	Status       string    `json:"status"` // unverified or verified
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is an issued access/refresh token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// Enrollment is the result of enrolling a TOTP factor.
type Enrollment struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	FriendlyName string `json:"friendly_name,omitempty"`
	TOTP         struct {
		QRCode string `json:"qr_code"`
		Secret string `json:"secret"`
		URI    string `json:"uri"`
	} `json:"totp"`
}

// Challenge is an open MFA challenge.
type Challenge struct {
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

func (a *AuthClient) endpoint(path string) string {
	return a.client.baseURL + "/auth/v1" + path
}

// GetUser returns the user that owns accessToken.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	resp, err := a.client.doJSON(ctx, http.MethodGet, a.endpoint("/user"), nil, bearer(accessToken))
	if err != nil {
		return nil, err
	}
	var user User
	if err := resp.Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ExchangeCodeForSession completes a PKCE OAuth flow.
func (a *AuthClient) ExchangeCodeForSession(ctx context.Context, authCode, codeVerifier string) (*Session, error) {
	payload := map[string]string{
		"auth_code":     authCode,
		"code_verifier": codeVerifier,
	}
	return a.token(ctx, "pkce", payload)
}

// RefreshSession trades a refresh token for a new session.
func (a *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	return a.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
}

func (a *AuthClient) token(ctx context.Context, grantType string, payload any) (*Session, error) {
	u := a.endpoint("/token") + "?grant_type=" + url.QueryEscape(grantType)
	resp, err := a.client.doJSON(ctx, http.MethodPost, u, payload, nil)
	if err != nil {
		return nil, err
	}
	var session Session
	if err := resp.Decode(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// SignOut revokes the session that owns accessToken.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	resp, err := a.client.doJSON(ctx, http.MethodPost, a.endpoint("/logout"), nil, bearer(accessToken))
	if err != nil {
		return err
	}
	return resp.Err()
}

// Enroll starts TOTP enrollment for the user.
func (a *AuthClient) Enroll(ctx context.Context, accessToken, friendlyName, issuer string) (*Enrollment, error) {
	payload := map[string]string{"factor_type": "totp"}
	if friendlyName != "" {
		payload["friendly_name"] = friendlyName
	}
	if issuer != "" {
		payload["issuer"] = issuer
	}
	resp, err := a.client.doJSON(ctx, http.MethodPost, a.endpoint("/factors"), payload, bearer(accessToken))
	if err != nil {
		return nil, err
	}
	var enrollment Enrollment
	if err := resp.Decode(&enrollment); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Challenge opens a challenge for factorID.
func (a *AuthClient) Challenge(ctx context.Context, accessToken, factorID string) (*Challenge, error) {
	u := a.endpoint("/factors/" + url.PathEscape(factorID) + "/challenge")
	resp, err := a.client.doJSON(ctx, http.MethodPost, u, map[string]string{}, bearer(accessToken))
	if err != nil {
		return nil, err
	}
	var challenge Challenge
	if err := resp.Decode(&challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

// Verify answers a challenge with a TOTP code and returns the upgraded session.
func (a *AuthClient) Verify(ctx context.Context, accessToken, factorID, challengeID, code string) (*Session, error) {
	u := a.endpoint("/factors/" + url.PathEscape(factorID) + "/verify")
	payload := map[string]string{
		"challenge_id": challengeID,
		"code":         code,
	}
	resp, err := a.client.doJSON(ctx, http.MethodPost, u, payload, bearer(accessToken))
	if err != nil {
		return nil, err
	}
	var session Session
	if err := resp.Decode(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Unenroll removes a factor.
func (a *AuthClient) Unenroll(ctx context.Context, accessToken, factorID string) error {
	u := a.endpoint("/factors/" + url.PathEscape(factorID))
	resp, err := a.client.doJSON(ctx, http.MethodDelete, u, nil, bearer(accessToken))
	if err != nil {
		return err
	}
	return resp.Err()
}

// ListFactors returns the factors on the user record.
func (a *AuthClient) ListFactors(ctx context.Context, accessToken string) ([]Factor, error) {
	user, err := a.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if user.Factors == nil {
		return []Factor{}, nil
	}
	return user.Factors, nil
}
