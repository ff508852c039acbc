package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marketplace-rest-api/internal/middleware"
	"marketplace-rest-api/internal/service"
	"marketplace-rest-api/internal/supabase"
	"marketplace-rest-api/pkg/apierror"
	"marketplace-rest-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Session cookie names.
const (
	RefreshTokenCookie = "sb-refresh-token"
	CodeVerifierCookie = "code_verifier"
	MFAFactorCookie    = "mfa_factor_id"

	authErrorPath  = "/auth/auth-code-error"
	mfaCookieAge   = 10 * time.Minute
	refreshMaxDays = 30
)

// SessionAPI is the part of the auth API that manages sessions.
type SessionAPI interface {
	ExchangeCodeForSession(ctx context.Context, authCode, codeVerifier string) (*supabase.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*supabase.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// AuthConfig configures the auth handler.
type AuthConfig struct {
	Sessions     SessionAPI
	MFA          *service.MFAService
	CookieSecure bool
	// SiteURL prefixes callback redirects; empty keeps them relative.
	SiteURL string
	Logger  *zap.Logger
}

// AuthHandler handles the OAuth callback, sign-out and TOTP flows.
type AuthHandler struct {
	sessions SessionAPI
	mfa      *service.MFAService
	secure   bool
	siteURL  string
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(cfg AuthConfig) *AuthHandler {
	return &AuthHandler{
		sessions: cfg.Sessions,
		mfa:      cfg.MFA,
		secure:   cfg.CookieSecure,
		siteURL:  strings.TrimRight(cfg.SiteURL, "/"),
		logger:   cfg.Logger,
	}
}

// Callback handles GET /auth/callback?code=&next=
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	next := safeRedirect(r.URL.Query().Get("next"))

	if code == "" {
		http.Redirect(w, r, h.siteURL+authErrorPath, http.StatusFound)
		return
	}

	var verifier string
	if c, err := r.Cookie(CodeVerifierCookie); err == nil {
		verifier = c.Value
	}

	session, err := h.sessions.ExchangeCodeForSession(r.Context(), code, verifier)
	if err != nil {
		h.logger.Warn("code exchange failed",
			zap.String("request_id", requestID(r)),
			zap.Error(err))
		http.Redirect(w, r, h.siteURL+authErrorPath, http.StatusFound)
		return
	}

	h.setSessionCookies(w, session)
	h.clearCookie(w, CodeVerifierCookie)
	http.Redirect(w, r, h.siteURL+next, http.StatusFound)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(RefreshTokenCookie)
	if err != nil || c.Value == "" {
		response.Error(w, apierror.Unauthorized("no refresh token"))
		return
	}

	session, err := h.sessions.RefreshSession(r.Context(), c.Value)
	if err != nil {
		if supabase.IsAuthError(err) {
			h.clearCookie(w, middleware.AccessTokenCookie)
			h.clearCookie(w, RefreshTokenCookie)
			response.Error(w, apierror.Unauthorized("session is no longer valid"))
			return
		}
		serverError(w, r, h.logger, "session refresh failed", err)
		return
	}

	h.setSessionCookies(w, session)
	response.OK(w, map[string]any{
		"refreshed":  true,
		"expires_at": session.ExpiresAt,
	})
}

// SignOut handles POST /api/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := middleware.AccessTokenFromContext(r.Context())
	if err := h.sessions.SignOut(r.Context(), token); err != nil && !supabase.IsAuthError(err) {
		serverError(w, r, h.logger, "sign out failed", err)
		return
	}

	h.clearCookie(w, middleware.AccessTokenCookie)
	h.clearCookie(w, RefreshTokenCookie)
	response.OK(w, map[string]bool{"signed_out": true})
}

// EnrollRequest names the factor shown in authenticator apps.
type EnrollRequest struct {
	FriendlyName string `json:"friendly_name"`
}

// MFAEnroll handles POST /api/auth/mfa/enroll
func (h *AuthHandler) MFAEnroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if r.ContentLength > 0 {
		if apiErr := decodeJSON(w, r, &req); apiErr != nil {
			response.Error(w, apiErr)
			return
		}
	}

	result, err := h.mfa.Enroll(r.Context(), middleware.AccessTokenFromContext(r.Context()), strings.TrimSpace(req.FriendlyName))
	if err != nil {
		h.authError(w, r, "mfa enroll failed", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     MFAFactorCookie,
		Value:    result.FactorID,
		Path:     "/",
		MaxAge:   int(mfaCookieAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	response.OK(w, result)
}

// VerifyRequest answers a TOTP challenge.
type VerifyRequest struct {
	Code     string `json:"code"`
	FactorID string `json:"factor_id"`
}

// MFAVerify handles POST /api/auth/mfa/verify
func (h *AuthHandler) MFAVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	factorID := strings.TrimSpace(req.FactorID)
	if factorID == "" {
		if c, err := r.Cookie(MFAFactorCookie); err == nil {
			factorID = c.Value
		}
	}
	if factorID == "" {
		response.Error(w, apierror.BadRequest("factor_id is required"))
		return
	}

	session, err := h.mfa.Verify(r.Context(), middleware.AccessTokenFromContext(r.Context()), factorID, strings.TrimSpace(req.Code))
	if err != nil {
		h.authError(w, r, "mfa verify failed", err)
		return
	}

	h.clearCookie(w, MFAFactorCookie)
	h.setSessionCookies(w, session)
	response.OK(w, map[string]any{
		"verified":   true,
		"expires_at": session.ExpiresAt,
	})
}

// MFAFactors handles GET /api/auth/mfa/factors
func (h *AuthHandler) MFAFactors(w http.ResponseWriter, r *http.Request) {
	factors, err := h.mfa.Factors(r.Context(), middleware.AccessTokenFromContext(r.Context()))
	if err != nil {
		h.authError(w, r, "mfa factor list failed", err)
		return
	}
	response.OK(w, factors)
}

// MFAUnenroll handles DELETE /api/auth/mfa/factors/{id}
func (h *AuthHandler) MFAUnenroll(w http.ResponseWriter, r *http.Request) {
	factorID := strings.TrimSpace(chi.URLParam(r, "id"))
	if factorID == "" {
		response.Error(w, apierror.BadRequest("invalid id"))
		return
	}

	if err := h.mfa.Unenroll(r.Context(), middleware.AccessTokenFromContext(r.Context()), factorID); err != nil {
		h.authError(w, r, "mfa unenroll failed", err)
		return
	}
	response.OK(w, map[string]any{"id": factorID, "unenrolled": true})
}

// authError maps GoTrue rejections to 4xx and everything else to 500.
func (h *AuthHandler) authError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, service.ErrInvalidCode) {
		response.Error(w, apierror.BadRequest(err.Error()))
		return
	}

	var sbErr *supabase.Error
	if errors.As(err, &sbErr) {
		switch sbErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			response.Error(w, apierror.BadRequest(sbErr.Message))
			return
		case http.StatusUnauthorized, http.StatusForbidden:
			response.Error(w, apierror.Unauthorized("session is no longer valid"))
			return
		case http.StatusNotFound:
			response.Error(w, apierror.NotFound("factor not found"))
			return
		}
	}
	serverError(w, r, h.logger, msg, err)
}

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, s *supabase.Session) {
	maxAge := s.ExpiresIn
	if maxAge <= 0 {
		maxAge = int(time.Hour.Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    s.AccessToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	if s.RefreshToken != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     RefreshTokenCookie,
			Value:    s.RefreshToken,
			Path:     "/",
			MaxAge:   refreshMaxDays * 24 * 60 * 60,
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeRedirect keeps only same-origin relative paths.
func safeRedirect(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
