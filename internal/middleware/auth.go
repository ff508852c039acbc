package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"marketplace-rest-api/internal/supabase"
	"marketplace-rest-api/pkg/apierror"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Context keys for the authenticated session.
const (
	UserKey        contextKey = "user"
	AccessTokenKey contextKey = "access_token"
)

// AccessTokenCookie carries the session token for browser clients.
const AccessTokenCookie = "sb-access-token"

// User is the authenticated caller.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	AAL   string `json:"aal,omitempty"` // aal1 or aal2
}

// UserVerifier resolves a token against the auth server.
type UserVerifier interface {
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
}

// AdminChecker reports whether a user holds the admin role.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	JWTSecret string
	Verifier  UserVerifier
	Logger    *zap.Logger
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
	AAL   string `json:"aal"`
}

// NewAuthMiddleware resolves the session, if any, into the request context.
// Requests without a token pass through; a token that fails verification
// is rejected with 401.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authenticate(r.Context(), cfg, token)
			if errors.Is(err, errVerifierUnavailable) {
				logger.Warn("session verifier unavailable",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err))
				writeError(w, apierror.ServiceUnavailable("Session verification is temporarily unavailable"))
				return
			}
			if err != nil {
				logger.Debug("session rejected",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err))
				writeError(w, apierror.Unauthorized("Invalid or expired session"))
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			ctx = context.WithValue(ctx, AccessTokenKey, token)
			ctx = supabase.WithAccessToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if scheme, token, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// errVerifierUnavailable means the auth server could not answer, as
// opposed to rejecting the token.
var errVerifierUnavailable = errors.New("session verifier unavailable")

func authenticate(ctx context.Context, cfg AuthConfig, token string) (*User, error) {
	if cfg.JWTSecret != "" {
		user, err := verifyLocal(token, cfg.JWTSecret)
		if err == nil {
			return user, nil
		}
		if errors.Is(err, jwt.ErrTokenExpired) || cfg.Verifier == nil {
			return nil, err
		}
	}
	if cfg.Verifier == nil {
		return nil, errors.New("no session verifier configured")
	}

	remote, err := cfg.Verifier.GetUser(ctx, token)
	if err != nil {
		var sbErr *supabase.Error
		if errors.As(err, &sbErr) && sbErr.StatusCode < http.StatusInternalServerError {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errVerifierUnavailable, err)
	}

	user := &User{ID: remote.ID, Email: remote.Email, Role: remote.Role}
	// the auth server accepted the token, so its claims can be read as-is
	var claims sessionClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil {
		user.AAL = claims.AAL
	}
	return user, nil
}

func verifyLocal(token, secret string) (*User, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &User{
		ID:    claims.Subject,
		Email: claims.Email,
		Role:  claims.Role,
		AAL:   claims.AAL,
	}, nil
}

// UserFromContext returns the authenticated user or nil.
func UserFromContext(ctx context.Context) *User {
	if user, ok := ctx.Value(UserKey).(*User); ok {
		return user
	}
	return nil
}

// AccessTokenFromContext returns the raw session token or "".
func AccessTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(AccessTokenKey).(string)
	return token
}

// RequireUser rejects requests without a session.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			writeError(w, apierror.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects callers without the admin role. With requireAAL2 the
// session must also have completed MFA.
func RequireAdmin(admins AdminChecker, requireAAL2 bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				writeError(w, apierror.Unauthorized("Authentication required"))
				return
			}

			ok, err := admins.IsAdmin(r.Context(), user.ID)
			if err != nil {
				logger.Error("admin check failed",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("user_id", user.ID),
					zap.Error(err))
				writeError(w, apierror.InternalError("internal server error"))
				return
			}
			if !ok {
				writeError(w, apierror.Forbidden("Admin access required"))
				return
			}
			if requireAAL2 && user.AAL != "aal2" {
				writeError(w, apierror.Forbidden("Multi-factor authentication required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
