package service

import (
	"context"
	"errors"

	"marketplace-rest-api/internal/supabase"
)

// ErrInvalidCode is returned when an MFA code is not six digits.
var ErrInvalidCode = errors.New("code must be 6 digits")

// MFAProvider is the subset of the auth API used for TOTP factors.
type MFAProvider interface {
	Enroll(ctx context.Context, accessToken, friendlyName, issuer string) (*supabase.Enrollment, error)
	Challenge(ctx context.Context, accessToken, factorID string) (*supabase.Challenge, error)
	Verify(ctx context.Context, accessToken, factorID, challengeID, code string) (*supabase.Session, error)
	Unenroll(ctx context.Context, accessToken, factorID string) error
	ListFactors(ctx context.Context, accessToken string) ([]supabase.Factor, error)
}

// EnrollResult is what the client needs to show the authenticator QR code.
type EnrollResult struct {
	FactorID string `json:"factor_id"`
	QRCode   string `json:"qr_code"`
	Secret   string `json:"secret"`
	URI      string `json:"uri"`
}

// MFAService runs the TOTP enrollment and verification flow.
type MFAService struct {
	auth   MFAProvider
	issuer string
}

// NewMFAService creates a new MFA service. issuer is shown in authenticator apps.
func NewMFAService(auth MFAProvider, issuer string) *MFAService {
	return &MFAService{auth: auth, issuer: issuer}
}

// Enroll starts TOTP enrollment for the session owner.
func (s *MFAService) Enroll(ctx context.Context, accessToken, friendlyName string) (*EnrollResult, error) {
	enrollment, err := s.auth.Enroll(ctx, accessToken, friendlyName, s.issuer)
	if err != nil {
		return nil, err
	}
	return &EnrollResult{
		FactorID: enrollment.ID,
		QRCode:   enrollment.TOTP.QRCode,
		Secret:   enrollment.TOTP.Secret,
		URI:      enrollment.TOTP.URI,
	}, nil
}

// Verify challenges factorID and verifies code against it. On success the
// returned session is at aal2.
func (s *MFAService) Verify(ctx context.Context, accessToken, factorID, code string) (*supabase.Session, error) {
	if !isSixDigits(code) {
		return nil, ErrInvalidCode
	}

	challenge, err := s.auth.Challenge(ctx, accessToken, factorID)
	if err != nil {
		return nil, err
	}
	return s.auth.Verify(ctx, accessToken, factorID, challenge.ID, code)
}

// Factors lists the caller's enrolled factors.
func (s *MFAService) Factors(ctx context.Context, accessToken string) ([]supabase.Factor, error) {
	return s.auth.ListFactors(ctx, accessToken)
}

// Unenroll removes a factor.
func (s *MFAService) Unenroll(ctx context.Context, accessToken, factorID string) error {
	return s.auth.Unenroll(ctx, accessToken, factorID)
}

func isSixDigits(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

var _ MFAProvider = (*supabase.AuthClient)(nil)
