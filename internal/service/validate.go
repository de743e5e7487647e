package service

import (
	"context"
	"fmt"
	"time"

	"github.com/atinyakov/GridCaptcha/internal/models"
	"github.com/atinyakov/GridCaptcha/internal/replay"
	"github.com/atinyakov/GridCaptcha/internal/token"
)

// TokenVerifier checks a token without touching the answer store.
type TokenVerifier interface {
	Verify(tok, sessionToken string) token.Validation
	MaxAge() time.Duration
}

// ValidationService answers relying parties asking whether a token is good.
type ValidationService struct {
	verifier TokenVerifier
	// guard is optional; when nil tokens may be replayed within their window.
	guard replay.Guard
}

// NewValidationService constructs a ValidationService. guard may be nil.
func NewValidationService(verifier TokenVerifier, guard replay.Guard) *ValidationService {
	return &ValidationService{verifier: verifier, guard: guard}
}

// Validate checks tok against the session the relying party expects.
// Rejections are reported in the returned Validation; an error means the
// input was missing (models.ErrInvalidInput) or the replay guard failed.
func (s *ValidationService) Validate(ctx context.Context, tok, sessionToken string) (token.Validation, error) {
	if tok == "" || sessionToken == "" {
		return token.Validation{}, fmt.Errorf("%w: verificationToken and sessionToken are required", models.ErrInvalidInput)
	}

	res := s.verifier.Verify(tok, sessionToken)
	if !res.Valid || s.guard == nil {
		return res, nil
	}

	fresh, err := s.guard.Claim(ctx, tok, s.verifier.MaxAge())
	if err != nil {
		return token.Validation{}, err
	}
	if !fresh {
		return token.Reject(token.ReasonReplayed), nil
	}
	return res, nil
}
