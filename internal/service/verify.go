package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/GridCaptcha/internal/models"
	"github.com/atinyakov/GridCaptcha/internal/scoring"
)

// CaptchaGetter is the read side of the answer store.
type CaptchaGetter interface {
	GetCaptcha(ctx context.Context, id int64) (*models.Captcha, error)
}

// TokenMinter issues a proof of success for a passed captcha.
type TokenMinter interface {
	Mint(captchaID int64, sessionToken string) (string, error)
}

// VerifyRequest is a user's submitted selection.
type VerifyRequest struct {
	CaptchaID     int64
	SelectedCells []int
	SessionToken  string
}

// VerifyResult is the structured outcome of scoring a selection.
type VerifyResult struct {
	Success bool
	// Accuracy is the achieved similarity as a whole percentage.
	Accuracy int
	// RequiredAccuracy is the captcha's threshold.
	RequiredAccuracy int
	// VerificationToken is set only when Success is true.
	VerificationToken string
	Message           string
}

// VerifyService scores selections against stored answers and mints tokens
// for passing ones.
type VerifyService struct {
	store  CaptchaGetter
	minter TokenMinter
}

// NewVerifyService constructs a VerifyService.
func NewVerifyService(store CaptchaGetter, minter TokenMinter) *VerifyService {
	return &VerifyService{store: store, minter: minter}
}

// Verify scores req. It returns models.ErrInvalidInput for missing or
// malformed fields and models.ErrNotFound for an unknown captcha, both before
// any scoring. A failing score is not an error.
func (s *VerifyService) Verify(ctx context.Context, req VerifyRequest) (VerifyResult, error) {
	if req.CaptchaID <= 0 || len(req.SelectedCells) == 0 || req.SessionToken == "" {
		return VerifyResult{}, fmt.Errorf("%w: captchaId, selectedCells and sessionToken are required", models.ErrInvalidInput)
	}

	c, err := s.store.GetCaptcha(ctx, req.CaptchaID)
	if err != nil {
		return VerifyResult{}, err
	}

	grid, err := models.ParseGrid(c.GridType)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("captcha %d has unusable grid: %v", c.ID, err)
	}
	selected, err := grid.Normalize(req.SelectedCells)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("malformed selection: %w", err)
	}

	res, err := scoring.Score(selected, c.CorrectCells, c.AccuracyPercentage)
	if errors.Is(err, scoring.ErrEmptySelection) {
		return VerifyResult{}, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if err != nil {
		return VerifyResult{}, err
	}

	out := VerifyResult{
		Success:          res.Pass,
		Accuracy:         res.Percent,
		RequiredAccuracy: c.AccuracyPercentage,
	}
	if !res.Pass {
		out.Message = fmt.Sprintf("Verification failed. Required accuracy: %d%%, achieved: %d%%",
			c.AccuracyPercentage, res.Percent)
		return out, nil
	}

	tok, err := s.minter.Mint(c.ID, req.SessionToken)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("mint token: %w", err)
	}
	out.VerificationToken = tok
	out.Message = "Verification successful"
	return out, nil
}
