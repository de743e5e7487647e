// Package service provides the answer store, scoring and token validation
// business logic, delegating persistence to repository interfaces.
package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/GridCaptcha/internal/models"
)

const (
	// DefaultPageSize is used when a list request names no limit.
	DefaultPageSize = 10
	// MaxPageSize caps a single list request.
	MaxPageSize = 100
)

// CaptchaRepository defines the persistence operations needed by the CaptchaService.
type CaptchaRepository interface {
	// GetCaptcha returns the captcha with the given id or models.ErrNotFound.
	GetCaptcha(ctx context.Context, id int64) (*models.Captcha, error)
	// ListCaptchas returns one page of captchas, newest first.
	ListCaptchas(ctx context.Context, offset, limit int) ([]models.Captcha, error)
	// CreateCaptcha stores a new captcha and returns it with its id assigned.
	CreateCaptcha(ctx context.Context, c models.Captcha) (*models.Captcha, error)
	// UpdateCaptcha applies a partial update or returns models.ErrNotFound.
	UpdateCaptcha(ctx context.Context, id int64, p models.CaptchaPatch) (*models.Captcha, error)
	// DeleteCaptcha removes a captcha or returns models.ErrNotFound.
	DeleteCaptcha(ctx context.Context, id int64) error
}

// CaptchaService owns captcha records. It validates every definition before
// it reaches the repository.
type CaptchaService struct {
	// repo is the underlying persistence repository.
	repo CaptchaRepository
}

// NewCaptchaService constructs a CaptchaService with the provided CaptchaRepository.
func NewCaptchaService(repo CaptchaRepository) *CaptchaService {
	return &CaptchaService{repo: repo}
}

// Get returns the full captcha, answer set included.
func (s *CaptchaService) Get(ctx context.Context, id int64) (*models.Captcha, error) {
	return s.repo.GetCaptcha(ctx, id)
}

// PublicView returns the anonymous projection of a captcha.
func (s *CaptchaService) PublicView(ctx context.Context, id int64) (*models.PublicCaptcha, error) {
	c, err := s.repo.GetCaptcha(ctx, id)
	if err != nil {
		return nil, err
	}
	pub := c.Public()
	return &pub, nil
}

// List returns a page of captchas. Negative offsets become zero and the
// limit is clamped to [1, MaxPageSize], defaulting to DefaultPageSize.
func (s *CaptchaService) List(ctx context.Context, offset, limit int) ([]models.Captcha, error) {
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit <= 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return s.repo.ListCaptchas(ctx, offset, limit)
}

// Create validates c and stores it with operator recorded as its creator.
// Any id or timestamps on c are ignored.
func (s *CaptchaService) Create(ctx context.Context, operator string, c models.Captcha) (*models.Captcha, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.ID = 0
	c.CreatedBy = operator
	return s.repo.CreateCaptcha(ctx, c)
}

// Update applies p to the captcha with the given id. The merged record must
// still be a valid definition, so a grid change is checked against the
// stored answer cells when p does not replace them.
func (s *CaptchaService) Update(ctx context.Context, id int64, p models.CaptchaPatch) (*models.Captcha, error) {
	if p.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", models.ErrInvalidInput)
	}
	cur, err := s.repo.GetCaptcha(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := p.Apply(*cur)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if p.CorrectCells != nil {
		p.CorrectCells = merged.CorrectCells
	}
	return s.repo.UpdateCaptcha(ctx, id, p)
}

// Delete removes the captcha with the given id.
func (s *CaptchaService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteCaptcha(ctx, id)
}
