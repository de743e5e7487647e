// Package models defines the core data structures for captchas and their
// public projection, along with the grid geometry they are scored against.
package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	// ErrNotFound is returned when a referenced captcha does not exist.
	ErrNotFound = errors.New("captcha not found")
	// ErrInvalidInput marks malformed or missing request fields.
	ErrInvalidInput = errors.New("invalid input")
)

// Captcha is a single image-grid challenge together with its private answer.
type Captcha struct {
	// ID is assigned by the store on creation and never changes.
	ID int64 `json:"id"`
	// Name is the display label shown above the grid.
	Name string `json:"name"`
	// ImageURL references the challenge image (URL or data URL).
	ImageURL string `json:"imageUrl"`
	// GridType is "RxC", e.g. "3x3".
	GridType string `json:"gridType"`
	// AccuracyPercentage is the minimum similarity in [0,100] required to pass.
	AccuracyPercentage int `json:"accuracyPercentage"`
	// CorrectCells holds the 0-based row-major indices of the correct cells.
	CorrectCells []int `json:"correctCells"`
	// CreatedBy is the operator identity that created the record.
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PublicCaptcha is the subset of a Captcha that anonymous widget consumers
// may see. It has no field for the answer set.
type PublicCaptcha struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	ImageURL           string `json:"imageUrl"`
	GridType           string `json:"gridType"`
	AccuracyPercentage int    `json:"accuracyPercentage"`
}

// Public returns the anonymous projection of c.
func (c *Captcha) Public() PublicCaptcha {
	return PublicCaptcha{
		ID:                 c.ID,
		Name:               c.Name,
		ImageURL:           c.ImageURL,
		GridType:           c.GridType,
		AccuracyPercentage: c.AccuracyPercentage,
	}
}

// CaptchaPatch carries a partial update. Nil fields are left unchanged.
type CaptchaPatch struct {
	Name               *string `json:"name,omitempty"`
	ImageURL           *string `json:"imageUrl,omitempty"`
	GridType           *string `json:"gridType,omitempty"`
	AccuracyPercentage *int    `json:"accuracyPercentage,omitempty"`
	CorrectCells       []int   `json:"correctCells,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p CaptchaPatch) Empty() bool {
	return p.Name == nil && p.ImageURL == nil && p.GridType == nil &&
		p.AccuracyPercentage == nil && p.CorrectCells == nil
}

// Apply returns a copy of c with the patch fields applied.
func (p CaptchaPatch) Apply(c Captcha) Captcha {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.ImageURL != nil {
		c.ImageURL = *p.ImageURL
	}
	if p.GridType != nil {
		c.GridType = *p.GridType
	}
	if p.AccuracyPercentage != nil {
		c.AccuracyPercentage = *p.AccuracyPercentage
	}
	if p.CorrectCells != nil {
		c.CorrectCells = slices.Clone(p.CorrectCells)
	}
	return c
}

// Validate checks the definition fields of c and normalizes CorrectCells
// into a sorted set. Provenance fields are not inspected.
func (c *Captcha) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if c.ImageURL == "" {
		return fmt.Errorf("%w: imageUrl is required", ErrInvalidInput)
	}
	if c.AccuracyPercentage < 0 || c.AccuracyPercentage > 100 {
		return fmt.Errorf("%w: accuracyPercentage must be between 0 and 100", ErrInvalidInput)
	}
	grid, err := ParseGrid(c.GridType)
	if err != nil {
		return err
	}
	if len(c.CorrectCells) == 0 {
		return fmt.Errorf("%w: correctCells must not be empty", ErrInvalidInput)
	}
	cells, err := grid.Normalize(c.CorrectCells)
	if err != nil {
		return err
	}
	c.CorrectCells = cells
	return nil
}
