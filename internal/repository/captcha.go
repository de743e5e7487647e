// Package repository provides the PostgreSQL-backed answer store for captchas.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/GridCaptcha/internal/models"
	"github.com/lib/pq"
)

const captchaColumns = `id, name, image_url, grid_type, accuracy_percentage, correct_cells, created_by, created_at, updated_at`

// PostgresCaptchaRepository implements captcha persistence against a PostgreSQL database.
type PostgresCaptchaRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresCaptchaRepository creates a new PostgresCaptchaRepository using the provided *sql.DB.
// db must be a valid connection to a PostgreSQL instance.
func NewPostgresCaptchaRepository(db *sql.DB) *PostgresCaptchaRepository {
	return &PostgresCaptchaRepository{DB: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCaptcha(row scanner) (*models.Captcha, error) {
	var (
		c     models.Captcha
		cells []int64
	)
	if err := row.Scan(
		&c.ID, &c.Name, &c.ImageURL, &c.GridType, &c.AccuracyPercentage,
		pq.Array(&cells), &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.CorrectCells = make([]int, len(cells))
	for i, v := range cells {
		c.CorrectCells[i] = int(v)
	}
	return &c, nil
}

func cellsArg(cells []int) any {
	if cells == nil {
		return nil
	}
	out := make([]int64, len(cells))
	for i, v := range cells {
		out[i] = int64(v)
	}
	return pq.Array(out)
}

// GetCaptcha fetches a captcha by id, including its answer set.
// Returns models.ErrNotFound if no row matches.
func (r *PostgresCaptchaRepository) GetCaptcha(ctx context.Context, id int64) (*models.Captcha, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+captchaColumns+` FROM captchas WHERE id = $1`, id)
	c, err := scanCaptcha(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get captcha: %w", err)
	}
	return c, nil
}

// ListCaptchas returns one page of captchas, newest first.
func (r *PostgresCaptchaRepository) ListCaptchas(ctx context.Context, offset, limit int) ([]models.Captcha, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+captchaColumns+` FROM captchas ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list captchas: %w", err)
	}
	defer rows.Close()

	out := make([]models.Captcha, 0, limit)
	for rows.Next() {
		c, err := scanCaptcha(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list captchas: %w", err)
	}
	return out, nil
}

// CreateCaptcha inserts c and returns the stored row with its assigned id
// and timestamps.
func (r *PostgresCaptchaRepository) CreateCaptcha(ctx context.Context, c models.Captcha) (*models.Captcha, error) {
	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO captchas (name, image_url, grid_type, accuracy_percentage, correct_cells, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+captchaColumns,
		c.Name, c.ImageURL, c.GridType, c.AccuracyPercentage, cellsArg(c.CorrectCells), c.CreatedBy)
	created, err := scanCaptcha(row)
	if err != nil {
		return nil, fmt.Errorf("create captcha: %w", err)
	}
	return created, nil
}

// UpdateCaptcha applies the non-nil fields of p and refreshes updated_at.
// Returns models.ErrNotFound if no row matches.
func (r *PostgresCaptchaRepository) UpdateCaptcha(ctx context.Context, id int64, p models.CaptchaPatch) (*models.Captcha, error) {
	row := r.DB.QueryRowContext(ctx, `
		UPDATE captchas SET
			name = COALESCE($2::varchar, name),
			image_url = COALESCE($3::text, image_url),
			grid_type = COALESCE($4::varchar, grid_type),
			accuracy_percentage = COALESCE($5::integer, accuracy_percentage),
			correct_cells = COALESCE($6::integer[], correct_cells),
			updated_at = now()
		WHERE id = $1
		RETURNING `+captchaColumns,
		id, p.Name, p.ImageURL, p.GridType, p.AccuracyPercentage, cellsArg(p.CorrectCells))
	updated, err := scanCaptcha(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update captcha: %w", err)
	}
	return updated, nil
}

// DeleteCaptcha removes the captcha with the given id.
// Returns models.ErrNotFound if nothing was deleted.
func (r *PostgresCaptchaRepository) DeleteCaptcha(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM captchas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete captcha: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete captcha: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
