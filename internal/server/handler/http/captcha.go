package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/atinyakov/GridCaptcha/internal/middleware"
	"github.com/atinyakov/GridCaptcha/internal/models"
	"go.uber.org/zap"
)

// CaptchaService defines the operator-side answer store operations required
// by CaptchaHandler.
type CaptchaService interface {
	List(ctx context.Context, offset, limit int) ([]models.Captcha, error)
	Get(ctx context.Context, id int64) (*models.Captcha, error)
	Create(ctx context.Context, operator string, c models.Captcha) (*models.Captcha, error)
	Update(ctx context.Context, id int64, p models.CaptchaPatch) (*models.Captcha, error)
	Delete(ctx context.Context, id int64) error
}

// CaptchaHandler serves the authenticated CRUD endpoints under /api/captchas.
type CaptchaHandler struct {
	CaptchaService CaptchaService
	Logger         *zap.Logger
}

// List handles GET /api/captchas?offset=&limit=.
func (h *CaptchaHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, ok1 := queryInt(r, "offset")
	limit, ok2 := queryInt(r, "limit")
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "offset and limit must be integers")
		return
	}

	list, err := h.CaptchaService.List(r.Context(), offset, limit)
	if err != nil {
		h.Logger.Error("list captchas", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch captchas")
		return
	}
	if list == nil {
		list = []models.Captcha{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get handles GET /api/captchas/{id}. The response includes correctCells.
func (h *CaptchaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid captcha id")
		return
	}
	c, err := h.CaptchaService.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get captcha", err, "Failed to fetch captcha")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Create handles POST /api/captchas. The creator is the authenticated
// operator; any createdBy in the body is ignored.
func (h *CaptchaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var c models.Captcha
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	operator := middleware.GetOperatorFromContext(r.Context())
	created, err := h.CaptchaService.Create(r.Context(), operator, c)
	if err != nil {
		h.fail(w, "create captcha", err, "Failed to create captcha")
		return
	}
	h.Logger.Info("captcha created", zap.Int64("id", created.ID), zap.String("operator", operator))
	writeJSON(w, http.StatusCreated, created)
}

// Update handles PUT /api/captchas/{id} with a partial body.
func (h *CaptchaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid captcha id")
		return
	}
	var p models.CaptchaPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	updated, err := h.CaptchaService.Update(r.Context(), id, p)
	if err != nil {
		h.fail(w, "update captcha", err, "Failed to update captcha")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/captchas/{id}.
func (h *CaptchaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid captcha id")
		return
	}
	if err := h.CaptchaService.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete captcha", err, "Failed to delete captcha")
		return
	}
	h.Logger.Info("captcha deleted", zap.Int64("id", id), zap.String("operator", middleware.GetOperatorFromContext(r.Context())))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// fail maps service errors to responses. Validation messages are returned
// to the operator as is; internal errors are logged and hidden.
func (h *CaptchaHandler) fail(w http.ResponseWriter, op string, err error, msg string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, "Captcha not found")
	case errors.Is(err, models.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.Logger.Error(op, zap.Error(err))
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// queryInt reads an optional integer query parameter; absent means zero.
func queryInt(r *http.Request, name string) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
