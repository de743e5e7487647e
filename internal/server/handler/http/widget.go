package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/atinyakov/GridCaptcha/internal/models"
	"github.com/atinyakov/GridCaptcha/internal/service"
	"github.com/atinyakov/GridCaptcha/internal/token"
	"github.com/atinyakov/GridCaptcha/internal/widget"
	"go.uber.org/zap"
)

// PublicCaptchaService returns the anonymous view of a captcha.
type PublicCaptchaService interface {
	PublicView(ctx context.Context, id int64) (*models.PublicCaptcha, error)
}

// VerifyService scores a selection.
type VerifyService interface {
	Verify(ctx context.Context, req service.VerifyRequest) (service.VerifyResult, error)
}

// ValidationService checks a verification token for a relying party.
type ValidationService interface {
	Validate(ctx context.Context, tok, sessionToken string) (token.Validation, error)
}

// ScriptRenderer produces the embeddable widget script.
type ScriptRenderer interface {
	Render(w io.Writer, p widget.Params) error
}

// WidgetHandler serves the anonymous endpoints used by the embedded widget
// and by relying-party backends.
type WidgetHandler struct {
	Captchas  PublicCaptchaService
	Verifier  VerifyService
	Validator ValidationService
	Renderer  ScriptRenderer
	Logger    *zap.Logger
}

// Captcha handles GET /api/widget/captcha/{id}. The answer cells are never
// part of the response.
func (h *WidgetHandler) Captcha(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid captcha id")
		return
	}
	pub, err := h.Captchas.PublicView(r.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Captcha not found")
		return
	}
	if err != nil {
		h.Logger.Error("fetch public captcha", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch captcha")
		return
	}
	writeJSON(w, http.StatusOK, pub)
}

// VerifyRequest is the widget's submission.
type VerifyRequest struct {
	CaptchaID     models.ID `json:"captchaId"`
	SelectedCells []int     `json:"selectedCells"`
	SessionToken  string    `json:"sessionToken"`
}

// VerifyResponse mirrors service.VerifyResult; verificationToken is null
// unless the attempt passed.
type VerifyResponse struct {
	Success           bool    `json:"success"`
	Accuracy          int     `json:"accuracy"`
	RequiredAccuracy  int     `json:"requiredAccuracy"`
	VerificationToken *string `json:"verificationToken"`
	Message           string  `json:"message"`
}

// Verify handles POST /api/widget/verify.
func (h *WidgetHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CaptchaID <= 0 || len(req.SelectedCells) == 0 || req.SessionToken == "" {
		writeFailure(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	res, err := h.Verifier.Verify(r.Context(), service.VerifyRequest{
		CaptchaID:     int64(req.CaptchaID),
		SelectedCells: req.SelectedCells,
		SessionToken:  req.SessionToken,
	})
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "Captcha not found")
		return
	case errors.Is(err, models.ErrInvalidInput):
		writeFailure(w, http.StatusBadRequest, "Invalid selection")
		return
	case err != nil:
		h.Logger.Error("verify captcha", zap.Int64("captcha_id", int64(req.CaptchaID)), zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, "Failed to verify captcha")
		return
	}

	resp := VerifyResponse{
		Success:          res.Success,
		Accuracy:         res.Accuracy,
		RequiredAccuracy: res.RequiredAccuracy,
		Message:          res.Message,
	}
	if res.Success {
		resp.VerificationToken = &res.VerificationToken
	}
	h.Logger.Debug("verify attempt",
		zap.Int64("captcha_id", int64(req.CaptchaID)),
		zap.Bool("success", res.Success),
		zap.Int("accuracy", res.Accuracy),
	)
	writeJSON(w, http.StatusOK, resp)
}

// ValidateRequest is a relying party's token check.
type ValidateRequest struct {
	VerificationToken string `json:"verificationToken"`
	SessionToken      string `json:"sessionToken"`
}

// ValidateResponse is the outcome reported to the relying party.
type ValidateResponse struct {
	Valid     bool   `json:"valid"`
	CaptchaID int64  `json:"captchaId,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message"`
}

// Validate handles POST /api/widget/validate. A rejected token is a 200 with
// valid:false; only missing fields and internal failures change the status.
func (h *WidgetHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ValidateResponse{
			Error:   "Invalid request body",
			Message: "Request body must be a JSON object",
		})
		return
	}
	if req.VerificationToken == "" || req.SessionToken == "" {
		writeJSON(w, http.StatusBadRequest, ValidateResponse{
			Error:   "Missing required fields",
			Message: "Both verificationToken and sessionToken are required",
		})
		return
	}

	v, err := h.Validator.Validate(r.Context(), req.VerificationToken, req.SessionToken)
	if err != nil {
		h.Logger.Error("validate token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ValidateResponse{
			Error:   "Server error",
			Message: "Internal server error during token validation",
		})
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:     v.Valid,
		CaptchaID: v.CaptchaID,
		Timestamp: v.Timestamp,
		Error:     string(v.Reason),
		Message:   v.Message,
	})
}

// Script handles GET /api/widget/script?id=&theme=&size=.
func (h *WidgetHandler) Script(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var buf bytes.Buffer
	err := h.Renderer.Render(&buf, widget.Params{
		CaptchaID: q.Get("id"),
		Theme:     q.Get("theme"),
		Size:      q.Get("size"),
	})
	if errors.Is(err, models.ErrInvalidInput) {
		http.Error(w, "Missing captcha ID parameter", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.Logger.Error("render widget script", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", widget.ContentType)
	w.Header().Set("Cache-Control", widget.CacheControl)
	_, _ = buf.WriteTo(w)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health returns a /healthz handler reporting whether db answers.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
