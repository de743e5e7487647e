// Package client is a Go client for the captcha service, used by relying
// parties to validate tokens and by operators to manage captchas.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/atinyakov/GridCaptcha/internal/models"
	"github.com/google/uuid"
)

// APIError is a non-success HTTP reply.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// VerifyResult is the scored outcome of a selection.
type VerifyResult struct {
	Success           bool    `json:"success"`
	Accuracy          int     `json:"accuracy"`
	RequiredAccuracy  int     `json:"requiredAccuracy"`
	VerificationToken *string `json:"verificationToken"`
	Message           string  `json:"message"`
}

// ValidateResult is the server's judgement of a verification token.
type ValidateResult struct {
	Valid     bool   `json:"valid"`
	CaptchaID int64  `json:"captchaId,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message"`
}

// Client talks to one captcha server.
type Client struct {
	baseURL string
	http    *http.Client
	bearer  string
}

// New returns a Client for baseURL. A nil httpClient uses a plain client
// with DefaultTimeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// WithBearer returns a copy of c that sends an operator bearer token.
func (c *Client) WithBearer(token string) *Client {
	cp := *c
	cp.bearer = token
	return &cp
}

// NewSessionToken returns a fresh random session token for one captcha
// attempt.
func NewSessionToken() string {
	return uuid.NewString()
}

// Public fetches the anonymous view of a captcha.
func (c *Client) Public(ctx context.Context, id int64) (*models.PublicCaptcha, error) {
	var pub models.PublicCaptcha
	if err := c.do(ctx, http.MethodGet, "/api/widget/captcha/"+strconv.FormatInt(id, 10), nil, &pub); err != nil {
		return nil, err
	}
	return &pub, nil
}

// Verify submits a selection the way the widget does.
func (c *Client) Verify(ctx context.Context, id int64, cells []int, sessionToken string) (*VerifyResult, error) {
	body := map[string]any{"captchaId": id, "selectedCells": cells, "sessionToken": sessionToken}
	var res VerifyResult
	if err := c.do(ctx, http.MethodPost, "/api/widget/verify", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Validate checks a verification token. A rejected token is not an error:
// inspect ValidateResult.Valid and ValidateResult.Error.
func (c *Client) Validate(ctx context.Context, verificationToken, sessionToken string) (*ValidateResult, error) {
	body := map[string]string{"verificationToken": verificationToken, "sessionToken": sessionToken}
	var res ValidateResult
	if err := c.do(ctx, http.MethodPost, "/api/widget/validate", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// List returns one page of captchas. Requires operator credentials.
func (c *Client) List(ctx context.Context, offset, limit int) ([]models.Captcha, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	var list []models.Captcha
	if err := c.do(ctx, http.MethodGet, "/api/captchas?"+q.Encode(), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Get returns the full captcha. Requires operator credentials.
func (c *Client) Get(ctx context.Context, id int64) (*models.Captcha, error) {
	var out models.Captcha
	if err := c.do(ctx, http.MethodGet, "/api/captchas/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create stores a new captcha. Requires operator credentials.
func (c *Client) Create(ctx context.Context, in models.Captcha) (*models.Captcha, error) {
	var out models.Captcha
	if err := c.do(ctx, http.MethodPost, "/api/captchas", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update applies a partial update. Requires operator credentials.
func (c *Client) Update(ctx context.Context, id int64, p models.CaptchaPatch) (*models.Captcha, error) {
	var out models.Captcha
	if err := c.do(ctx, http.MethodPut, "/api/captchas/"+strconv.FormatInt(id, 10), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a captcha. Requires operator credentials.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/captchas/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
