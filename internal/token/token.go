package token

import (
	"time"

	"github.com/atinyakov/GridCaptcha/internal/models"
)

// DefaultMaxAge is how long a minted token stays acceptable.
const DefaultMaxAge = 10 * time.Minute

// Reason names why a token was rejected. The values are part of the
// validate endpoint's response contract.
type Reason string

const (
	ReasonFormat      Reason = "Invalid token format"
	ReasonExpired     Reason = "Token expired"
	ReasonSession     Reason = "Invalid session"
	ReasonNotVerified Reason = "Not verified"
	ReasonReplayed    Reason = "Token already used"
)

var messages = map[Reason]string{
	ReasonFormat:      "Unable to decode verification token.",
	ReasonExpired:     "Verification token has expired. Please complete the captcha again.",
	ReasonSession:     "Session token mismatch. Please complete the captcha again.",
	ReasonNotVerified: "Token is not marked as verified.",
	ReasonReplayed:    "Verification token has already been used. Please complete the captcha again.",
}

// Validation is the outcome of checking a token.
type Validation struct {
	Valid     bool
	CaptchaID int64
	Timestamp int64
	Reason    Reason
	Message   string
}

// Reject builds a failed Validation for r.
func Reject(r Reason) Validation {
	return Validation{Reason: r, Message: messages[r]}
}

// Minter issues tokens after a passing score.
type Minter struct {
	codec *Codec
	now   func() time.Time
}

// NewMinter returns a Minter. A nil now defaults to time.Now.
func NewMinter(codec *Codec, now func() time.Time) *Minter {
	if now == nil {
		now = time.Now
	}
	return &Minter{codec: codec, now: now}
}

// Mint returns a token bound to captchaID and sessionToken.
func (m *Minter) Mint(captchaID int64, sessionToken string) (string, error) {
	return m.codec.Encode(Claims{
		CaptchaID:    models.ID(captchaID),
		Timestamp:    m.now().UnixMilli(),
		SessionToken: sessionToken,
		Verified:     true,
	})
}

// Verifier checks tokens using only the token, the expected session and the
// wall clock.
type Verifier struct {
	codec  *Codec
	maxAge time.Duration
	now    func() time.Time
}

// NewVerifier returns a Verifier. Zero maxAge means DefaultMaxAge and a nil
// now defaults to time.Now.
func NewVerifier(codec *Codec, maxAge time.Duration, now func() time.Time) *Verifier {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if now == nil {
		now = time.Now
	}
	return &Verifier{codec: codec, maxAge: maxAge, now: now}
}

// MaxAge is the acceptance window.
func (v *Verifier) MaxAge() time.Duration {
	return v.maxAge
}

// Verify runs the checks in order and stops at the first failure.
func (v *Verifier) Verify(tok, sessionToken string) Validation {
	claims, err := v.codec.Decode(tok)
	if err != nil {
		return Reject(ReasonFormat)
	}
	if v.now().UnixMilli()-claims.Timestamp > v.maxAge.Milliseconds() {
		return Reject(ReasonExpired)
	}
	if claims.SessionToken != sessionToken {
		return Reject(ReasonSession)
	}
	if !claims.Verified {
		return Reject(ReasonNotVerified)
	}
	return Validation{
		Valid:     true,
		CaptchaID: int64(claims.CaptchaID),
		Timestamp: claims.Timestamp,
		Message:   "Token is valid",
	}
}
