// Package token mints and verifies the self-contained proof that a captcha
// was solved. A token is the standard base64 encoding of a JSON record; when
// a secret is configured an HMAC-SHA256 tag is appended after a dot.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/GridCaptcha/internal/models"
)

// ErrFormat is returned for any token that cannot be decoded or whose tag
// does not match.
var ErrFormat = errors.New("invalid token format")

// Claims is the record carried by a token.
type Claims struct {
	CaptchaID models.ID `json:"captchaId"`
	// Timestamp is the mint instant in Unix milliseconds.
	Timestamp    int64  `json:"timestamp"`
	SessionToken string `json:"sessionToken"`
	Verified     bool   `json:"verified"`
}

// Codec converts Claims to and from their string form.
type Codec struct {
	secret []byte
}

// NewCodec returns a Codec. An empty secret yields unsigned tokens.
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret}
}

// Signed reports whether tokens carry an HMAC tag.
func (c *Codec) Signed() bool {
	return len(c.secret) > 0
}

// Encode serializes claims.
func (c *Codec) Encode(claims Claims) (string, error) {
	b, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}
	payload := base64.StdEncoding.EncodeToString(b)
	if !c.Signed() {
		return payload, nil
	}
	return payload + "." + c.sign(payload), nil
}

// Decode parses s, checking the tag when the codec is signed.
func (c *Codec) Decode(s string) (Claims, error) {
	payload := s
	if c.Signed() {
		var tag string
		var ok bool
		payload, tag, ok = strings.Cut(s, ".")
		if !ok || !hmac.Equal([]byte(tag), []byte(c.sign(payload))) {
			return Claims{}, ErrFormat
		}
	}

	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Claims{}, ErrFormat
	}
	var claims Claims
	if err := json.Unmarshal(b, &claims); err != nil {
		return Claims{}, ErrFormat
	}
	return claims, nil
}

func (c *Codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
