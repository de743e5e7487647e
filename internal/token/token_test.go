package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newPair(secret string, clock *fakeClock) (*Minter, *Verifier) {
	codec := NewCodec([]byte(secret))
	return NewMinter(codec, clock.Now), NewVerifier(codec, 0, clock.Now)
}

func TestRoundTrip(t *testing.T) {
	for _, secret := range []string{"", "s3cret"} {
		t.Run("secret="+secret, func(t *testing.T) {
			clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
			m, v := newPair(secret, clock)

			tok, err := m.Mint(42, "sess-1")
			require.NoError(t, err)

			res := v.Verify(tok, "sess-1")
			assert.True(t, res.Valid)
			assert.Equal(t, int64(42), res.CaptchaID)
			assert.Equal(t, clock.t.UnixMilli(), res.Timestamp)
			assert.Equal(t, "Token is valid", res.Message)
			assert.Empty(t, res.Reason)
		})
	}
}

func TestUnsignedTokenIsBase64JSON(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	m, _ := newPair("", clock)

	tok, err := m.Mint(7, "abc")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(tok)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, map[string]any{
		"captchaId":    float64(7),
		"timestamp":    float64(1_700_000_000_000),
		"sessionToken": "abc",
		"verified":     true,
	}, got)
}

func TestExpiry(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	m, v := newPair("", clock)
	tok, err := m.Mint(1, "s")
	require.NoError(t, err)

	clock.t = clock.t.Add(DefaultMaxAge)
	assert.True(t, v.Verify(tok, "s").Valid, "exactly at the limit is still valid")

	clock.t = clock.t.Add(time.Millisecond)
	res := v.Verify(tok, "s")
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonExpired, res.Reason)
	assert.Equal(t, Reason("Token expired"), res.Reason)
}

func TestSessionMismatch(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	m, v := newPair("", clock)
	tok, err := m.Mint(1, "mine")
	require.NoError(t, err)

	res := v.Verify(tok, "yours")
	assert.False(t, res.Valid)
	assert.Equal(t, Reason("Invalid session"), res.Reason)
	assert.Contains(t, res.Message, "Session token mismatch")
}

func TestNotVerified(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := NewCodec(nil)
	tok, err := codec.Encode(Claims{CaptchaID: 1, Timestamp: clock.t.UnixMilli(), SessionToken: "s"})
	require.NoError(t, err)

	res := NewVerifier(codec, time.Minute, clock.Now).Verify(tok, "s")
	assert.False(t, res.Valid)
	assert.Equal(t, ReasonNotVerified, res.Reason)
}

func TestCheckOrder(t *testing.T) {
	// expired and mismatched: expiry is reported first
	clock := &fakeClock{t: time.Now()}
	m, v := newPair("", clock)
	tok, err := m.Mint(1, "a")
	require.NoError(t, err)

	clock.t = clock.t.Add(time.Hour)
	assert.Equal(t, ReasonExpired, v.Verify(tok, "b").Reason)
}

func TestGarbage(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	_, v := newPair("", clock)
	_, sv := newPair("key", clock)

	inputs := []string{
		"",
		"not base64 !!!",
		base64.StdEncoding.EncodeToString([]byte("not json")),
		base64.StdEncoding.EncodeToString([]byte(`{"captchaId":"x"}`)),
		strings.Repeat("A", 3),
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			res := v.Verify(in, "s")
			assert.False(t, res.Valid)
			assert.Equal(t, Reason("Invalid token format"), res.Reason)
		})
		assert.Equal(t, ReasonFormat, sv.Verify(in, "s").Reason)
	}
}

func TestSignedRejectsForgery(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	m, v := newPair("key", clock)

	tok, err := m.Mint(5, "s")
	require.NoError(t, err)
	payload, _, ok := strings.Cut(tok, ".")
	require.True(t, ok)

	// unsigned payload alone
	assert.Equal(t, ReasonFormat, v.Verify(payload, "s").Reason)

	// forged payload with the original tag
	forged, err := NewCodec(nil).Encode(Claims{CaptchaID: 6, Timestamp: clock.t.UnixMilli(), SessionToken: "s", Verified: true})
	require.NoError(t, err)
	_, tag, _ := strings.Cut(tok, ".")
	assert.Equal(t, ReasonFormat, v.Verify(forged+"."+tag, "s").Reason)

	// a different key
	_, other := newPair("other", clock)
	assert.Equal(t, ReasonFormat, other.Verify(tok, "s").Reason)
}
