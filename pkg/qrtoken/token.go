// Package qrtoken implements the rotating attendance token wire format.
//
// A token is three segments joined by underscores:
//
//	<PREFIX>_<base64url(JSON claims)>_<signature>
//
// The signature is an HMAC-SHA256 over the encoded payload, base64url
// encoded and truncated to 16 characters to keep the rendered QR code
// small. Holders never verify signatures themselves; they match tokens
// byte-for-byte against the relay cache. The service verifies signatures
// on submission.
package qrtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	// PrefixIATT is the default token prefix.
	PrefixIATT = "IATT"

	// PrefixQR is the legacy prefix still accepted on validation.
	PrefixQR = "QR"

	// SignatureLength is the truncated signature size in characters.
	SignatureLength = 16

	// DefaultValidity is how long a token is current before rotation.
	DefaultValidity = 5 * time.Second

	// DefaultGrace is extra tolerance past the validity window before a
	// token is considered expired.
	DefaultGrace = 2 * time.Second
)

var (
	ErrMalformed        = errors.New("qrtoken: malformed token")
	ErrBadSignature     = errors.New("qrtoken: signature mismatch")
	ErrMissingTimestamp = errors.New("qrtoken: missing timestamp claim")
	ErrExpired          = errors.New("qrtoken: token expired")
	ErrClockSkew        = errors.New("qrtoken: token issued in the future")
	ErrNoSecret         = errors.New("qrtoken: signing secret not configured")
)

// Claims is the JSON payload embedded in a token. Unknown claim fields
// on the wire are ignored on decode.
type Claims struct {
	SessionID string `json:"sid"`
	ClassID   string `json:"cid,omitempty"`
	RoomID    string `json:"rid,omitempty"`
	SubjectID string `json:"sub,omitempty"`
	Sequence  int64  `json:"seq"`
	IssuedAt  int64  `json:"ts"`
}

// Minted bundles a freshly generated token with its timing metadata, in
// the shape the rotation publisher and relay messages need.
type Minted struct {
	Token     string
	Claims    Claims
	Timestamp int64 // issue time, epoch seconds
	Expiry    int64 // Timestamp + validity window
	Sequence  int64
}

// Codec signs and validates tokens for one deployment. The zero value is
// unusable; construct with NewCodec.
type Codec struct {
	secret   []byte
	prefix   string
	validity time.Duration
	grace    time.Duration
}

// NewCodec returns a Codec signing with secret under the IATT prefix and
// the default 5s validity / 2s grace windows.
func NewCodec(secret []byte) *Codec {
	return &Codec{
		secret:   secret,
		prefix:   PrefixIATT,
		validity: DefaultValidity,
		grace:    DefaultGrace,
	}
}

// WithWindows overrides the validity and grace windows. Zero or negative
// values keep the defaults.
func (c *Codec) WithWindows(validity, grace time.Duration) *Codec {
	if validity > 0 {
		c.validity = validity
	}
	if grace > 0 {
		c.grace = grace
	}
	return c
}

// Validity returns the configured validity window.
func (c *Codec) Validity() time.Duration { return c.validity }

// MaxAge returns the absolute token lifetime (validity + grace).
func (c *Codec) MaxAge() time.Duration { return c.validity + c.grace }

// Generate mints a signed token for the given claims at time now. The
// claims' IssuedAt is stamped from now, overriding any caller value.
func (c *Codec) Generate(claims Claims, now time.Time) (Minted, error) {
	if len(c.secret) == 0 {
		return Minted{}, ErrNoSecret
	}

	claims.IssuedAt = now.Unix()

	raw, err := json.Marshal(claims)
	if err != nil {
		return Minted{}, err
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	token := c.prefix + "_" + payload + "_" + c.sign(payload)

	return Minted{
		Token:     token,
		Claims:    claims,
		Timestamp: claims.IssuedAt,
		Expiry:    claims.IssuedAt + int64(c.validity/time.Second),
		Sequence:  claims.Sequence,
	}, nil
}

// Split breaks a wire token into its three segments. The payload segment
// may itself contain underscores (base64url alphabet), so the prefix is
// taken up to the first underscore and the signature after the last one.
// Returns ErrMalformed for anything that is not three non-empty segments
// under a recognised prefix.
func Split(token string) (prefix, payload, signature string, err error) {
	first := strings.Index(token, "_")
	last := strings.LastIndex(token, "_")
	if first < 0 || last == first {
		return "", "", "", ErrMalformed
	}

	prefix = token[:first]
	payload = token[first+1 : last]
	signature = token[last+1:]

	if payload == "" || signature == "" {
		return "", "", "", ErrMalformed
	}
	if prefix != PrefixIATT && prefix != PrefixQR {
		return "", "", "", ErrMalformed
	}
	return prefix, payload, signature, nil
}

// IsWellFormed reports whether the token parses into three recognised
// segments. It performs no signature or timestamp checks and is safe to
// call before consulting any cached state.
func IsWellFormed(token string) bool {
	_, _, _, err := Split(token)
	return err == nil
}

// Decode extracts the claims from a token without verifying the
// signature. Holder-side code uses this for session lookup before the
// full server-side check.
func Decode(token string) (Claims, error) {
	_, payload, _, err := Split(token)
	if err != nil {
		return Claims{}, err
	}
	return decodePayload(payload)
}

// Verify checks the token's structure and signature and returns its
// claims. Timestamp freshness is not checked here; see Validate.
func (c *Codec) Verify(token string) (Claims, error) {
	if len(c.secret) == 0 {
		return Claims{}, ErrNoSecret
	}

	_, payload, signature, err := Split(token)
	if err != nil {
		return Claims{}, err
	}

	expected := c.sign(payload)
	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return Claims{}, ErrBadSignature
	}

	return decodePayload(payload)
}

// Validate runs Verify and then the freshness check against now: a token
// from the future fails with ErrClockSkew, one older than the validity
// window plus grace fails with ErrExpired.
func (c *Codec) Validate(token string, now time.Time) (Claims, error) {
	claims, err := c.Verify(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.IssuedAt == 0 {
		return Claims{}, ErrMissingTimestamp
	}

	age := now.Unix() - claims.IssuedAt
	switch {
	case age < 0:
		return Claims{}, ErrClockSkew
	case age > int64(c.MaxAge()/time.Second):
		return Claims{}, ErrExpired
	}
	return claims, nil
}

func (c *Codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return sig[:SignatureLength]
}

func decodePayload(payload string) (Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Claims{}, ErrMalformed
	}
	var claims Claims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}
