package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/storefront/internal/domain"
)

// DecodeError reports a token that could not be turned into claims.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode token: %s: %v", e.Reason, e.Err)
	}
	return "decode token: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Claim keys read by the decoder besides the registered ones.
var legacySubjectKeys = []string{"id", "_id", "userId"}

// Decoder turns opaque bearer tokens into claims without verifying signatures.
// The result is advisory: it drives display and role derivation, not trust.
type Decoder struct {
	parser *jwt.Parser
	now    func() time.Time
}

// DecoderOption customises a Decoder.
type DecoderOption func(*Decoder)

// WithClock overrides the clock used for the expiry check.
func WithClock(now func() time.Time) DecoderOption {
	return func(d *Decoder) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDecoder builds a Decoder.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{parser: jwt.NewParser(jwt.WithPaddingAllowed()), now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode parses token. It never panics; every failure is a *DecodeError.
func (d *Decoder) Decode(token string) (claims domain.Claims, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims = domain.Claims{}
			err = &DecodeError{Reason: "malformed", Err: fmt.Errorf("%v", r)}
		}
	}()

	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	if token == "" {
		return domain.Claims{}, &DecodeError{Reason: "empty token"}
	}

	mc := jwt.MapClaims{}
	if _, _, err := d.parser.ParseUnverified(token, mc); err != nil {
		return domain.Claims{}, &DecodeError{Reason: "malformed", Err: err}
	}

	subject, err := subjectOf(mc)
	if err != nil {
		return domain.Claims{}, err
	}

	iat, err := mc.GetIssuedAt()
	if err != nil {
		return domain.Claims{}, &DecodeError{Reason: "invalid iat", Err: err}
	}
	exp, err := mc.GetExpirationTime()
	if err != nil {
		return domain.Claims{}, &DecodeError{Reason: "invalid exp", Err: err}
	}
	if exp != nil && !exp.Time.After(d.now()) {
		return domain.Claims{}, &DecodeError{Reason: "expired"}
	}

	claims = domain.Claims{SubjectID: subject, Extra: make(map[string]any, len(mc))}
	if iat != nil {
		t := iat.Time
		claims.IssuedAt = &t
	}
	if exp != nil {
		t := exp.Time
		claims.ExpiresAt = &t
	}
	for k, v := range mc {
		switch k {
		case "sub", "iat", "exp":
			continue
		}
		claims.Extra[k] = v
	}
	return claims, nil
}

func subjectOf(mc jwt.MapClaims) (string, error) {
	sub, err := mc.GetSubject()
	if err != nil {
		return "", &DecodeError{Reason: "invalid sub", Err: err}
	}
	if sub != "" {
		return sub, nil
	}
	for _, key := range legacySubjectKeys {
		switch v := mc[key].(type) {
		case string:
			if v != "" {
				return v, nil
			}
		case float64:
			return fmt.Sprintf("%.0f", v), nil
		}
	}
	return "", &DecodeError{Reason: "missing subject"}
}

// VendorFromClaims reports whether the claims carry the vendor flag.
func VendorFromClaims(c domain.Claims) bool {
	if v, ok := c.Bool("isVendor"); ok && v {
		return true
	}
	if v, ok := c.Bool("is_vendor"); ok && v {
		return true
	}
	role, _ := c.String("role")
	return strings.EqualFold(role, string(domain.RoleVendor))
}
