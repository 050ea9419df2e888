package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"unicode"
)

// ResetVerifier confirms that the person asking for a password reset
// named the staff contact correctly.
type ResetVerifier interface {
	Verify(ctx context.Context, name, phone string) bool
}

// VerifierFunc adapts a function to ResetVerifier.
type VerifierFunc func(ctx context.Context, name, phone string) bool

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, name, phone string) bool {
	return f(ctx, name, phone)
}

// StaticVerifier matches against one configured contact. With either field
// unset it rejects every request.
type StaticVerifier struct {
	name  string
	phone string
}

// NewStaticVerifier builds a StaticVerifier. The phone is compared by digits only.
func NewStaticVerifier(name, phone string) StaticVerifier {
	return StaticVerifier{name: strings.TrimSpace(name), phone: digits(phone)}
}

func (v StaticVerifier) Verify(_ context.Context, name, phone string) bool {
	if v.name == "" || v.phone == "" {
		return false
	}
	nameOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(name)), []byte(v.name)) == 1
	phoneOK := subtle.ConstantTimeCompare([]byte(digits(phone)), []byte(v.phone)) == 1
	return nameOK && phoneOK
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
