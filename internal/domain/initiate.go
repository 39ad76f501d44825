package domain

import (
	"regexp"
	"strings"
)

const (
	// Daraja accepts STK push amounts between 1 and 300,000 KES inclusive.
	MinAmount = 1
	MaxAmount = 300000
)

// canonicalPhone matches the normalized form: country code 254 followed by a
// Safaricom mobile prefix (7 or 1) and eight digits.
var canonicalPhone = regexp.MustCompile(`^254[17]\d{8}$`)

// InitiateRequest is the caller's request to start an STK push.
type InitiateRequest struct {
	PhoneNumber    string  `json:"phoneNumber"`
	Amount         float64 `json:"amount"`
	OrderReference string  `json:"orderReference"`
	Description    string  `json:"description"`
}

// Validate normalizes the phone number in place and checks amount bounds.
// It runs before any network call; a ValidationError here guarantees the
// gateway was never contacted.
func (r *InitiateRequest) Validate() error {
	if strings.TrimSpace(r.OrderReference) == "" {
		return &ValidationError{Field: "orderReference", Message: "is required"}
	}
	if r.Amount < MinAmount || r.Amount > MaxAmount {
		return &ValidationError{Field: "amount", Message: "must be between 1 and 300000"}
	}

	normalized, err := NormalizePhone(r.PhoneNumber)
	if err != nil {
		return err
	}
	r.PhoneNumber = normalized

	if r.Description == "" {
		r.Description = "Payment for " + r.OrderReference
	}
	return nil
}

// NormalizePhone converts any accepted Kenyan phone format to canonical
// 2547XXXXXXXX / 2541XXXXXXXX form. Accepted inputs: 07XXXXXXXX / 01XXXXXXXX,
// +2547XXXXXXXX, 2547XXXXXXXX and the bare nine-digit subscriber number.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 10 && digits[0] == '0':
		digits = "254" + digits[1:]
	case len(digits) == 9:
		digits = "254" + digits
	}

	if !canonicalPhone.MatchString(digits) {
		return "", &ValidationError{Field: "phoneNumber", Message: "must be a valid Safaricom number"}
	}
	return digits, nil
}
