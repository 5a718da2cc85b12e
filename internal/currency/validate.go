package currency

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"billpay/internal/domain"
)

const (
	// MinSatoshis is the smallest invoiceable amount.
	MinSatoshis = 1
	// MaxSatoshis is the largest amount representable in an unsigned 32-bit field.
	MaxSatoshis = 4294967295
)

var (
	paymentRequestPrefixes = []string{"lnbc", "lntb"}

	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsOnly   = regexp.MustCompile(`^[0-9]+$`)
	nonDigits    = regexp.MustCompile(`\D`)
)

// IsRecognizedPaymentRequest reports whether s looks like a mainnet or testnet
// Lightning payment request. It is a display sanity check, not a decoder.
func IsRecognizedPaymentRequest(s string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	for _, prefix := range paymentRequestPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// ValidateSatoshiAmount returns v as an integer if it is a whole number in
// [MinSatoshis, MaxSatoshis].
func ValidateSatoshiAmount(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || v < MinSatoshis {
		return 0, domain.NewValidationError("Amount must be a positive integer (satoshis)")
	}
	if v > MaxSatoshis {
		return 0, domain.NewValidationError(fmt.Sprintf("Amount must not exceed %d satoshis", int64(MaxSatoshis)))
	}
	return int64(v), nil
}

// ValidateEmail checks the address has the user@host.tld shape.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.NewValidationError("Customer email is required")
	}
	if !emailPattern.MatchString(email) {
		return domain.NewValidationError("Please enter a valid email address")
	}
	return nil
}

// NormalizePhone strips formatting and leading zeros from a phone number.
func NormalizePhone(phone string) string {
	return strings.TrimLeft(nonDigits.ReplaceAllString(phone, ""), "0")
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	return digitsOnly.MatchString(s)
}
