package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tzpesa/pesa-service/internal/models"
)

const (
	// TanzaniaCountryCode prefixes every normalized phone number
	TanzaniaCountryCode = "255"
	// PhoneNumberLength includes the country code (255XXXXXXXXX)
	PhoneNumberLength = 12
	// MaxReferenceLength bounds order references
	MaxReferenceLength = 100
)

// MinAmountTZS is the smallest amount the gateway accepts for TZS
var MinAmountTZS = decimal.NewFromInt(100)

var (
	nonDigits    = regexp.MustCompile(`\D`)
	referencePat = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// NormalizePhone validates a phone number and normalizes it to the
// international digits-only form 255XXXXXXXXX. Local forms (0712345678) and
// +255 prefixes are accepted.
func NormalizePhone(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", models.NewFieldError("phoneNumber", "phone number is required")
	}

	digits := nonDigits.ReplaceAllString(phone, "")
	switch {
	case strings.HasPrefix(digits, "0"):
		digits = TanzaniaCountryCode + digits[1:]
	case strings.HasPrefix(digits, TanzaniaCountryCode):
		// already international
	default:
		digits = TanzaniaCountryCode + digits
	}

	if len(digits) != PhoneNumberLength {
		return "", models.NewFieldError("phoneNumber",
			fmt.Sprintf("phone number must be %d digits including country code, got %q", PhoneNumberLength, digits))
	}
	return digits, nil
}

// ValidateAmount checks that an amount is positive, within gateway limits,
// and carries at most two decimal places.
func ValidateAmount(amount decimal.Decimal, currency models.Currency) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return models.NewFieldError("amount", "amount must be greater than zero")
	}
	if currency == models.CurrencyTZS && amount.LessThan(MinAmountTZS) {
		return models.NewFieldError("amount",
			fmt.Sprintf("amount must be at least %s TZS", MinAmountTZS))
	}
	if amount.Exponent() < -2 {
		return models.NewFieldError("amount", "amount can have at most 2 decimal places")
	}
	return nil
}

// ValidateCurrency upper-cases and checks a currency code
func ValidateCurrency(code string) (models.Currency, error) {
	c := models.Currency(strings.ToUpper(strings.TrimSpace(code)))
	switch c {
	case models.CurrencyTZS, models.CurrencyUSD:
		return c, nil
	case "":
		return "", models.NewFieldError("currency", "currency is required")
	default:
		return "", models.NewFieldError("currency", fmt.Sprintf("unsupported currency %q", code))
	}
}

// ValidateReference checks an order reference: alphanumeric plus hyphen and
// underscore, at most MaxReferenceLength characters.
func ValidateReference(reference string) (string, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", models.NewFieldError("orderReference", "order reference is required")
	}
	if len(reference) > MaxReferenceLength {
		return "", models.NewFieldError("orderReference",
			fmt.Sprintf("order reference must be at most %d characters", MaxReferenceLength))
	}
	if !referencePat.MatchString(reference) {
		return "", models.NewFieldError("orderReference",
			"order reference may only contain letters, numbers, hyphens, and underscores")
	}
	return reference, nil
}

// FormatReference builds a prefixed order reference, e.g. BOOKING-12345
func FormatReference(prefix string, id any) string {
	return fmt.Sprintf("%s-%v", prefix, id)
}
