package plan

import (
	"fmt"
	"strings"

	"smscast/internal/domain"
)

// minAddressDigits is the smallest digit count accepted as a phone-like
// destination address.
const minAddressDigits = 10

// NormalizeAddress validates a destination address and normalizes it for the
// transport: common punctuation is stripped, a minimum digit count is
// required, and a bare national-format number gets the default country code
// prefixed. Anything else is rejected with ErrValidation.
func NormalizeAddress(raw, defaultCountryCode string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty destination address", domain.ErrValidation)
	}

	international := strings.HasPrefix(trimmed, "+")
	if international {
		trimmed = trimmed[1:]
	}

	var digits strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.' || r == '/':
			// formatting punctuation, dropped
		default:
			return "", fmt.Errorf("%w: destination address %q contains %q", domain.ErrValidation, raw, r)
		}
	}

	normalized := digits.String()
	if len(normalized) < minAddressDigits {
		return "", fmt.Errorf("%w: destination address %q has %d digits, need at least %d",
			domain.ErrValidation, raw, len(normalized), minAddressDigits)
	}

	if international {
		return "+" + normalized, nil
	}

	// A bare 10-digit number is treated as national format.
	if len(normalized) == minAddressDigits && defaultCountryCode != "" {
		code := strings.TrimSpace(defaultCountryCode)
		if !strings.HasPrefix(code, "+") {
			code = "+" + code
		}
		return code + normalized, nil
	}

	return normalized, nil
}
