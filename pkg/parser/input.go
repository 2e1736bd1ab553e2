package parser

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidCount is returned for swap counts that are not positive integers
	ErrInvalidCount = errors.New("swap count must be a positive integer")
	// ErrInvalidAmount is returned for malformed decimal amounts
	ErrInvalidAmount = errors.New("invalid amount")
)

var (
	countPattern  = regexp.MustCompile(`^\d+$`)
	amountPattern = regexp.MustCompile(`^(\d+)(?:\.(\d*))?$`)
)

// ParseSwapCount parses the operator's answer to "how many swaps"
// Examples:
//   - "4"
//   - " 10 "
func ParseSwapCount(input string) (int, error) {
	input = strings.TrimSpace(input)
	if !countPattern.MatchString(input) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCount, input)
	}

	n, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCount, input)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCount, input)
	}
	return n, nil
}

// ParseAmount converts a human decimal amount such as "0.00245" into base units of a token
// with the given decimals. Amounts with more fractional digits than decimals are rejected.
func ParseAmount(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	matches := amountPattern.FindStringSubmatch(amount)
	if matches == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}

	whole, frac := matches[1], matches[2]
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, amount, decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if v.Sign() == 0 {
		return nil, fmt.Errorf("%w: %q is zero", ErrInvalidAmount, amount)
	}
	return v, nil
}

// FormatAmount renders base units as a decimal string, trimming trailing zeros
func FormatAmount(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}

	neg := v.Sign() < 0
	digits := new(big.Int).Abs(v).String()
	if d := int(decimals); d > 0 {
		if len(digits) <= d {
			digits = strings.Repeat("0", d-len(digits)+1) + digits
		}
		whole, frac := digits[:len(digits)-d], strings.TrimRight(digits[len(digits)-d:], "0")
		digits = whole
		if frac != "" {
			digits += "." + frac
		}
	}

	if neg {
		return "-" + digits
	}
	return digits
}
