package account

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedAmount is returned by ParseAmount when the input
// is not a valid decimal amount with at most two fractional digits.
var ErrMalformedAmount = errors.New("account: malformed amount")

// Amount is a monetary amount, expressed in minor units (cents).
type Amount int64

// String returns the decimal representation of the amount, e.g. "125.00".
func (a Amount) String() string {
	sign, abs := "", uint64(a)
	if a < 0 {
		sign, abs = "-", uint64(-a)
	}

	return fmt.Sprintf("%s%d.%02d", sign, abs/100, abs%100)
}

// ParseAmount parses a non-negative decimal amount, such as "100", "100.5"
// or "100.50", into an Amount.
func ParseAmount(s string) (Amount, error) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || (hasFrac && (frac == "" || len(frac) > 2)) {
		return 0, fmt.Errorf("account.ParseAmount: %w, '%s'", ErrMalformedAmount, s)
	}

	units, err := strconv.ParseUint(whole, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("account.ParseAmount: %w, '%s'", ErrMalformedAmount, s)
	}

	frac += strings.Repeat("0", 2-len(frac))

	cents, err := strconv.ParseUint(frac, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("account.ParseAmount: %w, '%s'", ErrMalformedAmount, s)
	}

	if units > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("account.ParseAmount: %w, '%s' out of range", ErrMalformedAmount, s)
	}

	return Amount(units*100 + cents), nil
}
