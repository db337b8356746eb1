package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// NanoPerTON is the number of nanotons in one TON.
const NanoPerTON int64 = 1_000_000_000

const tonDecimals = 9

// FormatTON renders a nanoton amount as a TON decimal string.
func FormatTON(nano int64) string {
	return decimal.New(nano, -tonDecimals).StringFixed(tonDecimals)
}

// ParseTON converts a TON decimal string to nanotons. More than nine
// fractional digits or an out-of-range value is rejected.
func ParseTON(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, WrapError(KindInvalidArgument, err, "invalid TON amount %q", s)
	}

	nano := d.Shift(tonDecimals)
	if !nano.Equal(nano.Truncate(0)) {
		return 0, NewError(KindInvalidArgument, "TON amount %q has more than %d decimals", s, tonDecimals)
	}

	if nano.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || nano.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, NewError(KindInvalidArgument, "TON amount %q out of range", s)
	}

	return nano.IntPart(), nil
}
