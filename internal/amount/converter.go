// Package amount converts canonical minor-unit amounts into the numeric or
// string representation a gateway expects, and back. Conversion is a pure
// function: the same inputs always produce the same output, which retries
// with idempotency keys depend on.
package amount

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// UnitKind selects the representation a gateway expects.
type UnitKind string

const (
	MinorInteger UnitKind = "minor_integer" // 1000 -> 1000
	MinorString  UnitKind = "minor_string"  // 1000 -> "1000"
	MajorString  UnitKind = "major_string"  // 1000 USD -> "10.00"
	MajorFloat   UnitKind = "major_float"   // 1000 USD -> 10.00
)

// ConversionError reports an unsupported currency/unit combination or a value
// that cannot be represented in the requested unit.
type ConversionError struct {
	Currency string
	Unit     UnitKind
	Reason   string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s amount to %s: %s", e.Currency, e.Unit, e.Reason)
}

// exponents maps ISO 4217 currency codes to their minor-unit exponent where
// it differs from the default of 2.
var exponents = map[string]int32{
	// zero-decimal currencies
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "JPY": 0, "KMF": 0, "KRW": 0,
	"MGA": 0, "PYG": 0, "RWF": 0, "UGX": 0, "VND": 0, "VUV": 0, "XAF": 0,
	"XOF": 0, "XPF": 0,
	// three-decimal currencies
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
}

// Exponent returns the minor-unit exponent for a currency code.
func Exponent(currency string) (int32, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 {
		return 0, &ConversionError{Currency: currency, Reason: "currency code must be 3 letters"}
	}
	for i := 0; i < 3; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return 0, &ConversionError{Currency: currency, Reason: "currency code must be 3 letters"}
		}
	}
	if exp, ok := exponents[code]; ok {
		return exp, nil
	}
	return 2, nil
}

// Representation is a converted amount in one gateway unit. Exactly one field
// matching the Unit is meaningful.
type Representation struct {
	Unit        UnitKind
	MinorInt    int64
	MinorText   string
	MajorText   string
	MajorNumber float64
}

// Convert renders a canonical minor-unit amount in the target unit for the
// given currency. Zero-decimal currencies refuse fractional scaling: their
// major representation is the minor integer itself.
func Convert(minor int64, currency string, unit UnitKind) (Representation, error) {
	exp, err := Exponent(currency)
	if err != nil {
		return Representation{}, err
	}
	if minor < 0 {
		return Representation{}, &ConversionError{Currency: currency, Unit: unit, Reason: "amount cannot be negative"}
	}

	switch unit {
	case MinorInteger:
		return Representation{Unit: unit, MinorInt: minor}, nil
	case MinorString:
		return Representation{Unit: unit, MinorText: strconv.FormatInt(minor, 10)}, nil
	case MajorString:
		major := decimal.New(minor, -exp)
		return Representation{Unit: unit, MajorText: major.StringFixed(exp)}, nil
	case MajorFloat:
		major := decimal.New(minor, -exp)
		f, exact := major.Float64()
		if !exact && exp > 0 {
			// Float64 is documented as lossy for some three-decimal values;
			// gateways demanding exactness should use MajorString.
			f, _ = major.Round(exp).Float64()
		}
		return Representation{Unit: unit, MajorNumber: f}, nil
	default:
		return Representation{}, &ConversionError{Currency: currency, Unit: unit, Reason: "unsupported unit kind"}
	}
}

// ToMinor converts a gateway representation back to canonical minor units.
// Round-tripping minor -> major -> minor reproduces the original integer for
// every supported currency.
func ToMinor(rep Representation, currency string) (int64, error) {
	exp, err := Exponent(currency)
	if err != nil {
		return 0, err
	}
	switch rep.Unit {
	case MinorInteger:
		return rep.MinorInt, nil
	case MinorString:
		v, err := strconv.ParseInt(strings.TrimSpace(rep.MinorText), 10, 64)
		if err != nil {
			return 0, &ConversionError{Currency: currency, Unit: rep.Unit, Reason: "minor string is not an integer"}
		}
		return v, nil
	case MajorString:
		major, err := decimal.NewFromString(strings.TrimSpace(rep.MajorText))
		if err != nil {
			return 0, &ConversionError{Currency: currency, Unit: rep.Unit, Reason: "major string is not a decimal"}
		}
		return majorToMinor(major, exp, currency, rep.Unit)
	case MajorFloat:
		return majorToMinor(decimal.NewFromFloat(rep.MajorNumber), exp, currency, rep.Unit)
	default:
		return 0, &ConversionError{Currency: currency, Unit: rep.Unit, Reason: "unsupported unit kind"}
	}
}

func majorToMinor(major decimal.Decimal, exp int32, currency string, unit UnitKind) (int64, error) {
	minor := major.Shift(exp)
	if !minor.IsInteger() {
		return 0, &ConversionError{Currency: currency, Unit: unit, Reason: "amount has more precision than the currency allows"}
	}
	if !minor.BigInt().IsInt64() {
		return 0, &ConversionError{Currency: currency, Unit: unit, Reason: "amount overflows int64 minor units"}
	}
	return minor.IntPart(), nil
}
