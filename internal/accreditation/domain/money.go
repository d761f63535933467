package domain

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in minor units (cents). It marshals as a decimal JSON
// number with two fraction digits.
type Money int64

var ErrInvalidMoney = errors.New("invalid_amount")

// ParseMoney accepts a plain decimal with at most two fraction digits.
func ParseMoney(raw string) (Money, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidMoney
	}
	negative := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	whole, frac, _ := strings.Cut(raw, ".")
	if whole == "" || len(frac) > 2 || !isDigits(whole) || !isDigits(frac) {
		return 0, ErrInvalidMoney
	}
	for len(frac) < 2 {
		frac += "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidMoney
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrInvalidMoney
	}
	if units > (1<<63-1-cents)/100 {
		return 0, ErrInvalidMoney
	}
	value := units*100 + cents
	if negative {
		value = -value
	}
	return Money(value), nil
}

// isDigits reports whether s holds only ASCII digits. strconv alone would
// also take a sign.
func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
