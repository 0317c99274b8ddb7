package common

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// GetStringParam returns the value for key as sent, or defaultValue when it is missing or empty
func GetStringParam(params map[string]string, key string, defaultValue string) string {
	if val, ok := params[key]; ok && val != "" {
		return val
	}
	return defaultValue
}

// GetNumberParam reads a numeric form field. Missing and empty values yield
// defaultValue; anything else goes through ParseNumber, so the result may be
// NaN, infinite or fractional and callers decide what those mean.
func GetNumberParam(params map[string]string, key string, defaultValue float64) float64 {
	s := GetStringParam(params, key, "")
	if s == "" {
		return defaultValue
	}
	return ParseNumber(s)
}

// ParseNumber converts a loosely typed text value to a number. Surrounding
// whitespace is ignored, a blank string is 0, decimal and exponent notation
// and 0x/0o/0b integer literals are accepted, "Infinity" is the only spelling
// of infinity, and everything else is NaN.
func ParseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if strings.ContainsRune(s, '_') {
		return math.NaN()
	}

	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			n, err := strconv.ParseUint(s, 0, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}

	// strconv also knows inf, nan and hex floats; plain form values do not
	lower := strings.ToLower(s)
	if strings.ContainsAny(lower, "xpn") || strings.Contains(lower, "inf") {
		return math.NaN()
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f
		}
		return math.NaN()
	}
	return f
}

// ClampFloat limits v to [lo, hi]. NaN stays NaN.
func ClampFloat(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// IntegerValue returns v as an int when it is a finite whole number in the int32 range
func IntegerValue(v float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, false
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, false
	}
	return int(v), true
}
