package receiving

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseQuantity converts a raw listing quantity into a whole number of packages.
//
// Whitespace is removed and a comma is read as the decimal separator, so
// "1.0" and "2,00" become 1 and 2. The value is truncated toward zero. When the
// text is not a number the digits it contains are used instead; no digits at all
// yields 0.
func ParseQuantity(raw string) int {
	s := strings.Join(strings.Fields(raw), "")
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", ".")
	if d, err := decimal.NewFromString(s); err == nil {
		return int(d.Truncate(0).IntPart())
	}

	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			b.WriteByte(raw[i])
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}
