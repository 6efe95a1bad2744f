package catalog

import (
	"strconv"
	"strings"
)

// EAN13Length is the length of a complete EAN-13 barcode
const EAN13Length = 13

// VariableWeightPrefixLength is the number of leading digits that identify
// a variable-weight article (the rest of the barcode encodes weight or price)
const VariableWeightPrefixLength = 7

// Digits returns only the ASCII digits of s
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// CheckDigit computes the EAN-13 check digit for a 12 digit payload.
// Digits at even positions weigh 1, digits at odd positions weigh 3.
func CheckDigit(payload string) int {
	sum := 0
	for i := 0; i < len(payload); i++ {
		d := int(payload[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

// IsValidEAN13 reports whether code is 13 digits with a correct check digit
func IsValidEAN13(code string) bool {
	if len(code) != EAN13Length || Digits(code) != code {
		return false
	}
	return int(code[12]-'0') == CheckDigit(code[:12])
}

// NormalizeBarcode normalizes a single barcode value read from the catalog source.
//
// Non-digits are stripped. Twelve digits get their EAN-13 check digit appended,
// thirteen are kept, shorter values are left-padded with zeros and longer values
// are returned as the raw digit string. An empty result means the value is unusable.
func NormalizeBarcode(raw string) string {
	d := Digits(raw)
	switch {
	case d == "":
		return ""
	case len(d) == EAN13Length-1:
		return d + strconv.Itoa(CheckDigit(d))
	case len(d) == EAN13Length:
		return d
	case len(d) < EAN13Length:
		return strings.Repeat("0", EAN13Length-len(d)) + d
	default:
		return d
	}
}

// NormalizeBarcodeField normalizes a barcode column that may hold several
// comma or semicolon separated values. Each token is normalized on its own,
// empty tokens are dropped and the rest are joined with commas.
func NormalizeBarcodeField(raw string) string {
	tokens := SplitBarcodes(raw)
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		n := NormalizeBarcode(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return strings.Join(out, ",")
}

// SplitBarcodes splits a barcode field on commas, semicolons and whitespace
func SplitBarcodes(field string) []string {
	parts := strings.FieldsFunc(field, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := parts[:0]
	for _, p := range parts {
		p = strings.Trim(p, `'"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ScanKey normalizes scanned digits to a 13 digit key: shorter payloads are
// left-padded, longer payloads keep their last 13 digits.
func ScanKey(digits string) string {
	d := Digits(digits)
	switch {
	case d == "":
		return ""
	case len(d) < EAN13Length:
		return strings.Repeat("0", EAN13Length-len(d)) + d
	default:
		return d[len(d)-EAN13Length:]
	}
}

// BarcodeCandidates returns the distinct values a scanned barcode may be stored as
func BarcodeCandidates(digits string) []string {
	values := []string{digits, ScanKey(digits), NormalizeBarcode(digits)}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		dup := false
		for _, o := range out {
			if o == v {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

// IsVariableWeight reports whether a 13 digit key follows the in-store
// variable-weight convention (leading 2)
func IsVariableWeight(key string) bool {
	return len(key) >= EAN13Length && key[0] == '2'
}

// VariableWeightPrefix returns the article prefix of a variable-weight key
func VariableWeightPrefix(key string) string {
	if len(key) < VariableWeightPrefixLength {
		return key
	}
	return key[:VariableWeightPrefixLength]
}
