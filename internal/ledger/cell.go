package ledger

import (
	"regexp"
	"strconv"
	"strings"
)

// CellKind tags how a value was encoded in the source sheet. Data entry in
// the ledger is not uniform: the same fee may arrive as a plain number, a
// formula result, or currency-formatted text such as "L.1,200.00".
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellFormula
	CellText
)

// Cell is one raw ledger cell plus its encoding tag.
type Cell struct {
	Kind CellKind
	Raw  string
}

var (
	nonNumeric = regexp.MustCompile(`[^0-9.]`)
	whitespace = regexp.MustCompile(`\s`)
	digitsOnly = regexp.MustCompile(`^\d+$`)
)

// Fee normalizes the cell to a monetary amount, one rule per kind.
// Unrecoverable values come back as 0; callers keep Raw for diagnostics.
func (c Cell) Fee() float64 {
	switch c.Kind {
	case CellEmpty:
		return 0
	case CellNumber, CellFormula:
		v, err := strconv.ParseFloat(strings.TrimSpace(c.Raw), 64)
		if err != nil {
			return 0
		}
		return v
	default:
		return feeFromText(c.Raw)
	}
}

// feeFromText recovers an amount from currency-formatted text. A comma marks
// a thousands separator ("L.1,200.00"): the currency prefix and spaces are
// stripped and the comma removed before parsing, which loses fewer digits
// than the plain strip below. Without a comma, everything but digits and the
// decimal point is dropped.
func feeFromText(raw string) float64 {
	if strings.Contains(raw, ",") {
		cleaned := strings.ReplaceAll(raw, "L.", "")
		cleaned = strings.ReplaceAll(cleaned, "L", "")
		cleaned = whitespace.ReplaceAllString(cleaned, "")
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		v, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0
		}
		return v
	}

	cleaned := nonNumeric.ReplaceAllString(raw, "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// CanonicalID coerces a cell's displayed value to its plain digit form so
// numeric and text renderings of the same identifier compare equal (a wide
// numeric cell may display in scientific notation). Digit strings pass
// through untouched, which preserves leading zeros.
func CanonicalID(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || digitsOnly.MatchString(s) {
		return s
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return s
}
