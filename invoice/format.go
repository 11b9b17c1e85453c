package invoice

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultDateLayout is used by date aliases and the date filter without an argument.
const DefaultDateLayout = "Jan 2, 2006"

// Formatter renders money, quantities and dates for one snapshot locale.
type Formatter struct {
	printer  *message.Printer
	currency string
}

// NewFormatter builds a formatter; an unparsable locale falls back to en-US.
func NewFormatter(locale, currency string) Formatter {
	tag, err := language.Parse(locale)
	if locale == "" || err != nil {
		tag = language.AmericanEnglish
	}
	if currency == "" {
		currency = "$"
	}
	return Formatter{printer: message.NewPrinter(tag), currency: currency}
}

// Formatter returns the formatter configured by the snapshot's locale and currency.
func (s *Snapshot) Formatter() Formatter {
	if s == nil {
		return NewFormatter("", "")
	}
	return NewFormatter(s.Locale, s.Currency)
}

// Money formats v with two decimals and the currency symbol, e.g. "$1,234.50".
func (f Formatter) Money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + f.currency + f.printer.Sprintf("%.2f", v)
}

// Number formats v with at most two fraction digits, e.g. "2.5".
func (f Formatter) Number(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// Date formats t with layout; the zero time renders as "".
func (f Formatter) Date(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	if layout == "" {
		layout = DefaultDateLayout
	}
	return t.Format(layout)
}
