// Package money formats naira amounts for display.
package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const Symbol = "₦"

var printer = message.NewPrinter(language.English)

// Format renders whole naira with digit grouping, e.g. 120000 as "₦120,000".
func Format(amount int64) string {
	if amount < 0 {
		return "-" + Symbol + printer.Sprintf("%d", -amount)
	}
	return Symbol + printer.Sprintf("%d", amount)
}
