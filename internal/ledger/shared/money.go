package shared

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMinorUnits renders an amount held in minor currency units as a
// grouped decimal string, e.g. 512345 -> "5,123.45". Display only; all
// arithmetic stays in int64 minor units.
func FormatMinorUnits(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}
	formatted := moneyPrinter.Sprintf("%d.%02d", amount/100, amount%100)
	if negative {
		return "-" + formatted
	}
	return formatted
}
