package classifier

import "github.com/shopspring/decimal"

// CreditCategory buckets a trip by its credit-over-block (CR) value.
type CreditCategory string

const (
	CategoryUnder15 CreditCategory = "<15 minutes"
	Category15To30  CreditCategory = "15-30 minutes"
	Category30To60  CreditCategory = "30-60 minutes"
	CategoryOver60  CreditCategory = ">60 minutes"
)

// CreditCategories lists the categories in presentation order.
var CreditCategories = []CreditCategory{CategoryUnder15, Category15To30, Category30To60, CategoryOver60}

// creditBands are upper bounds in decimal hours as written on the roster.
// CR is compared as a decimal, so 0.15 is the value fifteen hundredths,
// not fifteen minutes converted.
var creditBands = []struct {
	below    decimal.Decimal
	category CreditCategory
}{
	{decimal.RequireFromString("0.15"), CategoryUnder15},
	{decimal.RequireFromString("0.30"), Category15To30},
	{decimal.RequireFromString("1.00"), Category30To60},
}

// CategorizeCredit returns the category for a CR value.
func CategorizeCredit(cr decimal.Decimal) CreditCategory {
	for _, band := range creditBands {
		if cr.LessThan(band.below) {
			return band.category
		}
	}
	return CategoryOver60
}
