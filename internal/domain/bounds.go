package domain

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// AmountBounds is the allowed goal range expressed in a campaign's local currency.
type AmountBounds struct {
	Country  CountryCode `json:"country"`
	Currency Currency    `json:"currency"`
	Min      float64     `json:"min"`
	Max      float64     `json:"max"`
}

// Bounds converts the fixed USD goal limits of country into its local currency.
// For US the limits are returned as is. An unsupported country yields zero bounds.
func Bounds(country CountryCode, rates ExchangeRateSnapshot) AmountBounds {
	lim, ok := usdGoalLimits[country]
	if !ok {
		return AmountBounds{Country: country}
	}
	return AmountBounds{
		Country:  country,
		Currency: country.Currency(),
		Min:      ToLocal(lim.min, country, rates),
		Max:      ToLocal(lim.max, country, rates),
	}
}

// Contains reports whether amount lies within [Min, Max].
func (b AmountBounds) Contains(amount float64) bool {
	return amount >= b.Min && amount <= b.Max
}

var locales = map[CountryCode]language.Tag{
	CountryUS: language.AmericanEnglish,
	CountryMX: language.LatinAmericanSpanish,
	CountryCO: language.LatinAmericanSpanish,
	CountryCL: language.LatinAmericanSpanish,
}

// FormatAmount renders a whole-unit amount with the digit grouping of country.
func FormatAmount(amount float64, country CountryCode) string {
	tag, ok := locales[country]
	if !ok {
		tag = language.AmericanEnglish
	}
	return message.NewPrinter(tag).Sprintf("%d", int64(math.Round(amount)))
}
