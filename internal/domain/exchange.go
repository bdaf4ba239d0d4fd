package domain

import "math"

// ToLocal converts a USD amount into country's currency. No rounding is applied.
// Callers check Usable first; a missing rate produces 0.
func ToLocal(amountUSD float64, country CountryCode, rates ExchangeRateSnapshot) float64 {
	if country == CountryUS {
		return amountUSD
	}
	return amountUSD * rates.Rate(country)
}

// ToUSD converts an amount in country's currency into USD. No rounding is applied.
// Callers check Usable first; a missing rate produces ±Inf or NaN.
func ToUSD(amountLocal float64, country CountryCode, rates ExchangeRateSnapshot) float64 {
	if country == CountryUS {
		return amountLocal
	}
	return amountLocal / rates.Rate(country)
}

func isNaNOrInf(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
