package domain

// CountryCode is an ISO 3166-1 alpha-2 code of a country campaigns can be created in.
type CountryCode string

// Currency is the ISO 4217 code a campaign's local amounts are entered in.
type Currency string

const (
	CountryUS CountryCode = "US"
	CountryMX CountryCode = "MX"
	CountryCO CountryCode = "CO"
	CountryCL CountryCode = "CL"

	CurrencyUSD Currency = "USD"
	CurrencyMXN Currency = "MXN"
	CurrencyCOP Currency = "COP"
	CurrencyCLP Currency = "CLP"
)

// SupportedCountries lists payout-eligible countries in display order.
var SupportedCountries = []CountryCode{CountryUS, CountryMX, CountryCO, CountryCL}

var currencies = map[CountryCode]Currency{
	CountryUS: CurrencyUSD,
	CountryMX: CurrencyMXN,
	CountryCO: CurrencyCOP,
	CountryCL: CurrencyCLP,
}

// Goal limits in whole US dollars.
var usdGoalLimits = map[CountryCode]struct{ min, max float64 }{
	CountryUS: {min: 1_000, max: 250_000},
	CountryMX: {min: 500, max: 100_000},
	CountryCO: {min: 500, max: 100_000},
	CountryCL: {min: 500, max: 100_000},
}

func (c CountryCode) Supported() bool {
	_, ok := currencies[c]
	return ok
}

// Currency returns the local currency of c, or "" when c is not supported.
func (c CountryCode) Currency() Currency {
	return currencies[c]
}
