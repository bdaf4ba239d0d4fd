package domain

import "time"

// ExchangeRateSnapshot holds the latest daily multipliers from one US dollar to
// each supported non-USD currency. The zero value means "not loaded".
type ExchangeRateSnapshot struct {
	MXNRate float64   `json:"mxn_rate"`
	COPRate float64   `json:"cop_rate"`
	CLPRate float64   `json:"clp_rate"`
	Date    time.Time `json:"date"`
}

// Loaded reports whether any rate has been populated.
func (s ExchangeRateSnapshot) Loaded() bool {
	return s.MXNRate != 0 || s.COPRate != 0 || s.CLPRate != 0
}

// Rate returns the USD multiplier for country. US is always 1. Unsupported
// countries yield 0, like a rate that was never loaded.
func (s ExchangeRateSnapshot) Rate(country CountryCode) float64 {
	switch country {
	case CountryUS:
		return 1
	case CountryMX:
		return s.MXNRate
	case CountryCO:
		return s.COPRate
	case CountryCL:
		return s.CLPRate
	default:
		return 0
	}
}

// Usable reports whether conversions for country can be trusted.
func (s ExchangeRateSnapshot) Usable(country CountryCode) bool {
	r := s.Rate(country)
	return r > 0 && !isNaNOrInf(r)
}
