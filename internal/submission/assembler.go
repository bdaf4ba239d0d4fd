// Package submission turns a validated campaign draft into the USD-normalized
// payload handed to persistence.
package submission

import (
	"errors"
	"fmt"
	"math"
	"time"

	"example.com/legacyfund/internal/domain"
)

var (
	ErrRatesUnavailable = errors.New("exchange rates unavailable")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// CampaignSubmission is the normalized campaign. Amounts are whole US dollars.
type CampaignSubmission struct {
	Title            string                         `json:"title"`
	Description      string                         `json:"description"`
	Country          domain.CountryCode             `json:"country"`
	Currency         domain.Currency                `json:"currency"`
	GoalUSD          int64                          `json:"goal_usd"`
	SoftCapUSD       int64                          `json:"soft_cap_usd"`
	HardCapUSD       *int64                         `json:"hard_cap_usd,omitempty"`
	ExchangeRate     float64                        `json:"exchange_rate"`
	RateDate         time.Time                      `json:"rate_date"`
	StartDate        time.Time                      `json:"start_date"`
	EndDate          time.Time                      `json:"end_date"`
	HasDiagnosis     bool                           `json:"has_diagnosis"`
	CampaignImages   []domain.Image                 `json:"campaign_images"`
	DiagnosisImages  []domain.Image                 `json:"diagnosis_images"`
	Visibility       domain.Visibility              `json:"visibility"`
	DistributionRule domain.DistributionRule        `json:"distribution_rule"`
	Beneficiaries    []domain.BeneficiaryAllocation `json:"beneficiaries"`
}

// Assemble converts the draft's local amounts to USD, truncating toward zero, and
// copies everything else as is. It has no side effects, so a retry after a failed
// persistence attempt yields an identical payload.
//
// Callers validate first; Assemble only guards the arithmetic. Truncation can
// bring a cap level with the goal (US goal 1000.9, soft cap 1000.5 both become
// 1000); the caps are not re-checked after conversion.
func Assemble(d *domain.CampaignDraft, rates domain.ExchangeRateSnapshot) (CampaignSubmission, error) {
	if !rates.Loaded() || !rates.Usable(d.Country) {
		return CampaignSubmission{}, fmt.Errorf("%w for %s", ErrRatesUnavailable, d.Country)
	}

	goal, err := toUSD("goal_amount", d.GoalAmount, d.Country, rates)
	if err != nil {
		return CampaignSubmission{}, err
	}
	soft, err := toUSD("soft_cap", d.SoftCap, d.Country, rates)
	if err != nil {
		return CampaignSubmission{}, err
	}
	var hard *int64
	if !d.HardCap.IsZero() {
		v, err := toUSD("hard_cap", d.HardCap, d.Country, rates)
		if err != nil {
			return CampaignSubmission{}, err
		}
		hard = &v
	}

	return CampaignSubmission{
		Title:            d.Title,
		Description:      d.Description,
		Country:          d.Country,
		Currency:         d.Country.Currency(),
		GoalUSD:          goal,
		SoftCapUSD:       soft,
		HardCapUSD:       hard,
		ExchangeRate:     rates.Rate(d.Country),
		RateDate:         rates.Date,
		StartDate:        d.StartDate,
		EndDate:          d.EndDate,
		HasDiagnosis:     d.HasDiagnosis,
		CampaignImages:   d.CampaignImages,
		DiagnosisImages:  d.DiagnosisImages,
		Visibility:       d.Visibility,
		DistributionRule: d.DistributionRule,
		Beneficiaries:    d.Beneficiaries,
	}, nil
}

func toUSD(field string, a domain.Amount, country domain.CountryCode, rates domain.ExchangeRateSnapshot) (int64, error) {
	local, err := a.Positive()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidAmount, field, err)
	}
	usd := math.Trunc(domain.ToUSD(local, country, rates))
	if math.IsNaN(usd) || math.IsInf(usd, 0) || usd >= 1<<63 {
		return 0, fmt.Errorf("%w: %s converts to %v USD", ErrInvalidAmount, field, usd)
	}
	return int64(usd), nil
}
