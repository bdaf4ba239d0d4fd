package domain

import "time"

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// DistributionRule decides how collected funds are split between beneficiaries.
type DistributionRule string

const (
	DistributionPercentage DistributionRule = "percentage"
	DistributionFixedParts DistributionRule = "fixed_parts"
)

type ShareType string

const (
	SharePercent     ShareType = "percent"
	ShareFixedAmount ShareType = "fixed_amount"
)

// ShareTypeFor mirrors a campaign's distribution rule onto a new allocation.
func ShareTypeFor(rule DistributionRule) ShareType {
	if rule == DistributionFixedParts {
		return ShareFixedAmount
	}
	return SharePercent
}

type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
)

// Image is a media attachment picked on the device and not yet uploaded.
type Image struct {
	URI      string `json:"uri"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// BeneficiaryUser references an existing user record; the draft does not own it.
type BeneficiaryUser struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	Email       string      `json:"email"`
	KYCStatus   KYCStatus   `json:"kyc_status"`
	Country     CountryCode `json:"country,omitempty"`
}

type BeneficiaryAllocation struct {
	ID         string          `json:"id"`
	User       BeneficiaryUser `json:"user"`
	ShareType  ShareType       `json:"share_type"`
	ShareValue float64         `json:"share_value"`
	Documents  []Image         `json:"documents"`
}

// CampaignDraft is the campaign being authored, with amounts still in local currency.
type CampaignDraft struct {
	Title            string                  `json:"title"`
	Description      string                  `json:"description"`
	Country          CountryCode             `json:"country"`
	Currency         Currency                `json:"currency"`
	GoalAmount       Amount                  `json:"goal_amount"`
	SoftCap          Amount                  `json:"soft_cap"`
	HardCap          Amount                  `json:"hard_cap,omitempty"`
	StartDate        time.Time               `json:"start_date"`
	EndDate          time.Time               `json:"end_date"`
	HasDiagnosis     bool                    `json:"has_diagnosis"`
	CampaignImages   []Image                 `json:"campaign_images"`
	DiagnosisImages  []Image                 `json:"diagnosis_images"`
	Visibility       Visibility              `json:"visibility"`
	DistributionRule DistributionRule        `json:"distribution_rule"`
	Beneficiaries    []BeneficiaryAllocation `json:"beneficiaries"`
}

// SetCountry switches the draft to country. Currency follows the country and any
// entered amounts are cleared, since they were denominated in the old currency.
func (d *CampaignDraft) SetCountry(country CountryCode) {
	if d.Country == country {
		return
	}
	d.Country = country
	d.Currency = country.Currency()
	d.GoalAmount = ""
	d.SoftCap = ""
	d.HardCap = ""
}

// NormalizeCurrency fills an empty Currency from Country. A currency that
// disagrees with the country is left for ValidateCampaign to report.
func (d *CampaignDraft) NormalizeCurrency() {
	if d.Currency == "" {
		d.Currency = d.Country.Currency()
	}
}

// Limits
const (
	MinTitleLen       = 12
	MinDescriptionLen = 90
	MinImages         = 1
	MaxImages         = 3
	MinBeneficiaries  = 1
	MaxBeneficiaries  = 3
	MinDocuments      = 1
	MaxDocuments      = 3
	MinCampaignDays   = 90
	MaxCampaignDays   = 365
	FullShare         = 100.0
	ShareSumTolerance = 0.01
)
