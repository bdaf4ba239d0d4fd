package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// ValidationResult carries every violation found in a draft.
type ValidationResult struct {
	IsValid bool         `json:"is_valid"`
	Errors  []FieldError `json:"errors"`
}

// ByField groups messages per field, the shape problem responses use.
func (r ValidationResult) ByField() map[string][]string {
	if len(r.Errors) == 0 {
		return nil
	}
	out := make(map[string][]string, len(r.Errors))
	for _, fe := range r.Errors {
		out[fe.Field] = append(out[fe.Field], fe.Msg)
	}
	return out
}

// ValidateCampaign checks every rule against the draft and reports all violations.
// now: reference time (injectable for tests); only its calendar date is used.
// rates: used for goal bounds; when the country's rate is not loaded the bounds
// check is skipped and assembly refuses later instead.
func ValidateCampaign(d *CampaignDraft, rates ExchangeRateSnapshot, now time.Time) ValidationResult {
	var errs []FieldError

	// Text
	if title := strings.TrimSpace(d.Title); title == "" {
		errs = append(errs, FieldError{"title", "required"})
	} else if utf8.RuneCountInString(title) < MinTitleLen {
		errs = append(errs, FieldError{"title", fmt.Sprintf("min length %d", MinTitleLen)})
	}

	if desc := strings.TrimSpace(d.Description); desc == "" {
		errs = append(errs, FieldError{"description", "required"})
	} else if utf8.RuneCountInString(desc) < MinDescriptionLen {
		errs = append(errs, FieldError{"description", fmt.Sprintf("min length %d", MinDescriptionLen)})
	}

	if !d.Country.Supported() {
		errs = append(errs, FieldError{"country", fmt.Sprintf("must be one of %s", joinCountries(SupportedCountries))})
	} else if want := d.Country.Currency(); d.Currency != "" && d.Currency != want {
		errs = append(errs, FieldError{"currency", fmt.Sprintf("must be %s for %s", want, d.Country)})
	}

	errs = append(errs, validateAmounts(d, rates)...)
	errs = append(errs, validateDates(d.StartDate, d.EndDate, now)...)

	// Media
	if n := len(d.CampaignImages); n < MinImages || n > MaxImages {
		errs = append(errs, FieldError{"campaignImages", fmt.Sprintf("between %d and %d images required", MinImages, MaxImages)})
	}
	if d.HasDiagnosis {
		if n := len(d.DiagnosisImages); n < MinImages || n > MaxImages {
			errs = append(errs, FieldError{"diagnosisImages", fmt.Sprintf("between %d and %d images required", MinImages, MaxImages)})
		}
	}

	errs = append(errs, validateBeneficiaries(d)...)

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

func validateAmounts(d *CampaignDraft, rates ExchangeRateSnapshot) []FieldError {
	var errs []FieldError

	goal, goalErr := d.GoalAmount.Positive()
	if goalErr != nil {
		errs = append(errs, FieldError{"goalAmount", amountMessage(goalErr)})
	} else if d.Country.Supported() && rates.Usable(d.Country) {
		b := Bounds(d.Country, rates)
		if !b.Contains(goal) {
			errs = append(errs, FieldError{"goalAmount", fmt.Sprintf("must be between %s and %s %s",
				FormatAmount(math.Ceil(b.Min), d.Country), FormatAmount(math.Floor(b.Max), d.Country), b.Currency)})
		}
	}

	if soft, err := d.SoftCap.Positive(); err != nil {
		errs = append(errs, FieldError{"softCap", amountMessage(err)})
	} else if goalErr == nil && soft >= goal {
		errs = append(errs, FieldError{"softCap", "must be less than the goal"})
	}

	if !d.HardCap.IsZero() {
		if hard, err := d.HardCap.Positive(); err != nil {
			errs = append(errs, FieldError{"hardCap", amountMessage(err)})
		} else if goalErr == nil && hard >= goal {
			errs = append(errs, FieldError{"hardCap", "must be less than the goal"})
		}
	}

	return errs
}

func amountMessage(err error) string {
	switch {
	case errors.Is(err, ErrAmountMissing):
		return "required"
	case errors.Is(err, ErrAmountInvalid):
		return "must be a number"
	default:
		return "must be greater than zero"
	}
}

func validateDates(start, end, now time.Time) []FieldError {
	var errs []FieldError

	today := dateOnly(now)
	if start.IsZero() {
		errs = append(errs, FieldError{"startDate", "required"})
	} else if dateOnly(start).Before(today) {
		errs = append(errs, FieldError{"startDate", "must not be in the past"})
	}

	switch {
	case end.IsZero():
		errs = append(errs, FieldError{"endDate", "required"})
	case start.IsZero():
		// nothing to compare against; startDate already reported
	case !dateOnly(end).After(dateOnly(start)):
		errs = append(errs, FieldError{"endDate", "must be after the start date"})
	default:
		days := DaysBetween(start, end)
		if days < MinCampaignDays || days > MaxCampaignDays {
			errs = append(errs, FieldError{"endDate", fmt.Sprintf("campaign must last between %d and %d days", MinCampaignDays, MaxCampaignDays)})
		}
	}

	return errs
}

func validateBeneficiaries(d *CampaignDraft) []FieldError {
	var errs []FieldError

	n := len(d.Beneficiaries)
	if n < MinBeneficiaries || n > MaxBeneficiaries {
		errs = append(errs, FieldError{"beneficiaries", fmt.Sprintf("between %d and %d beneficiaries required", MinBeneficiaries, MaxBeneficiaries)})
	}

	if d.DistributionRule == DistributionPercentage && n > 0 {
		var sum float64
		for _, b := range d.Beneficiaries {
			sum += b.ShareValue
		}
		if math.Abs(sum-FullShare) > ShareSumTolerance {
			errs = append(errs, FieldError{"beneficiaries", fmt.Sprintf("shares must add up to 100%% (currently %s%%)", trimFloat(sum))})
		}
	}

	for i, b := range d.Beneficiaries {
		key := fmt.Sprintf("beneficiaries[%d]", i)
		name := b.User.DisplayName
		if name == "" {
			name = b.User.Email
		}

		switch b.ShareType {
		case SharePercent:
			if b.ShareValue <= 0 || b.ShareValue > FullShare || math.IsNaN(b.ShareValue) {
				errs = append(errs, FieldError{key + ".shareValue", fmt.Sprintf("share for %s must be between 0 and 100", name)})
			}
		case ShareFixedAmount:
			if !(b.ShareValue > 0) || math.IsInf(b.ShareValue, 0) {
				errs = append(errs, FieldError{key + ".shareValue", fmt.Sprintf("amount for %s must be greater than zero", name)})
			}
		}

		if docs := len(b.Documents); docs < MinDocuments || docs > MaxDocuments {
			errs = append(errs, FieldError{key + ".documents", fmt.Sprintf("%s needs between %d and %d documents", name, MinDocuments, MaxDocuments)})
		}

		if b.User.Country != "" && d.Country.Supported() && b.User.Country != d.Country {
			errs = append(errs, FieldError{key + ".country", fmt.Sprintf("%s must receive payouts in %s", name, d.Country)})
		}
	}

	return errs
}

// DaysBetween counts calendar days from start to end, ignoring time of day.
func DaysBetween(start, end time.Time) int {
	return int(math.Round(dateOnly(end).Sub(dateOnly(start)).Hours() / 24))
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func joinCountries(cs []CountryCode) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

func trimFloat(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}
