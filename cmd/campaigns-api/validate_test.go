package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/legacyfund/internal/domain"
)

func writeJSONFile(t *testing.T, name string, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func mexicoDraft() domain.CampaignDraft {
	start := time.Now().UTC().AddDate(0, 0, 1)
	return domain.CampaignDraft{
		Title:            "Ayuda para Marta",
		Description:      strings.Repeat("Marta necesita apoyo para su tratamiento. ", 3),
		Country:          domain.CountryMX,
		Currency:         domain.CurrencyMXN,
		GoalAmount:       "170000",
		SoftCap:          "51000",
		StartDate:        start,
		EndDate:          start.AddDate(0, 0, 100),
		CampaignImages:   []domain.Image{{URI: "file:///cover.jpg"}},
		Visibility:       domain.VisibilityPublic,
		DistributionRule: domain.DistributionPercentage,
		Beneficiaries: []domain.BeneficiaryAllocation{{
			ID:         "b1",
			User:       domain.BeneficiaryUser{ID: "u1", DisplayName: "Marta"},
			ShareType:  domain.SharePercent,
			ShareValue: 100,
			Documents:  []domain.Image{{URI: "file:///ine.pdf"}},
		}},
	}
}

func runValidateWith(t *testing.T, draft, rates string) (domain.ValidationResult, error) {
	t.Helper()
	draftPath, ratesPath = draft, rates
	t.Cleanup(func() { draftPath, ratesPath = "", "" })

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	err := runValidate(cmd, nil)

	var res domain.ValidationResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	return res, err
}

func TestValidateCommand(t *testing.T) {
	draft := writeJSONFile(t, "draft.json", mexicoDraft())
	rates := writeJSONFile(t, "rates.json", domain.ExchangeRateSnapshot{MXNRate: 17})

	res, err := runValidateWith(t, draft, rates)
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
}

func TestValidateCommandReportsViolations(t *testing.T) {
	d := mexicoDraft()
	d.GoalAmount = "4000"
	d.SoftCap = "1000"
	draft := writeJSONFile(t, "draft.json", d)
	rates := writeJSONFile(t, "rates.json", domain.ExchangeRateSnapshot{MXNRate: 17})

	res, err := runValidateWith(t, draft, rates)
	require.ErrorIs(t, err, errDraftInvalid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "goalAmount", res.Errors[0].Field)
	assert.Contains(t, res.Errors[0].Msg, "MXN")

	// without rates the goal bounds cannot be checked
	res, err = runValidateWith(t, draft, "")
	require.NoError(t, err)
	assert.True(t, res.IsValid)
}

func TestValidateCommandMissingFile(t *testing.T) {
	draftPath = filepath.Join(t.TempDir(), "nope.json")
	t.Cleanup(func() { draftPath = "" })

	err := runValidate(&cobra.Command{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.json")
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = newLogger("loud")
	assert.Error(t, err)
}
