package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"example.com/legacyfund/internal/domain"
)

var (
	draftPath string
	ratesPath string
)

var errDraftInvalid = errors.New("draft is invalid")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a campaign draft file and print every violation",
	Example: `  campaigns-api validate --draft draft.json
  campaigns-api validate --draft draft.json --rates rates.json`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&draftPath, "draft", "", "campaign draft JSON file")
	validateCmd.Flags().StringVar(&ratesPath, "rates", "", "exchange rate snapshot JSON file")
	_ = validateCmd.MarkFlagRequired("draft")
}

func runValidate(cmd *cobra.Command, args []string) error {
	var draft domain.CampaignDraft
	if err := readJSON(draftPath, &draft); err != nil {
		return err
	}
	draft.NormalizeCurrency()
	var snap domain.ExchangeRateSnapshot
	if ratesPath != "" {
		if err := readJSON(ratesPath, &snap); err != nil {
			return err
		}
	}

	res := domain.ValidateCampaign(&draft, snap, time.Now())
	if res.Errors == nil {
		res.Errors = []domain.FieldError{}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.IsValid {
		return fmt.Errorf("%w: %d error(s)", errDraftInvalid, len(res.Errors))
	}
	return nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
