package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	spg "example.com/legacyfund/internal/storage/postgres"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Exchange rate maintenance",
}

var ratesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the latest rates over HTTP and store them in Postgres",
	RunE:  runRatesSync,
}

func init() {
	ratesCmd.AddCommand(ratesSyncCmd)
}

func runRatesSync(cmd *cobra.Command, args []string) error {
	if cfg.RatesURL == "" {
		return errors.New("rates sync: RATES_URL is not set")
	}
	ctx := cmd.Context()

	provider, err := httpRates()
	if err != nil {
		return err
	}
	snap, err := provider.Fetch(ctx)
	if err != nil {
		return err
	}

	db, err := spg.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.RunMigration(ctx, cfg.MigrationPath); err != nil {
		return err
	}
	if err := spg.NewRatesTable(db).Save(ctx, snap); err != nil {
		return err
	}
	logger.Info("rates stored",
		zap.Time("date", snap.Date),
		zap.Float64("mxn", snap.MXNRate),
		zap.Float64("cop", snap.COPRate),
		zap.Float64("clp", snap.CLPRate))
	return nil
}
