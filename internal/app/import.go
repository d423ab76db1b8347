package app

import (
	"context"
	"errors"

	"attack-tracker/internal/fetcher"
)

// Import loads a curated CSV dataset through the same clean/upsert pipeline
// as a network refresh; rows land with data_source "csv_import".
func (a *App) Import(ctx context.Context, csvPath string) error {
	if csvPath == "" {
		return errors.New("csv path is required")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn not configured; cannot import")
	}
	if closeStore != nil {
		defer closeStore()
	}

	adapter := fetcher.NewCSVFile(csvPath, a.Logger)
	refresher := a.newRefresher([]fetcher.Adapter{adapter}, store)

	result, err := refresher.Run(ctx)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Str("path", csvPath).
		Int("records_parsed", result.RecordsFetched).
		Int("records_inserted", result.RecordsInserted).
		Msg("csv import finished")
	return nil
}
