package app

import (
	"context"
)

// Refresh runs a single refresh job against all configured sources.
func (a *App) Refresh(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; refresh will not persist")
	}
	if closeStore != nil {
		defer closeStore()
	}

	refresher := a.newRefresher(a.newAdapters(), store)

	result, err := refresher.Run(ctx)
	if err != nil {
		return err
	}

	event := a.Logger.Info().
		Str("status", result.Status).
		Int("records_fetched", result.RecordsFetched).
		Int("records_inserted", result.RecordsInserted)
	if result.JobID != nil {
		event = event.Str("job_id", result.JobID.String())
	}
	event.Msg("refresh finished")
	return nil
}
