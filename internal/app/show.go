package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"attack-tracker/internal/storage"
)

// Show prints the most recent attacks.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show attacks")
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, total, err := store.ListAttacks(ctx, storage.AttackFilter{Limit: opts.Limit})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no attacks found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tProtocol\tType\tLoss (USD)\tChain\tSource")

	for _, rec := range records {
		blockchain := ""
		if rec.Blockchain != nil {
			blockchain = *rec.Blockchain
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.AttackDate.Format("2006-01-02"),
			sanitizeInline(rec.ProtocolName),
			rec.AttackType,
			rec.LossAmountUSD.StringFixed(2),
			blockchain,
			rec.DataSource,
		)
	}

	writer.Flush()
	fmt.Fprintf(os.Stdout, "showing %d of %d attacks\n", len(records), total)
	return nil
}

// Status prints the outcome of the most recent refresh attempt.
func (a *App) Status(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot read refresh status")
	}
	if closeStore != nil {
		defer closeStore()
	}

	refresher := a.newRefresher(nil, store)
	status, err := refresher.LastStatus(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "status: %s\n", status.Status)
	if status.LastRefresh != nil {
		fmt.Fprintf(os.Stdout, "last refresh: %s\n", status.LastRefresh.UTC().Format(time.RFC3339))
	}
	if status.RecordsFetched != nil {
		fmt.Fprintf(os.Stdout, "records fetched: %d\n", *status.RecordsFetched)
	}
	if status.NextScheduledRefresh != nil {
		fmt.Fprintf(os.Stdout, "next scheduled refresh: %s\n", status.NextScheduledRefresh.UTC().Format(time.RFC3339))
	}
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
