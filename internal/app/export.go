package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"attack-tracker/internal/query"
	"attack-tracker/internal/storage"
)

// Export writes persisted attacks as CSV and/or a monthly loss timeline
// as a PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxRows = a.Config.ResolveMaxRows(opts.MaxRows)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	filter := storage.AttackFilter{
		StartDate: opts.From,
		EndDate:   opts.To,
		Limit:     opts.MaxRows,
	}
	records, total, err := store.ListAttacks(ctx, filter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Msg("no attacks found for export window")
		return nil
	}

	a.Logger.Info().Int("total", total).Int("exported", len(records)).Msg("exporting attacks")

	if opts.CSVPath != "" {
		if err := writeAttacksCSV(opts.CSVPath, records); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeTimelinePNG(opts.PNGPath, records); err != nil {
			return err
		}
	}

	return nil
}

func writeAttacksCSV(path string, records []storage.AttackRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"protocol_name", "attack_date", "attack_type", "loss_amount_usd", "description", "source_url", "blockchain", "data_source"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		sourceURL := ""
		if rec.SourceURL != nil {
			sourceURL = *rec.SourceURL
		}
		blockchain := ""
		if rec.Blockchain != nil {
			blockchain = *rec.Blockchain
		}
		row := []string{
			rec.ProtocolName,
			rec.AttackDate.Format("2006-01-02"),
			rec.AttackType,
			rec.LossAmountUSD.String(),
			rec.Description,
			sourceURL,
			blockchain,
			rec.DataSource,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeTimelinePNG(path string, records []storage.AttackRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	timeline := query.Timeline(records, "month")
	if len(timeline) < 2 {
		return errors.New("need at least two timeline buckets to render a chart")
	}

	x := make([]time.Time, len(timeline))
	losses := make([]float64, len(timeline))
	counts := make([]float64, len(timeline))
	for i, point := range timeline {
		month, err := time.Parse("2006-01", point.Period)
		if err != nil {
			return err
		}
		x[i] = month
		losses[i] = point.TotalLossUSD.InexactFloat64()
		counts[i] = float64(point.AttackCount)
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01"),
		},
		YAxis: chart.YAxis{
			Name: "Loss (USD)",
		},
		YAxisSecondary: chart.YAxis{
			Name: "Attacks",
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Total loss",
				XValues: x,
				YValues: losses,
			},
			chart.TimeSeries{
				Name:    "Attack count",
				XValues: x,
				YValues: counts,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
