package fetcher

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CSVFile imports curated attack datasets from a local CSV file. Expected
// columns: protocol, date, attack_type, loss_amount_usd, chain,
// source_links.
type CSVFile struct {
	path   string
	logger zerolog.Logger
}

// NewCSVFile constructs a CSV import adapter.
func NewCSVFile(path string, logger zerolog.Logger) *CSVFile {
	return &CSVFile{
		path:   path,
		logger: logger.With().Str("component", "csv_adapter").Logger(),
	}
}

// Name identifies the adapter for provenance tagging.
func (c *CSVFile) Name() string { return "csv_import" }

// Fetch reads and parses the file. Unlike the network adapters, curated
// rows with a bad date or amount are skipped rather than defaulted; the
// file is expected to be well-formed and a silent "today" would corrupt it.
func (c *CSVFile) Fetch(ctx context.Context) ([]Candidate, error) {
	file, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"protocol", "date", "loss_amount_usd"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("csv missing required column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	attacks := make([]Candidate, 0)
	line := 1
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			c.logger.Warn().Err(err).Int("line", line).Msg("skipping malformed csv row")
			continue
		}

		attackDate, err := time.Parse("2006-01-02", field(row, "date"))
		if err != nil {
			c.logger.Warn().Err(err).Int("line", line).Msg("skipping row with bad date")
			continue
		}

		loss, err := decimal.NewFromString(field(row, "loss_amount_usd"))
		if err != nil {
			c.logger.Warn().Err(err).Int("line", line).Msg("skipping row with bad loss amount")
			continue
		}

		protocol := field(row, "protocol")
		attackType := field(row, "attack_type")
		if attackType == "" {
			attackType = "exploit"
		}

		var sourceURL *string
		if links := field(row, "source_links"); links != "" {
			first := strings.TrimSpace(strings.Split(links, ",")[0])
			if first != "" {
				sourceURL = &first
			}
		}

		attacks = append(attacks, Candidate{
			ProtocolName:  protocol,
			AttackDate:    DateOnly(attackDate),
			AttackType:    attackType,
			LossAmountUSD: loss,
			Description:   fmt.Sprintf("%s on %s", attackType, protocol),
			SourceURL:     sourceURL,
			Blockchain:    optional(field(row, "chain")),
			DataSource:    c.Name(),
		})
	}

	return attacks, nil
}

var _ Adapter = (*CSVFile)(nil)
