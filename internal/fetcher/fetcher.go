package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Candidate is an unvalidated attack record straight from a source adapter.
type Candidate struct {
	ProtocolName  string
	AttackDate    time.Time
	AttackType    string
	LossAmountUSD decimal.Decimal
	Description   string
	SourceURL     *string
	Blockchain    *string
	DataSource    string
}

// Adapter fetches raw candidate records from one external source.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]Candidate, error)
}

// SourceError records a recovered per-source fetch failure.
type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string {
	return e.Source + ": " + e.Err.Error()
}

func (e SourceError) Unwrap() error {
	return e.Err
}

// FetchAll runs every adapter concurrently and combines their results in
// adapter registration order. A failing adapter contributes an empty slice
// and a SourceError; it never aborts the other sources.
func FetchAll(ctx context.Context, adapters []Adapter, logger zerolog.Logger) ([]Candidate, []SourceError) {
	results := make([][]Candidate, len(adapters))
	failures := make([]*SourceError, len(adapters))

	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, adapter Adapter) {
			defer wg.Done()
			records, err := adapter.Fetch(ctx)
			if err != nil {
				failures[i] = &SourceError{Source: adapter.Name(), Err: err}
				return
			}
			results[i] = records
		}(i, adapter)
	}
	wg.Wait()

	var combined []Candidate
	var errs []SourceError
	for i := range adapters {
		if failures[i] != nil {
			logger.Warn().Str("source", failures[i].Source).Err(failures[i].Err).Msg("source fetch failed; continuing without it")
			errs = append(errs, *failures[i])
			continue
		}
		combined = append(combined, results[i]...)
	}
	return combined, errs
}
