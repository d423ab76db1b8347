package query

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"attack-tracker/internal/storage"
)

// Gateway binds the pure aggregation functions to persisted records. Every
// read recomputes from a full or filtered scan; there are no materialised
// views. An unconfigured store degrades every read to the empty result so
// the API keeps serving during local testing.
type Gateway struct {
	reader storage.AttackReader
	logger zerolog.Logger
	now    func() time.Time
}

// NewGateway constructs a read gateway over the given store.
func NewGateway(reader storage.AttackReader, logger zerolog.Logger) *Gateway {
	return &Gateway{
		reader: reader,
		logger: logger.With().Str("component", "query_gateway").Logger(),
		now:    time.Now,
	}
}

// Attacks returns one filtered page of attacks plus the total count.
func (g *Gateway) Attacks(ctx context.Context, filter storage.AttackFilter) ([]storage.AttackRecord, int, error) {
	records, total, err := g.reader.ListAttacks(ctx, filter)
	if errors.Is(err, storage.ErrNotConfigured) {
		g.logger.Warn().Msg("store not configured; serving empty attack list")
		return []storage.AttackRecord{}, 0, nil
	}
	return records, total, err
}

// Summary recomputes summary statistics from a full scan.
func (g *Gateway) Summary(ctx context.Context) (SummaryStats, error) {
	records, err := g.scanAll(ctx)
	if err != nil {
		return SummaryStats{}, err
	}
	return Summarize(records, g.now()), nil
}

// Timeline recomputes period buckets from a filtered scan.
func (g *Gateway) Timeline(ctx context.Context, granularity string, start, end *time.Time) ([]TimelinePoint, error) {
	records, err := g.scanAll(ctx)
	if err != nil {
		return nil, err
	}
	return Timeline(filterByDate(records, start, end), granularity), nil
}

// ByProtocol recomputes the protocol breakdown from a full scan.
func (g *Gateway) ByProtocol(ctx context.Context) ([]ProtocolBreakdown, error) {
	records, err := g.scanAll(ctx)
	if err != nil {
		return nil, err
	}
	return BreakdownByProtocol(records), nil
}

// ByType recomputes the attack-type breakdown from a full scan.
func (g *Gateway) ByType(ctx context.Context) ([]TypeBreakdown, error) {
	records, err := g.scanAll(ctx)
	if err != nil {
		return nil, err
	}
	return BreakdownByType(records), nil
}

// Top returns the n largest attacks by loss amount.
func (g *Gateway) Top(ctx context.Context, n int) ([]storage.AttackRecord, error) {
	records, err := g.scanAll(ctx)
	if err != nil {
		return nil, err
	}
	return TopAttacks(records, n), nil
}

func (g *Gateway) scanAll(ctx context.Context) ([]storage.AttackRecord, error) {
	records, err := g.reader.ListAllAttacks(ctx)
	if errors.Is(err, storage.ErrNotConfigured) {
		g.logger.Warn().Msg("store not configured; serving empty aggregates")
		return []storage.AttackRecord{}, nil
	}
	return records, err
}

func filterByDate(records []storage.AttackRecord, start, end *time.Time) []storage.AttackRecord {
	if start == nil && end == nil {
		return records
	}
	filtered := make([]storage.AttackRecord, 0, len(records))
	for _, rec := range records {
		if start != nil && rec.AttackDate.Before(*start) {
			continue
		}
		if end != nil && rec.AttackDate.After(*end) {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}
