package query

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attack-tracker/internal/storage"
)

type fakeReader struct {
	records []storage.AttackRecord
	err     error
}

func (f *fakeReader) ListAttacks(ctx context.Context, filter storage.AttackFilter) ([]storage.AttackRecord, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.records, len(f.records), nil
}

func (f *fakeReader) ListAllAttacks(ctx context.Context) ([]storage.AttackRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func TestGatewayServesAggregates(t *testing.T) {
	date := testNow.AddDate(0, 0, -1)
	reader := &fakeReader{records: []storage.AttackRecord{
		record("Euler", "flash loan", date, 100),
		record("Nomad", "exploit", date, 300),
	}}
	gw := NewGateway(reader, zerolog.Nop())

	stats, err := gw.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalAttacks)

	top, err := gw.Top(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Nomad", top[0].ProtocolName)

	attacks, total, err := gw.Attacks(context.Background(), storage.AttackFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, attacks, 2)
}

func TestGatewayDegradesWhenStoreUnconfigured(t *testing.T) {
	reader := &fakeReader{err: storage.ErrNotConfigured}
	gw := NewGateway(reader, zerolog.Nop())

	attacks, total, err := gw.Attacks(context.Background(), storage.AttackFilter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, attacks)
	assert.Zero(t, total)

	stats, err := gw.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalAttacks)

	timeline, err := gw.Timeline(context.Background(), "month", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, timeline)
}

func TestGatewayPropagatesRealErrors(t *testing.T) {
	boom := errors.New("connection reset")
	gw := NewGateway(&fakeReader{err: boom}, zerolog.Nop())

	_, _, err := gw.Attacks(context.Background(), storage.AttackFilter{Limit: 10})
	assert.ErrorIs(t, err, boom)

	_, err = gw.Summary(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestGatewayTimelineDateFilter(t *testing.T) {
	march := record("A", "exploit", testNow.AddDate(0, -3, 0), 10)
	june := record("B", "exploit", testNow, 20)
	gw := NewGateway(&fakeReader{records: []storage.AttackRecord{march, june}}, zerolog.Nop())

	start := testNow.AddDate(0, -1, 0)
	timeline, err := gw.Timeline(context.Background(), "month", &start, nil)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Equal(t, 1, timeline[0].AttackCount)
}
