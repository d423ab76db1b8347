package query

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attack-tracker/internal/storage"
)

var testNow = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func record(name, attackType string, date time.Time, loss int64) storage.AttackRecord {
	return storage.AttackRecord{
		ProtocolName:  name,
		AttackType:    attackType,
		AttackDate:    date,
		LossAmountUSD: decimal.NewFromInt(loss),
	}
}

func TestSummarize(t *testing.T) {
	records := []storage.AttackRecord{
		record("Euler", "flash loan", testNow.AddDate(0, 0, -5), 100),
		record("Euler", "exploit", testNow.AddDate(0, 0, -40), 200),
		record("Nomad", "exploit", testNow.AddDate(0, 0, -10), 300),
	}

	stats := Summarize(records, testNow)
	assert.Equal(t, 3, stats.TotalAttacks)
	assert.Equal(t, "600", stats.TotalLossesUSD.String())
	assert.Equal(t, 2, stats.AttacksLast30Days)
	assert.Equal(t, "400", stats.LossesLast30Days.String())
	assert.Equal(t, "200", stats.AverageLossPerAttack.String())
	require.NotNil(t, stats.MostTargetedProtocol)
	assert.Equal(t, "Euler", *stats.MostTargetedProtocol)
	require.NotNil(t, stats.MostCommonAttackType)
	assert.Equal(t, "exploit", *stats.MostCommonAttackType)
}

func TestSummarizeTieBreaksOnEncounterOrder(t *testing.T) {
	records := []storage.AttackRecord{
		record("Beta", "exploit", testNow, 1),
		record("Alpha", "rug pull", testNow, 1),
	}

	stats := Summarize(records, testNow)
	require.NotNil(t, stats.MostTargetedProtocol)
	assert.Equal(t, "Beta", *stats.MostTargetedProtocol, "first value to reach the maximum count wins")
}

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil, testNow)
	assert.Equal(t, 0, stats.TotalAttacks)
	assert.True(t, stats.TotalLossesUSD.IsZero())
	assert.True(t, stats.AverageLossPerAttack.IsZero())
	assert.Nil(t, stats.MostTargetedProtocol)
	assert.Nil(t, stats.MostCommonAttackType)
}

func TestTimelineByDay(t *testing.T) {
	records := []storage.AttackRecord{
		record("A", "exploit", time.Date(2023, 3, 2, 0, 0, 0, 0, time.UTC), 10),
		record("B", "exploit", time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), 20),
		record("C", "exploit", time.Date(2023, 3, 2, 0, 0, 0, 0, time.UTC), 30),
	}

	timeline := Timeline(records, "day")
	require.Len(t, timeline, 2)
	assert.Equal(t, "2023-03-01", timeline[0].Period)
	assert.Equal(t, 1, timeline[0].AttackCount)
	assert.Equal(t, "2023-03-02", timeline[1].Period)
	assert.Equal(t, 2, timeline[1].AttackCount)
	assert.Equal(t, "40", timeline[1].TotalLossUSD.String())
}

func TestTimelineWeekCollapsesToMonth(t *testing.T) {
	records := []storage.AttackRecord{
		record("A", "exploit", time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), 10),
		record("B", "exploit", time.Date(2023, 3, 28, 0, 0, 0, 0, time.UTC), 20),
		record("C", "exploit", time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC), 30),
	}

	week := Timeline(records, "week")
	month := Timeline(records, "month")
	assert.Equal(t, month, week, "week buckets share the month key")
	require.Len(t, month, 2)
	assert.Equal(t, "2023-03", month[0].Period)
	assert.Equal(t, "2023-04", month[1].Period)
}

func TestBreakdownByProtocol(t *testing.T) {
	date := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []storage.AttackRecord{
		record("Euler", "exploit", date, 25),
		record("Nomad", "exploit", date, 50),
		record("Euler", "exploit", date.AddDate(0, 0, 1), 25),
	}

	breakdown := BreakdownByProtocol(records)
	require.Len(t, breakdown, 2)

	assert.Equal(t, "Nomad", breakdown[0].ProtocolName, "sorted descending by total loss")
	assert.Equal(t, "50", breakdown[0].TotalLossUSD.String())
	assert.Equal(t, "50", breakdown[0].Percentage.String())

	assert.Equal(t, "Euler", breakdown[1].ProtocolName)
	assert.Equal(t, 2, breakdown[1].AttackCount)
	assert.Equal(t, "50", breakdown[1].Percentage.String())

	sum := decimal.Zero
	for _, b := range breakdown {
		sum = sum.Add(b.Percentage)
	}
	assert.Equal(t, "100", sum.String(), "percentages should sum to 100")
}

func TestBreakdownByType(t *testing.T) {
	date := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []storage.AttackRecord{
		record("A", "flash loan", date, 75),
		record("B", "rug pull", date, 25),
	}

	breakdown := BreakdownByType(records)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "flash loan", breakdown[0].AttackType)
	assert.Equal(t, "75", breakdown[0].Percentage.String())
	assert.Equal(t, "rug pull", breakdown[1].AttackType)
	assert.Equal(t, "25", breakdown[1].Percentage.String())
}

func TestBreakdownEmpty(t *testing.T) {
	assert.Empty(t, BreakdownByProtocol(nil))
	assert.Empty(t, BreakdownByType(nil))
}

func TestTopAttacks(t *testing.T) {
	date := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []storage.AttackRecord{
		record("Mid", "exploit", date, 50),
		record("Big", "exploit", date, 100),
		record("Small", "exploit", date, 10),
	}

	top := TopAttacks(records, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "Big", top[0].ProtocolName)
	assert.Equal(t, "Mid", top[1].ProtocolName)

	assert.Len(t, TopAttacks(records, 10), 3, "n larger than the set returns everything")
	assert.Empty(t, TopAttacks(records, 0))
	assert.Equal(t, "Mid", records[0].ProtocolName, "input slice must not be reordered")
}
