package query

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"attack-tracker/internal/storage"
)

var hundred = decimal.NewFromInt(100)

// SummaryStats aggregates the whole record set.
type SummaryStats struct {
	TotalAttacks         int             `json:"total_attacks"`
	TotalLossesUSD       decimal.Decimal `json:"total_losses_usd"`
	AttacksLast30Days    int             `json:"attacks_last_30_days"`
	LossesLast30Days     decimal.Decimal `json:"losses_last_30_days"`
	AverageLossPerAttack decimal.Decimal `json:"average_loss_per_attack"`
	MostTargetedProtocol *string         `json:"most_targeted_protocol"`
	MostCommonAttackType *string         `json:"most_common_attack_type"`
}

// TimelinePoint is one period bucket of the timeline.
type TimelinePoint struct {
	Period       string          `json:"period"`
	AttackCount  int             `json:"attack_count"`
	TotalLossUSD decimal.Decimal `json:"total_loss_usd"`
}

// ProtocolBreakdown is one protocol's share of total losses.
type ProtocolBreakdown struct {
	ProtocolName string          `json:"protocol_name"`
	AttackCount  int             `json:"attack_count"`
	TotalLossUSD decimal.Decimal `json:"total_loss_usd"`
	Percentage   decimal.Decimal `json:"percentage"`
}

// TypeBreakdown is one attack type's share of total losses.
type TypeBreakdown struct {
	AttackType   string          `json:"attack_type"`
	AttackCount  int             `json:"attack_count"`
	TotalLossUSD decimal.Decimal `json:"total_loss_usd"`
	Percentage   decimal.Decimal `json:"percentage"`
}

// Summarize computes summary statistics over the full record set. Ties for
// "most frequent" break on encounter order: the first maximum wins.
func Summarize(records []storage.AttackRecord, now time.Time) SummaryStats {
	stats := SummaryStats{
		TotalLossesUSD:       decimal.Zero,
		LossesLast30Days:     decimal.Zero,
		AverageLossPerAttack: decimal.Zero,
	}
	if len(records) == 0 {
		return stats
	}

	cutoff := now.AddDate(0, 0, -30)
	protocolCounts := make(map[string]int)
	typeCounts := make(map[string]int)

	for _, rec := range records {
		stats.TotalAttacks++
		stats.TotalLossesUSD = stats.TotalLossesUSD.Add(rec.LossAmountUSD)

		if !rec.AttackDate.Before(cutoff) {
			stats.AttacksLast30Days++
			stats.LossesLast30Days = stats.LossesLast30Days.Add(rec.LossAmountUSD)
		}

		protocolCounts[rec.ProtocolName]++
		typeCounts[rec.AttackType]++
	}

	stats.AverageLossPerAttack = stats.TotalLossesUSD.Div(decimal.NewFromInt(int64(stats.TotalAttacks)))
	stats.MostTargetedProtocol = mostFrequent(records, func(rec storage.AttackRecord) string { return rec.ProtocolName }, protocolCounts)
	stats.MostCommonAttackType = mostFrequent(records, func(rec storage.AttackRecord) string { return rec.AttackType }, typeCounts)
	return stats
}

// mostFrequent scans in record order so that the first value to reach the
// maximum count wins; this tie-break is deliberate.
func mostFrequent(records []storage.AttackRecord, keyOf func(storage.AttackRecord) string, counts map[string]int) *string {
	var best *string
	bestCount := 0
	seen := make(map[string]struct{}, len(counts))
	for _, rec := range records {
		key := keyOf(rec)
		if _, done := seen[key]; done {
			continue
		}
		seen[key] = struct{}{}
		if counts[key] > bestCount {
			bestCount = counts[key]
			value := key
			best = &value
		}
	}
	return best
}

// Timeline groups records into period buckets, summing counts and losses,
// sorted ascending by period key. Month buckets use the YYYY-MM prefix;
// day buckets use the full date. The "week" granularity intentionally
// collapses to the month key: the upstream system shipped that behaviour
// and dashboards depend on the keys it emits.
func Timeline(records []storage.AttackRecord, granularity string) []TimelinePoint {
	buckets := make(map[string]*TimelinePoint)
	for _, rec := range records {
		period := periodKey(rec.AttackDate, granularity)
		point, ok := buckets[period]
		if !ok {
			point = &TimelinePoint{Period: period, TotalLossUSD: decimal.Zero}
			buckets[period] = point
		}
		point.AttackCount++
		point.TotalLossUSD = point.TotalLossUSD.Add(rec.LossAmountUSD)
	}

	timeline := make([]TimelinePoint, 0, len(buckets))
	for _, point := range buckets {
		timeline = append(timeline, *point)
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Period < timeline[j].Period })
	return timeline
}

func periodKey(date time.Time, granularity string) string {
	switch granularity {
	case "day":
		return date.Format("2006-01-02")
	case "week", "month":
		return date.Format("2006-01")
	default:
		return date.Format("2006-01")
	}
}

// BreakdownByProtocol groups losses per protocol with each group's share of
// the total, sorted descending by total loss.
func BreakdownByProtocol(records []storage.AttackRecord) []ProtocolBreakdown {
	groups, order, total := groupLosses(records, func(rec storage.AttackRecord) string { return rec.ProtocolName })

	breakdown := make([]ProtocolBreakdown, 0, len(order))
	for _, name := range order {
		g := groups[name]
		breakdown = append(breakdown, ProtocolBreakdown{
			ProtocolName: name,
			AttackCount:  g.count,
			TotalLossUSD: g.loss,
			Percentage:   percentage(g.loss, total),
		})
	}
	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].TotalLossUSD.GreaterThan(breakdown[j].TotalLossUSD)
	})
	return breakdown
}

// BreakdownByType groups losses per attack type with each group's share of
// the total, sorted descending by total loss.
func BreakdownByType(records []storage.AttackRecord) []TypeBreakdown {
	groups, order, total := groupLosses(records, func(rec storage.AttackRecord) string { return rec.AttackType })

	breakdown := make([]TypeBreakdown, 0, len(order))
	for _, name := range order {
		g := groups[name]
		breakdown = append(breakdown, TypeBreakdown{
			AttackType:   name,
			AttackCount:  g.count,
			TotalLossUSD: g.loss,
			Percentage:   percentage(g.loss, total),
		})
	}
	sort.SliceStable(breakdown, func(i, j int) bool {
		return breakdown[i].TotalLossUSD.GreaterThan(breakdown[j].TotalLossUSD)
	})
	return breakdown
}

type lossGroup struct {
	count int
	loss  decimal.Decimal
}

func groupLosses(records []storage.AttackRecord, keyOf func(storage.AttackRecord) string) (map[string]*lossGroup, []string, decimal.Decimal) {
	groups := make(map[string]*lossGroup)
	order := make([]string, 0)
	total := decimal.Zero

	for _, rec := range records {
		key := keyOf(rec)
		g, ok := groups[key]
		if !ok {
			g = &lossGroup{loss: decimal.Zero}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
		g.loss = g.loss.Add(rec.LossAmountUSD)
		total = total.Add(rec.LossAmountUSD)
	}
	return groups, order, total
}

func percentage(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred).Round(2)
}

// TopAttacks returns the n largest attacks by loss amount, descending.
func TopAttacks(records []storage.AttackRecord, n int) []storage.AttackRecord {
	if n <= 0 {
		return []storage.AttackRecord{}
	}

	sorted := make([]storage.AttackRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LossAmountUSD.GreaterThan(sorted[j].LossAmountUSD)
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
