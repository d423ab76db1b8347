package processor

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"attack-tracker/internal/fetcher"
	"attack-tracker/internal/storage"
)

// Clean normalises raw candidates into canonical attack records. Steps run
// in a fixed order:
//  1. deduplicate by (protocol_name, attack_date), first occurrence wins
//     (adapter fetch order defines precedence);
//  2. drop rows missing protocol name or attack date;
//  3. drop rows with non-positive loss amounts;
//  4. standardise text fields (trim name, lower-case type, default
//     "exploit", default empty description);
//  5. drop rows dated strictly after today.
func Clean(candidates []fetcher.Candidate, now time.Time) []storage.AttackRecord {
	today := fetcher.DateOnly(now)
	seen := make(map[string]struct{}, len(candidates))
	cleaned := make([]storage.AttackRecord, 0, len(candidates))

	for _, c := range candidates {
		name := strings.TrimSpace(c.ProtocolName)
		if name == "" || c.AttackDate.IsZero() {
			continue
		}

		key := compositeKey(name, c.AttackDate)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if !c.LossAmountUSD.IsPositive() {
			continue
		}

		attackType := strings.ToLower(strings.TrimSpace(c.AttackType))
		if attackType == "" {
			attackType = "exploit"
		}

		date := fetcher.DateOnly(c.AttackDate)
		if date.After(today) {
			continue
		}

		cleaned = append(cleaned, storage.AttackRecord{
			ProtocolName:  name,
			AttackDate:    date,
			AttackType:    attackType,
			LossAmountUSD: c.LossAmountUSD,
			Description:   c.Description,
			SourceURL:     c.SourceURL,
			Blockchain:    c.Blockchain,
			DataSource:    c.DataSource,
		})
	}

	return cleaned
}

// PrepareForInsert stamps records for persistence: updated_at is set to the
// processing time and an absent data source falls back to "unknown".
func PrepareForInsert(records []storage.AttackRecord, now time.Time) []storage.AttackRecord {
	prepared := make([]storage.AttackRecord, len(records))
	for i, rec := range records {
		if strings.TrimSpace(rec.DataSource) == "" {
			rec.DataSource = "unknown"
		}
		rec.UpdatedAt = now
		prepared[i] = rec
	}
	return prepared
}

// DetectDuplicates returns only the new records whose composite key is
// absent from the existing set. This is the stronger dedup mode for stores
// without idempotent upsert; keys compare case-insensitively.
func DetectDuplicates(newRecords, existing []storage.AttackRecord) []storage.AttackRecord {
	if len(existing) == 0 {
		return newRecords
	}

	known := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		known[compositeKey(rec.ProtocolName, rec.AttackDate)] = struct{}{}
	}

	unique := make([]storage.AttackRecord, 0, len(newRecords))
	for _, rec := range newRecords {
		if _, dup := known[compositeKey(rec.ProtocolName, rec.AttackDate)]; dup {
			continue
		}
		unique = append(unique, rec)
	}
	return unique
}

// Stats summarises loss amounts over a record set.
type Stats struct {
	TotalAttacks int
	TotalLosses  decimal.Decimal
	AverageLoss  decimal.Decimal
	MedianLoss   decimal.Decimal
	MinLoss      decimal.Decimal
	MaxLoss      decimal.Decimal
}

// Statistics computes aggregate loss statistics over a record set.
func Statistics(records []storage.AttackRecord) Stats {
	if len(records) == 0 {
		return Stats{}
	}

	losses := make([]decimal.Decimal, len(records))
	total := decimal.Zero
	for i, rec := range records {
		losses[i] = rec.LossAmountUSD
		total = total.Add(rec.LossAmountUSD)
	}

	sort.Slice(losses, func(i, j int) bool { return losses[i].LessThan(losses[j]) })

	count := decimal.NewFromInt(int64(len(records)))
	median := losses[len(losses)/2]
	if len(losses)%2 == 0 {
		median = losses[len(losses)/2-1].Add(losses[len(losses)/2]).Div(decimal.NewFromInt(2))
	}

	return Stats{
		TotalAttacks: len(records),
		TotalLosses:  total,
		AverageLoss:  total.Div(count),
		MedianLoss:   median,
		MinLoss:      losses[0],
		MaxLoss:      losses[len(losses)-1],
	}
}

func compositeKey(name string, date time.Time) string {
	return strings.ToLower(strings.TrimSpace(name)) + "_" + date.Format("2006-01-02")
}
