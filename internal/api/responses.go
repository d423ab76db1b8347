package api

import (
	"time"

	"github.com/shopspring/decimal"

	"attack-tracker/internal/storage"
)

// AttackView is the wire shape of one attack record.
type AttackView struct {
	ID            int64           `json:"id"`
	ProtocolName  string          `json:"protocol_name"`
	AttackDate    string          `json:"attack_date"`
	AttackType    string          `json:"attack_type"`
	LossAmountUSD decimal.Decimal `json:"loss_amount_usd"`
	Description   string          `json:"description"`
	SourceURL     *string         `json:"source_url"`
	Blockchain    *string         `json:"blockchain"`
	DataSource    string          `json:"data_source"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AttackListResponse wraps a filtered page of attacks.
type AttackListResponse struct {
	Data  []AttackView `json:"data"`
	Count int          `json:"count"`
}

// TimelineResponse wraps the timeline buckets.
type TimelineResponse struct {
	Timeline interface{} `json:"timeline"`
}

// ProtocolBreakdownResponse wraps the per-protocol breakdown.
type ProtocolBreakdownResponse struct {
	Protocols interface{} `json:"protocols"`
}

// TypeBreakdownResponse wraps the per-type breakdown.
type TypeBreakdownResponse struct {
	AttackTypes interface{} `json:"attack_types"`
}

// TopAttacksResponse wraps the top-N listing.
type TopAttacksResponse struct {
	TopAttacks []AttackView `json:"top_attacks"`
}

// RefreshResponse reports a triggered refresh.
type RefreshResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	JobID   *string `json:"job_id"`
}

// ErrorResponse carries a failure detail.
type ErrorResponse struct {
	Error string `json:"error"`
}

func toAttackView(rec storage.AttackRecord) AttackView {
	return AttackView{
		ID:            rec.ID,
		ProtocolName:  rec.ProtocolName,
		AttackDate:    rec.AttackDate.Format("2006-01-02"),
		AttackType:    rec.AttackType,
		LossAmountUSD: rec.LossAmountUSD,
		Description:   rec.Description,
		SourceURL:     rec.SourceURL,
		Blockchain:    rec.Blockchain,
		DataSource:    rec.DataSource,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func toAttackViews(records []storage.AttackRecord) []AttackView {
	views := make([]AttackView, len(records))
	for i, rec := range records {
		views[i] = toAttackView(rec)
	}
	return views
}
