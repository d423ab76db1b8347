package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttackRecord is the canonical attack entity. (ProtocolName, AttackDate)
// is the natural key; no two stored rows may share it.
type AttackRecord struct {
	ID            int64
	ProtocolName  string
	AttackDate    time.Time
	AttackType    string
	LossAmountUSD decimal.Decimal
	Description   string
	SourceURL     *string
	Blockchain    *string
	DataSource    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Refresh job statuses.
const (
	RefreshStatusRunning   = "running"
	RefreshStatusCompleted = "completed"
	RefreshStatusFailed    = "failed"
	RefreshStatusNeverRun  = "never_run"
)

// RefreshLog is one row per refresh attempt. Created at job start with
// status running, updated exactly once at job end; never deleted.
type RefreshLog struct {
	ID              uuid.UUID
	Status          string
	RecordsFetched  *int
	RecordsInserted *int
	ErrorMessage    *string
	StartedAt       time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
}

// AttackFilter narrows ListAttacks results.
type AttackFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	Protocol   string
	AttackType string
	Limit      int
	Offset     int
}
