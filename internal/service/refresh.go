package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"attack-tracker/internal/fetcher"
	"attack-tracker/internal/metrics"
	"attack-tracker/internal/processor"
	"attack-tracker/internal/storage"
)

// ErrNoData marks a refresh where every source came back empty.
var ErrNoData = errors.New("no data fetched from sources")

// Result reports the outcome of one refresh run.
type Result struct {
	JobID           *uuid.UUID `json:"job_id"`
	Status          string     `json:"status"`
	RecordsFetched  int        `json:"records_fetched"`
	RecordsInserted int        `json:"records_inserted"`
}

// Status summarises the most recent refresh attempt.
type Status struct {
	LastRefresh          *time.Time `json:"last_refresh"`
	Status               string     `json:"status"`
	RecordsFetched       *int       `json:"records_fetched"`
	NextScheduledRefresh *time.Time `json:"next_scheduled_refresh,omitempty"`
}

// Refresher orchestrates one refresh run: adapters -> cleaner -> upsert,
// with a refresh-log row opened at start and closed exactly once at the
// end. Nil stores put the pipeline into a degraded no-persistence mode.
type Refresher struct {
	adapters []fetcher.Adapter
	attacks  storage.AttackStore
	logs     storage.RefreshLogStore
	interval time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRefresher constructs the refresh job controller.
func NewRefresher(adapters []fetcher.Adapter, attacks storage.AttackStore, logs storage.RefreshLogStore, interval time.Duration, logger zerolog.Logger) *Refresher {
	return &Refresher{
		adapters: adapters,
		attacks:  attacks,
		logs:     logs,
		interval: interval,
		logger:   logger.With().Str("component", "refresh").Logger(),
		now:      time.Now,
	}
}

// Run executes a single refresh. Terminal states are completed and failed;
// a failed run still records its outcome before the error is returned.
func (r *Refresher) Run(ctx context.Context) (Result, error) {
	startedAt := r.now()

	var jobID *uuid.UUID
	if r.logs != nil {
		jobLog, err := r.logs.InsertRefreshLog(ctx, startedAt)
		if err != nil {
			// The run proceeds without an audit row; losing the refresh
			// beats losing the data.
			r.logger.Warn().Err(err).Msg("failed to open refresh log")
		} else {
			id := jobLog.ID
			jobID = &id
		}
	} else {
		r.logger.Warn().Msg("no store configured; refresh runs without persistence")
	}

	candidates, sourceErrs := fetcher.FetchAll(ctx, r.adapters, r.logger)
	for _, srcErr := range sourceErrs {
		metrics.SourceFetchFailures.WithLabelValues(srcErr.Source).Inc()
	}
	fetched := len(candidates)
	metrics.RecordsFetched.Add(float64(fetched))

	if fetched == 0 {
		r.finish(ctx, jobID, storage.RefreshStatusFailed, nil, nil, ErrNoData.Error())
		metrics.RefreshRuns.WithLabelValues(storage.RefreshStatusFailed).Inc()
		return Result{JobID: jobID, Status: storage.RefreshStatusFailed}, ErrNoData
	}

	cleaned := processor.Clean(candidates, r.now())
	prepared := processor.PrepareForInsert(cleaned, r.now())

	inserted := 0
	if r.attacks != nil {
		count, err := r.attacks.UpsertAttacks(ctx, prepared)
		if err != nil {
			r.finish(ctx, jobID, storage.RefreshStatusFailed, &fetched, nil, err.Error())
			metrics.RefreshRuns.WithLabelValues(storage.RefreshStatusFailed).Inc()
			return Result{JobID: jobID, Status: storage.RefreshStatusFailed, RecordsFetched: fetched},
				fmt.Errorf("persist attacks: %w", err)
		}
		inserted = count
	}
	metrics.RecordsInserted.Add(float64(inserted))

	r.finish(ctx, jobID, storage.RefreshStatusCompleted, &fetched, &inserted, "")
	metrics.RefreshRuns.WithLabelValues(storage.RefreshStatusCompleted).Inc()

	r.logger.Info().
		Int("records_fetched", fetched).
		Int("records_cleaned", len(prepared)).
		Int("records_inserted", inserted).
		Int("source_failures", len(sourceErrs)).
		Msg("refresh completed")

	return Result{
		JobID:           jobID,
		Status:          storage.RefreshStatusCompleted,
		RecordsFetched:  fetched,
		RecordsInserted: inserted,
	}, nil
}

func (r *Refresher) finish(ctx context.Context, jobID *uuid.UUID, status string, fetched, inserted *int, errMsg string) {
	if r.logs == nil || jobID == nil {
		return
	}

	var msg *string
	if errMsg != "" {
		msg = &errMsg
	}
	if err := r.logs.FinishRefreshLog(ctx, *jobID, status, fetched, inserted, msg, r.now()); err != nil {
		r.logger.Error().Err(err).Str("status", status).Msg("failed to close refresh log")
	}
}

// LastStatus reports the most recent refresh attempt, with the next
// scheduled run derived from the configured interval.
func (r *Refresher) LastStatus(ctx context.Context) (Status, error) {
	if r.logs == nil {
		return Status{Status: storage.RefreshStatusNeverRun}, nil
	}

	last, err := r.logs.LastRefreshLog(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return Status{Status: storage.RefreshStatusNeverRun}, nil
		}
		return Status{}, err
	}
	if last == nil {
		return Status{Status: storage.RefreshStatusNeverRun}, nil
	}

	status := Status{
		Status:         last.Status,
		RecordsFetched: last.RecordsFetched,
		LastRefresh:    last.CompletedAt,
	}
	if last.CompletedAt != nil && r.interval > 0 {
		next := last.CompletedAt.Add(r.interval)
		status.NextScheduledRefresh = &next
	}
	return status, nil
}
