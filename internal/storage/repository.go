package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertAttackSQL = `INSERT INTO attacks (
        protocol_name,
        attack_date,
        attack_type,
        loss_amount_usd,
        description,
        source_url,
        blockchain,
        data_source,
        updated_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    ON CONFLICT (protocol_name, attack_date) DO UPDATE
    SET
        attack_type     = EXCLUDED.attack_type,
        loss_amount_usd = EXCLUDED.loss_amount_usd,
        description     = EXCLUDED.description,
        source_url      = EXCLUDED.source_url,
        blockchain      = EXCLUDED.blockchain,
        data_source     = EXCLUDED.data_source,
        updated_at      = EXCLUDED.updated_at;`

	attackColumns = `id,
        protocol_name,
        attack_date,
        attack_type,
        loss_amount_usd,
        description,
        source_url,
        blockchain,
        data_source,
        created_at,
        updated_at`

	listAllAttacksSQL = `SELECT ` + attackColumns + ` FROM attacks ORDER BY attack_date;`

	insertRefreshLogSQL = `INSERT INTO refresh_logs (
        id,
        status,
        refresh_started_at
    ) VALUES (
        $1,$2,$3
    )
    RETURNING created_at;`

	finishRefreshLogSQL = `UPDATE refresh_logs
    SET status               = $2,
        records_fetched      = $3,
        records_inserted     = $4,
        error_message        = $5,
        refresh_completed_at = $6
    WHERE id = $1;`

	lastRefreshLogSQL = `SELECT
        id,
        status,
        records_fetched,
        records_inserted,
        error_message,
        refresh_started_at,
        refresh_completed_at,
        created_at
    FROM refresh_logs
    ORDER BY created_at DESC
    LIMIT 1;`
)

// AttackStore defines write operations for attack persistence.
type AttackStore interface {
	UpsertAttacks(ctx context.Context, records []AttackRecord) (int, error)
}

// AttackReader defines read operations consumed by the query gateway.
type AttackReader interface {
	ListAttacks(ctx context.Context, filter AttackFilter) ([]AttackRecord, int, error)
	ListAllAttacks(ctx context.Context) ([]AttackRecord, error)
}

// RefreshLogStore defines refresh-log auditing operations.
type RefreshLogStore interface {
	InsertRefreshLog(ctx context.Context, startedAt time.Time) (RefreshLog, error)
	FinishRefreshLog(ctx context.Context, id uuid.UUID, status string, fetched, inserted *int, errMsg *string, completedAt time.Time) error
	LastRefreshLog(ctx context.Context) (*RefreshLog, error)
}

// Store aggregates access to attacks and refresh logs.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertAttacks performs a bulk conflict-resolving write keyed on
// (protocol_name, attack_date). The whole batch runs inside one
// transaction: either every row lands and the record count is returned,
// or nothing is committed.
func (s *Store) UpsertAttacks(ctx context.Context, records []AttackRecord) (int, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range records {
		var sourceURL, blockchain interface{}
		if rec.SourceURL != nil {
			sourceURL = *rec.SourceURL
		}
		if rec.Blockchain != nil {
			blockchain = *rec.Blockchain
		}

		batch.Queue(upsertAttackSQL,
			rec.ProtocolName,
			rec.AttackDate,
			rec.AttackType,
			rec.LossAmountUSD.String(),
			rec.Description,
			sourceURL,
			blockchain,
			rec.DataSource,
			rec.UpdatedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range records {
		if _, execErr := results.Exec(); execErr != nil {
			results.Close()
			return 0, fmt.Errorf("upsert attacks: %w", execErr)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close upsert batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(records), nil
}

// ListAttacks returns one page of attacks matching the filter plus the
// total matching count.
func (s *Store) ListAttacks(ctx context.Context, filter AttackFilter) ([]AttackRecord, int, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, 0, err
	}

	where, args := buildAttackFilter(filter)

	var total int
	countSQL := "SELECT COUNT(*) FROM attacks" + where
	if err := pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attacks: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	pageSQL := fmt.Sprintf(
		"SELECT %s FROM attacks%s ORDER BY attack_date DESC LIMIT $%d OFFSET $%d",
		attackColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, filter.Offset)

	rows, queryErr := pool.Query(ctx, pageSQL, args...)
	if queryErr != nil {
		return nil, 0, fmt.Errorf("list attacks: %w", queryErr)
	}
	defer rows.Close()

	attacks := make([]AttackRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAttackRecord(rows)
		if scanErr != nil {
			return nil, 0, scanErr
		}
		attacks = append(attacks, rec)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return attacks, total, nil
}

// ListAllAttacks reads the full table for in-process aggregation.
func (s *Store) ListAllAttacks(ctx context.Context) ([]AttackRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAllAttacksSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list all attacks: %w", queryErr)
	}
	defer rows.Close()

	attacks := make([]AttackRecord, 0)
	for rows.Next() {
		rec, scanErr := scanAttackRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		attacks = append(attacks, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return attacks, nil
}

// InsertRefreshLog opens a refresh attempt with status running.
func (s *Store) InsertRefreshLog(ctx context.Context, startedAt time.Time) (RefreshLog, error) {
	pool, err := s.getPool()
	if err != nil {
		return RefreshLog{}, err
	}

	log := RefreshLog{
		ID:        uuid.New(),
		Status:    RefreshStatusRunning,
		StartedAt: startedAt,
	}
	if scanErr := pool.QueryRow(ctx, insertRefreshLogSQL, log.ID, log.Status, log.StartedAt).Scan(&log.CreatedAt); scanErr != nil {
		return RefreshLog{}, fmt.Errorf("insert refresh log: %w", scanErr)
	}
	return log, nil
}

// FinishRefreshLog updates the refresh attempt exactly once at job end.
func (s *Store) FinishRefreshLog(ctx context.Context, id uuid.UUID, status string, fetched, inserted *int, errMsg *string, completedAt time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var fetchedArg, insertedArg, errArg interface{}
	if fetched != nil {
		fetchedArg = *fetched
	}
	if inserted != nil {
		insertedArg = *inserted
	}
	if errMsg != nil {
		errArg = *errMsg
	}

	cmdTag, execErr := pool.Exec(ctx, finishRefreshLogSQL, id, status, fetchedArg, insertedArg, errArg, completedAt)
	if execErr != nil {
		return fmt.Errorf("finish refresh log: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// LastRefreshLog returns the most recent refresh attempt, or nil when no
// refresh has ever run.
func (s *Store) LastRefreshLog(ctx context.Context) (*RefreshLog, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var (
		log       RefreshLog
		fetched   sql.NullInt64
		inserted  sql.NullInt64
		errMsg    sql.NullString
		completed sql.NullTime
	)
	row := pool.QueryRow(ctx, lastRefreshLogSQL)
	if scanErr := row.Scan(
		&log.ID,
		&log.Status,
		&fetched,
		&inserted,
		&errMsg,
		&log.StartedAt,
		&completed,
		&log.CreatedAt,
	); scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last refresh log: %w", scanErr)
	}

	if fetched.Valid {
		value := int(fetched.Int64)
		log.RecordsFetched = &value
	}
	if inserted.Valid {
		value := int(inserted.Int64)
		log.RecordsInserted = &value
	}
	if errMsg.Valid {
		msg := errMsg.String
		log.ErrorMessage = &msg
	}
	if completed.Valid {
		ts := completed.Time
		log.CompletedAt = &ts
	}
	return &log, nil
}

func buildAttackFilter(filter AttackFilter) (string, []interface{}) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)

	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("attack_date >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("attack_date <= $%d", len(args)))
	}
	if filter.Protocol != "" {
		args = append(args, "%"+filter.Protocol+"%")
		conditions = append(conditions, fmt.Sprintf("protocol_name ILIKE $%d", len(args)))
	}
	if filter.AttackType != "" {
		args = append(args, filter.AttackType)
		conditions = append(conditions, fmt.Sprintf("attack_type = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanAttackRecord(rows pgx.Rows) (AttackRecord, error) {
	var (
		rec        AttackRecord
		lossStr    string
		sourceURL  sql.NullString
		blockchain sql.NullString
	)

	if err := rows.Scan(
		&rec.ID,
		&rec.ProtocolName,
		&rec.AttackDate,
		&rec.AttackType,
		&lossStr,
		&rec.Description,
		&sourceURL,
		&blockchain,
		&rec.DataSource,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return AttackRecord{}, err
	}

	loss, err := decimal.NewFromString(lossStr)
	if err != nil {
		return AttackRecord{}, fmt.Errorf("parse loss amount: %w", err)
	}
	rec.LossAmountUSD = loss

	if sourceURL.Valid {
		value := sourceURL.String
		rec.SourceURL = &value
	}
	if blockchain.Valid {
		value := blockchain.String
		rec.Blockchain = &value
	}
	return rec, nil
}

var _ AttackStore = (*Store)(nil)
var _ AttackReader = (*Store)(nil)
var _ RefreshLogStore = (*Store)(nil)
