// Package store persists computation results. Results are append-only:
// recomputing for the same taxpayer and year inserts a new row and marks the
// previous one superseded, so the full audit history survives every rerun.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nratax/nratax-api/internal/engine"
	"github.com/nratax/nratax-api/internal/logger"
)

// ErrNotFound is returned when a computation does not exist.
var ErrNotFound = errors.New("computation not found")

// PostgresStore stores computation results in Postgres. Results and traces
// are kept as JSONB so the stored record is exactly what the engine
// produced, byte for byte.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect opens a pgx pool with exponential-backoff retries so the API can
// start while the database is still coming up.
func Connect(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse database connection string")
	}

	poolConfig.MaxConns = 20
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	var pool *pgxpool.Pool
	connect := func() error {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.RetryNotify(connect, policy, func(err error, next time.Duration) {
		logger.Warn("Database not ready, retrying",
			zap.Error(err),
			zap.Duration("next_attempt_in", next))
	}); err != nil {
		return nil, errors.Wrap(err, "unable to connect to database")
	}

	return &PostgresStore{pool: pool, logger: logger.Log}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// InsertComputation stores a finished result and marks any still-active
// computation for the same taxpayer and tax year as superseded by it. Rows
// are never updated in place apart from that pointer; prior results remain
// readable forever.
func (s *PostgresStore) InsertComputation(ctx context.Context, result *engine.ComputationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "failed to marshal computation result")
	}
	tracePayload, err := json.Marshal(result.Trace)
	if err != nil {
		return errors.Wrap(err, "failed to marshal computation trace")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		UPDATE computations
		SET superseded_by = $1
		WHERE taxpayer_id = $2 AND tax_year = $3 AND superseded_by IS NULL`,
		result.ComputationID, result.TaxpayerID, result.TaxYear,
	); err != nil {
		return errors.Wrap(err, "failed to supersede prior computations")
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO computations (id, taxpayer_id, tax_year, ruleset_version, result, trace, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		result.ComputationID, result.TaxpayerID, result.TaxYear,
		result.RulesetVersion, payload, tracePayload, result.ComputedAt,
	); err != nil {
		return errors.Wrap(err, "failed to insert computation")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit computation")
	}

	s.logger.Info("Stored computation",
		zap.String("computation_id", result.ComputationID.String()),
		zap.String("taxpayer_id", result.TaxpayerID.String()),
		zap.String("ruleset_version", result.RulesetVersion),
		zap.Int64("balance_cents", result.Tax.BalanceCents))
	return nil
}

// GetComputation loads one computation by id.
func (s *PostgresStore) GetComputation(ctx context.Context, id uuid.UUID) (*engine.ComputationResult, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM computations WHERE id = $1`, id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load computation")
	}

	var result engine.ComputationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal computation result")
	}
	return &result, nil
}

// ListComputations returns every computation recorded for a taxpayer,
// newest first, superseded rows included.
func (s *PostgresStore) ListComputations(ctx context.Context, taxpayerID uuid.UUID) ([]*engine.ComputationResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT result FROM computations
		WHERE taxpayer_id = $1
		ORDER BY computed_at DESC`, taxpayerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list computations")
	}
	defer rows.Close()

	var results []*engine.ComputationResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, "failed to scan computation row")
		}
		var result engine.ComputationResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal computation result")
		}
		results = append(results, &result)
	}
	return results, rows.Err()
}
