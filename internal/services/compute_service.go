package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nratax/nratax-api/internal/engine"
	"github.com/nratax/nratax-api/internal/rules"
)

// ComputationStore is the persistence surface the service needs. The
// Postgres implementation lives in internal/store; tests use a fake.
type ComputationStore interface {
	InsertComputation(ctx context.Context, result *engine.ComputationResult) error
	GetComputation(ctx context.Context, id uuid.UUID) (*engine.ComputationResult, error)
	ListComputations(ctx context.Context, taxpayerID uuid.UUID) ([]*engine.ComputationResult, error)
}

// ComputeService runs the engine against a pinned ruleset version and
// records the outcome. The engine itself is pure; this layer owns the
// impure parts, the computation id and timestamp.
type ComputeService struct {
	engine   *engine.Engine
	rulesets *rules.Repository
	store    ComputationStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewComputeService creates a new compute service.
func NewComputeService(rulesets *rules.Repository, store ComputationStore, logger *zap.Logger) *ComputeService {
	return &ComputeService{
		engine:   engine.New(),
		rulesets: rulesets,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Compute evaluates a taxpayer's year under the named ruleset version and
// persists the result. The version is required; there is no implicit
// "latest" because a recompute must be pinnable to the rules it ran under.
func (s *ComputeService) Compute(ctx context.Context, rulesetVersion string, snapshot engine.TaxpayerSnapshot, items []engine.IncomeItem) (*engine.ComputationResult, error) {
	ruleset, err := s.rulesets.Get(rulesetVersion)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Evaluate(ctx, snapshot, items, ruleset)
	if err != nil {
		return nil, err
	}

	result.ComputationID = uuid.New()
	result.ComputedAt = s.now().UTC()

	if err := s.store.InsertComputation(ctx, result); err != nil {
		return nil, errors.Wrap(err, "failed to store computation")
	}

	s.logger.Info("Computation complete",
		zap.String("computation_id", result.ComputationID.String()),
		zap.String("taxpayer_id", snapshot.TaxpayerID.String()),
		zap.Int("tax_year", snapshot.TaxYear),
		zap.String("residency", string(result.Residency.Status)),
		zap.Int("flags", len(result.Flags)))

	return result, nil
}

// GetComputation loads a stored computation by id.
func (s *ComputeService) GetComputation(ctx context.Context, id uuid.UUID) (*engine.ComputationResult, error) {
	return s.store.GetComputation(ctx, id)
}

// ListComputations returns a taxpayer's computation history, newest first.
func (s *ComputeService) ListComputations(ctx context.Context, taxpayerID uuid.UUID) ([]*engine.ComputationResult, error) {
	return s.store.ListComputations(ctx, taxpayerID)
}

// ListRulesetVersions returns the versions available to compute against.
func (s *ComputeService) ListRulesetVersions() []string {
	return s.rulesets.Versions()
}

// GetRuleset returns one ruleset version in full, brackets and clauses
// included, so callers can inspect what a computation ran under.
func (s *ComputeService) GetRuleset(version string) (*rules.Ruleset, error) {
	return s.rulesets.Get(version)
}
