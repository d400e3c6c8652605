package rules

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// ErrUnknownVersion is returned when no ruleset carries the requested tag.
var ErrUnknownVersion = errors.New("unknown ruleset version")

// Repository holds the published rulesets keyed by version tag. It is built
// once at startup and never mutated afterwards, so concurrent readers need
// no synchronization. There is deliberately no "latest" accessor: every
// computation names its version explicitly so historical results stay
// reproducible after new rulesets ship.
type Repository struct {
	rulesets map[string]*Ruleset
}

// NewRepository builds a repository from the given rulesets, validating each
// one. A ruleset that fails validation is an authoring defect and aborts
// construction.
func NewRepository(rulesets ...*Ruleset) (*Repository, error) {
	repo := &Repository{rulesets: make(map[string]*Ruleset, len(rulesets))}
	for _, rs := range rulesets {
		if err := rs.Validate(); err != nil {
			return nil, fmt.Errorf("invalid ruleset: %w", err)
		}
		if _, exists := repo.rulesets[rs.Version]; exists {
			return nil, fmt.Errorf("duplicate ruleset version %s", rs.Version)
		}
		repo.rulesets[rs.Version] = rs
	}
	return repo, nil
}

// DefaultRepository returns a repository loaded with every published ruleset.
func DefaultRepository() (*Repository, error) {
	return NewRepository(Ruleset2024v1())
}

// Get returns the ruleset for an exact version tag.
func (r *Repository) Get(version string) (*Ruleset, error) {
	rs, ok := r.rulesets[version]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownVersion, "%q", version)
	}
	return rs, nil
}

// Versions returns all published version tags in sorted order.
func (r *Repository) Versions() []string {
	versions := make([]string, 0, len(r.rulesets))
	for v := range r.rulesets {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}
