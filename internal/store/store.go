// Package store defines the persistence interface for saved analyses.
// Implementations include PostgreSQL (source of truth for the server),
// SQLite (single-node and CLI history), Redis (read-through cache), and
// in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/sellerfin/offer-engine/internal/model"
)

// ErrNotFound is returned when an analysis does not exist.
var ErrNotFound = errors.New("store: analysis not found")

const (
	// DefaultListLimit applies when ListFilter.Limit is zero or negative.
	DefaultListLimit = 50

	// MaxListLimit caps ListFilter.Limit.
	MaxListLimit = 500
)

// ListFilter narrows ListAnalyses. The zero value lists the newest
// DefaultListLimit analyses of any viability.
type ListFilter struct {
	// Viability, when set, keeps only analyses whose best offer has
	// exactly this viability.
	Viability model.Viability

	Limit int
}

// EffectiveLimit returns Limit clamped to [1, MaxListLimit], with
// DefaultListLimit for unset values.
func (f ListFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	}
	return f.Limit
}

// Store is the persistence interface. Analyses are written once and never
// updated; listings are ordered newest first.
type Store interface {
	// SaveAnalysis persists a new analysis.
	SaveAnalysis(ctx context.Context, a *model.Analysis) error

	// GetAnalysis retrieves an analysis by its ID.
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)

	// ListAnalyses returns analyses matching f, newest first.
	ListAnalyses(ctx context.Context, f ListFilter) ([]model.Analysis, error)

	// DeleteAnalysis removes an analysis. It returns ErrNotFound when
	// nothing was deleted.
	DeleteAnalysis(ctx context.Context, id string) error
}

// cloneAnalysis deep-copies a so callers cannot mutate stored state.
func cloneAnalysis(a *model.Analysis) *model.Analysis {
	c := *a
	c.Offers = make([]model.OfferResult, len(a.Offers))
	for i, o := range a.Offers {
		o.ViabilityReasons = append([]string(nil), o.ViabilityReasons...)
		c.Offers[i] = o
	}
	return &c
}
