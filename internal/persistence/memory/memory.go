// Package memory provides an in-memory store implementation with the same
// uniqueness semantics as the PostgreSQL backend. Used by tests and local
// development; safe for concurrent writers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/domain"
	"github.com/Todd-j-sutherland/trading-feature-sub002/internal/persistence"
)

// Store implements both persistence.PredictionStore and persistence.OutcomeStore.
type Store struct {
	mu          sync.Mutex
	predictions map[string]domain.Prediction // by prediction ID
	byDecision  map[string]string            // symbol+ts -> prediction ID
	outcomes    map[string]domain.Outcome    // by prediction ID
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		predictions: make(map[string]domain.Prediction),
		byDecision:  make(map[string]string),
		outcomes:    make(map[string]domain.Outcome),
	}
}

func decisionKey(symbol string, ts time.Time) string {
	return symbol + "|" + ts.UTC().Format(time.RFC3339Nano)
}

// Record writes one prediction, enforcing (symbol, decision_timestamp) uniqueness.
func (s *Store) Record(ctx context.Context, p domain.Prediction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := decisionKey(p.Symbol, p.DecisionTimestamp)
	if _, exists := s.byDecision[key]; exists {
		return "", &domain.DuplicateDecisionError{Symbol: p.Symbol, DecisionTimestamp: p.DecisionTimestamp}
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.predictions[p.ID] = p
	s.byDecision[key] = p.ID
	return p.ID, nil
}

// Get retrieves a prediction by ID.
func (s *Store) Get(ctx context.Context, predictionID string) (*domain.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.predictions[predictionID]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return &p, nil
}

// ListPending returns predictions older than the cutoff without outcomes, oldest first.
func (s *Store) ListPending(ctx context.Context, before time.Time, limit int) ([]domain.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []domain.Prediction
	for id, p := range s.predictions {
		if _, evaluated := s.outcomes[id]; evaluated {
			continue
		}
		if !p.DecisionTimestamp.After(before) {
			pending = append(pending, p)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].DecisionTimestamp.Before(pending[j].DecisionTimestamp)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// ListRecent returns the newest predictions for a symbol.
func (s *Store) ListRecent(ctx context.Context, symbol string, limit int) ([]domain.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recent []domain.Prediction
	for _, p := range s.predictions {
		if p.Symbol == symbol {
			recent = append(recent, p)
		}
	}
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].DecisionTimestamp.After(recent[j].DecisionTimestamp)
	})
	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}

// ListSince returns predictions decided at or after the given time, newest first.
func (s *Store) ListSince(ctx context.Context, since time.Time) ([]domain.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.Prediction
	for _, p := range s.predictions {
		if !p.DecisionTimestamp.Before(since) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].DecisionTimestamp.After(matched[j].DecisionTimestamp)
	})
	return matched, nil
}

// RecordOutcome writes one outcome, enforcing one per prediction.
func (s *Store) RecordOutcome(ctx context.Context, o domain.Outcome) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.outcomes[o.PredictionID]; exists {
		return "", persistence.ErrOutcomeExists
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	s.outcomes[o.PredictionID] = o
	return o.ID, nil
}

// GetByPrediction retrieves the outcome linked to a prediction.
func (s *Store) GetByPrediction(ctx context.Context, predictionID string) (*domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.outcomes[predictionID]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return &o, nil
}

// ListOutcomesSince returns outcomes evaluated at or after the given time.
func (s *Store) ListOutcomesSince(ctx context.Context, since time.Time) ([]domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.Outcome
	for _, o := range s.outcomes {
		if !o.EvaluationTimestamp.Before(since) {
			matched = append(matched, o)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].EvaluationTimestamp.After(matched[j].EvaluationTimestamp)
	})
	return matched, nil
}

// Outcomes adapts the store to the persistence.OutcomeStore interface, whose
// method names collide with the prediction side.
func (s *Store) Outcomes() persistence.OutcomeStore {
	return outcomeView{s}
}

type outcomeView struct{ s *Store }

func (v outcomeView) Record(ctx context.Context, o domain.Outcome) (string, error) {
	return v.s.RecordOutcome(ctx, o)
}

func (v outcomeView) GetByPrediction(ctx context.Context, predictionID string) (*domain.Outcome, error) {
	return v.s.GetByPrediction(ctx, predictionID)
}

func (v outcomeView) ListSince(ctx context.Context, since time.Time) ([]domain.Outcome, error) {
	return v.s.ListOutcomesSince(ctx, since)
}
