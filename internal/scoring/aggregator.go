// Package scoring turns the three answers of a session into a proficiency label.
package scoring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/9ooDa/mopic/internal/apierr"
	"github.com/9ooDa/mopic/internal/assessment"
	"github.com/9ooDa/mopic/internal/calendar"
	"github.com/9ooDa/mopic/internal/question"
)

// Columns is the column order of a feature row.
var Columns = []string{"WPM", "MLR", "Pause", "Grammar", "PR", "Coherence"}

// FeatureMatrix has one row per question, in q_num order.
type FeatureMatrix [][]float64

// Flatten concatenates the rows into a single session row.
func (m FeatureMatrix) Flatten() []float64 {
	flat := make([]float64, 0, len(m)*len(Columns))
	for _, row := range m {
		flat = append(flat, row...)
	}
	return flat
}

// Rows returns the classifier input for aggregation.
func (m FeatureMatrix) Rows(aggregation Aggregation) [][]float64 {
	if aggregation == AggregationSession {
		return [][]float64{m.Flatten()}
	}
	return m
}

// CoherenceMapping maps coherence tokens to ordinal levels.
type CoherenceMapping map[string]int

// NewCoherenceMapping copies levels. Tokens are matched exactly as the
// inference service emits them.
func NewCoherenceMapping(levels map[string]int) CoherenceMapping {
	m := make(CoherenceMapping, len(levels))
	for token, level := range levels {
		m[token] = level
	}
	return m
}

// Ordinal returns the level of token.
func (m CoherenceMapping) Ordinal(token string) (int, error) {
	level, ok := m[token]
	if !ok {
		return 0, apierr.Errorf(apierr.ErrUnmappedCategory, "coherence %q is not mapped", token)
	}
	return level, nil
}

// FeatureAggregator assembles the feature matrix of a session.
type FeatureAggregator struct {
	results   assessment.Repository
	coherence CoherenceMapping
}

// NewFeatureAggregator creates a FeatureAggregator.
func NewFeatureAggregator(results assessment.Repository, coherence CoherenceMapping) *FeatureAggregator {
	return &FeatureAggregator{results: results, coherence: coherence}
}

// Build reads the session's answers and returns their feature matrix.
// It fails with apierr.ErrIncompleteSession unless all three slots are answered.
func (a *FeatureAggregator) Build(ctx context.Context, userID int64, date time.Time) (FeatureMatrix, error) {
	results, err := a.results.FindTestResults(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("FindTestResults() > %w", err)
	}
	if err := checkComplete(results); err != nil {
		return nil, apierr.Errorf(apierr.ErrIncompleteSession, "session on %s: %v", calendar.Format(date), err)
	}
	return a.FromResults(results)
}

// FromResults converts a complete set of results. Rows follow q_num regardless
// of the order of results.
func (a *FeatureAggregator) FromResults(results []assessment.TestResult) (FeatureMatrix, error) {
	sorted := make([]assessment.TestResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].QNum < sorted[j].QNum })

	matrix := make(FeatureMatrix, 0, len(sorted))
	for _, r := range sorted {
		grammar, err := r.Grammar.Phase2Score()
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", r.QNum, err)
		}
		coherence, err := a.coherence.Ordinal(r.Coherence)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", r.QNum, err)
		}
		matrix = append(matrix, []float64{r.WPM, r.MLR, r.Pause, grammar, r.MPR, float64(coherence)})
	}
	return matrix, nil
}

func checkComplete(results []assessment.TestResult) error {
	seen := make(map[int]bool, len(results))
	for _, r := range results {
		if !question.ValidSlot(r.QNum) || seen[r.QNum] {
			return fmt.Errorf("unexpected answer for question %d", r.QNum)
		}
		seen[r.QNum] = true
	}
	if len(seen) != question.SlotCount {
		return fmt.Errorf("%d of %d questions answered", len(seen), question.SlotCount)
	}
	return nil
}
