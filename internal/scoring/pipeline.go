package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/9ooDa/mopic/internal/apierr"
	"github.com/9ooDa/mopic/internal/assessment"
	"github.com/9ooDa/mopic/internal/calendar"
	"github.com/9ooDa/mopic/internal/classifier"
	"github.com/9ooDa/mopic/internal/config"
	"github.com/9ooDa/mopic/internal/question"
)

//go:generate mockgen -source=pipeline.go -destination=../mocks/scoring/mock_scorer.go -package=mock_scoring

// Scorer scores a completed session.
type Scorer interface {
	Run(ctx context.Context, userID int64, date time.Time) (*assessment.Score, error)
}

// Aggregation selects how answers are presented to the classifier.
type Aggregation string

const (
	// AggregationPerQuestion classifies each answer and averages the classes.
	AggregationPerQuestion Aggregation = "per_question"
	// AggregationSession classifies the concatenated answers once.
	AggregationSession Aggregation = "session"
)

// RescorePolicy decides what scoring an already scored session does.
type RescorePolicy string

const (
	RescoreReturnExisting RescorePolicy = "return_existing"
	RescoreReject         RescorePolicy = "reject"
)

// FeatureCount is the number of columns in a classifier row.
func (a Aggregation) FeatureCount() int {
	if a == AggregationSession {
		return len(Columns) * question.SlotCount
	}
	return len(Columns)
}

// Options configures a Pipeline.
type Options struct {
	Aggregation   Aggregation
	RescorePolicy RescorePolicy
}

// OptionsFromConfig reads Options from the classifier and scoring config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Aggregation:   Aggregation(cfg.Classifier.Aggregation),
		RescorePolicy: RescorePolicy(cfg.Scoring.RescorePolicy),
	}
}

// Pipeline classifies a session and stores its score.
type Pipeline struct {
	aggregator *FeatureAggregator
	classifier classifier.Classifier
	scores     assessment.Repository
	opts       Options
	logger     *zap.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(aggregator *FeatureAggregator, c classifier.Classifier, scores assessment.Repository, opts Options, logger *zap.Logger) *Pipeline {
	if opts.Aggregation == "" {
		opts.Aggregation = AggregationPerQuestion
	}
	if opts.RescorePolicy == "" {
		opts.RescorePolicy = RescoreReturnExisting
	}
	return &Pipeline{
		aggregator: aggregator,
		classifier: c,
		scores:     scores,
		opts:       opts,
		logger:     logger.With(zap.String("component", "scoring")),
	}
}

// Run scores the session of userID on date. Nothing is stored unless every
// step succeeds.
func (p *Pipeline) Run(ctx context.Context, userID int64, date time.Time) (*assessment.Score, error) {
	if existing, err := p.existingScore(ctx, userID, date); err != nil || existing != nil {
		return existing, err
	}

	matrix, err := p.aggregator.Build(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	rows := matrix.Rows(p.opts.Aggregation)
	classes, err := p.classifier.Predict(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("classifier.Predict() > %w", err)
	}
	if len(classes) != len(rows) {
		return nil, apierr.Errorf(apierr.ErrClassifierUnavailable, "classifier returned %d predictions for %d rows", len(classes), len(rows))
	}
	label, err := Reduce(classes)
	if err != nil {
		return nil, err
	}

	score := &assessment.Score{UserID: userID, Date: date, Label: label}
	if err := p.scores.CreateScore(ctx, score); err != nil {
		if errors.Is(err, apierr.ErrDuplicateScore) && p.opts.RescorePolicy == RescoreReturnExisting {
			// Another request scored the session first.
			return p.scores.FindScore(ctx, userID, date)
		}
		return nil, err
	}

	p.logger.Info("scored session",
		zap.Int64("user_id", userID),
		zap.String("date", calendar.Format(date)),
		zap.Ints("classes", classes),
		zap.String("label", string(label)))
	return score, nil
}

func (p *Pipeline) existingScore(ctx context.Context, userID int64, date time.Time) (*assessment.Score, error) {
	existing, err := p.scores.FindScore(ctx, userID, date)
	if err != nil {
		if errors.Is(err, apierr.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("FindScore() > %w", err)
	}
	if p.opts.RescorePolicy == RescoreReject {
		return nil, apierr.Errorf(apierr.ErrDuplicateScore, "session on %s is already scored", calendar.Format(date))
	}
	return existing, nil
}

// Reduce rounds the mean class, half away from zero, and maps it to a label.
func Reduce(classes []int) (assessment.Label, error) {
	if len(classes) == 0 {
		return "", apierr.Errorf(apierr.ErrClassifierUnavailable, "classifier returned no predictions")
	}
	sum := 0
	for _, c := range classes {
		sum += c
	}
	mean := float64(sum) / float64(len(classes))
	label, err := assessment.LabelForClass(int(math.Round(mean)))
	if err != nil {
		return "", apierr.Wrap(apierr.ErrClassifierUnavailable, err)
	}
	return label, nil
}
