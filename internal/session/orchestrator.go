// Package session drives the submission of the three answers of a daily test.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/9ooDa/mopic/internal/apierr"
	"github.com/9ooDa/mopic/internal/assessment"
	"github.com/9ooDa/mopic/internal/audio"
	"github.com/9ooDa/mopic/internal/calendar"
	"github.com/9ooDa/mopic/internal/database"
	"github.com/9ooDa/mopic/internal/inference"
	"github.com/9ooDa/mopic/internal/question"
	"github.com/9ooDa/mopic/internal/scoring"
	"github.com/9ooDa/mopic/internal/user"
)

//go:generate mockgen -source=orchestrator.go -destination=../mocks/session/mock_orchestrator.go -package=mock_session

// Submitter accepts answers.
type Submitter interface {
	SubmitAnswer(ctx context.Context, s Submission) (*Outcome, error)
}

// Submission is one recorded answer.
type Submission struct {
	UserID int64
	Date   time.Time
	QNum   int
	Audio  io.Reader
}

// Outcome describes a stored answer. Score or ScoreErr is set only when the
// answer completed the session.
type Outcome struct {
	Result    *assessment.TestResult
	Session   *assessment.SessionState
	Completed bool
	User      *user.User
	Score     *assessment.Score
	ScoreErr  error
}

// Orchestrator implements Submitter.
type Orchestrator struct {
	questions  question.Repository
	results    assessment.Repository
	users      user.Repository
	txRunner   database.TxRunner
	transcoder audio.Transcoder
	inference  inference.Client
	scorer     scoring.Scorer
	logger     *zap.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	questions question.Repository,
	results assessment.Repository,
	users user.Repository,
	txRunner database.TxRunner,
	transcoder audio.Transcoder,
	inferenceClient inference.Client,
	scorer scoring.Scorer,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		questions:  questions,
		results:    results,
		users:      users,
		txRunner:   txRunner,
		transcoder: transcoder,
		inference:  inferenceClient,
		scorer:     scorer,
		logger:     logger.With(zap.String("component", "session")),
	}
}

// SubmitAnswer transcodes and scores the answer, stores it and advances the
// session. The answer that completes the session also records the
// completion on the user and scores the session before returning.
//
// Transcoding and inference run before any lock is taken. When either fails
// nothing is stored.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, s Submission) (*Outcome, error) {
	if !question.ValidSlot(s.QNum) {
		return nil, apierr.Errorf(apierr.ErrInvalidQuestionNumber, "q_num %d is out of range", s.QNum)
	}
	logger := o.logger.With(
		zap.Int64("user_id", s.UserID),
		zap.String("date", calendar.Format(s.Date)),
		zap.Int("q_num", s.QNum))

	q, err := o.questions.FindByDate(ctx, s.Date)
	if err != nil {
		return nil, err
	}
	prompt, err := q.Prompt(s.QNum)
	if err != nil {
		return nil, err
	}

	if _, err := o.results.FindTestResult(ctx, s.UserID, s.Date, s.QNum); err == nil {
		return nil, apierr.Errorf(apierr.ErrDuplicateSubmission, "question %d is already answered", s.QNum)
	} else if !errors.Is(err, apierr.ErrNotFound) {
		return nil, fmt.Errorf("FindTestResult() > %w", err)
	}

	path, err := o.transcoder.Transcode(ctx, s.UserID, s.QNum, s.Audio)
	if err != nil {
		return nil, err
	}

	metrics, err := o.inference.Infer(ctx, inference.Request{Path: path, Question: prompt})
	if err == nil {
		err = metrics.Validate()
	}
	if err != nil {
		o.discard(logger, path)
		return nil, err
	}

	outcome := &Outcome{Result: assessment.NewTestResult(s.UserID, s.Date, s.QNum, path, metrics)}
	if err := o.txRunner.RunInTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		return o.store(ctx, tx, outcome)
	}); err != nil {
		o.discard(logger, path)
		return nil, err
	}
	logger.Info("stored answer",
		zap.Int64("result_id", outcome.Result.ID),
		zap.String("status", string(outcome.Session.Status)))

	if outcome.Completed {
		outcome.Score, outcome.ScoreErr = o.scorer.Run(ctx, s.UserID, s.Date)
		if outcome.ScoreErr != nil {
			logger.Error("failed to score completed session", zap.Error(outcome.ScoreErr))
		}
	}
	return outcome, nil
}

// store runs under the session row lock, so exactly one answer observes the
// transition to complete.
func (o *Orchestrator) store(ctx context.Context, tx *sqlx.Tx, outcome *Outcome) error {
	result := outcome.Result
	state, err := o.results.LockSession(ctx, tx, result.UserID, result.Date)
	if err != nil {
		return fmt.Errorf("LockSession() > %w", err)
	}
	completed, err := state.MarkAnswered(result.QNum)
	if err != nil {
		return err
	}
	if err := o.results.CreateTestResult(ctx, tx, result); err != nil {
		return err
	}
	if err := o.results.UpdateSession(ctx, tx, state); err != nil {
		return fmt.Errorf("UpdateSession() > %w", err)
	}
	if completed {
		u, err := o.users.RecordSessionCompletion(ctx, tx, result.UserID, result.Date)
		if err != nil {
			return fmt.Errorf("RecordSessionCompletion() > %w", err)
		}
		outcome.User = u
	}
	outcome.Session = state
	outcome.Completed = completed
	return nil
}

func (o *Orchestrator) discard(logger *zap.Logger, path string) {
	if err := o.transcoder.Discard(path); err != nil {
		logger.Warn("failed to remove artifact", zap.String("path", path), zap.Error(err))
	}
}
