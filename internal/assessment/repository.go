package assessment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/9ooDa/mopic/internal/apierr"
	"github.com/9ooDa/mopic/internal/calendar"
	"github.com/9ooDa/mopic/internal/database"
)

//go:generate mockgen -source=repository.go -destination=../mocks/assessment/mock_repository.go -package=mock_assessment

// Repository defines operations for managing test results, sessions and scores.
type Repository interface {
	FindTestResult(ctx context.Context, userID int64, date time.Time, qNum int) (*TestResult, error)
	// FindTestResults returns the results of a session ordered by q_num.
	FindTestResults(ctx context.Context, userID int64, date time.Time) ([]TestResult, error)
	CreateTestResult(ctx context.Context, tx *sqlx.Tx, r *TestResult) error

	// LockSession creates the session row if needed and locks it until tx ends.
	LockSession(ctx context.Context, tx *sqlx.Tx, userID int64, date time.Time) (*SessionState, error)
	UpdateSession(ctx context.Context, tx *sqlx.Tx, s *SessionState) error
	FindSession(ctx context.Context, userID int64, date time.Time) (*SessionState, error)

	FindScore(ctx context.Context, userID int64, date time.Time) (*Score, error)
	CreateScore(ctx context.Context, s *Score) error
}

// DBRepository implements Repository using MySQL.
type DBRepository struct {
	db *sqlx.DB
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

// FindTestResult returns the result of slot qNum.
func (r *DBRepository) FindTestResult(ctx context.Context, userID int64, date time.Time, qNum int) (*TestResult, error) {
	var result TestResult
	err := r.db.GetContext(ctx, &result,
		"SELECT * FROM test_results WHERE user_id = ? AND test_date = ? AND q_num = ?",
		userID, date, qNum)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.Errorf(apierr.ErrNotFound, "result for question %d on %s not found", qNum, calendar.Format(date))
		}
		return nil, fmt.Errorf("load test result: %w", err)
	}
	return &result, nil
}

// FindTestResults returns every result of the session.
func (r *DBRepository) FindTestResults(ctx context.Context, userID int64, date time.Time) ([]TestResult, error) {
	var results []TestResult
	err := r.db.SelectContext(ctx, &results,
		"SELECT * FROM test_results WHERE user_id = ? AND test_date = ? ORDER BY q_num",
		userID, date)
	if err != nil {
		return nil, fmt.Errorf("load test results: %w", err)
	}
	return results, nil
}

// CreateTestResult inserts result within tx and sets its ID.
func (r *DBRepository) CreateTestResult(ctx context.Context, tx *sqlx.Tx, result *TestResult) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO test_results (user_id, test_date, q_num, path, wpm, mlr, pause, grammar, mpr, coherence) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		result.UserID, result.Date, result.QNum, result.Path,
		result.WPM, result.MLR, result.Pause, result.Grammar, result.MPR, result.Coherence)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return apierr.Errorf(apierr.ErrDuplicateSubmission, "question %d is already answered", result.QNum)
		}
		return fmt.Errorf("insert test result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get test result insert ID: %w", err)
	}
	result.ID = id
	return nil
}

// LockSession makes sure the session row exists and takes an exclusive lock on
// it. The upsert locks an existing row exclusively, so two submissions never
// both hold a shared lock and deadlock when upgrading it.
// Concurrent submissions for the same session queue on the lock.
func (r *DBRepository) LockSession(ctx context.Context, tx *sqlx.Tx, userID int64, date time.Time) (*SessionState, error) {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO test_sessions (user_id, session_date, answered_mask, status) VALUES (?, ?, 0, ?) ON DUPLICATE KEY UPDATE user_id = user_id",
		userID, date, StatusAwaitingQ1); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	var s SessionState
	if err := tx.GetContext(ctx, &s,
		"SELECT * FROM test_sessions WHERE user_id = ? AND session_date = ? FOR UPDATE",
		userID, date); err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	return &s, nil
}

// UpdateSession stores the answered mask and status of s.
func (r *DBRepository) UpdateSession(ctx context.Context, tx *sqlx.Tx, s *SessionState) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE test_sessions SET answered_mask = ?, status = ? WHERE user_id = ? AND session_date = ?",
		s.AnsweredMask, s.Status, s.UserID, s.Date); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// FindSession returns the session state. A session without answers has no
// row yet and is reported as awaiting its first answer.
func (r *DBRepository) FindSession(ctx context.Context, userID int64, date time.Time) (*SessionState, error) {
	var s SessionState
	err := r.db.GetContext(ctx, &s,
		"SELECT * FROM test_sessions WHERE user_id = ? AND session_date = ?",
		userID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewSessionState(userID, date), nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &s, nil
}

// FindScore returns the score of the session.
func (r *DBRepository) FindScore(ctx context.Context, userID int64, date time.Time) (*Score, error) {
	var s Score
	err := r.db.GetContext(ctx, &s,
		"SELECT * FROM scores WHERE user_id = ? AND score_date = ?",
		userID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.Errorf(apierr.ErrNotFound, "score for %s not found", calendar.Format(date))
		}
		return nil, fmt.Errorf("load score: %w", err)
	}
	return &s, nil
}

// CreateScore inserts s and sets its ID.
func (r *DBRepository) CreateScore(ctx context.Context, s *Score) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO scores (user_id, score_date, label) VALUES (?, ?, ?)",
		s.UserID, s.Date, s.Label)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			return apierr.Errorf(apierr.ErrDuplicateScore, "session on %s is already scored", calendar.Format(s.Date))
		}
		return fmt.Errorf("insert score: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get score insert ID: %w", err)
	}
	s.ID = id
	return nil
}
