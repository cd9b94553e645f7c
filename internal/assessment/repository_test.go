package assessment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/9ooDa/mopic/internal/apierr"
	"github.com/9ooDa/mopic/internal/inference"
)

var (
	resultColumns  = []string{"id", "user_id", "test_date", "q_num", "path", "wpm", "mlr", "pause", "grammar", "mpr", "coherence", "created_at"}
	sessionColumns = []string{"user_id", "session_date", "answered_mask", "status", "updated_at"}
	scoreColumns   = []string{"id", "user_id", "score_date", "label", "created_at"}
)

var testDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newRepo(t *testing.T) (*DBRepository, *sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sqlxDB := sqlx.NewDb(db, "mysql")
	return NewDBRepository(sqlxDB), sqlxDB, mock
}

func TestDBRepository_FindTestResult(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErrIs error
		wantErr   bool
	}{
		{
			name: "returns the result",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT \\* FROM test_results WHERE user_id = \\? AND test_date = \\? AND q_num = \\?").
					WithArgs(int64(1), testDate, 2).
					WillReturnRows(sqlmock.NewRows(resultColumns).
						AddRow(5, 1, testDate, 2, "uploads/1/a_2.wav", 100.0, 3.0, 0.2, []byte(`{"phase_2":{"score":4}}`), 0.9, "높음", testDate))
			},
		},
		{
			name: "missing result",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT \\* FROM test_results").WillReturnRows(sqlmock.NewRows(resultColumns))
			},
			wantErr:   true,
			wantErrIs: apierr.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _, mock := newRepo(t)
			tt.setupMock(mock)

			got, err := repo.FindTestResult(context.Background(), 1, testDate, 2)
			if tt.wantErr {
				assert.ErrorIs(t, err, tt.wantErrIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(5), got.ID)
			assert.Equal(t, 2, got.QNum)
			assert.Equal(t, "높음", got.Coherence)
			score, err := got.Grammar.Phase2Score()
			require.NoError(t, err)
			assert.Equal(t, 4.0, score)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_FindTestResults(t *testing.T) {
	repo, _, mock := newRepo(t)
	mock.ExpectQuery("SELECT \\* FROM test_results WHERE user_id = \\? AND test_date = \\? ORDER BY q_num").
		WithArgs(int64(1), testDate).
		WillReturnRows(sqlmock.NewRows(resultColumns).
			AddRow(1, 1, testDate, 1, "p1", 1.0, 1.0, 1.0, []byte(`{}`), 1.0, "낮음", testDate).
			AddRow(2, 1, testDate, 3, "p3", 3.0, 3.0, 3.0, []byte(`{}`), 3.0, "높음", testDate))

	got, err := repo.FindTestResults(context.Background(), 1, testDate)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].QNum)
	assert.Equal(t, 3, got[1].QNum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRepository_CreateTestResult(t *testing.T) {
	tests := []struct {
		name      string
		execErr   error
		wantErrIs error
	}{
		{name: "inserts the result"},
		{name: "duplicate slot", execErr: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, wantErrIs: apierr.ErrDuplicateSubmission},
		{name: "other failure", execErr: fmt.Errorf("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, db, mock := newRepo(t)
			mock.ExpectBegin()
			exec := mock.ExpectExec("INSERT INTO test_results \\(user_id, test_date, q_num, path, wpm, mlr, pause, grammar, mpr, coherence\\)").
				WithArgs(int64(1), testDate, 3, "uploads/1/x_3.wav", 120.0, 5.0, 0.1, []byte(`{"phase_2":{"score":2}}`), 0.7, "중간")
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
				mock.ExpectRollback()
			} else {
				exec.WillReturnResult(sqlmock.NewResult(42, 1))
				mock.ExpectCommit()
			}

			tx, err := db.Beginx()
			require.NoError(t, err)

			result := &TestResult{
				UserID: 1, Date: testDate, QNum: 3, Path: "uploads/1/x_3.wav",
				WPM: 120, MLR: 5, Pause: 0.1, Grammar: inference.Grammar(`{"phase_2":{"score":2}}`), MPR: 0.7, Coherence: "중간",
			}
			err = repo.CreateTestResult(context.Background(), tx, result)
			if tt.execErr != nil {
				assert.Error(t, err)
				if tt.wantErrIs != nil {
					assert.ErrorIs(t, err, tt.wantErrIs)
				} else {
					assert.NotErrorIs(t, err, apierr.ErrDuplicateSubmission)
				}
				require.NoError(t, tx.Rollback())
			} else {
				require.NoError(t, err)
				require.NoError(t, tx.Commit())
				assert.Equal(t, int64(42), result.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// lockSessionUpsert must lock an existing row exclusively. INSERT IGNORE only
// takes a shared lock on a duplicate key, which deadlocks two submissions that
// then both ask for FOR UPDATE.
const lockSessionUpsert = "^INSERT INTO test_sessions \\(user_id, session_date, answered_mask, status\\) VALUES \\(\\?, \\?, 0, \\?\\) ON DUPLICATE KEY UPDATE user_id = user_id$"

func TestDBRepository_LockSession_FirstAnswer(t *testing.T) {
	repo, db, mock := newRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec(lockSessionUpsert).
		WithArgs(int64(1), testDate, "awaiting_q1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT \\* FROM test_sessions WHERE user_id = \\? AND session_date = \\? FOR UPDATE").
		WithArgs(int64(1), testDate).
		WillReturnRows(sqlmock.NewRows(sessionColumns).AddRow(1, testDate, 0, "awaiting_q1", testDate))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)

	s, err := repo.LockSession(context.Background(), tx, 1, testDate)
	require.NoError(t, err)
	assert.Empty(t, s.AnsweredSlots())
	assert.Equal(t, StatusAwaitingQ1, s.Status)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRepository_LockSession(t *testing.T) {
	repo, db, mock := newRepo(t)
	mock.ExpectBegin()
	mock.ExpectExec(lockSessionUpsert).
		WithArgs(int64(1), testDate, "awaiting_q1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT \\* FROM test_sessions WHERE user_id = \\? AND session_date = \\? FOR UPDATE").
		WithArgs(int64(1), testDate).
		WillReturnRows(sqlmock.NewRows(sessionColumns).AddRow(1, testDate, 5, "awaiting_q3", testDate))
	mock.ExpectExec("UPDATE test_sessions SET answered_mask = \\?, status = \\? WHERE user_id = \\? AND session_date = \\?").
		WithArgs(7, "complete", int64(1), testDate).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	s, err := repo.LockSession(context.Background(), tx, 1, testDate)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, s.AnsweredSlots())
	assert.Equal(t, StatusAwaitingQ3, s.Status)

	completed, err := s.MarkAnswered(2)
	require.NoError(t, err)
	assert.True(t, completed)
	require.NoError(t, repo.UpdateSession(context.Background(), tx, s))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRepository_FindSession(t *testing.T) {
	t.Run("stored session", func(t *testing.T) {
		repo, _, mock := newRepo(t)
		mock.ExpectQuery("SELECT \\* FROM test_sessions WHERE user_id = \\? AND session_date = \\?").
			WithArgs(int64(1), testDate).
			WillReturnRows(sqlmock.NewRows(sessionColumns).AddRow(1, testDate, 7, "complete", testDate))

		got, err := repo.FindSession(context.Background(), 1, testDate)
		require.NoError(t, err)
		assert.Equal(t, StatusComplete, got.Status)
		assert.True(t, got.Complete())
	})

	t.Run("no answers yet", func(t *testing.T) {
		repo, _, mock := newRepo(t)
		mock.ExpectQuery("SELECT \\* FROM test_sessions").WillReturnRows(sqlmock.NewRows(sessionColumns))

		got, err := repo.FindSession(context.Background(), 1, testDate)
		require.NoError(t, err)
		assert.Equal(t, NewSessionState(1, testDate), got)
	})
}

func TestDBRepository_FindScore(t *testing.T) {
	t.Run("stored score", func(t *testing.T) {
		repo, _, mock := newRepo(t)
		mock.ExpectQuery("SELECT \\* FROM scores WHERE user_id = \\? AND score_date = \\?").
			WithArgs(int64(1), testDate).
			WillReturnRows(sqlmock.NewRows(scoreColumns).AddRow(9, 1, testDate, "IM", testDate))

		got, err := repo.FindScore(context.Background(), 1, testDate)
		require.NoError(t, err)
		assert.Equal(t, &Score{ID: 9, UserID: 1, Date: testDate, Label: LabelIM, CreatedAt: testDate}, got)
	})

	t.Run("not scored", func(t *testing.T) {
		repo, _, mock := newRepo(t)
		mock.ExpectQuery("SELECT \\* FROM scores").WillReturnRows(sqlmock.NewRows(scoreColumns))

		_, err := repo.FindScore(context.Background(), 1, testDate)
		assert.ErrorIs(t, err, apierr.ErrNotFound)
	})
}

func TestDBRepository_CreateScore(t *testing.T) {
	t.Run("inserts the score", func(t *testing.T) {
		repo, _, mock := newRepo(t)
		mock.ExpectExec("INSERT INTO scores \\(user_id, score_date, label\\) VALUES \\(\\?, \\?, \\?\\)").
			WithArgs(int64(1), testDate, "AL").
			WillReturnResult(sqlmock.NewResult(3, 1))

		s := &Score{UserID: 1, Date: testDate, Label: LabelAL}
		require.NoError(t, repo.CreateScore(context.Background(), s))
		assert.Equal(t, int64(3), s.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already scored", func(t *testing.T) {
		repo, _, mock := newRepo(t)
		mock.ExpectExec("INSERT INTO scores").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

		err := repo.CreateScore(context.Background(), &Score{UserID: 1, Date: testDate, Label: LabelAL})
		assert.ErrorIs(t, err, apierr.ErrDuplicateScore)
	})
}
