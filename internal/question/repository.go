package question

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

//go:generate mockgen -source=repository.go -destination=../mocks/question/mock_repository.go -package=mock_question

// Repository defines operations for managing question sets.
type Repository interface {
	FindByDate(ctx context.Context, date time.Time) (*Question, error)
	FindByDates(ctx context.Context, dates []time.Time) ([]Question, error)
	BatchCreate(ctx context.Context, questions []*Question) error
	BatchUpdate(ctx context.Context, questions []*Question) error
}

// DBRepository implements Repository using MySQL.
type DBRepository struct {
	db *sqlx.DB
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

// FindByDate returns the question set published for date.
func (r *DBRepository) FindByDate(ctx context.Context, date time.Time) (*Question, error) {
	var q Question
	if err := r.db.GetContext(ctx, &q, "SELECT * FROM questions WHERE question_date = ?", date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierr.Errorf(apierr.ErrNotFound, "question for %s not found", calendar.Format(date))
		}
		return nil, fmt.Errorf("load question for %s: %w", calendar.Format(date), err)
	}
	return &q, nil
}

// FindByDates returns the question sets published for any of dates.
func (r *DBRepository) FindByDates(ctx context.Context, dates []time.Time) ([]Question, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT * FROM questions WHERE question_date IN (?) ORDER BY question_date", dates)
	if err != nil {
		return nil, fmt.Errorf("build questions query: %w", err)
	}
	var questions []Question
	if err := r.db.SelectContext(ctx, &questions, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

// BatchCreate inserts question sets in a single multi-row INSERT and sets their IDs.
func (r *DBRepository) BatchCreate(ctx context.Context, questions []*Question) error {
	if len(questions) == 0 {
		return nil
	}

	return database.RunInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		query := database.BuildMultiRowInsert("questions", []string{"question_date", "q1", "q2", "q3"}, len(questions))
		var args []interface{}
		for _, q := range questions {
			args = append(args, q.Date, q.Q1, q.Q2, q.Q3)
		}
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		// MySQL guarantees consecutive auto-increment IDs for multi-row INSERT
		// when innodb_autoinc_lock_mode <= 1.
		firstID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get questions insert ID: %w", err)
		}
		for i := range questions {
			questions[i].ID = firstID + int64(i)
		}
		return nil
	})
}

// BatchUpdate rewrites the prompts of existing question sets.
// Dates that already have answers are left untouched.
func (r *DBRepository) BatchUpdate(ctx context.Context, questions []*Question) error {
	if len(questions) == 0 {
		return nil
	}

	return database.RunInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, q := range questions {
			_, err := tx.ExecContext(ctx,
				"UPDATE questions SET q1 = ?, q2 = ?, q3 = ? WHERE question_date = ? AND NOT EXISTS (SELECT 1 FROM test_results WHERE test_date = ?)",
				q.Q1, q.Q2, q.Q3, q.Date, q.Date)
			if err != nil {
				return fmt.Errorf("update question for %s: %w", calendar.Format(q.Date), err)
			}
		}
		return nil
	})
}
