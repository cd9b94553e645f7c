// Package question manages the daily question sets.
package question

import (
	"time"

	"github.com/9ooDa/mopic/internal/apierr"
)

// SlotCount is the number of questions in a daily set.
const SlotCount = 3

// Question is the set of prompts published for one calendar date.
type Question struct {
	ID        int64     `db:"id" json:"id"`
	Date      time.Time `db:"question_date" json:"date"`
	Q1        string    `db:"q1" json:"q1"`
	Q2        string    `db:"q2" json:"q2"`
	Q3        string    `db:"q3" json:"q3"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

// ValidSlot reports whether qNum addresses a question of the set.
func ValidSlot(qNum int) bool {
	return qNum >= 1 && qNum <= SlotCount
}

// Prompt returns the prompt text for slot qNum.
func (q Question) Prompt(qNum int) (string, error) {
	switch qNum {
	case 1:
		return q.Q1, nil
	case 2:
		return q.Q2, nil
	case 3:
		return q.Q3, nil
	default:
		return "", apierr.Errorf(apierr.ErrInvalidQuestionNumber, "q_num %d is out of range", qNum)
	}
}
