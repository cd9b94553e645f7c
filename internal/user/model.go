// Package user manages test takers and their session-completion side effects.
package user

import (
	"database/sql"
	"time"

	"github.com/9ooDa/mopic/internal/calendar"
)

// User is a test taker.
type User struct {
	ID              int64        `db:"id" json:"id"`
	Email           string       `db:"email" json:"email"`
	Name            string       `db:"name" json:"name"`
	Streak          int          `db:"streak" json:"streak"`
	Done            bool         `db:"done" json:"done"`
	LastCompletedOn sql.NullTime `db:"last_completed_on" json:"-"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// CompleteSession records a fully completed session on date.
// The streak grows when the previous completion was the day before and
// restarts at 1 otherwise. It returns false, changing nothing, when a
// completion for date was already recorded.
func (u *User) CompleteSession(date time.Time) bool {
	if u.LastCompletedOn.Valid {
		last := u.LastCompletedOn.Time
		if !last.Before(date) {
			return false
		}
		if calendar.AddDays(last, 1).Equal(date) {
			u.Streak++
		} else {
			u.Streak = 1
		}
	} else {
		u.Streak = 1
	}
	u.Done = true
	u.LastCompletedOn = sql.NullTime{Time: date, Valid: true}
	return true
}
