// Package assessment stores per-question results, session progress and session scores.
package assessment

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/9ooDa/mopic/internal/apierr"
	"github.com/9ooDa/mopic/internal/inference"
	"github.com/9ooDa/mopic/internal/question"
)

// TestResult is the scored answer to one question of a session.
type TestResult struct {
	ID        int64             `db:"id" json:"id"`
	UserID    int64             `db:"user_id" json:"user_id"`
	Date      time.Time         `db:"test_date" json:"date"`
	QNum      int               `db:"q_num" json:"q_num"`
	Path      string            `db:"path" json:"path"`
	WPM       float64           `db:"wpm" json:"wpm"`
	MLR       float64           `db:"mlr" json:"mlr"`
	Pause     float64           `db:"pause" json:"pause"`
	Grammar   inference.Grammar `db:"grammar" json:"grammar"`
	MPR       float64           `db:"mpr" json:"mpr"`
	Coherence string            `db:"coherence" json:"coherence"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// NewTestResult builds the result of slot qNum from validated metrics.
func NewTestResult(userID int64, date time.Time, qNum int, path string, m *inference.Metrics) *TestResult {
	return &TestResult{
		UserID:    userID,
		Date:      date,
		QNum:      qNum,
		Path:      path,
		WPM:       *m.WPM,
		MLR:       *m.MLR,
		Pause:     *m.Pause,
		Grammar:   m.Grammar,
		MPR:       *m.MPR,
		Coherence: m.Coherence,
	}
}

// Label is a proficiency level, ordered from NH (lowest) to AL (highest).
type Label string

const (
	LabelNH Label = "NH"
	LabelIL Label = "IL"
	LabelIM Label = "IM"
	LabelIH Label = "IH"
	LabelAL Label = "AL"
)

// Labels is indexed by classifier class.
var Labels = []Label{LabelNH, LabelIL, LabelIM, LabelIH, LabelAL}

// LabelForClass maps a class index to its label.
func LabelForClass(class int) (Label, error) {
	if class < 0 || class >= len(Labels) {
		return "", fmt.Errorf("class %d has no label", class)
	}
	return Labels[class], nil
}

// Valid reports whether l belongs to the label table.
func (l Label) Valid() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

// Score is the proficiency label of a completed session.
type Score struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Date      time.Time `db:"score_date" json:"date"`
	Label     Label     `db:"label" json:"label"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SessionStatus names the progress of a session by its answered count.
type SessionStatus string

const (
	StatusAwaitingQ1 SessionStatus = "awaiting_q1"
	StatusAwaitingQ2 SessionStatus = "awaiting_q2"
	StatusAwaitingQ3 SessionStatus = "awaiting_q3"
	StatusComplete   SessionStatus = "complete"
)

var statusByCount = []SessionStatus{StatusAwaitingQ1, StatusAwaitingQ2, StatusAwaitingQ3, StatusComplete}

// SessionState tracks which slots of a user's daily session are answered.
type SessionState struct {
	UserID       int64         `db:"user_id" json:"user_id"`
	Date         time.Time     `db:"session_date" json:"date"`
	AnsweredMask uint8         `db:"answered_mask" json:"-"`
	Status       SessionStatus `db:"status" json:"status"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// NewSessionState returns the state of a session with no answers.
func NewSessionState(userID int64, date time.Time) *SessionState {
	return &SessionState{UserID: userID, Date: date, Status: StatusAwaitingQ1}
}

// Answered reports whether slot qNum is answered.
func (s SessionState) Answered(qNum int) bool {
	return question.ValidSlot(qNum) && s.AnsweredMask&slotBit(qNum) != 0
}

// AnsweredCount returns the number of answered slots.
func (s SessionState) AnsweredCount() int {
	return bits.OnesCount8(s.AnsweredMask)
}

// AnsweredSlots returns the answered slots in ascending order.
func (s SessionState) AnsweredSlots() []int {
	slots := []int{}
	for q := 1; q <= question.SlotCount; q++ {
		if s.Answered(q) {
			slots = append(slots, q)
		}
	}
	return slots
}

// Complete reports whether every slot is answered.
func (s SessionState) Complete() bool {
	return s.AnsweredCount() == question.SlotCount
}

// MarkAnswered records slot qNum and reports whether this answer completed the session.
func (s *SessionState) MarkAnswered(qNum int) (bool, error) {
	if !question.ValidSlot(qNum) {
		return false, apierr.Errorf(apierr.ErrInvalidQuestionNumber, "q_num %d is out of range", qNum)
	}
	if s.Answered(qNum) {
		return false, apierr.Errorf(apierr.ErrDuplicateSubmission, "question %d is already answered", qNum)
	}
	wasComplete := s.Complete()
	s.AnsweredMask |= slotBit(qNum)
	s.Status = statusByCount[s.AnsweredCount()]
	return !wasComplete && s.Complete(), nil
}

func slotBit(qNum int) uint8 {
	return 1 << (qNum - 1)
}
