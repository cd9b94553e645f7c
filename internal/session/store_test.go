package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/9ooDa/mopic/internal/apierr"
	"github.com/9ooDa/mopic/internal/assessment"
	"github.com/9ooDa/mopic/internal/calendar"
	"github.com/9ooDa/mopic/internal/user"
)

// memoryStore is an in-memory assessment and user store. Transactions are
// serialized and rolled back on error, which is what the row locks of the
// MySQL repositories guarantee for a single session.
type memoryStore struct {
	txMu sync.Mutex

	mu          sync.Mutex
	results     map[string]assessment.TestResult
	sessions    map[string]assessment.SessionState
	users       map[int64]user.User
	nextID      int64
	completions int
	failCreate  error
}

var (
	_ assessment.Repository = (*memoryStore)(nil)
	_ user.Repository       = (*memoryStore)(nil)
)

func newMemoryStore(users ...user.User) *memoryStore {
	s := &memoryStore{
		results:  map[string]assessment.TestResult{},
		sessions: map[string]assessment.SessionState{},
		users:    map[int64]user.User{},
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func sessionKey(userID int64, date time.Time) string {
	return fmt.Sprintf("%d/%s", userID, calendar.Format(date))
}

func resultKey(userID int64, date time.Time, qNum int) string {
	return fmt.Sprintf("%s/%d", sessionKey(userID, date), qNum)
}

func (s *memoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	results := cloneMap(s.results)
	sessions := cloneMap(s.sessions)
	users := cloneMap(s.users)
	completions := s.completions
	s.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		s.mu.Lock()
		s.results, s.sessions, s.users, s.completions = results, sessions, users, completions
		s.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memoryStore) FindTestResult(_ context.Context, userID int64, date time.Time, qNum int) (*assessment.TestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[resultKey(userID, date, qNum)]
	if !ok {
		return nil, apierr.Errorf(apierr.ErrNotFound, "result not found")
	}
	return &r, nil
}

func (s *memoryStore) FindTestResults(_ context.Context, userID int64, date time.Time) ([]assessment.TestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []assessment.TestResult
	for q := 1; q <= 3; q++ {
		if r, ok := s.results[resultKey(userID, date, q)]; ok {
			results = append(results, r)
		}
	}
	return results, nil
}

func (s *memoryStore) CreateTestResult(_ context.Context, _ *sqlx.Tx, r *assessment.TestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	key := resultKey(r.UserID, r.Date, r.QNum)
	if _, ok := s.results[key]; ok {
		return apierr.Errorf(apierr.ErrDuplicateSubmission, "question %d is already answered", r.QNum)
	}
	s.nextID++
	r.ID = s.nextID
	s.results[key] = *r
	return nil
}

func (s *memoryStore) LockSession(_ context.Context, _ *sqlx.Tx, userID int64, date time.Time) (*assessment.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[sessionKey(userID, date)]
	if !ok {
		return assessment.NewSessionState(userID, date), nil
	}
	return &state, nil
}

func (s *memoryStore) UpdateSession(_ context.Context, _ *sqlx.Tx, state *assessment.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionKey(state.UserID, state.Date)] = *state
	return nil
}

func (s *memoryStore) FindSession(_ context.Context, userID int64, date time.Time) (*assessment.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sessions[sessionKey(userID, date)]
	if !ok {
		return assessment.NewSessionState(userID, date), nil
	}
	return &state, nil
}

func (s *memoryStore) FindScore(context.Context, int64, time.Time) (*assessment.Score, error) {
	return nil, apierr.Errorf(apierr.ErrNotFound, "score not found")
}

func (s *memoryStore) CreateScore(context.Context, *assessment.Score) error {
	return nil
}

func (s *memoryStore) FindByID(_ context.Context, id int64) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apierr.Errorf(apierr.ErrNotFound, "user %d not found", id)
	}
	return &u, nil
}

func (s *memoryStore) FindByEmail(context.Context, string) (*user.User, error) {
	return nil, apierr.Errorf(apierr.ErrNotFound, "user not found")
}

func (s *memoryStore) Create(context.Context, *user.User) error {
	return nil
}

func (s *memoryStore) RecordSessionCompletion(_ context.Context, _ *sqlx.Tx, userID int64, date time.Time) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, apierr.Errorf(apierr.ErrNotFound, "user %d not found", userID)
	}
	s.completions++
	u.CompleteSession(date)
	s.users[userID] = u
	return &u, nil
}

func (s *memoryStore) ResetDone(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *memoryStore) resultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func (s *memoryStore) completionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completions
}
