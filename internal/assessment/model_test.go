package assessment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/9ooDa/mopic/internal/apierr"
)

func TestSessionState_MarkAnswered(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		order         []int
		wantStatuses  []SessionStatus
		wantCompleted []bool
	}{
		{
			name:          "ascending order",
			order:         []int{1, 2, 3},
			wantStatuses:  []SessionStatus{StatusAwaitingQ2, StatusAwaitingQ3, StatusComplete},
			wantCompleted: []bool{false, false, true},
		},
		{
			name:          "descending order",
			order:         []int{3, 2, 1},
			wantStatuses:  []SessionStatus{StatusAwaitingQ2, StatusAwaitingQ3, StatusComplete},
			wantCompleted: []bool{false, false, true},
		},
		{
			name:          "mixed order",
			order:         []int{2, 3, 1},
			wantStatuses:  []SessionStatus{StatusAwaitingQ2, StatusAwaitingQ3, StatusComplete},
			wantCompleted: []bool{false, false, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSessionState(1, date)
			assert.Equal(t, StatusAwaitingQ1, s.Status)

			for i, q := range tt.order {
				completed, err := s.MarkAnswered(q)
				require.NoError(t, err)
				assert.Equal(t, tt.wantCompleted[i], completed)
				assert.Equal(t, tt.wantStatuses[i], s.Status)
				assert.True(t, s.Answered(q))
			}
			assert.Equal(t, []int{1, 2, 3}, s.AnsweredSlots())
			assert.True(t, s.Complete())
		})
	}
}

func TestSessionState_MarkAnswered_Errors(t *testing.T) {
	s := NewSessionState(1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := s.MarkAnswered(4)
	assert.ErrorIs(t, err, apierr.ErrInvalidQuestionNumber)

	_, err = s.MarkAnswered(2)
	require.NoError(t, err)

	completed, err := s.MarkAnswered(2)
	assert.ErrorIs(t, err, apierr.ErrDuplicateSubmission)
	assert.False(t, completed)
	assert.Equal(t, 1, s.AnsweredCount())
	assert.Equal(t, StatusAwaitingQ2, s.Status)
}

func TestLabelForClass(t *testing.T) {
	for class, want := range []Label{LabelNH, LabelIL, LabelIM, LabelIH, LabelAL} {
		got, err := LabelForClass(class)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.True(t, got.Valid())
	}

	_, err := LabelForClass(5)
	assert.Error(t, err)
	_, err = LabelForClass(-1)
	assert.Error(t, err)
	assert.False(t, Label("AH").Valid())
}
