package question

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/9ooDa/mopic/internal/apierr"
)

func TestQuestion_Prompt(t *testing.T) {
	q := Question{Q1: "Describe your home.", Q2: "What did you do last weekend?", Q3: "Tell me about a trip."}

	tests := []struct {
		name    string
		qNum    int
		want    string
		wantErr bool
	}{
		{name: "first slot", qNum: 1, want: "Describe your home."},
		{name: "second slot", qNum: 2, want: "What did you do last weekend?"},
		{name: "third slot", qNum: 3, want: "Tell me about a trip."},
		{name: "zero is out of range", qNum: 0, wantErr: true},
		{name: "fourth slot is out of range", qNum: 4, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.Prompt(tt.qNum)
			if tt.wantErr {
				assert.ErrorIs(t, err, apierr.ErrInvalidQuestionNumber)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidSlot(t *testing.T) {
	assert.False(t, ValidSlot(0))
	assert.True(t, ValidSlot(1))
	assert.True(t, ValidSlot(3))
	assert.False(t, ValidSlot(4))
}
