package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	tests := []struct {
		name string
		t    time.Time
		loc  *time.Location
		want string
	}{
		{
			name: "same day in UTC",
			t:    time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: "2024-01-01",
		},
		{
			name: "late UTC evening is the next day in Seoul",
			t:    time.Date(2023, 12, 31, 16, 30, 0, 0, time.UTC),
			loc:  seoul,
			want: "2024-01-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DateOf(tt.t, tt.loc)
			assert.Equal(t, tt.want, Format(got))
			assert.Equal(t, time.UTC, got.Location())
			assert.Zero(t, got.Hour())
		})
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = Parse("01/01/2024")
	assert.Error(t, err)
}

func TestClock_Today(t *testing.T) {
	clock := Clock{
		Now:      func() time.Time { return time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC) },
		Location: time.UTC,
	}
	assert.Equal(t, "2024-01-01", Format(clock.Today()))
	assert.Equal(t, "2024-01-02", Format(AddDays(clock.Today(), 1)))
}
