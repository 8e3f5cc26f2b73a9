package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsBounds(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	iv := Interval{From: &from, To: &to}

	testCases := []struct {
		name string
		ts   *time.Time
		want bool
	}{
		{
			name: "nil timestamp is always in range",
			ts:   nil,
			want: true,
		},
		{
			name: "exactly at from bound is included",
			ts:   &from,
			want: true,
		},
		{
			name: "exactly at to bound is excluded",
			ts:   &to,
			want: false,
		},
		{
			name: "inside the interval",
			ts:   timePtr(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)),
			want: true,
		},
		{
			name: "before from",
			ts:   timePtr(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)),
			want: false,
		},
		{
			name: "one nanosecond before to",
			ts:   timePtr(to.Add(-time.Nanosecond)),
			want: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, iv.Contains(tc.ts))
		})
	}
}

func TestContainsUnbounded(t *testing.T) {
	iv := Interval{}
	assert.True(t, iv.Unbounded())
	assert.True(t, iv.Contains(nil))
	assert.True(t, iv.Contains(timePtr(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC))))
}

func TestResolvePresets(t *testing.T) {
	now := time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC)
	midnight := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		preset   Preset
		wantFrom *time.Time
	}{
		{name: "all is unbounded", preset: PresetAll, wantFrom: nil},
		{name: "empty preset is unbounded", preset: Preset(""), wantFrom: nil},
		{name: "today anchors at local midnight", preset: PresetToday, wantFrom: &midnight},
		{name: "week is seven days back", preset: PresetWeek, wantFrom: timePtr(midnight.AddDate(0, 0, -7))},
		{name: "month is thirty days back", preset: PresetMonth, wantFrom: timePtr(midnight.AddDate(0, 0, -30))},
		{name: "year is one year back", preset: PresetYear, wantFrom: timePtr(midnight.AddDate(-1, 0, 0))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			iv, err := Resolve(tc.preset, "", "", now)
			require.NoError(t, err)
			if tc.wantFrom == nil {
				assert.Nil(t, iv.From)
			} else {
				require.NotNil(t, iv.From)
				assert.True(t, iv.From.Equal(*tc.wantFrom), "got %v, want %v", iv.From, tc.wantFrom)
			}
			assert.Nil(t, iv.To)
		})
	}
}

func TestResolveAnchorsAtEvaluationDay(t *testing.T) {
	day1 := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 6, 16, 10, 0, 0, 0, time.UTC)

	iv1, err := Resolve(PresetToday, "", "", day1)
	require.NoError(t, err)
	iv2, err := Resolve(PresetToday, "", "", day2)
	require.NoError(t, err)

	assert.False(t, iv1.From.Equal(*iv2.From), "intervals on different days must differ")
}

func TestResolveCustom(t *testing.T) {
	now := time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC)

	iv, err := Resolve(PresetCustom, "2024-01-10", "2024-01-20", now)
	require.NoError(t, err)
	require.NotNil(t, iv.From)
	require.NotNil(t, iv.To)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), *iv.From)
	// Inclusive user end date becomes exclusive next-day bound.
	assert.Equal(t, time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC), *iv.To)

	// A conversation late on the end day is still included.
	assert.True(t, iv.Contains(timePtr(time.Date(2024, 1, 20, 23, 59, 0, 0, time.UTC))))
	assert.False(t, iv.Contains(timePtr(time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC))))
}

func TestResolveCustomOpenEnds(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	iv, err := Resolve(PresetCustom, "2024-01-10", "", now)
	require.NoError(t, err)
	assert.NotNil(t, iv.From)
	assert.Nil(t, iv.To)

	iv, err = Resolve(PresetCustom, "", "2024-01-20", now)
	require.NoError(t, err)
	assert.Nil(t, iv.From)
	assert.NotNil(t, iv.To)
}

func TestResolveErrors(t *testing.T) {
	now := time.Now()

	_, err := Resolve(Preset("fortnight"), "", "", now)
	assert.Error(t, err)

	_, err = Resolve(PresetCustom, "01/10/2024", "", now)
	assert.Error(t, err)

	_, err = Resolve(PresetCustom, "", "not-a-date", now)
	assert.Error(t, err)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
