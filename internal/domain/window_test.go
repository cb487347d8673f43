package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour int) time.Time {
	return time.Date(2025, time.May, 5, hour, 30, 0, 0, time.UTC)
}

func TestWithinWindowDayRange(t *testing.T) {
	t.Parallel()
	// [9,21): true exactly for hours 9..20.
	for h := 0; h < 24; h++ {
		want := h >= 9 && h < 21
		assert.Equalf(t, want, WithinWindow(9, 21, at(h)), "hour %d", h)
	}
}

func TestWithinWindowWrap(t *testing.T) {
	t.Parallel()
	// 21 → 6 wraps past midnight.
	cases := []struct {
		hour int
		want bool
	}{
		{20, false}, // start-1
		{21, true},  // start
		{23, true},
		{0, true},
		{5, true},  // end-1
		{6, false}, // end
		{10, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, WithinWindow(21, 6, at(tc.hour)), "hour %d", tc.hour)
	}
}

func TestWithinWindowAlwaysOn(t *testing.T) {
	t.Parallel()
	for h := 0; h < 24; h++ {
		assert.Truef(t, WithinWindow(0, 0, at(h)), "hour %d", h)
		assert.Truef(t, WithinWindow(13, 13, at(h)), "hour %d", h)
	}
}

func TestWithinWindowBoundaries(t *testing.T) {
	t.Parallel()
	for start := 0; start < 24; start++ {
		for end := 0; end < 24; end++ {
			if start == end {
				continue
			}
			assert.Truef(t, WithinWindow(start, end, at(start)), "start hour %d-%d", start, end)
			assert.Falsef(t, WithinWindow(start, end, at(end)), "end hour %d-%d", start, end)
		}
	}
}

func TestValidateWindow(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateWindow(0, 23))
	require.NoError(t, ValidateWindow(9, 21))
	require.ErrorIs(t, ValidateWindow(-1, 10), ErrInvalidHour)
	require.ErrorIs(t, ValidateWindow(24, 10), ErrInvalidHour)
	require.ErrorIs(t, ValidateWindow(10, 24), ErrInvalidHour)
}
