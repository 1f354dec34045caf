package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func istTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return time.Date(year, month, day, hour, min, 0, 0, loc)
}

func TestIndianMarketStatus(t *testing.T) {
	// Monday 2026-08-03, mid-session.
	open := IndianMarketStatus(istTime(t, 2026, time.August, 3, 11, 0))
	assert.True(t, open.Open)

	// Before the 09:15 bell.
	early := IndianMarketStatus(istTime(t, 2026, time.August, 3, 9, 0))
	assert.False(t, early.Open)

	// After the 15:30 close.
	late := IndianMarketStatus(istTime(t, 2026, time.August, 3, 16, 0))
	assert.False(t, late.Open)

	// Saturday: next open is Monday morning.
	weekend := IndianMarketStatus(istTime(t, 2026, time.August, 1, 11, 0))
	assert.False(t, weekend.Open)
	assert.Contains(t, weekend.NextOpenTime, "Mon")
	assert.Contains(t, weekend.ClosedMessage(), "Cannot execute trade")
	assert.Contains(t, weekend.ClosedMessage(), "Next opening")
}

func TestBoundaryMinutes(t *testing.T) {
	atOpen := IndianMarketStatus(istTime(t, 2026, time.August, 3, 9, 15))
	assert.True(t, atOpen.Open)

	atClose := IndianMarketStatus(istTime(t, 2026, time.August, 3, 15, 30))
	assert.False(t, atClose.Open, "the 15:30 bell ends the session")

	lastMinute := IndianMarketStatus(istTime(t, 2026, time.August, 3, 15, 29))
	assert.True(t, lastMinute.Open)
}
