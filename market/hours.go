package market

import (
	"fmt"
	"time"
)

// NSE trading session in local exchange time, Monday through Friday.
const (
	nseOpenMinutes  = 9*60 + 15  // 09:15
	nseCloseMinutes = 15*60 + 30 // 15:30
)

var istLocation = mustLoadIST()

func mustLoadIST() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

// Status describes whether the Indian market is currently open, and when it
// next opens if not.
type Status struct {
	Open         bool
	Message      string
	NextOpenTime string
}

// IndianMarketStatus reports the NSE session state at the given instant.
// Crypto markets have no session and are always open.
func IndianMarketStatus(now time.Time) Status {
	local := now.In(istLocation)
	minutes := local.Hour()*60 + local.Minute()
	weekday := local.Weekday()

	if weekday != time.Saturday && weekday != time.Sunday &&
		minutes >= nseOpenMinutes && minutes < nseCloseMinutes {
		return Status{Open: true}
	}

	next := nextOpen(local)
	return Status{
		Open:         false,
		Message:      "market is closed",
		NextOpenTime: next.Format("Mon 02 Jan 15:04 MST"),
	}
}

func nextOpen(local time.Time) time.Time {
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, istLocation)
	open := day.Add(time.Duration(nseOpenMinutes) * time.Minute)
	if !local.Before(open) {
		open = open.AddDate(0, 0, 1)
	}
	for open.Weekday() == time.Saturday || open.Weekday() == time.Sunday {
		open = open.AddDate(0, 0, 1)
	}
	return open
}

// ClosedMessage formats the operator-visible reason used in execution steps.
func (s Status) ClosedMessage() string {
	if s.NextOpenTime == "" {
		return fmt.Sprintf("Cannot execute trade: %s.", s.Message)
	}
	return fmt.Sprintf("Cannot execute trade: %s. Next opening: %s", s.Message, s.NextOpenTime)
}
