package application

import (
	"time"

	"github.com/pdhealth/pdseed/internal/domain"
)

// RunSummary aggregates a schedule run. Results are in roster order.
type RunSummary struct {
	Mode              Mode
	Range             domain.DateRange
	Results           []domain.AccountResult
	AccountsSucceeded int
	TotalSlots        int
	DaysAttempted     int
	DaysSucceeded     int
	Elapsed           time.Duration
}

func NewRunSummary(mode Mode, dates domain.DateRange, results []domain.AccountResult, elapsed time.Duration) RunSummary {
	summary := RunSummary{Mode: mode, Range: dates, Results: results, Elapsed: elapsed}
	for _, result := range results {
		if result.Success {
			summary.AccountsSucceeded++
		}
		summary.TotalSlots += result.TotalSlots
		summary.DaysAttempted += result.DaysAttempted
		summary.DaysSucceeded += result.DaysSucceeded
	}

	return summary
}

func (s RunSummary) TasksPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.DaysAttempted) / s.Elapsed.Seconds()
}

type DoctorListing struct {
	Users  []domain.User
	Active int
}

type LoginCheck struct {
	Session domain.Session
	Profile []byte
	// ProfileErr is set when login worked but the profile could not be read.
	ProfileErr error
}
