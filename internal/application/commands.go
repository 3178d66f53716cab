package application

import (
	"fmt"
	"time"

	"github.com/pdhealth/pdseed/internal/domain"
)

type ScheduleOptions struct {
	BatchSize            int
	PoolSize             int
	PauseBetweenDates    time.Duration
	PauseBetweenAccounts time.Duration
}

type ScheduleRequest struct {
	Mode     Mode
	Accounts []domain.Account
	Range    domain.DateRange
	Options  ScheduleOptions
}

func (r ScheduleRequest) Validate() error {
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return err
	}
	if len(r.Accounts) == 0 {
		return ErrNoAccounts
	}
	if _, err := domain.NewDateRange(r.Range.Start, r.Range.End); err != nil {
		return err
	}
	if r.Mode == ModeConcurrent {
		if r.Options.BatchSize < 1 {
			return fmt.Errorf("batch size must be at least 1, got %d", r.Options.BatchSize)
		}
		if r.Options.PoolSize < 1 {
			return fmt.Errorf("pool size must be at least 1, got %d", r.Options.PoolSize)
		}
	}

	return nil
}

type ProvisionOptions struct {
	PauseBetweenRequests time.Duration
	AdminNotes           string
	// LookupLimit bounds the user listing used to find ids of doctors that
	// were registered by an earlier run.
	LookupLimit int
}
