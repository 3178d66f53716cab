package domain

import (
	"fmt"
	"time"
)

// SlotResult is what the remote API reports for one successful
// generate-daily call.
type SlotResult struct {
	Count          int
	AlreadyExisted bool
}

// SlotOutcome is the classified result of one (account, date) attempt.
type SlotOutcome struct {
	Date           time.Time
	Success        bool
	Slots          int
	AlreadyExisted bool
	Err            string
}

type AccountState string

const (
	StateNotStarted      AccountState = "not_started"
	StateAuthenticating  AccountState = "authenticating"
	StateAuthFailed      AccountState = "auth_failed"
	StateAuthenticated   AccountState = "authenticated"
	StateGeneratingSlots AccountState = "generating_slots"
	StateCompleted       AccountState = "completed"
)

var accountTransitions = map[AccountState][]AccountState{
	StateNotStarted:      {StateAuthenticating},
	StateAuthenticating:  {StateAuthFailed, StateAuthenticated},
	StateAuthenticated:   {StateGeneratingSlots},
	StateGeneratingSlots: {StateCompleted},
}

func (s AccountState) CanTransition(to AccountState) bool {
	for _, allowed := range accountTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s AccountState) Terminal() bool {
	return s == StateAuthFailed || s == StateCompleted
}

// AccountResult accumulates the outcomes of one account's run.
// Success means the account authenticated.
type AccountResult struct {
	Name          string
	Email         string
	State         AccountState
	Success       bool
	DaysAttempted int
	DaysSucceeded int
	TotalSlots    int
	FailedDates   []time.Time
}

func NewAccountResult(account Account) AccountResult {
	return AccountResult{
		Name:  account.DisplayName(),
		Email: account.Email,
		State: StateNotStarted,
	}
}

func (r *AccountResult) Advance(to AccountState) error {
	if !r.State.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, to)
	}

	r.State = to
	switch to {
	case StateAuthenticated:
		r.Success = true
	case StateAuthFailed:
		r.Success = false
	}

	return nil
}

// Record folds one outcome into the counters. A 409 outcome arrives here as
// a success with zero slots.
func (r *AccountResult) Record(outcome SlotOutcome) {
	r.DaysAttempted++
	if !outcome.Success {
		r.FailedDates = append(r.FailedDates, outcome.Date)
		return
	}

	r.DaysSucceeded++
	if outcome.Slots > 0 {
		r.TotalSlots += outcome.Slots
	}
}

func (r AccountResult) SuccessRate() float64 {
	if r.DaysAttempted == 0 {
		return 0
	}

	return float64(r.DaysSucceeded) / float64(r.DaysAttempted) * 100
}
