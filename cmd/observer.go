package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/pdhealth/pdseed/internal/application"
	"github.com/pdhealth/pdseed/internal/domain"
)

// consoleObserver prints one line per schedule event. The schedule service
// serializes calls, so lines never interleave.
type consoleObserver struct {
	application.NopObserver
	out      io.Writer
	accounts int
	started  int
}

func newConsoleObserver(out io.Writer, accounts int) *consoleObserver {
	return &consoleObserver{out: out, accounts: accounts}
}

func (o *consoleObserver) BatchStarted(batch domain.Batch, batches int) {
	names := make([]string, 0, len(batch.Accounts))
	for _, account := range batch.Accounts {
		names = append(names, account.DisplayName())
	}
	o.printf("\nBatch %d/%d: %s\n", batch.Number, batches, strings.Join(names, ", "))
}

func (o *consoleObserver) AccountStarted(account domain.Account) {
	o.started++
	o.printf("[%d/%d] %s (%s)\n", o.started, o.accounts, account.DisplayName(), account.Email)
}

func (o *consoleObserver) AccountAuthenticated(account domain.Account, session domain.Session) {
	o.printf("  %s: logged in (id %s)\n", account.DisplayName(), session.ShortID())
}

func (o *consoleObserver) AccountAuthFailed(account domain.Account, err error) {
	o.printf("  %s: login failed: %s\n", account.DisplayName(), domain.Reason(err))
}

func (o *consoleObserver) DateCompleted(account domain.Account, outcome domain.SlotOutcome, completed, total int) {
	percent := 0.0
	if total > 0 {
		percent = float64(completed) / float64(total) * 100
	}

	var detail string
	switch {
	case !outcome.Success:
		detail = "failed: " + outcome.Err
	case outcome.AlreadyExisted:
		detail = "already exists"
	default:
		detail = fmt.Sprintf("%d slots", outcome.Slots)
	}

	o.printf("  [%5.1f%%] %s %s: %s\n", percent, outcome.Date.Format(domain.DisplayDateLayout), account.DisplayName(), detail)
}

func (o *consoleObserver) AccountFinished(result domain.AccountResult) {
	if !result.Success {
		return
	}
	o.printf("  %s: %d/%d days, %d slots\n", result.Name, result.DaysSucceeded, result.DaysAttempted, result.TotalSlots)
}

func (o *consoleObserver) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.out, format, args...)
}
