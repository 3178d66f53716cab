package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/pdhealth/pdseed/internal/ports"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var ErrNoAccounts = errors.New("no accounts to schedule")

type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeConcurrent Mode = "concurrent"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeSequential:
		return ModeSequential, nil
	case ModeConcurrent:
		return ModeConcurrent, nil
	default:
		return "", fmt.Errorf("unknown schedule mode %q (want %s or %s)", raw, ModeSequential, ModeConcurrent)
	}
}

// ScheduleObserver receives progress notifications during a run. The
// service serializes calls, so implementations need no locking of their own.
type ScheduleObserver interface {
	BatchStarted(batch domain.Batch, batches int)
	AccountStarted(account domain.Account)
	AccountAuthenticated(account domain.Account, session domain.Session)
	AccountAuthFailed(account domain.Account, err error)
	DateCompleted(account domain.Account, outcome domain.SlotOutcome, completed, total int)
	AccountFinished(result domain.AccountResult)
}

type NopObserver struct{}

func (NopObserver) BatchStarted(domain.Batch, int) {}
func (NopObserver) AccountStarted(domain.Account) {}
func (NopObserver) AccountAuthenticated(domain.Account, domain.Session) {}
func (NopObserver) AccountAuthFailed(domain.Account, error) {}
func (NopObserver) DateCompleted(domain.Account, domain.SlotOutcome, int, int) {}
func (NopObserver) AccountFinished(domain.AccountResult) {}

type ScheduleService struct {
	auth   ports.Authenticator
	slots  ports.SlotGenerator
	clock  ports.Clock
	logger zerolog.Logger
}

func NewScheduleService(auth ports.Authenticator, slots ports.SlotGenerator, clock ports.Clock, logger zerolog.Logger) *ScheduleService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &ScheduleService{auth: auth, slots: slots, clock: clock, logger: logger}
}

// Run authenticates every account and generates slots for every date of the
// range. Per-account and per-date failures are recorded in the summary and
// never abort the run. The returned error is non-nil only for an invalid
// request or when ctx ends before the run does; the partial summary is
// returned in that case too.
func (s *ScheduleService) Run(ctx context.Context, req ScheduleRequest, observer ScheduleObserver) (RunSummary, error) {
	if err := req.Validate(); err != nil {
		return RunSummary{}, err
	}
	if observer == nil {
		observer = NopObserver{}
	}
	observer = &syncObserver{next: observer}

	dates := req.Range.Dates()
	progress := NewProgress(len(req.Accounts) * len(dates))
	start := s.clock.Now()

	s.logger.Info().
		Str("mode", string(req.Mode)).
		Int("accounts", len(req.Accounts)).
		Int("dates", len(dates)).
		Msg("schedule run started")

	var results []domain.AccountResult
	switch req.Mode {
	case ModeConcurrent:
		results = s.runConcurrent(ctx, req, dates, progress, observer)
	default:
		results = s.runSequential(ctx, req, dates, progress, observer)
	}

	summary := NewRunSummary(req.Mode, req.Range, results, s.clock.Now().Sub(start))
	s.logger.Info().
		Int("accounts_succeeded", summary.AccountsSucceeded).
		Int("total_slots", summary.TotalSlots).
		Dur("elapsed", summary.Elapsed).
		Msg("schedule run finished")

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("schedule run interrupted: %w", err)
	}

	return summary, nil
}

func (s *ScheduleService) runSequential(ctx context.Context, req ScheduleRequest, dates []time.Time, progress *Progress, observer ScheduleObserver) []domain.AccountResult {
	results := make([]domain.AccountResult, 0, len(req.Accounts))
	for i, account := range req.Accounts {
		if i > 0 {
			if err := s.clock.Sleep(ctx, req.Options.PauseBetweenAccounts); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		observer.AccountStarted(account)
		result, session, ok := s.authenticate(ctx, account, observer)
		if ok {
			s.generateSequential(ctx, account, session, dates, req.Options.PauseBetweenDates, &result, progress, observer)
		}
		observer.AccountFinished(result)
		results = append(results, result)
	}

	return results
}

func (s *ScheduleService) generateSequential(
	ctx context.Context,
	account domain.Account,
	session domain.Session,
	dates []time.Time,
	pause time.Duration,
	result *domain.AccountResult,
	progress *Progress,
	observer ScheduleObserver,
) {
	s.advance(result, domain.StateGeneratingSlots)
	for i, date := range dates {
		if i > 0 {
			if err := s.clock.Sleep(ctx, pause); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		outcome := s.generate(ctx, account, session, date)
		result.Record(outcome)
		progress.Advance(func(completed, total int) {
			observer.DateCompleted(account, outcome, completed, total)
		})
	}
	s.advance(result, domain.StateCompleted)
}

// runConcurrent processes accounts batch by batch. Inside a batch every
// account runs in its own goroutine and fans its dates out over a pool of
// PoolSize workers.
func (s *ScheduleService) runConcurrent(ctx context.Context, req ScheduleRequest, dates []time.Time, progress *Progress, observer ScheduleObserver) []domain.AccountResult {
	batches, err := domain.Partition(req.Accounts, req.Options.BatchSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("partition accounts")
		return nil
	}

	results := make([]domain.AccountResult, len(req.Accounts))
	processed := 0
	for _, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		observer.BatchStarted(batch, len(batches))

		var group errgroup.Group
		group.SetLimit(req.Options.BatchSize)
		for i, account := range batch.Accounts {
			slot := processed + i
			group.Go(func() error {
				observer.AccountStarted(account)
				result, session, ok := s.authenticate(ctx, account, observer)
				if ok {
					s.generateConcurrent(ctx, account, session, dates, req.Options.PoolSize, &result, progress, observer)
				}
				observer.AccountFinished(result)
				results[slot] = result
				return nil
			})
		}
		_ = group.Wait()
		processed += len(batch.Accounts)
	}

	return results[:processed]
}

func (s *ScheduleService) generateConcurrent(
	ctx context.Context,
	account domain.Account,
	session domain.Session,
	dates []time.Time,
	poolSize int,
	result *domain.AccountResult,
	progress *Progress,
	observer ScheduleObserver,
) {
	s.advance(result, domain.StateGeneratingSlots)

	pool := semaphore.NewWeighted(int64(poolSize))
	outcomes := make([]*domain.SlotOutcome, len(dates))
	var wg sync.WaitGroup
	for i, date := range dates {
		if err := pool.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer pool.Release(1)

			outcome := s.generate(ctx, account, session, date)
			outcomes[i] = &outcome
			progress.Advance(func(completed, total int) {
				observer.DateCompleted(account, outcome, completed, total)
			})
		}()
	}
	wg.Wait()

	for _, outcome := range outcomes {
		if outcome != nil {
			result.Record(*outcome)
		}
	}
	s.advance(result, domain.StateCompleted)
}

func (s *ScheduleService) authenticate(ctx context.Context, account domain.Account, observer ScheduleObserver) (domain.AccountResult, domain.Session, bool) {
	result := domain.NewAccountResult(account)
	s.advance(&result, domain.StateAuthenticating)

	session, err := s.auth.Login(ctx, account.Email, account.Password)
	if err == nil && !session.Valid() {
		err = &domain.APIError{Kind: domain.ErrMalformedResponse, Message: "empty session token"}
	}
	if err != nil {
		s.advance(&result, domain.StateAuthFailed)
		s.logger.Warn().Err(err).Str("email", account.Email).Msg("login failed")
		observer.AccountAuthFailed(account, err)
		return result, domain.Session{}, false
	}

	s.advance(&result, domain.StateAuthenticated)
	s.logger.Debug().Str("email", account.Email).Str("account_id", string(session.AccountID)).Msg("logged in")
	observer.AccountAuthenticated(account, session)

	return result, session, true
}

func (s *ScheduleService) generate(ctx context.Context, account domain.Account, session domain.Session, date time.Time) domain.SlotOutcome {
	outcome := domain.SlotOutcome{Date: date}

	slots, err := s.slots.GenerateDailySlots(ctx, session, date)
	if err != nil {
		outcome.Err = domain.Reason(err)
		s.logger.Debug().Err(err).Str("email", account.Email).Str("date", date.Format(domain.DateLayout)).Msg("generate slots failed")
		return outcome
	}

	outcome.Success = true
	outcome.Slots = max(slots.Count, 0)
	outcome.AlreadyExisted = slots.AlreadyExisted

	return outcome
}

func (s *ScheduleService) advance(result *domain.AccountResult, to domain.AccountState) {
	if err := result.Advance(to); err != nil {
		s.logger.Error().Err(err).Str("email", result.Email).Msg("account state")
	}
}

// Progress is the shared done-task counter of a run. The report callback
// runs while the lock is held, so progress lines come out in order.
type Progress struct {
	mu        sync.Mutex
	completed int
	total     int
}

func NewProgress(total int) *Progress {
	return &Progress{total: max(total, 0)}
}

func (p *Progress) Advance(report func(completed, total int)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.completed < p.total {
		p.completed++
	}
	if report != nil {
		report(p.completed, p.total)
	}
}

func (p *Progress) Completed() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.completed
}

func (p *Progress) Total() int {
	return p.total
}

type syncObserver struct {
	mu   sync.Mutex
	next ScheduleObserver
}

func (o *syncObserver) BatchStarted(batch domain.Batch, batches int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next.BatchStarted(batch, batches)
}

func (o *syncObserver) AccountStarted(account domain.Account) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next.AccountStarted(account)
}

func (o *syncObserver) AccountAuthenticated(account domain.Account, session domain.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next.AccountAuthenticated(account, session)
}

func (o *syncObserver) AccountAuthFailed(account domain.Account, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next.AccountAuthFailed(account, err)
}

func (o *syncObserver) DateCompleted(account domain.Account, outcome domain.SlotOutcome, completed, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next.DateCompleted(account, outcome, completed, total)
}

func (o *syncObserver) AccountFinished(result domain.AccountResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next.AccountFinished(result)
}
