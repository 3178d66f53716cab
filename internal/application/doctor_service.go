package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/pdhealth/pdseed/internal/ports"
	"github.com/rs/zerolog"
)

const (
	VerificationApproved = "approved"

	defaultLookupLimit = 1000
)

var ErrNoDoctors = errors.New("no doctors to provision")

type ProvisionStep string

const (
	StepRegister   ProvisionStep = "register"
	StepProfile    ProvisionStep = "profile"
	StepAdminLogin ProvisionStep = "admin_login"
	StepLookup     ProvisionStep = "lookup"
	StepVerify     ProvisionStep = "verify"
)

// ProvisionEvent reports the outcome of one step for one doctor. Account is
// the zero value for admin-wide steps.
type ProvisionEvent struct {
	Step    ProvisionStep
	Index   int
	Total   int
	Account domain.Account
	UserID  domain.AccountID
	Detail  string
	Err     error
}

type ProvisionedDoctor struct {
	Account           domain.Account
	UserID            domain.AccountID
	AlreadyRegistered bool
	RegisterErr       error
	ProfileStatus     string
	ProfileErr        error
	Approved          bool
	VerifyErr         error
}

type ProvisionReport struct {
	Doctors  []ProvisionedDoctor
	AdminErr error
}

func (r ProvisionReport) Registered() int {
	count := 0
	for _, doctor := range r.Doctors {
		if doctor.RegisterErr == nil {
			count++
		}
	}
	return count
}

func (r ProvisionReport) Approved() int {
	count := 0
	for _, doctor := range r.Doctors {
		if doctor.Approved {
			count++
		}
	}
	return count
}

// PendingIDs lists doctors with a known id that were not approved, for
// manual verification.
func (r ProvisionReport) PendingIDs() []domain.AccountID {
	var ids []domain.AccountID
	for _, doctor := range r.Doctors {
		if doctor.UserID != "" && !doctor.Approved {
			ids = append(ids, doctor.UserID)
		}
	}
	return ids
}

type DoctorService struct {
	api    ports.HealthcareAPI
	clock  ports.Clock
	logger zerolog.Logger
}

func NewDoctorService(api ports.HealthcareAPI, clock ports.Clock, logger zerolog.Logger) *DoctorService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &DoctorService{api: api, clock: clock, logger: logger}
}

// Provision registers every doctor, creates their profiles and approves them
// with the admin account. A failing step is recorded for that doctor and the
// remaining doctors still go through. The error is non-nil only for an empty
// roster or when ctx ends.
func (s *DoctorService) Provision(ctx context.Context, doctors []domain.Account, admin domain.Account, opts ProvisionOptions, report func(ProvisionEvent)) (ProvisionReport, error) {
	if len(doctors) == 0 {
		return ProvisionReport{}, ErrNoDoctors
	}
	if report == nil {
		report = func(ProvisionEvent) {}
	}
	if opts.LookupLimit <= 0 {
		opts.LookupLimit = defaultLookupLimit
	}

	result := ProvisionReport{Doctors: make([]ProvisionedDoctor, len(doctors))}
	for i, doctor := range doctors {
		result.Doctors[i].Account = doctor
	}

	if err := s.eachDoctor(ctx, result.Doctors, opts.PauseBetweenRequests, func(i int, doctor *ProvisionedDoctor) {
		s.register(ctx, doctor)
		report(ProvisionEvent{Step: StepRegister, Index: i, Total: len(doctors), Account: doctor.Account, UserID: doctor.UserID, Detail: registerDetail(*doctor), Err: doctor.RegisterErr})
	}); err != nil {
		return result, err
	}

	if err := s.eachDoctor(ctx, result.Doctors, opts.PauseBetweenRequests, func(i int, doctor *ProvisionedDoctor) {
		if doctor.RegisterErr != nil {
			return
		}
		s.createProfile(ctx, doctor)
		report(ProvisionEvent{Step: StepProfile, Index: i, Total: len(doctors), Account: doctor.Account, UserID: doctor.UserID, Detail: doctor.ProfileStatus, Err: doctor.ProfileErr})
	}); err != nil {
		return result, err
	}

	adminSession, err := s.api.Login(ctx, admin.Email, admin.Password)
	if err != nil {
		result.AdminErr = err
		s.logger.Warn().Err(err).Str("email", admin.Email).Msg("admin login failed")
		report(ProvisionEvent{Step: StepAdminLogin, Err: err})
		return result, ctx.Err()
	}
	report(ProvisionEvent{Step: StepAdminLogin, Detail: admin.Email})

	if err := s.resolveIDs(ctx, adminSession, result.Doctors, opts.LookupLimit); err != nil {
		report(ProvisionEvent{Step: StepLookup, Err: err})
	}

	if err := s.eachDoctor(ctx, result.Doctors, opts.PauseBetweenRequests, func(i int, doctor *ProvisionedDoctor) {
		if doctor.UserID == "" {
			return
		}
		doctor.VerifyErr = s.api.VerifyDoctor(ctx, adminSession, doctor.UserID, VerificationApproved, opts.AdminNotes)
		doctor.Approved = doctor.VerifyErr == nil
		report(ProvisionEvent{Step: StepVerify, Index: i, Total: len(doctors), Account: doctor.Account, UserID: doctor.UserID, Err: doctor.VerifyErr})
	}); err != nil {
		return result, err
	}

	return result, nil
}

// ListDoctors logs in as admin and lists doctor accounts.
func (s *DoctorService) ListDoctors(ctx context.Context, admin domain.Account, limit int) (DoctorListing, error) {
	session, err := s.api.Login(ctx, admin.Email, admin.Password)
	if err != nil {
		return DoctorListing{}, fmt.Errorf("admin login: %w", err)
	}

	users, err := s.api.ListUsers(ctx, session, domain.RoleDoctor, limit)
	if err != nil {
		return DoctorListing{}, err
	}

	listing := DoctorListing{Users: users}
	for _, user := range users {
		if user.Active {
			listing.Active++
		}
	}

	return listing, nil
}

// CheckLogin logs the account in and fetches its doctor profile. A profile
// failure does not fail the check.
func (s *DoctorService) CheckLogin(ctx context.Context, email, password string) (LoginCheck, error) {
	session, err := s.api.Login(ctx, email, password)
	if err != nil {
		return LoginCheck{}, err
	}

	check := LoginCheck{Session: session}
	profile, err := s.api.GetDoctorProfile(ctx, session)
	if err != nil {
		check.ProfileErr = err
		return check, nil
	}
	check.Profile = profile

	return check, nil
}

func (s *DoctorService) eachDoctor(ctx context.Context, doctors []ProvisionedDoctor, pause time.Duration, step func(int, *ProvisionedDoctor)) error {
	for i := range doctors {
		if i > 0 {
			if err := s.clock.Sleep(ctx, pause); err != nil {
				return fmt.Errorf("provision doctors: %w", err)
			}
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("provision doctors: %w", err)
		}
		step(i, &doctors[i])
	}

	return nil
}

func (s *DoctorService) register(ctx context.Context, doctor *ProvisionedDoctor) {
	id, err := s.api.Register(ctx, doctor.Account.Email, doctor.Account.Password, domain.RoleDoctor)
	switch {
	case err == nil:
		doctor.UserID = id
	case errors.Is(err, domain.ErrConflict):
		doctor.AlreadyRegistered = true
	default:
		doctor.RegisterErr = err
		s.logger.Warn().Err(err).Str("email", doctor.Account.Email).Msg("register doctor failed")
	}
}

func (s *DoctorService) createProfile(ctx context.Context, doctor *ProvisionedDoctor) {
	if doctor.Account.Profile == nil {
		doctor.ProfileErr = fmt.Errorf("no profile for %s in roster", doctor.Account.Email)
		return
	}

	session, err := s.api.Login(ctx, doctor.Account.Email, doctor.Account.Password)
	if err != nil {
		doctor.ProfileErr = err
		return
	}
	if doctor.UserID == "" {
		doctor.UserID = session.AccountID
	}

	status, err := s.api.CreateDoctorProfile(ctx, session, *doctor.Account.Profile)
	switch {
	case err == nil:
		doctor.ProfileStatus = status
	case errors.Is(err, domain.ErrConflict):
		doctor.ProfileStatus = "exists"
	default:
		doctor.ProfileErr = err
		s.logger.Warn().Err(err).Str("email", doctor.Account.Email).Msg("create doctor profile failed")
	}
}

// resolveIDs fills in ids of doctors registered by an earlier run that could
// not be read from a login.
func (s *DoctorService) resolveIDs(ctx context.Context, admin domain.Session, doctors []ProvisionedDoctor, limit int) error {
	missing := false
	for _, doctor := range doctors {
		if doctor.UserID == "" && doctor.RegisterErr == nil {
			missing = true
			break
		}
	}
	if !missing {
		return nil
	}

	users, err := s.api.ListUsers(ctx, admin, domain.RoleDoctor, limit)
	if err != nil {
		return err
	}

	byEmail := make(map[string]domain.AccountID, len(users))
	for _, user := range users {
		byEmail[strings.ToLower(user.Email)] = user.ID
	}
	for i := range doctors {
		if doctors[i].UserID == "" && doctors[i].RegisterErr == nil {
			doctors[i].UserID = byEmail[strings.ToLower(doctors[i].Account.Email)]
		}
	}

	return nil
}

func registerDetail(doctor ProvisionedDoctor) string {
	if doctor.AlreadyRegistered {
		return "already registered"
	}
	return string(doctor.UserID)
}
