package application

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pdhealth/pdseed/internal/adapters/api/httpapi"
	"github.com/pdhealth/pdseed/internal/adapters/mockapi"
	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/pdhealth/pdseed/internal/ports/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDoctorFixture(t *testing.T) (*mockapi.Server, *DoctorService, *fakeClock) {
	t.Helper()

	server := mockapi.New(mockapi.Options{Secret: "test", Logger: zerolog.Nop()})
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	client := httpapi.NewClient(httpapi.Config{BaseURL: httpServer.URL + "/api", Timeout: 5 * time.Second}, httpServer.Client(), zerolog.Nop())
	clock := newFakeClock()
	return server, NewDoctorService(client, clock, zerolog.Nop()), clock
}

func defaultAdmin() domain.Account {
	return domain.Account{Email: mockapi.DefaultAdminEmail, Password: mockapi.DefaultAdminPassword}
}

func TestProvisionRegistersProfilesAndApproves(t *testing.T) {
	server, svc, clock := newDoctorFixture(t)
	doctors := DefaultDoctorRoster()[:3]
	server.SeedDoctor(doctors[1].Email, doctors[1].Password, false)

	var events []string
	report, err := svc.Provision(context.Background(), doctors, defaultAdmin(), ProvisionOptions{
		PauseBetweenRequests: 500 * time.Millisecond,
		AdminNotes:           "Approved by seeding script",
	}, func(event ProvisionEvent) {
		events = append(events, fmt.Sprintf("%s:%d:%t", event.Step, event.Index, event.Err == nil))
	})
	require.NoError(t, err)
	require.NoError(t, report.AdminErr)

	assert.Equal(t, 3, report.Registered())
	assert.Equal(t, 3, report.Approved())
	assert.Empty(t, report.PendingIDs())

	assert.False(t, report.Doctors[0].AlreadyRegistered)
	assert.Equal(t, "pending", report.Doctors[0].ProfileStatus)
	assert.True(t, report.Doctors[1].AlreadyRegistered)
	assert.Equal(t, "exists", report.Doctors[1].ProfileStatus)
	assert.NotEmpty(t, report.Doctors[1].UserID)

	for _, doctor := range doctors {
		assert.Equal(t, VerificationApproved, server.VerificationStatus(doctor.Email), doctor.Email)
	}

	assert.Equal(t, []string{
		"register:0:true", "register:1:true", "register:2:true",
		"profile:0:true", "profile:1:true", "profile:2:true",
		"admin_login:0:true",
		"verify:0:true", "verify:1:true", "verify:2:true",
	}, events)
	assert.Len(t, clock.sleeps(), 6)
}

func TestProvisionAdminLoginFailureLeavesDoctorsPending(t *testing.T) {
	server, svc, _ := newDoctorFixture(t)
	doctors := DefaultDoctorRoster()[:2]

	report, err := svc.Provision(context.Background(), doctors, domain.Account{Email: mockapi.DefaultAdminEmail, Password: "nope"}, ProvisionOptions{}, nil)
	require.NoError(t, err)

	require.Error(t, report.AdminErr)
	assert.ErrorIs(t, report.AdminErr, domain.ErrAuthFailed)
	assert.Equal(t, 2, report.Registered())
	assert.Zero(t, report.Approved())
	assert.Len(t, report.PendingIDs(), 2)
	assert.Equal(t, "pending", server.VerificationStatus(doctors[0].Email))
}

func TestProvisionResolvesIDsOfExistingDoctors(t *testing.T) {
	api := mocks.NewMockHealthcareAPI(t)
	clock := newFakeClock()
	svc := NewDoctorService(api, clock, zerolog.Nop())

	existing := DefaultDoctorRoster()[0]
	broken := domain.Account{Email: "bs.broken@pdhealth.com", Password: "Doctor123"}
	admin := defaultAdmin()
	adminSession := domain.Session{Token: "admin-token"}

	api.On("Register", mockAnyContext(), existing.Email, existing.Password, domain.RoleDoctor).
		Return(domain.AccountID(""), fmt.Errorf("register: %w", &domain.APIError{Kind: domain.ErrConflict, StatusCode: 409}))
	api.On("Register", mockAnyContext(), broken.Email, broken.Password, domain.RoleDoctor).
		Return(domain.AccountID(""), &domain.APIError{Kind: domain.ErrServer, StatusCode: 500})
	api.On("Login", mockAnyContext(), existing.Email, existing.Password).
		Return(domain.Session{}, &domain.APIError{Kind: domain.ErrAuthFailed, StatusCode: 401})
	api.On("Login", mockAnyContext(), admin.Email, admin.Password).Return(adminSession, nil)
	api.On("ListUsers", mockAnyContext(), adminSession, domain.RoleDoctor, 1000).
		Return([]domain.User{{ID: "doc-1", Email: "BS.NguyenVanA@pdhealth.com", Role: domain.RoleDoctor, Active: true}}, nil)
	api.On("VerifyDoctor", mockAnyContext(), adminSession, domain.AccountID("doc-1"), VerificationApproved, "ok").Return(nil)

	report, err := svc.Provision(context.Background(), []domain.Account{existing, broken}, admin, ProvisionOptions{AdminNotes: "ok"}, nil)
	require.NoError(t, err)

	assert.True(t, report.Doctors[0].AlreadyRegistered)
	assert.ErrorIs(t, report.Doctors[0].ProfileErr, domain.ErrAuthFailed)
	assert.Equal(t, domain.AccountID("doc-1"), report.Doctors[0].UserID)
	assert.True(t, report.Doctors[0].Approved)

	assert.ErrorIs(t, report.Doctors[1].RegisterErr, domain.ErrServer)
	assert.Empty(t, report.Doctors[1].UserID)
	assert.Equal(t, 1, report.Registered())
	assert.Equal(t, 1, report.Approved())
}

func TestProvisionRequiresDoctors(t *testing.T) {
	svc := NewDoctorService(nil, newFakeClock(), zerolog.Nop())

	_, err := svc.Provision(context.Background(), nil, defaultAdmin(), ProvisionOptions{}, nil)
	assert.ErrorIs(t, err, ErrNoDoctors)
}

func TestProvisionStopsWhenCanceled(t *testing.T) {
	_, svc, _ := newDoctorFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Provision(ctx, DefaultDoctorRoster()[:2], defaultAdmin(), ProvisionOptions{}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Approved())
}

func TestListDoctorsCountsActive(t *testing.T) {
	server, svc, _ := newDoctorFixture(t)
	server.SeedDoctor("bs.a@pdhealth.com", "Doctor123", true)
	server.SeedDoctor("bs.b@pdhealth.com", "Doctor123", false)
	server.SetActive("bs.b@pdhealth.com", false)

	listing, err := svc.ListDoctors(context.Background(), defaultAdmin(), 100)
	require.NoError(t, err)

	assert.Len(t, listing.Users, 2)
	assert.Equal(t, 1, listing.Active)

	_, err = svc.ListDoctors(context.Background(), domain.Account{Email: "bs.a@pdhealth.com", Password: "Doctor123"}, 100)
	assert.ErrorContains(t, err, "list users")
}

func TestCheckLogin(t *testing.T) {
	server, svc, _ := newDoctorFixture(t)
	server.SeedDoctor("bs.a@pdhealth.com", "Doctor123", true)

	check, err := svc.CheckLogin(context.Background(), "bs.a@pdhealth.com", "Doctor123")
	require.NoError(t, err)
	assert.True(t, check.Session.Valid())
	require.NoError(t, check.ProfileErr)
	assert.Contains(t, string(check.Profile), "approved")

	check, err = svc.CheckLogin(context.Background(), mockapi.DefaultAdminEmail, mockapi.DefaultAdminPassword)
	require.NoError(t, err)
	assert.Error(t, check.ProfileErr)

	_, err = svc.CheckLogin(context.Background(), "bs.a@pdhealth.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
}
