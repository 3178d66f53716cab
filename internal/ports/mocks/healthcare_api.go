package mocks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/pdhealth/pdseed/internal/ports"
	"github.com/stretchr/testify/mock"
)

type MockHealthcareAPI struct {
	mock.Mock
}

var _ ports.HealthcareAPI = (*MockHealthcareAPI)(nil)

// NewMockHealthcareAPI registers an expectation check on test cleanup.
func NewMockHealthcareAPI(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockHealthcareAPI {
	m := &MockHealthcareAPI{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockHealthcareAPI) Login(ctx context.Context, email, password string) (domain.Session, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *MockHealthcareAPI) GenerateDailySlots(ctx context.Context, session domain.Session, date time.Time) (domain.SlotResult, error) {
	args := m.Called(ctx, session, date)
	return args.Get(0).(domain.SlotResult), args.Error(1)
}

func (m *MockHealthcareAPI) Register(ctx context.Context, email, password string, role domain.Role) (domain.AccountID, error) {
	args := m.Called(ctx, email, password, role)
	return args.Get(0).(domain.AccountID), args.Error(1)
}

func (m *MockHealthcareAPI) CreateDoctorProfile(ctx context.Context, session domain.Session, profile domain.DoctorProfile) (string, error) {
	args := m.Called(ctx, session, profile)
	return args.String(0), args.Error(1)
}

func (m *MockHealthcareAPI) GetDoctorProfile(ctx context.Context, session domain.Session) (json.RawMessage, error) {
	args := m.Called(ctx, session)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *MockHealthcareAPI) VerifyDoctor(ctx context.Context, admin domain.Session, id domain.AccountID, status, notes string) error {
	args := m.Called(ctx, admin, id, status, notes)
	return args.Error(0)
}

func (m *MockHealthcareAPI) ListUsers(ctx context.Context, admin domain.Session, role domain.Role, limit int) ([]domain.User, error) {
	args := m.Called(ctx, admin, role, limit)
	users, _ := args.Get(0).([]domain.User)
	return users, args.Error(1)
}
