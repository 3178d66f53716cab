package mocks

import (
	"context"
	"time"

	"github.com/pdhealth/pdseed/internal/ports"
	"github.com/stretchr/testify/mock"
)

type MockClock struct {
	mock.Mock
}

var _ ports.Clock = (*MockClock)(nil)

func NewMockClock(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClock {
	m := &MockClock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockClock) Now() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

func (m *MockClock) Sleep(ctx context.Context, d time.Duration) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}
