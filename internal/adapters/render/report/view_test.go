package report

import (
	"errors"
	"testing"
	"time"

	"github.com/pdhealth/pdseed/internal/application"
	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(value string) time.Time {
	parsed, _ := time.Parse(domain.DateLayout, value)
	return parsed
}

func TestRenderSummaryShowsAccountsAndTotals(t *testing.T) {
	dates, err := domain.ParseDateRange("2025-11-22", "2025-11-25")
	require.NoError(t, err)

	output, err := RenderSummary(application.NewRunSummary(application.ModeConcurrent, dates, []domain.AccountResult{
		{
			Name:          "BS. Nguyễn Văn A",
			Email:         "bs.nguyenvana@pdhealth.com",
			Success:       true,
			DaysAttempted: 4,
			DaysSucceeded: 3,
			TotalSlots:    20,
			FailedDates:   []time.Time{date("2025-11-24")},
		},
		{
			Name:  "bs.tranthib@pdhealth.com",
			Email: "bs.tranthib@pdhealth.com",
		},
	}, 2*time.Second))
	require.NoError(t, err)

	assert.Contains(t, output, "Appointment Slot Summary")
	assert.Contains(t, output, "mode: concurrent  dates: 22/11/2025 - 25/11/2025 (4 days)")
	assert.Contains(t, output, "BS. Nguyễn Văn A (bs.nguyenvana@pdhealth.com)")
	assert.Contains(t, output, "3/4 days (75%)")
	assert.Contains(t, output, "20 slots")
	assert.Contains(t, output, "failed dates: 24/11")
	assert.Contains(t, output, "[==================------]")
	assert.Contains(t, output, "login failed, no dates attempted")
	assert.NotContains(t, output, "bs.tranthib@pdhealth.com (")
	assert.Contains(t, output, "accounts succeeded: 1/2")
	assert.Contains(t, output, "days succeeded: 3/4")
	assert.Contains(t, output, "total slots: 20")
	assert.Contains(t, output, "elapsed: 2s (2.0 tasks/s)")
}

func TestRenderSummaryWithoutResults(t *testing.T) {
	output, err := RenderSummary(application.RunSummary{Mode: application.ModeSequential})
	require.NoError(t, err)

	assert.Contains(t, output, "No accounts were processed.")
	assert.NotContains(t, output, "total slots")
}

func TestRenderProvisionListsCredentials(t *testing.T) {
	roster := application.DefaultDoctorRoster()

	output, err := RenderProvision(application.ProvisionReport{
		Doctors: []application.ProvisionedDoctor{
			{Account: roster[0], UserID: "u-1", ProfileStatus: "pending", Approved: true},
			{Account: roster[1], UserID: "u-2", VerifyErr: &domain.APIError{Kind: domain.ErrServer, StatusCode: 500, Message: "boom"}},
			{Account: roster[2], RegisterErr: &domain.APIError{Kind: domain.ErrServer, StatusCode: 400, Message: "Invalid email"}},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, output, "doctors: 3  registered: 2  approved: 1")
	assert.Contains(t, output, "NAME")
	assert.Contains(t, output, "PASSWORD")
	assert.Contains(t, output, "bs.nguyenvana@pdhealth.com")
	assert.Contains(t, output, "Doctor123")
	assert.Contains(t, output, "approved")
	assert.Contains(t, output, "verify failed: boom")
	assert.Contains(t, output, "bs.lequangc@pdhealth.com: register failed: Invalid email")
}

func TestRenderProvisionListsPendingIDsWhenAdminFails(t *testing.T) {
	roster := application.DefaultDoctorRoster()

	output, err := RenderProvision(application.ProvisionReport{
		Doctors: []application.ProvisionedDoctor{
			{Account: roster[0], UserID: "u-1", ProfileStatus: "pending"},
		},
		AdminErr: errors.New("admin login: connection refused"),
	})
	require.NoError(t, err)

	assert.Contains(t, output, "admin login failed: admin login: connection refused")
	assert.Contains(t, output, "approve manually:")
	assert.Contains(t, output, "u-1")
	assert.Contains(t, output, "pending")
}
