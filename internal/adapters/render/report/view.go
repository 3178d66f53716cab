package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pdhealth/pdseed/internal/application"
	"github.com/pdhealth/pdseed/internal/domain"
)

const barWidth = 24

// RenderSummary renders the end-of-run report of a schedule run.
func RenderSummary(summary application.RunSummary) (string, error) {
	return run(func(s styles) string {
		return summaryView(summary, s)
	})
}

// RenderProvision renders the per-doctor outcome of a provisioning run
// followed by the login credentials of every registered doctor.
func RenderProvision(report application.ProvisionReport) (string, error) {
	return run(func(s styles) string {
		return provisionView(report, s)
	})
}

func summaryView(summary application.RunSummary, s styles) string {
	lines := []string{
		s.title.Render("Appointment Slot Summary"),
		s.header.Render(fmt.Sprintf("mode: %s  dates: %s (%d days)", summary.Mode, summary.Range, summary.Range.Days())),
	}

	if len(summary.Results) == 0 {
		lines = append(lines, s.empty.Render("No accounts were processed."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, result := range summary.Results {
		lines = append(lines, s.section.Render(renderAccount(result, s)))
	}

	totals := []string{
		s.detail.Render(fmt.Sprintf("accounts succeeded: %d/%d", summary.AccountsSucceeded, len(summary.Results))),
		s.detail.Render(fmt.Sprintf("days succeeded: %d/%d", summary.DaysSucceeded, summary.DaysAttempted)),
		s.detail.Render(fmt.Sprintf("total slots: %d", summary.TotalSlots)),
		s.detail.Render(fmt.Sprintf("elapsed: %s (%.1f tasks/s)", summary.Elapsed.Round(100*time.Millisecond), summary.TasksPerSecond())),
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, totals...)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(result domain.AccountResult, s styles) string {
	title := s.account.Render(accountTitle(result))
	if !result.Success {
		return lipgloss.JoinVertical(lipgloss.Left,
			title,
			s.failure.Render("login failed, no dates attempted"),
		)
	}

	rate := result.SuccessRate()
	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		renderProgressBar(rate, barWidth, s),
		" ",
		s.detail.Render(fmt.Sprintf("%d/%d days (%.0f%%)", result.DaysSucceeded, result.DaysAttempted, rate)),
		" ",
		s.success.Render(fmt.Sprintf("%d slots", result.TotalSlots)),
	)

	parts := []string{title, line}
	if len(result.FailedDates) > 0 {
		parts = append(parts, s.failure.Render("failed dates: "+failedDates(result)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func accountTitle(result domain.AccountResult) string {
	name := strings.TrimSpace(result.Name)
	if name == "" || name == result.Email {
		return result.Email
	}
	return fmt.Sprintf("%s (%s)", name, result.Email)
}

func failedDates(result domain.AccountResult) string {
	dates := make([]string, 0, len(result.FailedDates))
	for _, date := range result.FailedDates {
		dates = append(dates, date.Format(domain.ShortDateLayout))
	}
	return strings.Join(dates, ", ")
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100))
	filled = min(max(filled, 0), width)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func provisionView(report application.ProvisionReport, s styles) string {
	lines := []string{
		s.title.Render("Doctor Provisioning"),
		s.header.Render(fmt.Sprintf("doctors: %d  registered: %d  approved: %d", len(report.Doctors), report.Registered(), report.Approved())),
	}

	if report.AdminErr != nil {
		lines = append(lines, s.section.Render(s.failure.Render("admin login failed: "+domain.Reason(report.AdminErr))))
		if pending := report.PendingIDs(); len(pending) > 0 {
			ids := make([]string, 0, len(pending))
			for _, id := range pending {
				ids = append(ids, "  "+string(id))
			}
			lines = append(lines, s.detail.Render("approve manually:"), s.detail.Render(strings.Join(ids, "\n")))
		}
	}

	rows := make([][]string, 0, len(report.Doctors))
	for _, doctor := range report.Doctors {
		if doctor.RegisterErr != nil {
			lines = append(lines, s.failure.Render(fmt.Sprintf("%s: register failed: %s", doctor.Account.Email, domain.Reason(doctor.RegisterErr))))
			continue
		}
		rows = append(rows, []string{doctor.Account.DisplayName(), doctor.Account.Email, doctor.Account.Password, doctorStatus(doctor)})
	}

	if len(rows) == 0 {
		lines = append(lines, s.section.Render(s.empty.Render("No doctors were registered.")))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.section.Render(renderTable([]string{"NAME", "EMAIL", "PASSWORD", "STATUS"}, rows, s)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func doctorStatus(doctor application.ProvisionedDoctor) string {
	switch {
	case doctor.Approved:
		return application.VerificationApproved
	case doctor.VerifyErr != nil:
		return "verify failed: " + domain.Reason(doctor.VerifyErr)
	case doctor.ProfileErr != nil:
		return "profile failed: " + domain.Reason(doctor.ProfileErr)
	default:
		return "pending"
	}
}

func renderTable(headers []string, rows [][]string, s styles) string {
	widths := make([]int, len(headers))
	for i, header := range headers {
		widths[i] = lipgloss.Width(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	renderRow := func(cells []string, style lipgloss.Style) string {
		columns := make([]string, 0, len(cells))
		for i, cell := range cells {
			cellStyle := style.Width(widths[i])
			if i < len(cells)-1 {
				cellStyle = cellStyle.MarginRight(2)
			}
			columns = append(columns, cellStyle.Render(cell))
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
	}

	lines := []string{renderRow(headers, s.tableHead)}
	for _, row := range rows {
		lines = append(lines, renderRow(row, s.detail))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
