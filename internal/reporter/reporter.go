package reporter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/actionsum/lastapp/internal/models"
	"github.com/actionsum/lastapp/pkg/utils"
)

// CountSource aggregates activations per application
type CountSource interface {
	AppActivationCounts(since time.Time) ([]models.AppCount, error)
}

// Reporter handles report generation
type Reporter struct {
	repo CountSource
	now  func() time.Time
}

// New creates a new reporter
func New(repo CountSource) *Reporter {
	return &Reporter{
		repo: repo,
		now:  time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	now := r.now()
	period, err := GetPeriod(periodType, now)
	if err != nil {
		return nil, err
	}

	counts, err := r.repo.AppActivationCounts(period.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to get app counts: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c.Activations
	}

	if total > 0 {
		for i := range counts {
			counts[i].Percentage = (float64(counts[i].Activations) / float64(total)) * 100.0
		}
	}

	return &models.Report{
		Period:           *period,
		Apps:             counts,
		TotalActivations: total,
		GeneratedAt:      now,
	}, nil
}

// GetPeriod calculates the calendar range containing now
func GetPeriod(periodType string, now time.Time) (*models.ReportPeriod, error) {
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 0, 1)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, fmt.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func FormatReportText(report *models.Report) string {
	output := fmt.Sprintf("Switch Targets - %s\n", report.Period.Type)
	output += fmt.Sprintf("Period: %s to %s\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"))
	output += fmt.Sprintf("Total Activations: %d\n\n", report.TotalActivations)

	if len(report.Apps) == 0 {
		output += "No activity recorded for this period.\n"
		return output
	}

	output += fmt.Sprintf("%-30s %12s %10s %20s\n", "Application", "Activations", "Percent", "Last Seen")
	output += fmt.Sprintf("%s\n", "--------------------------------------------------------------------------------")

	for _, app := range report.Apps {
		lastSeen := "-"
		if !app.LastSeen.IsZero() {
			lastSeen = app.LastSeen.Local().Format("2006-01-02 15:04")
		}
		output += fmt.Sprintf("%-30s %12d %9.1f%% %20s\n",
			truncate(app.AppID, 30),
			app.Activations,
			app.Percentage,
			lastSeen)
	}

	return output
}

// FormatEventsText lists activation events newest first
func FormatEventsText(events []models.ActivationEvent, now time.Time) string {
	if len(events) == 0 {
		return "No focus changes recorded.\n"
	}

	output := fmt.Sprintf("%-10s %-14s %s\n", "When", "Kind", "Application")
	for _, ev := range events {
		output += fmt.Sprintf("%-10s %-14s %s\n", utils.FormatAgo(ev.Timestamp, now), ev.Kind, truncate(ev.AppID, 40))
	}
	return output
}

// FormatAttemptsText lists switch attempts newest first
func FormatAttemptsText(attempts []models.SwitchAttempt, now time.Time) string {
	if len(attempts) == 0 {
		return "No switch attempts recorded.\n"
	}

	output := fmt.Sprintf("%-10s %-26s %-24s %s\n", "When", "Verdict", "Target", "Error")
	for _, a := range attempts {
		target := a.Target
		if target == "" {
			target = "-"
		}
		output += fmt.Sprintf("%-10s %-26s %-24s %s\n", utils.FormatAgo(a.Timestamp, now), a.Reason, truncate(target, 24), a.Error)
	}
	return output
}

// FormatJSON formats any report value as indented JSON
func FormatJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
