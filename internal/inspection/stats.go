package inspection

import (
	"fmt"
	"math"
	"time"

	errors "github.com/frahmantamala/inspection-workflow/internal"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

var ErrInvalidPeriod = errors.NewValidationError("period must be one of day, week, month, year, all", errors.ErrCodeInvalidPeriod)

func ParsePeriod(raw string) (Period, error) {
	switch p := Period(raw); p {
	case "":
		return PeriodAll, nil
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear, PeriodAll:
		return p, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// WindowStart truncates now to the start of the period. ok is false for PeriodAll.
func WindowStart(p Period, now time.Time) (start time.Time, ok bool) {
	today := startOfDay(now)
	switch p {
	case PeriodDay:
		return today, true
	case PeriodWeek:
		offset := (int(today.Weekday()) + 6) % 7
		return today.AddDate(0, 0, -offset), true
	case PeriodMonth:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()), true
	case PeriodYear:
		return time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location()), true
	}
	return time.Time{}, false
}

// PreviousWindowStart returns the start of the window that ends at start.
func PreviousWindowStart(p Period, start time.Time) time.Time {
	switch p {
	case PeriodDay:
		return start.AddDate(0, 0, -1)
	case PeriodWeek:
		return start.AddDate(0, 0, -7)
	case PeriodMonth:
		return start.AddDate(0, -1, 0)
	case PeriodYear:
		return start.AddDate(-1, 0, 0)
	}
	return start
}

// CalcChange renders the change from previous to current as a whole percent.
// A zero previous value yields "+100%" when anything happened and "0%" otherwise.
func CalcChange(current, previous int64) string {
	if previous == 0 {
		if current > 0 {
			return "+100%"
		}
		return "0%"
	}
	pct := int64(math.Round(float64(current-previous) / float64(previous) * 100))
	if pct > 0 {
		return fmt.Sprintf("+%d%%", pct)
	}
	return fmt.Sprintf("%d%%", pct)
}

// WindowCounts are the dashboard figures for one window. Total and
// PendingReview count by created_at, Completed by completion_date and
// Scheduled by scheduled_date.
type WindowCounts struct {
	Total         int64
	Completed     int64
	Scheduled     int64
	PendingReview int64
}

type Window struct {
	From *time.Time
	To   *time.Time
}

type StatsChanges struct {
	TotalInspections string `json:"total_inspections"`
	Completed        string `json:"completed"`
	Scheduled        string `json:"scheduled"`
	PendingReview    string `json:"pending_review"`
}

type Stats struct {
	TotalInspections int64         `json:"total_inspections"`
	ReportsGenerated int64         `json:"reports_generated"`
	PendingReview    int64         `json:"pending_review"`
	Completed        int64         `json:"completed"`
	Scheduled        int64         `json:"scheduled"`
	Period           Period        `json:"filter_period"`
	Changes          *StatsChanges `json:"changes,omitempty"`
}

func newStats(p Period, current WindowCounts, previous *WindowCounts) *Stats {
	s := &Stats{
		TotalInspections: current.Total,
		ReportsGenerated: current.Completed,
		PendingReview:    current.PendingReview,
		Completed:        current.Completed,
		Scheduled:        current.Scheduled,
		Period:           p,
	}
	if previous != nil {
		s.Changes = &StatsChanges{
			TotalInspections: CalcChange(current.Total, previous.Total),
			Completed:        CalcChange(current.Completed, previous.Completed),
			Scheduled:        CalcChange(current.Scheduled, previous.Scheduled),
			PendingReview:    CalcChange(current.PendingReview, previous.PendingReview),
		}
	}
	return s
}

type InspectorStats struct {
	InspectorID          int64   `json:"inspector_id"`
	InspectorName        string  `json:"inspector_name"`
	TotalInspections     int64   `json:"total_inspections"`
	CompletedInspections int64   `json:"completed_inspections"`
	PendingInspections   int64   `json:"pending_inspections"`
	RejectedInspections  int64   `json:"rejected_inspections"`
	ApprovalRate         float64 `json:"approval_rate"`
}

// ApprovalRate is completed / (completed + rejected) as a percent with one decimal.
func ApprovalRate(completed, rejected int64) float64 {
	reviewed := completed + rejected
	if reviewed == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(reviewed)*1000) / 10
}
