package pipeline

import "time"

// dateLayout is the literal date format the source API expects in
// date filters.
const dateLayout = "2006-01-02"

// WindowPolicy selects how the requested date span is anchored.
type WindowPolicy string

const (
	// WindowRolling spans whole months around now in both directions.
	WindowRolling WindowPolicy = "rolling"
	// WindowEpoch spans from a fixed historical date through the future
	// horizon.
	WindowEpoch WindowPolicy = "epoch"
)

// DateWindow is the inclusive calendar-date span requested from the
// source. Both bounds are dates; time-of-day carries no meaning.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// StartLiteral formats the window start the way the source filter wants it.
func (w DateWindow) StartLiteral() string { return w.Start.Format(dateLayout) }

// EndLiteral formats the window end the way the source filter wants it.
func (w DateWindow) EndLiteral() string { return w.End.Format(dateLayout) }

// PlanWindow computes the date window to request. Under the rolling
// policy it spans from the first day of the month monthRadius months
// before now to the last day of the month monthRadius months after now.
// Under the epoch policy the start is the fixed epoch date instead.
// Pure: no I/O, no failure path.
func PlanWindow(now time.Time, policy WindowPolicy, monthRadius int, epoch time.Time) DateWindow {
	if monthRadius <= 0 {
		monthRadius = 2
	}
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	// Last day of the month monthRadius months ahead: first day of the
	// month after it, minus one day. Starting from day 1 keeps the month
	// arithmetic free of end-of-month overflow.
	end := firstOfMonth.AddDate(0, monthRadius+1, 0).AddDate(0, 0, -1)

	start := firstOfMonth.AddDate(0, -monthRadius, 0)
	if policy == WindowEpoch && !epoch.IsZero() {
		start = time.Date(epoch.Year(), epoch.Month(), epoch.Day(), 0, 0, 0, 0, time.UTC)
	}
	if start.After(end) {
		start = end
	}
	return DateWindow{Start: start, End: end}
}
