package feed

import (
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"notical/internal/pipeline"
)

// ErrSerializationFailed wraps structurally invalid input rejected before
// handing events to the calendar serializer.
var ErrSerializationFailed = errors.New("feed serialization failed")

// CalendarInfo is the feed-level identity stamped onto the document.
type CalendarInfo struct {
	Name        string
	Description string
	Timezone    string
}

// Assemble renders normalized events as a VCALENDAR document. It adapts
// shapes for the serializer and validates date components; all business
// logic happened upstream.
func Assemble(events []pipeline.CalendarEvent, info CalendarInfo, now time.Time) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//notical//EN")
	cal.SetCalscale("GREGORIAN")
	if info.Name != "" {
		cal.SetXWRCalName(info.Name)
	}
	if info.Description != "" {
		cal.SetXWRCalDesc(info.Description)
	}
	if info.Timezone != "" {
		cal.SetXWRTimezone(info.Timezone)
	}

	stamp := now.UTC()
	for _, ev := range events {
		if err := validateEvent(ev); err != nil {
			return "", fmt.Errorf("%w: event %s: %v", ErrSerializationFailed, ev.UID, err)
		}

		e := cal.AddEvent(ev.UID)
		e.SetDtStampTime(stamp)
		e.SetCreatedTime(stamp)
		e.SetModifiedAt(stamp)
		e.SetSummary(ev.Title)
		if ev.Description != "" {
			e.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			e.SetLocation(ev.Location)
		}
		if ev.URL != "" {
			e.SetURL(ev.URL)
		}
		if ev.AllDay {
			e.SetAllDayStartAt(ev.Start.Time())
			e.SetAllDayEndAt(ev.End.Time())
		} else {
			e.SetStartAt(ev.Start.Time())
			e.SetEndAt(ev.End.Time())
		}
	}

	return cal.Serialize(), nil
}

// validateEvent rejects component tuples the serializer would render as
// garbage. The normalizer should never produce these; the check guards
// against future callers.
func validateEvent(ev pipeline.CalendarEvent) error {
	for _, c := range []pipeline.DateComponents{ev.Start, ev.End} {
		if c.Month < 1 || c.Month > 12 {
			return fmt.Errorf("month %d out of range", c.Month)
		}
		if c.Day < 1 || c.Day > 31 {
			return fmt.Errorf("day %d out of range", c.Day)
		}
		if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
			return fmt.Errorf("clock %02d:%02d out of range", c.Hour, c.Minute)
		}
		if c.HasTime == ev.AllDay {
			return fmt.Errorf("time component mismatch for all_day=%t", ev.AllDay)
		}
	}
	if !ev.End.Time().After(ev.Start.Time()) {
		return fmt.Errorf("end %v is not after start %v", ev.End, ev.Start)
	}
	return nil
}
