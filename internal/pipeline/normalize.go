package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"notical/internal/notion"
)

// DateComponents is a calendar date with an optional wall-clock time.
// HasTime is true exactly for timed events.
type DateComponents struct {
	Year    int
	Month   int // 1-12
	Day     int
	Hour    int
	Minute  int
	HasTime bool
}

// Time materialises the components as a UTC time.Time for comparison and
// serialization. For all-day components the clock fields are zero.
func (d DateComponents) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, d.Hour, d.Minute, 0, 0, time.UTC)
}

// CalendarEvent is the canonical normalized event, ready for
// serialization. For all-day events End is exclusive: one day past the
// last included day.
type CalendarEvent struct {
	UID         string
	Title       string
	Description string
	Location    string
	URL         string
	Start       DateComponents
	End         DateComponents
	AllDay      bool
}

// NormalizeOptions carries the per-run normalization settings.
type NormalizeOptions struct {
	// UTCOffsetHours is the display timezone offset applied to timed
	// events. Zero means no conversion: the instant's UTC calendar
	// fields pass through.
	UTCOffsetHours int
}

// untitledFallback replaces an empty title so clients do not render a
// blank summary line.
const untitledFallback = "Untitled"

// Normalize converts one raw record into a canonical calendar event.
// Validation failures are returned as a ConversionError, never a fatal
// error; the caller aggregates them across the batch.
func Normalize(page notion.Page, m FieldMapping, opts NormalizeOptions) (CalendarEvent, *ConversionError) {
	fail := func(reason string) (CalendarEvent, *ConversionError) {
		return CalendarEvent{}, &ConversionError{RecordID: page.ID, Reason: reason}
	}

	titleProp, ok := page.Properties[m.TitleField]
	if !ok || titleProp.Type != notion.TypeTitle {
		return fail(fmt.Sprintf("missing or invalid title field %q", m.TitleField))
	}
	title := FlattenRichText(titleProp.Title)
	if title == "" {
		title = untitledFallback
	}

	dateProp, ok := page.Properties[m.DateField]
	if !ok || dateProp.Type != notion.TypeDate || dateProp.Date == nil {
		return fail(fmt.Sprintf("missing or invalid date field %q", m.DateField))
	}
	if dateProp.Date.Start == "" {
		return fail(fmt.Sprintf("date field %q has no start", m.DateField))
	}

	ev := CalendarEvent{
		UID:         eventUID(page),
		Title:       title,
		Description: description(page, m),
		Location:    flattenField(page, m.LocationField),
		URL:         page.URL,
	}

	var cerr *ConversionError
	if strings.Contains(dateProp.Date.Start, "T") {
		ev.Start, ev.End, cerr = timedComponents(page.ID, dateProp.Date, opts)
	} else {
		ev.AllDay = true
		ev.Start, ev.End, cerr = allDayComponents(page.ID, dateProp.Date)
	}
	if cerr != nil {
		return CalendarEvent{}, cerr
	}
	return ev, nil
}

// timedComponents parses a timed date range, applies the display offset,
// and defaults the end to one hour after the start.
func timedComponents(recordID string, dr *notion.DateRange, opts NormalizeOptions) (start, end DateComponents, cerr *ConversionError) {
	offset := time.Duration(opts.UTCOffsetHours) * time.Hour

	startAt, err := parseInstant(dr.Start)
	if err != nil {
		return start, end, &ConversionError{RecordID: recordID, Reason: fmt.Sprintf("unparseable start %q", dr.Start)}
	}
	startAt = startAt.UTC().Add(offset)

	endAt := startAt.Add(time.Hour)
	if dr.End != nil && *dr.End != "" {
		endAt, err = parseInstant(*dr.End)
		if err != nil {
			return start, end, &ConversionError{RecordID: recordID, Reason: fmt.Sprintf("unparseable end %q", *dr.End)}
		}
		endAt = endAt.UTC().Add(offset)
	}
	if !endAt.After(startAt) {
		return start, end, &ConversionError{RecordID: recordID, Reason: "end is not after start"}
	}
	return timedOf(startAt), timedOf(endAt), nil
}

// allDayComponents parses a date-only range literally, with no timezone
// shift. The calendar end is exclusive, so an explicit end gains one day
// and a missing end becomes start plus one day.
func allDayComponents(recordID string, dr *notion.DateRange) (start, end DateComponents, cerr *ConversionError) {
	startDay, err := time.Parse(dateLayout, dr.Start)
	if err != nil {
		return start, end, &ConversionError{RecordID: recordID, Reason: fmt.Sprintf("unparseable start %q", dr.Start)}
	}

	endDay := startDay
	if dr.End != nil && *dr.End != "" {
		endDay, err = time.Parse(dateLayout, *dr.End)
		if err != nil {
			return start, end, &ConversionError{RecordID: recordID, Reason: fmt.Sprintf("unparseable end %q", *dr.End)}
		}
		if endDay.Before(startDay) {
			return start, end, &ConversionError{RecordID: recordID, Reason: "end is before start"}
		}
	}
	endDay = endDay.AddDate(0, 0, 1)
	return dayOf(startDay), dayOf(endDay), nil
}

// parseInstant accepts RFC 3339 date-times and their timezone-naive
// variants, which the source emits for values entered without a zone.
// Naive values are read as UTC.
func parseInstant(s string) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}
	var err error
	for _, layout := range layouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func timedOf(t time.Time) DateComponents {
	return DateComponents{
		Year:    t.Year(),
		Month:   int(t.Month()),
		Day:     t.Day(),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		HasTime: true,
	}
}

func dayOf(t time.Time) DateComponents {
	return DateComponents{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// description flattens the description field, with the optional plan
// field appended under a separator. Missing fields flatten to "".
func description(page notion.Page, m FieldMapping) string {
	desc := flattenField(page, m.DescriptionField)
	if m.PlanField == "" {
		return desc
	}
	plan := flattenField(page, m.PlanField)
	switch {
	case plan == "":
		return desc
	case desc == "":
		return plan
	default:
		return desc + "\n---\n" + plan
	}
}

// flattenField reads a text-bearing property by name. Absent properties
// and non-text kinds yield "": optional fields never invalidate a record.
func flattenField(page notion.Page, field string) string {
	prop, ok := page.Properties[field]
	if !ok {
		return ""
	}
	switch prop.Type {
	case notion.TypeRichText:
		return FlattenRichText(prop.RichText)
	case notion.TypeTitle:
		return FlattenRichText(prop.Title)
	default:
		return ""
	}
}

// eventUID derives a stable UID from the source record ID. Records
// without an ID (not seen in practice, but the field is not guaranteed)
// get a random one so the serializer never emits duplicate empty UIDs.
func eventUID(page notion.Page) string {
	if page.ID == "" {
		return "notion-" + uuid.NewString()
	}
	return "notion-" + page.ID
}
