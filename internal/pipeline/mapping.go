package pipeline

import "notical/internal/notion"

// Default source property names used when the configuration leaves a
// field unset.
const (
	DefaultTitleField       = "Name"
	DefaultDateField        = "Date"
	DefaultDescriptionField = "Description"
	DefaultLocationField    = "Location"
)

// FieldMapping names the source database property each calendar field is
// read from. Resolved once per run and treated as immutable afterwards.
type FieldMapping struct {
	TitleField       string
	DateField        string
	DescriptionField string
	LocationField    string
	PlanField        string // optional secondary notes field; empty disables
	SortField        string
	SortDirection    string
}

// MappingOverrides are the configured property names. Empty values fall
// back to the documented defaults.
type MappingOverrides struct {
	Title         string
	Date          string
	Description   string
	Location      string
	Plan          string
	Sort          string
	SortDirection string
}

// ResolveMapping applies defaults to the configured overrides. Total: it
// never fails, and every resolved field except Plan is non-empty.
func ResolveMapping(o MappingOverrides) FieldMapping {
	m := FieldMapping{
		TitleField:       pick(o.Title, DefaultTitleField),
		DateField:        pick(o.Date, DefaultDateField),
		DescriptionField: pick(o.Description, DefaultDescriptionField),
		LocationField:    pick(o.Location, DefaultLocationField),
		PlanField:        o.Plan,
	}
	m.SortField = pick(o.Sort, m.DateField)
	switch o.SortDirection {
	case notion.SortAscending, notion.SortDescending:
		m.SortDirection = o.SortDirection
	default:
		m.SortDirection = notion.SortAscending
	}
	return m
}

func pick(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
