package notion

// Page is one row of the source database. The pipeline treats it as
// read-only: properties are accessed by name and checked by kind, never
// mutated.
type Page struct {
	ID         string              `json:"id"`
	URL        string              `json:"url"`
	Properties map[string]Property `json:"properties"`
}

// Property is the tagged union the source API returns for a database
// column. Type names the variant; exactly one of the value fields is
// populated for the variants the pipeline consumes.
type Property struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Title    []RichText `json:"title,omitempty"`
	RichText []RichText `json:"rich_text,omitempty"`
	Date     *DateRange `json:"date,omitempty"`
}

// Property type tags the pipeline recognises.
const (
	TypeTitle    = "title"
	TypeRichText = "rich_text"
	TypeDate     = "date"
)

// DateRange is a date property value. Start and End are either date-only
// (2006-01-02) or date-time (RFC 3339) strings; End may be null.
type DateRange struct {
	Start    string  `json:"start"`
	End      *string `json:"end"`
	TimeZone *string `json:"time_zone"`
}

// RichText is one styled run of a formatted text field.
type RichText struct {
	Type        string      `json:"type"`
	PlainText   string      `json:"plain_text"`
	Href        *string     `json:"href"`
	Annotations Annotations `json:"annotations"`
	Text        *TextValue  `json:"text,omitempty"`
	Mention     *Mention    `json:"mention,omitempty"`
	Equation    *Equation   `json:"equation,omitempty"`
}

// Rich text run type tags.
const (
	RichTextText     = "text"
	RichTextMention  = "mention"
	RichTextEquation = "equation"
)

// Annotations are the inline style flags on a run. A run may carry any
// combination.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color"`
}

type TextValue struct {
	Content string `json:"content"`
	Link    *Link  `json:"link"`
}

type Link struct {
	URL string `json:"url"`
}

// Mention is a structural reference embedded in rich text: another page
// or database, a user, a date, or a link preview.
type Mention struct {
	Type        string     `json:"type"`
	User        *User      `json:"user,omitempty"`
	Page        *Ref       `json:"page,omitempty"`
	Database    *Ref       `json:"database,omitempty"`
	Date        *DateRange `json:"date,omitempty"`
	LinkPreview *Link      `json:"link_preview,omitempty"`
}

// Mention type tags.
const (
	MentionUser        = "user"
	MentionPage        = "page"
	MentionDatabase    = "database"
	MentionDate        = "date"
	MentionLinkPreview = "link_preview"
)

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Ref struct {
	ID string `json:"id"`
}

type Equation struct {
	Expression string `json:"expression"`
}
