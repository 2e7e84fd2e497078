package pipeline

import (
	"strings"

	"notical/internal/notion"
)

// FlattenRichText renders a rich text sequence as a single plain string.
// Plain runs pass through untouched, so flattening is idempotent on
// unannotated text. An empty or absent sequence flattens to "".
func FlattenRichText(runs []notion.RichText) string {
	var b strings.Builder
	for _, run := range runs {
		b.WriteString(flattenRun(run))
	}
	return unescape(b.String())
}

func flattenRun(run notion.RichText) string {
	text := run.PlainText
	var suffix string

	switch run.Type {
	case notion.RichTextMention:
		text, suffix = flattenMention(run)
	case notion.RichTextEquation:
		expr := run.PlainText
		if run.Equation != nil && run.Equation.Expression != "" {
			expr = run.Equation.Expression
		}
		text = "[equation: " + expr + "]"
	default:
		// A linked text run keeps its text and carries the target in
		// brackets, like the mention forms.
		if run.Href != nil && *run.Href != "" {
			suffix = " [" + *run.Href + "]"
		}
	}

	return applyAnnotations(text, run.Annotations) + suffix
}

func flattenMention(run notion.RichText) (text, suffix string) {
	text = run.PlainText
	m := run.Mention
	if m == nil {
		return text, ""
	}
	switch m.Type {
	case notion.MentionUser:
		return "@" + text, ""
	case notion.MentionDate:
		return "\U0001F4C5 " + text, ""
	case notion.MentionPage:
		return text, " [" + mentionTarget(run, m.Page) + "]"
	case notion.MentionDatabase:
		return text, " [" + mentionTarget(run, m.Database) + "]"
	case notion.MentionLinkPreview:
		if m.LinkPreview != nil && m.LinkPreview.URL != "" {
			return text, " [" + m.LinkPreview.URL + "]"
		}
		return text, ""
	default:
		return text, ""
	}
}

// mentionTarget prefers the resolved URL over the raw object ID.
func mentionTarget(run notion.RichText, ref *notion.Ref) string {
	if run.Href != nil && *run.Href != "" {
		return *run.Href
	}
	if ref != nil {
		return ref.ID
	}
	return ""
}

// applyAnnotations wraps the text in one distinct marker per style flag.
// Markers compose from the inside out: code, bold, italic, strikethrough,
// underline.
func applyAnnotations(text string, a notion.Annotations) string {
	if text == "" {
		return text
	}
	if a.Code {
		text = "`" + text + "`"
	}
	if a.Bold {
		text = "*" + text + "*"
	}
	if a.Italic {
		text = "_" + text + "_"
	}
	if a.Strikethrough {
		text = "~" + text + "~"
	}
	if a.Underline {
		text = "+" + text + "+"
	}
	return text
}

// unescape turns literal two-character escape sequences into the real
// characters, so source text authored with "\n" renders as line breaks.
func unescape(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	r := strings.NewReplacer(`\n`, "\n", `\t`, "\t")
	return r.Replace(s)
}
