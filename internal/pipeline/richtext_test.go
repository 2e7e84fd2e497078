package pipeline

import (
	"testing"

	"notical/internal/notion"
)

func textRun(s string) notion.RichText {
	return notion.RichText{Type: notion.RichTextText, PlainText: s}
}

func TestFlattenRichText_PlainTextIsIdempotent(t *testing.T) {
	runs := []notion.RichText{textRun("Weekly planning "), textRun("meeting")}

	got := FlattenRichText(runs)
	if got != "Weekly planning meeting" {
		t.Errorf("got %q", got)
	}

	again := FlattenRichText([]notion.RichText{textRun(got)})
	if again != got {
		t.Errorf("flattening plain text changed it: %q -> %q", got, again)
	}
}

func TestFlattenRichText_Empty(t *testing.T) {
	if got := FlattenRichText(nil); got != "" {
		t.Errorf("expected empty string for nil runs, got %q", got)
	}
	if got := FlattenRichText([]notion.RichText{}); got != "" {
		t.Errorf("expected empty string for no runs, got %q", got)
	}
}

func TestFlattenRichText_Annotations(t *testing.T) {
	tests := []struct {
		name string
		run  notion.RichText
		want string
	}{
		{
			name: "bold",
			run:  notion.RichText{Type: notion.RichTextText, PlainText: "done", Annotations: notion.Annotations{Bold: true}},
			want: "*done*",
		},
		{
			name: "italic",
			run:  notion.RichText{Type: notion.RichTextText, PlainText: "soon", Annotations: notion.Annotations{Italic: true}},
			want: "_soon_",
		},
		{
			name: "strikethrough",
			run:  notion.RichText{Type: notion.RichTextText, PlainText: "old", Annotations: notion.Annotations{Strikethrough: true}},
			want: "~old~",
		},
		{
			name: "underline",
			run:  notion.RichText{Type: notion.RichTextText, PlainText: "key", Annotations: notion.Annotations{Underline: true}},
			want: "+key+",
		},
		{
			name: "code",
			run:  notion.RichText{Type: notion.RichTextText, PlainText: "go test", Annotations: notion.Annotations{Code: true}},
			want: "`go test`",
		},
		{
			name: "bold italic compose",
			run:  notion.RichText{Type: notion.RichTextText, PlainText: "now", Annotations: notion.Annotations{Bold: true, Italic: true}},
			want: "_*now*_",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FlattenRichText([]notion.RichText{tt.run}); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFlattenRichText_Mentions(t *testing.T) {
	href := "https://notion.so/page-abc"

	tests := []struct {
		name string
		run  notion.RichText
		want string
	}{
		{
			name: "user mention",
			run: notion.RichText{
				Type:      notion.RichTextMention,
				PlainText: "Dana",
				Mention:   &notion.Mention{Type: notion.MentionUser, User: &notion.User{ID: "u1", Name: "Dana"}},
			},
			want: "@Dana",
		},
		{
			name: "page mention with href",
			run: notion.RichText{
				Type:      notion.RichTextMention,
				PlainText: "Roadmap",
				Href:      &href,
				Mention:   &notion.Mention{Type: notion.MentionPage, Page: &notion.Ref{ID: "page-abc"}},
			},
			want: "Roadmap [https://notion.so/page-abc]",
		},
		{
			name: "page mention without href falls back to id",
			run: notion.RichText{
				Type:      notion.RichTextMention,
				PlainText: "Roadmap",
				Mention:   &notion.Mention{Type: notion.MentionPage, Page: &notion.Ref{ID: "page-abc"}},
			},
			want: "Roadmap [page-abc]",
		},
		{
			name: "date mention",
			run: notion.RichText{
				Type:      notion.RichTextMention,
				PlainText: "2024-03-01",
				Mention:   &notion.Mention{Type: notion.MentionDate, Date: &notion.DateRange{Start: "2024-03-01"}},
			},
			want: "\U0001F4C5 2024-03-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FlattenRichText([]notion.RichText{tt.run}); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFlattenRichText_Equation(t *testing.T) {
	run := notion.RichText{
		Type:      notion.RichTextEquation,
		PlainText: "E = mc^2",
		Equation:  &notion.Equation{Expression: "E = mc^2"},
	}
	if got := FlattenRichText([]notion.RichText{run}); got != "[equation: E = mc^2]" {
		t.Errorf("got %q", got)
	}
}

func TestFlattenRichText_LinkedText(t *testing.T) {
	href := "https://example.com/agenda"
	run := notion.RichText{Type: notion.RichTextText, PlainText: "agenda", Href: &href}
	if got := FlattenRichText([]notion.RichText{run}); got != "agenda [https://example.com/agenda]" {
		t.Errorf("got %q", got)
	}
}

func TestFlattenRichText_Unescape(t *testing.T) {
	run := textRun(`line one\nline two`)
	if got := FlattenRichText([]notion.RichText{run}); got != "line one\nline two" {
		t.Errorf("got %q", got)
	}
}
