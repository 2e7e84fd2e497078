package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"notical/internal/notion"
)

func testPipeline(src Querier) *Pipeline {
	p := New(src, "db1", Config{
		Mapping:      defaultMapping(),
		WindowPolicy: WindowRolling,
		MonthRadius:  2,
		Fetch:        testPolicy(),
	}, testLogger())
	p.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	return p
}

func validPage(id string) notion.Page {
	return pageWith(id, map[string]notion.Property{
		"Name": titleProp("Event " + id),
		"Date": dateProp("2024-03-01", nil),
	})
}

func invalidPage(id string) notion.Page {
	return pageWith(id, map[string]notion.Property{
		"Name": titleProp("No date " + id),
	})
}

func TestSync_PartialSuccess(t *testing.T) {
	src := &fakeSource{records: []notion.Page{
		validPage("a"), invalidPage("b"), validPage("c"),
	}}

	result, err := testPipeline(src).Sync(context.Background())
	if err != nil {
		t.Fatalf("partial failure must not fail the batch: %v", err)
	}

	if len(result.Events) != 2 {
		t.Errorf("expected 2 events, got %d", len(result.Events))
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 conversion error, got %d", len(result.Errors))
	}
	if result.Errors[0].RecordID != "b" {
		t.Errorf("expected error for record b, got %q", result.Errors[0].RecordID)
	}
	// The invalid record must not leak into the event list.
	for _, ev := range result.Events {
		if ev.UID == "notion-b" {
			t.Error("invalid record appeared in events")
		}
	}
}

func TestSync_AllRecordsInvalid(t *testing.T) {
	src := &fakeSource{records: []notion.Page{
		invalidPage("a"), invalidPage("b"), invalidPage("c"),
	}}

	_, err := testPipeline(src).Sync(context.Background())

	var allInvalid *AllRecordsInvalidError
	if !errors.As(err, &allInvalid) {
		t.Fatalf("expected AllRecordsInvalidError, got %v", err)
	}
	if allInvalid.Additional != 2 {
		t.Errorf("expected 2 additional failures, got %d", allInvalid.Additional)
	}
	if allInvalid.FirstReason == "" {
		t.Error("expected first failure reason to be carried")
	}
}

func TestSync_EmptySourceIsNotAnError(t *testing.T) {
	src := &fakeSource{}

	result, err := testPipeline(src).Sync(context.Background())
	if err != nil {
		t.Fatalf("empty source must not fail: %v", err)
	}
	if len(result.Events) != 0 || len(result.Errors) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestSync_UpstreamErrorPropagates(t *testing.T) {
	src := &fakeSource{
		records:  []notion.Page{validPage("a")},
		failures: []error{&notion.APIError{Status: 401, Code: notion.CodeUnauthorized, Message: "nope"}},
	}

	_, err := testPipeline(src).Sync(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
