package dataset

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestReadRecordsMapsHeaderAndBackfills(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"event_action,date,campaign,channel,landing_url,count",
		"page_view,2025-03-01,spring_sale,organic,/landing,120",
		"form_start,2025-03-01,,,/landing,40",
	}, "\n"))

	records, err := ReadRecords(context.Background(), in)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.EventAction != "page_view" || first.Count != 120 {
		t.Fatalf("unexpected first record: %+v", first)
	}
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !first.Date.Equal(want) {
		t.Fatalf("expected date %v, got %v", want, first.Date)
	}

	second := records[1]
	if second.Campaign != "(not set)" || second.Channel != "(not set)" {
		t.Fatalf("expected empty dimensions to become the sentinel, got %+v", second)
	}
}

func TestReadRecordsAcceptsColumnAliases(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"timestamp,event_action,campaign,channel,url,count,extra",
		"20250302,page_view,c,ch,/x,7,ignored",
	}, "\n"))

	records, err := ReadRecords(context.Background(), in)
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if records[0].LandingURL != "/x" {
		t.Fatalf("url alias not mapped: %+v", records[0])
	}
	if records[0].Date.Day() != 2 {
		t.Fatalf("compact date layout not parsed: %+v", records[0])
	}
}

func TestReadRecordsRejectsBadRowsWithLineNumbers(t *testing.T) {
	cases := []struct {
		name string
		row  string
		want string
	}{
		{"negative count", "page_view,2025-03-01,c,ch,/x,-1", "negative"},
		{"bad count", "page_view,2025-03-01,c,ch,/x,many", "not an integer"},
		{"bad date", "page_view,yesterday,c,ch,/x,1", "supported layout"},
		{"empty action", ",2025-03-01,c,ch,/x,1", "event_action"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := strings.NewReader("event_action,date,campaign,channel,landing_url,count\n" + tc.row)
			_, err := ReadRecords(context.Background(), in)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), "line 2") {
				t.Fatalf("expected line number in error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestReadRecordsRejectsMissingColumn(t *testing.T) {
	in := strings.NewReader("event_action,date,campaign,channel,count\nx,2025-03-01,c,ch,1")
	_, err := ReadRecords(context.Background(), in)
	if err == nil || !strings.Contains(err.Error(), "landing_url") {
		t.Fatalf("expected missing column error, got %v", err)
	}
}
