package dates

import (
	"testing"
	"time"
)

func TestParse_MinutePrecision(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	got, err := Parse("2024-03-01T08:30", loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 3, 1, 8, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("parsed = %v, want %v", got, want)
	}
	if got.Location() != loc {
		t.Errorf("location = %v, want %v", got.Location(), loc)
	}
}

func TestParse_SecondsTolerated(t *testing.T) {
	got, err := Parse("2024-03-01T08:30:45", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Second() != 45 {
		t.Errorf("second = %d, want 45", got.Second())
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "not-a-date", "2024-13-01T00:00", "01.03.2024 08:30"} {
		if _, err := Parse(in, time.UTC); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestParseDay_StartOfDay(t *testing.T) {
	got, err := ParseDay("2024-03-01", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Errorf("not start of day: %v", got)
	}
}

func TestDayKey_RoundTrip(t *testing.T) {
	ts, err := Parse("2024-03-01T23:59", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if key := DayKey(ts); key != "2024-03-01" {
		t.Errorf("DayKey = %q, want 2024-03-01", key)
	}
}

func TestEndOfDay(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	end := EndOfDay(ts)
	if DayKey(end) != "2024-03-01" {
		t.Errorf("end of day left the day: %v", end)
	}
	if end.Hour() != 23 || end.Minute() != 59 || end.Second() != 59 {
		t.Errorf("end = %v, want 23:59:59.999", end)
	}
	// A record at 23:59 on the boundary day must not sort after the
	// extended range end.
	last, _ := Parse("2024-03-01T23:59", time.UTC)
	if last.After(end) {
		t.Errorf("23:59 record falls outside the extended range end")
	}
	// The first instant of the next day must.
	next := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	if !next.After(end) {
		t.Errorf("next day start should be after the range end")
	}
}

func TestEpochMillis(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := EpochMillis(ts); got != 1709251200000 {
		t.Errorf("EpochMillis = %d, want 1709251200000", got)
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	ts, err := Parse("2024-03-01T08:05", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if got := Format(ts); got != "2024-03-01T08:05" {
		t.Errorf("Format = %q", got)
	}
}
