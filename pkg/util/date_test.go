package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeCalendarDate(t *testing.T) {
    got, ok := ParseTime("2024-10-10")
    if !ok {
        t.Fatalf("expected ok")
    }
    want := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
    if !got.Equal(want) {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestCompactDateRoundTrip(t *testing.T) {
    d := time.Date(2021, 3, 7, 0, 0, 0, 0, time.UTC)
    s := CompactDate(d)
    if s != "20210307" {
        t.Fatalf("unexpected compact form %q", s)
    }
    back, ok := ParseCompactDate(s)
    if !ok || !back.Equal(d) {
        t.Fatalf("round trip failed: %v", back)
    }
}

func TestDateRangeInclusive(t *testing.T) {
    start := time.Date(2021, 1, 30, 13, 0, 0, 0, time.UTC)
    end := time.Date(2021, 2, 2, 0, 0, 0, 0, time.UTC)
    got := DateRange(start, end)
    if len(got) != 4 {
        t.Fatalf("expected 4 dates, got %d", len(got))
    }
    if !got[0].Equal(time.Date(2021, 1, 30, 0, 0, 0, 0, time.UTC)) {
        t.Fatalf("unexpected first date %v", got[0])
    }
    if !got[3].Equal(end) {
        t.Fatalf("unexpected last date %v", got[3])
    }
}

func TestDateRangeReversed(t *testing.T) {
    start := time.Date(2021, 2, 2, 0, 0, 0, 0, time.UTC)
    if got := DateRange(start, start.AddDate(0, 0, -1)); got != nil {
        t.Fatalf("expected nil for reversed range, got %v", got)
    }
}
