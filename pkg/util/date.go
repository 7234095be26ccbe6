package util

import (
    "strconv"
    "time"
)

// DateLayout is the canonical calendar-date form used across the pipeline.
const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, calendar date, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(DateLayout, s); err == nil {
        return t.UTC(), true
    }
    if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
        return time.Unix(ts, 0), true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
    if t, ok := ParseTime(s); ok {
        return t
    }
    return def
}

// DateOnly truncates t to midnight UTC. All pipeline keys are date-only.
func DateOnly(t time.Time) time.Time {
    return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CompactDate renders t as yyyymmdd, the archive URL form.
func CompactDate(t time.Time) string {
    return t.Format("20060102")
}

// ParseCompactDate parses a yyyymmdd integer-style date string.
func ParseCompactDate(s string) (time.Time, bool) {
    t, err := time.Parse("20060102", s)
    if err != nil {
        return time.Time{}, false
    }
    return t, true
}

// DateRange returns every calendar date in [start, end] inclusive, midnight UTC.
func DateRange(start, end time.Time) []time.Time {
    start = DateOnly(start)
    end = DateOnly(end)
    if end.Before(start) {
        return nil
    }
    out := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
    for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
        out = append(out, d)
    }
    return out
}
