package models

import (
	"time"
)

// legacyTimeLayouts are the formats found in timestamp columns. Older rows were
// written by SQLite's datetime('now') or without a zone.
var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
}

// FormatTime encodes t as RFC3339 text in UTC
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// FormatTimePtr encodes an optional timestamp
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// ParseTime decodes a stored timestamp; unreadable values yield the zero time
func ParseTime(s string) time.Time {
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ParseTimePtr decodes an optional timestamp; NULL and empty stay nil
func ParseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t := ParseTime(*s)
	if t.IsZero() {
		return nil
	}
	return &t
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
