package scraper

import (
	"testing"
	"time"
)

func TestParseDateRelative(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input    string
		expected time.Time
	}{
		{"5 minutos atrás", now.Add(-5 * time.Minute)},
		{"2 horas atrás", now.Add(-2 * time.Hour)},
		{"1 dia atras", now.AddDate(0, 0, -1)},
		{"3 days ago", now.AddDate(0, 0, -3)},
	}

	for _, tt := range tests {
		if got := ParseDate(tt.input, now); !got.Equal(tt.expected) {
			t.Errorf("ParseDate(%q): expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestParseDatePortugueseMonths(t *testing.T) {
	now := time.Now()

	tests := []struct {
		input string
		month time.Month
		day   int
	}{
		{"15 de março de 2024", time.March, 15},
		{"1 de dezembro de 2023", time.December, 1},
		{"7 de out. de 2024", time.October, 7},
	}

	for _, tt := range tests {
		got := ParseDate(tt.input, now)
		if got.IsZero() {
			t.Errorf("ParseDate(%q): expected a date, got zero", tt.input)
			continue
		}
		if got.Month() != tt.month || got.Day() != tt.day {
			t.Errorf("ParseDate(%q): expected %s %d, got %v", tt.input, tt.month, tt.day, got)
		}
	}
}

func TestParseDateISO(t *testing.T) {
	got := ParseDate("2024-03-01T10:30:00Z", time.Now())

	expected := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	if !got.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, input := range []string{"", "   ", "garbage"} {
		if got := ParseDate(input, time.Now()); !got.IsZero() {
			t.Errorf("ParseDate(%q): expected zero time, got %v", input, got)
		}
	}
}
