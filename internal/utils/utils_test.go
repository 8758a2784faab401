package utils

import (
	"testing"
	"time"
)

func TestFormatClock(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{59 * time.Second, "00:59"},
		{25*time.Minute + 3*time.Second, "25:03"},
		{time.Hour, "01:00:00"},
		{2*time.Hour + 5*time.Minute + 9*time.Second + 900*time.Millisecond, "02:05:09"},
	}
	for _, c := range cases {
		if got := FormatClock(c.in); got != c.want {
			t.Errorf("FormatClock(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatTimeDuration(t *testing.T) {
	if got := FormatTimeDuration(90 * time.Second); got != "1m 30s" {
		t.Errorf("got %q", got)
	}
	if got := FormatTimeDuration(time.Hour + time.Second); got != "1h 0m 1s" {
		t.Errorf("got %q", got)
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("Dra. María Fernanda", 10); got != "Dra. Ma..." {
		t.Errorf("got %q", got)
	}
	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := TruncateString("abcdef", 2); got != "ab" {
		t.Errorf("got %q", got)
	}
}
