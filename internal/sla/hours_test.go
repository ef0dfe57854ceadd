package sla

import (
	"testing"
	"time"

	"github.com/spec-kit/itsm-service/internal/domain"
)

func weekdayPolicy(responseMinutes, resolutionMinutes int) domain.SLAPolicy {
	return domain.SLAPolicy{
		Name:              "business hours",
		ResponseMinutes:   responseMinutes,
		ResolutionMinutes: resolutionMinutes,
		BusinessHoursOnly: true,
		BusinessStart:     "09:00",
		BusinessEnd:       "17:00",
		BusinessDays:      "1,2,3,4,5",
		IsActive:          true,
	}
}

func TestAddBusinessMinutes(t *testing.T) {
	window, err := ParseBusinessWindow(weekdayPolicy(60, 90))
	if err != nil {
		t.Fatalf("ParseBusinessWindow() error = %v", err)
	}

	tests := []struct {
		name    string
		start   time.Time
		minutes int
		want    time.Time
	}{
		{
			name:    "before hours snaps to window start",
			start:   time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), // Monday
			minutes: 60,
			want:    time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "friday evening rolls over weekend",
			start:   time.Date(2024, 1, 5, 16, 30, 0, 0, time.UTC), // Friday
			minutes: 90,
			want:    time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC), // Monday
		},
		{
			name:    "after hours rolls to next day",
			start:   time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC),
			minutes: 30,
			want:    time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
		},
		{
			name:    "weekend start rolls to monday",
			start:   time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC), // Saturday
			minutes: 15,
			want:    time.Date(2024, 1, 8, 9, 15, 0, 0, time.UTC),
		},
		{
			name:    "zero minutes returns snapped start",
			start:   time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC), // Saturday
			minutes: 0,
			want:    time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
		},
		{
			name:    "zero minutes inside window unchanged",
			start:   time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
			minutes: 0,
			want:    time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name:    "spans multiple days",
			start:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			minutes: 8*60 + 8*60 + 30, // two full days plus 30 minutes
			want:    time.Date(2024, 1, 3, 9, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddBusinessMinutes(tt.start, tt.minutes, window)
			if !got.Equal(tt.want) {
				t.Errorf("AddBusinessMinutes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddBusinessMinutesMonotonic(t *testing.T) {
	window, err := ParseBusinessWindow(weekdayPolicy(60, 90))
	if err != nil {
		t.Fatalf("ParseBusinessWindow() error = %v", err)
	}

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for hour := 0; hour < 24*14; hour += 7 {
		from := start.Add(time.Duration(hour) * time.Hour)
		for _, minutes := range []int{0, 1, 59, 60, 480, 2000} {
			got := AddBusinessMinutes(from, minutes, window)
			if got.Before(from) {
				t.Fatalf("result %v precedes start %v (minutes=%d)", got, from, minutes)
			}
			if !window.days[isoWeekday(got)] {
				t.Fatalf("result %v falls on non-business day", got)
			}
			clock := got.Hour()*60 + got.Minute()
			if clock < window.startMinute || clock > window.endMinute {
				t.Fatalf("result %v outside business window", got)
			}
		}
	}
}

func TestCalculateDueDatesWallClock(t *testing.T) {
	policy := domain.SLAPolicy{
		ResponseMinutes:   60,
		ResolutionMinutes: 480,
		BusinessHoursOnly: false,
	}
	createdAt := time.Date(2024, 1, 6, 23, 45, 0, 0, time.UTC) // Saturday night

	due, err := CalculateDueDates(createdAt, policy)
	if err != nil {
		t.Fatalf("CalculateDueDates() error = %v", err)
	}
	if want := createdAt.Add(60 * time.Minute); !due.ResponseDue.Equal(want) {
		t.Errorf("ResponseDue = %v, want %v", due.ResponseDue, want)
	}
	if want := createdAt.Add(480 * time.Minute); !due.ResolutionDue.Equal(want) {
		t.Errorf("ResolutionDue = %v, want %v", due.ResolutionDue, want)
	}
}

func TestCalculateDueDatesIndependentAnchors(t *testing.T) {
	policy := weekdayPolicy(60, 90)
	createdAt := time.Date(2024, 1, 5, 16, 30, 0, 0, time.UTC) // Friday

	due, err := CalculateDueDates(createdAt, policy)
	if err != nil {
		t.Fatalf("CalculateDueDates() error = %v", err)
	}
	if want := time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC); !due.ResponseDue.Equal(want) {
		t.Errorf("ResponseDue = %v, want %v", due.ResponseDue, want)
	}
	// Resolution is anchored at createdAt, not at the response deadline.
	if want := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC); !due.ResolutionDue.Equal(want) {
		t.Errorf("ResolutionDue = %v, want %v", due.ResolutionDue, want)
	}
}

func TestParseBusinessWindowErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.SLAPolicy)
	}{
		{"bad start", func(p *domain.SLAPolicy) { p.BusinessStart = "9am" }},
		{"bad end", func(p *domain.SLAPolicy) { p.BusinessEnd = "25:00" }},
		{"inverted window", func(p *domain.SLAPolicy) { p.BusinessStart = "17:00"; p.BusinessEnd = "09:00" }},
		{"bad day", func(p *domain.SLAPolicy) { p.BusinessDays = "1,2,8" }},
		{"no days", func(p *domain.SLAPolicy) { p.BusinessDays = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := weekdayPolicy(60, 90)
			tt.mutate(&policy)
			if _, err := ParseBusinessWindow(policy); err == nil {
				t.Error("ParseBusinessWindow() error = nil, want error")
			}
		})
	}
}
