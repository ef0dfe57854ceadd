package sla

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/itsm-service/internal/domain"
)

// BusinessWindow is the parsed form of a policy's business-hours settings:
// a daily window in minutes from midnight plus the set of working weekdays.
type BusinessWindow struct {
	startMinute int
	endMinute   int
	days        map[int]bool // ISO weekday, Monday=1 .. Sunday=7
}

// DueDates carries the computed deadlines for a ticket.
type DueDates struct {
	ResponseDue   time.Time
	ResolutionDue time.Time
}

// ParseBusinessWindow validates and parses the window settings of a policy.
func ParseBusinessWindow(policy domain.SLAPolicy) (BusinessWindow, error) {
	start, err := parseClock(policy.BusinessStart)
	if err != nil {
		return BusinessWindow{}, fmt.Errorf("business_start: %w", err)
	}
	end, err := parseClock(policy.BusinessEnd)
	if err != nil {
		return BusinessWindow{}, fmt.Errorf("business_end: %w", err)
	}
	if end <= start {
		return BusinessWindow{}, fmt.Errorf("business window %q-%q is empty", policy.BusinessStart, policy.BusinessEnd)
	}
	days, err := parseDays(policy.BusinessDays)
	if err != nil {
		return BusinessWindow{}, err
	}
	return BusinessWindow{startMinute: start, endMinute: end, days: days}, nil
}

// CalculateDueDates computes response and resolution deadlines for a ticket
// created at createdAt under the given policy. For 24/7 policies this is
// plain wall-clock addition; otherwise both deadlines are walked forward in
// business minutes, each anchored independently at createdAt (resolution is
// not chained onto the response deadline).
func CalculateDueDates(createdAt time.Time, policy domain.SLAPolicy) (DueDates, error) {
	if !policy.BusinessHoursOnly {
		return DueDates{
			ResponseDue:   createdAt.Add(time.Duration(policy.ResponseMinutes) * time.Minute),
			ResolutionDue: createdAt.Add(time.Duration(policy.ResolutionMinutes) * time.Minute),
		}, nil
	}
	window, err := ParseBusinessWindow(policy)
	if err != nil {
		return DueDates{}, err
	}
	return DueDates{
		ResponseDue:   AddBusinessMinutes(createdAt, policy.ResponseMinutes, window),
		ResolutionDue: AddBusinessMinutes(createdAt, policy.ResolutionMinutes, window),
	}, nil
}

// AddBusinessMinutes returns the instant at which the given number of
// business minutes has elapsed since start. Time outside the window does not
// consume minutes: a start before business hours snaps to the window start,
// a start after hours or on a non-working day rolls to the next working day.
// Zero minutes returns the (possibly snapped) start unchanged.
func AddBusinessMinutes(start time.Time, minutes int, window BusinessWindow) time.Time {
	remaining := minutes
	if remaining < 0 {
		remaining = 0
	}
	cur := start
	for {
		if !window.days[isoWeekday(cur)] {
			cur = nextDayAtWindowStart(cur, window)
			continue
		}
		clock := cur.Hour()*60 + cur.Minute()
		if clock < window.startMinute {
			cur = dayAtMinute(cur, window.startMinute)
			continue
		}
		if clock >= window.endMinute {
			cur = nextDayAtWindowStart(cur, window)
			continue
		}
		if remaining <= 0 {
			return cur
		}
		remainingToday := window.endMinute - clock
		step := remaining
		if step > remainingToday {
			step = remainingToday
		}
		cur = cur.Add(time.Duration(step) * time.Minute)
		remaining -= step
		if remaining <= 0 {
			return cur
		}
		cur = nextDayAtWindowStart(cur, window)
	}
}

// isoWeekday maps Go's Sunday=0 convention onto Monday=1 .. Sunday=7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func dayAtMinute(t time.Time, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), minute/60, minute%60, 0, 0, t.Location())
}

func nextDayAtWindowStart(t time.Time, window BusinessWindow) time.Time {
	next := t.AddDate(0, 0, 1)
	return dayAtMinute(next, window.startMinute)
}

func parseClock(value string) (int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour*60 + minute, nil
}

func parseDays(value string) (map[int]bool, error) {
	days := make(map[int]bool)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		day, err := strconv.Atoi(part)
		if err != nil || day < 1 || day > 7 {
			return nil, fmt.Errorf("invalid business day %q", part)
		}
		days[day] = true
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("business_days %q contains no working days", value)
	}
	return days, nil
}
