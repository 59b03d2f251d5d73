// Package cronexpr parses and evaluates the orchestrator's 6-field cron
// schedules (seconds included) plus the "@manual" sentinel, shared by the
// Job Manager (create-time validation) and the Scheduler (due-check).
package cronexpr

import (
	"time"

	"github.com/robfig/cron/v3"

	"eltorch/internal/apperrors"
)

// Manual is the schedule sentinel meaning "never fires on a tick; run only
// on explicit trigger."
const Manual = "@manual"

var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Validate checks that schedule is either Manual or a well-formed 6-field
// cron expression. It returns apperrors.ValidationError on malformed input.
func Validate(schedule string) error {
	if schedule == Manual {
		return nil
	}
	if _, err := parser.Parse(schedule); err != nil {
		return apperrors.Validation("schedule", "schedule must be \""+Manual+"\" or a valid 6-field cron expression: "+err.Error())
	}
	return nil
}

// Schedule wraps a parsed cron.Schedule for repeated due-checks against a
// tick window, or reports IsManual for the "@manual" sentinel.
type Schedule struct {
	IsManual bool
	sched    cron.Schedule
}

// Parse parses schedule, assuming it has already passed Validate.
func Parse(schedule string) (*Schedule, error) {
	if schedule == Manual {
		return &Schedule{IsManual: true}, nil
	}
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, apperrors.Validation("schedule", "schedule must be \""+Manual+"\" or a valid 6-field cron expression: "+err.Error())
	}
	return &Schedule{sched: sched}, nil
}

// DueSince reports whether the schedule has a firing instant in the window
// (since, now], per the Scheduler's due-check definition: the next
// scheduled firing after `since` is <= `now`.
func (s *Schedule) DueSince(since, now time.Time) bool {
	if s.IsManual {
		return false
	}
	next := s.sched.Next(since)
	return !next.After(now)
}
