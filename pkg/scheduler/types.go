package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger describes when a job fires: a fixed daily time, a weekly
// day+time, or an arbitrary cron expression.
type Trigger struct {
	Kind   string `json:"kind"` // daily, weekly, cron
	Hour   int    `json:"hour,omitempty"`
	Minute int    `json:"minute,omitempty"`
	Day    string `json:"day,omitempty"` // mon..sun, weekly only
	Expr   string `json:"expr,omitempty"`
}

// Daily builds a trigger firing every day at hour:minute.
func Daily(hour, minute int) Trigger {
	return Trigger{Kind: "daily", Hour: hour, Minute: minute}
}

// Weekly builds a trigger firing once a week at day hour:minute.
func Weekly(day string, hour, minute int) Trigger {
	return Trigger{Kind: "weekly", Day: day, Hour: hour, Minute: minute}
}

// Cron builds a trigger from a 5-field cron expression.
func Cron(expr string) Trigger {
	return Trigger{Kind: "cron", Expr: expr}
}

var dayNumbers = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// expr converts the trigger to a 5-field cron expression.
func (t Trigger) expr() (string, error) {
	switch t.Kind {
	case "daily":
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			return "", fmt.Errorf("invalid daily time %02d:%02d", t.Hour, t.Minute)
		}
		return fmt.Sprintf("%d %d * * *", t.Minute, t.Hour), nil
	case "weekly":
		day, ok := dayNumbers[strings.ToLower(t.Day)]
		if !ok {
			return "", fmt.Errorf("invalid weekday %q", t.Day)
		}
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			return "", fmt.Errorf("invalid weekly time %02d:%02d", t.Hour, t.Minute)
		}
		return fmt.Sprintf("%d %d * * %d", t.Minute, t.Hour, day), nil
	case "cron":
		if t.Expr == "" {
			return "", fmt.Errorf("empty cron expression")
		}
		return t.Expr, nil
	default:
		return "", fmt.Errorf("unknown trigger kind %q", t.Kind)
	}
}

// Next computes the first fire time strictly after now.
func (t Trigger) Next(now time.Time) (time.Time, error) {
	expr, err := t.expr()
	if err != nil {
		return time.Time{}, err
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse trigger: %w", err)
	}
	return sched.Next(now), nil
}

// Validate reports whether the trigger parses.
func (t Trigger) Validate() error {
	_, err := t.Next(time.Now())
	return err
}

// JobState is the runtime state of a scheduled job.
type JobState struct {
	NextRunAt  time.Time `json:"next_run_at"`
	LastRunAt  time.Time `json:"last_run_at,omitempty"`
	LastStatus string    `json:"last_status,omitempty"` // ok, error, rejected
	LastError  string    `json:"last_error,omitempty"`
	Live       int       `json:"live"`     // executions in flight
	Rejected   int       `json:"rejected"` // firings dropped at the cap
}

// Job is one live trigger definition. The id is deterministic from the
// owning tenant and the job kind, so re-registration replaces rather than
// duplicates.
type Job struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Kind      string    `json:"kind"`
	Trigger   Trigger   `json:"trigger"`
	State     JobState  `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobID derives the deterministic id for a (tenant, kind) pair.
func JobID(tenantID, kind string) string {
	return fmt.Sprintf("%s_report_%s", kind, tenantID)
}
