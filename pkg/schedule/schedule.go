package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerInfo describes when a cron expression will next fire relative to
// a reference time.
type TriggerInfo struct {
	Next          time.Time
	Expression    string
	TimeUntilNext time.Duration
}

// NextTrigger parses a standard five-field cron expression and reports
// its next firing after refTime.
func NextTrigger(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	next := sched.Next(refTime)
	return &TriggerInfo{
		Next:          next,
		Expression:    cronExpr,
		TimeUntilNext: next.Sub(refTime),
	}, nil
}
