package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

type TriggerInfo struct {
	Next       time.Time
	Last       time.Time
	Expression string

	TimeSinceLast time.Duration
	TimeUntilNext time.Duration
}

// GetTriggerInfo describes a standard five-field schedule (descriptors such
// as @daily included) relative to refTime. Last is zero when no run happened
// within the past year.
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	nextTime := schedule.Next(refTime)

	var prevTime time.Time
	searchStart := refTime.Add(-time.Minute)
	for i := range 366 * 24 {
		candidate := schedule.Next(searchStart.Add(-time.Duration(i) * time.Hour))
		if !candidate.After(refTime) {
			prevTime = candidate
			break
		}
	}

	info := &TriggerInfo{
		Expression:    cronExpr,
		Next:          nextTime,
		Last:          prevTime,
		TimeUntilNext: nextTime.Sub(refTime),
	}
	if !prevTime.IsZero() {
		info.TimeSinceLast = refTime.Sub(prevTime)
	}
	return info, nil
}
