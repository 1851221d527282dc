package services

import (
	"context"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"
)

// ParseSchedule parses an RRULE batch schedule. If the rule has no DTSTART, from is used.
func ParseSchedule(expr string, from time.Time) (*rrule.RRule, error) {
	option, err := rrule.StrToROption(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schedule %q: %w", expr, err)
	}
	if option.Dtstart.IsZero() {
		option.Dtstart = from.Truncate(time.Second)
	}

	rule, err := rrule.NewRRule(*option)
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule %q: %w", expr, err)
	}
	return rule, nil
}

// NextRuns returns up to n occurrences of the schedule strictly after from
func NextRuns(rule *rrule.RRule, from time.Time, n int) []time.Time {
	runs := make([]time.Time, 0, n)
	next := from
	for len(runs) < n {
		occurrence := rule.After(next, false)
		if occurrence.IsZero() {
			break
		}
		runs = append(runs, occurrence)
		next = occurrence
	}
	return runs
}

// RunSchedule waits for each occurrence of the schedule and calls run.
// Returns when the context is cancelled or the schedule has no more occurrences.
func RunSchedule(ctx context.Context, rule *rrule.RRule, run func(ctx context.Context), logger *zap.Logger) error {
	return runSchedule(ctx, rule, time.Now, sleepContext, run, logger)
}

func runSchedule(
	ctx context.Context,
	rule *rrule.RRule,
	now func() time.Time,
	sleep func(ctx context.Context, d time.Duration) error,
	run func(ctx context.Context),
	logger *zap.Logger,
) error {
	last := now()
	for {
		next := rule.After(last, false)
		if next.IsZero() {
			logger.Info("Schedule has no further runs")
			return nil
		}

		logger.Info("Waiting for next scheduled run", zap.Time("next_run", next))
		if err := sleep(ctx, next.Sub(now())); err != nil {
			return err
		}

		logger.Info("Starting scheduled run", zap.Time("scheduled_for", next))
		run(ctx)
		last = next
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
