package strategy

import (
	"fmt"
	"strings"

	"solar-bess-sizer/internal/model"
)

// ScheduleParams implements a simple daily time-window strategy:
// - Charge from any solar surplus at all times
// - Discharge into the deficit only during [DischargeStart, DischargeEnd)
// - Otherwise IDLE
//
// Period t starts at StartMinute + t*PeriodMinutes on a 24h clock.
type ScheduleParams struct {
	DischargeStart string // "HH:MM"
	DischargeEnd   string // "HH:MM"
	// StartMinute is the clock time of period 0 in minutes after midnight.
	StartMinute   int
	PeriodMinutes int // default 60
}

type ScheduleStrategy struct {
	Params ScheduleParams

	start, end int
}

func NewScheduleStrategy(p ScheduleParams) (*ScheduleStrategy, error) {
	ds, err := parseHHMM(p.DischargeStart)
	if err != nil {
		return nil, err
	}
	de, err := parseHHMM(p.DischargeEnd)
	if err != nil {
		return nil, err
	}
	if p.PeriodMinutes <= 0 {
		p.PeriodMinutes = 60
	}
	return &ScheduleStrategy{Params: p, start: ds, end: de}, nil
}

func (s *ScheduleStrategy) Name() string { return "schedule" }

func (s *ScheduleStrategy) Decide(ctx Context) model.Dispatch {
	solar := ctx.Battery.Params.SolarCapacityMW * ctx.Availability
	net := ctx.DemandMW - solar
	if net < 0 {
		return model.Dispatch{PowerMW: net}
	}
	tMins := (s.Params.StartMinute + ctx.Index*s.Params.PeriodMinutes) % (24 * 60)
	if inWindow(tMins, s.start, s.end) {
		return model.Dispatch{PowerMW: net}
	}
	return model.Dispatch{}
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// inWindow checks whether tMins is in [start, end) on a 24h clock.
// If start == end, the window is empty (always false).
// If start > end, it wraps across midnight.
func inWindow(tMins, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return tMins >= start && tMins < end
	}
	return tMins >= start || tMins < end
}
