package model

// Action is a human-friendly operating mode for a period.
// Keep these values stable; they are intended for CSV output.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
)

// actionEpsilonMW hides solver round-off when labelling a period.
const actionEpsilonMW = 1e-6

// ActionFromFlows labels a period by its net storage flow.
func ActionFromFlows(chargeMW, dischargeMW float64) Action {
	net := dischargeMW - chargeMW
	switch {
	case net < -actionEpsilonMW:
		return ActionCharging
	case net > actionEpsilonMW:
		return ActionDischarging
	default:
		return ActionIdle
	}
}
