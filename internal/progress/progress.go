// Package progress derives completion state from a task's effort fields.
// Everything here is pure: safe to call on stale data without synchronization.
package progress

// Status tiers by progress percentage. Lower bounds are inclusive.
const (
	StatusReady       = "ready"
	StatusStarted     = "started"
	StatusProgressing = "progressing"
	StatusNearDone    = "near-done"
	StatusDone        = "done"
)

type Report struct {
	WorkedHours float64 `json:"worked_hours"`
	Percent     float64 `json:"percent"`
	Status      string  `json:"status"`
}

// Describe computes worked hours and the status tier for a task.
// A zero estimate yields zero percent rather than a division by zero.
func Describe(estimatedHours, remainingHours float64, completed bool) Report {
	worked := estimatedHours - remainingHours
	if worked < 0 {
		worked = 0
	}

	var percent float64
	if estimatedHours > 0 {
		percent = worked / estimatedHours * 100
	}

	return Report{
		WorkedHours: worked,
		Percent:     percent,
		Status:      status(percent, completed),
	}
}

func status(percent float64, completed bool) string {
	switch {
	case completed:
		return StatusDone
	case percent >= 75:
		return StatusNearDone
	case percent >= 50:
		return StatusProgressing
	case percent >= 25:
		return StatusStarted
	default:
		return StatusReady
	}
}
