package taskwarrior

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/harrisonrobin/raigen/pkg/model"
)

// DefaultEffort is used for tasks without an estimate.
const DefaultEffort = 30 * time.Minute

var durationPart = regexp.MustCompile(`(\d+)([HMS])`)

// ParseDuration parses the ISO 8601 time durations Taskwarrior exports (PT1H, PT30M, PT1H30M).
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if len(s) < 3 || s[:2] != "PT" {
		return 0, fmt.Errorf("invalid ISO 8601 duration: %s", s)
	}

	var total time.Duration
	for _, match := range durationPart.FindAllStringSubmatch(s[2:], -1) {
		value, _ := strconv.Atoi(match[1])
		switch match[2] {
		case "H":
			total += time.Duration(value) * time.Hour
		case "M":
			total += time.Duration(value) * time.Minute
		case "S":
			total += time.Duration(value) * time.Second
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("invalid ISO 8601 duration: %s", s)
	}
	return total, nil
}

// ToPlanTasks converts pending tasks into planner tasks. Other statuses are skipped.
//
// Mapping: estimate → effort (default 30m, rounded up to whole minutes), priority H/M/L → impact 3/2/1,
// Taskwarrior urgency ≥10 / ≥5 / else → urgency 3/2/1, tags +deep/+focus → high
// energy and +admin/+quick → low energy, project → goal id.
func ToPlanTasks(tasks []Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != PENDING {
			continue
		}
		effort, err := ParseDuration(t.Est)
		if err != nil || effort == 0 {
			effort = DefaultEffort
		}
		out = append(out, model.Task{
			Title:     t.Description,
			GoalID:    t.Project,
			EffortMin: effortMinutes(effort),
			Energy:    energyOf(t),
			Urgency:   urgencyOf(t.Urgency),
			Impact:    impactOf(t.Priority),
		})
	}
	return out
}

// effortMinutes rounds up to whole minutes so short estimates never become zero.
func effortMinutes(d time.Duration) int {
	return int((d + time.Minute - 1) / time.Minute)
}

func energyOf(t Task) string {
	switch {
	case t.hasTag("deep", "focus"):
		return model.EnergyHigh
	case t.hasTag("admin", "quick"):
		return model.EnergyLow
	default:
		return model.EnergyMedium
	}
}

func urgencyOf(u float64) int {
	switch {
	case u >= 10:
		return 3
	case u >= 5:
		return 2
	default:
		return 1
	}
}

func impactOf(priority string) int {
	switch priority {
	case "H":
		return 3
	case "M":
		return 2
	default:
		return 1
	}
}
