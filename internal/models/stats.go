package models

const (
	xpPerCompletedTask = 10
	xpPerLevel         = 50
)

// Stats is the gamification summary derived from completed tasks.
type Stats struct {
	XP    int `json:"xp"`
	Level int `json:"level"`
}

// StatsFor converts a completed-task count into experience points and level.
func StatsFor(completed int) Stats {
	if completed < 0 {
		completed = 0
	}
	xp := completed * xpPerCompletedTask
	return Stats{XP: xp, Level: xp/xpPerLevel + 1}
}

// ComputeStats counts the completed tasks and derives their stats.
func ComputeStats(tasks []Task) Stats {
	return StatsFor(CountCompleted(tasks))
}

// CountCompleted returns how many tasks are marked completed.
func CountCompleted(tasks []Task) int {
	n := 0
	for _, t := range tasks {
		if t.Completed {
			n++
		}
	}
	return n
}
