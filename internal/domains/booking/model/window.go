package model

import "time"

const (
	DefaultLookaheadHours = 24
	MinLookaheadHours     = 1
	MaxLookaheadHours     = 72

	windowLeadHours = 1
	windowLagHours  = 2
)

// ReminderWindow is the closed range of start times that are due for a reminder.
type ReminderWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ComputeReminderWindow returns [now+(h-1)h, now+(h+2)h]. The slack on both
// sides absorbs jitter in whatever triggers the reminder scan.
func ComputeReminderWindow(lookaheadHours int, now time.Time) ReminderWindow {
	return ReminderWindow{
		Start: now.Add(time.Duration(lookaheadHours-windowLeadHours) * time.Hour),
		End:   now.Add(time.Duration(lookaheadHours+windowLagHours) * time.Hour),
	}
}

func (w ReminderWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func ValidLookahead(hours int) bool {
	return hours >= MinLookaheadHours && hours <= MaxLookaheadHours
}
