package model

type EventType string

const (
	EventInteraction EventType = "interaction"
	EventDialogue    EventType = "dialogue"
	EventMovement    EventType = "movement"
	EventObservation EventType = "observation"
	EventEnvironment EventType = "environment"
)

// Event is one entry in the global simulation timeline. Immutable once
// recorded.
type Event struct {
	ID           string    `json:"id"`
	Tick         int       `json:"tick"`
	Type         EventType `json:"type"`
	Description  string    `json:"description"`
	Participants []string  `json:"participants"`
	Location     string    `json:"location"`
	Impact       float64   `json:"impact"` // 0..1 narrative weight
}

// Timeline is the total-ordered record of a simulation run: events sorted by
// (tick, agent iteration index within the tick).
type Timeline struct {
	Events []Event `json:"events"`
	Ticks  int     `json:"ticks"`
}

// Empty reports whether the run produced no events.
func (t Timeline) Empty() bool { return len(t.Events) == 0 }

// Slice returns the events that list the given character as a participant.
// Order is preserved.
func (t Timeline) Slice(characterID string) []Event {
	var out []Event
	for _, ev := range t.Events {
		for _, p := range ev.Participants {
			if p == characterID {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}
