package model

// MemoryRecord is one entry in a character's memory stream. Append-only:
// content never changes after creation, though Reflection may re-score
// importance.
type MemoryRecord struct {
	ID           string   `json:"id"`
	Tick         int      `json:"tick"`
	EventID      string   `json:"event_id"`
	Content      string   `json:"content"`
	Importance   float64  `json:"importance"` // 0..1
	Participants []string `json:"participants,omitempty"`
}

// Reverie is the synthesized reflection for one agent at end of simulation.
type Reverie struct {
	AgentID    string             `json:"agent_id"`
	Text       string             `json:"text"`
	MemoryIDs  []string           `json:"memory_ids,omitempty"`
	Deltas     map[string]float64 `json:"deltas,omitempty"` // belief/motivation shifts
	Degenerate bool               `json:"degenerate"`       // no simulation data to reflect on
}
