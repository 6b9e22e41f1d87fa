package model

type CoherenceStatus string

const (
	CoherencePass      CoherenceStatus = "pass"
	CoherenceFail      CoherenceStatus = "fail"
	CoherenceUnchecked CoherenceStatus = "unchecked"
)

type DialogueLine struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Emotion   string `json:"emotion,omitempty"`
	Subtext   string `json:"subtext,omitempty"`
	Direction string `json:"direction,omitempty"` // stage direction
}

// Scene is the final pipeline output for one slot. Immutable once accepted.
type Scene struct {
	ID              string          `json:"id"`
	Storyline       string          `json:"storyline"`
	Index           int             `json:"index"`
	Location        string          `json:"location"`
	Characters      []string        `json:"characters"`
	Description     string          `json:"description"`
	Dialogue        []DialogueLine  `json:"dialogue"`
	Operators       []string        `json:"operators,omitempty"`
	Hooks           []string        `json:"hooks,omitempty"` // foreshadowing planted here
	Tension         float64         `json:"tension"`
	QualityScore    float64         `json:"quality_score"`
	Coherence       CoherenceStatus `json:"coherence_status"`
	CoherenceIssues []string        `json:"coherence_issues,omitempty"`
	Fallback        bool            `json:"fallback"` // template scene after retry exhaustion
	Summary         string          `json:"summary,omitempty"`
}

// StorylineThread tracks one plot line across the episode. Mutated
// scene-by-scene by the orchestrator.
type StorylineThread struct {
	Label          string   `json:"label"`
	Location       string   `json:"location"`
	CharacterIDs   []string `json:"character_ids"`
	SceneSummaries []string `json:"scene_summaries,omitempty"`
	Tension        float64  `json:"tension"`
}

// SceneContext is everything the prompt chain needs for one slot. Built by
// the scheduler, enriched by the orchestrator, discarded after the scene
// completes.
type SceneContext struct {
	Storyline       string         `json:"storyline"`
	Index           int            `json:"index"`
	TotalScenes     int            `json:"total_scenes"`
	Location        string         `json:"location"`
	Characters      []Character    `json:"characters"`
	Memories        []MemoryRecord `json:"memories,omitempty"`
	Reveries        []Reverie      `json:"reveries,omitempty"`
	Facts           []string       `json:"facts,omitempty"`
	RecentScenes    []string       `json:"recent_scenes,omitempty"` // summaries of accepted scenes
	OpenHooks       []string       `json:"open_hooks,omitempty"`
	CallbackTargets []string       `json:"callback_targets,omitempty"`
	Tension         float64        `json:"tension"`
	FinalForLine    bool           `json:"final_for_line"` // last slot for this storyline in the pattern
}

// CharacterNames returns participant names in context order.
func (sc SceneContext) CharacterNames() []string {
	names := make([]string, 0, len(sc.Characters))
	for _, c := range sc.Characters {
		names = append(names, c.Name)
	}
	return names
}
