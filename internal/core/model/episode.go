package model

// Brief is the user-supplied creative seed for an episode.
type Brief struct {
	Title    string   `json:"title"`
	Synopsis string   `json:"synopsis"`
	Themes   []string `json:"themes,omitempty"`
	Genre    string   `json:"genre,omitempty"`
	Tone     string   `json:"tone,omitempty"`
	Pattern  string   `json:"pattern"` // storyline interleaving, e.g. "ABABCAB"
}

// LedgerSummary is the drama ledger rollup attached to a finished episode
// for analytics and screenplay-formatting consumers.
type LedgerSummary struct {
	OperatorCounts  map[string]int `json:"operator_counts,omitempty"`
	UnresolvedHooks []string       `json:"unresolved_hooks,omitempty"`
	TensionCurve    []float64      `json:"tension_curve,omitempty"`
}

// Episode is the produced surface: ordered scenes plus per-scene flags so
// consumers can decide what to accept, regenerate or edit.
type Episode struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Synopsis         string        `json:"synopsis,omitempty"`
	Themes           []string      `json:"themes,omitempty"`
	Genre            string        `json:"genre,omitempty"`
	Tone             string        `json:"tone,omitempty"`
	Scenes           []Scene       `json:"scenes"`
	AverageQuality   float64       `json:"average_quality"`
	FallbackScenes   []int         `json:"fallback_scenes,omitempty"`   // indices of template scenes
	IncoherentScenes []int         `json:"incoherent_scenes,omitempty"` // indices with coherence_status=fail
	Warnings         []string      `json:"warnings,omitempty"`
	Ledger           LedgerSummary `json:"ledger"`
	Truncated        bool          `json:"truncated"` // wall-clock budget stopped scheduling
}
