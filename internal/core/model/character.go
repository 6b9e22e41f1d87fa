package model

import "sort"

// Personality holds the Big Five traits plus any extra traits a scenario
// defines. All values are expected in [0,1].
type Personality struct {
	Openness          float64            `json:"openness"`
	Conscientiousness float64            `json:"conscientiousness"`
	Extraversion      float64            `json:"extraversion"`
	Agreeableness     float64            `json:"agreeableness"`
	Neuroticism       float64            `json:"neuroticism"`
	Extra             map[string]float64 `json:"extra,omitempty"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Normalized returns a copy with every trait clamped to [0,1].
func (p Personality) Normalized() Personality {
	out := Personality{
		Openness:          clamp01(p.Openness),
		Conscientiousness: clamp01(p.Conscientiousness),
		Extraversion:      clamp01(p.Extraversion),
		Agreeableness:     clamp01(p.Agreeableness),
		Neuroticism:       clamp01(p.Neuroticism),
	}
	if len(p.Extra) > 0 {
		out.Extra = make(map[string]float64, len(p.Extra))
		for k, v := range p.Extra {
			out.Extra[k] = clamp01(v)
		}
	}
	return out
}

// Dominant returns the strongest Big Five trait name. Ties resolve to the
// first in canonical order so callers get a stable answer.
func (p Personality) Dominant() string {
	names := []string{"openness", "conscientiousness", "extraversion", "agreeableness", "neuroticism"}
	values := []float64{p.Openness, p.Conscientiousness, p.Extraversion, p.Agreeableness, p.Neuroticism}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return names[best]
}

// Relationship is one character's view of another. Affinity runs -1..1,
// trust 0..1.
type Relationship struct {
	CharacterID string  `json:"character_id"`
	Affinity    float64 `json:"affinity"`
	Trust       float64 `json:"trust"`
	Kind        string  `json:"kind,omitempty"` // acquaintance, friend, rival, ...
}

type Goal struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Priority    float64 `json:"priority"`
	Progress    float64 `json:"progress"`
	Completed   bool    `json:"completed"`
}

// EmotionalState tracks six basic emotions, each 0..1.
type EmotionalState struct {
	Happiness float64 `json:"happiness"`
	Sadness   float64 `json:"sadness"`
	Anger     float64 `json:"anger"`
	Fear      float64 `json:"fear"`
	Surprise  float64 `json:"surprise"`
	Disgust   float64 `json:"disgust"`
}

// NeutralEmotions is the starting state for a fresh character.
func NeutralEmotions() EmotionalState {
	return EmotionalState{Happiness: 0.5}
}

// Dominant returns the strongest emotion and its level, with a stable
// canonical-order tie-break.
func (e EmotionalState) Dominant() (string, float64) {
	names := []string{"happiness", "sadness", "anger", "fear", "surprise", "disgust"}
	values := []float64{e.Happiness, e.Sadness, e.Anger, e.Fear, e.Surprise, e.Disgust}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return names[best], values[best]
}

// Describe maps the state to a short adjective for perception output.
func (e EmotionalState) Describe() string {
	name, level := e.Dominant()
	if level < 0.3 {
		return "neutral"
	}
	strong := level >= 0.7
	switch name {
	case "happiness":
		if strong {
			return "joyful"
		}
		return "happy"
	case "sadness":
		if strong {
			return "despondent"
		}
		return "sad"
	case "anger":
		if strong {
			return "furious"
		}
		return "annoyed"
	case "fear":
		if strong {
			return "terrified"
		}
		return "nervous"
	}
	return name
}

// Valence collapses the state to a single -1..1 mood scalar.
func (e EmotionalState) Valence() float64 {
	positive := e.Happiness + e.Surprise*0.5
	negative := e.Sadness + e.Anger + e.Fear + e.Disgust
	v := positive - negative
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// Character is the mutable agent identity. Identity fields (ID, Name) never
// change after creation; everything else evolves during simulation.
type Character struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Backstory     string                  `json:"backstory,omitempty"`
	Personality   Personality             `json:"personality"`
	Location      string                  `json:"location"`
	Emotions      EmotionalState          `json:"emotions"`
	Goals         []Goal                  `json:"goals,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// ActiveGoal returns the highest-priority incomplete goal, or nil.
func (c *Character) ActiveGoal() *Goal {
	var best *Goal
	for i := range c.Goals {
		g := &c.Goals[i]
		if g.Completed {
			continue
		}
		if best == nil || g.Priority > best.Priority {
			best = g
		}
	}
	return best
}

// RelationshipIDs returns the ids this character has relationships with, in
// sorted order for deterministic iteration.
func (c *Character) RelationshipIDs() []string {
	ids := make([]string, 0, len(c.Relationships))
	for id := range c.Relationships {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
