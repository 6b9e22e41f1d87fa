// Package agent implements the personality-driven character agent: a
// perceive→decide→act state machine whose decisions are a pure function of
// personality, needs, goals and perceptions, so identical inputs always
// produce identical behavior.
package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agenthands/showrunner/internal/core/memory"
	"github.com/agenthands/showrunner/internal/core/model"
)

type State string

const (
	StateIdle        State = "idle"
	StatePerceiving  State = "perceiving"
	StateDeciding    State = "deciding"
	StateActing      State = "acting"
	StateInteracting State = "interacting"
	StateReflecting  State = "reflecting"
)

type ActionType string

const (
	ActionIdle     ActionType = "idle"
	ActionObserve  ActionType = "observe"
	ActionSpeak    ActionType = "speak"
	ActionMove     ActionType = "move"
	ActionInteract ActionType = "interact"
)

// Action is a tagged candidate the decision scorer evaluates. IDs are stable
// strings so the maximum-scoring pick tie-breaks deterministically.
type Action struct {
	ID          string
	Type        ActionType
	TargetID    string // interaction target, if any
	Destination string // move destination, if any
	Description string
	EnergyCost  float64
	Friendly    bool
}

// DecisionWeights are the explicit trait weights for action scoring.
type DecisionWeights struct {
	Need        float64
	Goal        float64
	Personality float64
	Social      float64
}

func DefaultDecisionWeights() DecisionWeights {
	return DecisionWeights{Need: 0.25, Goal: 0.35, Personality: 0.25, Social: 0.15}
}

// SeenAgent is another agent visible during perception.
type SeenAgent struct {
	ID      string
	Name    string
	Mood    string
	Valence float64
}

// WorldView is the environment slice handed to Perceive for one tick. The
// simulation engine builds it; the agent never reaches into shared state.
type WorldView struct {
	Tick          int
	Location      string
	LocationDesc  string
	Exits         []string // connected locations, stable order
	AgentsPresent []SeenAgent
	RecentEvents  []model.Event
	Tension       float64
}

type Observation struct {
	Text    string
	AgentID string // set when the observation is about another agent
	EventID string // set when it came from a timeline event
}

// Agent couples a character with its memory stream and drive state.
type Agent struct {
	Char   *model.Character
	Memory *memory.Stream
	State  State

	// Needs 0..1; higher means more pressing.
	SocialNeed  float64
	PurposeNeed float64

	SkippedActions int // actions downgraded due to stale targets
}

func New(c *model.Character, capacity int, w memory.Weights) *Agent {
	c.Personality = c.Personality.Normalized()
	if c.Relationships == nil {
		c.Relationships = make(map[string]model.Relationship)
	}
	return &Agent{
		Char:        c,
		Memory:      memory.NewStream(capacity, w),
		State:       StateIdle,
		SocialNeed:  0.5,
		PurposeNeed: 0.5,
	}
}

// Perceive filters the world view down to what this agent notices. Higher
// openness widens the candidate set; low-impact background events are
// invisible to closed-off characters.
func (a *Agent) Perceive(view WorldView) []Observation {
	a.State = StatePerceiving

	cutoff := 0.5 - 0.4*a.Char.Personality.Openness // 0.1..0.5
	var obs []Observation

	for _, other := range view.AgentsPresent {
		if other.ID == a.Char.ID {
			continue
		}
		obs = append(obs, Observation{
			Text:    fmt.Sprintf("%s is here, looking %s", other.Name, other.Mood),
			AgentID: other.ID,
		})
	}

	for _, ev := range view.RecentEvents {
		if ev.Location != view.Location {
			continue
		}
		if ev.Impact < cutoff {
			continue
		}
		obs = append(obs, Observation{Text: ev.Description, EventID: ev.ID})
	}

	if view.LocationDesc != "" {
		obs = append(obs, Observation{Text: fmt.Sprintf("At %s: %s", view.Location, view.LocationDesc)})
	}
	return obs
}

// Decide scores candidate actions and returns the maximum. Pure: no random
// state, stable action-id tie-break, so two engines fed identical inputs
// make identical decisions.
func (a *Agent) Decide(view WorldView, obs []Observation, w DecisionWeights) Action {
	a.State = StateDeciding

	candidates := a.candidates(view, obs)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })

	best := candidates[0]
	bestScore := a.score(best, view, w)
	for _, c := range candidates[1:] {
		if s := a.score(c, view, w); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

func (a *Agent) candidates(view WorldView, obs []Observation) []Action {
	p := a.Char.Personality
	out := []Action{{
		ID:          "idle",
		Type:        ActionIdle,
		Description: fmt.Sprintf("%s waits and observes", a.Char.Name),
	}}

	for _, o := range obs {
		if o.AgentID == "" {
			continue
		}
		friendly := p.Agreeableness >= 0.5
		kind := "guarded"
		if friendly {
			kind = "friendly"
		}
		out = append(out, Action{
			ID:          "interact:" + o.AgentID,
			Type:        ActionInteract,
			TargetID:    o.AgentID,
			Description: fmt.Sprintf("%s starts a %s exchange", a.Char.Name, kind),
			EnergyCost:  0.4,
			Friendly:    friendly,
		})
		if p.Extraversion > 0.4 {
			out = append(out, Action{
				ID:          "speak:" + o.AgentID,
				Type:        ActionSpeak,
				TargetID:    o.AgentID,
				Description: fmt.Sprintf("%s strikes up a conversation", a.Char.Name),
				EnergyCost:  0.2,
				Friendly:    true,
			})
		}
	}

	for _, exit := range view.Exits {
		out = append(out, Action{
			ID:          "move:" + exit,
			Type:        ActionMove,
			Destination: exit,
			Description: fmt.Sprintf("%s heads to %s", a.Char.Name, exit),
			EnergyCost:  0.3,
		})
	}
	return out
}

func (a *Agent) score(act Action, view WorldView, w DecisionWeights) float64 {
	p := a.Char.Personality

	need := 0.0
	switch act.Type {
	case ActionSpeak, ActionInteract:
		need = a.SocialNeed
	case ActionMove:
		need = a.PurposeNeed * 0.6
		if a.Char.Emotions.Fear > 0.5 {
			need += 0.3 // flight response
		}
	case ActionIdle:
		need = 0.2 * (1 - a.SocialNeed)
	}

	goal := 0.0
	if g := a.Char.ActiveGoal(); g != nil && act.Type != ActionIdle {
		goal = g.Priority * 0.6
		if act.Description != "" && containsAny(g.Description, act.Destination, act.TargetID) {
			goal += 0.4
		}
	}

	fit := 0.0
	switch act.Type {
	case ActionSpeak:
		fit = p.Extraversion*0.7 + p.Agreeableness*0.3
	case ActionInteract:
		fit = p.Extraversion*0.5 + p.Agreeableness*0.5
	case ActionMove:
		fit = p.Openness * 0.6
	case ActionIdle:
		fit = (1-p.Extraversion)*0.5 + p.Conscientiousness*0.2
	}
	fit -= act.EnergyCost * p.Conscientiousness * 0.2

	social := 0.0
	if act.TargetID != "" {
		if rel, ok := a.Char.Relationships[act.TargetID]; ok {
			social = (rel.Affinity+1)/2*0.6 + rel.Trust*0.4
		} else {
			social = 0.4 // strangers are mildly interesting
		}
		if !act.Friendly {
			social *= 0.7
		}
	}

	return w.Need*need + w.Goal*goal + w.Personality*fit + w.Social*social
}

// Result is what an executed action produced, before the engine turns it
// into a timeline event.
type Result struct {
	Action      Action
	Dialogue    string
	Downgraded  bool // stale target, executed as observe instead
	NewLocation string
}

// Act applies the decided action to the agent's own state. targetPresent
// tells the agent whether an interaction target is still at its location; a
// stale target downgrades the action to a no-op observe rather than failing.
func (a *Agent) Act(act Action, targetPresent bool) Result {
	a.State = StateActing
	res := Result{Action: act}

	if (act.Type == ActionInteract || act.Type == ActionSpeak) && !targetPresent {
		a.SkippedActions++
		res.Downgraded = true
		res.Action = Action{
			ID:          "observe",
			Type:        ActionObserve,
			Description: fmt.Sprintf("%s looks around for someone who has gone", a.Char.Name),
		}
		a.State = StateIdle
		return res
	}

	switch act.Type {
	case ActionSpeak:
		res.Dialogue = a.dialogueLine()
		a.bumpEmotion("expression", 0.5)
		a.SocialNeed *= 0.6
		a.State = StateInteracting
	case ActionInteract:
		a.updateRelationship(act.TargetID, act.Friendly)
		a.bumpEmotion("expression", 0.3)
		a.SocialNeed *= 0.5
		a.State = StateInteracting
	case ActionMove:
		res.NewLocation = act.Destination
		a.PurposeNeed *= 0.7
		a.State = StateIdle
	default:
		a.SocialNeed = clamp01f(a.SocialNeed + 0.1*a.Char.Personality.Extraversion)
		a.PurposeNeed = clamp01f(a.PurposeNeed + 0.05)
		a.State = StateIdle
	}
	return res
}

// Witness records ev into the agent's memory stream.
func (a *Agent) Witness(ev model.Event) {
	a.Memory.Record(ev, a.Char)
}

func (a *Agent) dialogueLine() string {
	name, level := a.Char.Emotions.Dominant()
	if level < 0.3 {
		return "So. Here we are."
	}
	switch name {
	case "happiness":
		return "Things are finally looking up, aren't they?"
	case "sadness":
		return "I keep turning it over and it doesn't get better."
	case "anger":
		return "No. We are not doing this again."
	case "fear":
		return "Did you hear that? Tell me you heard that."
	}
	return "There's something I've been meaning to say."
}

// emotion trigger table, applied with decay of untouched emotions.
func (a *Agent) bumpEmotion(trigger string, intensity float64) {
	e := &a.Char.Emotions
	switch trigger {
	case "success":
		e.Happiness = clamp01f(e.Happiness + 0.3*intensity)
		e.Surprise = clamp01f(e.Surprise + 0.1*intensity)
	case "failure":
		e.Sadness = clamp01f(e.Sadness + 0.2*intensity)
		e.Anger = clamp01f(e.Anger + 0.1*intensity)
	case "threat":
		e.Fear = clamp01f(e.Fear + 0.4*intensity)
		e.Anger = clamp01f(e.Anger + 0.1*intensity)
	case "expression":
		e.Happiness = clamp01f(e.Happiness + 0.1*intensity)
	}
	e.Sadness *= 0.97
	e.Anger *= 0.97
	e.Fear *= 0.97
	e.Surprise *= 0.95
	e.Disgust *= 0.95
}

// ReactTo shifts emotions from a witnessed event.
func (a *Agent) ReactTo(ev model.Event) {
	desc := strings.ToLower(ev.Description)
	switch {
	case strings.Contains(desc, "argument") || strings.Contains(desc, "conflict"):
		a.bumpEmotion("threat", ev.Impact)
	case strings.Contains(desc, "secret") || strings.Contains(desc, "reveal"):
		a.Char.Emotions.Surprise = clamp01f(a.Char.Emotions.Surprise + 0.3*ev.Impact)
	case strings.Contains(desc, "opportunity"):
		a.bumpEmotion("success", ev.Impact)
	case strings.Contains(desc, "crisis") || strings.Contains(desc, "urgent"):
		a.bumpEmotion("threat", ev.Impact*0.8)
	}
}

func (a *Agent) updateRelationship(targetID string, friendly bool) {
	rel, ok := a.Char.Relationships[targetID]
	if !ok {
		rel = model.Relationship{CharacterID: targetID, Trust: 0.5, Kind: "acquaintance"}
	}
	if friendly {
		rel.Affinity = clampf(rel.Affinity+0.1, -1, 1)
		rel.Trust = clamp01f(rel.Trust + 0.05)
	} else {
		rel.Affinity = clampf(rel.Affinity-0.05, -1, 1)
		rel.Trust = clamp01f(rel.Trust - 0.02)
	}
	a.Char.Relationships[targetID] = rel
}

// ObserveAgent adds a relationship entry for a directly observed character,
// keeping the relationship map limited to characters actually encountered.
func (a *Agent) ObserveAgent(targetID string) {
	if _, ok := a.Char.Relationships[targetID]; ok {
		return
	}
	a.Char.Relationships[targetID] = model.Relationship{
		CharacterID: targetID, Trust: 0.5, Kind: "acquaintance",
	}
}

func containsAny(haystack string, needles ...string) bool {
	h := strings.ToLower(haystack)
	for _, n := range needles {
		if n != "" && strings.Contains(h, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func clamp01f(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
