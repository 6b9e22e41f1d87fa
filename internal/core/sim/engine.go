// Package sim runs the discrete time-stepped multi-agent simulation that
// produces the episode's creative fuel: a causally consistent, total-ordered
// event timeline.
package sim

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/agenthands/showrunner/internal/core/agent"
	"github.com/agenthands/showrunner/internal/core/model"
)

// UnderflowError reports a duration too short to produce a single tick. It
// is a warning, not a failure: the engine still returns an empty timeline
// and callers proceed without creative fuel.
type UnderflowError struct {
	Duration time.Duration
	Step     time.Duration
}

func (e *UnderflowError) Error() string {
	return fmt.Sprintf("simulation underflow: duration %s yields zero ticks at step %s", e.Duration, e.Step)
}

// Result bundles the timeline with run diagnostics.
type Result struct {
	Timeline     model.Timeline
	Underflow    *UnderflowError
	TensionCurve []float64
	FinalTension float64
	ActionCounts map[string]int
	Skipped      int // actions downgraded due to stale targets
}

// Engine advances all agents through perceive→decide→act once per tick, in
// a fixed iteration order, so two runs over identical inputs produce
// byte-identical timelines.
type Engine struct {
	Weights     agent.DecisionWeights
	InjectBelow float64 // tension floor that triggers a dramatic event
	tension     float64
}

func NewEngine(w agent.DecisionWeights) *Engine {
	return &Engine{Weights: w, InjectBelow: 0.3, tension: 0.5}
}

// dramatic event catalog, rotated deterministically by tick.
var dramaticEvents = []struct {
	typ    model.EventType
	desc   string
	impact float64
}{
	{model.EventEnvironment, "a heated argument breaks out over a missed deadline", 0.7},
	{model.EventEnvironment, "a long-kept secret slips out in conversation", 0.8},
	{model.EventEnvironment, "an urgent crisis demands immediate attention", 0.9},
	{model.EventEnvironment, "an unexpected opportunity appears", 0.6},
}

// Run executes the simulation. Agents are advanced exactly once per tick in
// slice order; the returned timeline is ordered by (tick, agent index). A
// zero-tick duration yields an empty timeline plus an UnderflowError in the
// result, not an error return.
func (e *Engine) Run(ctx context.Context, agents []*agent.Agent, world *World, duration, step time.Duration) (*Result, error) {
	if step <= 0 {
		return nil, fmt.Errorf("time step must be positive, got %s", step)
	}
	if world == nil {
		return nil, fmt.Errorf("nil world")
	}

	res := &Result{ActionCounts: make(map[string]int)}
	for _, ag := range agents {
		if ag.Char.Location == "" {
			ag.Char.Location = world.Names()[0]
		}
		if err := world.Place(ag.Char.ID, ag.Char.Location); err != nil {
			return nil, fmt.Errorf("placing %s: %w", ag.Char.Name, err)
		}
		res.ActionCounts[ag.Char.ID] = 0
	}

	ticks := int(duration / step)
	if ticks <= 0 {
		res.Underflow = &UnderflowError{Duration: duration, Step: step}
		log.Printf("Warning: %v", res.Underflow)
		return res, nil
	}

	for tick := 0; tick < ticks; tick++ {
		select {
		case <-ctx.Done():
			res.Timeline.Ticks = tick
			return res, ctx.Err()
		default:
		}

		tickEvents := e.step(tick, agents, world, res)
		res.Timeline.Events = append(res.Timeline.Events, tickEvents...)

		e.updateTension(tickEvents)
		if e.tension < e.InjectBelow && tick%4 == 3 {
			ev := e.injectDramaticEvent(tick, agents, world)
			res.Timeline.Events = append(res.Timeline.Events, ev)
			e.tension = clamp01(e.tension + ev.Impact*0.3)
			for _, ag := range agents {
				if ag.Char.Location == ev.Location {
					ag.Witness(ev)
					ag.ReactTo(ev)
				}
			}
		}
		res.TensionCurve = append(res.TensionCurve, e.tension)
	}

	res.Timeline.Ticks = ticks
	res.FinalTension = e.tension
	log.Printf("Simulation complete: %d ticks, %d events, final tension %.2f",
		ticks, len(res.Timeline.Events), e.tension)
	return res, nil
}

func (e *Engine) step(tick int, agents []*agent.Agent, world *World, res *Result) []model.Event {
	var events []model.Event

	for idx, ag := range agents {
		view := e.viewFor(ag, tick, world, res.Timeline.Events, agents)

		obs := ag.Perceive(view)
		for _, o := range obs {
			if o.AgentID != "" {
				ag.ObserveAgent(o.AgentID)
			}
		}

		action := ag.Decide(view, obs, e.Weights)

		targetPresent := true
		if action.TargetID != "" {
			targetPresent = world.Present(action.TargetID, ag.Char.Location)
		}
		result := ag.Act(action, targetPresent)
		res.ActionCounts[ag.Char.ID]++
		if result.Downgraded {
			res.Skipped++
			log.Printf("Skipped action %s for %s: target left the location", action.ID, ag.Char.Name)
		}

		if result.NewLocation != "" {
			if _, ok := world.Location(result.NewLocation); ok {
				_ = world.Place(ag.Char.ID, result.NewLocation)
				ag.Char.Location = result.NewLocation
			}
		}

		if result.Action.Type == agent.ActionInteract {
			if target := findAgent(agents, result.Action.TargetID); target != nil {
				target.State = agent.StateInteracting
			}
		}

		if ev, ok := eventFromResult(ag, result, tick, idx); ok {
			events = append(events, ev)
			for _, other := range agents {
				if other.Char.Location == ev.Location {
					other.Witness(ev)
					if other.Char.ID != ag.Char.ID {
						other.ReactTo(ev)
					}
				}
			}
		}
	}

	// INTERACTING lasts only the tick it happened in.
	for _, ag := range agents {
		if ag.State == agent.StateInteracting {
			ag.State = agent.StateIdle
		}
	}
	return events
}

func (e *Engine) viewFor(ag *agent.Agent, tick int, world *World, timeline []model.Event, agents []*agent.Agent) agent.WorldView {
	loc, _ := world.Location(ag.Char.Location)
	view := agent.WorldView{
		Tick:     tick,
		Location: ag.Char.Location,
		Tension:  e.tension,
	}
	if loc != nil {
		view.LocationDesc = loc.Description
		view.Exits = append([]string(nil), loc.ConnectedTo...)
	}

	recent := timeline
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	view.RecentEvents = append([]model.Event(nil), recent...)

	if loc != nil {
		for _, id := range loc.Occupants {
			if id == ag.Char.ID {
				continue
			}
			seen := agent.SeenAgent{ID: id, Name: id, Mood: "neutral"}
			if other := findAgent(agents, id); other != nil {
				seen.Name = other.Char.Name
				seen.Mood = other.Char.Emotions.Describe()
				seen.Valence = other.Char.Emotions.Valence()
			}
			view.AgentsPresent = append(view.AgentsPresent, seen)
		}
	}
	return view
}

func eventFromResult(ag *agent.Agent, result agent.Result, tick, idx int) (model.Event, bool) {
	// Event ids encode (tick, agent index) so ordering is auditable and runs
	// are reproducible.
	id := fmt.Sprintf("ev-%05d-%03d", tick, idx)
	base := model.Event{
		ID:       id,
		Tick:     tick,
		Location: ag.Char.Location,
	}

	switch result.Action.Type {
	case agent.ActionSpeak:
		base.Type = model.EventDialogue
		base.Description = fmt.Sprintf("%s says: %q", ag.Char.Name, result.Dialogue)
		base.Participants = []string{ag.Char.ID, result.Action.TargetID}
		base.Impact = 0.3
	case agent.ActionInteract:
		base.Type = model.EventInteraction
		base.Description = result.Action.Description
		base.Participants = []string{ag.Char.ID, result.Action.TargetID}
		base.Impact = 0.4
	case agent.ActionMove:
		base.Type = model.EventMovement
		base.Description = result.Action.Description
		base.Participants = []string{ag.Char.ID}
		base.Impact = 0.1
	case agent.ActionObserve:
		base.Type = model.EventObservation
		base.Description = result.Action.Description
		base.Participants = []string{ag.Char.ID}
		base.Impact = 0.05
	default:
		return model.Event{}, false
	}
	return base, true
}

func (e *Engine) injectDramaticEvent(tick int, agents []*agent.Agent, world *World) model.Event {
	tmpl := dramaticEvents[(tick/4)%len(dramaticEvents)]

	var participants []string
	for i := 0; i < len(agents) && i < 2; i++ {
		participants = append(participants, agents[i].Char.ID)
	}

	ev := model.Event{
		ID:           fmt.Sprintf("ev-%05d-inj", tick),
		Tick:         tick,
		Type:         tmpl.typ,
		Description:  tmpl.desc,
		Participants: participants,
		Location:     world.Busiest(),
		Impact:       tmpl.impact,
	}
	log.Printf("Injected dramatic event at tick %d: %s", tick, tmpl.desc)
	return ev
}

func (e *Engine) updateTension(events []model.Event) {
	if len(events) == 0 {
		e.tension *= 0.98
		return
	}
	total := 0.0
	for _, ev := range events {
		total += ev.Impact
	}
	e.tension = clamp01(e.tension + total*0.1)
}

func findAgent(agents []*agent.Agent, id string) *agent.Agent {
	for _, ag := range agents {
		if ag.Char.ID == id {
			return ag
		}
	}
	return nil
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
