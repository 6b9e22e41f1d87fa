// Package reverie is the post-simulation reflection pass: it re-scores
// important memories, synthesizes per-agent reveries, and distills the
// timeline into established facts for the generation pipeline. Synthesis is
// deterministic so downstream stages never block on missing or empty
// simulation data.
package reverie

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agenthands/showrunner/internal/core/agent"
	"github.com/agenthands/showrunner/internal/core/model"
)

type Reflector struct {
	// ImportanceThreshold selects which events feed a reverie.
	ImportanceThreshold float64
}

func NewReflector(threshold float64) *Reflector {
	if threshold <= 0 {
		threshold = 0.5
	}
	return &Reflector{ImportanceThreshold: threshold}
}

// Reflect synthesizes one agent's reverie from its slice of the timeline.
// An empty slice produces a degenerate reverie with no belief deltas, never
// an error.
func (r *Reflector) Reflect(ag *agent.Agent, slice []model.Event) model.Reverie {
	// Reflection happens after the tick loop has settled every agent back to
	// idle; an agent caught mid-action keeps its state.
	if ag.State == agent.StateIdle {
		ag.State = agent.StateReflecting
	}

	rev := model.Reverie{AgentID: ag.Char.ID}

	var important []model.Event
	for _, ev := range slice {
		if ev.Impact >= r.ImportanceThreshold {
			important = append(important, ev)
		}
	}

	if len(slice) == 0 {
		rev.Degenerate = true
		rev.Text = fmt.Sprintf("%s has nothing yet to reflect on.", ag.Char.Name)
		return rev
	}

	// Boost the memories behind the important events; this is the only
	// place records are re-scored.
	for _, ev := range important {
		for _, rec := range ag.Memory.All() {
			if rec.EventID == ev.ID {
				ag.Memory.Rescore(rec.ID, rec.Importance*1.2+0.1)
				rev.MemoryIDs = append(rev.MemoryIDs, rec.ID)
			}
		}
	}

	locations := make(map[string]int)
	partners := make(map[string]int)
	valence := 0.0
	for _, ev := range slice {
		locations[ev.Location]++
		for _, p := range ev.Participants {
			if p != ag.Char.ID {
				partners[p]++
			}
		}
		valence += eventValence(ev)
	}
	valence /= float64(len(slice))

	var parts []string
	if loc := topKey(locations); loc != "" {
		parts = append(parts, fmt.Sprintf("%s has been spending most of their time at %s", ag.Char.Name, loc))
	}
	switch {
	case valence > 0.1:
		parts = append(parts, "things have been going well lately")
	case valence < -0.1:
		parts = append(parts, "it has been a difficult stretch")
	default:
		parts = append(parts, "life has had its ups and downs")
	}
	if p := topKey(partners); p != "" {
		parts = append(parts, fmt.Sprintf("the exchanges with %s stand out", p))
		rev.Deltas = map[string]float64{"attachment:" + p: 0.1 * float64(partners[p])}
	}
	if g := ag.Char.ActiveGoal(); g != nil {
		parts = append(parts, fmt.Sprintf("the drive to %s remains unfinished", g.Description))
		if rev.Deltas == nil {
			rev.Deltas = make(map[string]float64)
		}
		rev.Deltas["resolve:"+g.ID] = g.Priority * 0.2
	}
	parts = append(parts, fmt.Sprintf("as someone who values %s, they hold to their course", traitValue(ag.Char.Personality.Dominant())))

	rev.Text = strings.Join(parts, "; ") + "."
	return rev
}

// EstablishedFacts turns the timeline's high-impact events into the fact
// list seeded into the series bible.
func EstablishedFacts(tl model.Timeline, threshold float64) []string {
	var facts []string
	for _, ev := range tl.Events {
		if ev.Impact >= threshold {
			facts = append(facts, fmt.Sprintf("At %s: %s", ev.Location, ev.Description))
		}
	}
	return facts
}

func eventValence(ev model.Event) float64 {
	desc := strings.ToLower(ev.Description)
	switch {
	case strings.Contains(desc, "argument"), strings.Contains(desc, "crisis"),
		strings.Contains(desc, "conflict"):
		return -ev.Impact
	case strings.Contains(desc, "opportunity"), strings.Contains(desc, "says"):
		return ev.Impact * 0.5
	default:
		return 0
	}
}

// topKey returns the most frequent key, ties resolved alphabetically.
func topKey(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best, bestN := "", 0
	for _, k := range keys {
		if m[k] > bestN {
			best, bestN = k, m[k]
		}
	}
	return best
}

func traitValue(trait string) string {
	switch trait {
	case "openness":
		return "new experiences"
	case "conscientiousness":
		return "order and achievement"
	case "extraversion":
		return "connection"
	case "agreeableness":
		return "harmony"
	case "neuroticism":
		return "emotional honesty"
	}
	return "balance"
}
