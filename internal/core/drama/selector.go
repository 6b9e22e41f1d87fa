package drama

import (
	"fmt"
	"sort"

	"github.com/agenthands/showrunner/internal/core/model"
)

// Selector scores the catalog against a scene's position, tension, and the
// ledger, and returns at most MaxPerScene directives. Scoring is pure, so
// the same context and ledger state always select the same devices.
type Selector struct {
	catalog []Operator
}

func NewSelector() *Selector {
	return &Selector{catalog: Catalog()}
}

const minScore = 0.45

// Select returns at most maxPerScene operator directives for one scene,
// ordered strongest first. Callback devices are excluded until the ledger
// holds a plantable reference; cliffhangers are reserved for a storyline's
// final slot. The scene's tension is blended with the last committed tension
// so device choice tracks the curve, not just the slot's own reading.
func (s *Selector) Select(sc model.SceneContext, snap Snapshot, maxPerScene int) []Directive {
	if maxPerScene <= 0 {
		maxPerScene = 2
	}
	act := actOf(sc.Index, sc.TotalScenes)

	tension := sc.Tension
	if snap.LastTension > 0 {
		tension = (tension + snap.LastTension) / 2
	}

	type scored struct {
		op    Operator
		score float64
	}
	var candidates []scored
	for _, op := range s.catalog {
		score, ok := s.score(op, sc, snap, act, tension)
		if ok && score >= minScore {
			candidates = append(candidates, scored{op, score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].op.Name < candidates[j].op.Name
	})

	// One device per type per scene; the variants exist for variety across
	// scenes, not within one.
	usedType := make(map[OperatorType]bool)
	var directives []Directive
	for _, c := range candidates {
		if len(directives) == maxPerScene {
			break
		}
		if usedType[c.op.Type] {
			continue
		}
		usedType[c.op.Type] = true
		directives = append(directives, s.directive(c.op, sc, snap))
	}
	return directives
}

func (s *Selector) score(op Operator, sc model.SceneContext, snap Snapshot, act int, tension float64) (float64, bool) {
	// Avoid repeating last scene's devices back to back.
	if snap.LastSceneOps[op.Name] {
		return 0, false
	}

	switch op.Type {
	case TypeCallback:
		if len(snap.CallbackTargets) == 0 && len(snap.OpenHooks) == 0 {
			return 0, false
		}
	case TypeCliffhanger:
		if !sc.FinalForLine {
			return 0, false
		}
	}

	score := 1 - abs(tension-op.Intensity)

	switch op.Type {
	case TypeForeshadow:
		if act == 0 {
			score += 0.3
		} else if act == 2 {
			score -= 0.3
		}
	case TypeCallback:
		if act == 2 {
			score += 0.3
		}
		if len(snap.OpenHooks) > 0 {
			score += 0.1
		}
	case TypeEscalation, TypeComplication:
		if act == 1 {
			score += 0.2
		}
	case TypeReversal, TypeRevelation:
		if act == 2 {
			score += 0.2
		} else if act == 0 {
			score -= 0.2
		}
	case TypeConflict:
		if tension < 0.5 {
			score += 0.2
		}
	case TypeCliffhanger:
		score += 0.5
	case TypeIrony:
		if sc.Index%2 == 0 {
			score += 0.1
		}
	case TypeParallel:
		if sc.Index%2 == 1 {
			score += 0.1
		}
	}
	return score, true
}

func (s *Selector) directive(op Operator, sc model.SceneContext, snap Snapshot) Directive {
	d := Directive{Operator: op, Instruction: op.Description}

	switch op.Type {
	case TypeForeshadow, TypeCliffhanger:
		d.PlantsHook = true
	case TypeCallback:
		if len(snap.OpenHooks) > 0 {
			d.ResolvesHook = snap.OpenHooks[0]
			d.Instruction = fmt.Sprintf("%s Pay off: %q.", op.Description, d.ResolvesHook)
		} else if len(snap.CallbackTargets) > 0 {
			d.Instruction = fmt.Sprintf("%s Reference: %q.", op.Description, snap.CallbackTargets[0])
		}
	}
	return d
}

// actOf splits the episode into a three-act shape.
func actOf(index, total int) int {
	if total <= 0 {
		return 0
	}
	act := index * 3 / total
	if act > 2 {
		act = 2
	}
	return act
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
