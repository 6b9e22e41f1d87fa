package drama

import (
	"sort"

	"github.com/agenthands/showrunner/internal/core/model"
)

// Hook is one planted foreshadowing beat awaiting resolution.
type Hook struct {
	SceneIndex  int
	Description string
}

// Ledger is the per-episode cross-scene state. It has a single owner, the
// orchestration loop, and is mutated only through Commit after a scene is
// accepted, so a failed scene never leaves partial state behind.
type Ledger struct {
	MaxPerScene int

	pending         []Hook
	callbackTargets []string
	tensionCurve    []float64
	applied         map[string]int
	lastSceneOps    map[string]bool
}

func NewLedger(maxPerScene int) *Ledger {
	if maxPerScene <= 0 {
		maxPerScene = 2
	}
	return &Ledger{
		MaxPerScene:  maxPerScene,
		applied:      make(map[string]int),
		lastSceneOps: make(map[string]bool),
	}
}

// Snapshot exposes the read-only view the selector and prompt chain see.
type Snapshot struct {
	OpenHooks       []string
	CallbackTargets []string
	LastTension     float64
	LastSceneOps    map[string]bool
}

func (l *Ledger) Snapshot() Snapshot {
	snap := Snapshot{LastSceneOps: make(map[string]bool, len(l.lastSceneOps))}
	for _, h := range l.pending {
		snap.OpenHooks = append(snap.OpenHooks, h.Description)
	}
	snap.CallbackTargets = append(snap.CallbackTargets, l.callbackTargets...)
	if n := len(l.tensionCurve); n > 0 {
		snap.LastTension = l.tensionCurve[n-1]
	}
	for k, v := range l.lastSceneOps {
		snap.LastSceneOps[k] = v
	}
	return snap
}

// Commit records an accepted scene: applied directives, the scene's closing
// tension, hooks it planted, and hooks it resolved. Resolution matches by
// description; unknown descriptions are ignored.
func (l *Ledger) Commit(sceneIndex int, directives []Directive, tension float64, planted, resolved []string) {
	l.lastSceneOps = make(map[string]bool, len(directives))
	for _, d := range directives {
		l.applied[d.Operator.Name]++
		l.lastSceneOps[d.Operator.Name] = true
	}

	for _, desc := range resolved {
		for i, h := range l.pending {
			if h.Description == desc {
				l.pending = append(l.pending[:i], l.pending[i+1:]...)
				break
			}
		}
	}
	for _, desc := range planted {
		if desc == "" {
			continue
		}
		l.pending = append(l.pending, Hook{SceneIndex: sceneIndex, Description: desc})
		l.callbackTargets = append(l.callbackTargets, desc)
	}
	l.tensionCurve = append(l.tensionCurve, tension)
}

// AddCallbackTarget registers a memorable beat (not a hook) as fair game for
// later callbacks.
func (l *Ledger) AddCallbackTarget(desc string) {
	if desc != "" {
		l.callbackTargets = append(l.callbackTargets, desc)
	}
}

// UnresolvedHooks lists planted hooks no scene paid off, ordered by the
// scene that planted them.
func (l *Ledger) UnresolvedHooks() []string {
	hooks := append([]Hook(nil), l.pending...)
	sort.SliceStable(hooks, func(i, j int) bool { return hooks[i].SceneIndex < hooks[j].SceneIndex })
	out := make([]string, 0, len(hooks))
	for _, h := range hooks {
		out = append(out, h.Description)
	}
	return out
}

func (l *Ledger) TensionCurve() []float64 {
	return append([]float64(nil), l.tensionCurve...)
}

func (l *Ledger) Summary() model.LedgerSummary {
	counts := make(map[string]int, len(l.applied))
	for k, v := range l.applied {
		counts[k] = v
	}
	return model.LedgerSummary{
		OperatorCounts:  counts,
		UnresolvedHooks: l.UnresolvedHooks(),
		TensionCurve:    l.TensionCurve(),
	}
}
