package drama

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/showrunner/internal/core/model"
)

func ctxAt(index, total int, tension float64) model.SceneContext {
	return model.SceneContext{Index: index, TotalScenes: total, Tension: tension}
}

func TestSelectRespectsCap(t *testing.T) {
	s := NewSelector()
	l := NewLedger(2)

	d := s.Select(ctxAt(0, 7, 0.4), l.Snapshot(), l.MaxPerScene)
	assert.LessOrEqual(t, len(d), 2)
	assert.NotEmpty(t, d)
}

func TestSelectIsDeterministic(t *testing.T) {
	s := NewSelector()
	l := NewLedger(2)

	a := s.Select(ctxAt(3, 7, 0.5), l.Snapshot(), 2)
	b := s.Select(ctxAt(3, 7, 0.5), l.Snapshot(), 2)
	assert.Equal(t, a, b)
}

func TestCallbackRequiresPlantableReference(t *testing.T) {
	s := NewSelector()
	l := NewLedger(3)

	for _, d := range s.Select(ctxAt(6, 7, 0.6), l.Snapshot(), 3) {
		assert.NotEqual(t, TypeCallback, d.Operator.Type, "empty ledger cannot support a callback")
	}

	l.Commit(0, nil, 0.5, []string{"the locked drawer in the office"}, nil)
	var foundCallback bool
	for _, d := range s.Select(ctxAt(6, 7, 0.6), l.Snapshot(), 3) {
		if d.Operator.Type == TypeCallback {
			foundCallback = true
			assert.Equal(t, "the locked drawer in the office", d.ResolvesHook)
		}
	}
	assert.True(t, foundCallback, "late scene with an open hook should call back")
}

func TestCliffhangerOnlyOnFinalSlot(t *testing.T) {
	s := NewSelector()
	snap := NewLedger(3).Snapshot()

	mid := ctxAt(2, 7, 0.8)
	for _, d := range s.Select(mid, snap, 3) {
		assert.NotEqual(t, TypeCliffhanger, d.Operator.Type)
	}

	final := ctxAt(6, 7, 0.8)
	final.FinalForLine = true
	var found bool
	for _, d := range s.Select(final, snap, 3) {
		if d.Operator.Type == TypeCliffhanger {
			found = true
			assert.True(t, d.PlantsHook)
		}
	}
	assert.True(t, found)
}

func TestSelectBlendsCommittedTension(t *testing.T) {
	s := NewSelector()
	l := NewLedger(2)

	calm := s.Select(ctxAt(3, 7, 0.2), l.Snapshot(), 2)
	l.Commit(0, nil, 1.0, nil, nil)
	heated := s.Select(ctxAt(3, 7, 0.2), l.Snapshot(), 2)

	assert.NotEqual(t, calm, heated, "a hot curve shifts device choice for the same slot")
}

func TestSelectAvoidsImmediateRepeat(t *testing.T) {
	s := NewSelector()
	l := NewLedger(2)

	first := s.Select(ctxAt(0, 7, 0.4), l.Snapshot(), 2)
	require.NotEmpty(t, first)
	l.Commit(0, first, 0.5, nil, nil)

	second := s.Select(ctxAt(1, 7, 0.4), l.Snapshot(), 2)
	for _, d := range second {
		for _, prev := range first {
			assert.NotEqual(t, prev.Operator.Name, d.Operator.Name)
		}
	}
}

func TestLedgerHookLifecycle(t *testing.T) {
	l := NewLedger(2)

	l.Commit(0, nil, 0.4, []string{"a missing badge", "an unsigned letter"}, nil)
	assert.Len(t, l.Snapshot().OpenHooks, 2)

	l.Commit(3, nil, 0.6, nil, []string{"a missing badge"})
	assert.Equal(t, []string{"an unsigned letter"}, l.UnresolvedHooks())

	sum := l.Summary()
	assert.Equal(t, []string{"an unsigned letter"}, sum.UnresolvedHooks)
	assert.Equal(t, []float64{0.4, 0.6}, sum.TensionCurve)
}

func TestLedgerCountsAppliedOperators(t *testing.T) {
	l := NewLedger(2)
	ops := Catalog()

	l.Commit(0, []Directive{{Operator: ops[0]}, {Operator: ops[2]}}, 0.5, nil, nil)
	l.Commit(1, []Directive{{Operator: ops[0]}}, 0.6, nil, nil)

	sum := l.Summary()
	assert.Equal(t, 2, sum.OperatorCounts[ops[0].Name])
	assert.Equal(t, 1, sum.OperatorCounts[ops[2].Name])
}
