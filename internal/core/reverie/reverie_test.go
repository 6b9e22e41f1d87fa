package reverie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/showrunner/internal/core/agent"
	"github.com/agenthands/showrunner/internal/core/memory"
	"github.com/agenthands/showrunner/internal/core/model"
)

func newTestAgent() *agent.Agent {
	return agent.New(&model.Character{
		ID: "mara", Name: "Mara", Location: "Office",
		Personality: model.Personality{Openness: 0.9, Extraversion: 0.5},
		Goals:       []model.Goal{{ID: "g1", Description: "finish the audit", Priority: 0.8}},
		Emotions:    model.NeutralEmotions(),
	}, 100, memory.DefaultWeights())
}

func TestReflectEmptySliceIsDegenerate(t *testing.T) {
	r := NewReflector(0.5)
	ag := newTestAgent()

	rev := r.Reflect(ag, nil)

	assert.True(t, rev.Degenerate)
	assert.Empty(t, rev.Deltas)
	assert.NotEmpty(t, rev.Text, "degenerate reveries still serialize")
	assert.Equal(t, "mara", rev.AgentID)
	assert.Equal(t, agent.StateReflecting, ag.State)
}

func TestReflectLeavesBusyAgentStateAlone(t *testing.T) {
	r := NewReflector(0.5)
	ag := newTestAgent()
	ag.State = agent.StateInteracting

	rev := r.Reflect(ag, nil)

	assert.True(t, rev.Degenerate)
	assert.Equal(t, agent.StateInteracting, ag.State, "only idle agents enter reflection")
}

func TestReflectIsStable(t *testing.T) {
	slice := []model.Event{
		{ID: "e1", Tick: 0, Location: "Office", Description: "an argument breaks out", Impact: 0.7, Participants: []string{"mara", "iver"}},
		{ID: "e2", Tick: 1, Location: "Office", Description: "Mara says: \"enough\"", Impact: 0.3, Participants: []string{"mara", "iver"}},
	}

	r := NewReflector(0.5)
	a := r.Reflect(newTestAgent(), slice)
	b := r.Reflect(newTestAgent(), slice)

	assert.Equal(t, a.Text, b.Text)
	assert.Equal(t, a.Deltas, b.Deltas)
	assert.False(t, a.Degenerate)
	assert.Contains(t, a.Text, "iver")
	assert.Contains(t, a.Text, "finish the audit")
}

func TestReflectRescoresImportantMemories(t *testing.T) {
	ag := newTestAgent()
	ev := model.Event{ID: "e1", Tick: 0, Location: "Office", Description: "a crisis erupts", Impact: 0.9, Participants: []string{"mara"}}
	rec := ag.Memory.Record(ev, ag.Char)
	before := rec.Importance

	r := NewReflector(0.5)
	rev := r.Reflect(ag, []model.Event{ev})

	require.Contains(t, rev.MemoryIDs, rec.ID)
	after := ag.Memory.All()[0].Importance
	assert.Greater(t, after, before)
}

func TestEstablishedFacts(t *testing.T) {
	tl := model.Timeline{Events: []model.Event{
		{ID: "e1", Location: "Office", Description: "a secret slips out", Impact: 0.8},
		{ID: "e2", Location: "Cafeteria", Description: "coffee is poured", Impact: 0.1},
	}}

	facts := EstablishedFacts(tl, 0.5)
	require.Len(t, facts, 1)
	assert.Contains(t, facts[0], "secret")

	assert.Empty(t, EstablishedFacts(model.Timeline{}, 0.5))
}
