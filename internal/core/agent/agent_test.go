package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/showrunner/internal/core/memory"
	"github.com/agenthands/showrunner/internal/core/model"
)

func makeAgent(id, name string, p model.Personality) *Agent {
	return New(&model.Character{
		ID: id, Name: name, Personality: p, Location: "office",
		Emotions: model.NeutralEmotions(),
	}, 100, memory.DefaultWeights())
}

func sampleView() WorldView {
	return WorldView{
		Tick: 3, Location: "office", LocationDesc: "an open-plan office",
		Exits: []string{"cafeteria", "conference room"},
		AgentsPresent: []SeenAgent{
			{ID: "a1", Name: "Mara", Mood: "neutral"},
			{ID: "a2", Name: "Iver", Mood: "annoyed"},
		},
		RecentEvents: []model.Event{
			{ID: "e1", Location: "office", Description: "an argument breaks out", Impact: 0.7},
			{ID: "e2", Location: "office", Description: "a chair scrapes", Impact: 0.05},
		},
	}
}

func TestPerceiveOpennessWidensCandidateSet(t *testing.T) {
	open := makeAgent("a1", "Mara", model.Personality{Openness: 0.95, Extraversion: 0.5})
	closed := makeAgent("a3", "Sten", model.Personality{Openness: 0.05, Extraversion: 0.5})

	view := sampleView()
	obsOpen := open.Perceive(view)
	obsClosed := closed.Perceive(view)

	assert.Greater(t, len(obsOpen), len(obsClosed))
}

func TestDecideIsDeterministic(t *testing.T) {
	view := sampleView()
	w := DefaultDecisionWeights()

	a := makeAgent("a3", "Sten", model.Personality{Openness: 0.6, Extraversion: 0.8, Agreeableness: 0.7})
	b := makeAgent("a3", "Sten", model.Personality{Openness: 0.6, Extraversion: 0.8, Agreeableness: 0.7})

	obsA := a.Perceive(view)
	obsB := b.Perceive(view)
	assert.Equal(t, obsA, obsB)

	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Decide(view, obsA, w), b.Decide(view, obsB, w))
	}
}

func TestDecidePersonalityShapesChoice(t *testing.T) {
	view := sampleView()
	w := DefaultDecisionWeights()

	extrovert := makeAgent("a3", "Nia", model.Personality{Extraversion: 0.95, Agreeableness: 0.8, Openness: 0.5})
	loner := makeAgent("a4", "Rue", model.Personality{Extraversion: 0.05, Agreeableness: 0.2, Openness: 0.1})
	loner.SocialNeed = 0.1

	social := extrovert.Decide(view, extrovert.Perceive(view), w)
	assert.Contains(t, []ActionType{ActionSpeak, ActionInteract}, social.Type)

	solitary := loner.Decide(view, loner.Perceive(view), w)
	assert.NotEqual(t, ActionSpeak, solitary.Type)
}

func TestActStaleTargetDowngradesToObserve(t *testing.T) {
	a := makeAgent("a1", "Mara", model.Personality{Extraversion: 0.8})
	act := Action{ID: "speak:gone", Type: ActionSpeak, TargetID: "gone", Friendly: true}

	res := a.Act(act, false)

	assert.True(t, res.Downgraded)
	assert.Equal(t, ActionObserve, res.Action.Type)
	assert.Equal(t, 1, a.SkippedActions)
	assert.Equal(t, StateIdle, a.State)
}

func TestActInteractUpdatesRelationship(t *testing.T) {
	a := makeAgent("a1", "Mara", model.Personality{Agreeableness: 0.9})
	act := Action{ID: "interact:a2", Type: ActionInteract, TargetID: "a2", Friendly: true}

	a.Act(act, true)

	rel, ok := a.Char.Relationships["a2"]
	assert.True(t, ok)
	assert.Greater(t, rel.Affinity, 0.0)
	assert.Equal(t, StateInteracting, a.State)
}

func TestRelationshipsOnlyForEncounteredCharacters(t *testing.T) {
	a := makeAgent("a1", "Mara", model.Personality{})
	assert.Empty(t, a.Char.Relationships)

	a.ObserveAgent("a2")
	assert.Len(t, a.Char.Relationships, 1)
	assert.Equal(t, "acquaintance", a.Char.Relationships["a2"].Kind)
}
