package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/showrunner/internal/core/model"
)

func testCharacter() *model.Character {
	return &model.Character{
		ID:   "char-1",
		Name: "Mara",
		Personality: model.Personality{
			Openness: 0.8, Conscientiousness: 0.5, Extraversion: 0.6,
			Agreeableness: 0.4, Neuroticism: 0.7,
		},
		Goals: []model.Goal{
			{ID: "g1", Description: "uncover the missing ledger", Priority: 0.9},
		},
	}
}

func TestRecordImportanceRubric(t *testing.T) {
	s := NewStream(100, DefaultWeights())
	owner := testCharacter()

	mundane := s.Record(model.Event{
		ID: "e1", Tick: 1, Type: model.EventObservation,
		Description: "Mara pours a cup of coffee", Impact: 0.1,
	}, owner)

	charged := s.Record(model.Event{
		ID: "e2", Tick: 1, Type: model.EventInteraction,
		Description: "Mara discovers a secret about the missing ledger", Impact: 0.7,
	}, owner)

	assert.Greater(t, charged.Importance, mundane.Importance)
	assert.LessOrEqual(t, charged.Importance, 1.0)
	assert.GreaterOrEqual(t, mundane.Importance, 0.0)
}

func TestRetrieveRankingAndIdempotence(t *testing.T) {
	s := NewStream(100, DefaultWeights())
	owner := testCharacter()

	s.Record(model.Event{ID: "e1", Tick: 1, Description: "an argument about the ledger breaks out", Impact: 0.8}, owner)
	s.Record(model.Event{ID: "e2", Tick: 2, Description: "quiet afternoon in the cafeteria", Impact: 0.1}, owner)
	s.Record(model.Event{ID: "e3", Tick: 3, Description: "the ledger goes missing again", Impact: 0.6}, owner)

	first := s.Retrieve("missing ledger", 2, 10)
	second := s.Retrieve("missing ledger", 2, 10)

	assert.Len(t, first, 2)
	assert.Equal(t, first, second, "retrieval must be idempotent on an unmodified stream")
	for _, rec := range first {
		assert.Contains(t, rec.Content, "ledger")
	}
}

func TestRetrieveTieBreakPrefersEarlierTick(t *testing.T) {
	s := NewStream(100, Weights{Relevance: 1, Importance: 0, Recency: 0, Decay: 0})
	owner := testCharacter()

	s.Record(model.Event{ID: "e1", Tick: 5, Description: "the door opens", Impact: 0.5}, owner)
	s.Record(model.Event{ID: "e2", Tick: 2, Description: "the door opens", Impact: 0.5}, owner)

	got := s.Retrieve("door opens", 2, 10)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Tick)
	assert.Equal(t, 5, got[1].Tick)
}

func TestRetrieveEmptyStream(t *testing.T) {
	s := NewStream(10, DefaultWeights())
	assert.Empty(t, s.Retrieve("anything", 5, 0))
}

func TestCapacityEviction(t *testing.T) {
	s := NewStream(5, DefaultWeights())
	owner := testCharacter()

	for i := 0; i < 10; i++ {
		s.Record(model.Event{
			ID: fmt.Sprintf("e%d", i), Tick: i,
			Description: fmt.Sprintf("event number %d", i), Impact: 0.3,
		}, owner)
	}
	assert.Equal(t, 5, s.Len())
}

func TestRescore(t *testing.T) {
	s := NewStream(10, DefaultWeights())
	owner := testCharacter()
	rec := s.Record(model.Event{ID: "e1", Tick: 1, Description: "something happened", Impact: 0.2}, owner)

	assert.True(t, s.Rescore(rec.ID, 0.95))
	all := s.All()
	assert.Equal(t, 0.95, all[0].Importance)
	assert.Equal(t, rec.Content, all[0].Content, "content is immutable")
	assert.False(t, s.Rescore("no-such-id", 0.5))
}
