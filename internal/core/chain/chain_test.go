package chain

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/showrunner/internal/config"
	"github.com/agenthands/showrunner/internal/core/drama"
	"github.com/agenthands/showrunner/internal/core/model"
	"github.com/agenthands/showrunner/internal/llm"
)

// MockLLM pops canned responses in order. An empty queue or a queued error
// string simulates a failing provider.
type MockLLM struct {
	ResponseQueue []string
	Calls         []llm.Request
	FailAll       bool
}

func (m *MockLLM) Generate(_ context.Context, req llm.Request) (string, error) {
	m.Calls = append(m.Calls, req)
	if m.FailAll {
		return "", fmt.Errorf("mock provider down")
	}
	if len(m.ResponseQueue) == 0 {
		return "", fmt.Errorf("mock response queue exhausted")
	}
	resp := m.ResponseQueue[0]
	m.ResponseQueue = m.ResponseQueue[1:]
	return resp, nil
}

const (
	conceptJSON     = `{"description": "Mara confronts Iver about the audit", "beats": ["confrontation", "denial"], "conflict": "trust", "tone": "tense"}`
	goodScoreJSON   = `{"authenticity": 0.8, "coherence": 0.8, "drama": 0.8, "theme": 0.8, "feasibility": 0.8, "notes": ""}`
	lowScoreJSON    = `{"authenticity": 0.3, "coherence": 0.4, "drama": 0.3, "theme": 0.4, "feasibility": 0.4, "notes": "flat"}`
	enhancedJSON    = `{"description": "The office is silent when Mara walks in.", "dialogue": [{"speaker": "Mara", "text": "We found the gap.", "emotion": "cold"}], "hooks": ["the unsigned ledger page"], "resolved_hooks": []}`
	passJSON        = `{"status": "pass", "issues": []}`
	failFixableJSON = `{"status": "fail", "issues": ["Iver was in the cafeteria last scene"], "corrected_description": "The cafeteria is silent when Mara walks in."}`
	failFinalJSON   = `{"status": "fail", "issues": ["timeline still contradicts scene 2"], "corrected_description": ""}`
	polishJSON      = `{"description": "The office is silent. Mara lets the door close behind her.", "dialogue": [{"speaker": "Mara", "text": "We found the gap.", "emotion": "cold", "subtext": "I trusted you", "direction": "not moving from the door"}], "summary": "Mara confronts Iver with the audit gap."}`
)

func testRunner(mock *MockLLM) *Runner {
	cfg := config.Default()
	return NewRunner(mock, cfg.Prompts, cfg.Pipeline)
}

func testContext() model.SceneContext {
	return model.SceneContext{
		Storyline:   "A",
		Index:       0,
		TotalScenes: 2,
		Location:    "Office",
		Characters:  []model.Character{{ID: "mara", Name: "Mara", Emotions: model.NeutralEmotions()}},
		Tension:     0.5,
	}
}

func testBrief() model.Brief {
	return model.Brief{Title: "The Audit", Synopsis: "A small office unravels.", Pattern: "AB"}
}

func TestGenerateSceneHappyPath(t *testing.T) {
	mock := &MockLLM{ResponseQueue: []string{conceptJSON, goodScoreJSON, enhancedJSON, passJSON, polishJSON}}
	out := testRunner(mock).GenerateScene(context.Background(), testBrief(), testContext(), nil, NewBible(nil))

	require.Nil(t, out.Failure)
	assert.Equal(t, "scene-000", out.Scene.ID)
	assert.False(t, out.Scene.Fallback)
	assert.InDelta(t, 0.8, out.Scene.QualityScore, 1e-9)
	assert.Equal(t, model.CoherencePass, out.Scene.Coherence)
	require.Len(t, out.Scene.Dialogue, 1)
	assert.Equal(t, "I trusted you", out.Scene.Dialogue[0].Subtext)
	assert.Equal(t, []string{"the unsigned ledger page"}, out.PlantedHooks)
	assert.Len(t, mock.Calls, 5)
}

func TestGenerateSceneStageModes(t *testing.T) {
	mock := &MockLLM{ResponseQueue: []string{conceptJSON, goodScoreJSON, enhancedJSON, passJSON, polishJSON}}
	testRunner(mock).GenerateScene(context.Background(), testBrief(), testContext(), nil, NewBible(nil))

	require.Len(t, mock.Calls, 5)
	assert.Equal(t, llm.ModeCreative, mock.Calls[0].Mode, "concept is creative")
	assert.Equal(t, llm.ModeStructured, mock.Calls[1].Mode, "refinement is structured")
	assert.Equal(t, llm.ModeCreative, mock.Calls[2].Mode, "enhancement is creative")
	assert.Equal(t, llm.ModeStructured, mock.Calls[3].Mode)
	assert.Equal(t, llm.ModeStructured, mock.Calls[4].Mode)
}

func TestQualityGateRegeneratesOnce(t *testing.T) {
	mock := &MockLLM{ResponseQueue: []string{
		conceptJSON, lowScoreJSON, // first candidate rejected
		conceptJSON, goodScoreJSON, // regenerated candidate accepted
		enhancedJSON, passJSON, polishJSON,
	}}
	out := testRunner(mock).GenerateScene(context.Background(), testBrief(), testContext(), nil, NewBible(nil))

	require.Nil(t, out.Failure)
	assert.InDelta(t, 0.8, out.Scene.QualityScore, 1e-9)
	assert.Len(t, mock.Calls, 7)
}

func TestQualityGateForcesProgressionWithBestCandidate(t *testing.T) {
	mock := &MockLLM{ResponseQueue: []string{
		conceptJSON, lowScoreJSON,
		conceptJSON, lowScoreJSON, // regeneration no better, progress anyway
		enhancedJSON, passJSON, polishJSON,
	}}
	out := testRunner(mock).GenerateScene(context.Background(), testBrief(), testContext(), nil, NewBible(nil))

	require.Nil(t, out.Failure)
	assert.False(t, out.Scene.Fallback, "low quality never loops forever")
	assert.InDelta(t, 0.36, out.Scene.QualityScore, 1e-9)
	assert.Len(t, mock.Calls, 7)
}

func TestCoherenceCorrectionRound(t *testing.T) {
	mock := &MockLLM{ResponseQueue: []string{
		conceptJSON, goodScoreJSON, enhancedJSON,
		failFixableJSON, passJSON, // corrected draft re-checked once
		polishJSON,
	}}
	out := testRunner(mock).GenerateScene(context.Background(), testBrief(), testContext(), nil, NewBible(nil))

	require.Nil(t, out.Failure)
	assert.Equal(t, model.CoherencePass, out.Scene.Coherence)
	assert.Len(t, mock.Calls, 6)
}

func TestCoherenceFailureIsTaggedNotFatal(t *testing.T) {
	mock := &MockLLM{ResponseQueue: []string{
		conceptJSON, goodScoreJSON, enhancedJSON,
		failFixableJSON, failFinalJSON, // correction round does not help
		polishJSON,
	}}
	out := testRunner(mock).GenerateScene(context.Background(), testBrief(), testContext(), nil, NewBible(nil))

	require.Nil(t, out.Failure)
	assert.False(t, out.Scene.Fallback)
	assert.Equal(t, model.CoherenceFail, out.Scene.Coherence)
	assert.NotEmpty(t, out.Scene.CoherenceIssues)
}

func TestRetryRecoversFromMalformedOutput(t *testing.T) {
	mock := &MockLLM{ResponseQueue: []string{
		"I cannot answer in JSON today.", conceptJSON, // retry with simplified prompt
		goodScoreJSON, enhancedJSON, passJSON, polishJSON,
	}}
	out := testRunner(mock).GenerateScene(context.Background(), testBrief(), testContext(), nil, NewBible(nil))

	require.Nil(t, out.Failure)
	assert.Len(t, mock.Calls, 6)
}

func TestRetryExhaustionYieldsFallbackScene(t *testing.T) {
	mock := &MockLLM{FailAll: true}
	directives := []drama.Directive{{Operator: drama.Catalog()[0]}}
	out := testRunner(mock).GenerateScene(context.Background(), testBrief(), testContext(), directives, NewBible(nil))

	require.NotNil(t, out.Failure)
	assert.Equal(t, StageConcept, out.Failure.Stage)
	assert.Equal(t, 3, out.Failure.Attempts, "one attempt plus two retries")
	assert.True(t, out.Scene.Fallback)
	assert.Equal(t, model.CoherenceUnchecked, out.Scene.Coherence)
	assert.NotEmpty(t, out.Scene.Description)
	assert.NotEmpty(t, out.Scene.Dialogue, "template scenes carry placeholder dialogue")
	assert.Equal(t, []string{"reversal"}, out.Scene.Operators)
	assert.Len(t, mock.Calls, 3)
}

func TestFallbackSceneIsDeterministic(t *testing.T) {
	run := func() model.Scene {
		mock := &MockLLM{FailAll: true}
		return testRunner(mock).GenerateScene(context.Background(), testBrief(), testContext(), nil, NewBible(nil)).Scene
	}
	assert.Equal(t, run(), run())
}

func TestPromptSimplificationDropsContext(t *testing.T) {
	sc := testContext()
	sc.Memories = []model.MemoryRecord{{ID: "m1", Content: "a remembered argument"}}
	sc.Facts = []string{"the audit is ongoing"}

	mock := &MockLLM{FailAll: true}
	testRunner(mock).GenerateScene(context.Background(), testBrief(), sc, nil, NewBible(nil))

	require.Len(t, mock.Calls, 3)
	assert.Contains(t, mock.Calls[0].Prompt, "a remembered argument")
	assert.NotContains(t, mock.Calls[1].Prompt, "a remembered argument", "first retry drops memories")
	assert.Contains(t, mock.Calls[1].Prompt, "the audit is ongoing")
	assert.NotContains(t, mock.Calls[2].Prompt, "the audit is ongoing", "second retry keeps only the cast")
}
