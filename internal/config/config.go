package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type SimulationConfig struct {
	// Duration and Step are Go duration strings, e.g. "2h" and "15m".
	Duration    string  `toml:"duration"`
	Step        string  `toml:"step"`
	InjectBelow float64 `toml:"inject_below"`
	MemoryCap   int     `toml:"memory_capacity"`
}

func (c SimulationConfig) DurationValue() time.Duration {
	d, err := time.ParseDuration(c.Duration)
	if err != nil {
		return 2 * time.Hour
	}
	return d
}

func (c SimulationConfig) StepValue() time.Duration {
	d, err := time.ParseDuration(c.Step)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

type PipelineConfig struct {
	QualityThreshold float64 `toml:"quality_threshold"`
	MaxRetries       int     `toml:"max_retries"` // extra attempts per stage
	FanOut           int     `toml:"fan_out"`
	WallClockBudget  string  `toml:"wall_clock_budget"`
	MaxTokens        int     `toml:"max_tokens"`
}

func (c PipelineConfig) BudgetValue() time.Duration {
	if c.WallClockBudget == "" {
		return 0 // no budget
	}
	d, err := time.ParseDuration(c.WallClockBudget)
	if err != nil {
		return 0
	}
	return d
}

type DramaConfig struct {
	MaxPerScene int `toml:"max_per_scene"`
}

type ArchiveConfig struct {
	Enabled  bool   `toml:"enabled"`
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type DecisionWeights struct {
	Need        float64 `toml:"need"`
	Goal        float64 `toml:"goal"`
	Personality float64 `toml:"personality"`
	Social      float64 `toml:"social"`
}

type RetrievalWeights struct {
	Relevance  float64 `toml:"relevance"`
	Importance float64 `toml:"importance"`
	Recency    float64 `toml:"recency"`
	Decay      float64 `toml:"decay"`
}

// PipelinePrompts holds the template for each generation stage. Templates
// use fmt-style %s slots filled by the prompt chain.
type PipelinePrompts struct {
	Concept     string `toml:"concept"`
	Refinement  string `toml:"refinement"`
	Enhancement string `toml:"enhancement"`
	Coherence   string `toml:"coherence"`
	Polish      string `toml:"polish"`
}

type Config struct {
	LLM        LLMConfig        `toml:"llm"`
	Simulation SimulationConfig `toml:"simulation"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Drama      DramaConfig      `toml:"drama"`
	Archive    ArchiveConfig    `toml:"archive"`
	Decision   DecisionWeights  `toml:"decision"`
	Retrieval  RetrievalWeights `toml:"retrieval"`
	Prompts    PipelinePrompts  `toml:"prompts"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// Default returns a runnable configuration with compiled-in prompts, so the
// server works without a config file.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Duration:    "2h",
			Step:        "15m",
			InjectBelow: 0.3,
			MemoryCap:   1000,
		},
		Pipeline: PipelineConfig{
			QualityThreshold: 0.6,
			MaxRetries:       2,
			FanOut:           3,
			WallClockBudget:  "10m",
			MaxTokens:        2000,
		},
		Drama: DramaConfig{MaxPerScene: 2},
		Decision: DecisionWeights{
			Need: 0.25, Goal: 0.35, Personality: 0.25, Social: 0.15,
		},
		Retrieval: RetrievalWeights{
			Relevance: 0.5, Importance: 0.3, Recency: 0.2, Decay: 0.02,
		},
		Prompts: PipelinePrompts{
			Concept:     defaultConceptPrompt,
			Refinement:  defaultRefinementPrompt,
			Enhancement: defaultEnhancementPrompt,
			Coherence:   defaultCoherencePrompt,
			Polish:      defaultPolishPrompt,
		},
	}
}

const defaultConceptPrompt = `You are a television writer sketching one scene of an episode.

Episode brief:
%s

Scene slot %s

Context:
%s

Propose a scene concept. Respond with JSON only:
{"description": "what happens in the scene", "beats": ["beat 1", "beat 2"], "conflict": "the scene's central friction", "tone": "one word"}`

const defaultRefinementPrompt = `You are a story editor reviewing a scene concept.

Concept:
%s

Context:
%s

Score the concept from 0.0 to 1.0 on each dimension and suggest fixes. Respond with JSON only:
{"authenticity": 0.0, "coherence": 0.0, "drama": 0.0, "theme": 0.0, "feasibility": 0.0, "notes": "what to improve"}`

const defaultEnhancementPrompt = `You are a television writer turning a concept into a dramatic scene draft.

Concept:
%s

Dramatic directives to apply:
%s

Context:
%s

Write the scene with dialogue. Respond with JSON only:
{"description": "scene narration", "dialogue": [{"speaker": "Name", "text": "line", "emotion": "one word"}], "hooks": ["detail planted for a later payoff"], "resolved_hooks": ["earlier detail this scene pays off"]}`

const defaultCoherencePrompt = `You are a continuity checker. Verify this scene draft against the established facts.

Draft:
%s

Established facts:
%s

Prior scenes:
%s

Respond with JSON only:
{"status": "pass" or "fail", "issues": ["each contradiction found"], "corrected_description": "only if fixable, else empty"}`

const defaultPolishPrompt = `You are doing the final polish pass on a scene. Tighten the prose, finalize every dialogue line with emotion, subtext, and stage direction.

Draft:
%s

Context:
%s

Respond with JSON only:
{"description": "final scene narration", "dialogue": [{"speaker": "Name", "text": "line", "emotion": "one word", "subtext": "what they mean", "direction": "stage direction"}], "summary": "one sentence for the series bible"}`
