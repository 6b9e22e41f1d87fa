// Package chain drives one scene through the five-stage generation
// pipeline: concept, discriminative refinement, dramatic enhancement,
// coherence check, final polish. Stages are strictly sequential per scene;
// the runner owns the retry and fallback policy, so a scene is always
// produced and errors never escape the GenerateScene boundary.
package chain

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/agenthands/showrunner/internal/config"
	"github.com/agenthands/showrunner/internal/core/common"
	"github.com/agenthands/showrunner/internal/core/drama"
	"github.com/agenthands/showrunner/internal/core/model"
	"github.com/agenthands/showrunner/internal/llm"
)

type Stage string

const (
	StageConcept     Stage = "concept_generation"
	StageRefinement  Stage = "discriminative_refinement"
	StageEnhancement Stage = "dramatic_enhancement"
	StageCoherence   Stage = "coherence_check"
	StagePolish      Stage = "final_polish"
	StageDone        Stage = "done"
)

// transitions is the forward path; refinement may additionally loop back to
// concept exactly once when the quality gate rejects a candidate.
var transitions = map[Stage]Stage{
	StageConcept:     StageRefinement,
	StageRefinement:  StageEnhancement,
	StageEnhancement: StageCoherence,
	StageCoherence:   StagePolish,
	StagePolish:      StageDone,
}

// GenerationFailure records an exhausted stage. It is carried on the output
// for diagnostics, never returned as an error.
type GenerationFailure struct {
	Stage    Stage
	Attempts int
	Err      error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("stage %s failed after %d attempts: %v", e.Stage, e.Attempts, e.Err)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }

// Output bundles the scene with the ledger bookkeeping the orchestrator
// applies on acceptance.
type Output struct {
	Scene         model.Scene
	PlantedHooks  []string
	ResolvedHooks []string
	Failure       *GenerationFailure // set when the fallback template was used
}

type Runner struct {
	client  llm.Client
	prompts config.PipelinePrompts
	cfg     config.PipelineConfig
}

func NewRunner(client llm.Client, prompts config.PipelinePrompts, cfg config.PipelineConfig) *Runner {
	if cfg.QualityThreshold <= 0 {
		cfg.QualityThreshold = 0.6
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 2
	}
	return &Runner{client: client, prompts: prompts, cfg: cfg}
}

type conceptResult struct {
	Description string   `json:"description"`
	Beats       []string `json:"beats"`
	Conflict    string   `json:"conflict"`
	Tone        string   `json:"tone"`
}

type refinementResult struct {
	Authenticity float64 `json:"authenticity"`
	Coherence    float64 `json:"coherence"`
	Drama        float64 `json:"drama"`
	Theme        float64 `json:"theme"`
	Feasibility  float64 `json:"feasibility"`
	Notes        string  `json:"notes"`
}

func (r refinementResult) Aggregate() float64 {
	return (r.Authenticity + r.Coherence + r.Drama + r.Theme + r.Feasibility) / 5
}

type enhancementResult struct {
	Description   string               `json:"description"`
	Dialogue      []model.DialogueLine `json:"dialogue"`
	Hooks         []string             `json:"hooks"`
	ResolvedHooks []string             `json:"resolved_hooks"`
}

type coherenceResult struct {
	Status               string   `json:"status"`
	Issues               []string `json:"issues"`
	CorrectedDescription string   `json:"corrected_description"`
}

type polishResult struct {
	Description string               `json:"description"`
	Dialogue    []model.DialogueLine `json:"dialogue"`
	Summary     string               `json:"summary"`
}

// GenerateScene runs the full chain for one slot. It never returns an
// error: retry exhaustion at any stage substitutes the deterministic
// fallback scene and records the failure on the output.
func (r *Runner) GenerateScene(ctx context.Context, brief model.Brief, sc model.SceneContext, directives []drama.Directive, bible *Bible) Output {
	var (
		concept     conceptResult
		quality     float64
		draft       enhancementResult
		coherence   = model.CoherenceUnchecked
		issues      []string
		polished    polishResult
		regenerated bool
	)

	stage := StageConcept
	for stage != StageDone {
		switch stage {
		case StageConcept:
			c, err := r.runConcept(ctx, brief, sc)
			if err != nil {
				return r.fallback(sc, directives, err)
			}
			concept = c

		case StageRefinement:
			score, err := r.runRefinement(ctx, concept, sc)
			if err != nil {
				return r.fallback(sc, directives, err)
			}
			agg := score.Aggregate()
			if agg < r.cfg.QualityThreshold && !regenerated {
				// One regeneration, then progress with the better candidate.
				regenerated = true
				prev, prevAgg := concept, agg
				c, err := r.runConcept(ctx, brief, sc)
				if err != nil {
					return r.fallback(sc, directives, err)
				}
				rescore, err := r.runRefinement(ctx, c, sc)
				if err != nil {
					return r.fallback(sc, directives, err)
				}
				if rescore.Aggregate() >= prevAgg {
					concept, agg = c, rescore.Aggregate()
				} else {
					concept, agg = prev, prevAgg
				}
			}
			quality = agg

		case StageEnhancement:
			d, err := r.runEnhancement(ctx, concept, sc, directives)
			if err != nil {
				return r.fallback(sc, directives, err)
			}
			draft = d

		case StageCoherence:
			status, iss, corrected, err := r.runCoherence(ctx, draft, sc, bible)
			if err != nil {
				return r.fallback(sc, directives, err)
			}
			if status == model.CoherenceFail && corrected != "" {
				// One correction round, then accept whatever verdict stands.
				draft.Description = corrected
				status, iss, _, err = r.runCoherence(ctx, draft, sc, bible)
				if err != nil {
					return r.fallback(sc, directives, err)
				}
			}
			coherence, issues = status, iss

		case StagePolish:
			p, err := r.runPolish(ctx, draft, sc)
			if err != nil {
				return r.fallback(sc, directives, err)
			}
			polished = p
		}
		stage = transitions[stage]
	}

	scene := model.Scene{
		ID:              fmt.Sprintf("scene-%03d", sc.Index),
		Storyline:       sc.Storyline,
		Index:           sc.Index,
		Location:        sc.Location,
		Characters:      sc.CharacterNames(),
		Description:     polished.Description,
		Dialogue:        polished.Dialogue,
		Operators:       directiveNames(directives),
		Hooks:           draft.Hooks,
		Tension:         sc.Tension,
		QualityScore:    quality,
		Coherence:       coherence,
		CoherenceIssues: issues,
		Summary:         polished.Summary,
	}
	if scene.Description == "" {
		scene.Description = draft.Description
	}
	if len(scene.Dialogue) == 0 {
		scene.Dialogue = draft.Dialogue
	}
	return Output{
		Scene:         scene,
		PlantedHooks:  draft.Hooks,
		ResolvedHooks: draft.ResolvedHooks,
	}
}

func (r *Runner) runConcept(ctx context.Context, brief model.Brief, sc model.SceneContext) (conceptResult, *GenerationFailure) {
	return callStage[conceptResult](r, ctx, StageConcept, llm.ModeCreative, func(simplify int) string {
		return fmt.Sprintf(r.prompts.Concept, briefBlock(brief), slotBlock(sc), contextBlock(sc, simplify))
	})
}

func (r *Runner) runRefinement(ctx context.Context, c conceptResult, sc model.SceneContext) (refinementResult, *GenerationFailure) {
	return callStage[refinementResult](r, ctx, StageRefinement, llm.ModeStructured, func(simplify int) string {
		return fmt.Sprintf(r.prompts.Refinement, conceptBlock(c), contextBlock(sc, simplify))
	})
}

func (r *Runner) runEnhancement(ctx context.Context, c conceptResult, sc model.SceneContext, directives []drama.Directive) (enhancementResult, *GenerationFailure) {
	return callStage[enhancementResult](r, ctx, StageEnhancement, llm.ModeCreative, func(simplify int) string {
		return fmt.Sprintf(r.prompts.Enhancement, conceptBlock(c), directiveBlock(directives), contextBlock(sc, simplify))
	})
}

func (r *Runner) runCoherence(ctx context.Context, d enhancementResult, sc model.SceneContext, bible *Bible) (model.CoherenceStatus, []string, string, *GenerationFailure) {
	res, err := callStage[coherenceResult](r, ctx, StageCoherence, llm.ModeStructured, func(simplify int) string {
		recent := strings.Join(sc.RecentScenes, "\n")
		if simplify > 0 {
			recent = "(omitted)"
		}
		return fmt.Sprintf(r.prompts.Coherence, draftBlock(d), bible.Render(), recent)
	})
	if err != nil {
		return model.CoherenceUnchecked, nil, "", err
	}
	if strings.EqualFold(res.Status, "pass") {
		return model.CoherencePass, nil, "", nil
	}
	return model.CoherenceFail, res.Issues, res.CorrectedDescription, nil
}

func (r *Runner) runPolish(ctx context.Context, d enhancementResult, sc model.SceneContext) (polishResult, *GenerationFailure) {
	return callStage[polishResult](r, ctx, StagePolish, llm.ModeStructured, func(simplify int) string {
		return fmt.Sprintf(r.prompts.Polish, draftBlock(d), contextBlock(sc, simplify))
	})
}

// callStage issues the external call with the stage's retry policy: up to
// MaxRetries extra attempts, each with a further simplified prompt.
func callStage[T any](r *Runner, ctx context.Context, stage Stage, mode llm.Mode, build func(simplify int) string) (T, *GenerationFailure) {
	var zero T
	var lastErr error
	attempts := r.cfg.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, &GenerationFailure{Stage: stage, Attempts: attempt, Err: err}
		}
		resp, err := r.client.Generate(ctx, llm.Request{
			Prompt:    build(attempt),
			Mode:      mode,
			MaxTokens: r.cfg.MaxTokens,
		})
		if err == nil {
			res, perr := common.ParseJSON[T](resp)
			if perr == nil {
				return res, nil
			}
			err = perr
		}
		lastErr = err
		log.Printf("Stage %s attempt %d/%d failed: %v", stage, attempt+1, attempts, err)
	}
	return zero, &GenerationFailure{Stage: stage, Attempts: attempts, Err: lastErr}
}

// fallback builds the deterministic template scene used when a stage
// exhausts its retries. Quality is zero and coherence stays unchecked.
func (r *Runner) fallback(sc model.SceneContext, directives []drama.Directive, failure *GenerationFailure) Output {
	log.Printf("Falling back to template scene for slot %d: %v", sc.Index, failure)

	names := sc.CharacterNames()
	who := "The characters"
	if len(names) > 0 {
		who = strings.Join(names, " and ")
	}

	scene := model.Scene{
		ID:          fmt.Sprintf("scene-%03d", sc.Index),
		Storyline:   sc.Storyline,
		Index:       sc.Index,
		Location:    sc.Location,
		Characters:  names,
		Description: fmt.Sprintf("%s gather at %s. The situation remains unresolved and the conversation circles what no one wants to say.", who, sc.Location),
		Operators:   directiveNames(directives),
		Tension:     sc.Tension,
		Coherence:   model.CoherenceUnchecked,
		Fallback:    true,
	}
	for _, name := range names {
		scene.Dialogue = append(scene.Dialogue, model.DialogueLine{
			Speaker: name,
			Text:    "We need to talk about what happens next.",
			Emotion: "tense",
		})
	}
	return Output{Scene: scene, Failure: failure}
}

func directiveNames(directives []drama.Directive) []string {
	names := make([]string, 0, len(directives))
	for _, d := range directives {
		names = append(names, d.Operator.Name)
	}
	return names
}

func briefBlock(b model.Brief) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\nSynopsis: %s\n", b.Title, b.Synopsis)
	if len(b.Themes) > 0 {
		fmt.Fprintf(&sb, "Themes: %s\n", strings.Join(b.Themes, ", "))
	}
	if b.Genre != "" {
		fmt.Fprintf(&sb, "Genre: %s\n", b.Genre)
	}
	if b.Tone != "" {
		fmt.Fprintf(&sb, "Tone: %s\n", b.Tone)
	}
	return sb.String()
}

func slotBlock(sc model.SceneContext) string {
	return fmt.Sprintf("%d of %d, storyline %s, at %s, tension %.2f",
		sc.Index+1, sc.TotalScenes, sc.Storyline, sc.Location, sc.Tension)
}

// contextBlock renders the scene context at a simplification level: 0 is
// everything, 1 drops memories and older scene summaries, 2 keeps only the
// cast and location.
func contextBlock(sc model.SceneContext, simplify int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Location: %s\nCharacters:\n", sc.Location)
	for _, c := range sc.Characters {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", c.Name, c.Emotions.Describe(), common.Truncate(c.Backstory, 200))
	}
	if simplify >= 2 {
		return sb.String()
	}

	if len(sc.Facts) > 0 {
		sb.WriteString("Established facts:\n")
		for _, f := range sc.Facts {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
	}
	if len(sc.OpenHooks) > 0 {
		sb.WriteString("Open hooks:\n")
		for _, h := range sc.OpenHooks {
			fmt.Fprintf(&sb, "- %s\n", h)
		}
	}
	if simplify >= 1 {
		return sb.String()
	}

	if len(sc.Reveries) > 0 {
		sb.WriteString("Reveries:\n")
		for _, rev := range sc.Reveries {
			fmt.Fprintf(&sb, "- %s\n", common.Truncate(rev.Text, 300))
		}
	}
	if len(sc.Memories) > 0 {
		sb.WriteString("Relevant memories:\n")
		for _, m := range sc.Memories {
			fmt.Fprintf(&sb, "- %s\n", common.Truncate(m.Content, 200))
		}
	}
	if len(sc.RecentScenes) > 0 {
		sb.WriteString("Recent scenes:\n")
		for _, s := range sc.RecentScenes {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
	}
	return sb.String()
}

func conceptBlock(c conceptResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Description: %s\nConflict: %s\nTone: %s\n", c.Description, c.Conflict, c.Tone)
	for _, b := range c.Beats {
		fmt.Fprintf(&sb, "- %s\n", b)
	}
	return sb.String()
}

func directiveBlock(directives []drama.Directive) string {
	if len(directives) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, d := range directives {
		fmt.Fprintf(&sb, "- %s: %s\n", d.Operator.Name, d.Instruction)
	}
	return sb.String()
}

func draftBlock(d enhancementResult) string {
	var sb strings.Builder
	sb.WriteString(d.Description)
	sb.WriteString("\n")
	for _, line := range d.Dialogue {
		fmt.Fprintf(&sb, "%s: %s\n", line.Speaker, line.Text)
	}
	return sb.String()
}
