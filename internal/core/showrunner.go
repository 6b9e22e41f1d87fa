// Package core wires the simulation, reflection, scheduling, drama
// selection and the generation chain into the episode pipeline.
package core

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/showrunner/internal/config"
	"github.com/agenthands/showrunner/internal/core/agent"
	"github.com/agenthands/showrunner/internal/core/chain"
	"github.com/agenthands/showrunner/internal/core/drama"
	"github.com/agenthands/showrunner/internal/core/memory"
	"github.com/agenthands/showrunner/internal/core/model"
	"github.com/agenthands/showrunner/internal/core/plot"
	"github.com/agenthands/showrunner/internal/core/reverie"
	"github.com/agenthands/showrunner/internal/core/sim"
	"github.com/agenthands/showrunner/internal/driver"
	"github.com/agenthands/showrunner/internal/llm"
)

// GenerateRequest is one episode order. Storylines are optional; when
// absent they are derived from the pattern's labels and the cast.
type GenerateRequest struct {
	Brief          model.Brief
	Characters     []model.Character
	Storylines     []model.StorylineThread
	SkipSimulation bool
	Duration       time.Duration // zero means config default
	Step           time.Duration
	EpisodeLength  int // zero means len(pattern)
}

// Showrunner owns the full pipeline. The drama ledger and the series bible
// are mutated only between generation waves, by this loop, in slot order.
type Showrunner struct {
	cfg       *config.Config
	runner    *chain.Runner
	selector  *drama.Selector
	reflector *reverie.Reflector
	archive   driver.Archive
}

func NewShowrunner(client llm.Client, cfg *config.Config, archive driver.Archive) *Showrunner {
	return &Showrunner{
		cfg:       cfg,
		runner:    chain.NewRunner(client, cfg.Prompts, cfg.Pipeline),
		selector:  drama.NewSelector(),
		reflector: reverie.NewReflector(0.5),
		archive:   archive,
	}
}

// GenerateEpisode runs sim → reflect → schedule → generate → assemble. The
// pattern is validated before any simulation or generation starts; after
// that point generation-layer failures degrade scenes instead of erroring.
func (s *Showrunner) GenerateEpisode(ctx context.Context, req GenerateRequest) (*model.Episode, error) {
	world := sim.DefaultWorld()

	storylines := append([]model.StorylineThread(nil), req.Storylines...)
	if len(storylines) == 0 {
		storylines = deriveStorylines(req.Brief.Pattern, req.Characters, world.Names())
	}
	characters := make(map[string]model.Character, len(req.Characters))
	for _, c := range req.Characters {
		characters[c.ID] = c
	}

	// Pattern problems are fatal and must surface before anything runs.
	contexts, err := plot.Schedule(req.Brief.Pattern, storylines, characters, req.EpisodeLength)
	if err != nil {
		return nil, err
	}

	var warnings []string

	agents, timeline, finalTension, simWarnings := s.runSimulation(ctx, req, world)
	warnings = append(warnings, simWarnings...)

	reveries := make(map[string]model.Reverie, len(agents))
	for _, ag := range agents {
		reveries[ag.Char.ID] = s.reflector.Reflect(ag, timeline.Slice(ag.Char.ID))
	}
	facts := reverie.EstablishedFacts(timeline, s.reflector.ImportanceThreshold)

	// Threads are the evolving per-storyline state: the simulation seeds their
	// tension, then each accepted scene's devices move it and its summary
	// accrues, so later slots see where their storyline actually stands.
	threads := make(map[string]*model.StorylineThread, len(storylines))
	for i := range storylines {
		if finalTension > 0 {
			storylines[i].Tension = finalTension
		}
		threads[storylines[i].Label] = &storylines[i]
	}

	episode := &model.Episode{
		ID:       uuid.New().String(),
		Title:    req.Brief.Title,
		Synopsis: req.Brief.Synopsis,
		Themes:   req.Brief.Themes,
		Genre:    req.Brief.Genre,
		Tone:     req.Brief.Tone,
	}

	ledger := drama.NewLedger(s.cfg.Drama.MaxPerScene)
	bible := buildBible(facts, agents, characters, world, storylines)
	outputs := make([]chain.Output, len(contexts))
	directives := make([][]drama.Directive, len(contexts))
	generated := 0

	fanOut := s.cfg.Pipeline.FanOut
	if fanOut <= 0 {
		fanOut = 1
	}
	budget := s.cfg.Pipeline.BudgetValue()
	start := time.Now()

	for wave := 0; wave < len(contexts); wave += fanOut {
		if budget > 0 && time.Since(start) > budget {
			episode.Truncated = true
			warnings = append(warnings, fmt.Sprintf("wall-clock budget %s exhausted after %d of %d scenes", budget, generated, len(contexts)))
			log.Printf("Warning: stopping scene scheduling, budget %s exhausted", budget)
			break
		}
		if ctx.Err() != nil {
			episode.Truncated = true
			break
		}

		end := wave + fanOut
		if end > len(contexts) {
			end = len(contexts)
		}

		// The whole wave sees one ledger snapshot; commits land in slot
		// order after every scene in the wave has finished.
		snap := ledger.Snapshot()
		for i := wave; i < end; i++ {
			if th := threads[contexts[i].Storyline]; th != nil {
				contexts[i].Tension = th.Tension
			}
			s.enrichContext(&contexts[i], agents, reveries, facts, bible, snap, timeline.Ticks)
			directives[i] = s.selector.Select(contexts[i], snap, ledger.MaxPerScene)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(fanOut)
		for i := wave; i < end; i++ {
			i := i
			g.Go(func() error {
				outputs[i] = s.runner.GenerateScene(gctx, req.Brief, contexts[i], directives[i], bible)
				return nil
			})
		}
		_ = g.Wait() // scene generation never errors past the chain boundary

		for i := wave; i < end; i++ {
			out := outputs[i]
			tension := out.Scene.Tension
			if th := threads[out.Scene.Storyline]; th != nil {
				th.Tension = nextTension(th.Tension, directives[i])
				if out.Scene.Summary != "" {
					th.SceneSummaries = append(th.SceneSummaries, out.Scene.Summary)
				}
				tension = th.Tension
			}
			ledger.Commit(i, directives[i], tension, out.PlantedHooks, out.ResolvedHooks)
			if !out.Scene.Fallback {
				ledger.AddCallbackTarget(out.Scene.Summary)
			}
			bible.AddSummary(out.Scene.Summary)
			for _, hook := range out.PlantedHooks {
				if hook != "" {
					bible.OpenPlotlines = append(bible.OpenPlotlines, hook)
				}
			}
			if out.Failure != nil {
				warnings = append(warnings, out.Failure.Error())
			}
			generated++
		}
	}

	var totalQuality float64
	for i := 0; i < generated; i++ {
		scene := outputs[i].Scene
		episode.Scenes = append(episode.Scenes, scene)
		totalQuality += scene.QualityScore
		if scene.Fallback {
			episode.FallbackScenes = append(episode.FallbackScenes, scene.Index)
		}
		if scene.Coherence == model.CoherenceFail {
			episode.IncoherentScenes = append(episode.IncoherentScenes, scene.Index)
		}
	}
	if generated > 0 {
		episode.AverageQuality = totalQuality / float64(generated)
	}
	for _, hook := range ledger.UnresolvedHooks() {
		warnings = append(warnings, fmt.Sprintf("unresolved hook: %s", hook))
	}
	episode.Warnings = warnings
	episode.Ledger = ledger.Summary()

	if err := ctx.Err(); err != nil {
		return episode, err
	}

	s.archiveEpisode(ctx, episode)

	log.Printf("Episode %s complete: %d scenes, avg quality %.2f, %d fallback, %d incoherent",
		episode.ID, len(episode.Scenes), episode.AverageQuality, len(episode.FallbackScenes), len(episode.IncoherentScenes))
	return episode, nil
}

// runSimulation produces the creative fuel. Underflow and a skipped
// simulation both yield an empty timeline plus a warning, never an error
// that stops the pipeline.
func (s *Showrunner) runSimulation(ctx context.Context, req GenerateRequest, world *sim.World) ([]*agent.Agent, model.Timeline, float64, []string) {
	if req.SkipSimulation {
		return nil, model.Timeline{}, 0, []string{"simulation skipped: generating from brief only"}
	}

	weights := memory.Weights{
		Relevance:  s.cfg.Retrieval.Relevance,
		Importance: s.cfg.Retrieval.Importance,
		Recency:    s.cfg.Retrieval.Recency,
		Decay:      s.cfg.Retrieval.Decay,
	}
	agents := make([]*agent.Agent, 0, len(req.Characters))
	for i := range req.Characters {
		c := req.Characters[i]
		if c.Emotions == (model.EmotionalState{}) {
			c.Emotions = model.NeutralEmotions()
		}
		agents = append(agents, agent.New(&c, s.cfg.Simulation.MemoryCap, weights))
	}
	if len(agents) == 0 {
		return nil, model.Timeline{}, 0, []string{"no characters: simulation produced no events"}
	}

	duration := req.Duration
	if duration == 0 {
		duration = s.cfg.Simulation.DurationValue()
	}
	step := req.Step
	if step == 0 {
		step = s.cfg.Simulation.StepValue()
	}

	engine := sim.NewEngine(agent.DecisionWeights{
		Need:        s.cfg.Decision.Need,
		Goal:        s.cfg.Decision.Goal,
		Personality: s.cfg.Decision.Personality,
		Social:      s.cfg.Decision.Social,
	})
	if s.cfg.Simulation.InjectBelow > 0 {
		engine.InjectBelow = s.cfg.Simulation.InjectBelow
	}

	res, err := engine.Run(ctx, agents, world, duration, step)
	if err != nil {
		// A failed simulation still leaves a valid empty timeline.
		log.Printf("Simulation failed, proceeding without creative fuel: %v", err)
		return agents, model.Timeline{}, 0, []string{fmt.Sprintf("simulation failed: %v", err)}
	}

	var warnings []string
	if res.Underflow != nil {
		warnings = append(warnings, res.Underflow.Error())
	}
	return agents, res.Timeline, res.FinalTension, warnings
}

// enrichContext fills the slot's prompt material: reveries and retrieved
// memories for its cast, established facts, recent accepted scenes, and the
// ledger's open hooks and callback targets. The cast snapshots are replaced
// with the agents' current state so prompts see the emotions, locations and
// relationships the simulation actually produced.
func (s *Showrunner) enrichContext(sc *model.SceneContext, agents []*agent.Agent, reveries map[string]model.Reverie, facts []string, bible *chain.Bible, snap drama.Snapshot, nowTick int) {
	sc.Facts = facts
	sc.OpenHooks = snap.OpenHooks
	sc.CallbackTargets = snap.CallbackTargets
	sc.Memories = nil
	sc.Reveries = nil

	for i := range sc.Characters {
		if ag := findAgent(agents, sc.Characters[i].ID); ag != nil {
			sc.Characters[i] = *ag.Char
		}
	}

	query := sc.Location + " " + strings.Join(sc.CharacterNames(), " ")
	for _, c := range sc.Characters {
		if rev, ok := reveries[c.ID]; ok && !rev.Degenerate {
			sc.Reveries = append(sc.Reveries, rev)
		}
		if ag := findAgent(agents, c.ID); ag != nil {
			sc.Memories = append(sc.Memories, ag.Memory.Retrieve(query, 3, nowTick)...)
		}
	}

	recent := bible.SceneSummaries
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	sc.RecentScenes = append([]string(nil), recent...)
}

func (s *Showrunner) archiveEpisode(ctx context.Context, ep *model.Episode) {
	if s.archive == nil {
		return
	}
	if err := s.archive.SaveEpisode(ctx, ep); err != nil {
		log.Printf("Warning: failed to archive episode %s: %v", ep.ID, err)
	}
}

// deriveStorylines assigns the cast round-robin across the pattern's
// distinct labels, in label first-appearance order.
func deriveStorylines(pattern string, characters []model.Character, locations []string) []model.StorylineThread {
	seen := make(map[string]bool)
	var labels []string
	for _, r := range pattern {
		l := string(r)
		if !seen[l] {
			seen[l] = true
			labels = append(labels, l)
		}
	}

	threads := make([]model.StorylineThread, 0, len(labels))
	for i, label := range labels {
		thread := model.StorylineThread{Label: label, Tension: 0.5}
		if len(locations) > 0 {
			thread.Location = locations[i%len(locations)]
		}
		for j := range characters {
			if len(labels) > 0 && j%len(labels) == i {
				thread.CharacterIDs = append(thread.CharacterIDs, characters[j].ID)
			}
		}
		// A storyline with no cast of its own borrows the first character.
		if len(thread.CharacterIDs) == 0 && len(characters) > 0 {
			thread.CharacterIDs = []string{characters[0].ID}
		}
		sort.Strings(thread.CharacterIDs)
		threads = append(threads, thread)
	}
	return threads
}

func findAgent(agents []*agent.Agent, id string) *agent.Agent {
	for _, ag := range agents {
		if ag.Char.ID == id {
			return ag
		}
	}
	return nil
}

// buildBible seeds the continuity record before any scene is generated:
// timeline facts, the relationships the simulation developed, the world's
// geography, and one open plotline per storyline thread.
func buildBible(facts []string, agents []*agent.Agent, characters map[string]model.Character, world *sim.World, storylines []model.StorylineThread) *chain.Bible {
	bible := chain.NewBible(nil)
	for _, f := range facts {
		bible.AddFact(f)
	}

	for _, ag := range agents {
		for _, id := range ag.Char.RelationshipIDs() {
			rel := ag.Char.Relationships[id]
			name := id
			if c, ok := characters[id]; ok {
				name = c.Name
			}
			bible.Relationships = append(bible.Relationships,
				fmt.Sprintf("%s regards %s as %s (affinity %.2f, trust %.2f)", ag.Char.Name, name, rel.Kind, rel.Affinity, rel.Trust))
		}
	}

	for _, locName := range world.Names() {
		if loc, ok := world.Location(locName); ok && len(loc.ConnectedTo) > 0 {
			bible.WorldRules = append(bible.WorldRules, fmt.Sprintf("%s connects to %s", locName, strings.Join(loc.ConnectedTo, ", ")))
		}
	}

	for _, th := range storylines {
		names := make([]string, 0, len(th.CharacterIDs))
		for _, id := range th.CharacterIDs {
			if c, ok := characters[id]; ok {
				names = append(names, c.Name)
			} else {
				names = append(names, id)
			}
		}
		bible.OpenPlotlines = append(bible.OpenPlotlines,
			fmt.Sprintf("Storyline %s follows %s at %s", th.Label, strings.Join(names, ", "), th.Location))
	}
	return bible
}

// nextTension advances a storyline's tension from the devices an accepted
// scene applied. Scenes without escalating devices bleed a little pressure
// off instead of holding flat.
func nextTension(current float64, directives []drama.Directive) float64 {
	delta := -0.05
	for _, d := range directives {
		for _, c := range d.Operator.Consequences {
			switch c {
			case "tension spike":
				delta += 0.2
			case "tension rise":
				delta += 0.1
			case "pending hook":
				delta += 0.05
			case "hook resolved":
				delta -= 0.1
			}
		}
	}
	return clamp01(current + delta)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
