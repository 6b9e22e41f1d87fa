// Package memory implements the per-agent memory stream: an append-only log
// of experienced events with rubric-scored importance and deterministic
// relevance-ranked retrieval.
package memory

import (
	"math"
	"sort"
	"strings"

	"github.com/agenthands/showrunner/internal/core/model"
)

// Weights controls the retrieval blend. Composite score =
// Relevance×relevance + Importance×importance + Recency×exp(-Decay×age).
type Weights struct {
	Relevance  float64
	Importance float64
	Recency    float64
	Decay      float64 // per-tick decay rate
}

// DefaultWeights mirrors the blend used for episodic retrieval elsewhere in
// the stack: relevance leads, importance and recency temper it.
func DefaultWeights() Weights {
	return Weights{Relevance: 0.5, Importance: 0.3, Recency: 0.2, Decay: 0.02}
}

// Stream is one character's memory store. Not safe for concurrent use; each
// agent owns exactly one stream and the simulation loop is single-threaded.
type Stream struct {
	records  []model.MemoryRecord
	capacity int
	weights  Weights
}

func NewStream(capacity int, w Weights) *Stream {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Stream{capacity: capacity, weights: w}
}

// emotional trigger vocabulary from the importance rubric; matching any of
// these raises the score.
var triggerWords = []string{
	"danger", "love", "death", "secret", "betray", "argument",
	"success", "failure", "discovery", "crisis", "revelation",
}

// Record appends a memory of ev as experienced by owner. Importance follows
// a deterministic rubric: the event's impact scaled by emotional-trigger
// match and goal relevance against the owner's goals and personality.
func (s *Stream) Record(ev model.Event, owner *model.Character) model.MemoryRecord {
	// Record ids derive from (event, owner) so identical runs produce
	// identical streams.
	rec := model.MemoryRecord{
		ID:           ev.ID + "/" + owner.ID,
		Tick:         ev.Tick,
		EventID:      ev.ID,
		Content:      ev.Description,
		Importance:   scoreImportance(ev, owner),
		Participants: append([]string(nil), ev.Participants...),
	}

	s.records = append(s.records, rec)
	if len(s.records) > s.capacity {
		s.evict(ev.Tick)
	}
	return rec
}

func scoreImportance(ev model.Event, owner *model.Character) float64 {
	base := ev.Impact
	if base <= 0 {
		base = 0.1
	}

	content := strings.ToLower(ev.Description)
	trigger := 0.0
	for _, w := range triggerWords {
		if strings.Contains(content, w) {
			trigger += 0.2
		}
	}
	if trigger > 1 {
		trigger = 1
	}
	// Neurotic characters weight emotionally charged events more heavily.
	trigger *= 0.5 + 0.5*owner.Personality.Neuroticism

	goal := 0.0
	if g := owner.ActiveGoal(); g != nil {
		goal = overlap(content, strings.ToLower(g.Description)) * g.Priority
	}

	v := base * (0.6 + 0.25*trigger + 0.15*goal) * 1.4
	if v > 1 {
		v = 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

// Retrieve returns up to k records ranked by combined
// relevance+importance+recency, ties broken by earlier tick then record id.
// The store is never mutated by retrieval.
func (s *Stream) Retrieve(query string, k, nowTick int) []model.MemoryRecord {
	if k <= 0 || len(s.records) == 0 {
		return nil
	}

	q := strings.ToLower(query)
	type scored struct {
		rec   model.MemoryRecord
		score float64
	}
	ranked := make([]scored, 0, len(s.records))
	for _, rec := range s.records {
		age := float64(nowTick - rec.Tick)
		if age < 0 {
			age = 0
		}
		score := s.weights.Relevance*overlap(strings.ToLower(rec.Content), q) +
			s.weights.Importance*rec.Importance +
			s.weights.Recency*math.Exp(-s.weights.Decay*age)
		ranked = append(ranked, scored{rec: rec, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		if ranked[i].rec.Tick != ranked[j].rec.Tick {
			return ranked[i].rec.Tick < ranked[j].rec.Tick
		}
		return ranked[i].rec.ID < ranked[j].rec.ID
	})

	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]model.MemoryRecord, k)
	for i := 0; i < k; i++ {
		out[i] = ranked[i].rec
	}
	return out
}

// Rescore updates the importance of an existing record. Only the reflection
// stage calls this; content is never touched.
func (s *Stream) Rescore(id string, importance float64) bool {
	for i := range s.records {
		if s.records[i].ID == id {
			if importance < 0 {
				importance = 0
			}
			if importance > 1 {
				importance = 1
			}
			s.records[i].Importance = importance
			return true
		}
	}
	return false
}

// All returns the records in append order.
func (s *Stream) All() []model.MemoryRecord {
	return append([]model.MemoryRecord(nil), s.records...)
}

func (s *Stream) Len() int { return len(s.records) }

// evict drops the weakest record by importance×recency-decay when the stream
// overflows its capacity.
func (s *Stream) evict(nowTick int) {
	weakest := 0
	weakestScore := math.Inf(1)
	for i, rec := range s.records {
		age := float64(nowTick - rec.Tick)
		score := rec.Importance * math.Exp(-s.weights.Decay*age)
		if score < weakestScore {
			weakestScore = score
			weakest = i
		}
	}
	s.records = append(s.records[:weakest], s.records[weakest+1:]...)
}

// overlap is a token-overlap relevance measure in [0,1]: the share of query
// tokens present in the content.
func overlap(content, query string) float64 {
	qTokens := strings.Fields(query)
	if len(qTokens) == 0 {
		return 0
	}
	cTokens := make(map[string]struct{})
	for _, t := range strings.Fields(content) {
		cTokens[strings.Trim(t, ".,!?:;\"'")] = struct{}{}
	}
	hits := 0
	for _, t := range qTokens {
		if _, ok := cTokens[strings.Trim(t, ".,!?:;\"'")]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(qTokens))
}
