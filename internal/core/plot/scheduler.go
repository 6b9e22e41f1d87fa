// Package plot maps an interleaving pattern string (e.g. "ABABCAB") onto
// storyline slots, deciding which storyline and which characters drive each
// scene.
package plot

import (
	"fmt"

	"github.com/agenthands/showrunner/internal/core/model"
)

// InvalidPatternError is fatal and surfaced before any generation starts.
type InvalidPatternError struct {
	Pattern string
	Reason  string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid plot pattern %q: %s", e.Pattern, e.Reason)
}

// Schedule parses pattern left to right and produces one SceneContext per
// slot. Unknown labels are an error, not a silent default. When
// episodeLength is shorter than the pattern the schedule truncates, but
// every referenced storyline still receives at least one scene if the
// length allows.
func Schedule(pattern string, storylines []model.StorylineThread, characters map[string]model.Character, episodeLength int) ([]model.SceneContext, error) {
	if pattern == "" {
		return nil, &InvalidPatternError{Pattern: pattern, Reason: "empty pattern"}
	}

	byLabel := make(map[string]model.StorylineThread, len(storylines))
	for _, s := range storylines {
		byLabel[s.Label] = s
	}

	labels := make([]string, 0, len(pattern))
	seen := make(map[string]bool)
	var distinct []string
	for _, r := range pattern {
		label := string(r)
		if _, ok := byLabel[label]; !ok {
			return nil, &InvalidPatternError{Pattern: pattern, Reason: fmt.Sprintf("unknown storyline label %q", label)}
		}
		labels = append(labels, label)
		if !seen[label] {
			seen[label] = true
			distinct = append(distinct, label)
		}
	}

	if episodeLength <= 0 || episodeLength > len(labels) {
		episodeLength = len(labels)
	}
	scheduled := append([]string(nil), labels[:episodeLength]...)

	// Truncation can starve a storyline; swap tail slots of over-represented
	// labels for the missing ones, first-appearance order.
	if episodeLength >= len(distinct) {
		counts := make(map[string]int)
		for _, l := range scheduled {
			counts[l]++
		}
		for _, missing := range distinct {
			if counts[missing] > 0 {
				continue
			}
			for i := len(scheduled) - 1; i >= 0; i-- {
				if counts[scheduled[i]] > 1 {
					counts[scheduled[i]]--
					scheduled[i] = missing
					counts[missing] = 1
					break
				}
			}
		}
	}

	lastSlot := make(map[string]int)
	for i, l := range scheduled {
		lastSlot[l] = i
	}

	contexts := make([]model.SceneContext, 0, len(scheduled))
	for i, label := range scheduled {
		thread := byLabel[label]
		sc := model.SceneContext{
			Storyline:    label,
			Index:        i,
			TotalScenes:  len(scheduled),
			Location:     thread.Location,
			Tension:      thread.Tension,
			FinalForLine: lastSlot[label] == i,
		}
		for _, id := range thread.CharacterIDs {
			if c, ok := characters[id]; ok {
				sc.Characters = append(sc.Characters, c)
			}
		}
		contexts = append(contexts, sc)
	}
	return contexts, nil
}
