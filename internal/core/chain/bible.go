package chain

import (
	"fmt"
	"strings"
)

// Bible is the accumulating continuity record scenes are checked against.
// It has a single owner, the orchestration loop, and grows only when a
// scene is accepted.
type Bible struct {
	Facts          []string
	Relationships  []string
	WorldRules     []string
	OpenPlotlines  []string
	SceneSummaries []string
}

func NewBible(facts []string) *Bible {
	return &Bible{Facts: append([]string(nil), facts...)}
}

func (b *Bible) AddFact(fact string) {
	if fact != "" {
		b.Facts = append(b.Facts, fact)
	}
}

func (b *Bible) AddSummary(summary string) {
	if summary != "" {
		b.SceneSummaries = append(b.SceneSummaries, summary)
	}
}

// Render flattens the bible into prompt text. Recent scene summaries come
// last so truncation from the top drops the oldest material first.
func (b *Bible) Render() string {
	var sb strings.Builder
	writeSection := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&sb, "%s:\n", title)
		for _, it := range items {
			fmt.Fprintf(&sb, "- %s\n", it)
		}
	}
	writeSection("Established facts", b.Facts)
	writeSection("Relationships", b.Relationships)
	writeSection("World rules", b.WorldRules)
	writeSection("Open plotlines", b.OpenPlotlines)
	writeSection("Previous scenes", b.SceneSummaries)
	if sb.Len() == 0 {
		return "(nothing established yet)"
	}
	return sb.String()
}
