// Package drama selects narrative devices for each scene and tracks
// cross-scene state (planted hooks, callback targets, tension curve) in a
// single-owner ledger so devices stay consistent across the episode.
package drama

type OperatorType string

const (
	TypeReversal     OperatorType = "reversal"
	TypeForeshadow   OperatorType = "foreshadowing"
	TypeCallback     OperatorType = "callback"
	TypeEscalation   OperatorType = "escalation"
	TypeIrony        OperatorType = "irony"
	TypeParallel     OperatorType = "parallel"
	TypeCliffhanger  OperatorType = "cliffhanger"
	TypeRevelation   OperatorType = "revelation"
	TypeConflict     OperatorType = "conflict"
	TypeComplication OperatorType = "complication"
)

// Operator is a named narrative device. Intensity is the tension band it
// works best in; Prerequisites name ledger state that must exist before the
// operator can fire.
type Operator struct {
	Name          string
	Type          OperatorType
	Description   string
	Intensity     float64
	Prerequisites []string
	Consequences  []string
}

// Directive is one selected device plus the ledger bookkeeping it implies.
// PlantsHook asks the enhancement stage to seed a hook; ResolvesHook names
// an open hook this scene pays off.
type Directive struct {
	Operator     Operator
	Instruction  string
	PlantsHook   bool
	ResolvesHook string
}

// Catalog returns the full operator set in a stable order.
func Catalog() []Operator {
	return []Operator{
		{
			Name:         "reversal",
			Type:         TypeReversal,
			Description:  "Invert a character's fortune or expectation mid-scene.",
			Intensity:    0.7,
			Consequences: []string{"tension spike"},
		},
		{
			Name:         "false_victory",
			Type:         TypeReversal,
			Description:  "Let a character appear to win just before the rug is pulled.",
			Intensity:    0.6,
			Consequences: []string{"tension spike"},
		},
		{
			Name:         "foreshadowing",
			Type:         TypeForeshadow,
			Description:  "Plant a small detail that a later scene will pay off.",
			Intensity:    0.3,
			Consequences: []string{"pending hook"},
		},
		{
			Name:         "ominous_hint",
			Type:         TypeForeshadow,
			Description:  "A throwaway line or object hints at trouble to come.",
			Intensity:    0.4,
			Consequences: []string{"pending hook"},
		},
		{
			Name:          "callback",
			Type:          TypeCallback,
			Description:   "Pay off a previously planted detail or line.",
			Intensity:     0.6,
			Prerequisites: []string{"plantable reference"},
			Consequences:  []string{"hook resolved"},
		},
		{
			Name:          "echo",
			Type:          TypeCallback,
			Description:   "Repeat an earlier line or image with new meaning.",
			Intensity:     0.5,
			Prerequisites: []string{"plantable reference"},
			Consequences:  []string{"hook resolved"},
		},
		{
			Name:         "escalation",
			Type:         TypeEscalation,
			Description:  "Raise the stakes of the existing conflict a notch.",
			Intensity:    0.6,
			Consequences: []string{"tension rise"},
		},
		{
			Name:         "ticking_clock",
			Type:         TypeEscalation,
			Description:  "Attach a deadline to the scene's central problem.",
			Intensity:    0.7,
			Consequences: []string{"tension rise"},
		},
		{
			Name:        "irony",
			Type:        TypeIrony,
			Description: "Let the audience know something the characters do not.",
			Intensity:   0.4,
		},
		{
			Name:        "parallel",
			Type:        TypeParallel,
			Description: "Mirror another storyline's situation in this scene.",
			Intensity:   0.4,
		},
		{
			Name:          "cliffhanger",
			Type:          TypeCliffhanger,
			Description:   "End the scene on an unresolved beat.",
			Intensity:     0.8,
			Prerequisites: []string{"final slot of a storyline"},
			Consequences:  []string{"pending hook"},
		},
		{
			Name:         "revelation",
			Type:         TypeRevelation,
			Description:  "Surface a hidden fact that reframes prior scenes.",
			Intensity:    0.8,
			Consequences: []string{"tension spike"},
		},
		{
			Name:         "conflict",
			Type:         TypeConflict,
			Description:  "Force two characters' goals into direct opposition.",
			Intensity:    0.5,
			Consequences: []string{"tension rise"},
		},
		{
			Name:        "complication",
			Type:        TypeComplication,
			Description: "Introduce an obstacle that makes the current plan harder.",
			Intensity:   0.5,
		},
	}
}
