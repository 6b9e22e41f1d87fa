package llm

import (
	"context"
)

// Mode selects the sampling profile for a call. Creative stages want high
// temperature; verification and polish stages want near-deterministic output.
type Mode string

const (
	ModeCreative   Mode = "creative"
	ModeStructured Mode = "structured"
)

type Request struct {
	Prompt    string
	Mode      Mode
	MaxTokens int
}

type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

func temperatureFor(mode Mode) float32 {
	if mode == ModeStructured {
		return 0.2
	}
	return 0.9
}
