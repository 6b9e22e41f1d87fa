package sim

import "fmt"

// Location is one cell of the simulation world. Occupants is the
// authoritative list of agent ids present; only the engine mutates it.
type Location struct {
	Name        string
	Description string
	Capacity    int
	ConnectedTo []string
	Occupants   []string
}

// World holds the location graph. Iteration uses insertion order so runs are
// reproducible.
type World struct {
	locations map[string]*Location
	order     []string
}

func NewWorld() *World {
	return &World{locations: make(map[string]*Location)}
}

func (w *World) AddLocation(name, description string, capacity int) {
	if _, ok := w.locations[name]; ok {
		return
	}
	if capacity <= 0 {
		capacity = 10
	}
	w.locations[name] = &Location{Name: name, Description: description, Capacity: capacity}
	w.order = append(w.order, name)
}

// Connect links two locations bidirectionally. Unknown names are ignored.
func (w *World) Connect(a, b string) {
	la, okA := w.locations[a]
	lb, okB := w.locations[b]
	if !okA || !okB {
		return
	}
	la.ConnectedTo = append(la.ConnectedTo, b)
	lb.ConnectedTo = append(lb.ConnectedTo, a)
}

func (w *World) Location(name string) (*Location, bool) {
	l, ok := w.locations[name]
	return l, ok
}

// Names returns location names in insertion order.
func (w *World) Names() []string {
	return append([]string(nil), w.order...)
}

// Place puts an agent at the named location, removing it from any previous
// one.
func (w *World) Place(agentID, name string) error {
	loc, ok := w.locations[name]
	if !ok {
		return fmt.Errorf("unknown location %q", name)
	}
	w.remove(agentID)
	loc.Occupants = append(loc.Occupants, agentID)
	return nil
}

func (w *World) remove(agentID string) {
	for _, name := range w.order {
		loc := w.locations[name]
		for i, id := range loc.Occupants {
			if id == agentID {
				loc.Occupants = append(loc.Occupants[:i], loc.Occupants[i+1:]...)
				return
			}
		}
	}
}

// Present reports whether the agent is at the named location.
func (w *World) Present(agentID, name string) bool {
	loc, ok := w.locations[name]
	if !ok {
		return false
	}
	for _, id := range loc.Occupants {
		if id == agentID {
			return true
		}
	}
	return false
}

// Busiest returns the location with the most occupants, earliest insertion
// order winning ties.
func (w *World) Busiest() string {
	best := ""
	bestCount := -1
	for _, name := range w.order {
		if n := len(w.locations[name].Occupants); n > bestCount {
			best, bestCount = name, n
		}
	}
	return best
}

// DefaultWorld builds the stock four-room office world used when a brief
// does not supply its own geography.
func DefaultWorld() *World {
	w := NewWorld()
	w.AddLocation("Office", "a modern open-plan office with glass walls", 20)
	w.AddLocation("Conference Room", "a meeting room with a long table and a projector", 10)
	w.AddLocation("Cafeteria", "a bright cafeteria with coffee and snacks", 30)
	w.AddLocation("Server Room", "a cold room filled with humming servers", 5)
	w.Connect("Office", "Conference Room")
	w.Connect("Office", "Cafeteria")
	w.Connect("Conference Room", "Cafeteria")
	w.Connect("Office", "Server Room")
	return w
}
