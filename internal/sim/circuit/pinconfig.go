// Package circuit implements per-particle pin wiring and the cross-particle
// connectivity it induces. A particle regroups its pins into partition sets
// once per round; the resolver joins partition sets across shared lattice
// edges into circuits and floods beeps and messages over them.
package circuit

import (
	"fmt"

	"amoebotsim.ai/internal/sim/grid"
)

const (
	// ContractedEdges and ExpandedEdges are the boundary edge counts of the
	// two particle shapes. An expanded particle keeps five outward edges per
	// occupied node; the two edges between its own nodes carry no pins.
	ContractedEdges = 6
	ExpandedEdges   = 10
)

// PinConfig is one particle's full partition-set assignment for one round.
// Pins are indexed edge label by edge label, offset within edge innermost.
// A fresh configuration is singleton: every pin is its own partition set
// with the pin index as set id.
type PinConfig struct {
	// HeadDir is the global tail-to-head direction, or -1 when contracted.
	HeadDir int

	PinsPerEdge int

	setOf   []int
	claimed []bool
	usedIDs map[int]bool
}

// NewContracted builds a singleton configuration for a contracted particle.
func NewContracted(pinsPerEdge int) *PinConfig {
	return newConfig(-1, pinsPerEdge)
}

// NewExpanded builds a singleton configuration for a particle expanded in
// direction headDir.
func NewExpanded(headDir grid.Dir, pinsPerEdge int) *PinConfig {
	return newConfig(int(headDir), pinsPerEdge)
}

func newConfig(headDir, pinsPerEdge int) *PinConfig {
	pc := &PinConfig{HeadDir: headDir, PinsPerEdge: pinsPerEdge}
	pc.reset()
	return pc
}

func (pc *PinConfig) reset() {
	n := pc.NumPins()
	pc.setOf = make([]int, n)
	for i := range pc.setOf {
		pc.setOf[i] = i
	}
	pc.claimed = make([]bool, n)
	pc.usedIDs = map[int]bool{}
}

// Expanded reports whether the configuration belongs to an expanded shape.
func (pc *PinConfig) Expanded() bool { return pc.HeadDir >= 0 }

// NumEdges returns the boundary edge count of the owning shape.
func (pc *PinConfig) NumEdges() int {
	if pc.Expanded() {
		return ExpandedEdges
	}
	return ContractedEdges
}

// NumPins returns the total pin count.
func (pc *PinConfig) NumPins() int { return pc.NumEdges() * pc.PinsPerEdge }

// Pin returns the pin index at (edge label, offset within edge).
func (pc *PinConfig) Pin(label, offset int) (int, error) {
	if label < 0 || label >= pc.NumEdges() || offset < 0 || offset >= pc.PinsPerEdge {
		return 0, fmt.Errorf("circuit: no pin at label %d offset %d", label, offset)
	}
	return label*pc.PinsPerEdge + offset, nil
}

// SetOf returns the partition-set id the pin currently belongs to.
func (pc *PinConfig) SetOf(pin int) (int, error) {
	if pin < 0 || pin >= len(pc.setOf) {
		return 0, fmt.Errorf("circuit: unknown pin %d", pin)
	}
	return pc.setOf[pin], nil
}

// MakePartitionSet wires the given pins together under id. A pin already
// claimed by an earlier call, an id reused across calls, or an unknown pin
// is a configuration error and leaves the configuration untouched.
func (pc *PinConfig) MakePartitionSet(pins []int, id int) error {
	if len(pins) == 0 {
		return fmt.Errorf("circuit: partition set %d has no pins", id)
	}
	if pc.usedIDs[id] {
		return fmt.Errorf("circuit: partition set id %d already used", id)
	}
	seen := map[int]bool{}
	for _, p := range pins {
		if p < 0 || p >= len(pc.setOf) {
			return fmt.Errorf("circuit: unknown pin %d in partition set %d", p, id)
		}
		if seen[p] {
			return fmt.Errorf("circuit: pin %d listed twice in partition set %d", p, id)
		}
		if pc.claimed[p] {
			return fmt.Errorf("circuit: pin %d already belongs to another partition set", p)
		}
		seen[p] = true
	}
	for _, p := range pins {
		pc.setOf[p] = id
		pc.claimed[p] = true
	}
	pc.usedIDs[id] = true
	return nil
}

// SetToSingleton makes every pin its own partition set, so no signal passes
// through this particle.
func (pc *PinConfig) SetToSingleton() {
	pc.reset()
	for i := range pc.setOf {
		pc.claimed[i] = true
		pc.usedIDs[i] = true
	}
}

// SetToGlobal joins every pin into the single partition set id, making the
// particle a full pass-through.
func (pc *PinConfig) SetToGlobal(id int) {
	pc.reset()
	for i := range pc.setOf {
		pc.setOf[i] = id
		pc.claimed[i] = true
	}
	pc.usedIDs = map[int]bool{id: true}
}

// SetIDs returns the distinct set ids in pin order.
func (pc *PinConfig) SetIDs() []int {
	seen := map[int]bool{}
	var out []int
	for _, id := range pc.setOf {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// HasSet reports whether id identifies a partition set of this
// configuration.
func (pc *PinConfig) HasSet(id int) bool {
	for _, s := range pc.setOf {
		if s == id {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (pc *PinConfig) Clone() *PinConfig {
	cp := &PinConfig{HeadDir: pc.HeadDir, PinsPerEdge: pc.PinsPerEdge}
	cp.setOf = append([]int(nil), pc.setOf...)
	cp.claimed = append([]bool(nil), pc.claimed...)
	cp.usedIDs = make(map[int]bool, len(pc.usedIDs))
	for k, v := range pc.usedIDs {
		cp.usedIDs[k] = v
	}
	return cp
}
