package system

import (
	"fmt"

	"amoebotsim.ai/internal/sim/circuit"
	"amoebotsim.ai/internal/sim/grid"
	"amoebotsim.ai/internal/sim/history"
)

// Rewinding is a pure read over the attribute histories; it never mutates
// them and is legal on live and loaded populations alike.

// EarliestRound returns the lowest recorded round across the population.
func (s *System) EarliestRound() uint64 {
	var best uint64
	found := false
	for _, id := range s.order {
		if r, ok := s.particles[id].Attrs.EarliestRound(); ok && (!found || r < best) {
			best = r
			found = true
		}
	}
	return best
}

// LatestRound returns the highest committed round, or false when nothing
// was committed yet.
func (s *System) LatestRound() (uint64, bool) {
	var best uint64
	found := false
	for _, id := range s.order {
		if r, ok := s.particles[id].Attrs.LatestRound(); ok && (!found || r > best) {
			best = r
			found = true
		}
	}
	return best, found
}

// ValueAt reads one attribute of one particle as committed at round.
func (s *System) ValueAt(particleID, attr string, round uint64) (history.Value, error) {
	p, ok := s.particles[particleID]
	if !ok {
		return history.Value{}, fmt.Errorf("system: unknown particle %s", particleID)
	}
	a, ok := p.Attrs.Lookup(attr)
	if !ok {
		return history.Value{}, fmt.Errorf("system: particle %s has no attribute %q", particleID, attr)
	}
	return a.ValueAt(round), nil
}

// ParticleView is the read-only reconstruction of one particle at a
// recorded round.
type ParticleView struct {
	ID       string
	Tail     grid.Node
	HeadDir  int
	Expanded bool

	Attrs map[string]history.Value

	// PinConfig is the wiring active during the round, decoded from its
	// persisted form.
	PinConfig *circuit.PinConfig
}

// SnapshotAt reconstructs the whole population as of round.
func (s *System) SnapshotAt(round uint64) ([]ParticleView, error) {
	out := make([]ParticleView, 0, len(s.order))
	for _, id := range s.sortedIDs() {
		p := s.particles[id]
		v := ParticleView{ID: id, Attrs: map[string]history.Value{}}
		for _, name := range p.Attrs.Names() {
			a, _ := p.Attrs.Lookup(name)
			v.Attrs[name] = a.ValueAt(round)
		}
		tx, ok1 := v.Attrs[attrTailX]
		ty, ok2 := v.Attrs[attrTailY]
		hd, ok3 := v.Attrs[attrHeadDir]
		if !ok1 || !ok2 || !ok3 {
			return nil, fmt.Errorf("system: particle %s is missing shape attributes", id)
		}
		v.Tail = grid.Node{X: int(tx.Int), Y: int(ty.Int)}
		v.HeadDir = int(hd.Int)
		v.Expanded = v.HeadDir >= 0
		if pcv, ok := v.Attrs[attrPinConfig]; ok && pcv.Str != "" {
			pc, err := circuit.Decode(pcv.HeadDir, s.cfg.PinsPerEdge, pcv.Str)
			if err != nil {
				return nil, fmt.Errorf("system: particle %s round %d: %w", id, round, err)
			}
			v.PinConfig = pc
		}
		out = append(out, v)
	}
	return out, nil
}
