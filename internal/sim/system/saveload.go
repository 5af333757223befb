package system

import (
	"fmt"

	"amoebotsim.ai/internal/persistence/snapshot"
	"amoebotsim.ai/internal/sim/grid"
	"amoebotsim.ai/internal/sim/history"
)

// Namer is optionally implemented by algorithms that want their name
// persisted with the population.
type Namer interface {
	AlgorithmName() string
}

// ExportSave captures the whole population with full histories. round is
// recorded in the header as the last committed round.
func (s *System) ExportSave(round uint64) snapshot.SaveV1 {
	save := snapshot.SaveV1{
		Header:      snapshot.Header{Version: 1, SimID: s.cfg.ID, Round: round},
		Seed:        s.cfg.Seed,
		PinsPerEdge: s.cfg.PinsPerEdge,
	}
	for _, id := range s.sortedIDs() {
		p := s.particles[id]
		rec := snapshot.ParticleV1{
			ID:        id,
			TailX:     p.Tail.X,
			TailY:     p.Tail.Y,
			HeadDir:   p.HeadDir,
			Chirality: int(p.Chirality),
			Compass:   int(p.Compass),
		}
		if n, ok := p.alg.(Namer); ok {
			rec.Algorithm = n.AlgorithmName()
		}
		for _, name := range p.Attrs.Names() {
			a, _ := p.Attrs.Lookup(name)
			points, last := a.HistoryPoints()
			av := snapshot.AttrV1{
				Name:      name,
				Kind:      a.Kind(),
				Default:   a.Default(),
				Points:    points,
				LastRound: last,
			}
			if av.Kind == history.KindEnum {
				av.EnumType = a.Default().EnumType
			}
			rec.Attrs = append(rec.Attrs, av)
		}
		save.Particles = append(save.Particles, rec)
	}
	return save
}

// Load rebuilds a population from a save. The result is replay only: it
// serves rewind queries and digests but cannot step, since algorithms are
// not persisted. Nothing is mutated on error.
func Load(save snapshot.SaveV1) (*System, error) {
	if err := save.Validate(); err != nil {
		return nil, err
	}
	s, err := New(Config{ID: save.Header.SimID, PinsPerEdge: save.PinsPerEdge, Seed: save.Seed})
	if err != nil {
		return nil, err
	}
	s.replayOnly = true
	s.round = save.Header.Round + 1

	for _, rec := range save.Particles {
		p := &Particle{
			ID:        rec.ID,
			Tail:      grid.Node{X: rec.TailX, Y: rec.TailY},
			HeadDir:   rec.HeadDir,
			Chirality: grid.Chirality(rec.Chirality),
			Compass:   grid.Dir(rec.Compass),
			bonds:     map[grid.Dir]bool{},
		}
		p.Attrs = newRegistry(s.warnf)
		for _, av := range rec.Attrs {
			a, err := p.Attrs.Create(av.Name, av.Default)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", rec.ID, err)
			}
			if err := a.RestoreHistory(av.Points, av.LastRound); err != nil {
				return nil, fmt.Errorf("load %s: %w", rec.ID, err)
			}
		}
		for _, n := range p.Nodes() {
			if holder, taken := s.occ[n]; taken {
				return nil, fmt.Errorf("load: node %v occupied by both %s and %s", n, holder, rec.ID)
			}
			s.occ[n] = rec.ID
		}
		p.resetWiring(save.PinsPerEdge)
		s.particles[rec.ID] = p
		s.order = append(s.order, rec.ID)
	}
	return s, nil
}
