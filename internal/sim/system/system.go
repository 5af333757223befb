package system

import (
	"fmt"
	"log"
	"sort"

	"amoebotsim.ai/internal/sim/grid"
	"amoebotsim.ai/internal/sim/history"
)

// Config carries the identity and fixed parameters of one simulation.
type Config struct {
	ID          string
	PinsPerEdge int
	Seed        int64
}

// RoundLogger receives one entry per committed round. Implementations live
// in internal/persistence.
type RoundLogger interface {
	WriteRound(entry RoundLogEntry) error
}

// RoundLogEntry is the per-round record consumed by replay verification.
type RoundLogEntry struct {
	Round  uint64   `json:"round"`
	Moved  []string `json:"moved,omitempty"`
	Beeps  int      `json:"beeps,omitempty"`
	Msgs   int      `json:"msgs,omitempty"`
	Digest string   `json:"digest"`
}

// System is a single-threaded authoritative simulation. All state must be
// accessed from one goroutine; movement conflicts are resolved here, never
// by the particles.
type System struct {
	cfg Config

	particles map[string]*Particle
	order     []string
	occ       map[grid.Node]string

	round  uint64
	halted error

	nextParticle uint64

	replayOnly bool

	warnf func(format string, args ...any)

	// Optional round logger (may be nil).
	logger RoundLogger
}

// New creates an empty system.
func New(cfg Config) (*System, error) {
	if cfg.PinsPerEdge < 1 {
		cfg.PinsPerEdge = 1
	}
	if cfg.ID == "" {
		return nil, fmt.Errorf("system: empty id")
	}
	return &System{
		cfg:       cfg,
		particles: map[string]*Particle{},
		occ:       map[grid.Node]string{},
		warnf:     log.Printf,
	}, nil
}

// SetWarnf replaces the warning sink for recoverable protocol misuse.
func (s *System) SetWarnf(f func(format string, args ...any)) {
	if f != nil {
		s.warnf = f
		for _, p := range s.particles {
			p.Attrs.SetWarnf(f)
		}
	}
}

// SetLogger installs the per-round log sink.
func (s *System) SetLogger(l RoundLogger) { s.logger = l }

func (s *System) Config() Config { return s.cfg }

// Round returns the next round to execute; rounds below it are committed.
func (s *System) Round() uint64 { return s.round }

// ReplayOnly reports whether the population was rebuilt from a save and
// therefore cannot step.
func (s *System) ReplayOnly() bool { return s.replayOnly }

// Halted returns the configuration error that permanently stopped the
// scheduler, or nil.
func (s *System) Halted() error { return s.halted }

// Add places a new particle. Nodes must be free; expanded particles must
// name a valid head direction.
func (s *System) Add(spec ParticleSpec) (*Particle, error) {
	if spec.HeadDir < -1 || spec.HeadDir >= grid.NumDirs {
		return nil, fmt.Errorf("system: head direction %d out of range", spec.HeadDir)
	}
	if spec.Chirality != grid.Clockwise {
		spec.Chirality = grid.Counterclockwise
	}
	if !spec.Compass.Valid() {
		return nil, fmt.Errorf("system: compass %d out of range", spec.Compass)
	}

	s.nextParticle++
	p := &Particle{
		ID:        fmt.Sprintf("P%d", s.nextParticle),
		Tail:      spec.Tail,
		HeadDir:   spec.HeadDir,
		Chirality: spec.Chirality,
		Compass:   spec.Compass,
		bonds:     map[grid.Dir]bool{},
	}
	for _, n := range p.Nodes() {
		if holder, taken := s.occ[n]; taken {
			return nil, fmt.Errorf("system: node %v already occupied by %s", n, holder)
		}
	}

	p.Attrs = newRegistry(s.warnf)
	if err := p.createBuiltins(); err != nil {
		return nil, err
	}
	p.resetWiring(s.cfg.PinsPerEdge)

	if spec.Algorithm != nil {
		alg, err := spec.Algorithm(p)
		if err != nil {
			return nil, fmt.Errorf("system: algorithm init for %s: %w", p.ID, err)
		}
		p.alg = alg
	} else {
		s.replayOnly = true
	}

	s.particles[p.ID] = p
	s.order = append(s.order, p.ID)
	for _, n := range p.Nodes() {
		s.occ[n] = p.ID
	}
	return p, nil
}

// Get returns a particle by id.
func (s *System) Get(id string) (*Particle, bool) {
	p, ok := s.particles[id]
	return p, ok
}

// ParticleIDs returns ids in activation order.
func (s *System) ParticleIDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// At returns the particle occupying node, if any.
func (s *System) At(n grid.Node) (*Particle, bool) {
	id, ok := s.occ[n]
	if !ok {
		return nil, false
	}
	return s.particles[id], true
}

// Finished reports whether every particle's algorithm reached its terminal
// state. Finished particles keep being activated.
func (s *System) Finished() bool {
	if len(s.order) == 0 || s.replayOnly {
		return false
	}
	for _, id := range s.order {
		if !s.particles[id].IsFinished() {
			return false
		}
	}
	return true
}

func newRegistry(warnf func(format string, args ...any)) *history.Registry {
	r := history.NewRegistry()
	r.SetWarnf(warnf)
	return r
}

func (s *System) sortedIDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	sort.Strings(out)
	return out
}
