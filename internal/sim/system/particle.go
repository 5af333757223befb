// Package system owns the particle population and drives the round
// scheduler: a movement phase, a communication phase, and a history commit
// per round. All state is single-threaded; the caller steps the system and
// reads rounds back through the history layer.
package system

import (
	"fmt"

	"amoebotsim.ai/internal/sim/circuit"
	"amoebotsim.ai/internal/sim/grid"
	"amoebotsim.ai/internal/sim/history"
)

// Reserved attribute names the scheduler maintains for every particle so
// shape and wiring rewind like any user attribute.
const (
	attrTailX     = "sys.tail_x"
	attrTailY     = "sys.tail_y"
	attrHeadDir   = "sys.head_dir"
	attrPinConfig = "sys.pin_config"
)

// Algorithm is the behavior injected into a particle. ActivateMove and
// ActivateBeep are called once per particle per round, in a fixed global
// order within each phase.
type Algorithm interface {
	ActivateMove(mc *MoveContext)
	ActivateBeep(bc *BeepContext)
}

// Finisher is optionally implemented by algorithms that reach a terminal
// state. Finished particles are still activated; they merely opt out of
// work.
type Finisher interface {
	IsFinished() bool
}

// AlgorithmInit constructs a particle's algorithm. It runs at add time and
// is the place to create the algorithm's attributes.
type AlgorithmInit func(p *Particle) (Algorithm, error)

// ParticleSpec describes one particle to add to a system.
type ParticleSpec struct {
	Tail      grid.Node
	HeadDir   int // -1 for contracted
	Chirality grid.Chirality
	Compass   grid.Dir
	Algorithm AlgorithmInit
}

// Particle is a pure data holder: identity, shape, attributes and the
// double-buffered pin configuration. Behavior lives in the injected
// algorithm.
type Particle struct {
	ID string

	Tail      grid.Node
	HeadDir   int // global tail-to-head direction, -1 when contracted
	Chirality grid.Chirality
	Compass   grid.Dir

	Attrs *history.Registry

	alg Algorithm

	// committed is the configuration active this round; planned is staged
	// via SetPlanned and swaps in at round commit.
	committed *circuit.PinConfig
	planned   *circuit.PinConfig

	sentBeeps map[int]bool
	sentMsgs  map[int]circuit.Message
	inBeeps   map[int]bool
	inMsgs    map[int]circuit.Message

	bonds map[grid.Dir]bool

	tailX, tailY, headDir *history.Int
	pinCfg                *history.PinConfig
}

// Expanded reports whether the particle occupies two nodes.
func (p *Particle) Expanded() bool { return p.HeadDir >= 0 }

// Head returns the head node. For a contracted particle head and tail
// coincide.
func (p *Particle) Head() grid.Node {
	if !p.Expanded() {
		return p.Tail
	}
	return grid.Neighbor(p.Tail, grid.Dir(p.HeadDir))
}

// Nodes returns the occupied nodes, tail first.
func (p *Particle) Nodes() []grid.Node {
	if !p.Expanded() {
		return []grid.Node{p.Tail}
	}
	return []grid.Node{p.Tail, p.Head()}
}

// IsFinished reports whether the algorithm declared a terminal state.
func (p *Particle) IsFinished() bool {
	if f, ok := p.alg.(Finisher); ok {
		return f.IsFinished()
	}
	return false
}

// ActiveConfig returns the pin configuration active this round. Callers
// must treat it as read only.
func (p *Particle) ActiveConfig() *circuit.PinConfig { return p.committed }

func (p *Particle) resetSignals() {
	p.sentBeeps = map[int]bool{}
	p.sentMsgs = map[int]circuit.Message{}
}

// resetWiring replaces both configuration buffers with fresh singletons for
// the particle's current geometry. Called after every shape change: sets
// referencing pins lost on contraction are dropped wholesale and algorithms
// re-issue their wiring.
func (p *Particle) resetWiring(pinsPerEdge int) {
	p.committed = newConfigFor(p.HeadDir, pinsPerEdge)
	p.planned = nil
	p.inBeeps = map[int]bool{}
	p.inMsgs = map[int]circuit.Message{}
	p.resetSignals()
}

func newConfigFor(headDir, pinsPerEdge int) *circuit.PinConfig {
	if headDir < 0 {
		return circuit.NewContracted(pinsPerEdge)
	}
	return circuit.NewExpanded(grid.Dir(headDir), pinsPerEdge)
}

func (p *Particle) createBuiltins() error {
	var err error
	if p.tailX, err = p.Attrs.Int(attrTailX, int64(p.Tail.X)); err != nil {
		return err
	}
	if p.tailY, err = p.Attrs.Int(attrTailY, int64(p.Tail.Y)); err != nil {
		return err
	}
	if p.headDir, err = p.Attrs.Int(attrHeadDir, int64(p.HeadDir)); err != nil {
		return err
	}
	if p.pinCfg, err = p.Attrs.PinConfig(attrPinConfig); err != nil {
		return err
	}
	return nil
}

// recordBuiltins writes shape and wiring into the reserved attributes so
// the commit that follows versions them alongside user state.
func (p *Particle) recordBuiltins() error {
	if err := p.tailX.Set(int64(p.Tail.X)); err != nil {
		return err
	}
	if err := p.tailY.Set(int64(p.Tail.Y)); err != nil {
		return err
	}
	if err := p.headDir.Set(int64(p.HeadDir)); err != nil {
		return err
	}
	head, enc := p.committed.Encode()
	if err := p.pinCfg.Set(head, enc); err != nil {
		return err
	}
	return nil
}

func (p *Particle) String() string {
	if p.Expanded() {
		return fmt.Sprintf("%s@%v>%v", p.ID, p.Tail, p.Head())
	}
	return fmt.Sprintf("%s@%v", p.ID, p.Tail)
}
