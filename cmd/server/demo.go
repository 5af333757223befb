package main

import (
	"fmt"

	"amoebotsim.ai/internal/sim/grid"
	"amoebotsim.ai/internal/sim/history"
	"amoebotsim.ai/internal/sim/pasc"
	"amoebotsim.ai/internal/sim/system"
)

// Built-in populations so the server can run without external algorithm
// plumbing. They are demos: each one exercises a slice of the engine
// (movement, circuits, the comparison subroutine) and nothing else.

func buildPopulation(sys *system.System, kind string, n int) error {
	switch kind {
	case "demo":
		if err := addChatterLine(sys, grid.Node{X: 0, Y: 0}, max(n-3, 2)); err != nil {
			return err
		}
		if err := addWalker(sys, grid.Node{X: 0, Y: 5}); err != nil {
			return err
		}
		return addComparePair(sys, grid.Node{X: 0, Y: -5}, 22, 19)
	case "line":
		return addChatterLine(sys, grid.Node{X: 0, Y: 0}, n)
	case "pair":
		return addComparePair(sys, grid.Node{X: 0, Y: 0}, 22, 19)
	default:
		return fmt.Errorf("unknown population %q", kind)
	}
}

// walker expands east and contracts to its head in a four-round cycle,
// drifting across the lattice forever.
type walker struct {
	steps *history.Int
}

func newWalker(p *system.Particle) (system.Algorithm, error) {
	steps, err := p.Attrs.Int("walker.steps", 0)
	if err != nil {
		return nil, err
	}
	return &walker{steps: steps}, nil
}

func (w *walker) AlgorithmName() string { return "walker" }

func (w *walker) ActivateMove(mc *system.MoveContext) {
	switch mc.Round() % 4 {
	case 0:
		if !mc.Expanded() && !mc.HasNeighbor(grid.DirE) {
			_ = mc.Expand(grid.DirE)
		}
	case 2:
		if mc.Expanded() {
			if err := mc.ContractToHead(); err == nil {
				_ = w.steps.Set(w.steps.Get() + 1)
			}
		}
	}
}

func (w *walker) ActivateBeep(bc *system.BeepContext) {}

func addWalker(sys *system.System, at grid.Node) error {
	_, err := sys.Add(system.ParticleSpec{
		Tail:      at,
		HeadDir:   -1,
		Chirality: grid.Counterclockwise,
		Compass:   grid.DirE,
		Algorithm: newWalker,
	})
	return err
}

// chatter joins the global circuit and beeps on a fixed cadence, counting
// every beep it observes. A line of chatters keeps the circuit resolver
// busy without ever moving.
type chatter struct {
	idx   int
	wired bool
	heard *history.Int
}

func newChatter(idx int) system.AlgorithmInit {
	return func(p *system.Particle) (system.Algorithm, error) {
		heard, err := p.Attrs.Int("chatter.heard", 0)
		if err != nil {
			return nil, err
		}
		return &chatter{idx: idx, heard: heard}, nil
	}
}

func (c *chatter) AlgorithmName() string { return "chatter" }

func (c *chatter) ActivateMove(mc *system.MoveContext) {}

func (c *chatter) ActivateBeep(bc *system.BeepContext) {
	if !c.wired {
		pc := bc.NewConfig()
		pc.SetToGlobal(0)
		if err := bc.SetPlanned(pc); err == nil {
			c.wired = true
		}
		return
	}
	if bc.ReceivedBeep(0) {
		_ = c.heard.Set(c.heard.Get() + 1)
	}
	if (bc.Round()+uint64(c.idx))%5 == 0 {
		_ = bc.SendBeep(0)
	}
}

func addChatterLine(sys *system.System, origin grid.Node, n int) error {
	for i := 0; i < n; i++ {
		_, err := sys.Add(system.ParticleSpec{
			Tail:      grid.Node{X: origin.X + i, Y: origin.Y},
			HeadDir:   -1,
			Chirality: grid.Counterclockwise,
			Compass:   grid.DirE,
			Algorithm: newChatter(i),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// comparer is one half of a two-particle binary comparison: the leader
// streams its value east one bit per odd round and the participant folds
// the stream into a verdict it records as an attribute.
type comparer struct {
	inst    *pasc.Instance
	verdict *history.Enum
	wired   bool
}

const compareChainSet = 100

func newComparer(isLeader bool, value uint8) system.AlgorithmInit {
	return func(p *system.Particle) (system.Algorithm, error) {
		verdict, err := p.Attrs.Enum("compare.verdict", "pasc.comparison", string(pasc.Equal), pasc.ComparisonValues)
		if err != nil {
			return nil, err
		}
		inst := pasc.New(true)
		inst.Init(isLeader, grid.DirW, grid.DirE, 0)
		inst.SetBits(msbBits(value, 8))
		return &comparer{inst: inst, verdict: verdict}, nil
	}
}

func (c *comparer) AlgorithmName() string { return "comparer" }

func (c *comparer) ActivateMove(mc *system.MoveContext) {}

func (c *comparer) ActivateBeep(bc *system.BeepContext) {
	if !c.wired {
		pc := bc.NewConfig()
		if err := c.inst.SetupCircuit(pc, compareChainSet); err != nil {
			return
		}
		if err := bc.SetPlanned(pc); err != nil {
			return
		}
		c.wired = true
		return
	}
	r := bc.Round()
	if c.inst.IsLeader() {
		if r%2 == 1 {
			_ = c.inst.ActivateSend(bc)
		}
		return
	}
	if r%2 == 0 && !c.inst.Passive() {
		_ = c.inst.ActivateReceive(bc)
		_ = c.verdict.Set(string(c.inst.Result()))
	}
}

func msbBits(v uint8, width int) []bool {
	bits := make([]bool, width)
	for i := 0; i < width; i++ {
		bits[i] = v&(1<<(width-1-i)) != 0
	}
	return bits
}

func addComparePair(sys *system.System, at grid.Node, leaderValue, participantValue uint8) error {
	if _, err := sys.Add(system.ParticleSpec{
		Tail:      at,
		HeadDir:   -1,
		Chirality: grid.Counterclockwise,
		Compass:   grid.DirE,
		Algorithm: newComparer(true, leaderValue),
	}); err != nil {
		return err
	}
	_, err := sys.Add(system.ParticleSpec{
		Tail:      grid.Neighbor(at, grid.DirE),
		HeadDir:   -1,
		Chirality: grid.Counterclockwise,
		Compass:   grid.DirE,
		Algorithm: newComparer(false, participantValue),
	})
	return err
}
