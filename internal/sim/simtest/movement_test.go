package simtest

import (
	"errors"
	"testing"

	"amoebotsim.ai/internal/sim/grid"
	"amoebotsim.ai/internal/sim/system"
)

func TestMovement_ExpandThenContract(t *testing.T) {
	h := NewHarness(t, system.Config{ID: "walk", PinsPerEdge: 1})

	walker := Script{
		Name: "walker",
		OnMove: func(mc *system.MoveContext) {
			switch mc.Round() {
			case 0:
				if err := mc.Expand(grid.DirE); err != nil {
					t.Fatalf("expand: %v", err)
				}
			case 1:
				if err := mc.ContractToHead(); err != nil {
					t.Fatalf("contract: %v", err)
				}
			}
		},
	}
	p := h.Add(system.ParticleSpec{Tail: grid.Node{}, HeadDir: -1, Compass: grid.DirE, Algorithm: ScriptInit(walker)})

	h.Step()
	if !p.Expanded() {
		t.Fatalf("particle not expanded after round 0")
	}
	if p.Head() != (grid.Node{X: 1, Y: 0}) {
		t.Fatalf("head at %+v", p.Head())
	}
	if got := p.ActiveConfig().NumEdges(); got != 10 {
		t.Fatalf("expanded shape must expose 10 edges, got %d", got)
	}

	h.Step()
	if p.Expanded() {
		t.Fatalf("particle still expanded after contraction")
	}
	if p.Tail != (grid.Node{X: 1, Y: 0}) {
		t.Fatalf("contract-to-head left tail at %+v", p.Tail)
	}
	if got := p.ActiveConfig().NumEdges(); got != 6 {
		t.Fatalf("contracted shape must expose 6 edges, got %d", got)
	}

	// The shape attributes rewind like any other state.
	views, err := h.S.SnapshotAt(0)
	if err != nil {
		t.Fatal(err)
	}
	if !views[0].Expanded || views[0].Tail != (grid.Node{}) {
		t.Fatalf("round 0 view wrong: %+v", views[0])
	}
	views, err = h.S.SnapshotAt(1)
	if err != nil {
		t.Fatal(err)
	}
	if views[0].Expanded || views[0].Tail != (grid.Node{X: 1, Y: 0}) {
		t.Fatalf("round 1 view wrong: %+v", views[0])
	}
}

func TestMovement_CollidingExpansionsRejectWholeBatch(t *testing.T) {
	h := NewHarness(t, system.Config{ID: "clash", PinsPerEdge: 1})

	expandTo := func(d grid.Dir) Script {
		return Script{
			Name: "rusher",
			OnMove: func(mc *system.MoveContext) {
				if mc.Round() == 0 {
					_ = mc.Expand(d)
				}
			},
		}
	}
	p1 := h.Add(system.ParticleSpec{Tail: grid.Node{X: 0, Y: 0}, HeadDir: -1, Compass: grid.DirE, Algorithm: ScriptInit(expandTo(grid.DirE))})
	p2 := h.Add(system.ParticleSpec{Tail: grid.Node{X: 2, Y: 0}, HeadDir: -1, Compass: grid.DirE, Algorithm: ScriptInit(expandTo(grid.DirW))})

	_, _, err := h.S.Step()
	var cfgErr *system.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("colliding expansions must fail with ConfigError, got %v", err)
	}

	// No partial mutation: both still contracted, round not committed.
	if p1.Expanded() || p2.Expanded() {
		t.Fatalf("particles moved despite rejected batch")
	}
	if _, ok := h.S.LatestRound(); ok {
		t.Fatalf("round committed despite rejected batch")
	}

	// The scheduler halts rather than resolving the race.
	_, _, err2 := h.S.Step()
	if !errors.As(err2, &cfgErr) {
		t.Fatalf("halted scheduler must keep reporting the error, got %v", err2)
	}
}

func TestMovement_ExpandIntoOccupiedNodeRejected(t *testing.T) {
	h := NewHarness(t, system.Config{ID: "blocked", PinsPerEdge: 1})

	rusher := Script{
		Name: "rusher",
		OnMove: func(mc *system.MoveContext) {
			if mc.Round() == 0 {
				_ = mc.Expand(grid.DirE)
			}
		},
	}
	h.Add(system.ParticleSpec{Tail: grid.Node{X: 0, Y: 0}, HeadDir: -1, Compass: grid.DirE, Algorithm: ScriptInit(rusher)})
	h.Add(system.ParticleSpec{Tail: grid.Node{X: 1, Y: 0}, HeadDir: -1, Compass: grid.DirE, Algorithm: Idle()})

	_, _, err := h.S.Step()
	var cfgErr *system.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expansion into an occupied node must fail, got %v", err)
	}
}

func TestMovement_ContractionFreesNodeForExpansion(t *testing.T) {
	h := NewHarness(t, system.Config{ID: "handover", PinsPerEdge: 1})

	// P1 is expanded over (0,0)-(1,0) and contracts to its tail; P2 expands
	// into (1,0) in the same round. The batch is consistent.
	leaver := Script{
		Name: "leaver",
		OnMove: func(mc *system.MoveContext) {
			if mc.Round() == 0 {
				_ = mc.ContractToTail()
			}
		},
	}
	taker := Script{
		Name: "taker",
		OnMove: func(mc *system.MoveContext) {
			if mc.Round() == 0 {
				_ = mc.Expand(grid.DirW)
			}
		},
	}
	p1 := h.Add(system.ParticleSpec{Tail: grid.Node{X: 0, Y: 0}, HeadDir: int(grid.DirE), Compass: grid.DirE, Algorithm: ScriptInit(leaver)})
	p2 := h.Add(system.ParticleSpec{Tail: grid.Node{X: 2, Y: 0}, HeadDir: -1, Compass: grid.DirE, Algorithm: ScriptInit(taker)})

	h.Step()
	if p1.Expanded() {
		t.Fatalf("P1 did not contract")
	}
	if !p2.Expanded() || p2.Head() != (grid.Node{X: 1, Y: 0}) {
		t.Fatalf("P2 did not take the freed node: %+v", p2.Head())
	}
}

func TestMovement_BondsAreMarkers(t *testing.T) {
	h := NewHarness(t, system.Config{ID: "bonds", PinsPerEdge: 1})

	bonder := Script{
		Name: "bonder",
		OnMove: func(mc *system.MoveContext) {
			switch mc.Round() {
			case 0:
				mc.MarkBond(grid.DirE)
				if !mc.BondMarked(grid.DirE) {
					t.Fatalf("bond not marked")
				}
			case 1:
				if !mc.BondMarked(grid.DirE) {
					t.Fatalf("bond lost between rounds")
				}
				mc.ReleaseBond(grid.DirE)
				if mc.BondMarked(grid.DirE) {
					t.Fatalf("bond not released")
				}
			}
		},
	}
	h.Add(system.ParticleSpec{Tail: grid.Node{}, HeadDir: -1, Compass: grid.DirE, Algorithm: ScriptInit(bonder)})
	h.StepFor(2)
}

func TestFinished_AggregatesOverPopulation(t *testing.T) {
	h := NewHarness(t, system.Config{ID: "fin", PinsPerEdge: 1})

	done := false
	finisher := Script{
		Name:       "finisher",
		OnMove:     func(mc *system.MoveContext) { done = mc.Round() >= 1 },
		IsFinished: func() bool { return done },
	}
	h.Add(system.ParticleSpec{Tail: grid.Node{}, HeadDir: -1, Compass: grid.DirE, Algorithm: ScriptInit(finisher)})
	h.Add(system.ParticleSpec{Tail: grid.Node{X: 1, Y: 0}, HeadDir: -1, Compass: grid.DirE, Algorithm: Idle()})

	h.StepFor(3)
	if h.S.Finished() {
		t.Fatalf("idle particle never finishes, population must not report finished")
	}
}
