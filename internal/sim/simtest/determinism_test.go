package simtest

import (
	"testing"

	"amoebotsim.ai/internal/sim/grid"
	"amoebotsim.ai/internal/sim/history"
	"amoebotsim.ai/internal/sim/system"
)

// busyPopulation builds a three-particle population whose scripts move,
// rewire and signal every few rounds, enough to touch every subsystem.
func busyPopulation(t *testing.T, id string) *Harness {
	t.Helper()
	h := NewHarness(t, system.Config{ID: id, PinsPerEdge: 2, Seed: 7})

	walker := Script{
		Name: "walker",
		OnInit: func(p *system.Particle) error {
			_, err := p.Attrs.Int("steps", 0)
			return err
		},
		OnMove: func(mc *system.MoveContext) {
			switch mc.Round() % 4 {
			case 0:
				if !mc.Expanded() && !mc.HasNeighbor(grid.DirNNE) {
					_ = mc.Expand(grid.DirNNE)
				}
			case 1:
				if mc.Expanded() {
					_ = mc.ContractToTail()
				}
			}
		},
	}
	chatter := Script{
		Name: "chatter",
		OnBeep: func(bc *system.BeepContext) {
			pc := bc.NewConfig()
			pc.SetToGlobal(0)
			_ = bc.SetPlanned(pc)
			if bc.Round()%2 == 1 {
				_ = bc.SendBeep(0)
			}
		},
	}

	h.Add(system.ParticleSpec{Tail: grid.Node{X: 0, Y: 0}, HeadDir: -1, Compass: grid.DirE, Algorithm: ScriptInit(walker)})
	h.Add(system.ParticleSpec{Tail: grid.Node{X: 1, Y: 0}, HeadDir: -1, Compass: grid.DirNNE, Algorithm: ScriptInit(chatter)})
	h.Add(system.ParticleSpec{Tail: grid.Node{X: 2, Y: 0}, HeadDir: -1, Compass: grid.DirW, Chirality: grid.Clockwise, Algorithm: ScriptInit(chatter)})
	return h
}

func TestDeterminism_SameDecisionsSameDigests(t *testing.T) {
	h1 := busyPopulation(t, "det")
	h2 := busyPopulation(t, "det")

	for i := 0; i < 24; i++ {
		r1, d1 := h1.Step()
		r2, d2 := h2.Step()
		if r1 != r2 {
			t.Fatalf("round drift: %d vs %d", r1, r2)
		}
		if d1 != d2 {
			t.Fatalf("digest mismatch at round %d:\n%s\n%s", r1, d1, d2)
		}
	}

	// Rewound digests agree too, for every recorded round.
	for r := uint64(0); r < 24; r++ {
		if h1.S.DigestAt(r) != h2.S.DigestAt(r) {
			t.Fatalf("rewound digest mismatch at round %d", r)
		}
	}
}

func TestHistory_StaysMinimalThroughEngine(t *testing.T) {
	h := NewHarness(t, system.Config{ID: "minimal", PinsPerEdge: 1})
	h.Add(system.ParticleSpec{Tail: grid.Node{}, HeadDir: -1, Compass: grid.DirE, Algorithm: Idle()})
	h.StepFor(20)

	save := h.S.ExportSave(19)
	for _, p := range save.Particles {
		for _, a := range p.Attrs {
			if len(a.Points) > 1 {
				t.Fatalf("idle particle attr %s stored %d break-points", a.Name, len(a.Points))
			}
			if a.LastRound != 19 {
				t.Fatalf("attr %s last round %d, want 19", a.Name, a.LastRound)
			}
		}
	}
}

func TestRewind_IsPureRead(t *testing.T) {
	h := busyPopulation(t, "pure")
	h.StepFor(10)

	before := h.S.DigestAt(9)
	for r := uint64(0); r < 10; r++ {
		if _, err := h.S.SnapshotAt(r); err != nil {
			t.Fatalf("SnapshotAt(%d): %v", r, err)
		}
		if _, err := h.S.ValueAt("P1", "steps", r); err != nil {
			t.Fatalf("ValueAt round %d: %v", r, err)
		}
	}
	if h.S.DigestAt(9) != before {
		t.Fatalf("rewind mutated state")
	}

	// Reads past the recorded range clamp instead of failing.
	v, err := h.S.ValueAt("P1", "steps", 10_000)
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != history.KindInt {
		t.Fatalf("clamped read returned kind %q", v.Kind)
	}
}

func TestRoundBounds(t *testing.T) {
	h := busyPopulation(t, "bounds")
	if _, ok := h.S.LatestRound(); ok {
		t.Fatalf("fresh system reports a committed round")
	}
	h.StepFor(5)
	if got := h.S.EarliestRound(); got != 0 {
		t.Fatalf("earliest = %d", got)
	}
	latest, ok := h.S.LatestRound()
	if !ok || latest != 4 {
		t.Fatalf("latest = %d,%v want 4", latest, ok)
	}
}
