// Package simtest drives a system through its exported APIs only, so the
// scenario tests exercise the same surface the hosting application uses.
package simtest

import (
	"testing"

	"amoebotsim.ai/internal/sim/system"
)

// Harness wraps a system for black-box scenario tests.
type Harness struct {
	T *testing.T
	S *system.System
}

func NewHarness(t *testing.T, cfg system.Config) *Harness {
	t.Helper()
	s, err := system.New(cfg)
	if err != nil {
		t.Fatalf("system.New: %v", err)
	}
	s.SetWarnf(t.Logf)
	return &Harness{T: t, S: s}
}

// Add places a particle and fails the test on error.
func (h *Harness) Add(spec system.ParticleSpec) *system.Particle {
	h.T.Helper()
	p, err := h.S.Add(spec)
	if err != nil {
		h.T.Fatalf("Add: %v", err)
	}
	return p
}

// Step advances one round and fails the test on error.
func (h *Harness) Step() (uint64, string) {
	h.T.Helper()
	round, digest, err := h.S.Step()
	if err != nil {
		h.T.Fatalf("Step: %v", err)
	}
	return round, digest
}

// StepFor advances n rounds, returning the digest of the last one.
func (h *Harness) StepFor(n int) string {
	h.T.Helper()
	var digest string
	for i := 0; i < n; i++ {
		_, digest = h.Step()
	}
	return digest
}

// Script is a particle behavior assembled from closures, which keeps
// scenario intent next to the assertions instead of in one-off types.
type Script struct {
	Name       string
	OnInit     func(p *system.Particle) error
	OnMove     func(mc *system.MoveContext)
	OnBeep     func(bc *system.BeepContext)
	IsFinished func() bool
}

type scriptAlg struct{ sc Script }

func (a *scriptAlg) ActivateMove(mc *system.MoveContext) {
	if a.sc.OnMove != nil {
		a.sc.OnMove(mc)
	}
}

func (a *scriptAlg) ActivateBeep(bc *system.BeepContext) {
	if a.sc.OnBeep != nil {
		a.sc.OnBeep(bc)
	}
}

func (a *scriptAlg) IsFinished() bool {
	if a.sc.IsFinished == nil {
		return false
	}
	return a.sc.IsFinished()
}

func (a *scriptAlg) AlgorithmName() string {
	if a.sc.Name == "" {
		return "script"
	}
	return a.sc.Name
}

// ScriptInit adapts a Script into an algorithm constructor.
func ScriptInit(sc Script) system.AlgorithmInit {
	return func(p *system.Particle) (system.Algorithm, error) {
		if sc.OnInit != nil {
			if err := sc.OnInit(p); err != nil {
				return nil, err
			}
		}
		return &scriptAlg{sc: sc}, nil
	}
}

// Idle returns a do-nothing behavior.
func Idle() system.AlgorithmInit { return ScriptInit(Script{Name: "idle"}) }
