// Package pasc implements the binary-comparison subroutine used by chain
// algorithms: a leader streams its value one bit per round over a chain
// circuit, a participant compares the stream against its own bits and keeps
// a three-valued comparison state. A separate cutoff circuit lets the
// leader end the exchange early with a single broadcast bit.
package pasc

import (
	"fmt"

	"amoebotsim.ai/internal/sim/circuit"
	"amoebotsim.ai/internal/sim/grid"
)

// Comparison is the participant-side verdict. EQUAL holds until the first
// differing bit; with most-significant-first transmission the verdict then
// never changes again.
type Comparison string

const (
	Equal   Comparison = "EQUAL"
	Less    Comparison = "LESS"
	Greater Comparison = "GREATER"
)

// ComparisonValues is the closed enum set, for attribute registration.
var ComparisonValues = []string{string(Equal), string(Less), string(Greater)}

// Signals is the per-round circuit surface the subroutine drives. It is
// satisfied by the scheduler's beep context.
type Signals interface {
	SendBeep(setID int) error
	ReceivedBeep(setID int) bool
}

// Instance is one chain member's view of the protocol. The leader holds the
// reference value; every other member is a participant.
type Instance struct {
	leader    bool
	msbFirst  bool
	sourceDir grid.Dir
	destDir   grid.Dir
	pinOffset int

	chainSet  int
	cutoffSet int
	wired     bool
	cutWired  bool

	bits   []bool
	cursor int

	comparison  Comparison
	latched     bool
	passive     bool
	passiveNow  bool
	receivedBit bool
	hasReceived bool
}

// New returns an idle instance. msbFirst selects the transmission order;
// with least-significant-first order later differences override earlier
// ones so the verdict still reflects the most significant difference.
func New(msbFirst bool) *Instance {
	return &Instance{msbFirst: msbFirst, comparison: Equal}
}

// Init binds the instance to its chain position. sourceDir points toward
// the leader side, destDir away from it; pinOffset selects the pin within
// each of those edges. Init resets all protocol state.
func (i *Instance) Init(isLeader bool, sourceDir, destDir grid.Dir, pinOffset int) {
	i.leader = isLeader
	i.sourceDir = sourceDir
	i.destDir = destDir
	i.pinOffset = pinOffset
	i.cursor = 0
	i.comparison = Equal
	i.latched = false
	i.passive = false
	i.passiveNow = false
	i.hasReceived = false
	i.wired = false
	i.cutWired = false
}

// SetBits loads the value this member holds, already in transmission order.
func (i *Instance) SetBits(bits []bool) {
	i.bits = append([]bool(nil), bits...)
	i.cursor = 0
}

func (i *Instance) IsLeader() bool { return i.leader }

// SetupCircuit wires the chain partition set into pc: the pins toward
// source and destination joined into set id. Must be called again after
// every shape change, like any wiring.
func (i *Instance) SetupCircuit(pc *circuit.PinConfig, id int) error {
	pins, err := i.chainPins(pc)
	if err != nil {
		return err
	}
	if err := pc.MakePartitionSet(pins, id); err != nil {
		return err
	}
	i.chainSet = id
	i.wired = true
	return nil
}

func (i *Instance) chainPins(pc *circuit.PinConfig) ([]int, error) {
	var pins []int
	dirs := []grid.Dir{i.sourceDir, i.destDir}
	if i.leader {
		// The leader sits at the chain end; only the destination edge
		// participates.
		dirs = dirs[1:]
	}
	for _, d := range dirs {
		p, err := pc.Pin(int(d), i.pinOffset)
		if err != nil {
			return nil, fmt.Errorf("pasc: %w", err)
		}
		pins = append(pins, p)
	}
	return pins, nil
}

// ActivateSend runs on the bit-holding side: beep iff the next bit is 1.
func (i *Instance) ActivateSend(sig Signals) error {
	if !i.wired {
		return fmt.Errorf("pasc: send before SetupCircuit")
	}
	if i.cursor >= len(i.bits) {
		return nil
	}
	bit := i.bits[i.cursor]
	i.cursor++
	if bit {
		return sig.SendBeep(i.chainSet)
	}
	return nil
}

// ActivateReceive runs on the receiving side: infer the transmitted bit
// from beep presence and fold it into the comparison state.
func (i *Instance) ActivateReceive(sig Signals) error {
	if !i.wired {
		return fmt.Errorf("pasc: receive before SetupCircuit")
	}
	if i.passive {
		i.passiveNow = false
		return nil
	}
	got := sig.ReceivedBeep(i.chainSet)
	i.receivedBit = got
	i.hasReceived = true

	if i.cursor < len(i.bits) {
		own := i.bits[i.cursor]
		i.cursor++
		if own != got {
			verdict := Less
			if own {
				verdict = Greater
			}
			if i.msbFirst {
				// Most significant difference decides; never overwrite.
				if !i.latched {
					i.comparison = verdict
					i.latched = true
				}
			} else {
				// Least-significant-first: later bits are more significant.
				i.comparison = verdict
				i.latched = true
			}
		}
	}
	if i.cursor >= len(i.bits) {
		i.passiveNow = !i.passive
		i.passive = true
	}
	return nil
}

// BecamePassive is true exactly in the round the participant stopped
// needing further bits.
func (i *Instance) BecamePassive() bool { return i.passiveNow }

// Passive reports whether the participant needs no further bits.
func (i *Instance) Passive() bool { return i.passive }

// GetReceivedBit returns the bit inferred in the last receive activation.
func (i *Instance) GetReceivedBit() (bool, bool) {
	return i.receivedBit, i.hasReceived
}

// Result returns the current comparison verdict.
func (i *Instance) Result() Comparison { return i.comparison }

// SetupCutoffCircuit wires the dedicated cutoff partition set. The cutoff
// circuit spans the same chain edges but is addressed separately so a
// cutoff beep cannot be mistaken for a data bit.
func (i *Instance) SetupCutoffCircuit(pc *circuit.PinConfig, id, pinOffset int) error {
	var pins []int
	dirs := []grid.Dir{i.sourceDir, i.destDir}
	if i.leader {
		dirs = dirs[1:]
	}
	for _, d := range dirs {
		p, err := pc.Pin(int(d), pinOffset)
		if err != nil {
			return fmt.Errorf("pasc: cutoff: %w", err)
		}
		pins = append(pins, p)
	}
	if err := pc.MakePartitionSet(pins, id); err != nil {
		return err
	}
	i.cutoffSet = id
	i.cutWired = true
	return nil
}

// SendCutoffBeep short-circuits the protocol: the leader broadcasts the
// final bit directly instead of waiting out the round cadence.
func (i *Instance) SendCutoffBeep(sig Signals) error {
	if !i.cutWired {
		return fmt.Errorf("pasc: cutoff beep before SetupCutoffCircuit")
	}
	return sig.SendBeep(i.cutoffSet)
}

// ReceiveCutoffBeep reports whether the leader fired the cutoff; receiving
// it ends the participant's protocol immediately.
func (i *Instance) ReceiveCutoffBeep(sig Signals) bool {
	if !i.cutWired {
		return false
	}
	if sig.ReceivedBeep(i.cutoffSet) {
		i.passiveNow = !i.passive
		i.passive = true
		return true
	}
	return false
}
