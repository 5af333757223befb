package system

import (
	"fmt"

	"amoebotsim.ai/internal/sim/circuit"
	"amoebotsim.ai/internal/sim/grid"
)

// MoveContext is handed to ActivateMove. Requests are collected here and
// resolved jointly by the scheduler after every particle was activated;
// nothing moves until the whole batch validated.
type MoveContext struct {
	s   *System
	p   *Particle
	req moveReq
}

func (mc *MoveContext) Round() uint64  { return mc.s.round }
func (mc *MoveContext) Expanded() bool { return mc.p.Expanded() }

// globalDir translates a particle-local direction.
func (mc *MoveContext) globalDir(local grid.Dir) grid.Dir {
	return grid.LocalToGlobal(local, mc.p.Compass, mc.p.Chirality)
}

// HasNeighbor reports whether a particle occupies the node adjacent to the
// tail in the given local direction.
func (mc *MoveContext) HasNeighbor(local grid.Dir) bool {
	_, ok := mc.neighborFrom(mc.p.Tail, local)
	return ok
}

// HasHeadNeighbor is HasNeighbor measured from the head node.
func (mc *MoveContext) HasHeadNeighbor(local grid.Dir) bool {
	_, ok := mc.neighborFrom(mc.p.Head(), local)
	return ok
}

// NeighborID returns the id of the particle adjacent to the tail in the
// given local direction.
func (mc *MoveContext) NeighborID(local grid.Dir) (string, bool) {
	return mc.neighborFrom(mc.p.Tail, local)
}

func (mc *MoveContext) neighborFrom(n grid.Node, local grid.Dir) (string, bool) {
	q, ok := mc.s.At(grid.Neighbor(n, mc.globalDir(local)))
	if !ok || q.ID == mc.p.ID {
		return "", false
	}
	return q.ID, true
}

// Expand requests expansion toward the given local direction. Validation
// happens at phase end; a second request in the same round overwrites the
// first.
func (mc *MoveContext) Expand(local grid.Dir) error {
	if !local.Valid() {
		return fmt.Errorf("%s: expand direction %d out of range", mc.p.ID, local)
	}
	if mc.p.Expanded() {
		return fmt.Errorf("%s: expand while already expanded", mc.p.ID)
	}
	mc.req = moveReq{kind: moveExpand, dir: mc.globalDir(local)}
	return nil
}

// ContractToHead requests contraction onto the head node.
func (mc *MoveContext) ContractToHead() error {
	if !mc.p.Expanded() {
		return fmt.Errorf("%s: contract while contracted", mc.p.ID)
	}
	mc.req = moveReq{kind: moveContractToHead}
	return nil
}

// ContractToTail requests contraction onto the tail node.
func (mc *MoveContext) ContractToTail() error {
	if !mc.p.Expanded() {
		return fmt.Errorf("%s: contract while contracted", mc.p.ID)
	}
	mc.req = moveReq{kind: moveContractToTail}
	return nil
}

// MarkBond marks the bond toward the given local direction. Bonds are
// advisory markers carried by the particle.
func (mc *MoveContext) MarkBond(local grid.Dir) {
	mc.p.bonds[mc.globalDir(local)] = true
}

// ReleaseBond removes a bond marker.
func (mc *MoveContext) ReleaseBond(local grid.Dir) {
	delete(mc.p.bonds, mc.globalDir(local))
}

// BondMarked reports whether the bond toward the local direction is marked.
func (mc *MoveContext) BondMarked(local grid.Dir) bool {
	return mc.p.bonds[mc.globalDir(local)]
}

// BeepContext is handed to ActivateBeep. It reads the configuration that
// became active at the start of this round, stages the next one, and
// exchanges signals: a beep or message sent here is observable by every
// particle on the circuit from the next round boundary on.
type BeepContext struct {
	s *System
	p *Particle
}

func (bc *BeepContext) Round() uint64  { return bc.s.round }
func (bc *BeepContext) Expanded() bool { return bc.p.Expanded() }

// GlobalDir translates a particle-local direction to a global one.
func (bc *BeepContext) GlobalDir(local grid.Dir) grid.Dir {
	return grid.LocalToGlobal(local, bc.p.Compass, bc.p.Chirality)
}

// HasNeighbor reports whether a particle occupies the node adjacent to the
// tail in the given local direction.
func (bc *BeepContext) HasNeighbor(local grid.Dir) bool {
	q, ok := bc.s.At(grid.Neighbor(bc.p.Tail, bc.GlobalDir(local)))
	return ok && q.ID != bc.p.ID
}

// ActiveConfig returns this round's active configuration. Treat as read
// only; staging happens on a fresh configuration.
func (bc *BeepContext) ActiveConfig() *circuit.PinConfig { return bc.p.committed }

// NewConfig returns a fresh singleton configuration matching the particle's
// current geometry, ready for MakePartitionSet calls.
func (bc *BeepContext) NewConfig() *circuit.PinConfig {
	return newConfigFor(bc.p.HeadDir, bc.s.cfg.PinsPerEdge)
}

// SetPlanned stages pc to become active at the start of the next round.
func (bc *BeepContext) SetPlanned(pc *circuit.PinConfig) error {
	if pc == nil {
		return fmt.Errorf("%s: nil planned configuration", bc.p.ID)
	}
	if pc.HeadDir != bc.p.HeadDir || pc.PinsPerEdge != bc.s.cfg.PinsPerEdge {
		return fmt.Errorf("%s: planned configuration does not match geometry", bc.p.ID)
	}
	bc.p.planned = pc
	return nil
}

// SendBeep marks the partition set as beeped for this round. Unknown set
// ids are protocol misuse: logged, no signal sent.
func (bc *BeepContext) SendBeep(setID int) error {
	if !bc.p.committed.HasSet(setID) {
		bc.s.warnf("%s: beep on unknown partition set %d ignored", bc.p.ID, setID)
		return fmt.Errorf("%s: unknown partition set %d", bc.p.ID, setID)
	}
	bc.p.sentBeeps[setID] = true
	return nil
}

// ReceivedBeep reports whether any particle on the circuit of setID beeped
// in the previous round. Unknown set ids log a warning and read false.
func (bc *BeepContext) ReceivedBeep(setID int) bool {
	if !bc.p.committed.HasSet(setID) {
		bc.s.warnf("%s: beep read on unknown partition set %d", bc.p.ID, setID)
		return false
	}
	return bc.p.inBeeps[setID]
}

// SendMessage stages a payload on the partition set.
func (bc *BeepContext) SendMessage(setID int, m circuit.Message) error {
	if !bc.p.committed.HasSet(setID) {
		bc.s.warnf("%s: message on unknown partition set %d ignored", bc.p.ID, setID)
		return fmt.Errorf("%s: unknown partition set %d", bc.p.ID, setID)
	}
	bc.p.sentMsgs[setID] = m
	return nil
}

// ReceivedMessage returns the payload delivered on the circuit of setID, if
// one was sent in the previous round.
func (bc *BeepContext) ReceivedMessage(setID int) (circuit.Message, bool) {
	if !bc.p.committed.HasSet(setID) {
		bc.s.warnf("%s: message read on unknown partition set %d", bc.p.ID, setID)
		return circuit.Message{}, false
	}
	m, ok := bc.p.inMsgs[setID]
	return m, ok
}
