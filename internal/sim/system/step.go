package system

import (
	"fmt"

	"amoebotsim.ai/internal/sim/circuit"
	"amoebotsim.ai/internal/sim/grid"
)

// ConfigError reports an inconsistent batch of movement requests or a
// malformed configuration. The offending round is not committed and the
// system halts; no partial state mutation occurs.
type ConfigError struct {
	Round uint64
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("round %d: %s", e.Round, e.Msg)
}

type moveKind int

const (
	moveNone moveKind = iota
	moveExpand
	moveContractToHead
	moveContractToTail
)

type moveReq struct {
	kind moveKind
	dir  grid.Dir // global expansion direction
}

// Step executes one full round: movement phase, communication phase, commit.
// It returns the executed round number and the state digest after commit.
// A halted system keeps returning the error that stopped it.
func (s *System) Step() (uint64, string, error) {
	if s.halted != nil {
		return s.round, "", s.halted
	}
	if s.replayOnly {
		return s.round, "", fmt.Errorf("system: replay-only population cannot step")
	}

	r := s.round
	for _, id := range s.order {
		s.particles[id].Attrs.BeginRound(r)
	}

	// Movement phase: collect every request first, then validate the batch
	// as a whole, then apply. No particle observes another's move mid-phase.
	reqs := make(map[string]moveReq, len(s.order))
	for _, id := range s.order {
		p := s.particles[id]
		mc := &MoveContext{s: s, p: p}
		p.alg.ActivateMove(mc)
		reqs[id] = mc.req
	}
	moved, err := s.applyMoves(r, reqs)
	if err != nil {
		s.halted = err
		return r, "", err
	}

	// Communication phase: deliveries resolved at the end of the previous
	// round are readable now; sends recorded here resolve at this round's
	// commit against the configurations active right now.
	for _, id := range s.order {
		p := s.particles[id]
		bc := &BeepContext{s: s, p: p}
		p.alg.ActivateBeep(bc)
	}
	beeps, msgs := s.resolveSignals()

	// Commit: flush attributes into history, hand out deliveries, swap the
	// planned configurations in.
	for _, id := range s.order {
		p := s.particles[id]
		if err := p.recordBuiltins(); err != nil {
			s.halted = err
			return r, "", err
		}
		if err := p.Attrs.CommitRound(); err != nil {
			s.halted = err
			return r, "", err
		}
	}
	for _, id := range s.order {
		p := s.particles[id]
		p.inBeeps = map[int]bool{}
		p.inMsgs = map[int]circuit.Message{}
		for k := range beeps {
			if k.Particle == id {
				p.inBeeps[k.Set] = true
			}
		}
		for k, m := range msgs {
			if k.Particle == id {
				p.inMsgs[k.Set] = m
			}
		}
		if p.planned != nil {
			p.committed = p.planned
			p.planned = nil
		}
		p.resetSignals()
	}

	s.round++
	digest := s.DigestAt(r)

	if s.logger != nil {
		entry := RoundLogEntry{Round: r, Moved: moved, Beeps: len(beeps), Msgs: len(msgs), Digest: digest}
		if err := s.logger.WriteRound(entry); err != nil {
			s.warnf("round log: %v", err)
		}
	}
	return r, digest, nil
}

// applyMoves validates the whole request batch against the final occupancy
// and applies it atomically. Any conflict rejects the batch.
func (s *System) applyMoves(round uint64, reqs map[string]moveReq) ([]string, error) {
	type shape struct {
		tail    grid.Node
		headDir int
	}
	next := make(map[string]shape, len(s.order))

	for _, id := range s.order {
		p := s.particles[id]
		req := reqs[id]
		cur := shape{tail: p.Tail, headDir: p.HeadDir}
		switch req.kind {
		case moveNone:
			next[id] = cur
		case moveExpand:
			if p.Expanded() {
				return nil, &ConfigError{Round: round, Msg: fmt.Sprintf("%s: expand while already expanded", id)}
			}
			next[id] = shape{tail: p.Tail, headDir: int(req.dir)}
		case moveContractToHead:
			if !p.Expanded() {
				return nil, &ConfigError{Round: round, Msg: fmt.Sprintf("%s: contract while contracted", id)}
			}
			next[id] = shape{tail: p.Head(), headDir: -1}
		case moveContractToTail:
			if !p.Expanded() {
				return nil, &ConfigError{Round: round, Msg: fmt.Sprintf("%s: contract while contracted", id)}
			}
			next[id] = shape{tail: p.Tail, headDir: -1}
		}
	}

	// Final occupancy must be collision free: exactly one particle per node.
	occ := make(map[grid.Node]string, len(next)*2)
	for _, id := range s.order {
		sh := next[id]
		nodes := []grid.Node{sh.tail}
		if sh.headDir >= 0 {
			nodes = append(nodes, grid.Neighbor(sh.tail, grid.Dir(sh.headDir)))
		}
		for _, n := range nodes {
			if other, taken := occ[n]; taken {
				return nil, &ConfigError{Round: round, Msg: fmt.Sprintf("node %v claimed by both %s and %s", n, other, id)}
			}
			occ[n] = id
		}
	}

	var moved []string
	for _, id := range s.order {
		p := s.particles[id]
		sh := next[id]
		if sh.tail == p.Tail && sh.headDir == p.HeadDir {
			continue
		}
		p.Tail = sh.tail
		p.HeadDir = sh.headDir
		p.resetWiring(s.cfg.PinsPerEdge)
		moved = append(moved, id)
	}
	s.occ = occ
	return moved, nil
}

// resolveSignals rebuilds the circuits from every particle's active
// configuration and floods this round's sends over them. The result becomes
// readable at the next round boundary.
func (s *System) resolveSignals() (map[circuit.SetKey]bool, map[circuit.SetKey]circuit.Message) {
	res := circuit.NewResolver()

	for _, id := range s.order {
		p := s.particles[id]
		for _, setID := range p.committed.SetIDs() {
			res.Register(circuit.SetKey{Particle: id, Set: setID})
		}
	}

	// Join partition sets across every shared lattice edge. Pins along an
	// edge pair mirrored: offset o meets offset pinsPerEdge-1-o.
	ppe := s.cfg.PinsPerEdge
	for _, id := range s.order {
		p := s.particles[id]
		labels := circuit.EdgeLabels(p.HeadDir)
		for label, edge := range labels {
			from := p.Tail
			if edge.OnHead {
				from = p.Head()
			}
			neighbor := grid.Neighbor(from, edge.Dir)
			q, ok := s.At(neighbor)
			if !ok || q.ID == id {
				continue
			}
			qOnHead := q.Expanded() && q.Head() == neighbor
			qLabel, ok := circuit.LabelFor(q.HeadDir, qOnHead, edge.Dir.Opposite())
			if !ok {
				continue
			}
			if q.ID < id {
				continue // each edge wired once
			}
			for o := 0; o < ppe; o++ {
				myPin, err := p.committed.Pin(label, o)
				if err != nil {
					continue
				}
				theirPin, err := q.committed.Pin(qLabel, ppe-1-o)
				if err != nil {
					continue
				}
				mySet, _ := p.committed.SetOf(myPin)
				theirSet, _ := q.committed.SetOf(theirPin)
				res.Connect(
					circuit.SetKey{Particle: id, Set: mySet},
					circuit.SetKey{Particle: q.ID, Set: theirSet},
				)
			}
		}
	}

	beeps := map[circuit.SetKey]bool{}
	msgs := map[circuit.SetKey]circuit.Message{}
	for _, id := range s.order {
		p := s.particles[id]
		for setID, on := range p.sentBeeps {
			if on {
				beeps[circuit.SetKey{Particle: id, Set: setID}] = true
			}
		}
		for setID, m := range p.sentMsgs {
			msgs[circuit.SetKey{Particle: id, Set: setID}] = m
		}
	}
	return res.Deliver(beeps, msgs)
}
