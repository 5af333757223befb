package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"amoebotsim.ai/internal/persistence/snapshot"
	"amoebotsim.ai/internal/protocol"
	"amoebotsim.ai/internal/sim/system"
	"amoebotsim.ai/internal/sim/tuning"
	"amoebotsim.ai/internal/transport/ws"
)

// host owns the system. Everything that touches it (the round ticker,
// client attach/detach, STEP/SEEK control) runs on the single run loop
// goroutine, so the engine itself stays lock-free.
type host struct {
	sys  *system.System
	tune tuning.Tuning
	log  *log.Logger

	loggers  []system.RoundLogger
	saveSink chan<- snapshot.SaveV1

	attach  chan ws.AttachRequest
	detach  chan chan []byte
	control chan ws.ControlRequest

	clients map[chan []byte]struct{}

	// Filled by WriteRound during Step, consumed right after for the
	// broadcast frame.
	lastEntry system.RoundLogEntry
}

func newHost(sys *system.System, tune tuning.Tuning, logger *log.Logger, loggers []system.RoundLogger) *host {
	h := &host{
		sys:     sys,
		tune:    tune,
		log:     logger,
		loggers: loggers,
		attach:  make(chan ws.AttachRequest, 16),
		detach:  make(chan chan []byte, 16),
		control: make(chan ws.ControlRequest, 64),
		clients: map[chan []byte]struct{}{},
	}
	sys.SetLogger(h)
	return h
}

func (h *host) Attach() chan<- ws.AttachRequest   { return h.attach }
func (h *host) Detach() chan<- chan []byte        { return h.detach }
func (h *host) Control() chan<- ws.ControlRequest { return h.control }

// WriteRound implements system.RoundLogger; called synchronously inside
// Step on the run loop goroutine.
func (h *host) WriteRound(entry system.RoundLogEntry) error {
	h.lastEntry = entry
	for _, l := range h.loggers {
		if err := l.WriteRound(entry); err != nil {
			h.log.Printf("round log: %v", err)
		}
	}
	return nil
}

func (h *host) run(ctx context.Context) {
	live := !h.sys.ReplayOnly()

	var tick <-chan time.Time
	if live {
		t := time.NewTicker(time.Second / time.Duration(h.tune.RoundsPerSecond))
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			for out := range h.clients {
				close(out)
			}
			return

		case req := <-h.attach:
			h.clients[req.Out] = struct{}{}
			req.Resp <- protocol.WelcomeMsg{
				Type:            protocol.TypeWelcome,
				ProtocolVersion: protocol.Version,
				SimID:           h.sys.Config().ID,
				PinsPerEdge:     h.sys.Config().PinsPerEdge,
				Round:           h.sys.Round(),
			}

		case out := <-h.detach:
			if _, ok := h.clients[out]; ok {
				delete(h.clients, out)
				close(out)
			}

		case req := <-h.control:
			h.handleControl(req)

		case <-tick:
			if h.sys.Halted() != nil {
				continue
			}
			h.stepOnce()
		}
	}
}

func (h *host) handleControl(req ws.ControlRequest) {
	switch {
	case req.Step != nil:
		if h.sys.ReplayOnly() {
			h.reply(req.Reply, protocol.Errorf(protocol.ErrBadRequest, "population is replay only"))
			return
		}
		for i := 0; i < req.Step.Count; i++ {
			if !h.stepOnce() {
				h.reply(req.Reply, protocol.Errorf(protocol.ErrHalted, h.sys.Halted().Error()))
				return
			}
		}

	case req.Seek != nil:
		frame, err := h.seekFrame(req.Seek.Round)
		if err != nil {
			h.reply(req.Reply, protocol.Errorf(protocol.ErrRoundNotRecorded, err.Error()))
			return
		}
		h.reply(req.Reply, frame)
	}
}

// stepOnce executes one round, broadcasts it, and schedules a save when
// due. Returns false once the scheduler is halted.
func (h *host) stepOnce() bool {
	round, digest, err := h.sys.Step()
	if err != nil {
		var cfgErr *system.ConfigError
		if errors.As(err, &cfgErr) {
			h.log.Printf("halted: %v", err)
			h.broadcast(protocol.Errorf(protocol.ErrHalted, err.Error()))
		} else {
			h.log.Printf("step: %v", err)
		}
		return false
	}

	h.broadcast(protocol.RoundMsg{
		Type:      protocol.TypeRound,
		Round:     round,
		Digest:    digest,
		Moved:     h.lastEntry.Moved,
		Beeps:     h.lastEntry.Beeps,
		Msgs:      h.lastEntry.Msgs,
		Particles: h.particleStates(),
	})

	if n := uint64(h.tune.SnapshotEveryRounds); n > 0 && (round+1)%n == 0 {
		select {
		case h.saveSink <- h.sys.ExportSave(round):
		default:
			h.log.Printf("save sink full; skipping round %d", round)
		}
	}
	return true
}

func (h *host) particleStates() []protocol.ParticleState {
	ids := h.sys.ParticleIDs()
	out := make([]protocol.ParticleState, 0, len(ids))
	for _, id := range ids {
		p, ok := h.sys.Get(id)
		if !ok {
			continue
		}
		out = append(out, protocol.ParticleState{
			ID:       id,
			TailX:    p.Tail.X,
			TailY:    p.Tail.Y,
			HeadDir:  p.HeadDir,
			Finished: p.IsFinished(),
		})
	}
	return out
}

func (h *host) seekFrame(round uint64) (protocol.RoundMsg, error) {
	if round >= h.sys.Round() {
		return protocol.RoundMsg{}, fmt.Errorf("round %d not committed yet", round)
	}
	views, err := h.sys.SnapshotAt(round)
	if err != nil {
		return protocol.RoundMsg{}, err
	}
	states := make([]protocol.ParticleState, 0, len(views))
	for _, v := range views {
		states = append(states, protocol.ParticleState{
			ID:      v.ID,
			TailX:   v.Tail.X,
			TailY:   v.Tail.Y,
			HeadDir: v.HeadDir,
		})
	}
	return protocol.RoundMsg{
		Type:      protocol.TypeRound,
		Round:     round,
		Digest:    h.sys.DigestAt(round),
		Replay:    true,
		Particles: states,
	}, nil
}

func (h *host) broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	for out := range h.clients {
		select {
		case out <- b:
		default:
			// Slow viewer; drop the frame rather than stall the loop.
		}
	}
}

func (h *host) reply(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}
