// Package protocol defines the JSON messages exchanged between the engine
// and its clients: viewers that render rounds and drivers that step or seek
// the simulation. The engine core never depends on this package.
package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeRound   = "ROUND"
	TypeStep    = "STEP"
	TypeSeek    = "SEEK"
	TypeError   = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// HelloMsg opens a session. Viewers receive ROUND frames; drivers may also
// send STEP and SEEK.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	Driver          bool   `json:"driver,omitempty"`
}

type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SimID           string `json:"sim_id"`
	PinsPerEdge     int    `json:"pins_per_edge"`
	Round           uint64 `json:"round"`
}

// ParticleState is the per-particle payload of a ROUND frame; enough for a
// viewer to draw the population without engine access.
type ParticleState struct {
	ID       string `json:"id"`
	TailX    int    `json:"tail_x"`
	TailY    int    `json:"tail_y"`
	HeadDir  int    `json:"head_dir"`
	Finished bool   `json:"finished,omitempty"`
}

// RoundMsg is broadcast once per committed round, and in reply to SEEK with
// the reconstructed state of the requested round.
type RoundMsg struct {
	Type   string `json:"type"`
	Round  uint64 `json:"round"`
	Digest string `json:"digest"`

	Replay    bool            `json:"replay,omitempty"`
	Moved     []string        `json:"moved,omitempty"`
	Beeps     int             `json:"beeps,omitempty"`
	Msgs      int             `json:"msgs,omitempty"`
	Particles []ParticleState `json:"particles"`
}

// StepMsg asks the host to advance the simulation.
type StepMsg struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// SeekMsg asks for a read-only reconstruction of a recorded round.
type SeekMsg struct {
	Type  string `json:"type"`
	Round uint64 `json:"round"`
}

type ErrorMsg struct {
	Type string `json:"type"`
	Code string `json:"code"`
	Msg  string `json:"msg,omitempty"`
}

func Errorf(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, Code: code, Msg: msg}
}
