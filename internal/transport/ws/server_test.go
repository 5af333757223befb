package ws

import (
	"encoding/json"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"amoebotsim.ai/internal/protocol"
)

// fakeHost answers Attach with a canned WELCOME and echoes every STEP and
// SEEK it receives as a ROUND frame on the requester's reply channel.
type fakeHost struct {
	attach  chan AttachRequest
	detach  chan chan []byte
	control chan ControlRequest

	done chan struct{}
}

func newFakeHost() *fakeHost {
	h := &fakeHost{
		attach:  make(chan AttachRequest),
		detach:  make(chan chan []byte),
		control: make(chan ControlRequest),
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *fakeHost) Attach() chan<- AttachRequest   { return h.attach }
func (h *fakeHost) Detach() chan<- chan []byte     { return h.detach }
func (h *fakeHost) Control() chan<- ControlRequest { return h.control }

func (h *fakeHost) loop() {
	for {
		select {
		case <-h.done:
			return
		case req := <-h.attach:
			req.Resp <- protocol.WelcomeMsg{
				Type:            protocol.TypeWelcome,
				ProtocolVersion: protocol.Version,
				SimID:           "sim_fake",
				PinsPerEdge:     1,
				Round:           7,
			}
		case out := <-h.detach:
			close(out)
		case req := <-h.control:
			var round uint64
			switch {
			case req.Step != nil:
				round = uint64(req.Step.Count)
			case req.Seek != nil:
				round = req.Seek.Round
			}
			b, _ := json.Marshal(protocol.RoundMsg{
				Type:      protocol.TypeRound,
				Round:     round,
				Digest:    "fake",
				Particles: []protocol.ParticleState{},
			})
			req.Reply <- b
		}
	}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(strings.Replace(url, "http", "ws", 1), nil)
	require.NoError(t, err)
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, v))
}

func TestServer_HandshakeAndControl(t *testing.T) {
	host := newFakeHost()
	defer close(host.done)

	srv := NewServer(host, log.New(os.Stderr, "", 0))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts.URL)
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "tester",
		Driver:          true,
	}
	require.NoError(t, conn.WriteJSON(hello))

	var welcome protocol.WelcomeMsg
	readMsg(t, conn, &welcome)
	require.Equal(t, protocol.TypeWelcome, welcome.Type)
	require.Equal(t, "sim_fake", welcome.SimID)
	require.Equal(t, uint64(7), welcome.Round)

	require.NoError(t, conn.WriteJSON(protocol.StepMsg{Type: protocol.TypeStep, Count: 3}))
	var round protocol.RoundMsg
	readMsg(t, conn, &round)
	require.Equal(t, uint64(3), round.Round)

	require.NoError(t, conn.WriteJSON(protocol.SeekMsg{Type: protocol.TypeSeek, Round: 5}))
	readMsg(t, conn, &round)
	require.Equal(t, uint64(5), round.Round)
}

func TestServer_ViewerCannotStep(t *testing.T) {
	host := newFakeHost()
	defer close(host.done)

	srv := NewServer(host, log.New(os.Stderr, "", 0))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts.URL)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "viewer",
	}))
	var welcome protocol.WelcomeMsg
	readMsg(t, conn, &welcome)

	require.NoError(t, conn.WriteJSON(protocol.StepMsg{Type: protocol.TypeStep, Count: 1}))
	var errMsg protocol.ErrorMsg
	readMsg(t, conn, &errMsg)
	require.Equal(t, protocol.TypeError, errMsg.Type)
	require.Equal(t, protocol.ErrNotDriver, errMsg.Code)
}

func TestServer_RejectsWrongVersion(t *testing.T) {
	host := newFakeHost()
	defer close(host.done)

	srv := NewServer(host, log.New(os.Stderr, "", 0))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dial(t, ts.URL)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: "0.9",
		ClientName:      "old",
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}
