// Package ws serves the simulation protocol over WebSocket. Clients open a
// session with HELLO; viewers then receive ROUND frames as the host commits
// rounds, and drivers may additionally send STEP and SEEK.
package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"amoebotsim.ai/internal/protocol"
)

// AttachRequest registers a client with the host loop. The host replies on
// Resp with the WELCOME frame and starts broadcasting ROUND frames to Out.
type AttachRequest struct {
	Name   string
	Driver bool
	Out    chan []byte
	Resp   chan protocol.WelcomeMsg
}

// ControlRequest carries a STEP or SEEK from a driver session into the host
// loop. Exactly one of Step and Seek is set. Replies (ROUND for a seek,
// ERROR on failure) go to Reply.
type ControlRequest struct {
	Step  *protocol.StepMsg
	Seek  *protocol.SeekMsg
	Reply chan []byte
}

// Host is the single-threaded simulation loop the server hands sessions to.
type Host interface {
	Attach() chan<- AttachRequest
	Detach() chan<- chan []byte
	Control() chan<- ControlRequest
}

type Server struct {
	host Host
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(h Host, logger *log.Logger) *Server {
	return &Server{
		host: h,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		driver, out := s.handshake(conn)
		if out == nil {
			return
		}

		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			defer close(done)
			for b := range out {
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				sendError(out, protocol.ErrProtoBadRequest, "malformed message")
				continue
			}
			switch base.Type {
			case protocol.TypeStep:
				if !driver {
					sendError(out, protocol.ErrNotDriver, "STEP requires a driver session")
					continue
				}
				var step protocol.StepMsg
				if err := json.Unmarshal(msg, &step); err != nil || step.Count < 1 {
					sendError(out, protocol.ErrBadRequest, "bad STEP")
					continue
				}
				s.host.Control() <- ControlRequest{Step: &step, Reply: out}

			case protocol.TypeSeek:
				var seek protocol.SeekMsg
				if err := json.Unmarshal(msg, &seek); err != nil {
					sendError(out, protocol.ErrBadRequest, "bad SEEK")
					continue
				}
				s.host.Control() <- ControlRequest{Seek: &seek, Reply: out}

			default:
				sendError(out, protocol.ErrProtoBadRequest, "unexpected type "+base.Type)
			}
		}

		// Cleanup: host closes out, which stops the writer.
		s.host.Detach() <- out
		<-done
	}
}

func (s *Server) handshake(conn *websocket.Conn) (driver bool, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return false, nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(conn, "expected HELLO")
		return false, nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return false, nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closePolicy(conn, "bad protocol_version")
		return false, nil
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	out = make(chan []byte, 64)
	respCh := make(chan protocol.WelcomeMsg, 1)
	s.host.Attach() <- AttachRequest{
		Name:   hello.ClientName,
		Driver: hello.Driver,
		Out:    out,
		Resp:   respCh,
	}
	welcome := <-respCh

	if err := writeJSON(conn, welcome); err != nil {
		s.host.Detach() <- out
		return false, nil
	}
	return hello.Driver, out
}

func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}

func sendError(out chan []byte, code, msg string) {
	b, err := json.Marshal(protocol.Errorf(code, msg))
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
