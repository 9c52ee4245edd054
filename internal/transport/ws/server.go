// Package ws is the websocket gateway. One connection, one client; travel
// attempts run one at a time process-wide, enforced by the orchestrator's
// in-progress guard, so a second client's attempt gets BUSY rather than a
// queue.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"waygate.ai/internal/protocol"
	"waygate.ai/internal/sim/destinations"
	"waygate.ai/internal/sim/travel"
)

// Lister enumerates destinations for the welcome and LIST responses.
type Lister interface {
	List() []destinations.Destination
}

type Server struct {
	orch       *travel.Orchestrator
	lister     Lister
	currencyID string
	defPrice   int64
	log        *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(orch *travel.Orchestrator, lister Lister, currencyID string, defaultPrice int64, logger *log.Logger) *Server {
	return &Server{
		orch:       orch,
		lister:     lister,
		currencyID: currencyID,
		defPrice:   defaultPrice,
		log:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
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

		out, ok := s.handshake(conn)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				s.send(out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Message: "bad message"})
				continue
			}
			switch base.Type {
			case protocol.TypeList:
				s.send(out, protocol.DestinationsMsg{Type: protocol.TypeDestinations, Destinations: s.refs()})
			case protocol.TypeCancel:
				s.orch.Cancel()
			case protocol.TypeTravel:
				var tm protocol.TravelMsg
				if err := json.Unmarshal(msg, &tm); err != nil || tm.Destination == "" {
					s.send(out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Message: "bad TRAVEL"})
					continue
				}
				go s.runTravel(ctx, out, tm)
			default:
				s.send(out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrProtoBadRequest, Message: "unknown type " + base.Type})
			}
		}
	}
}

// runTravel executes one attempt and reports its outcome. Concurrency is
// not our problem: the orchestrator rejects overlap itself.
func (s *Server) runTravel(ctx context.Context, out chan []byte, tm protocol.TravelMsg) {
	oc, err := s.orch.AttemptTravel(ctx, tm.Destination, tm.Staged)
	if err != nil {
		s.send(out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrUnknownDestination, Message: err.Error()})
		return
	}
	msg := protocol.OutcomeMsg{
		Type:        protocol.TypeOutcome,
		ID:          tm.ID,
		Destination: tm.Destination,
		Outcome:     oc.Code,
		Code:        protocol.OutcomeErrCode(oc.Code),
		Detail:      oc.Detail,
		Remaining:   oc.Remaining,
	}
	if oc.Pos != nil {
		arr := oc.Pos.Array()
		msg.Pos = &arr
	}
	s.send(out, msg)
}

func (s *Server) handshake(conn *websocket.Conn) (chan []byte, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, false
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil, false
	}

	out := make(chan []byte, 16)
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		CurrencyID:      s.currencyID,
		Destinations:    s.refs(),
	}
	b, err := json.Marshal(welcome)
	if err != nil {
		return nil, false
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return nil, false
	}
	return out, true
}

func (s *Server) refs() []protocol.DestinationRef {
	dests := s.lister.List()
	refs := make([]protocol.DestinationRef, 0, len(dests))
	for _, d := range dests {
		ref := protocol.DestinationRef{
			Name:       d.Name,
			Price:      d.PriceOr(s.defPrice),
			Enabled:    d.Enabled,
			Visited:    d.Visited,
			Actionable: d.Actionable(),
			SceneID:    d.SceneID,
		}
		if d.Pos != nil {
			arr := d.Pos.Array()
			ref.Pos = &arr
		}
		refs = append(refs, ref)
	}
	return refs
}

func (s *Server) send(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
		if s.log != nil {
			s.log.Printf("ws: dropping message, slow client")
		}
	}
}
