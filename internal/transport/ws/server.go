package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"voxelverse.gg/internal/protocol"
	"voxelverse.gg/internal/sim/world"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	readTimeout      = 120 * time.Second
	outQueueSize     = 256
)

type Server struct {
	world  *world.World
	logger *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world:  w,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
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

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine: drains the session's event queue.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop: every frame becomes one serialized world request.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			env, ok := s.decode(sessionID, msg)
			if !ok {
				continue
			}
			s.world.Inbox() <- env
		}

		// Departure broadcast + registry removal happen on the world loop.
		s.world.Leave() <- sessionID
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"),
			time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"),
			time.Now().Add(time.Second))
		return "", nil
	}

	out = make(chan []byte, outQueueSize)
	respCh := make(chan world.JoinResponse, 1)
	s.world.Join() <- world.JoinRequest{
		DisplayName: hello.DisplayName,
		Wallet:      hello.Wallet,
		Out:         out,
		Resp:        respCh,
	}
	resp := <-respCh

	// WELCOME then the full snapshot, before the writer goroutine starts,
	// so no later event can overtake the snapshot.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.Leave() <- resp.Welcome.SessionID
		return "", nil
	}
	if err := writeJSON(conn, resp.Init); err != nil {
		s.world.Leave() <- resp.Welcome.SessionID
		return "", nil
	}

	return resp.Welcome.SessionID, out
}

func (s *Server) decode(sessionID string, msg []byte) (world.Envelope, bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return world.Envelope{}, false
	}
	env := world.Envelope{SessionID: sessionID}
	switch base.Type {
	case protocol.TypeMove:
		var m protocol.MoveMsg
		if json.Unmarshal(msg, &m) != nil {
			return env, false
		}
		env.Move = &world.MoveReq{Position: m.Position, Rotation: m.Rotation}
	case protocol.TypeBuild:
		var m protocol.BuildMsg
		if json.Unmarshal(msg, &m) != nil {
			return env, false
		}
		env.Build = &world.BuildReq{Pos: m.Pos, Color: m.Color}
	case protocol.TypeRemove:
		var m protocol.RemoveMsg
		if json.Unmarshal(msg, &m) != nil {
			return env, false
		}
		env.Remove = &world.RemoveReq{Pos: m.Pos}
	case protocol.TypePurchase:
		var m protocol.PurchaseMsg
		if json.Unmarshal(msg, &m) != nil {
			return env, false
		}
		env.Purchase = &world.PurchaseReq{ParcelID: m.ParcelID, BuyerAddress: m.BuyerAddress}
	case protocol.TypeList:
		var m protocol.ListingMsg
		if json.Unmarshal(msg, &m) != nil {
			return env, false
		}
		env.Listing = &world.ListingReq{ParcelID: m.ParcelID, Price: m.Price, ForSale: true}
	case protocol.TypeCancel:
		var m protocol.ListingMsg
		if json.Unmarshal(msg, &m) != nil {
			return env, false
		}
		env.Listing = &world.ListingReq{ParcelID: m.ParcelID, ForSale: false}
	default:
		return env, false
	}
	return env, true
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
