package world

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"voxelverse.gg/internal/protocol"
)

var (
	ErrNotFound = errors.New("not found")
	ErrStopped  = errors.New("world stopped")
)

// Oracle is the optional external ownership authority. Answers are advisory:
// the world never blocks a local mutation on them.
type Oracle interface {
	IsOwnerOf(ctx context.Context, address string, parcelID int64) (bool, error)
	Mint(ctx context.Context, address string, parcelID int64, metadataRef string) (string, error)
}

// noopOracle is substituted when no authority is configured so the gateway
// never branches on "is the oracle present".
type noopOracle struct{}

func (noopOracle) IsOwnerOf(context.Context, string, int64) (bool, error) {
	return false, errors.New("ownership oracle not configured")
}

func (noopOracle) Mint(context.Context, string, int64, string) (string, error) {
	return "", errors.New("ownership oracle not configured")
}

// JoinRequest registers a new session. Out receives all subsequent events
// for the session as marshaled frames.
type JoinRequest struct {
	DisplayName string
	Wallet      string
	Out         chan []byte
	Resp        chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
	Init    protocol.InitMsg
}

// World is the single authoritative serializer: every mutation is processed
// to completion, in arrival order, on the Run goroutine. All state below
// must be accessed only from that goroutine.
type World struct {
	cfg    WorldConfig
	logger *log.Logger
	oracle Oracle

	parcels     map[int64]*Parcel
	parcelOrder []int64
	nextParcel  int64

	voxels map[VoxelKey]*VoxelBlock

	sessions map[string]*Session
	clients  map[string]*clientState

	nextSessionNum uint64

	inbox   chan Envelope
	join    chan JoinRequest
	leave   chan string
	control chan func()
	stop    chan struct{}

	// Optional audit sink (may be nil). Implemented in internal/persistence.
	auditLogger AuditLogger

	// Counters readable off-thread.
	sessionGauge atomic.Int64
	voxelGauge   atomic.Int64
	parcelGauge  atomic.Int64
	mutations    atomic.Uint64
	denials      atomic.Uint64
	dropped      atomic.Uint64
}

type clientState struct {
	Out chan []byte
}

func New(cfg WorldConfig, logger *log.Logger) *World {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &World{
		cfg:      cfg,
		logger:   logger,
		oracle:   noopOracle{},
		parcels:  map[int64]*Parcel{},
		voxels:   map[VoxelKey]*VoxelBlock{},
		sessions: map[string]*Session{},
		clients:  map[string]*clientState{},
		inbox:    make(chan Envelope, cfg.InboxSize),
		join:     make(chan JoinRequest, cfg.JoinSize),
		leave:    make(chan string, cfg.LeaveSize),
		control:  make(chan func(), cfg.ControlSize),
		stop:     make(chan struct{}),
	}
}

// SetOracle replaces the ownership authority. Call before Run.
func (w *World) SetOracle(o Oracle) {
	if o != nil {
		w.oracle = o
	}
}

// SetAuditLogger installs the audit sink. Call before Run.
func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }

func (w *World) Inbox() chan<- Envelope   { return w.inbox }
func (w *World) Join() chan<- JoinRequest { return w.join }
func (w *World) Leave() chan<- string     { return w.leave }

// Run drives the serializer until ctx is canceled or Stop is called.
func (w *World) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			w.handleJoin(req)
		case id := <-w.leave:
			w.handleLeave(id)
		case env := <-w.inbox:
			w.apply(env)
		case fn := <-w.control:
			fn()
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// do runs fn on the world goroutine and waits for it to complete. Used for
// read-only queries and synchronous request submission from transports.
func (w *World) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		fn()
		close(done)
	}
	select {
	case w.control <- wrapped:
	case <-w.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-w.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Parcels returns all parcels in creation order.
func (w *World) Parcels(ctx context.Context) ([]protocol.Parcel, error) {
	var out []protocol.Parcel
	err := w.do(ctx, func() {
		out = make([]protocol.Parcel, 0, len(w.parcelOrder))
		for _, id := range w.parcelOrder {
			out = append(out, w.parcels[id].wire())
		}
	})
	return out, err
}

// ParcelByID returns a single parcel or ErrNotFound.
func (w *World) ParcelByID(ctx context.Context, id int64) (protocol.Parcel, error) {
	var (
		out   protocol.Parcel
		found bool
	)
	err := w.do(ctx, func() {
		if p, ok := w.parcels[id]; ok {
			out = p.wire()
			found = true
		}
	})
	if err != nil {
		return protocol.Parcel{}, err
	}
	if !found {
		return protocol.Parcel{}, fmt.Errorf("parcel %d: %w", id, ErrNotFound)
	}
	return out, nil
}

// ParcelsByOwner matches the owner address case-insensitively.
func (w *World) ParcelsByOwner(ctx context.Context, address string) ([]protocol.Parcel, error) {
	var out []protocol.Parcel
	err := w.do(ctx, func() {
		out = w.parcelsByOwner(address)
	})
	return out, err
}

// CanBuildAt answers the pure permission question for an identity. The guest
// bypass applied by the build gateway is not part of this answer.
func (w *World) CanBuildAt(ctx context.Context, identity string, x, y, z int) (bool, error) {
	var ok bool
	err := w.do(ctx, func() {
		ok = w.canBuildAt(identity, x, y, z)
	})
	return ok, err
}

type WorldMetrics struct {
	Sessions  int64  `json:"sessions"`
	Parcels   int64  `json:"parcels"`
	Voxels    int64  `json:"voxels"`
	Mutations uint64 `json:"mutations"`
	Denials   uint64 `json:"denials"`
	Dropped   uint64 `json:"dropped_events"`
	InboxLen  int    `json:"inbox_len"`
}

// Metrics is safe to call from any goroutine.
func (w *World) Metrics() WorldMetrics {
	return WorldMetrics{
		Sessions:  w.sessionGauge.Load(),
		Parcels:   w.parcelGauge.Load(),
		Voxels:    w.voxelGauge.Load(),
		Mutations: w.mutations.Load(),
		Denials:   w.denials.Load(),
		Dropped:   w.dropped.Load(),
		InboxLen:  len(w.inbox),
	}
}

func (w *World) oracleCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(w.cfg.OracleTimeoutMs)*time.Millisecond)
}
