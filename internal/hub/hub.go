// Package hub owns the live poll room: one goroutine applies every join,
// answer, timer firing and disconnect in arrival order.
package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"pollroom/internal/chat"
	"pollroom/internal/gateway"
	"pollroom/internal/moderation"
	"pollroom/internal/poll"
	"pollroom/internal/registry"
	"pollroom/pkg/interfaces"
	"pollroom/pkg/types"
)

const (
	defaultQueueSize      = 1024
	defaultArchiveTimeout = 5 * time.Second
)

// Config wires a Hub. Archive may be nil, which disables archiving.
type Config struct {
	Poll           poll.Config
	Chat           chat.Config
	Bans           *moderation.BanList
	Archive        interfaces.PollArchive
	ArchiveTimeout time.Duration
	QueueSize      int
	Logger         *slog.Logger
}

// Hub coordinates one poll room.
type Hub struct {
	events          chan event
	shutdownChannel chan struct{}
	done            chan struct{}

	// owned by the run goroutine
	registry *registry.Registry
	session  *poll.Session
	relay    *chat.Relay
	conns    map[string]interfaces.Connection
	order    []string

	bans           *moderation.BanList
	archive        interfaces.PollArchive
	archiveTimeout time.Duration
	archiveWG      sync.WaitGroup
	logger         *slog.Logger

	running bool
	mu      sync.RWMutex
}

// Snapshot is a consistent read of the room taken on the hub goroutine.
type Snapshot struct {
	State        string
	Poll         *types.PollView
	Tally        *types.Tally
	Participants []string
	Connections  int
}

func New(cfg Config) *Hub {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = defaultArchiveTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	h := &Hub{
		events:          make(chan event, cfg.QueueSize),
		shutdownChannel: make(chan struct{}),
		done:            make(chan struct{}),
		registry:        registry.New(cfg.Bans),
		relay:           chat.NewRelay(cfg.Chat),
		conns:           make(map[string]interfaces.Connection),
		bans:            cfg.Bans,
		archive:         cfg.Archive,
		archiveTimeout:  cfg.ArchiveTimeout,
		logger:          cfg.Logger.With("component", "hub"),
	}

	pollCfg := cfg.Poll
	pollCfg.Bans = cfg.Bans
	pollCfg.OnExpire = h.expire
	h.session = poll.NewSession(pollCfg)
	return h
}

// Start launches the hub goroutine.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return ErrHubAlreadyRunning
	}
	select {
	case <-h.done:
		return ErrHubNotRunning
	default:
	}
	h.running = true

	h.logger.Info("starting hub")
	go h.run(ctx)
	return nil
}

// Stop ends the hub goroutine, closes every attached connection and waits
// for pending archive writes.
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return ErrHubNotRunning
	}
	h.running = false
	close(h.shutdownChannel)
	h.mu.Unlock()

	h.logger.Info("stopping hub")
	<-h.done
	h.archiveWG.Wait()
	return nil
}

// Attach registers a new transport connection. It blocks until the hub has
// queued the event.
func (h *Hub) Attach(conn interfaces.Connection) error {
	if conn == nil {
		return ErrNilConnection
	}
	return h.enqueue(attachEvent{conn: conn})
}

// Detach reports a closed transport connection.
func (h *Hub) Detach(connID string) error {
	return h.enqueue(detachEvent{connID: connID})
}

// Deliver queues one inbound message from connID.
func (h *Hub) Deliver(connID string, env types.Envelope) error {
	return h.enqueue(inboundEvent{connID: connID, envelope: env})
}

// Snapshot reads the current room state through the event queue.
func (h *Hub) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	q := queryEvent{
		done: make(chan struct{}),
		fn: func(h *Hub) {
			roster := h.registry.Roster()
			snap.State = h.session.State().String()
			snap.Participants = roster
			snap.Connections = len(h.conns)
			if view, ok := h.session.CurrentView(""); ok {
				snap.Poll = view
				tally, _ := h.session.LiveTally(roster)
				snap.Tally = &tally
			}
		},
	}

	if err := h.enqueueContext(ctx, q); err != nil {
		return Snapshot{}, err
	}
	select {
	case <-q.done:
		return snap, nil
	case <-h.done:
		return Snapshot{}, ErrHubNotRunning
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// expire runs on the timer goroutine.
func (h *Hub) expire(pollID string) {
	if err := h.enqueue(expiryEvent{pollID: pollID}); err != nil {
		h.logger.Debug("dropping poll expiry", "poll_id", pollID, "error", err)
	}
}

func (h *Hub) enqueue(ev event) error {
	return h.enqueueContext(context.Background(), ev)
}

func (h *Hub) enqueueContext(ctx context.Context, ev event) error {
	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if !running {
		return ErrHubNotRunning
	}

	select {
	case h.events <- ev:
		return nil
	case <-h.shutdownChannel:
		return ErrHubNotRunning
	case <-h.done:
		return ErrHubNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)
	defer h.closeAll()

	for {
		select {
		case ev := <-h.events:
			ev.apply(h)

		case <-h.shutdownChannel:
			h.logger.Info("hub shutdown requested")
			return

		case <-ctx.Done():
			h.logger.Info("hub context cancelled")
			h.mu.Lock()
			h.running = false
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) closeAll() {
	for _, id := range h.order {
		if err := h.conns[id].Close(); err != nil {
			h.logger.Debug("closing connection", "conn_id", id, "error", err)
		}
	}
}

// dispatch delivers in order. A connection that cannot take a message is
// closed; its reader then detaches it.
func (h *Hub) dispatch(ds []gateway.Dispatch) {
	for _, d := range ds {
		switch d.Target {
		case gateway.TargetOne:
			if conn, ok := h.conns[d.ConnID]; ok {
				h.send(conn, d.Message)
			}
		case gateway.TargetAll, gateway.TargetAllExcept:
			for _, id := range h.order {
				if d.Target == gateway.TargetAllExcept && id == d.ConnID {
					continue
				}
				h.send(h.conns[id], d.Message)
			}
		}
	}
}

func (h *Hub) send(conn interfaces.Connection, msg types.Outbound) {
	err := conn.Send(msg)
	switch {
	case err == nil:
		return
	case errors.Is(err, interfaces.ErrConnectionClosed):
		// Already closed; its detach is on the way.
		h.logger.Debug("skipping closed connection", "conn_id", conn.ID(), "event", msg.Type)
		return
	case errors.Is(err, interfaces.ErrSendBufferFull):
		h.logger.Warn("dropping slow connection", "conn_id", conn.ID(), "event", msg.Type)
	default:
		h.logger.Warn("send failed, closing connection", "conn_id", conn.ID(), "event", msg.Type, "error", err)
	}
	if cerr := conn.Close(); cerr != nil {
		h.logger.Debug("closing connection", "conn_id", conn.ID(), "error", cerr)
	}
}

// finish broadcasts a closed poll and hands it to the archive.
func (h *Hub) finish(final *poll.FinalResults) {
	h.logger.Info("poll closed",
		"poll_id", final.Poll.ID,
		"reason", final.Reason,
		"responses", final.Tally.TotalResponses,
		"students", final.Tally.TotalStudents)
	h.dispatch(gateway.PollEnded(final))

	if h.archive == nil {
		return
	}
	var banned []string
	if h.bans.Enforced() {
		banned = h.bans.Names()
	}
	record := final.Record(banned)

	h.archiveWG.Add(1)
	go func() {
		defer h.archiveWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), h.archiveTimeout)
		defer cancel()
		if err := h.archive.ArchivePoll(ctx, record); err != nil {
			h.logger.Error("archiving poll failed", "poll_id", record.ID, "error", err)
		}
	}()
}
