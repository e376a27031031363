// Package live streams leaderboard updates to websocket subscribers.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/battle64/internal/domain/types"
	"github.com/okian/battle64/pkg/logger"
	"github.com/okian/battle64/pkg/metrics"
)

// Snapshotter provides the current leaderboard sent to a new subscriber.
type Snapshotter interface {
	CurrentUpdate(ctx context.Context, eventID string) (types.Update, error)
}

// SnapshotFunc adapts a function to Snapshotter.
type SnapshotFunc func(ctx context.Context, eventID string) (types.Update, error)

// CurrentUpdate calls f.
func (f SnapshotFunc) CurrentUpdate(ctx context.Context, eventID string) (types.Update, error) {
	return f(ctx, eventID)
}

// Config holds websocket connection settings.
type Config struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	SendBuffer      int
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConfig returns default websocket settings.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		SendBuffer:      16,
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}

// Hub tracks subscribers per event and fans updates out to them.
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader
	snapshot Snapshotter
	logger   logger.Logger

	mu     sync.RWMutex
	events map[string]map[*subscriber]struct{}
	count  int
}

type subscriber struct {
	id      string
	eventID string
	conn    *websocket.Conn
	send    chan []byte
	hub     *Hub
}

// NewHub creates a hub. snapshot may be nil, in which case subscribers wait
// for the next refresh.
func NewHub(cfg Config, snapshot Snapshotter, l logger.Logger) *Hub {
	if l == nil {
		l = logger.Nop()
	}
	// The snapshot frame is queued before the write pump starts.
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = 1
	}
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     cfg.CheckOrigin,
		},
		snapshot: snapshot,
		logger:   l,
		events:   make(map[string]map[*subscriber]struct{}),
	}
}

// Name implements the service broadcaster contract.
func (h *Hub) Name() string { return "websocket" }

// Register attaches the live route to mux.
func (h *Hub) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /events/{eventID}/live", h.HandleLive)
}

// HandleLive upgrades GET /events/{eventID}/live and streams updates.
func (h *Hub) HandleLive(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	sub := &subscriber{
		id:      uuid.NewString(),
		eventID: eventID,
		conn:    conn,
		send:    make(chan []byte, h.cfg.SendBuffer),
		hub:     h,
	}

	// Queue the current state before registering so it is the first frame.
	if h.snapshot != nil {
		if update, err := h.snapshot.CurrentUpdate(r.Context(), eventID); err == nil {
			if data, err := json.Marshal(update); err == nil {
				select {
				case sub.send <- data:
				default:
				}
			}
		}
	}
	h.register(sub)

	go sub.writePump()
	go sub.readPump()

	h.logger.Debug(r.Context(), "subscriber connected",
		logger.String("subscriberID", sub.id),
		logger.String("eventID", eventID),
	)
}

// Broadcast sends update to every subscriber of its event. Subscribers
// that cannot keep up are dropped.
func (h *Hub) Broadcast(ctx context.Context, update types.Update) error { //nolint:gocritic // hugeParam: matches the broadcaster contract
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	// Sends happen under the read lock so unregister cannot close a channel
	// mid-send. They never block.
	var slow []*subscriber
	h.mu.RLock()
	for s := range h.events[update.EventID] {
		select {
		case s.send <- data:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()
	for _, s := range slow {
		h.logger.Warn(ctx, "subscriber too slow, disconnecting", logger.String("subscriberID", s.id))
		h.unregister(s)
	}
	if len(slow) > 0 {
		return fmt.Errorf("%w: %d subscriber(s)", ErrSlowSubscriber, len(slow))
	}
	return nil
}

// ErrSlowSubscriber reports subscribers dropped during a broadcast.
var ErrSlowSubscriber = errors.New("dropped slow subscriber")

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*subscriber
	for _, subs := range h.events {
		for s := range subs {
			all = append(all, s)
		}
	}
	h.mu.RUnlock()
	for _, s := range all {
		h.unregister(s)
	}
}

func (h *Hub) register(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.events[s.eventID] == nil {
		h.events[s.eventID] = make(map[*subscriber]struct{})
	}
	h.events[s.eventID][s] = struct{}{}
	h.count++
	metrics.UpdateLiveSubscribers(h.count)
}

// unregister removes s and closes its send channel exactly once.
func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.events[s.eventID]
	if !ok {
		return
	}
	if _, ok := subs[s]; !ok {
		return
	}
	delete(subs, s)
	if len(subs) == 0 {
		delete(h.events, s.eventID)
	}
	close(s.send)
	h.count--
	metrics.UpdateLiveSubscribers(h.count)
}

func (s *subscriber) writePump() {
	cfg := s.hub.cfg
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
		s.hub.unregister(s)
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and detects disconnects.
func (s *subscriber) readPump() {
	cfg := s.hub.cfg
	defer func() {
		s.hub.unregister(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(cfg.MaxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Debug(context.Background(), "subscriber closed unexpectedly",
					logger.String("subscriberID", s.id), logger.Error(err))
			}
			return
		}
	}
}
