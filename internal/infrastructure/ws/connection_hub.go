// Package ws provides the gorilla/websocket-backed implementation of the chat orchestrator's
// multi-device broadcast port, generalized from the teacher's dev-only
// internal/infrastructure/hotreload live-reload broadcaster (client map + mutex-guarded fan-out)
// into a production per-thread hub.
package ws

import (
	"sync"

	"github.com/alchemorsel/nutricore/internal/domain/chat"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Sink wraps one live websocket connection as an outbound.ChatSink. Writes are serialized with
// their own mutex since a *websocket.Conn supports at most one concurrent writer.
type Sink struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewSink wraps an upgraded websocket connection as a ChatSink.
func NewSink(conn *websocket.Conn) *Sink {
	return &Sink{conn: conn}
}

// Send implements outbound.ChatSink.
func (s *Sink) Send(message chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(message)
}

// Close closes the underlying connection.
func (s *Sink) Close() error {
	return s.conn.Close()
}

type threadKey struct {
	userID   uuid.UUID
	threadID uuid.UUID
}

// ConnectionHub implements outbound.ChatConnectionHub: per-(user, thread) sink registries with
// per-thread serialized delivery, matching §4.6's ordering guarantee for the multi-device
// broadcast port.
type ConnectionHub struct {
	mu    sync.RWMutex
	sinks map[threadKey]map[outbound.ChatSink]struct{}
	locks map[threadKey]*sync.Mutex

	logger *zap.Logger
}

// NewConnectionHub creates an empty connection hub.
func NewConnectionHub(logger *zap.Logger) outbound.ChatConnectionHub {
	return &ConnectionHub{
		sinks:  make(map[threadKey]map[outbound.ChatSink]struct{}),
		locks:  make(map[threadKey]*sync.Mutex),
		logger: logger.Named("chat-connection-hub"),
	}
}

// Register implements outbound.ChatConnectionHub.
func (h *ConnectionHub) Register(userID, threadID uuid.UUID, sink outbound.ChatSink) {
	key := threadKey{userID: userID, threadID: threadID}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sinks[key] == nil {
		h.sinks[key] = make(map[outbound.ChatSink]struct{})
	}
	h.sinks[key][sink] = struct{}{}
}

// Unregister implements outbound.ChatConnectionHub.
func (h *ConnectionHub) Unregister(userID, threadID uuid.UUID, sink outbound.ChatSink) {
	key := threadKey{userID: userID, threadID: threadID}
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.sinks[key]; ok {
		delete(set, sink)
		if len(set) == 0 {
			delete(h.sinks, key)
			delete(h.locks, key)
		}
	}
}

// Broadcast implements outbound.ChatConnectionHub: delivery to every sink on the thread other
// than except is serialized per-thread so two broadcasts in flight for the same thread never
// interleave at a single sink.
func (h *ConnectionHub) Broadcast(userID, threadID uuid.UUID, message chat.Message, except outbound.ChatSink) {
	key := threadKey{userID: userID, threadID: threadID}
	lock := h.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	h.mu.RLock()
	sinks := make([]outbound.ChatSink, 0, len(h.sinks[key]))
	for sink := range h.sinks[key] {
		if sink == except {
			continue
		}
		sinks = append(sinks, sink)
	}
	h.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Send(message); err != nil {
			h.logger.Warn("failed to deliver chat message to sink", zap.Error(err))
		}
	}
}

func (h *ConnectionHub) lockFor(key threadKey) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.locks[key] == nil {
		h.locks[key] = &sync.Mutex{}
	}
	return h.locks[key]
}
