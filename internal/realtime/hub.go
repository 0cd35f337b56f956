// Package realtime pushes full collection snapshots to websocket
// subscribers. There is no diffing: every committed mutation re-reads
// the affected collection and replaces the subscriber's copy wholesale,
// so a client that misses a frame is healed by the next one.
package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message is one snapshot frame pushed to a subscriber.
type Message struct {
	Collection string      `json:"collection"`
	Data       interface{} `json:"data"`
	SentAt     time.Time   `json:"sent_at"`
}

// SnapshotLoader produces the current authoritative state of one
// collection for a group.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, groupID, collection string) (interface{}, error)
}

type hubMetrics interface {
	SubscriberConnected()
	SubscriberDisconnected()
	ObserveBroadcast(collection string)
}

// Hub fans snapshot frames out to the subscribers of each group. It
// satisfies the service layer's Notifier interface.
type Hub struct {
	loader  SnapshotLoader
	logger  *zap.Logger
	metrics hubMetrics

	mu      sync.RWMutex
	groups  map[string]map[*Client]struct{}
	closed  bool
	timeout time.Duration
}

// NewHub constructs a hub. metrics may be nil.
func NewHub(loader SnapshotLoader, logger *zap.Logger, metrics hubMetrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		loader:  loader,
		logger:  logger,
		metrics: metrics,
		groups:  make(map[string]map[*Client]struct{}),
		timeout: 5 * time.Second,
	}
}

// Register adds a subscriber and primes it with a snapshot of every
// collection so a fresh client renders without waiting for the first
// mutation.
func (h *Hub) Register(ctx context.Context, client *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.close()
		return
	}
	if h.groups[client.groupID] == nil {
		h.groups[client.groupID] = make(map[*Client]struct{})
	}
	h.groups[client.groupID][client] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.SubscriberConnected()
	}
	h.logger.Info("realtime subscriber connected",
		zap.String("user_id", client.userID),
		zap.String("group_id", client.groupID))

	for _, collection := range Collections {
		h.push(ctx, client, collection)
	}
}

// Unregister removes a subscriber and closes its send queue.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	clients, ok := h.groups[client.groupID]
	if ok {
		if _, member := clients[client]; !member {
			ok = false
		}
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.groups, client.groupID)
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	client.close()
	if h.metrics != nil {
		h.metrics.SubscriberDisconnected()
	}
	h.logger.Info("realtime subscriber disconnected",
		zap.String("user_id", client.userID),
		zap.String("group_id", client.groupID))
}

// Notify re-reads the collection and pushes the fresh snapshot to all
// of the group's subscribers. Called by services after every committed
// mutation; it never blocks the mutation on a slow subscriber.
func (h *Hub) Notify(groupID string, collection string) {
	h.mu.RLock()
	subscribers := make([]*Client, 0, len(h.groups[groupID]))
	for client := range h.groups[groupID] {
		subscribers = append(subscribers, client)
	}
	h.mu.RUnlock()

	if len(subscribers) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	data, err := h.loader.LoadSnapshot(ctx, groupID, collection)
	if err != nil {
		h.logger.Warn("failed to load snapshot for broadcast",
			zap.String("group_id", groupID),
			zap.String("collection", collection),
			zap.Error(err))
		return
	}

	msg := Message{Collection: collection, Data: data, SentAt: time.Now().UTC()}
	for _, client := range subscribers {
		if !client.enqueue(msg) {
			// A full queue means the client stopped draining; drop it
			// rather than stall every other subscriber.
			h.logger.Warn("dropping slow realtime subscriber", zap.String("user_id", client.userID))
			h.Unregister(client)
		}
	}
	if h.metrics != nil {
		h.metrics.ObserveBroadcast(collection)
	}
}

// Close tears down every subscriber, e.g. on server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	var all []*Client
	for _, clients := range h.groups {
		for client := range clients {
			all = append(all, client)
		}
	}
	h.groups = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, client := range all {
		client.close()
		if h.metrics != nil {
			h.metrics.SubscriberDisconnected()
		}
	}
}

// push loads and sends one collection to a single client.
func (h *Hub) push(ctx context.Context, client *Client, collection string) {
	data, err := h.loader.LoadSnapshot(ctx, client.groupID, collection)
	if err != nil {
		h.logger.Warn("failed to prime subscriber",
			zap.String("collection", collection),
			zap.Error(err))
		return
	}
	client.enqueue(Message{Collection: collection, Data: data, SentAt: time.Now().UTC()})
}
