package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubLoader struct {
	mu    sync.Mutex
	calls []string
	fail  bool
}

func (l *stubLoader) LoadSnapshot(ctx context.Context, groupID, collection string) (interface{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, groupID+"/"+collection)
	if l.fail {
		return nil, errors.New("store down")
	}
	return map[string]string{"collection": collection}, nil
}

func (l *stubLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

func drain(c *Client) []Message {
	var out []Message
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func subscriber(userID, groupID string) *Client {
	return NewClient(userID, groupID, nil, zap.NewNop())
}

func TestHubRegisterPrimesEveryCollection(t *testing.T) {
	loader := &stubLoader{}
	hub := NewHub(loader, zap.NewNop(), nil)
	client := subscriber("A", "g1")

	hub.Register(context.Background(), client)

	frames := drain(client)
	require.Len(t, frames, len(Collections))
	for i, collection := range Collections {
		assert.Equal(t, collection, frames[i].Collection)
		assert.NotNil(t, frames[i].Data)
		assert.False(t, frames[i].SentAt.IsZero())
	}
}

func TestHubNotifyReachesOnlyTheGroup(t *testing.T) {
	loader := &stubLoader{}
	hub := NewHub(loader, zap.NewNop(), nil)
	inGroup := subscriber("A", "g1")
	otherGroup := subscriber("B", "g2")
	hub.Register(context.Background(), inGroup)
	hub.Register(context.Background(), otherGroup)
	drain(inGroup)
	drain(otherGroup)

	hub.Notify("g1", "events")

	frames := drain(inGroup)
	require.Len(t, frames, 1)
	assert.Equal(t, "events", frames[0].Collection)
	assert.Empty(t, drain(otherGroup))
}

func TestHubNotifyLoadsSnapshotOncePerBroadcast(t *testing.T) {
	loader := &stubLoader{}
	hub := NewHub(loader, zap.NewNop(), nil)
	for i := 0; i < 3; i++ {
		c := subscriber(fmt.Sprintf("u%d", i), "g1")
		hub.Register(context.Background(), c)
		drain(c)
	}
	before := loader.callCount()

	hub.Notify("g1", "events")
	assert.Equal(t, before+1, loader.callCount(), "one read is fanned out to every subscriber")
}

func TestHubNotifyWithoutSubscribersSkipsLoad(t *testing.T) {
	loader := &stubLoader{}
	hub := NewHub(loader, zap.NewNop(), nil)

	hub.Notify("empty-group", "events")
	assert.Zero(t, loader.callCount())
}

func TestHubNotifySurvivesLoaderFailure(t *testing.T) {
	loader := &stubLoader{}
	hub := NewHub(loader, zap.NewNop(), nil)
	client := subscriber("A", "g1")
	hub.Register(context.Background(), client)
	drain(client)

	loader.fail = true
	hub.Notify("g1", "events")
	assert.Empty(t, drain(client), "no frame when the snapshot cannot be read")

	// The subscriber is still registered and healed by the next push.
	loader.fail = false
	hub.Notify("g1", "events")
	assert.Len(t, drain(client), 1)
}

// evictingLoader unregisters a client while the broadcast is loading
// its snapshot, landing exactly where a concurrent read-pump exit does.
type evictingLoader struct {
	stubLoader
	hub    *Hub
	victim *Client
}

func (l *evictingLoader) LoadSnapshot(ctx context.Context, groupID, collection string) (interface{}, error) {
	if l.victim != nil {
		l.hub.Unregister(l.victim)
	}
	return l.stubLoader.LoadSnapshot(ctx, groupID, collection)
}

func TestHubNotifySurvivesDisconnectDuringBroadcast(t *testing.T) {
	loader := &evictingLoader{}
	hub := NewHub(loader, zap.NewNop(), nil)
	leaving := subscriber("A", "g1")
	staying := subscriber("B", "g1")
	hub.Register(context.Background(), leaving)
	hub.Register(context.Background(), staying)
	drain(leaving)
	drain(staying)

	loader.hub = hub
	loader.victim = leaving

	// The leaving client is in the broadcast's subscriber snapshot but
	// disconnects before the enqueue. This must be a no-op, not a send
	// on a closed channel.
	require.NotPanics(t, func() { hub.Notify("g1", "events") })

	require.Len(t, drain(staying), 1)
	drain(leaving)
	_, open := <-leaving.send
	assert.False(t, open)

	// The departed client stays evicted on subsequent broadcasts.
	require.NotPanics(t, func() { hub.Notify("g1", "users") })
	require.Len(t, drain(staying), 1)
}

func TestHubDropsSubscriberWithFullQueue(t *testing.T) {
	loader := &stubLoader{}
	hub := NewHub(loader, zap.NewNop(), nil)
	stalled := subscriber("A", "g1")
	healthy := subscriber("B", "g1")
	hub.Register(context.Background(), stalled)
	hub.Register(context.Background(), healthy)
	drain(healthy)

	// Nobody drains the stalled client: fill its remaining queue space.
	for stalled.enqueue(Message{Collection: "events"}) {
	}

	hub.Notify("g1", "events")

	// The stalled client's queue was closed on eviction.
	frames := drain(stalled)
	_, open := <-stalled.send
	assert.False(t, open)
	assert.NotEmpty(t, frames)

	// The healthy one got the frame and keeps receiving.
	require.Len(t, drain(healthy), 1)
	hub.Notify("g1", "users")
	require.Len(t, drain(healthy), 1)
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	loader := &stubLoader{}
	metrics := &countingMetrics{}
	hub := NewHub(loader, zap.NewNop(), metrics)
	client := subscriber("A", "g1")
	hub.Register(context.Background(), client)

	hub.Unregister(client)
	hub.Unregister(client)
	assert.Equal(t, 1, metrics.disconnects)

	// Broadcasts no longer reach the departed subscriber.
	hub.Notify("g1", "events")
	assert.Zero(t, loader.callCount()-len(Collections))
}

func TestHubCloseTearsDownAllSubscribers(t *testing.T) {
	loader := &stubLoader{}
	hub := NewHub(loader, zap.NewNop(), nil)
	a := subscriber("A", "g1")
	b := subscriber("B", "g2")
	hub.Register(context.Background(), a)
	hub.Register(context.Background(), b)

	hub.Close()

	drain(a)
	_, open := <-a.send
	assert.False(t, open)
	drain(b)
	_, open = <-b.send
	assert.False(t, open)

	// Registration after close refuses the client.
	late := subscriber("C", "g1")
	hub.Register(context.Background(), late)
	_, open = <-late.send
	assert.False(t, open)
}

type countingMetrics struct {
	connects    int
	disconnects int
	broadcasts  int
}

func (m *countingMetrics) SubscriberConnected()    { m.connects++ }
func (m *countingMetrics) SubscriberDisconnected() { m.disconnects++ }
func (m *countingMetrics) ObserveBroadcast(string) { m.broadcasts++ }
