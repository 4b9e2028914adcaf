package editorlink

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/engine/internal/core/entities"
	"github.com/zeusync/engine/internal/core/events/bus"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/world"
)

func dial(t *testing.T, l *Link) *websocket.Conn {
	t.Helper()
	s := httptest.NewServer(l)
	t.Cleanup(s.Close)

	u := "ws" + strings.TrimPrefix(s.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return l.Clients() == 1 }, time.Second, time.Millisecond)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Notification {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var n Notification
	require.NoError(t, conn.ReadJSON(&n))
	return n
}

func TestLinkForwardsEntityEvents(t *testing.T) {
	b := bus.New()
	l, err := New(b, log.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close(context.Background()) })

	conn := dial(t, l)

	mapID, entityID := uuid.New(), uuid.New()
	ev := bus.EntityEvent{MapID: mapID, EntityID: entityID, Name: "crate"}
	require.NoError(t, b.Publish(bus.NewEvent(bus.EntityStateUpdated, "test", ev)))

	n := read(t, conn)
	assert.Equal(t, Notification{
		Entity: entityID.String(),
		Name:   "crate",
		Map:    mapID.String(),
		Reason: bus.EntityStateUpdated,
	}, n)

	// payloads that are not engine events are ignored
	require.NoError(t, b.Publish(bus.NewEvent(bus.EntityActivated, "test", "junk")))
	require.NoError(t, b.Publish(bus.NewEvent(bus.MapUnloaded, "test", bus.MapEvent{MapID: mapID, Name: "level"})))
	n = read(t, conn)
	assert.Equal(t, bus.MapUnloaded, n.Reason)
	assert.Equal(t, "level", n.Name)
	assert.Empty(t, n.Entity)
}

func TestLinkStreamsWorldActivity(t *testing.T) {
	b := bus.New()
	l, err := New(b, log.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close(context.Background()) })
	conn := dial(t, l)

	w := world.New(world.WithEventBus(b), world.WithLogger(log.NewNop()))
	require.NoError(t, w.Initialize())
	e := entities.NewEntity("stub")
	w.PersistentMap().AddEntity(e)

	require.Eventually(t, func() bool {
		ok, err := w.Update(0.016)
		return err == nil && ok
	}, time.Second, time.Millisecond)

	seen := map[string]Notification{}
	for seen[bus.MapLoaded].Reason == "" || seen[bus.EntityActivated].Reason == "" {
		n := read(t, conn)
		seen[n.Reason] = n
	}
	assert.Equal(t, e.ID().UUID().String(), seen[bus.EntityActivated].Entity)
	assert.Equal(t, w.PersistentMap().ID().String(), seen[bus.EntityActivated].Map)
}

func TestLinkStatsObserveBus(t *testing.T) {
	b := bus.New()
	l, err := New(b, log.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close(context.Background()) })
	conn := dial(t, l)

	require.NoError(t, b.Publish(bus.NewEvent(bus.MapLoaded, "test", bus.MapEvent{Name: "level"})))
	require.NoError(t, b.Publish(bus.NewEvent("gameplay.score", "test", 10)))
	assert.Equal(t, "level", read(t, conn).Name)

	st := l.Stats()
	assert.Equal(t, uint64(1), st.Published)
	assert.Equal(t, uint64(1), st.Forwarded)
	assert.Zero(t, st.DroppedSlow)
	assert.Equal(t, uint64(2), st.Bus.Published)
	assert.Equal(t, uint64(len(streamed)), st.Bus.SubscribersActive)
}

func TestLinkCloseDisconnectsEditors(t *testing.T) {
	b := bus.New()
	l, err := New(b, log.NewNop())
	require.NoError(t, err)
	conn := dial(t, l)

	require.NoError(t, l.Close(context.Background()))
	assert.Zero(t, l.Clients())
	for _, info := range b.GetEventTypes() {
		assert.Zero(t, info.Subs, info.Name)
	}
	require.NoError(t, b.Publish(bus.NewEvent(bus.MapLoaded, "test", bus.MapEvent{Name: "late"})))
	assert.Zero(t, l.Stats().Published)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	assert.ErrorIs(t, l.Start("127.0.0.1:0"), ErrLinkClosed)
}

func TestLinkStart(t *testing.T) {
	l, err := New(bus.New(), log.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close(context.Background()) })

	require.NoError(t, l.Start("127.0.0.1:0"))
	assert.ErrorIs(t, l.Start("127.0.0.1:0"), ErrLinkAlreadyRunning)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+l.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Eventually(t, func() bool { return l.Clients() == 1 }, time.Second, time.Millisecond)
}
