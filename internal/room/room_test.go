package room

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvEvent(t *testing.T, m *Member) Event {
	t.Helper()
	select {
	case payload := <-m.Events():
		var ev Event
		require.NoError(t, json.Unmarshal(payload, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func recvNothing(t *testing.T, m *Member) {
	t.Helper()
	select {
	case payload := <-m.Events():
		t.Fatalf("unexpected event: %s", payload)
	case <-time.After(100 * time.Millisecond):
	}
}

// drainJoin consumes the viewerCount event every joiner receives.
func drainJoin(t *testing.T, m *Member) {
	t.Helper()
	ev := recvEvent(t, m)
	require.Equal(t, EventViewerCount, ev.Type)
}

func TestBroadcastExcludesSender(t *testing.T) {
	hub := NewHub(16)
	a := hub.Join("m1", &Identity{UserID: "1", Username: "alice"})
	drainJoin(t, a)
	b := hub.Join("m1", &Identity{UserID: "2", Username: "bob"})
	require.Equal(t, EventUserJoined, recvEvent(t, a).Type)
	drainJoin(t, b)
	c := hub.Join("m1", &Identity{UserID: "3", Username: "carol"})
	require.Equal(t, EventUserJoined, recvEvent(t, a).Type)
	require.Equal(t, EventUserJoined, recvEvent(t, b).Type)
	drainJoin(t, c)

	a.Handle(Event{Type: EventPlay, CurrentTime: floatPtr(10), Duration: floatPtr(100)})

	for _, m := range []*Member{b, c} {
		ev := recvEvent(t, m)
		assert.Equal(t, EventPlay, ev.Type)
		require.NotNil(t, ev.FromUser)
		assert.Equal(t, "alice", ev.FromUser.Username)
		require.NotNil(t, ev.CurrentTime)
		assert.Equal(t, 10.0, *ev.CurrentTime)
	}
	recvNothing(t, a)
}

func TestLateJoinerGetsInitialState(t *testing.T) {
	hub := NewHub(16)
	a := hub.Join("m1", &Identity{UserID: "1", Username: "alice"})
	drainJoin(t, a)

	a.Handle(Event{Type: EventPlay, CurrentTime: floatPtr(5), Duration: floatPtr(120)})
	a.Handle(Event{Type: EventSeek, CurrentTime: floatPtr(42), Duration: floatPtr(120)})

	b := hub.Join("m1", &Identity{UserID: "2", Username: "bob"})
	require.Equal(t, EventUserJoined, recvEvent(t, a).Type)

	count := recvEvent(t, b)
	require.Equal(t, EventViewerCount, count.Type)
	require.NotNil(t, count.Count)
	assert.Equal(t, 2, *count.Count)

	state := recvEvent(t, b)
	require.Equal(t, EventInitialState, state.Type)
	assert.Equal(t, "playing", state.Status)
	require.NotNil(t, state.CurrentTime)
	assert.Equal(t, 42.0, *state.CurrentTime)
	require.NotNil(t, state.Duration)
	assert.Equal(t, 120.0, *state.Duration)
}

func TestJoinerSilentWithoutPriorState(t *testing.T) {
	hub := NewHub(16)
	a := hub.Join("m1", nil)
	drainJoin(t, a)
	b := hub.Join("m1", nil)
	require.Equal(t, EventUserJoined, recvEvent(t, a).Type)
	drainJoin(t, b)
	recvNothing(t, b)
}

func TestEmptyRoomDiscardsState(t *testing.T) {
	hub := NewHub(16)
	a := hub.Join("m1", &Identity{UserID: "1", Username: "alice"})
	drainJoin(t, a)
	a.Handle(Event{Type: EventPlay, CurrentTime: floatPtr(30)})
	a.Leave()

	require.Eventually(t, func() bool { return hub.RoomCount() == 0 },
		2*time.Second, 10*time.Millisecond)

	b := hub.Join("m1", &Identity{UserID: "2", Username: "bob"})
	drainJoin(t, b)
	recvNothing(t, b)
}

func TestLeaveBroadcastsUserLeft(t *testing.T) {
	hub := NewHub(16)
	a := hub.Join("m1", &Identity{UserID: "1", Username: "alice"})
	drainJoin(t, a)
	b := hub.Join("m1", &Identity{UserID: "2", Username: "bob"})
	require.Equal(t, EventUserJoined, recvEvent(t, a).Type)
	drainJoin(t, b)

	b.Leave()
	ev := recvEvent(t, a)
	require.Equal(t, EventUserLeft, ev.Type)
	assert.Equal(t, "bob", ev.Username)
	require.NotNil(t, ev.Count)
	assert.Equal(t, 1, *ev.Count)
}

func TestAnonymousMembersAreGuests(t *testing.T) {
	hub := NewHub(16)
	a := hub.Join("m1", &Identity{UserID: "1", Username: "alice"})
	drainJoin(t, a)
	b := hub.Join("m1", nil)
	joined := recvEvent(t, a)
	require.Equal(t, EventUserJoined, joined.Type)
	assert.Equal(t, "Guest", joined.Username)
	drainJoin(t, b)

	b.Handle(Event{Type: EventChat, Text: "hi"})
	chat := recvEvent(t, a)
	require.Equal(t, EventChat, chat.Type)
	assert.Equal(t, "hi", chat.Text)
	require.NotNil(t, chat.FromUser)
	assert.Equal(t, "Guest", chat.FromUser.Username)
}

func TestChatDoesNotCreatePlaybackState(t *testing.T) {
	hub := NewHub(16)
	a := hub.Join("m1", nil)
	drainJoin(t, a)
	a.Handle(Event{Type: EventChat, Text: "anyone here?"})

	b := hub.Join("m1", nil)
	require.Equal(t, EventUserJoined, recvEvent(t, a).Type)
	drainJoin(t, b)
	recvNothing(t, b)
}

func TestUnknownEventsAreDropped(t *testing.T) {
	hub := NewHub(16)
	a := hub.Join("m1", nil)
	drainJoin(t, a)
	b := hub.Join("m1", nil)
	require.Equal(t, EventUserJoined, recvEvent(t, a).Type)
	drainJoin(t, b)

	a.Handle(Event{Type: "selfdestruct"})
	recvNothing(t, b)
}

func TestSlowMemberIsDisconnected(t *testing.T) {
	hub := NewHub(1)
	a := hub.Join("m1", &Identity{UserID: "1", Username: "alice"})
	drainJoin(t, a)
	b := hub.Join("m1", &Identity{UserID: "2", Username: "bob"})
	require.Equal(t, EventUserJoined, recvEvent(t, a).Type)
	// b never drains its queue.

	for i := 0; i < 5; i++ {
		a.Handle(Event{Type: EventSeek, CurrentTime: floatPtr(float64(i))})
	}

	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("slow member was not disconnected")
	}

	// The room keeps serving the remaining member.
	c := hub.Join("m1", &Identity{UserID: "3", Username: "carol"})
	require.Equal(t, EventUserJoined, recvEvent(t, a).Type)
	drainJoin(t, c)
}
