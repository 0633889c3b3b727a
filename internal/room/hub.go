package room

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mediahub/mediahub/internal/metrics"
)

// Identity is the authenticated user behind a connection, or nil for
// anonymous viewers.
type Identity struct {
	UserID   string
	Username string
}

// Hub owns the media identifier to Room map.
type Hub struct {
	mu         sync.Mutex
	rooms      map[string]*Room
	sendBuffer int
	memberN    int
}

// NewHub creates a Hub. sendBuffer bounds each member's outbound
// queue; members that fall further behind are disconnected.
func NewHub(sendBuffer int) *Hub {
	if sendBuffer < 1 {
		sendBuffer = 1
	}
	return &Hub{
		rooms:      make(map[string]*Room),
		sendBuffer: sendBuffer,
	}
}

// Join attaches a new member to the room for mediaID, creating the
// room if absent. The returned Member carries the outbound event
// queue; callers must eventually call Leave.
func (h *Hub) Join(mediaID string, identity *Identity) *Member {
	h.mu.Lock()
	r, ok := h.rooms[mediaID]
	if !ok {
		r = newRoom(h, mediaID)
		h.rooms[mediaID] = r
		metrics.SetRoomsActive(len(h.rooms))
	}
	r.pending.Add(1)
	h.mu.Unlock()

	m := &Member{
		id:       uuid.NewString(),
		identity: identity,
		room:     r,
		out:      make(chan []byte, h.sendBuffer),
		done:     make(chan struct{}),
	}
	r.enqueue(roomCmd{kind: cmdJoin, member: m})
	return m
}

// tryDestroy removes an empty room from the map. It fails when a join
// for the same room is already queued, in which case the room lives on.
func (h *Hub) tryDestroy(r *Room) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r.pending.Load() > 0 {
		return false
	}
	delete(h.rooms, r.mediaID)
	metrics.SetRoomsActive(len(h.rooms))
	return true
}

// RoomCount returns the number of active rooms.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

func (h *Hub) updateMemberGauge(delta int) {
	h.mu.Lock()
	h.memberN += delta
	metrics.SetRoomMembersActive(h.memberN)
	h.mu.Unlock()
}

// Member is one attached connection.
type Member struct {
	id       string
	identity *Identity
	room     *Room
	out      chan []byte
	done     chan struct{}
	closed   sync.Once
}

// Username returns the display name for broadcasts. Anonymous members
// are labeled Guest.
func (m *Member) Username() string {
	if m.identity == nil || m.identity.Username == "" {
		return "Guest"
	}
	return m.identity.Username
}

// Events returns the outbound queue of marshaled events.
func (m *Member) Events() <-chan []byte {
	return m.out
}

// Done is closed when the member has been detached from its room.
func (m *Member) Done() <-chan struct{} {
	return m.done
}

// Handle submits an inbound event from this member's connection.
func (m *Member) Handle(ev Event) {
	m.room.enqueue(roomCmd{kind: cmdEvent, member: m, event: ev})
}

// Leave detaches the member from its room.
func (m *Member) Leave() {
	m.room.enqueue(roomCmd{kind: cmdLeave, member: m})
}

// trySend queues a payload without blocking. Called only from the
// room goroutine.
func (m *Member) trySend(payload []byte) bool {
	select {
	case m.out <- payload:
		return true
	default:
		return false
	}
}

func (m *Member) close() {
	m.closed.Do(func() { close(m.done) })
}
