package room

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mediahub/mediahub/internal/logging"
	"github.com/mediahub/mediahub/internal/metrics"
)

type cmdKind int

const (
	cmdJoin cmdKind = iota
	cmdLeave
	cmdEvent
)

type roomCmd struct {
	kind   cmdKind
	member *Member
	event  Event
}

// Room holds the members and playback state for one media identifier.
// Everything below cmds is owned by the run goroutine.
type Room struct {
	mediaID string
	hub     *Hub
	cmds    chan roomCmd

	// Joins enqueued under the hub lock but not yet processed.
	// Guards against tearing down a room a new member is entering.
	pending atomic.Int64

	members map[*Member]bool
	state   *playbackState
}

func newRoom(hub *Hub, mediaID string) *Room {
	r := &Room{
		mediaID: mediaID,
		hub:     hub,
		cmds:    make(chan roomCmd, 64),
		members: make(map[*Member]bool),
	}
	go r.run()
	return r
}

func (r *Room) enqueue(cmd roomCmd) {
	r.cmds <- cmd
}

// run processes all commands for this room until the room is destroyed.
func (r *Room) run() {
	for cmd := range r.cmds {
		switch cmd.kind {
		case cmdJoin:
			r.pending.Add(-1)
			r.handleJoin(cmd.member)
		case cmdLeave:
			if r.handleLeave(cmd.member) {
				return
			}
		case cmdEvent:
			r.handleEvent(cmd.member, cmd.event)
		}
	}
}

func (r *Room) handleJoin(m *Member) {
	r.members[m] = true
	count := len(r.members)
	metrics.RecordRoomEvent("join")
	r.hub.updateMemberGauge(1)
	logging.Info("member joined room",
		zap.String("media_id", r.mediaID),
		zap.String("username", m.Username()),
		zap.Int("members", count))

	r.broadcast(m, Event{
		Type:     EventUserJoined,
		Username: m.Username(),
		Count:    intPtr(count),
	})
	r.deliver(m, Event{Type: EventViewerCount, Count: intPtr(count)})

	// Late joiners catch up from the last known position. A room that
	// has seen no playback events yet stays silent.
	if r.state != nil {
		r.deliver(m, Event{
			Type:        EventInitialState,
			Status:      r.state.Status,
			CurrentTime: floatPtr(r.state.CurrentTime),
			Duration:    floatPtr(r.state.Duration),
		})
	}
}

// handleLeave removes a member and reports whether the room died.
func (r *Room) handleLeave(m *Member) bool {
	if !r.members[m] {
		// Already dropped for falling behind; the read pump's leave
		// only matters if it left the room empty.
		if len(r.members) == 0 && r.hub.tryDestroy(r) {
			r.state = nil
			return true
		}
		return false
	}
	r.removeMember(m)
	metrics.RecordRoomEvent("leave")

	if len(r.members) == 0 && r.hub.tryDestroy(r) {
		r.state = nil
		logging.Info("room destroyed", zap.String("media_id", r.mediaID))
		return true
	}

	if len(r.members) > 0 {
		r.broadcast(nil, Event{
			Type:     EventUserLeft,
			Username: m.Username(),
			Count:    intPtr(len(r.members)),
		})
	}
	return false
}

func (r *Room) handleEvent(m *Member, ev Event) {
	if !r.members[m] {
		return
	}
	now := time.Now()
	switch ev.Type {
	case EventPlay, EventPause:
		if r.state == nil {
			r.state = &playbackState{}
		}
		if ev.Type == EventPlay {
			r.state.Status = "playing"
		} else {
			r.state.Status = "paused"
		}
		if ev.CurrentTime != nil {
			r.state.CurrentTime = *ev.CurrentTime
		}
		if ev.Duration != nil {
			r.state.Duration = *ev.Duration
		}
		r.state.LastEventAt = now
	case EventSeek:
		if r.state == nil {
			r.state = &playbackState{Status: "paused"}
		}
		if ev.CurrentTime != nil {
			r.state.CurrentTime = *ev.CurrentTime
		}
		if ev.Duration != nil {
			r.state.Duration = *ev.Duration
		}
		r.state.LastEventAt = now
	case EventChat:
		// Relayed, never persisted.
	default:
		logging.Debug("dropping unknown room event",
			zap.String("media_id", r.mediaID),
			zap.String("type", ev.Type))
		return
	}

	metrics.RecordRoomEvent(ev.Type)
	ev.FromUser = &UserInfo{ID: m.id, Username: m.Username()}
	r.broadcast(m, ev)
}

// broadcast sends an event to every member except the sender. A member
// whose queue is full is dropped from the room on the spot.
func (r *Room) broadcast(except *Member, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	for m := range r.members {
		if m == except {
			continue
		}
		if !m.trySend(payload) {
			logging.Warn("dropping slow room member",
				zap.String("media_id", r.mediaID),
				zap.String("username", m.Username()))
			r.removeMember(m)
		}
	}
}

func (r *Room) deliver(m *Member, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if !m.trySend(payload) {
		r.removeMember(m)
	}
}

func (r *Room) removeMember(m *Member) {
	delete(r.members, m)
	m.close()
	r.hub.updateMemberGauge(-1)
}
