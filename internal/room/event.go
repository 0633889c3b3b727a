// Package room coordinates synchronized watch-together playback sessions.
//
// One Room exists per media identifier while at least one connection is
// attached. All mutation of a room's state happens on its own goroutine,
// so state updates and their broadcasts are serialized per room.
package room

import "time"

// Event types exchanged over the synchronization channel.
const (
	EventPlay         = "play"
	EventPause        = "pause"
	EventSeek         = "seek"
	EventChat         = "chat"
	EventInitialState = "initialState"
	EventViewerCount  = "viewerCount"
	EventUserJoined   = "userJoined"
	EventUserLeft     = "userLeft"
)

// UserInfo identifies the sender of a relayed event.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Event is the wire message for the watch-together channel. Fields are
// populated per type; absent fields are omitted.
type Event struct {
	Type        string    `json:"type"`
	Status      string    `json:"status,omitempty"`
	CurrentTime *float64  `json:"currentTime,omitempty"`
	Duration    *float64  `json:"duration,omitempty"`
	Text        string    `json:"text,omitempty"`
	Username    string    `json:"username,omitempty"`
	Count       *int      `json:"count,omitempty"`
	FromUser    *UserInfo `json:"fromUser,omitempty"`
}

// playbackState is the last known playback position for a room, kept
// only while the room has members.
type playbackState struct {
	Status      string
	CurrentTime float64
	Duration    float64
	LastEventAt time.Time
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
