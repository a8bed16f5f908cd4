package chatStore

import (
	"time"
)

type State int

const (
	Idle State = iota
	LoadingInitial
	Ready
	LoadingMore
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingInitial:
		return "loading-initial"
	case Ready:
		return "ready"
	case LoadingMore:
		return "loading-more"
	}
	return "unknown"
}

type File struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type Message struct {
	ID         string    `json:"id"`
	ChatRoomID string    `json:"chatRoomId"`
	Text       string    `json:"text"`
	SenderID   string    `json:"senderId"`
	Timestamp  time.Time `json:"timestamp"`
	Files      []File    `json:"files,omitempty"`
	IsActive   bool      `json:"is_active"`
}

// CursorOf returns the pagination cursor pointing at msg.
func CursorOf(msg Message) Cursor {
	return Cursor{Timestamp: msg.Timestamp, ID: msg.ID}
}
