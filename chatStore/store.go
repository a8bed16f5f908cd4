package chatStore

import (
	"sort"
	"time"
)

const DefaultPageSize = 50

// Store holds the loaded window of one chat room, ascending by timestamp
// with unique ids. It is not safe for concurrent use; callers serialize
// access.
type Store struct {
	roomID    string
	state     State
	messages  []Message
	ids       map[string]struct{}
	cursor    Cursor
	watermark time.Time
	hasMore   bool
}

func New(roomID string) *Store {
	s := &Store{}
	s.Reset(roomID)
	if roomID == "" {
		s.state = Idle
	}
	return s
}

// Reset switches the store to roomID, dropping every loaded message, the
// backward cursor and the newest-seen watermark.
func (s *Store) Reset(roomID string) {
	s.roomID = roomID
	s.state = LoadingInitial
	s.messages = nil
	s.ids = make(map[string]struct{})
	s.cursor = Cursor{}
	s.watermark = time.Time{}
	s.hasMore = true
}

// SetInitial loads the first page. page is newest first, as returned by a
// descending query.
func (s *Store) SetInitial(page []Message, pageSize int) {
	s.messages = nil
	s.ids = make(map[string]struct{}, len(page))
	s.watermark = time.Time{}
	s.merge(page)

	if len(page) > 0 {
		s.cursor = CursorOf(page[len(page)-1])
	} else {
		s.cursor = Cursor{}
	}
	s.hasMore = len(page) >= pageSize && len(page) > 0
	s.state = Ready
}

// BeginLoadMore moves the store to LoadingMore and reports whether a load
// may start.
func (s *Store) BeginLoadMore() bool {
	if s.state != Ready || !s.hasMore || s.cursor.IsZero() {
		return false
	}

	s.state = LoadingMore
	return true
}

// Prepend adds an older page, newest first, in front of the window. It
// returns the messages that were not loaded yet, oldest first.
func (s *Store) Prepend(page []Message, pageSize int) []Message {
	added := s.merge(page)

	if len(page) > 0 {
		s.cursor = CursorOf(page[len(page)-1])
	}
	s.hasMore = len(page) >= pageSize && len(page) > 0
	s.state = Ready
	return added
}

// Seek moves the backward cursor to c, so the next older page starts after
// it. It is refused while a load is running.
func (s *Store) Seek(c Cursor) bool {
	if s.state != Ready || c.IsZero() {
		return false
	}

	s.cursor = c
	s.hasMore = true
	return true
}

// Append adds a live message. It reports false when the id is already
// loaded.
func (s *Store) Append(msg Message) bool {
	if _, ok := s.ids[msg.ID]; ok {
		return false
	}

	s.insert(msg)
	return true
}

// Update replaces a loaded message in place. Messages outside the window
// are ignored.
func (s *Store) Update(msg Message) bool {
	for i := range s.messages {
		if s.messages[i].ID != msg.ID {
			continue
		}

		if s.messages[i].Timestamp.Equal(msg.Timestamp) {
			s.messages[i] = msg
			s.advance(msg.Timestamp)
			return true
		}

		s.messages = append(s.messages[:i], s.messages[i+1:]...)
		delete(s.ids, msg.ID)
		s.insert(msg)
		return true
	}

	return false
}

// Fail ends whatever load is in flight.
func (s *Store) Fail() {
	switch s.state {
	case LoadingMore:
		s.state = Ready
	case LoadingInitial:
		s.hasMore = false
		s.state = Ready
	}
}

func (s *Store) merge(page []Message) []Message {
	added := []Message{}
	for i := len(page) - 1; i >= 0; i-- {
		if _, ok := s.ids[page[i].ID]; ok {
			continue
		}
		s.insert(page[i])
		added = append(added, page[i])
	}
	return added
}

func (s *Store) insert(msg Message) {
	// first index strictly newer than msg; equal timestamps keep arrival order
	i := sort.Search(len(s.messages), func(i int) bool {
		return s.messages[i].Timestamp.After(msg.Timestamp)
	})

	s.messages = append(s.messages, Message{})
	copy(s.messages[i+1:], s.messages[i:])
	s.messages[i] = msg
	s.ids[msg.ID] = struct{}{}
	s.advance(msg.Timestamp)
}

func (s *Store) advance(ts time.Time) {
	if ts.After(s.watermark) {
		s.watermark = ts
	}
}

func (s *Store) RoomID() string       { return s.roomID }
func (s *Store) State() State         { return s.state }
func (s *Store) Cursor() Cursor       { return s.cursor }
func (s *Store) Watermark() time.Time { return s.watermark }
func (s *Store) HasMore() bool        { return s.hasMore }
func (s *Store) Len() int             { return len(s.messages) }

// Get returns the loaded message with id.
func (s *Store) Get(id string) (Message, bool) {
	if _, ok := s.ids[id]; !ok {
		return Message{}, false
	}
	for _, msg := range s.messages {
		if msg.ID == id {
			return msg, true
		}
	}
	return Message{}, false
}

// Messages returns a copy of the window, oldest first.
func (s *Store) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Visible is Messages without soft-deactivated entries.
func (s *Store) Visible() []Message {
	out := make([]Message, 0, len(s.messages))
	for _, msg := range s.messages {
		if msg.IsActive {
			out = append(out, msg)
		}
	}
	return out
}
