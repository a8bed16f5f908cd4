package chatStore

import (
	"fmt"
	"testing"
	"time"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(n int) Message {
	return Message{
		ID:         fmt.Sprintf("m%03d", n),
		ChatRoomID: "R1",
		Text:       fmt.Sprintf("message %d", n),
		SenderID:   "u1",
		Timestamp:  base.Add(time.Duration(n) * time.Second),
		IsActive:   true,
	}
}

// descending returns messages hi..lo, newest first.
func descending(hi, lo int) []Message {
	out := []Message{}
	for n := hi; n >= lo; n-- {
		out = append(out, msg(n))
	}
	return out
}

func assertSorted(t *testing.T, msgs []Message) {
	t.Helper()
	seen := map[string]bool{}
	for i, m := range msgs {
		if seen[m.ID] {
			t.Fatalf("duplicate id %s at %d", m.ID, i)
		}
		seen[m.ID] = true
		if i > 0 && m.Timestamp.Before(msgs[i-1].Timestamp) {
			t.Fatalf("order broken at %d: %s before %s", i, msgs[i-1].ID, m.ID)
		}
	}
}

func TestStore_PaginationScenario(t *testing.T) {
	s := New("R1")
	if s.State() != LoadingInitial {
		t.Fatalf("expected loading-initial, got %s", s.State())
	}

	s.SetInitial(descending(120, 71), DefaultPageSize)
	if s.Len() != 50 {
		t.Fatalf("expected 50 messages, got %d", s.Len())
	}
	if got := s.Messages()[0].ID; got != "m071" {
		t.Fatalf("expected first m071, got %s", got)
	}
	if s.Cursor().ID != "m071" {
		t.Fatalf("expected cursor at m071, got %+v", s.Cursor())
	}
	if !s.HasMore() {
		t.Fatal("full page must keep load more enabled")
	}
	if !s.Watermark().Equal(msg(120).Timestamp) {
		t.Fatalf("watermark %v", s.Watermark())
	}

	if !s.BeginLoadMore() {
		t.Fatal("load more refused")
	}
	if s.BeginLoadMore() {
		t.Fatal("second concurrent load more accepted")
	}
	s.Prepend(descending(70, 21), DefaultPageSize)

	msgs := s.Messages()
	if len(msgs) != 100 {
		t.Fatalf("expected 100 messages, got %d", len(msgs))
	}
	if msgs[0].ID != "m021" || msgs[99].ID != "m120" {
		t.Fatalf("unexpected bounds %s..%s", msgs[0].ID, msgs[99].ID)
	}
	assertSorted(t, msgs)
	if s.Cursor().ID != "m021" {
		t.Fatalf("cursor not advanced: %+v", s.Cursor())
	}

	if !s.Append(msg(121)) {
		t.Fatal("live message rejected")
	}
	msgs = s.Messages()
	if msgs[len(msgs)-1].ID != "m121" {
		t.Fatalf("live message not at end: %s", msgs[len(msgs)-1].ID)
	}
	if !s.Watermark().Equal(msg(121).Timestamp) {
		t.Fatal("watermark not advanced")
	}
}

func TestStore_ShortInitialPageDisablesLoadMore(t *testing.T) {
	s := New("R1")
	s.SetInitial(descending(10, 1), DefaultPageSize)

	if s.HasMore() {
		t.Fatal("short page must disable load more")
	}
	if s.BeginLoadMore() {
		t.Fatal("load more accepted without history")
	}
}

func TestStore_ShortOlderPageDisablesLoadMore(t *testing.T) {
	s := New("R1")
	s.SetInitial(descending(60, 11), DefaultPageSize)
	s.BeginLoadMore()
	s.Prepend(descending(10, 1), DefaultPageSize)

	if s.HasMore() {
		t.Fatal("short older page must disable load more")
	}
	if s.State() != Ready {
		t.Fatalf("expected ready, got %s", s.State())
	}
}

func TestStore_LiveDuplicateAppearsOnce(t *testing.T) {
	s := New("R1")
	s.SetInitial(descending(5, 1), DefaultPageSize)

	if s.Append(msg(5)) {
		t.Fatal("duplicate of initial page accepted")
	}
	if s.Len() != 5 {
		t.Fatalf("expected 5, got %d", s.Len())
	}
}

func TestStore_OverlappingOlderPage(t *testing.T) {
	s := New("R1")
	s.SetInitial(descending(10, 6), 5)
	s.BeginLoadMore()
	// the backend returned an overlapping page
	added := s.Prepend(descending(7, 3), 5)

	msgs := s.Messages()
	if len(msgs) != 8 {
		t.Fatalf("expected 8 messages, got %d", len(msgs))
	}
	assertSorted(t, msgs)

	if len(added) != 3 || added[0].ID != "m003" || added[2].ID != "m005" {
		t.Fatalf("expected m003..m005 as new messages, got %v", added)
	}
}

func TestStore_SeekResumesFromCursor(t *testing.T) {
	s := New("R1")
	if s.Seek(CursorOf(msg(40))) {
		t.Fatal("seek accepted before the initial page")
	}

	s.SetInitial(descending(100, 91), DefaultPageSize)
	if s.HasMore() {
		t.Fatal("short page must disable load more")
	}
	if s.Seek(Cursor{}) {
		t.Fatal("zero cursor accepted")
	}

	if !s.Seek(CursorOf(msg(40))) {
		t.Fatal("seek refused")
	}
	if !s.HasMore() || s.Cursor().ID != "m040" {
		t.Fatalf("cursor %+v hasMore %v", s.Cursor(), s.HasMore())
	}
	if !s.BeginLoadMore() {
		t.Fatal("load more refused after seek")
	}
	if s.Seek(CursorOf(msg(30))) {
		t.Fatal("seek accepted during a load")
	}

	s.Prepend(descending(39, 30), DefaultPageSize)
	assertSorted(t, s.Messages())
	if s.Len() != 20 {
		t.Fatalf("expected 20 messages, got %d", s.Len())
	}
}

func TestStore_Get(t *testing.T) {
	s := New("R1")
	s.SetInitial(descending(3, 1), DefaultPageSize)

	got, ok := s.Get("m002")
	if !ok || got.Text != "message 2" {
		t.Fatalf("get m002: %+v %v", got, ok)
	}
	if _, ok := s.Get("m099"); ok {
		t.Fatal("unknown id found")
	}
}

func TestStore_OutOfOrderAppendKeepsOrder(t *testing.T) {
	s := New("R1")
	s.SetInitial([]Message{msg(10), msg(5)}, 50)
	s.Append(msg(7))

	msgs := s.Messages()
	assertSorted(t, msgs)
	if msgs[1].ID != "m007" {
		t.Fatalf("expected m007 in the middle, got %s", msgs[1].ID)
	}
	if !s.Watermark().Equal(msg(10).Timestamp) {
		t.Fatal("watermark must not move backwards")
	}
}

func TestStore_ResetClearsEverything(t *testing.T) {
	s := New("R1")
	s.SetInitial(descending(60, 11), DefaultPageSize)
	s.Reset("R2")

	if s.Len() != 0 || !s.Cursor().IsZero() || !s.Watermark().IsZero() {
		t.Fatalf("reset left state behind: len=%d cursor=%+v watermark=%v", s.Len(), s.Cursor(), s.Watermark())
	}
	if s.RoomID() != "R2" || s.State() != LoadingInitial {
		t.Fatalf("unexpected room %s state %s", s.RoomID(), s.State())
	}
	if _, ok := s.Get("m011"); ok {
		t.Fatal("ids survived reset")
	}
}

func TestStore_UpdateAndVisible(t *testing.T) {
	s := New("R1")
	s.SetInitial(descending(3, 1), DefaultPageSize)

	m := msg(2)
	m.IsActive = false
	if !s.Update(m) {
		t.Fatal("update of loaded message failed")
	}
	if s.Update(msg(99)) {
		t.Fatal("update of unknown message reported success")
	}

	if len(s.Visible()) != 2 {
		t.Fatalf("expected 2 visible, got %d", len(s.Visible()))
	}
	if s.Len() != 3 {
		t.Fatal("soft deactivation must not remove the message")
	}
}

func TestStore_FailEndsLoading(t *testing.T) {
	s := New("R1")
	s.Fail()
	if s.State() != Ready || s.HasMore() {
		t.Fatalf("initial failure: state %s hasMore %v", s.State(), s.HasMore())
	}

	s.Reset("R1")
	s.SetInitial(descending(60, 11), DefaultPageSize)
	s.BeginLoadMore()
	s.Fail()
	if s.State() != Ready || !s.HasMore() {
		t.Fatalf("load more failure: state %s hasMore %v", s.State(), s.HasMore())
	}
}

func TestCursor_RoundTrip(t *testing.T) {
	c := CursorOf(msg(42))

	encoded, err := EncodeCursor(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeCursor(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != c.ID || !decoded.Timestamp.Equal(c.Timestamp) {
		t.Fatalf("round trip mismatch: %+v != %+v", decoded, c)
	}

	if _, err := DecodeCursor("%%%"); err == nil {
		t.Fatal("expected error for garbage cursor")
	}
	if empty, err := DecodeCursor(""); err != nil || !empty.IsZero() {
		t.Fatalf("empty cursor: %+v %v", empty, err)
	}
}
