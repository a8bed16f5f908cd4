package chatNotification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/educhainChat/pushNotification"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
)

type memoryDirectory struct {
	rooms map[string]*ChatRoom
	saved map[string][]Notification
}

func (d *memoryDirectory) ChatRoom(ctx context.Context, roomID string) (*ChatRoom, error) {
	room, ok := d.rooms[roomID]
	if !ok {
		return nil, errors.New("not found")
	}
	return room, nil
}

func (d *memoryDirectory) SaveNotification(ctx context.Context, userID string, n Notification) error {
	d.saved[userID] = append(d.saved[userID], n)
	return nil
}

type recordingSender struct {
	messages []*expo.PushMessage
}

func (s *recordingSender) Publish(message *expo.PushMessage) (expo.PushResponse, error) {
	s.messages = append(s.messages, message)
	return expo.PushResponse{PushMessage: *message, Status: "ok"}, nil
}

func newTestNotifier() (*Notifier, *memoryDirectory, *recordingSender) {
	directory := &memoryDirectory{
		rooms: map[string]*ChatRoom{
			"R1": {Participants: []Participant{
				{UserID: "alice", Name: "Alice", ExpoToken: "ExponentPushToken[alice]"},
				{UserID: "bob", Name: "Bob", ExpoToken: "ExponentPushToken[bob]"},
				{UserID: "carol", Name: "Carol", ExpoToken: "not-a-token"},
			}},
			"solo": {Participants: []Participant{
				{UserID: "alice", ExpoToken: "ExponentPushToken[alice]"},
			}},
		},
		saved: map[string][]Notification{},
	}
	sender := &recordingSender{}
	return NewNotifier(directory, pushNotification.NewPublisher(sender)), directory, sender
}

func event(t *testing.T, raw string) ChatEvent {
	t.Helper()
	var ev ChatEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return ev
}

func TestPushNotification_SkipsSender(t *testing.T) {
	notifier, directory, sender := newTestNotifier()

	ev := event(t, `{"value": {"name": "projects/p/databases/(default)/documents/chats/m1", "fields": {
		"chatRoomId": {"stringValue": "R1"},
		"senderId": {"stringValue": "alice"},
		"text": {"stringValue": "gm"}
	}}}`)

	if err := notifier.PushNotification(context.Background(), ev); err != nil {
		t.Fatalf("push: %v", err)
	}

	if len(sender.messages) != 1 {
		t.Fatalf("expected one push, got %d", len(sender.messages))
	}
	push := sender.messages[0]
	if len(push.To) != 1 || push.To[0] != "ExponentPushToken[bob]" {
		t.Fatalf("unexpected recipients %v", push.To)
	}
	if push.Title != "New Message from Alice" || push.Body != "gm" || push.Priority != expo.HighPriority {
		t.Fatalf("unexpected push %+v", push)
	}
	if push.Data["chatRoomId"] != "R1" {
		t.Fatalf("missing room in data: %v", push.Data)
	}

	if len(directory.saved["alice"]) != 0 {
		t.Fatal("sender got a notification entry")
	}
	if len(directory.saved["bob"]) != 1 || len(directory.saved["carol"]) != 1 {
		t.Fatalf("notification entries: %v", directory.saved)
	}
	if directory.saved["bob"][0].Category != "chat" || directory.saved["bob"][0].ID == "" {
		t.Fatalf("unexpected entry %+v", directory.saved["bob"][0])
	}
}

func TestPushNotification_AttachmentOnly(t *testing.T) {
	notifier, _, sender := newTestNotifier()

	ev := event(t, `{"value": {"fields": {
		"chatRoomId": {"stringValue": "R1"},
		"senderId": {"stringValue": "bob"},
		"files": {"arrayValue": {"values": [{"mapValue": {}}, {"mapValue": {}}]}}
	}}}`)

	if err := notifier.PushNotification(context.Background(), ev); err != nil {
		t.Fatalf("push: %v", err)
	}
	if sender.messages[0].Body != "Sent 2 attachments" {
		t.Fatalf("body: %q", sender.messages[0].Body)
	}
}

func TestPushNotification_NoRecipients(t *testing.T) {
	notifier, _, sender := newTestNotifier()

	ev := event(t, `{"value": {"fields": {
		"chatRoomId": {"stringValue": "solo"},
		"senderId": {"stringValue": "alice"},
		"text": {"stringValue": "anyone?"}
	}}}`)

	err := notifier.PushNotification(context.Background(), ev)
	if !errors.Is(err, pushNotification.ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
	if len(sender.messages) != 0 {
		t.Fatal("push sent without recipients")
	}
}

func TestPushNotification_InactiveMessage(t *testing.T) {
	notifier, directory, sender := newTestNotifier()

	ev := event(t, `{"value": {"fields": {
		"chatRoomId": {"stringValue": "R1"},
		"senderId": {"stringValue": "alice"},
		"text": {"stringValue": "oops"},
		"is_active": {"booleanValue": false}
	}}}`)

	if err := notifier.PushNotification(context.Background(), ev); err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(sender.messages) != 0 || len(directory.saved) != 0 {
		t.Fatal("inactive message notified")
	}
}

func TestPushNotification_UnknownRoom(t *testing.T) {
	notifier, _, _ := newTestNotifier()

	ev := event(t, `{"value": {"fields": {"chatRoomId": {"stringValue": "nope"}}}}`)
	if err := notifier.PushNotification(context.Background(), ev); err == nil {
		t.Fatal("expected error for unknown room")
	}
}
