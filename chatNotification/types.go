package chatNotification

import (
	"time"

	"github.com/educhainChat/firestoreEvent"
)

// ChatMessage is a chats document as delivered by the Firestore trigger.
type ChatMessage struct {
	ChatRoomID firestoreEvent.StringValue    `json:"chatRoomId"`
	Text       firestoreEvent.StringValue    `json:"text"`
	SenderID   firestoreEvent.StringValue    `json:"senderId"`
	Timestamp  firestoreEvent.TimestampValue `json:"timestamp"`
	IsActive   firestoreEvent.BoolValue      `json:"is_active"`
	Files      struct {
		Value struct {
			Values []struct{} `json:"values"`
		} `json:"arrayValue"`
	} `json:"files"`
}

type ChatEvent = firestoreEvent.Event[ChatMessage]

type Participant struct {
	UserID    string `firestore:"userId"`
	Name      string `firestore:"name"`
	ExpoToken string `firestore:"expoToken"`
}

type ChatRoom struct {
	Title        string        `firestore:"title"`
	Participants []Participant `firestore:"participants"`
}

type Notification struct {
	ID         string    `firestore:"id"`
	Body       string    `firestore:"body"`
	Title      string    `firestore:"title"`
	Category   string    `firestore:"category"`
	ChatRoomID string    `firestore:"chatRoomId"`
	Timestamp  time.Time `firestore:"timestamp"`
}
