package chatNotification

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/educhainChat/pushNotification"
	"github.com/google/uuid"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	log "github.com/sirupsen/logrus"
)

const (
	ChatRoomCollection     = "chatRooms"
	NotificationCollection = "notifications"

	category = "chat"
)

// Directory resolves chat rooms and stores per-user notification entries.
type Directory interface {
	ChatRoom(ctx context.Context, roomID string) (*ChatRoom, error)
	SaveNotification(ctx context.Context, userID string, n Notification) error
}

type FirestoreDirectory struct {
	client *firestore.Client
}

func NewFirestoreDirectory(client *firestore.Client) *FirestoreDirectory {
	return &FirestoreDirectory{client: client}
}

func (d *FirestoreDirectory) ChatRoom(ctx context.Context, roomID string) (*ChatRoom, error) {
	docSnap, err := d.client.Collection(ChatRoomCollection).Doc(roomID).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chat room %s: %w", roomID, err)
	}

	var room ChatRoom
	if err := docSnap.DataTo(&room); err != nil {
		return nil, fmt.Errorf("unmarshal chat room %s: %w", roomID, err)
	}

	return &room, nil
}

func (d *FirestoreDirectory) SaveNotification(ctx context.Context, userID string, n Notification) error {
	_, err := d.client.Collection(NotificationCollection).Doc(userID).Collection("list").Doc(n.ID).Create(ctx, n)
	return err
}

type Notifier struct {
	directory Directory
	publisher *pushNotification.Publisher
	now       func() time.Time
}

func NewNotifier(directory Directory, publisher *pushNotification.Publisher) *Notifier {
	return &Notifier{directory: directory, publisher: publisher, now: time.Now}
}

// PushNotification notifies every participant of the room except the
// sender about a newly created chat message.
func (n *Notifier) PushNotification(ctx context.Context, fsEvent ChatEvent) error {
	chatMessage := fsEvent.Value.Fields
	roomID := chatMessage.ChatRoomID.Value
	senderID := chatMessage.SenderID.Value

	logger := log.WithFields(log.Fields{
		"chatRoomId": roomID,
		"messageId":  fsEvent.Value.DocumentID(),
	})

	if !chatMessage.IsActive.Or(true) {
		logger.Info("skipping inactive chat message")
		return nil
	}

	room, err := n.directory.ChatRoom(ctx, roomID)
	if err != nil {
		logger.Errorf("unable to fetch chat group data: %s", err)
		return err
	}

	title := "New Message from " + senderName(room, senderID)
	body := messageBody(chatMessage)

	expoTokens := []expo.ExponentPushToken{}
	for _, participant := range room.Participants {
		// Because we should not send notification to the same user
		if participant.UserID == senderID {
			continue
		}

		notification := Notification{
			ID:         uuid.NewString(),
			Body:       body,
			Title:      title,
			Category:   category,
			ChatRoomID: roomID,
			Timestamp:  n.now(),
		}
		if err := n.directory.SaveNotification(ctx, participant.UserID, notification); err != nil {
			logger.Errorf("unable to store notification for %s: %s", participant.UserID, err)
		}

		expoTokens = append(expoTokens, pushNotification.Tokens(participant.ExpoToken)...)
	}

	if len(expoTokens) == 0 {
		logger.Error(pushNotification.ErrNoRecipients)
		return pushNotification.ErrNoRecipients
	}

	if err := n.publisher.Publish(pushNotification.Push{
		Key:      fsEvent.Value.DocumentID(),
		Title:    title,
		Body:     body,
		Tokens:   expoTokens,
		Priority: expo.HighPriority,
		Data: map[string]string{
			"category":   category,
			"chatRoomId": roomID,
		},
	}); err != nil {
		logger.Errorf("push failed: %s", err)
		return err
	}

	return nil
}

func senderName(room *ChatRoom, senderID string) string {
	for _, participant := range room.Participants {
		if participant.UserID == senderID && participant.Name != "" {
			return participant.Name
		}
	}
	return senderID
}

func messageBody(chatMessage ChatMessage) string {
	if chatMessage.Text.Value != "" {
		return chatMessage.Text.Value
	}

	files := len(chatMessage.Files.Value.Values)
	if files == 1 {
		return "Sent an attachment"
	}
	return fmt.Sprintf("Sent %d attachments", files)
}
