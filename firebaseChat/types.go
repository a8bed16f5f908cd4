package firebaseChat

import (
	"time"

	"github.com/educhainChat/chatStore"
)

const (
	DefaultCollection = "chats"
	filesPrefix       = "chat-files"
)

type fileDocument struct {
	Name        string `firestore:"name"`
	URL         string `firestore:"url"`
	Path        string `firestore:"path"`
	ContentType string `firestore:"contentType,omitempty"`
	Size        int64  `firestore:"size,omitempty"`
}

type chatDocument struct {
	ChatRoomID string         `firestore:"chatRoomId"`
	Text       string         `firestore:"text"`
	SenderID   string         `firestore:"senderId"`
	Timestamp  time.Time      `firestore:"timestamp,serverTimestamp"`
	IsActive   *bool          `firestore:"is_active,omitempty"`
	Files      []fileDocument `firestore:"files,omitempty"`
}

func (d chatDocument) toMessage(id string) chatStore.Message {
	msg := chatStore.Message{
		ID:         id,
		ChatRoomID: d.ChatRoomID,
		Text:       d.Text,
		SenderID:   d.SenderID,
		Timestamp:  d.Timestamp,
		// documents written before soft deactivation existed have no flag
		IsActive: d.IsActive == nil || *d.IsActive,
	}

	for _, f := range d.Files {
		msg.Files = append(msg.Files, chatStore.File{
			Name:        f.Name,
			URL:         f.URL,
			Path:        f.Path,
			ContentType: f.ContentType,
			Size:        f.Size,
		})
	}

	return msg
}

func fromFiles(files []chatStore.File) []fileDocument {
	out := make([]fileDocument, 0, len(files))
	for _, f := range files {
		out = append(out, fileDocument{
			Name:        f.Name,
			URL:         f.URL,
			Path:        f.Path,
			ContentType: f.ContentType,
			Size:        f.Size,
		})
	}
	return out
}
