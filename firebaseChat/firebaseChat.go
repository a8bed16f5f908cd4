package firebaseChat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/educhainChat/chatBox"
	"github.com/educhainChat/chatStore"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
)

// Client implements chatBox.Backend on a Firestore collection of chat
// documents and a FileStore for attachments.
type Client struct {
	firestore  *firestore.Client
	files      FileStore
	collection string
	now        func() time.Time
}

func NewClient(firestoreClient *firestore.Client, files FileStore, collection string) *Client {
	if collection == "" {
		collection = DefaultCollection
	}

	return &Client{
		firestore:  firestoreClient,
		files:      files,
		collection: collection,
		now:        time.Now,
	}
}

func (c *Client) roomQuery(roomID string) firestore.Query {
	return c.firestore.Collection(c.collection).Where("chatRoomId", "==", roomID)
}

func (c *Client) newestFirst(roomID string) firestore.Query {
	return c.roomQuery(roomID).
		OrderBy("timestamp", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc)
}

func (c *Client) Latest(ctx context.Context, roomID string, n int) ([]chatStore.Message, error) {
	return c.page(ctx, c.newestFirst(roomID).Limit(n))
}

func (c *Client) Before(ctx context.Context, roomID string, cursor chatStore.Cursor, n int) ([]chatStore.Message, error) {
	if cursor.IsZero() {
		return nil, chatStore.ErrInvalidCursor
	}

	at := c.firestore.Collection(c.collection).Doc(cursor.ID)
	return c.page(ctx, c.newestFirst(roomID).StartAfter(cursor.Timestamp, at).Limit(n))
}

func (c *Client) page(ctx context.Context, q firestore.Query) ([]chatStore.Message, error) {
	docSnaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	msgs := make([]chatStore.Message, 0, len(docSnaps))
	for _, docSnap := range docSnaps {
		msg, err := decode(docSnap)
		if err != nil {
			log.Errorf("unable to unmarshal chat message %s: %s", docSnap.Ref.ID, err)
			continue
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}

func decode(docSnap *firestore.DocumentSnapshot) (chatStore.Message, error) {
	var doc chatDocument
	if err := docSnap.DataTo(&doc); err != nil {
		return chatStore.Message{}, err
	}
	return doc.toMessage(docSnap.Ref.ID), nil
}

// Subscribe listens for messages of roomID newer than after, oldest first.
func (c *Client) Subscribe(ctx context.Context, roomID string, after time.Time) (chatBox.Subscription, error) {
	it := c.roomQuery(roomID).
		Where("timestamp", ">", after).
		OrderBy("timestamp", firestore.Asc).
		Snapshots(ctx)

	return &subscription{ctx: ctx, it: it}, nil
}

type subscription struct {
	ctx     context.Context
	it      *firestore.QuerySnapshotIterator
	pending []chatBox.Change
}

func (s *subscription) Next() (chatBox.Change, error) {
	for len(s.pending) == 0 {
		snap, err := s.it.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) || s.ctx.Err() != nil {
				return chatBox.Change{}, iterator.Done
			}
			return chatBox.Change{}, err
		}

		for _, change := range snap.Changes {
			msg, err := decode(change.Doc)
			if err != nil {
				log.Errorf("unable to unmarshal chat message %s: %s", change.Doc.Ref.ID, err)
				continue
			}
			s.pending = append(s.pending, chatBox.Change{Kind: kindOf(change.Kind), Message: msg})
		}
	}

	change := s.pending[0]
	s.pending = s.pending[1:]
	return change, nil
}

func (s *subscription) Stop() {
	s.it.Stop()
}

func kindOf(kind firestore.DocumentChangeKind) chatBox.ChangeKind {
	switch kind {
	case firestore.DocumentModified:
		return chatBox.Modified
	case firestore.DocumentRemoved:
		return chatBox.Removed
	}
	return chatBox.Added
}

// Send uploads the draft's files in parallel, then writes the message with
// a server timestamp.
func (c *Client) Send(ctx context.Context, draft chatBox.Draft) (string, error) {
	files, err := c.upload(ctx, draft.ChatRoomID, draft.Files)
	if err != nil {
		return "", err
	}

	active := true
	ref := c.firestore.Collection(c.collection).NewDoc()
	if _, err := ref.Create(ctx, chatDocument{
		ChatRoomID: draft.ChatRoomID,
		Text:       draft.Text,
		SenderID:   draft.SenderID,
		IsActive:   &active,
		Files:      fromFiles(files),
	}); err != nil {
		return "", fmt.Errorf("create chat message: %w", err)
	}

	log.WithFields(log.Fields{
		"chatRoomId": draft.ChatRoomID,
		"messageId":  ref.ID,
		"files":      len(files),
	}).Info("chat message sent")

	return ref.ID, nil
}

func (c *Client) upload(ctx context.Context, roomID string, uploads []chatBox.Upload) ([]chatStore.File, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	if c.files == nil {
		return nil, errors.New("no file store configured for attachments")
	}

	files := make([]chatStore.File, len(uploads))
	used := make(map[string]bool, len(uploads))
	group, groupCtx := errgroup.WithContext(ctx)

	for i, upload := range uploads {
		i, upload := i, upload
		at := c.now()
		dest := objectPath(roomID, at, upload.Name)
		// files with the same name in one message get their index as prefix
		for n := i; used[dest]; n += len(uploads) {
			dest = objectPath(roomID, at, fmt.Sprintf("%d_%s", n, baseName(upload.Name)))
		}
		used[dest] = true

		group.Go(func() error {
			url, err := c.files.Put(groupCtx, dest, upload.ContentType, upload.Body)
			if err != nil {
				return fmt.Errorf("upload %s: %w", upload.Name, err)
			}

			files[i] = chatStore.File{
				Name:        upload.Name,
				URL:         url,
				Path:        dest,
				ContentType: upload.ContentType,
				Size:        upload.Size,
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return files, nil
}

func (c *Client) Deactivate(ctx context.Context, messageID string) error {
	_, err := c.firestore.Collection(c.collection).Doc(messageID).Update(ctx, []firestore.Update{
		{Path: "is_active", Value: false},
	})
	return err
}
