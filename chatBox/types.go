package chatBox

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/educhainChat/chatStore"
)

var (
	ErrEmptyMessage = errors.New("message has no text and no files")
	ErrNoRoom       = errors.New("no chat room selected")
)

type ChangeKind int

const (
	Added ChangeKind = iota
	Modified
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return "unknown"
}

type Change struct {
	Kind    ChangeKind
	Message chatStore.Message
}

// Subscription is a live feed of changes to one chat room. Next blocks
// until a change arrives and returns iterator.Done once the subscription
// is stopped or its context is cancelled.
type Subscription interface {
	Next() (Change, error)
	Stop()
}

type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Draft struct {
	ChatRoomID string
	SenderID   string
	Text       string
	Files      []Upload
}

// Backend is the message source a Box synchronizes with. Latest and Before
// return pages newest first.
type Backend interface {
	Latest(ctx context.Context, roomID string, n int) ([]chatStore.Message, error)
	Before(ctx context.Context, roomID string, cursor chatStore.Cursor, n int) ([]chatStore.Message, error)
	Subscribe(ctx context.Context, roomID string, after time.Time) (Subscription, error)
	Send(ctx context.Context, draft Draft) (string, error)
	Deactivate(ctx context.Context, messageID string) error
}

type Options struct {
	PageSize int

	OnMessage func(chatStore.Message)
	OnUpdate  func(chatStore.Message)
	// OnError receives listener failures. Without it they are logged.
	OnError   func(error)

	// Reconnect re-subscribes from the newest seen message after a
	// listener failure.
	Reconnect  bool
	NewBackOff func() backoff.BackOff
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = chatStore.DefaultPageSize
	}
	if o.NewBackOff == nil {
		o.NewBackOff = func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		}
	}
	return o
}
