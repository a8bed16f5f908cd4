package chatBox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/educhainChat/chatStore"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
)

// Box keeps the message window of the selected chat room in sync with a
// Backend: one initial page, older pages on demand and a live listener for
// newer messages.
type Box struct {
	backend Backend
	opts    Options

	mu         sync.Mutex
	store      *chatStore.Store
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

func New(backend Backend, opts Options) *Box {
	return &Box{
		backend: backend,
		opts:    opts.withDefaults(),
		store:   chatStore.New(""),
	}
}

// Open selects roomID. The previous room's listener is stopped before
// anything of the new room is loaded. The live listener runs until ctx is
// cancelled, another room is opened or the Box is closed.
func (b *Box) Open(ctx context.Context, roomID string) error {
	if roomID == "" {
		return ErrNoRoom
	}

	b.mu.Lock()
	b.generation++
	gen := b.generation
	b.store.Reset(roomID)
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	stop(cancel, done)

	logger := log.WithField("chatRoomId", roomID)

	page, err := b.backend.Latest(ctx, roomID, b.opts.PageSize)

	b.mu.Lock()
	if gen != b.generation {
		b.mu.Unlock()
		logger.Debug("discarding initial page of a superseded room")
		return nil
	}

	if err != nil {
		b.store.Fail()
		b.mu.Unlock()
		logger.Errorf("loading initial messages: %s", err)
		return fmt.Errorf("load initial messages of %s: %w", roomID, err)
	}

	b.store.SetInitial(page, b.opts.PageSize)

	listenCtx, cancelListen := context.WithCancel(ctx)
	b.cancel = cancelListen
	b.done = make(chan struct{})
	done = b.done
	b.mu.Unlock()

	logger.WithField("count", len(page)).Info("chat room opened")

	go b.listen(listenCtx, gen, roomID, done)

	return nil
}

// LoadMore prepends the next older page and returns the messages it added,
// oldest first. It returns nil without calling the backend when there is no
// more history or a load is already running.
func (b *Box) LoadMore(ctx context.Context) ([]chatStore.Message, error) {
	b.mu.Lock()
	if !b.store.BeginLoadMore() {
		b.mu.Unlock()
		return nil, nil
	}
	gen := b.generation
	roomID := b.store.RoomID()
	cursor := b.store.Cursor()
	b.mu.Unlock()

	page, err := b.backend.Before(ctx, roomID, cursor, b.opts.PageSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		return nil, nil
	}

	if err != nil {
		b.store.Fail()
		log.WithField("chatRoomId", roomID).Errorf("loading older messages: %s", err)
		return nil, fmt.Errorf("load older messages of %s: %w", roomID, err)
	}

	return b.store.Prepend(page, b.opts.PageSize), nil
}

// LoadMoreFrom continues older history from an encoded cursor, as returned
// by Cursor in an earlier session of the same room.
func (b *Box) LoadMoreFrom(ctx context.Context, encoded string) ([]chatStore.Message, error) {
	cursor, err := chatStore.DecodeCursor(encoded)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	ok := b.store.Seek(cursor)
	b.mu.Unlock()
	if !ok {
		return nil, nil
	}

	return b.LoadMore(ctx)
}

// Cursor encodes the position of the oldest loaded message, or "" when
// nothing is loaded.
func (b *Box) Cursor() (string, error) {
	b.mu.Lock()
	cursor := b.store.Cursor()
	b.mu.Unlock()

	return chatStore.EncodeCursor(cursor)
}

// CanSend reports whether text and files make a sendable message.
func CanSend(text string, files []Upload) bool {
	return strings.TrimSpace(text) != "" || len(files) > 0
}

// Send writes a message to the open room. The message is not added to the
// window here; it arrives back through the live listener.
func (b *Box) Send(ctx context.Context, senderID, text string, files []Upload) (string, error) {
	if !CanSend(text, files) {
		return "", ErrEmptyMessage
	}

	roomID := b.RoomID()
	if roomID == "" {
		return "", ErrNoRoom
	}

	id, err := b.backend.Send(ctx, Draft{
		ChatRoomID: roomID,
		SenderID:   senderID,
		Text:       strings.TrimSpace(text),
		Files:      files,
	})
	if err != nil {
		log.WithFields(log.Fields{"chatRoomId": roomID, "senderId": senderID}).Errorf("sending message: %s", err)
		return "", fmt.Errorf("send message to %s: %w", roomID, err)
	}

	return id, nil
}

// Deactivate hides a message. A loaded message is marked inactive right
// away and reported through OnUpdate; the listener only sees messages newer
// than the watermark, so it would not deliver the change for it.
func (b *Box) Deactivate(ctx context.Context, messageID string) error {
	if err := b.backend.Deactivate(ctx, messageID); err != nil {
		log.WithField("messageId", messageID).Errorf("deactivating message: %s", err)
		return fmt.Errorf("deactivate message %s: %w", messageID, err)
	}

	b.mu.Lock()
	msg, ok := b.store.Get(messageID)
	if ok && msg.IsActive {
		msg.IsActive = false
		b.store.Update(msg)
	} else {
		ok = false
	}
	b.mu.Unlock()

	if ok && b.opts.OnUpdate != nil {
		b.opts.OnUpdate(msg)
	}
	return nil
}

// Close stops the listener and returns the Box to Idle.
func (b *Box) Close() {
	b.mu.Lock()
	b.generation++
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.store = chatStore.New("")
	b.mu.Unlock()

	stop(cancel, done)
}

func stop(cancel context.CancelFunc, done chan struct{}) {
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (b *Box) listen(ctx context.Context, gen uint64, roomID string, done chan struct{}) {
	events := newDispatcher()
	defer close(done)
	defer events.close()

	logger := log.WithField("chatRoomId", roomID)

	var policy backoff.BackOff
	if b.opts.Reconnect {
		policy = backoff.WithContext(b.opts.NewBackOff(), ctx)
	}

	for {
		err := b.follow(ctx, gen, roomID, policy, events)
		if err == nil || ctx.Err() != nil {
			logger.Debug("listener stopped")
			return
		}

		b.report(gen, err, events)

		if policy == nil {
			return
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			logger.Error("giving up on chat listener")
			return
		}

		logger.Infof("resubscribing in %s", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// follow runs one subscription from the current watermark until it ends.
func (b *Box) follow(ctx context.Context, gen uint64, roomID string, policy backoff.BackOff, events *dispatcher) error {
	b.mu.Lock()
	if gen != b.generation {
		b.mu.Unlock()
		return nil
	}
	after := b.store.Watermark()
	b.mu.Unlock()

	sub, err := b.backend.Subscribe(ctx, roomID, after)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", roomID, err)
	}
	defer sub.Stop()

	for {
		change, err := sub.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("listen to %s: %w", roomID, err)
		}

		if policy != nil {
			policy.Reset()
		}

		if !b.apply(gen, change, events) {
			return nil
		}
	}
}

// apply merges one change into the window. It reports false once the room
// has been superseded.
func (b *Box) apply(gen uint64, change Change, events *dispatcher) bool {
	b.mu.Lock()
	if gen != b.generation {
		b.mu.Unlock()
		return false
	}

	var callback func(chatStore.Message)
	switch change.Kind {
	case Added:
		if b.store.Append(change.Message) {
			callback = b.opts.OnMessage
		}
	case Modified:
		b.store.Update(change.Message)
		callback = b.opts.OnUpdate
	}
	b.mu.Unlock()

	if callback != nil {
		msg := change.Message
		events.post(func() {
			if b.current(gen) {
				callback(msg)
			}
		})
	}
	return true
}

func (b *Box) report(gen uint64, err error, events *dispatcher) {
	if b.opts.OnError == nil {
		log.Errorf("chat listener: %s", err)
		return
	}

	events.post(func() {
		if b.current(gen) {
			b.opts.OnError(err)
		}
	})
}

func (b *Box) current(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return gen == b.generation
}

func (b *Box) RoomID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.RoomID()
}

func (b *Box) State() chatStore.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.State()
}

func (b *Box) HasMore() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.HasMore()
}

// Messages returns the window oldest first, including deactivated ones.
func (b *Box) Messages() []chatStore.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Messages()
}

func (b *Box) Visible() []chatStore.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Visible()
}
