package firebaseChat

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// FileStore persists chat attachments and returns a download URL.
type FileStore interface {
	Put(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error)
}

// BucketStore writes attachments to a Firebase Storage bucket with a
// download token, so the returned URL works like one issued by the web SDK.
type BucketStore struct {
	bucket *storage.BucketHandle
	name   string
}

func NewBucketStore(bucket *storage.BucketHandle, name string) *BucketStore {
	return &BucketStore{bucket: bucket, name: name}
}

func (b *BucketStore) Put(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error) {
	token := uuid.NewString()

	w := b.bucket.Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{
		"firebaseStorageDownloadTokens": token,
	}

	if _, err := io.Copy(w, body); err != nil {
		w.Close()
		return "", fmt.Errorf("write %s: %w", objectPath, err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", objectPath, err)
	}

	return downloadURL(b.name, objectPath, token), nil
}

func downloadURL(bucket, objectPath, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(objectPath), token)
}

// objectPath is chat-files/{chatRoomId}/{unix millis}_{file name}.
func objectPath(chatRoomID string, at time.Time, name string) string {
	return fmt.Sprintf("%s/%s/%d_%s", filesPrefix, chatRoomID, at.UnixMilli(), baseName(name))
}

func baseName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return "file"
	}
	return name
}
