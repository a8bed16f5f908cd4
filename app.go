package educhainChat

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	firebaseStorage "firebase.google.com/go/storage"
	"github.com/educhainChat/applicationNotification"
	"github.com/educhainChat/chatBox"
	"github.com/educhainChat/chatNotification"
	"github.com/educhainChat/firebaseChat"
	"github.com/educhainChat/pushNotification"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"google.golang.org/api/option"
)

// App carries the clients shared by the chat backend and the notification
// functions.
type App struct {
	Config    *Config
	Firebase  *firebase.App
	Firestore *firestore.Client
	Storage   *firebaseStorage.Client
	Expo      *expo.PushClient
}

func NewApp(ctx context.Context, cfg *Config) (*App, error) {
	opts := []option.ClientOption{}
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}

	firebaseApp, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.Firebase.ProjectID,
		DatabaseURL:   cfg.Firebase.DatabaseURL,
		StorageBucket: cfg.Firebase.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	firestoreClient, err := firebaseApp.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing firestore client: %w", err)
	}

	storageClient, err := firebaseApp.Storage(ctx)
	if err != nil {
		firestoreClient.Close()
		return nil, fmt.Errorf("initializing storage client: %w", err)
	}

	return &App{
		Config:    cfg,
		Firebase:  firebaseApp,
		Firestore: firestoreClient,
		Storage:   storageClient,
		Expo:      expo.NewPushClient(nil),
	}, nil
}

// ChatBackend returns the Firestore chat backend. Attachments need a
// configured storage bucket.
func (a *App) ChatBackend() (*firebaseChat.Client, error) {
	var files firebaseChat.FileStore
	if a.Config.Firebase.StorageBucket != "" {
		bucket, err := a.Storage.DefaultBucket()
		if err != nil {
			return nil, fmt.Errorf("opening storage bucket: %w", err)
		}
		files = firebaseChat.NewBucketStore(bucket, a.Config.Firebase.StorageBucket)
	}

	return firebaseChat.NewClient(a.Firestore, files, a.Config.Chat.Collection), nil
}

// ChatBox builds a Box over the Firestore backend with the configured page
// size and reconnect policy.
func (a *App) ChatBox(opts chatBox.Options) (*chatBox.Box, error) {
	backend, err := a.ChatBackend()
	if err != nil {
		return nil, err
	}

	opts.PageSize = a.Config.Chat.PageSize
	opts.Reconnect = opts.Reconnect || a.Config.Chat.Reconnect
	return chatBox.New(backend, opts), nil
}

func (a *App) ChatNotifier() *chatNotification.Notifier {
	return chatNotification.NewNotifier(
		chatNotification.NewFirestoreDirectory(a.Firestore),
		pushNotification.NewPublisher(a.Expo),
	)
}

func (a *App) ApplicationNotifier() *applicationNotification.Notifier {
	return applicationNotification.NewNotifier(
		applicationNotification.NewFirestoreUsers(a.Firestore),
		pushNotification.NewPublisher(a.Expo),
	)
}

func (a *App) Close() error {
	return a.Firestore.Close()
}
