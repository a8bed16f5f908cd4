package educhainChat

import (
	"context"
	"sync"

	"github.com/educhainChat/applicationNotification"
	"github.com/educhainChat/chatNotification"
	log "github.com/sirupsen/logrus"
)

var (
	appOnce sync.Once
	app     *App
	appErr  error
)

// sharedApp builds the App once per function instance.
func sharedApp() (*App, error) {
	appOnce.Do(func() {
		cfg, err := LoadConfig()
		if err != nil {
			appErr = err
			return
		}
		ConfigureLogging(cfg.Logging)

		app, appErr = NewApp(context.Background(), cfg)
	})

	if appErr != nil {
		log.Errorf("initializing app: %s", appErr)
	}
	return app, appErr
}

// PushChatNotification is triggered on create of chats/{messageId}.
func PushChatNotification(ctx context.Context, fsEvent chatNotification.ChatEvent) error {
	a, err := sharedApp()
	if err != nil {
		return err
	}
	return a.ChatNotifier().PushNotification(ctx, fsEvent)
}

// PushApplicationNotification is triggered on update of
// applications/{applicationId}.
func PushApplicationNotification(ctx context.Context, fsEvent applicationNotification.ApplicationEvent) error {
	a, err := sharedApp()
	if err != nil {
		return err
	}
	return a.ApplicationNotifier().PushNotification(ctx, fsEvent)
}
