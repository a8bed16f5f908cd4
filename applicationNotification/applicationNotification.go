package applicationNotification

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/educhainChat/pushNotification"
	log "github.com/sirupsen/logrus"
)

const (
	UserCollection = "users"

	category = "application"
)

var statusMessages = map[string]string{
	"accepted":  "Your application to %s has been selected",
	"rejected":  "Your application to %s was not selected",
	"completed": "Your work on %s has been marked complete",
	"submitted": "Your milestone for %s has been submitted for review",
	"approved":  "Your milestone for %s has been approved",
}

type Users interface {
	User(ctx context.Context, id string) (*UserData, error)
}

type FirestoreUsers struct {
	client *firestore.Client
}

func NewFirestoreUsers(client *firestore.Client) *FirestoreUsers {
	return &FirestoreUsers{client: client}
}

func (u *FirestoreUsers) User(ctx context.Context, id string) (*UserData, error) {
	docSnap, err := u.client.Collection(UserCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", id, err)
	}

	var userData UserData
	if err := docSnap.DataTo(&userData); err != nil {
		return nil, fmt.Errorf("unmarshal user %s: %w", id, err)
	}

	return &userData, nil
}

type Notifier struct {
	users     Users
	publisher *pushNotification.Publisher
}

func NewNotifier(users Users, publisher *pushNotification.Publisher) *Notifier {
	return &Notifier{users: users, publisher: publisher}
}

// PushNotification is the trigger body. Failures are logged per recipient
// and not retried.
func (n *Notifier) PushNotification(ctx context.Context, fsEvent ApplicationEvent) error {
	report := n.Notify(ctx, fsEvent)
	if err := report.Err(); err != nil {
		log.WithField("applicationId", fsEvent.Value.DocumentID()).Error(err)
	}
	return nil
}

// Notify pushes one notification per affected user and reports the outcome
// by user id.
func (n *Notifier) Notify(ctx context.Context, fsEvent ApplicationEvent) pushNotification.Report {
	pushes := []pushNotification.Push{}

	if fsEvent.UpdateMask.Updated("status") {
		if push, ok := n.statusPush(ctx, fsEvent); ok {
			pushes = append(pushes, push)
		}
	}

	if fsEvent.UpdateMask.Updated("validatorIds") {
		pushes = append(pushes, n.validatorPushes(ctx, fsEvent)...)
	}

	if len(pushes) == 0 {
		return pushNotification.Report{Failed: map[string]error{}}
	}

	return n.publisher.PublishAll(pushes)
}

func (n *Notifier) statusPush(ctx context.Context, fsEvent ApplicationEvent) (pushNotification.Push, bool) {
	application := fsEvent.Value.Fields
	status := application.Status.Value

	if status == fsEvent.OldValue.Fields.Status.Value {
		return pushNotification.Push{}, false
	}

	format, ok := statusMessages[status]
	if !ok {
		log.Infof("no notification for application status %q", status)
		return pushNotification.Push{}, false
	}

	applicantID := application.ApplicantID.Value
	applicant, err := n.users.User(ctx, applicantID)
	if err != nil {
		log.Errorf("unable to fetch user data for %s: %s", applicantID, err)
		return pushNotification.Push{}, false
	}

	return pushNotification.Push{
		Key:    applicantID,
		Title:  "Update for Application - " + programName(application),
		Body:   fmt.Sprintf(format, programName(application)),
		Tokens: pushNotification.Tokens(applicant.ExpoToken),
		Data:   n.data(fsEvent),
	}, true
}

func (n *Notifier) validatorPushes(ctx context.Context, fsEvent ApplicationEvent) []pushNotification.Push {
	application := fsEvent.Value.Fields

	previous := map[string]bool{}
	for _, id := range fsEvent.OldValue.Fields.ValidatorIDs.Strings() {
		previous[id] = true
	}

	pushes := []pushNotification.Push{}
	for _, validatorID := range application.ValidatorIDs.Strings() {
		if previous[validatorID] {
			continue
		}

		validator, err := n.users.User(ctx, validatorID)
		if err != nil {
			log.Errorf("unable to fetch user data for %s: %s", validatorID, err)
			continue
		}

		pushes = append(pushes, pushNotification.Push{
			Key:    validatorID,
			Title:  "Update for Application - " + programName(application),
			Body:   "You have been assigned as a validator for " + programName(application),
			Tokens: pushNotification.Tokens(validator.ExpoToken),
			Data:   n.data(fsEvent),
		})
	}

	return pushes
}

func (n *Notifier) data(fsEvent ApplicationEvent) map[string]string {
	return map[string]string{
		"category":      category,
		"applicationId": fsEvent.Value.DocumentID(),
		"programId":     fsEvent.Value.Fields.ProgramID.Value,
	}
}

func programName(application Application) string {
	if application.ProgramName.Value != "" {
		return application.ProgramName.Value
	}
	return application.ProgramID.Value
}
