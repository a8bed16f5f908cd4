package applicationNotification

import (
	"github.com/educhainChat/firestoreEvent"
)

// Application is an applications document as delivered by the Firestore
// trigger.
type Application struct {
	ApplicantID  firestoreEvent.StringValue `json:"applicantId"`
	ProgramID    firestoreEvent.StringValue `json:"programId"`
	ProgramName  firestoreEvent.StringValue `json:"programName"`
	Status       firestoreEvent.StringValue `json:"status"`
	ValidatorIDs firestoreEvent.ArrayValue  `json:"validatorIds"`
}

type ApplicationEvent = firestoreEvent.Event[Application]

type UserData struct {
	Name      string `firestore:"name"`
	ExpoToken string `firestore:"expoToken"`
}
