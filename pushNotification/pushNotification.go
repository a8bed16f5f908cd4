package pushNotification

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	log "github.com/sirupsen/logrus"
)

var ErrNoRecipients = errors.New("no expo tokens to send notification")

// Sender is satisfied by *expo.PushClient.
type Sender interface {
	Publish(message *expo.PushMessage) (expo.PushResponse, error)
}

type Push struct {
	// Key identifies the push in a Report, usually the recipient user id.
	Key      string
	Title    string
	Body     string
	Tokens   []expo.ExponentPushToken
	Priority string
	Data     map[string]string
}

type Report struct {
	Sent   []string
	Failed map[string]error
}

func (r Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}

	keys := make([]string, 0, len(r.Failed))
	for key := range r.Failed {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return fmt.Errorf("%d notifications failed: %v", len(keys), keys)
}

type Publisher struct {
	sender Sender
}

func NewPublisher(sender Sender) *Publisher {
	return &Publisher{sender: sender}
}

// Publish sends one push and validates the ticket.
func (p *Publisher) Publish(push Push) error {
	if len(push.Tokens) == 0 {
		return ErrNoRecipients
	}

	priority := push.Priority
	if priority == "" {
		priority = expo.DefaultPriority
	}

	response, err := p.sender.Publish(&expo.PushMessage{
		To:       push.Tokens,
		Body:     push.Body,
		Sound:    "default",
		Title:    push.Title,
		Priority: priority,
		Data:     push.Data,
	})
	if err != nil {
		return err
	}

	if err := response.ValidateResponse(); err != nil {
		return err
	}

	return nil
}

// PublishAll sends every push concurrently and waits for all of them. A
// failed push does not stop the others.
func (p *Publisher) PublishAll(pushes []Push) Report {
	report := Report{Failed: map[string]error{}}
	if len(pushes) == 0 {
		log.Error("no expo notifications to send")
		return report
	}

	var mu sync.Mutex
	waitGroup := new(sync.WaitGroup)
	waitGroup.Add(len(pushes))

	for _, push := range pushes {
		go func(push Push) {
			defer waitGroup.Done()

			err := p.Publish(push)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.WithField("key", push.Key).Errorf("push failed: %s", err)
				report.Failed[push.Key] = err
				return
			}
			report.Sent = append(report.Sent, push.Key)
		}(push)
	}

	waitGroup.Wait()
	sort.Strings(report.Sent)

	return report
}

// Tokens parses raw Expo tokens, dropping invalid ones.
func Tokens(raw ...string) []expo.ExponentPushToken {
	tokens := []expo.ExponentPushToken{}
	for _, r := range raw {
		token, err := expo.NewExponentPushToken(r)
		if err != nil {
			log.Errorf("invalid expo token %q", r)
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}
