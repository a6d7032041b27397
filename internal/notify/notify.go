// Package notify sends the best-effort side notifications: a welcome mail on
// registration and job summaries on the reports topic.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"session-handlers/internal/common/config"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/models"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// EmailSender is satisfied by the SES client wrapper.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// Publisher is satisfied by the SNS client wrapper.
type Publisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Notifier delivers both kinds of notification. A nil sender disables that
// channel and its calls return nil.
type Notifier struct {
	mail      EmailSender
	fromEmail string
	topic     Publisher
	topicARN  string
	logger    logger.Logger
}

// New wires only the channels enabled in cfg.
func New(cfg config.NotificationConfig, mail EmailSender, topic Publisher, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	n := &Notifier{logger: log.WithFields(map[string]interface{}{"component": "notify"})}
	if cfg.SES.Enabled && cfg.SES.FromEmail != "" {
		n.mail = mail
		n.fromEmail = cfg.SES.FromEmail
	}
	if cfg.SNS.Enabled && cfg.SNS.TopicARN != "" {
		n.topic = topic
		n.topicARN = cfg.SNS.TopicARN
	}
	return n
}

// Nop returns a Notifier with every channel disabled.
func Nop() *Notifier {
	return &Notifier{logger: logger.NewNoOpLogger()}
}

// UserRegistered sends the welcome mail.
func (n *Notifier) UserRegistered(ctx context.Context, u *models.User) error {
	if n.mail == nil {
		return nil
	}

	name := u.Name
	if name == "" {
		name = "there"
	}
	_, err := n.mail.SendEmail(ctx, &ses.SendEmailInput{
		Source:      sdkaws.String(n.fromEmail),
		Destination: &sestypes.Destination{ToAddresses: []string{u.Email}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: sdkaws.String("Welcome")},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: sdkaws.String(fmt.Sprintf("Hi %s, your account is ready.", name))},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	n.logger.Debug("welcome email sent", map[string]interface{}{"email": logger.MaskEmail(u.Email)})
	return nil
}

// Report publishes payload as JSON with subject as the message subject.
func (n *Notifier) Report(ctx context.Context, subject string, payload interface{}) error {
	if n.topic == nil {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s report: %w", subject, err)
	}
	_, err = n.topic.Publish(ctx, &sns.PublishInput{
		TopicArn: sdkaws.String(n.topicARN),
		Subject:  sdkaws.String(subject),
		Message:  sdkaws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("publish %s report: %w", subject, err)
	}
	return nil
}
