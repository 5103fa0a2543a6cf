package invitation

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// MailPublisher hands invitations to the async email delivery queue.
type MailPublisher interface {
	PublishInvitation(ctx context.Context, inv *InvitationItem) error
}

// MailMessage is the SQS message body for invitation email delivery.
type MailMessage struct {
	OrgID        string `json:"orgId"`
	InvitationID string `json:"invitationId"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	ScheduledAt  string `json:"scheduledAt,omitempty"`
}

// SQSSender abstracts SQS send operations for dependency inversion.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher publishes invitation mail requests to an SQS queue.
type SQSPublisher struct {
	client   SQSSender
	queueURL string
}

// NewSQSPublisher creates a new SQSPublisher.
func NewSQSPublisher(client SQSSender, queueURL string) *SQSPublisher {
	return &SQSPublisher{
		client:   client,
		queueURL: queueURL,
	}
}

// PublishInvitation sends an invitation mail message to SQS.
func (p *SQSPublisher) PublishInvitation(ctx context.Context, inv *InvitationItem) error {
	msg := MailMessage{
		OrgID:        inv.OrgID,
		InvitationID: inv.InvitationID,
		Email:        inv.Email,
		Role:         inv.Role,
		ScheduledAt:  inv.ScheduledAt,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	bodyStr := string(body)
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &p.queueURL,
		MessageBody: &bodyStr,
	})
	return err
}
