package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/shopspring/decimal"
)

// TransferCompleted is published after a transfer commits.
type TransferCompleted struct {
	EntryID       int64           `json:"entry_id"`
	UserID        int64           `json:"user_id"`
	FromAccountID int64           `json:"from_bank_acc_id"`
	ToAccountID   int64           `json:"to_bank_acc_id"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Publisher announces committed transfers to downstream consumers.
//
//go:generate mockery --name Publisher --output ../mocks --outpkg mocks
type Publisher interface {
	PublishTransfer(ctx context.Context, ev TransferCompleted) error
}

// SQSAPI is the subset of the SQS client used by SQSPublisher.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher implements Publisher using AWS SQS.
type SQSPublisher struct {
	Client   SQSAPI
	QueueURL string
}

// NewSQSPublisher creates a new SQSPublisher.
func NewSQSPublisher(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{Client: client, QueueURL: queueURL}
}

var _ Publisher = (*SQSPublisher)(nil)

// PublishTransfer sends the event as a JSON message.
func (p *SQSPublisher) PublishTransfer(ctx context.Context, ev TransferCompleted) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal transfer event: %w", err)
	}

	_, err = p.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.QueueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}
	return nil
}

// Nop discards events.
type Nop struct{}

var _ Publisher = Nop{}

// PublishTransfer does nothing.
func (Nop) PublishTransfer(context.Context, TransferCompleted) error { return nil }
