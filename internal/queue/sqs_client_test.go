package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSClientSendEncodesBody(t *testing.T) {
	fake := &fakeSQS{}
	client := &SQSClient{client: fake, queueURL: "https://sqs.local/queue"}

	msg := Message{Type: TypeRankingCompleted, SessionID: "s1", UserID: "u1", ResultCount: 2, Version: MessageVersion}
	if err := client.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if aws.ToString(fake.input.QueueUrl) != "https://sqs.local/queue" {
		t.Fatalf("unexpected queue url %q", aws.ToString(fake.input.QueueUrl))
	}
	got, err := DecodeMessage([]byte(aws.ToString(fake.input.MessageBody)))
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.SessionID != "s1" || got.ResultCount != 2 {
		t.Fatalf("unexpected body %+v", got)
	}
	if attr := fake.input.MessageAttributes["type"]; aws.ToString(attr.StringValue) != TypeRankingCompleted {
		t.Fatalf("missing type attribute")
	}
}

func TestSQSClientWrapsSendError(t *testing.T) {
	sendErr := errors.New("throttled")
	client := &SQSClient{client: &fakeSQS{err: sendErr}, queueURL: "q"}
	err := client.Send(context.Background(), Message{Type: TypeRankingCompleted, SessionID: "s1"})
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}

func TestNewSQSClientRequiresURL(t *testing.T) {
	if _, err := NewSQSClient(context.Background(), " ", ""); err == nil {
		t.Fatalf("expected error for empty queue url")
	}
}
