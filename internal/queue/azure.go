package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/classgrade/autograder/internal/logger"
)

const (
	defaultPollInterval    = 30 * time.Second
	defaultMaxDequeueCount = 5
	// Visibility of a message whose handler failed, so it is retried soon instead of after the full timeout
	retryVisibility = 15 * time.Second
)

// Azure storage queues backed queuer
type AzureQueuer struct {
	az              *azqueue.QueueClient
	pollInterval    time.Duration
	maxDequeueCount int64
}

var _ Queuer = (*AzureQueuer)(nil)

type AzureOption func(*AzureQueuer)

// How long to wait before polling an empty queue again
func WithPollInterval(interval time.Duration) AzureOption {
	return func(q *AzureQueuer) {
		q.pollInterval = interval
	}
}

// Messages dequeued more often than this are dropped as poison without being handled
func WithMaxDequeueCount(count int64) AzureOption {
	return func(q *AzureQueuer) {
		q.maxDequeueCount = count
	}
}

// `queueName` must exist in the storage account
func NewAzureQueuer(storageAccountName string,
	storageAccountKey string,
	queueServiceURL string,
	queueName string,
	opts ...AzureOption,
) (*AzureQueuer, error) {
	azureCred, err := azqueue.NewSharedKeyCredential(storageAccountName, storageAccountKey)
	if err != nil {
		return nil, err
	}
	serviceClient, err := azqueue.NewServiceClientWithSharedKeyCredential(
		queueServiceURL,
		azureCred,
		&azqueue.ClientOptions{
			ClientOptions: policy.ClientOptions{
				Retry: policy.RetryOptions{
					MaxRetries: 5,
					RetryDelay: 500 * time.Millisecond,
				},
			},
		},
	)
	if err != nil {
		return nil, err
	}

	q := &AzureQueuer{
		az:              serviceClient.NewQueueClient(queueName),
		pollInterval:    defaultPollInterval,
		maxDequeueCount: defaultMaxDequeueCount,
	}
	for _, opt := range opts {
		opt(q)
	}

	return q, nil
}

func (q *AzureQueuer) Enqueue(ctx context.Context, message any) error {
	ctx, span := tracer.Start(ctx, "Azure.Enqueue")
	defer span.End()

	msgJSON, err := json.Marshal(message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal message")
		return err
	}

	span.AddEvent("serialized_message", trace.WithAttributes(
		attribute.Int("size", len(msgJSON)),
	))

	_, err = q.az.EnqueueMessage(ctx, string(msgJSON), &azqueue.EnqueueMessageOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to enqueue message")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "enqueued message")
	return nil
}

func (q *AzureQueuer) Dequeue(
	ctx context.Context,
	timeout time.Duration,
	handler MessageHandler,
) error {
	ctx, span := tracer.Start(ctx, "Azure.Dequeue", trace.WithAttributes(
		attribute.Int64("timeoutSecs", int64(timeout.Seconds())),
	))
	defer span.End()

	// Gives us a bit of time to stop work before it is released after cancelling the context
	timeoutSeconds := int32(timeout.Seconds()) + 5

	var msg azqueue.DequeueMessagesResponse
loop:
	for {
		var err error
		msg, err = q.az.DequeueMessage(ctx, &azqueue.DequeueMessageOptions{
			VisibilityTimeout: &timeoutSeconds,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to dequeue message")
			return err
		}

		switch len(msg.Messages) {
		case 1:
			break loop
		case 0:
			select {
			// Allow early bail from sleep if context becomes cancelled
			case <-ctx.Done():
				span.RecordError(ctx.Err())
				span.SetStatus(codes.Error, "context cancelled")
				return ctx.Err()
			case <-time.After(q.pollInterval):
				continue
			}
		default:
			err = fmt.Errorf("unexpected number of messages: %d", len(msg.Messages))
			span.RecordError(err)
			span.SetStatus(codes.Error, "unexpected number of messages")
			return err
		}
	}

	msgInstance := msg.Messages[0]

	dequeueCount := int64(0)
	if msgInstance.DequeueCount != nil {
		dequeueCount = *msgInstance.DequeueCount
	}
	span.AddEvent("got_message", trace.WithAttributes(
		attribute.String("messageID", *msgInstance.MessageID),
		attribute.Int64("dequeueCount", dequeueCount),
	))

	if dequeueCount > q.maxDequeueCount {
		logger.Logger.WarnContext(ctx, "dropping message dequeued too many times",
			"messageID", *msgInstance.MessageID,
			"dequeueCount", dequeueCount,
		)
	} else {
		handlerCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := handler.Handle(handlerCtx, []byte(*msgInstance.MessageText))
		var pe *PoisonError
		if err != nil && !errors.As(err, &pe) {
			span.AddEvent("failed_message_handler", trace.WithAttributes(
				attribute.String("error", err.Error()),
			))

			// hand the message back early rather than waiting out the full visibility timeout
			retrySeconds := int32(retryVisibility.Seconds())
			_, uerr := q.az.UpdateMessage(
				context.WithoutCancel(ctx),
				*msgInstance.MessageID,
				*msgInstance.PopReceipt,
				*msgInstance.MessageText,
				&azqueue.UpdateMessageOptions{VisibilityTimeout: &retrySeconds},
			)
			if uerr != nil {
				logger.Logger.WarnContext(ctx, "failed to shorten message visibility", "error", uerr)
			}

			span.RecordError(nil)
			span.SetStatus(codes.Ok, "dequeued message but failed to handle")
			return nil
		}
	}

	_, err := q.az.DeleteMessage(ctx, *msgInstance.MessageID, *msgInstance.PopReceipt, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to remove message")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "dequeued message")
	return nil
}
