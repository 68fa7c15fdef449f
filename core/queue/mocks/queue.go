package mocks

import (
	"context"

	"submission-composer/core/queue"

	"github.com/stretchr/testify/mock"
)

// Sender is a mock implementation of queue.Sender
type Sender struct {
	mock.Mock
}

func (m *Sender) Send(ctx context.Context, attributes map[string]string, body []byte) (string, error) {
	args := m.Called(ctx, attributes, body)
	return args.String(0), args.Error(1)
}

func (m *Sender) Close() error {
	return m.Called().Error(0)
}

// Receiver is a mock implementation of queue.Receiver
type Receiver struct {
	mock.Mock
}

func (m *Receiver) Receive(ctx context.Context, max int) ([]queue.Message, error) {
	args := m.Called(ctx, max)
	if msgs, ok := args.Get(0).([]queue.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Receiver) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *Receiver) Close() error {
	return m.Called().Error(0)
}
