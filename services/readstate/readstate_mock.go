package readstate

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockAcker is a mock implementation of Acker
type MockAcker struct {
	mock.Mock
}

func (m *MockAcker) AckMessage(ctx context.Context, channelID, messageID string) error {
	args := m.Called(ctx, channelID, messageID)
	return args.Error(0)
}
