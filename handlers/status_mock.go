package handlers

import (
	"github.com/stretchr/testify/mock"

	"drocsid/models"
)

// MockStatusSource is a mock implementation of StatusSource
type MockStatusSource struct {
	mock.Mock
}

func (m *MockStatusSource) Status() models.StatusReport {
	args := m.Called()
	return args.Get(0).(models.StatusReport)
}
