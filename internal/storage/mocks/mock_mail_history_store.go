package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/knsuzuki/shopmail/internal/notification"
	"github.com/knsuzuki/shopmail/internal/storage"
)

// MockMailHistoryStore is a mock implementation of storage.MailHistoryStore.
type MockMailHistoryStore struct {
	mock.Mock
}

//nolint:revive
func (m *MockMailHistoryStore) RecordMail(ctx context.Context, rec notification.HistoryRecord) (int64, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(int64), args.Error(1)
}

//nolint:revive
func (m *MockMailHistoryStore) ListMailHistory(ctx context.Context, filter storage.MailHistoryFilter) ([]notification.HistoryRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notification.HistoryRecord), args.Error(1)
}
