package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/knsuzuki/shopmail/internal/notification"
	"github.com/knsuzuki/shopmail/internal/service"
)

// MockMailService is a mock implementation of service.MailService.
type MockMailService struct {
	mock.Mock
}

//nolint:revive
func (m *MockMailService) Send(ctx context.Context, kind notification.Kind, body json.RawMessage) (*service.SendResponse, error) {
	args := m.Called(ctx, kind, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SendResponse), args.Error(1)
}

//nolint:revive
func (m *MockMailService) ListHistory(ctx context.Context, orderID int64, limit int) ([]notification.HistoryRecord, error) {
	args := m.Called(ctx, orderID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notification.HistoryRecord), args.Error(1)
}

//nolint:revive
func (m *MockMailService) ListTemplates(ctx context.Context) ([]*notification.TemplateRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.TemplateRef), args.Error(1)
}

//nolint:revive
func (m *MockMailService) Kinds() []service.KindInfo {
	args := m.Called()
	return args.Get(0).([]service.KindInfo)
}
