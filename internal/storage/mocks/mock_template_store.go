package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/knsuzuki/shopmail/internal/notification"
)

// MockTemplateStore is a mock implementation of storage.TemplateStore.
type MockTemplateStore struct {
	mock.Mock
}

//nolint:revive
func (m *MockTemplateStore) FindTemplate(ctx context.Context, id int64) (*notification.TemplateRef, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.TemplateRef), args.Error(1)
}

//nolint:revive
func (m *MockTemplateStore) ListTemplates(ctx context.Context) ([]*notification.TemplateRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.TemplateRef), args.Error(1)
}
