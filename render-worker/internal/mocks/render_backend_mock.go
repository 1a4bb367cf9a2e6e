// Package mocks содержит моки интерфейсов render-worker для тестов.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ganita-server/render-worker/internal/service"
	sharedMessaging "ganita-server/shared/messaging"
)

// MockRenderBackend — мок service.RenderBackend.
type MockRenderBackend struct {
	mock.Mock
}

func (_m *MockRenderBackend) Render(ctx context.Context, task sharedMessaging.RenderTaskPayload) (string, error) {
	ret := _m.Called(ctx, task)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, sharedMessaging.RenderTaskPayload) string); ok {
		r0 = rf(ctx, task)
	} else {
		r0 = ret.Get(0).(string)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, sharedMessaging.RenderTaskPayload) error); ok {
		r1 = rf(ctx, task)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

var _ service.RenderBackend = (*MockRenderBackend)(nil)

// NewMockRenderBackend создает новый экземпляр MockRenderBackend.
func NewMockRenderBackend(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRenderBackend {
	m := &MockRenderBackend{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
