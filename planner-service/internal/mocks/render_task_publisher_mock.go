package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	plannerMessaging "ganita-server/planner-service/internal/messaging"
	sharedMessaging "ganita-server/shared/messaging"
)

// MockRenderTaskPublisher — мок messaging.RenderTaskPublisher.
type MockRenderTaskPublisher struct {
	mock.Mock
}

func (_m *MockRenderTaskPublisher) PublishRenderTask(ctx context.Context, payload sharedMessaging.RenderTaskPayload) error {
	ret := _m.Called(ctx, payload)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, sharedMessaging.RenderTaskPayload) error); ok {
		r0 = rf(ctx, payload)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

var _ plannerMessaging.RenderTaskPublisher = (*MockRenderTaskPublisher)(nil)

// NewMockRenderTaskPublisher создает новый экземпляр MockRenderTaskPublisher.
func NewMockRenderTaskPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRenderTaskPublisher {
	m := &MockRenderTaskPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
