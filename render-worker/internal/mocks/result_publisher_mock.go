package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	workerMessaging "ganita-server/render-worker/internal/messaging"
	sharedMessaging "ganita-server/shared/messaging"
)

// MockResultPublisher — мок messaging.ResultPublisher.
type MockResultPublisher struct {
	mock.Mock
}

func (_m *MockResultPublisher) PublishRenderResult(ctx context.Context, payload sharedMessaging.RenderResultPayload) error {
	ret := _m.Called(ctx, payload)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, sharedMessaging.RenderResultPayload) error); ok {
		r0 = rf(ctx, payload)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

var _ workerMessaging.ResultPublisher = (*MockResultPublisher)(nil)

// NewMockResultPublisher создает новый экземпляр MockResultPublisher.
func NewMockResultPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockResultPublisher {
	m := &MockResultPublisher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
