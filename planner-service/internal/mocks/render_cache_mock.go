package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ganita-server/shared/database"
	"ganita-server/shared/models"
)

// MockRenderCache — мок database.RenderCache.
type MockRenderCache struct {
	mock.Mock
}

func (_m *MockRenderCache) Get(ctx context.Context, fingerprint string) (models.RenderResult, error) {
	ret := _m.Called(ctx, fingerprint)

	var r0 models.RenderResult
	if rf, ok := ret.Get(0).(func(context.Context, string) models.RenderResult); ok {
		r0 = rf(ctx, fingerprint)
	} else {
		r0 = ret.Get(0).(models.RenderResult)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, fingerprint)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

func (_m *MockRenderCache) Set(ctx context.Context, result models.RenderResult) error {
	ret := _m.Called(ctx, result)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, models.RenderResult) error); ok {
		r0 = rf(ctx, result)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

var _ database.RenderCache = (*MockRenderCache)(nil)

// NewMockRenderCache создает новый экземпляр MockRenderCache.
func NewMockRenderCache(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRenderCache {
	m := &MockRenderCache{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
