package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ganita-server/planner-service/internal/service"
	"ganita-server/shared/models"
)

// MockPlanGenerator — мок service.PlanGenerator.
type MockPlanGenerator struct {
	mock.Mock
}

func (_m *MockPlanGenerator) Generate(ctx context.Context, requestID string, intent models.SceneIntent) (models.ScenePlan, error) {
	ret := _m.Called(ctx, requestID, intent)

	var r0 models.ScenePlan
	if rf, ok := ret.Get(0).(func(context.Context, string, models.SceneIntent) models.ScenePlan); ok {
		r0 = rf(ctx, requestID, intent)
	} else {
		r0 = ret.Get(0).(models.ScenePlan)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, models.SceneIntent) error); ok {
		r1 = rf(ctx, requestID, intent)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

var _ service.PlanGenerator = (*MockPlanGenerator)(nil)

// NewMockPlanGenerator создает новый экземпляр MockPlanGenerator.
func NewMockPlanGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPlanGenerator {
	m := &MockPlanGenerator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
