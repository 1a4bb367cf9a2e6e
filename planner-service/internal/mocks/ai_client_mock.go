// Package mocks содержит моки интерфейсов planner-service для тестов.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ganita-server/planner-service/internal/planner"
)

// MockAIClient — мок planner.AIClient.
type MockAIClient struct {
	mock.Mock
}

func (_m *MockAIClient) GenerateText(ctx context.Context, requestID string, systemPrompt string, userInput string, params planner.GenerationParams) (string, planner.UsageInfo, error) {
	ret := _m.Called(ctx, requestID, systemPrompt, userInput, params)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, string, string, string, planner.GenerationParams) string); ok {
		r0 = rf(ctx, requestID, systemPrompt, userInput, params)
	} else {
		r0 = ret.Get(0).(string)
	}

	var r1 planner.UsageInfo
	if rf, ok := ret.Get(1).(func(context.Context, string, string, string, planner.GenerationParams) planner.UsageInfo); ok {
		r1 = rf(ctx, requestID, systemPrompt, userInput, params)
	} else {
		r1 = ret.Get(1).(planner.UsageInfo)
	}

	var r2 error
	if rf, ok := ret.Get(2).(func(context.Context, string, string, string, planner.GenerationParams) error); ok {
		r2 = rf(ctx, requestID, systemPrompt, userInput, params)
	} else {
		r2 = ret.Error(2)
	}

	return r0, r1, r2
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ planner.AIClient = (*MockAIClient)(nil)

// NewMockAIClient создает новый экземпляр MockAIClient.
func NewMockAIClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAIClient {
	m := &MockAIClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
