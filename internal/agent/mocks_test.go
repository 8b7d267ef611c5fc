package agent

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

// -- LLM Client Mock --

// MockLLMClient mocks the schemas.LLMClient interface consumed by the loop.
type MockLLMClient struct {
	mock.Mock
}

// Generate mocks the LLM generation call.
func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// -- Driver Mock --

// MockDriver mocks the Driver interface.
type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) Navigate(ctx context.Context, rawURL string) error {
	args := m.Called(ctx, rawURL)
	return args.Error(0)
}

func (m *MockDriver) Observe(ctx context.Context) (schemas.PageObservation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return schemas.PageObservation{}, args.Error(1)
	}
	return args.Get(0).(schemas.PageObservation), args.Error(1)
}

func (m *MockDriver) Execute(ctx context.Context, action Action) (string, error) {
	args := m.Called(ctx, action)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) WaitSettle(ctx context.Context) SettleResult {
	args := m.Called(ctx)
	return args.Get(0).(SettleResult)
}

func (m *MockDriver) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) Screenshot(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) DrainPageIssues() PageIssues {
	args := m.Called()
	if args.Get(0) == nil {
		return PageIssues{}
	}
	return args.Get(0).(PageIssues)
}

func (m *MockDriver) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
