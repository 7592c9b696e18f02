package worker

import (
	"context"

	"github.com/stretchr/testify/mock"

	"wordvec/internal/model"
)

// MockQuerier is a mock implementation of Querier using testify/mock.
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) Resolve(ctx context.Context, words []string) map[string]model.Vector {
	args := m.Called(ctx, words)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(map[string]model.Vector)
}

func (m *MockQuerier) Similarity(ctx context.Context, a, b string) (Response, error) {
	args := m.Called(ctx, a, b)
	return args.Get(0).(Response), args.Error(1)
}

func (m *MockQuerier) Neighbors(ctx context.Context, positive, negative []string, k int) (Response, error) {
	args := m.Called(ctx, positive, negative, k)
	return args.Get(0).(Response), args.Error(1)
}

func (m *MockQuerier) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockQuerier) Alive() bool {
	args := m.Called()
	return args.Bool(0)
}
