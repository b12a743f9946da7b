package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (s *MockStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := s.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (s *MockStore) Set(ctx context.Context, key string, value []byte) error {
	args := s.Called(ctx, key, value)
	return args.Error(0)
}

func (s *MockStore) ExtendTTL(ctx context.Context, key string, threshold, extendTo time.Duration) error {
	args := s.Called(ctx, key, threshold, extendTo)
	return args.Error(0)
}

type MockVerifier struct {
	mock.Mock
}

func (v *MockVerifier) RequireAuth(ctx context.Context, identity string) error {
	args := v.Called(ctx, identity)
	return args.Error(0)
}

type MockClock struct {
	mock.Mock
}

func (c *MockClock) Now() uint64 {
	args := c.Called()
	return args.Get(0).(uint64)
}
