package clients

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/ruteri/name-registrar/api"
	"github.com/stretchr/testify/mock"
)

// MockRegistrarAPI implements RegistrarAPI for testing.
type MockRegistrarAPI struct {
	mock.Mock
}

func (m *MockRegistrarAPI) Call(ctx context.Context, op api.Operation, payment *uint256.Int, out any) error {
	args := m.Called(ctx, op, payment, out)
	return args.Error(0)
}

func (m *MockRegistrarAPI) Snapshot(ctx context.Context) (*api.SnapshotResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.SnapshotResponse), args.Error(1)
}

func (m *MockRegistrarAPI) ExportEvents(ctx context.Context) (*api.SnapshotResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.SnapshotResponse), args.Error(1)
}
