package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/name-registrar/events"
	"github.com/ruteri/name-registrar/interfaces"
	"github.com/ruteri/name-registrar/registrar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStorageBackend implements interfaces.StorageBackend for testing
type MockStorageBackend struct {
	mock.Mock
	name string
}

func (m *MockStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	args := m.Called(ctx, id, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorageBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	args := m.Called(ctx, data, contentType)
	return args.Get(0).(interfaces.ContentID), args.Error(1)
}

func (m *MockStorageBackend) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockStorageBackend) Name() string {
	return m.name
}

func (m *MockStorageBackend) LocationURI() string {
	return "mock:" + m.name
}

// exports returns what the admin endpoints persist: a registrar snapshot
// and the event log recorded while building it.
func exports(t *testing.T) map[interfaces.ContentType][]byte {
	t.Helper()
	rec := events.NewRecorder(16)
	cfg := registrar.DefaultConfig(common.HexToAddress("0xad"))
	reg, err := registrar.New(registrar.Options{Config: cfg, Sink: rec, Log: testLogger()})
	require.NoError(t, err)

	caller := common.HexToAddress("0xa1")
	for i := 0; i < 3; i++ {
		hash := common.HexToHash(fmt.Sprintf("0x%x", 0x100+i))
		require.NoError(t, reg.Commit(registrar.Call{Caller: caller, Now: interfaces.Timestamp(1_000_000 + i)}, hash))
	}

	snapshot, err := registrar.MarshalSnapshot(reg.Snapshot(2_000_000))
	require.NoError(t, err)
	eventLog, err := rec.Export()
	require.NoError(t, err)
	require.Equal(t, 3, rec.Len())

	return map[interfaces.ContentType][]byte{
		interfaces.SnapshotType: snapshot,
		interfaces.EventLogType: eventLog,
	}
}

// fetchResult scripts one mock backend in a Fetch case. A nil entry means
// the backend must not be asked at all.
type fetchResult struct {
	available bool
	data      string // "ok" serves the payload, "corrupt" serves other bytes
	err       error
}

type storeResult struct {
	available bool
	err       error
}

func TestMultiStorageBackend_Available(t *testing.T) {
	tests := []struct {
		name     string
		backends []bool
		expected bool
	}{
		{"all backends available", []bool{true, true, true}, true},
		{"one of three available", []bool{false, true, false}, true},
		{"none available", []bool{false, false, false}, false},
		{"no backends", []bool{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var backends []interfaces.StorageBackend
			for i, available := range tt.backends {
				m := &MockStorageBackend{name: fmt.Sprintf("replica-%d", i)}
				m.On("Available", mock.Anything).Return(available).Maybe()
				backends = append(backends, m)
			}

			multi := NewMultiStorageBackend(backends, testLogger())
			assert.Equal(t, tt.expected, multi.Available(context.Background()))

			for _, b := range backends {
				b.(*MockStorageBackend).AssertExpectations(t)
			}
		})
	}
}

func TestMultiStorageBackend_Fetch(t *testing.T) {
	payloads := exports(t)
	errOffline := errors.New("replica offline")

	tests := []struct {
		name     string
		replicas []*fetchResult
		wantErr  error
	}{
		{
			name:     "first replica serves",
			replicas: []*fetchResult{{available: true, data: "ok"}, nil},
		},
		{
			name:     "falls through a failing replica",
			replicas: []*fetchResult{{available: true, err: errOffline}, {available: true, data: "ok"}},
		},
		{
			name:     "skips unavailable replica",
			replicas: []*fetchResult{{available: false}, {available: true, data: "ok"}},
		},
		{
			name:     "skips replica serving bytes that do not match the id",
			replicas: []*fetchResult{{available: true, data: "corrupt"}, {available: true, data: "ok"}},
		},
		{
			name:     "every replica misses",
			replicas: []*fetchResult{{available: true, err: interfaces.ErrContentNotFound}, {available: true, err: interfaces.ErrContentNotFound}},
			wantErr:  interfaces.ErrContentNotFound,
		},
		{
			name:     "every replica fails",
			replicas: []*fetchResult{{available: true, err: errOffline}, {available: true, err: errOffline}},
			wantErr:  errOffline,
		},
		{
			name:     "no replica reachable",
			replicas: []*fetchResult{{available: false}, {available: false}},
			wantErr:  interfaces.ErrBackendUnavailable,
		},
	}

	for _, contentType := range interfaces.ContentTypes {
		payload := payloads[contentType]
		id := interfaces.ComputeID(payload)

		for _, tt := range tests {
			t.Run(contentType.String()+"/"+tt.name, func(t *testing.T) {
				var backends []interfaces.StorageBackend
				for i, r := range tt.replicas {
					m := &MockStorageBackend{name: fmt.Sprintf("replica-%d", i)}
					backends = append(backends, m)
					if r == nil {
						continue
					}
					m.On("Available", mock.Anything).Return(r.available)
					if !r.available {
						continue
					}
					switch r.data {
					case "ok":
						m.On("Fetch", mock.Anything, id, contentType).Return(payload, nil)
					case "corrupt":
						m.On("Fetch", mock.Anything, id, contentType).Return(append([]byte("{}"), payload...), nil)
					default:
						m.On("Fetch", mock.Anything, id, contentType).Return(nil, r.err)
					}
				}

				multi := NewMultiStorageBackend(backends, testLogger())
				data, err := multi.Fetch(context.Background(), id, contentType)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
					assert.Nil(t, data)
				} else {
					require.NoError(t, err)
					assert.Equal(t, payload, data)
				}

				for _, b := range backends {
					b.(*MockStorageBackend).AssertExpectations(t)
				}
			})
		}
	}
}

func TestMultiStorageBackend_Store(t *testing.T) {
	payloads := exports(t)
	errFull := errors.New("disk full")

	tests := []struct {
		name     string
		replicas []storeResult
		wantErr  bool
	}{
		{
			name:     "written to every replica",
			replicas: []storeResult{{true, nil}, {true, nil}},
		},
		{
			name:     "one replica failing is tolerated",
			replicas: []storeResult{{true, nil}, {true, errFull}},
		},
		{
			name:     "unavailable replica is not written",
			replicas: []storeResult{{false, nil}, {true, nil}},
		},
		{
			name:     "every replica failing is an error",
			replicas: []storeResult{{true, errFull}, {true, errFull}},
			wantErr:  true,
		},
	}

	for _, contentType := range interfaces.ContentTypes {
		payload := payloads[contentType]
		id := interfaces.ComputeID(payload)

		for _, tt := range tests {
			t.Run(contentType.String()+"/"+tt.name, func(t *testing.T) {
				var backends []interfaces.StorageBackend
				for i, r := range tt.replicas {
					m := &MockStorageBackend{name: fmt.Sprintf("replica-%d", i)}
					m.On("Available", mock.Anything).Return(r.available)
					if r.available {
						if r.err != nil {
							m.On("Store", mock.Anything, payload, contentType).Return(interfaces.ContentID{}, r.err)
						} else {
							m.On("Store", mock.Anything, payload, contentType).Return(id, nil)
						}
					}
					backends = append(backends, m)
				}

				multi := NewMultiStorageBackend(backends, testLogger())
				got, err := multi.Store(context.Background(), payload, contentType)
				if tt.wantErr {
					assert.Error(t, err)
					assert.Equal(t, interfaces.ContentID{}, got)
				} else {
					require.NoError(t, err)
					assert.Equal(t, id, got)
				}

				for _, b := range backends {
					b.(*MockStorageBackend).AssertExpectations(t)
				}
			})
		}
	}
}

// A snapshot written through the multi backend onto real file replicas can
// be fetched back from any single replica and restored.
func TestMultiStorageBackend_SnapshotRoundTripOnFiles(t *testing.T) {
	payloads := exports(t)
	log := testLogger()

	a, err := NewFileBackend(t.TempDir(), log)
	require.NoError(t, err)
	b, err := NewFileBackend(t.TempDir(), log)
	require.NoError(t, err)
	multi := NewMultiStorageBackend([]interfaces.StorageBackend{a, b}, log)

	ids := map[interfaces.ContentType]interfaces.ContentID{}
	for _, ct := range interfaces.ContentTypes {
		id, err := multi.Store(context.Background(), payloads[ct], ct)
		require.NoError(t, err)
		ids[ct] = id
	}

	raw, err := b.Fetch(context.Background(), ids[interfaces.SnapshotType], interfaces.SnapshotType)
	require.NoError(t, err)
	snap, err := registrar.UnmarshalSnapshot(raw)
	require.NoError(t, err)
	assert.Len(t, snap.Commitments, 3)

	// Namespaces are separate: the event log is not a snapshot.
	_, err = a.Fetch(context.Background(), ids[interfaces.EventLogType], interfaces.SnapshotType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestMultiStorageBackend_LocationURI(t *testing.T) {
	dir := t.TempDir()
	logger := testLogger()
	fb, err := NewFileBackend(dir, logger)
	require.NoError(t, err)

	multi := NewMultiStorageBackend([]interfaces.StorageBackend{fb, fb}, logger)
	assert.Equal(t, "multi:["+fb.LocationURI()+","+fb.LocationURI()+"]", multi.LocationURI())
	assert.Equal(t, []string{fb.LocationURI(), fb.LocationURI()}, multi.Locations())
}
