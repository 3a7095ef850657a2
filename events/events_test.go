package events

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/ruteri/name-registrar/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(seq uint64) interfaces.Event {
	return interfaces.Event{Seq: seq, Kind: interfaces.EventRegistered, Name: "a.vne"}
}

func TestRecorder_Since(t *testing.T) {
	r := NewRecorder(10)
	for i := uint64(1); i <= 5; i++ {
		r.Emit(ev(i))
	}

	got := r.Since(2, 0)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(3), got[0].Seq)

	got = r.Since(0, 2)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[1].Seq)

	assert.Empty(t, r.Since(5, 0))
}

func TestRecorder_DropsOldest(t *testing.T) {
	r := NewRecorder(3)
	for i := uint64(1); i <= 5; i++ {
		r.Emit(ev(i))
	}
	assert.Equal(t, 3, r.Len())
	got := r.Since(0, 0)
	assert.Equal(t, uint64(3), got[0].Seq)
	assert.Equal(t, uint64(5), got[2].Seq)
}

func TestRecorder_Export(t *testing.T) {
	r := NewRecorder(0)
	r.Emit(ev(1))

	data, err := r.Export()
	require.NoError(t, err)

	var decoded []interfaces.Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "a.vne", decoded[0].Name)
}

func TestFanoutAndLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var seen []uint64
	f := Fanout{NewLog(logger), SinkFunc(func(e interfaces.Event) { seen = append(seen, e.Seq) })}
	f.Emit(ev(7))

	assert.Equal(t, []uint64{7}, seen)
	assert.Contains(t, buf.String(), "kind=Registered")
	assert.Contains(t, buf.String(), "name=a.vne")
}
