package backplane

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusFansOutToAllClients(t *testing.T) {
	bus := NewMemoryBus()
	a := bus.Client()
	b := bus.Client()

	var gotA, gotB []string
	require.NoError(t, a.Subscribe("t1", func(p []byte) { gotA = append(gotA, string(p)) }))
	require.NoError(t, b.Subscribe("t1", func(p []byte) { gotB = append(gotB, string(p)) }))

	require.NoError(t, a.Publish(context.Background(), "t1", []byte("hello")))

	assert.Equal(t, []string{"hello"}, gotA, "publisher receives its own events")
	assert.Equal(t, []string{"hello"}, gotB)
}

func TestMemoryBusTopicIsolation(t *testing.T) {
	bus := NewMemoryBus()
	a := bus.Client()

	var got []string
	require.NoError(t, a.Subscribe("t1", func(p []byte) { got = append(got, string(p)) }))

	require.NoError(t, a.Publish(context.Background(), "t2", []byte("other")))
	assert.Empty(t, got)
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus()
	a := bus.Client()

	var got []string
	require.NoError(t, a.Subscribe("t1", func(p []byte) { got = append(got, string(p)) }))
	require.NoError(t, a.Unsubscribe("t1"))

	require.NoError(t, a.Publish(context.Background(), "t1", []byte("late")))
	assert.Empty(t, got)
}

func TestMemoryBusClosedClientStopsReceiving(t *testing.T) {
	bus := NewMemoryBus()
	a := bus.Client()
	b := bus.Client()

	var got []string
	require.NoError(t, b.Subscribe("t1", func(p []byte) { got = append(got, string(p)) }))
	require.NoError(t, b.Close())

	require.NoError(t, a.Publish(context.Background(), "t1", []byte("x")))
	assert.Empty(t, got)
}

func TestRoomTopic(t *testing.T) {
	assert.Equal(t, "chat:room:g1", RoomTopic("g1"))
}
