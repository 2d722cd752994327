package events

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	var exact, wildcard atomic.Int32

	bus.Subscribe(TurnStarted, func(e Event) error {
		exact.Add(1)
		return nil
	})
	bus.Subscribe(Wildcard, func(e Event) error {
		wildcard.Add(1)
		return errors.New("ignored")
	})

	bus.Publish(Event{Type: TurnStarted, Data: map[string]any{"sessionId": "s1"}})
	bus.Publish(Event{Type: TurnFinished})

	assert.Eventually(t, func() bool {
		return exact.Load() == 1 && wildcard.Load() == 2
	}, time.Second, 10*time.Millisecond)

	types := bus.GetPublishedEventTypes()
	assert.Contains(t, types, TurnStarted)
	assert.Contains(t, types, TurnFinished)
}

func TestEventBus_PanicRecovered(t *testing.T) {
	bus := NewEventBus()
	var after atomic.Int32
	bus.Subscribe(ASRFailed, func(e Event) error { panic("boom") })
	bus.Subscribe(ASRFailed, func(e Event) error {
		after.Add(1)
		return nil
	})

	bus.Publish(Event{Type: ASRFailed})
	assert.Eventually(t, func() bool { return after.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	var n atomic.Int32
	bus.Subscribe(VoiceConnected, func(e Event) error {
		n.Add(1)
		return nil
	})
	bus.Unsubscribe(VoiceConnected)
	bus.Publish(Event{Type: VoiceConnected})

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, n.Load())
}
