package connectivity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_StartsOffline(t *testing.T) {
	m := NewMonitor(nil)
	assert.Equal(t, StateOffline, m.State())
	assert.False(t, m.IsOnline())
}

func TestMonitor_EdgeTriggered(t *testing.T) {
	m := NewMonitor(nil)

	assert.True(t, m.ReportOnline())
	assert.False(t, m.ReportOnline(), "repeat report is not an edge")
	assert.True(t, m.ReportOffline())
	assert.False(t, m.ReportOffline())
}

func TestMonitor_SubscribeReceivesTransition(t *testing.T) {
	m := NewMonitor(nil)
	ch, cancel := m.Subscribe()
	defer cancel()

	m.ReportOnline()

	select {
	case ev := <-ch:
		assert.Equal(t, StateOffline, ev.From)
		assert.Equal(t, StateOnline, ev.To)
		assert.False(t, ev.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected a transition event")
	}
}

func TestMonitor_NoEventOnRepeatReport(t *testing.T) {
	m := NewMonitor(nil)
	m.ReportOnline()

	ch, cancel := m.Subscribe()
	defer cancel()

	m.ReportOnline()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMonitor_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewMonitor(nil)
	_, cancel := m.Subscribe()
	defer cancel()

	// Channel capacity is 1; further edges must not block the reporter.
	done := make(chan struct{})
	go func() {
		m.ReportOnline()
		m.ReportOffline()
		m.ReportOnline()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reporter blocked on slow subscriber")
	}
}

func TestMonitor_CancelClosesChannel(t *testing.T) {
	m := NewMonitor(nil)
	ch, cancel := m.Subscribe()
	cancel()

	_, open := <-ch
	require.False(t, open)

	// Events after cancel go nowhere.
	m.ReportOnline()
}
