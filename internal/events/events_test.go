package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSinkChannelsAreUsable(t *testing.T) {
	s := NewSink(2)

	s.IndexProgress <- IndexProgress{Current: 1, Total: 2, File: "a.pdf", Status: IndexStatusExtract}
	s.Watcher <- WatcherStatus{Status: WatcherStateWatching, Watched: []string{"/docs"}}

	select {
	case ev := <-s.IndexProgress:
		assert.Equal(t, IndexStatusExtract, ev.Status)
	default:
		t.Fatal("expected buffered IndexProgress event")
	}

	select {
	case ev := <-s.Watcher:
		assert.Equal(t, WatcherStateWatching, ev.Status)
	default:
		t.Fatal("expected buffered Watcher event")
	}
}

func TestSinkCloseClosesAllChannels(t *testing.T) {
	s := NewSink(1)
	s.Close()

	_, ok := <-s.IndexProgress
	assert.False(t, ok)
	_, ok = <-s.IndexDone
	assert.False(t, ok)
	_, ok = <-s.Reindex
	assert.False(t, ok)
	_, ok = <-s.Watcher
	assert.False(t, ok)
	_, ok = <-s.Chat
	assert.False(t, ok)
	_, ok = <-s.Setup
	assert.False(t, ok)
	_, ok = <-s.ModelPull
	assert.False(t, ok)
}
