package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRoutesByKind(t *testing.T) {
	h := NewHub()
	progress := h.Subscribe(KindProgress)
	complete := h.Subscribe(KindComplete)
	defer h.Unsubscribe(KindComplete, complete)

	h.Publish(KindProgress, json.RawMessage(`{"progress":10,"ip":"a"}`))

	select {
	case raw := <-progress:
		assert.JSONEq(t, `{"progress":10,"ip":"a"}`, string(raw))
	default:
		t.Fatal("progress subscriber did not receive event")
	}

	select {
	case <-complete:
		t.Fatal("complete subscriber received foreign kind")
	default:
	}

	h.Unsubscribe(KindProgress, progress)
	_, open := <-progress
	assert.False(t, open, "unsubscribe must close the channel")
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe(KindLog)
	defer h.Unsubscribe(KindLog, ch)

	// переполняем буфер: лишнее молча теряется, Publish не блокируется
	for i := 0; i < 200; i++ {
		h.Publish(KindLog, json.RawMessage(`{}`))
	}
	require.Equal(t, 64, len(ch))
}

func TestHubSinkBlocksInsteadOfDropping(t *testing.T) {
	h := NewHub()
	s := h.Attach(KindResult)
	defer h.Detach(KindResult, s)

	// буфер стока целиком занят
	for i := 0; i < 64; i++ {
		h.Publish(KindResult, json.RawMessage(`{}`))
	}

	published := make(chan struct{})
	go func() {
		h.Publish(KindResult, json.RawMessage(`{}`))
		close(published)
	}()

	select {
	case <-published:
		t.Fatal("publish to a full sink must block, not drop")
	case <-time.After(50 * time.Millisecond):
	}

	<-s.C // потребитель освободил место
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("publish did not resume after a consumer read")
	}
	require.Equal(t, 64, len(s.C))
}

func TestHubDetachReleasesPendingPublish(t *testing.T) {
	h := NewHub()
	s := h.Attach(KindResult)

	for i := 0; i < 64; i++ {
		h.Publish(KindResult, json.RawMessage(`{}`))
	}

	published := make(chan struct{})
	go func() {
		h.Publish(KindResult, json.RawMessage(`{}`))
		close(published)
	}()

	h.Detach(KindResult, s)
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("detach must release a blocked publish")
	}
}
