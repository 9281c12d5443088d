package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	mu       sync.Mutex
	payloads []Payload
	bodies   [][]byte
	headers  []http.Header
}

func newSink(t *testing.T) (*sink, *httptest.Server) {
	t.Helper()
	s := &sink{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload Payload
		require.NoError(t, json.Unmarshal(body, &payload))

		s.mu.Lock()
		s.payloads = append(s.payloads, payload)
		s.bodies = append(s.bodies, body)
		s.headers = append(s.headers, r.Header.Clone())
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *sink) received() []Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Payload(nil), s.payloads...)
}

func waitForPayloads(t *testing.T, s *sink, n int) []Payload {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(s.received()) >= n
	}, 2*time.Second, 10*time.Millisecond)
	return s.received()
}

func TestDispatch_DeliversPayload(t *testing.T) {
	s, srv := newSink(t)
	d := NewDispatcher(Config{URL: srv.URL, AllowedEvents: []string{AllowAll}, Workers: 1})
	defer d.Shutdown()

	d.Dispatch("alpha", EventMessagesUpsert, map[string]interface{}{"key": "value"})

	payloads := waitForPayloads(t, s, 1)
	assert.Equal(t, "alpha", payloads[0].Instance)
	assert.Equal(t, EventMessagesUpsert, payloads[0].Type)
	assert.Equal(t, map[string]interface{}{"key": "value"}, payloads[0].Data)
}

func TestDispatch_FiltersByAllowList(t *testing.T) {
	s, srv := newSink(t)
	d := NewDispatcher(Config{
		URL:           srv.URL,
		AllowedEvents: []string{"MESSAGES_UPSERT", "CONNECTION_UPDATE"},
		Workers:       1,
	})
	defer d.Shutdown()

	d.Dispatch("alpha", EventPresenceUpdate, nil)
	d.Dispatch("alpha", EventMessagesUpsert, nil)
	d.Dispatch("alpha", EventChatsDelete, nil)
	d.Dispatch("alpha", EventConnectionUpdate, nil)

	payloads := waitForPayloads(t, s, 2)
	require.Len(t, payloads, 2)
	assert.Equal(t, EventMessagesUpsert, payloads[0].Type)
	assert.Equal(t, EventConnectionUpdate, payloads[1].Type)
}

func TestDispatch_WildcardAllowsEverything(t *testing.T) {
	d := NewDispatcher(Config{URL: "http://example.invalid", AllowedEvents: []string{"all"}})
	defer d.Shutdown()

	assert.True(t, d.Allowed(EventPresenceUpdate))
	assert.True(t, d.Allowed(EventChatsDelete))
	assert.True(t, d.Allowed(EventType("SOMETHING_NEW")))
}

func TestDispatch_AllowListTrimsWhitespace(t *testing.T) {
	d := NewDispatcher(Config{URL: "http://example.invalid", AllowedEvents: []string{" MESSAGES_UPSERT ", ""}})
	defer d.Shutdown()

	assert.True(t, d.Allowed(EventMessagesUpsert))
	assert.False(t, d.Allowed(EventPresenceUpdate))
}

func TestDispatch_NoURLIsDisabled(t *testing.T) {
	d := NewDispatcher(Config{AllowedEvents: []string{AllowAll}})
	defer d.Shutdown()

	// Must not panic or block without a configured sink.
	d.Dispatch("alpha", EventMessagesUpsert, nil)
}

func TestDispatch_SignsBodyWithSecret(t *testing.T) {
	s, srv := newSink(t)
	d := NewDispatcher(Config{
		URL:           srv.URL,
		AllowedEvents: []string{AllowAll},
		Secret:        "hunter2",
		Workers:       1,
	})
	defer d.Shutdown()

	d.Dispatch("alpha", EventMessagesUpsert, "data")
	waitForPayloads(t, s, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	mac := hmac.New(sha256.New, []byte("hunter2"))
	mac.Write(s.bodies[0])
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	assert.Equal(t, expected, s.headers[0].Get("X-Webhook-Signature"))
	assert.Equal(t, "MESSAGES_UPSERT", s.headers[0].Get("X-Webhook-Event"))
}

func TestDispatch_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	// No workers drain the queue, so the second event must be dropped
	// without blocking the caller.
	d := &Dispatcher{
		url:      "http://example.invalid",
		allowAll: true,
		queue:    make(chan Payload, 1),
	}

	done := make(chan struct{})
	go func() {
		d.Dispatch("alpha", EventMessagesUpsert, nil)
		d.Dispatch("alpha", EventMessagesUpsert, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}
	assert.Len(t, d.queue, 1)
}
