package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (r *recordingSender) Send(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type blockingSender struct {
	release chan struct{}
}

func (b *blockingSender) Send(ctx context.Context, _ Notification) error {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}

type panickingSender struct{}

func (panickingSender) Send(context.Context, Notification) error {
	panic("boom")
}

func TestDispatcherDeliversQueuedNotifications(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, Options{QueueSize: 10, Workers: 2, RatePerSecond: 1000})

	for i := 0; i < 5; i++ {
		assert.True(t, d.Dispatch(Notification{UserID: "u", Title: "t", Body: "b"}))
	}
	d.Close()

	assert.Equal(t, 5, sender.count())
}

func TestDispatcherSwallowsSenderFailures(t *testing.T) {
	sender := &recordingSender{err: errors.New("gateway down")}
	d := NewDispatcher(sender, Options{QueueSize: 4, Workers: 1, RatePerSecond: 1000})

	assert.True(t, d.Dispatch(Notification{UserID: "u"}))
	assert.NotPanics(t, d.Close)
	assert.Equal(t, 1, sender.count())
}

func TestDispatcherRecoversFromPanickingSender(t *testing.T) {
	d := NewDispatcher(panickingSender{}, Options{QueueSize: 4, Workers: 1, RatePerSecond: 1000})

	assert.True(t, d.Dispatch(Notification{UserID: "u"}))
	assert.True(t, d.Dispatch(Notification{UserID: "v"}))
	assert.NotPanics(t, d.Close)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	d := NewDispatcher(sender, Options{QueueSize: 1, Workers: 1, RatePerSecond: 1000, SendTimeout: 5 * time.Second})

	// First item is picked up by the worker and blocks; wait until the
	// queue is empty again so the next item fills it.
	require.True(t, d.Dispatch(Notification{UserID: "a"}))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.True(t, d.Dispatch(Notification{UserID: "b"}))

	assert.False(t, d.Dispatch(Notification{UserID: "c"}))

	close(sender.release)
	d.Close()
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, Options{})
	d.Close()
	d.Close()

	assert.False(t, d.Dispatch(Notification{UserID: "u"}))
}

func TestWebhookSenderPostsJSON(t *testing.T) {
	var (
		got  Notification
		auth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, "secret")
	err := s.Send(context.Background(), Notification{
		UserID:   "user-1",
		Title:    "Risk zone nearby",
		Body:     "You are approaching Mirpur, a critical-risk zone.",
		Metadata: map[string]string{"zone_id": "z1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "z1", got.Metadata["zone_id"])
}

func TestWebhookSenderReportsGatewayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookSender(srv.URL, "").Send(context.Background(), Notification{UserID: "u"})
	assert.ErrorContains(t, err, "502")
}
