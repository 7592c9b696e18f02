package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordvec/internal/metrics"
	"wordvec/internal/model"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func newModel(t *testing.T, dim int, entries ...model.Entry) *model.Model {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, model.Encode(&buf, dim, entries))
	m, err := model.Decode(&buf)
	require.NoError(t, err)
	return m
}

func petModel(t *testing.T) *model.Model {
	return newModel(t, 2,
		model.Entry{Word: "cat", Vector: model.Vector{1, 2}},
		model.Entry{Word: "dog", Vector: model.Vector{3, 4}},
		model.Entry{Word: "kitten", Vector: model.Vector{1, 2.1}},
	)
}

// start runs a worker over m and stops it when the test ends.
func start(t *testing.T, m *model.Model, capacity int, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithLogger(testLog), WithTimeout(5 * time.Second)}, opts...)
	client, inbox := NewChannel(capacity, opts...)
	w := New(m, inbox, testLog, metrics.New(prometheus.NewRegistry()))
	go w.Run()
	t.Cleanup(func() {
		require.NoError(t, client.Shutdown(context.Background()))
		<-client.Done()
	})
	return client
}

func TestLookup(t *testing.T) {
	client := start(t, petModel(t), 8)
	ctx := context.Background()

	v, ok := client.Lookup(ctx, "cat")
	require.True(t, ok)
	assert.Equal(t, model.Vector{1, 2}, v)

	v, ok = client.Lookup(ctx, "cow")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestConcurrentLookupsNoCrossTalk(t *testing.T) {
	const n = 200
	entries := make([]model.Entry, n)
	for i := range entries {
		entries[i] = model.Entry{
			Word:   fmt.Sprintf("w%03d", i),
			Vector: model.Vector{float32(i), float32(-i)},
		}
	}
	// a small inbox forces callers to queue behind each other
	client := start(t, newModel(t, 2, entries...), 4)

	var wg sync.WaitGroup
	errs := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, ok := client.Lookup(context.Background(), entries[i].Word)
			if !ok || v[0] != float32(i) || v[1] != float32(-i) {
				errs <- fmt.Sprintf("%s got %v (found=%v)", entries[i].Word, v, ok)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Error(e)
	}
}

func TestShutdownDrainsQueuedRequests(t *testing.T) {
	const m = 10
	client, inbox := NewChannel(m+2, WithLogger(testLog), WithTimeout(5*time.Second))
	w := New(petModel(t), inbox, testLog, nil)

	type result struct {
		v  model.Vector
		ok bool
	}
	results := make(chan result, m)
	for i := 0; i < m; i++ {
		go func() {
			v, ok := client.Lookup(context.Background(), "dog")
			results <- result{v, ok}
		}()
	}
	require.Eventually(t, func() bool { return inbox.len() == m }, time.Second, time.Millisecond)

	require.NoError(t, client.Shutdown(context.Background()))

	late := make(chan error, 1)
	go func() {
		_, err := client.Do(context.Background(), Request{Kind: KindLookup, Word: "cat"})
		late <- err
	}()
	require.Eventually(t, func() bool { return inbox.len() == m+2 }, time.Second, time.Millisecond)

	ran := make(chan struct{})
	go func() {
		w.Run()
		close(ran)
	}()

	for i := 0; i < m; i++ {
		r := <-results
		assert.True(t, r.ok)
		assert.Equal(t, model.Vector{3, 4}, r.v)
	}

	<-ran
	assert.False(t, client.Alive())
	assert.ErrorIs(t, <-late, ErrChannelDisconnected)
	assert.Equal(t, 1, inbox.len(), "the late request is never consumed")
}

func TestRequestsAfterExit(t *testing.T) {
	client, inbox := NewChannel(1, WithLogger(testLog))
	w := New(petModel(t), inbox, testLog, nil)
	go w.Run()

	require.NoError(t, client.Shutdown(context.Background()))
	<-client.Done()

	_, err := client.Do(context.Background(), Request{Kind: KindLookup, Word: "cat"})
	assert.ErrorIs(t, err, ErrChannelDisconnected)

	v, ok := client.Lookup(context.Background(), "cat")
	assert.False(t, ok)
	assert.Nil(t, v)

	// repeated shutdowns are harmless
	assert.NoError(t, client.Shutdown(context.Background()))
}

func TestDoTimeouts(t *testing.T) {
	t.Run("send blocked", func(t *testing.T) {
		client, _ := NewChannel(0, WithLogger(testLog), WithTimeout(20*time.Millisecond))
		_, err := client.Do(context.Background(), Request{Kind: KindLookup, Word: "cat"})
		assert.ErrorIs(t, err, ErrChannelSendFailure)
	})

	t.Run("queued but unanswered", func(t *testing.T) {
		client, _ := NewChannel(1, WithLogger(testLog), WithTimeout(20*time.Millisecond))
		_, err := client.Do(context.Background(), Request{Kind: KindLookup, Word: "cat"})
		assert.ErrorIs(t, err, ErrNoReply)
	})

	t.Run("shutdown blocked", func(t *testing.T) {
		client, _ := NewChannel(0, WithLogger(testLog))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, client.Shutdown(ctx), ErrChannelSendFailure)
	})
}

func TestDroppedReplyKeepsWorkerRunning(t *testing.T) {
	client := start(t, petModel(t), 4)

	// no reply channel: the worker cannot answer this one
	client.requests <- Request{Kind: KindLookup, Word: "cat"}

	v, ok := client.Lookup(context.Background(), "dog")
	require.True(t, ok)
	assert.Equal(t, model.Vector{3, 4}, v)
}

func TestResolve(t *testing.T) {
	client := start(t, petModel(t), 8, WithConcurrency(2))

	got := client.Resolve(context.Background(), []string{"cat", "cow", "dog", "cat"})

	assert.Len(t, got, 3)
	assert.Equal(t, model.Vector{1, 2}, got["cat"])
	assert.Equal(t, model.Vector{3, 4}, got["dog"])
	v, present := got["cow"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestSimilarity(t *testing.T) {
	client := start(t, petModel(t), 8)
	ctx := context.Background()

	resp, err := client.Similarity(ctx, "cat", "cat")
	require.NoError(t, err)
	assert.True(t, resp.Found)
	assert.InDelta(t, 1.0, float64(resp.Score), 1e-6)

	resp, err = client.Similarity(ctx, "cat", "cow")
	require.NoError(t, err)
	assert.False(t, resp.Found)
}

func TestNeighbors(t *testing.T) {
	client := start(t, petModel(t), 8)
	ctx := context.Background()

	resp, err := client.Neighbors(ctx, []string{"cat"}, nil, 1)
	require.NoError(t, err)
	require.True(t, resp.Found)
	require.Len(t, resp.Neighbors, 1)
	assert.Equal(t, "kitten", resp.Neighbors[0].Word)

	resp, err = client.Neighbors(ctx, []string{"cat"}, []string{"unicorn"}, 5)
	require.NoError(t, err)
	assert.False(t, resp.Found)
	assert.Equal(t, []string{"unicorn"}, resp.Missing)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "lookup", KindLookup.String())
	assert.Equal(t, "shutdown", KindShutdown.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
