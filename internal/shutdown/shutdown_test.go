package shutdown

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wordvec/internal/model"
	"wordvec/internal/worker"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestTriggerIsIdempotent(t *testing.T) {
	stopper := new(worker.MockQuerier)
	stopper.On("Shutdown", mock.Anything).Return(nil).Once()

	c, ctx := New(context.Background(), testLog, stopper, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Trigger("test")
		}()
	}
	wg.Wait()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	stopper.AssertExpectations(t)
}

func TestTriggerLogsStopFailure(t *testing.T) {
	stopper := new(worker.MockQuerier)
	stopper.On("Shutdown", mock.Anything).Return(errors.New("queue full")).Once()

	c, ctx := New(context.Background(), testLog, stopper, time.Second)
	c.Trigger("test")

	// listener cancellation does not depend on the worker accepting the stop
	assert.Error(t, ctx.Err())
	stopper.AssertExpectations(t)
}

func TestWatchFiresOnSignal(t *testing.T) {
	stopper := new(worker.MockQuerier)
	stopper.On("Shutdown", mock.Anything).Return(nil).Once()

	c, _ := New(context.Background(), testLog, stopper, time.Second)
	signals, fire := context.WithCancel(context.Background())

	returned := make(chan struct{})
	go func() {
		c.Watch(signals)
		close(returned)
	}()
	fire()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after signal")
	}
	<-c.Done()
	stopper.AssertExpectations(t)
}

func TestWatchReturnsAfterTrigger(t *testing.T) {
	stopper := new(worker.MockQuerier)
	stopper.On("Shutdown", mock.Anything).Return(nil).Once()

	c, _ := New(context.Background(), testLog, stopper, time.Second)

	returned := make(chan struct{})
	go func() {
		c.Watch(context.Background())
		close(returned)
	}()
	c.Trigger("server error")

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after Trigger")
	}
	stopper.AssertExpectations(t)
}

func TestStopsRealWorker(t *testing.T) {
	client, inbox := worker.NewChannel(4)
	m := loadPets(t)
	w := worker.New(m, inbox, testLog, nil)
	go w.Run()

	c, ctx := New(context.Background(), testLog, client, time.Second)
	c.Trigger("test")
	c.Trigger("again")

	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	require.Error(t, ctx.Err())
}

func TestDrainRunsBeforeWorkerStops(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(step string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, step)
	}

	stopper := new(worker.MockQuerier)
	stopper.On("Shutdown", mock.Anything).Run(func(mock.Arguments) { record("stop") }).Return(nil).Once()

	var c *Coordinator
	var listener context.Context
	c, listener = New(context.Background(), testLog, stopper, time.Second, WithDrain(func(ctx context.Context) error {
		assert.Error(t, listener.Err(), "listeners are cancelled before draining")
		record("drain")
		return errors.New("slow client")
	}))
	c.Trigger("test")

	assert.Equal(t, []string{"drain", "stop"}, order)
	stopper.AssertExpectations(t)
}

func TestDrainCanStillReachWorker(t *testing.T) {
	client, inbox := worker.NewChannel(4)
	w := worker.New(loadPets(t), inbox, testLog, nil)
	go w.Run()

	var found bool
	c, _ := New(context.Background(), testLog, client, time.Second, WithDrain(func(ctx context.Context) error {
		// an in-flight request finishing during the drain
		got := client.Resolve(ctx, []string{"cat"})
		found = got["cat"] != nil
		return nil
	}))
	c.Trigger("test")

	assert.True(t, found, "lookups during the drain are answered")
	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after the drain")
	}
}

func loadPets(t *testing.T) *model.Model {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, model.Encode(&buf, 1, []model.Entry{{Word: "cat", Vector: model.Vector{1}}}))
	m, err := model.Decode(&buf)
	require.NoError(t, err)
	return m
}
