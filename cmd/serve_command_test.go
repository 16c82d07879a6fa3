package main

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marte113/Player-On-Caption/internal/config"
)

type fakeMaintainer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeMaintainer) Maintain(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

type fakeCron struct {
	specs   []string
	jobs    []func()
	started bool
	stopped bool
}

func (f *fakeCron) AddFunc(spec string, cmd func()) (cron.EntryID, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return 0, err
	}
	f.specs = append(f.specs, spec)
	f.jobs = append(f.jobs, cmd)
	return cron.EntryID(len(f.jobs)), nil
}

func (f *fakeCron) Start() {
	f.started = true
}

func (f *fakeCron) Stop() context.Context {
	f.stopped = true
	return context.Background()
}

type fakeHTTP struct {
	listenCalled chan struct{}
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	addr         string
}

func newFakeHTTP() *fakeHTTP {
	return &fakeHTTP{
		listenCalled: make(chan struct{}),
		shutdownCh:   make(chan struct{}),
	}
}

func (f *fakeHTTP) ListenAndServe(addr string) error {
	f.addr = addr
	close(f.listenCalled)
	<-f.shutdownCh
	return http.ErrServerClosed
}

func (f *fakeHTTP) Shutdown(context.Context) error {
	f.shutdownOnce.Do(func() { close(f.shutdownCh) })
	return nil
}

func TestRunWithComponents_StartsCronAndHTTP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Addr:            "127.0.0.1:0",
			MaintenanceCron: "0 4 * * *",
		},
	}
	store := &fakeMaintainer{}
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runWithComponents(ctx, cfg, store, cronEngine, httpSrv)
	}()

	select {
	case <-httpSrv.listenCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("http server did not start")
	}

	cancel()

	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runWithComponents did not exit after cancellation")
	}

	assert.Equal(t, "127.0.0.1:0", httpSrv.addr)
	assert.True(t, cronEngine.started)
	assert.True(t, cronEngine.stopped)
	require.Equal(t, []string{"0 4 * * *"}, cronEngine.specs)

	cronEngine.jobs[0]()
	assert.Equal(t, 1, store.calls)
}

func TestRunWithComponents_NoMaintenanceSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &config.Config{HTTP: config.HTTPConfig{Addr: "127.0.0.1:0"}}
	cronEngine := &fakeCron{}
	httpSrv := newFakeHTTP()

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- runWithComponents(ctx, cfg, &fakeMaintainer{}, cronEngine, httpSrv)
	}()
	<-httpSrv.listenCalled
	cancel()

	require.NoError(t, <-doneCh)
	assert.Empty(t, cronEngine.specs)
}

func TestRunWithComponents_BadSchedule(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{MaintenanceCron: "not a schedule"}}
	err := runWithComponents(context.Background(), cfg, &fakeMaintainer{}, &fakeCron{}, newFakeHTTP())
	assert.ErrorContains(t, err, "schedule cache maintenance")
}
