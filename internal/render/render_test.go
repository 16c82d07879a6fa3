package render

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marte113/Player-On-Caption/internal/transcript"
)

func sampleMap() *transcript.Map {
	return transcript.MapFromPairs([]transcript.Pair{
		{Source: "hello world", Target: "안녕, 세상!"},
		{Source: "goodbye", Target: "안녕히 가세요."},
		{Source: "pending line", Target: ""},
	})
}

func TestUpdateHitMissAndDedupe(t *testing.T) {
	rec := &Recorder{}
	s := NewSynchronizer(sampleMap(), rec)

	assert.True(t, s.Update("Hello, world!"))
	assert.False(t, s.Update("Hello, world!"), "same pair is not rendered twice")
	assert.False(t, s.Update("Something untranslated"))
	assert.False(t, s.Update("Pending line"), "placeholder is a miss")
	assert.False(t, s.Update("..."))

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, Shown{Original: "Hello, world!", Translated: "안녕, 세상!"}, last,
		"a miss leaves the previous pair on screen")

	assert.True(t, s.Update("Goodbye."))
	assert.Len(t, rec.Shown(), 2)
}

func TestUpdateSeesLaterCommits(t *testing.T) {
	m := sampleMap()
	rec := &Recorder{}
	s := NewSynchronizer(m, rec)

	assert.False(t, s.Update("Pending line."))
	m.Set("pending line", "대기 줄")
	assert.True(t, s.Update("Pending line."))
}

func TestNoWritesAfterClose(t *testing.T) {
	rec := &Recorder{}
	s := NewSynchronizer(sampleMap(), rec)
	s.Close()

	assert.False(t, s.Update("Hello, world!"))
	assert.Empty(t, rec.Shown())
}

func TestRunObservesChanges(t *testing.T) {
	rec := &Recorder{}
	s := NewSynchronizer(sampleMap(), rec)

	changes := make(chan string)
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), changes) }()

	changes <- "Hello, world!"
	changes <- "not translated"
	changes <- "Goodbye."
	close(changes)

	require.NoError(t, <-done)
	assert.Equal(t, []Shown{
		{Original: "Hello, world!", Translated: "안녕, 세상!"},
		{Original: "Goodbye.", Translated: "안녕히 가세요."},
	}, rec.Shown())

	assert.False(t, s.Update("Hello, world!"), "closed after Run returns")
}

func TestRunStopsOnCancel(t *testing.T) {
	s := NewSynchronizer(sampleMap(), &Recorder{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, make(chan string)) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunWithoutChangesReturnsAndStaysOpen(t *testing.T) {
	s := NewSynchronizer(sampleMap(), &Recorder{})

	require.NoError(t, s.Run(context.Background(), nil))
	assert.True(t, s.Update("Hello, world!"), "nothing to observe, nothing closed")
}

type fakeSource struct {
	mu      sync.Mutex
	caption string
	playing bool
	polls   int
}

func (f *fakeSource) Current() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.caption, f.caption != ""
}

func (f *fakeSource) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return f.playing
}

func TestBootstrapPollsWhilePlaying(t *testing.T) {
	rec := &Recorder{}
	s := NewSynchronizer(sampleMap(), rec, WithBootstrap(200*time.Millisecond, 10*time.Millisecond))
	src := &fakeSource{caption: "Hello, world!", playing: true}

	require.NoError(t, s.Bootstrap(context.Background(), src))

	assert.Len(t, rec.Shown(), 1, "polled caption is rendered once")
}

func TestBootstrapSkipsWhilePaused(t *testing.T) {
	rec := &Recorder{}
	s := NewSynchronizer(sampleMap(), rec, WithBootstrap(100*time.Millisecond, 10*time.Millisecond))
	src := &fakeSource{caption: "Hello, world!", playing: false}

	require.NoError(t, s.Bootstrap(context.Background(), src))

	assert.Empty(t, rec.Shown())
	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Positive(t, src.polls)
}

func TestLineFeed(t *testing.T) {
	feed := NewLineFeed(strings.NewReader("Hello, world!\n\nGoodbye.\n"))
	assert.True(t, feed.Playing())

	errc := make(chan error, 1)
	go func() { errc <- feed.Run(context.Background()) }()

	var got []string
	for line := range feed.Changes() {
		got = append(got, line)
	}
	require.NoError(t, <-errc)
	assert.Equal(t, []string{"Hello, world!", "Goodbye."}, got)

	cur, ok := feed.Current()
	assert.True(t, ok)
	assert.Equal(t, "Goodbye.", cur)
	assert.False(t, feed.Playing())
}

func TestTerminalDisplayPlainWhenNotTTY(t *testing.T) {
	var buf bytes.Buffer
	d := NewTerminalDisplay(&buf)

	d.SetLoading(true)
	d.SetLoading(true)
	require.NoError(t, d.Show("Hello", "안녕"))
	d.SetLoading(false)

	assert.Equal(t, "translating transcript...\nHello\n안녕\n\n", buf.String())
}

func TestBootstrapPollsFromTheStart(t *testing.T) {
	m := transcript.MapFromPairs([]transcript.Pair{{Source: "hello world", Target: ""}})
	rec := &Recorder{}
	s := NewSynchronizer(m, rec, WithBootstrap(200*time.Millisecond, 10*time.Millisecond))
	src := &fakeSource{caption: "Hello, world!", playing: true}

	// The pair lands well after the window would have ended had polling
	// started with the synchronizer.
	time.Sleep(300 * time.Millisecond)
	m.Set("hello world", "안녕, 세상!")

	start := time.Now()
	require.NoError(t, s.Bootstrap(context.Background(), src))
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Len(t, rec.Shown(), 1)
}

func TestBootstrapDisabledOrWithoutSource(t *testing.T) {
	rec := &Recorder{}
	src := &fakeSource{caption: "Hello, world!", playing: true}

	require.NoError(t, NewSynchronizer(sampleMap(), rec, WithBootstrap(0, 0)).Bootstrap(context.Background(), src))
	require.NoError(t, NewSynchronizer(sampleMap(), rec).Bootstrap(context.Background(), nil))
	assert.Empty(t, rec.Shown())
}
