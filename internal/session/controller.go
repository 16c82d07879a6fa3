// Package session drives one document-processing run: auto mode extracts,
// translates and renders a lecture; user mode renders a user-supplied file.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/marte113/Player-On-Caption/internal/errs"
	"github.com/marte113/Player-On-Caption/internal/llm"
	"github.com/marte113/Player-On-Caption/internal/persistence"
	"github.com/marte113/Player-On-Caption/internal/reconcile"
	"github.com/marte113/Player-On-Caption/internal/render"
	"github.com/marte113/Player-On-Caption/internal/transcript"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

type Mode string

const (
	ModeAuto Mode = "auto"
	ModeUser Mode = "user"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAuto:
		return ModeAuto, nil
	case ModeUser:
		return ModeUser, nil
	default:
		return "", errs.New(errs.KindValidation, "unknown mode").WithContext("mode", s)
	}
}

// Translator is what a session needs from the translation client.
type Translator interface {
	Stream(ctx context.Context, provider, text string) (<-chan llm.StreamEvent, error)
	TranslateLines(ctx context.Context, provider string, lines []string) (string, []transcript.Pair, error)
}

// Request starts a session. Page is read in auto mode and File in user mode.
// Changes feeds the synchronizer for the session's lifetime; Captions is polled
// for the bootstrap window once the first translations are available. Either
// may be nil.
type Request struct {
	Mode     Mode
	Page     transcript.Page
	File     io.Reader
	Changes  <-chan string
	Captions render.CaptionSource
	Provider string
	Stream   bool
}

// Options tune a Controller.
type Options struct {
	InitialChunk    int
	SubsequentChunk int
	BootstrapWindow time.Duration
	PollInterval    time.Duration
	StreamCapable   func(provider string) bool
	// TargetLanguage is recorded with cached translations.
	TargetLanguage  language.Tag
}

// Controller owns the active session; starting a new one tears the old one
// down first, so at most one caption observer is alive.
type Controller struct {
	extractor  *transcript.Extractor
	translator Translator
	store      persistence.TranslationStore
	display    render.Display
	notifier   Notifier
	opts       Options

	mu      sync.Mutex
	current *Session
}

// NewController wires a controller. store may be nil to run without a cache.
func NewController(
	extractor *transcript.Extractor,
	translator Translator,
	store persistence.TranslationStore,
	display render.Display,
	notifier Notifier,
	opts Options,
) *Controller {
	if notifier == nil {
		notifier = NotifierFunc(func(error) {})
	}
	if opts.StreamCapable == nil {
		opts.StreamCapable = func(provider string) bool { return provider == "openai" }
	}
	return &Controller{
		extractor:  extractor,
		translator: translator,
		store:      store,
		display:    display,
		notifier:   notifier,
		opts:       opts,
	}
}

// Current returns the active session, if any.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Start tears down the previous session and begins a new one. Errors that stop
// the session before translation starts are returned and notified; later
// failures are reported through Session.Err and the notifier.
func (c *Controller) Start(ctx context.Context, req Request) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		log.Info("tearing down session %s", c.current.ID)
		c.current.Stop()
		c.current = nil
	}

	var (
		s   *Session
		err error
	)
	switch req.Mode {
	case ModeAuto:
		s, err = c.startAuto(ctx, req)
	case ModeUser:
		s, err = c.startUser(ctx, req)
	default:
		err = errs.New(errs.KindValidation, "unknown mode").WithContext("mode", string(req.Mode))
	}
	if err != nil {
		c.notifier.Notify(err)
		return nil, err
	}
	c.current = s
	return s, nil
}

// Stop tears down the active session.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.Stop()
		c.current = nil
	}
}

func (c *Controller) newSession(ctx context.Context, mode Mode, title string, m *transcript.Map, req Request) *Session {
	sctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(sctx)
	synchronizer := render.NewSynchronizer(m, c.display,
		render.WithBootstrap(c.opts.BootstrapWindow, c.opts.PollInterval))
	id := uuid.NewString()
	return &Session{
		ID:           id,
		Title:        title,
		Mode:         mode,
		Map:          m,
		ctx:          gctx,
		cancel:       cancel,
		group:        g,
		synchronizer: synchronizer,
		captions:     req.Captions,
		logger:       log.GetLogger().With("session=" + id[:8]),
		translated:   make(chan struct{}),
	}
}

func (c *Controller) startUser(ctx context.Context, req Request) (*Session, error) {
	if req.File == nil {
		return nil, errs.New(errs.KindValidation, "user mode needs a translation file")
	}
	m, err := ParseUserFile(req.File)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindValidation, "invalid translation file")
	}
	s := c.newSession(ctx, ModeUser, "", m, req)
	s.logger.Info("loaded %d translated lines from file", m.Len())
	s.finish(nil)
	s.observe(req)
	s.ready()
	return s, nil
}

func (c *Controller) startAuto(ctx context.Context, req Request) (*Session, error) {
	if req.Page == nil {
		return nil, errs.New(errs.KindValidation, "auto mode needs a lecture page")
	}
	c.display.SetLoading(true)

	title, err := c.extractor.Title(ctx, req.Page)
	if err != nil {
		c.display.SetLoading(false)
		return nil, err
	}

	if cached, ok := c.lookupCache(ctx, title); ok {
		c.display.SetLoading(false)
		s := c.newSession(ctx, ModeAuto, title, cached, req)
		s.logger.Info("using cached translation for %q (%d lines)", title, cached.Len())
		s.finish(nil)
		s.observe(req)
		s.ready()
		return s, nil
	}

	if err := c.extractor.OpenTranscript(ctx, req.Page); err != nil {
		log.Warn("failed to open transcript panel: %v", err)
	}
	m, err := c.extractor.Extract(ctx, req.Page)
	if err != nil {
		c.display.SetLoading(false)
		return nil, err
	}

	s := c.newSession(ctx, ModeAuto, title, m, req)
	if m.Len() == 0 {
		s.logger.Info("transcript for %q is empty, nothing to translate", title)
		c.display.SetLoading(false)
		s.finish(nil)
		s.observe(req)
		return s, nil
	}

	s.observe(req)
	s.group.Go(func() error {
		err := c.translate(s.ctx, s, req.Provider, req.Stream)
		if s.ctx.Err() == nil {
			c.display.SetLoading(false)
			if err != nil {
				c.notifier.Notify(err)
			}
		}
		c.save(context.WithoutCancel(s.ctx), s, req.Provider)
		s.finish(err)
		return nil
	})
	return s, nil
}

// lookupCache treats storage failures as a miss.
func (c *Controller) lookupCache(ctx context.Context, title string) (*transcript.Map, bool) {
	if c.store == nil {
		return nil, false
	}
	entry, ok, err := c.store.GetTranslation(ctx, title)
	if err != nil {
		log.Warn("cache lookup failed, translating anyway: %v", err)
		return nil, false
	}
	if !ok || entry.Map == nil || entry.Map.Translated() == 0 {
		return nil, false
	}
	return entry.Map, true
}

// save caches whatever was translated, even after a partial failure.
func (c *Controller) save(ctx context.Context, s *Session, provider string) {
	if c.store == nil || s.Map.Translated() == 0 {
		return
	}
	err := c.store.PutTranslation(ctx, persistence.TranslationEntry{
		Title:          s.Title,
		Provider:       provider,
		TargetLanguage: c.opts.TargetLanguage,
		Map:            s.Map,
	})
	if err != nil {
		s.logger.Warn("failed to cache translation for %q: %v", s.Title, err)
		return
	}
	s.logger.Info("cached %d/%d translated lines for %q", s.Map.Translated(), s.Map.Len(), s.Title)
}

func (c *Controller) translate(ctx context.Context, s *Session, provider string, stream bool) error {
	var once sync.Once
	onReady := func() {
		once.Do(func() {
			s.logger.Info("first subtitles ready for %q", s.Title)
			if ctx.Err() == nil {
				c.display.SetLoading(false)
			}
			s.ready()
		})
	}
	lines := s.Map.Keys()

	if stream && c.opts.StreamCapable(provider) {
		events, err := c.translator.Stream(ctx, provider, strings.Join(lines, "\n"))
		if err != nil {
			return err
		}
		rec := reconcile.New(s.Map, onReady)
		err = rec.Consume(ctx, events)
		s.logger.Info("stream finished for %q: %+v", s.Title, rec.Stats())
		if !rec.Ready() && err == nil {
			s.logger.Warn("stream for %q produced no usable pairs", s.Title)
		}
		return err
	}

	rec := reconcile.New(s.Map, onReady)
	chunks := transcript.Chunk(lines, c.opts.InitialChunk, c.opts.SubsequentChunk)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		text, pairs, err := c.translator.TranslateLines(ctx, provider, chunk)
		if err != nil {
			s.markAborted()
			return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if pairs == nil {
			committed, dropped := rec.ApplyAll(text)
			s.logger.Debug("chunk %d/%d: %d pairs, dropped %q", i+1, len(chunks), committed, dropped)
			continue
		}
		for _, p := range pairs {
			if key := transcript.Normalize(p.Source); key != "" && p.Target != "" {
				s.Map.Set(key, p.Target)
				onReady()
			}
		}
		s.logger.Debug("chunk %d/%d: %d pairs", i+1, len(chunks), len(pairs))
	}
	return nil
}

// Session is one processing run. Its synchronizer and translation run until the
// session is stopped or its context ends.
type Session struct {
	ID    string
	Title string
	Mode  Mode
	Map   *transcript.Map

	ctx          context.Context
	cancel       context.CancelFunc
	group        *errgroup.Group
	synchronizer *render.Synchronizer
	captions     render.CaptionSource
	bootstrap    sync.Once
	logger       *log.Logger
	translated   chan struct{}

	mu      sync.Mutex
	err     error
	aborted bool
	stopped bool
}

func (s *Session) observe(req Request) {
	if req.Changes == nil {
		return
	}
	s.group.Go(func() error {
		return s.synchronizer.Run(s.ctx, req.Changes)
	})
}

// ready starts the caption polling pass, once, when the map first has
// something to show.
func (s *Session) ready() {
	if s.captions == nil {
		return
	}
	s.bootstrap.Do(func() {
		s.group.Go(func() error {
			return s.synchronizer.Bootstrap(s.ctx, s.captions)
		})
	})
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.translated:
		return
	default:
	}
	s.err = err
	close(s.translated)
}

func (s *Session) markAborted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
}

// Translated is closed once translation has finished, failed, or was not needed.
func (s *Session) Translated() <-chan struct{} {
	return s.translated
}

// Err returns the translation error after Translated is closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Aborted reports whether chunked translation stopped before the last chunk.
func (s *Session) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// Synchronizer exposes the session's renderer, mainly so callers can feed it
// caption changes directly.
func (s *Session) Synchronizer() *render.Synchronizer {
	return s.synchronizer
}

// Wait blocks until the session's goroutines return and reports the
// translation error, if any.
func (s *Session) Wait() error {
	if err := s.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return s.Err()
}

// Stop cancels the session and waits for it to wind down. No display writes
// happen after Stop returns.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.synchronizer.Close()
	s.cancel()
	_ = s.group.Wait()
}
