package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marte113/Player-On-Caption/internal/config"
	"github.com/marte113/Player-On-Caption/internal/persistence"
	"github.com/marte113/Player-On-Caption/internal/render"
	"github.com/marte113/Player-On-Caption/internal/session"
	"github.com/marte113/Player-On-Caption/internal/subtitle"
	"github.com/marte113/Player-On-Caption/internal/transcript"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

type captionFlags struct {
	page     string
	captions string
	speed    float64
}

func (f *captionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.captions, "captions", "", "Caption changes: an .srt track, a file with one caption per line, or \"-\" for stdin")
	cmd.Flags().Float64Var(&f.speed, "speed", 1, "Playback speed for .srt tracks; 0 replays without waiting")
}

// captionFeed produces caption changes and answers the synchronizer's polls.
type captionFeed interface {
	render.CaptionSource
	Changes() <-chan string
	Run(ctx context.Context) error
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var flags captionFlags
	var provider string
	var stream bool

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate a saved lecture page and show bilingual captions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			provider = strings.ToLower(strings.TrimSpace(provider))
			if provider == "" {
				provider = cfg.Translate.Provider
			}
			if err := cfg.RequireProvider(provider); err != nil {
				return err
			}
			useStream := cfg.Translate.Stream
			if cmd.Flags().Changed("stream") {
				useStream = stream
			}

			tr, err := newTranslator(cfg)
			if err != nil {
				return err
			}
			page, err := transcript.OpenHTMLPage(flags.page)
			if err != nil {
				return err
			}
			store, closeStore := openCache(cfg)
			defer closeStore()

			return runSession(cmd, cfg, store, newSessionDeps(tr), session.Request{
				Mode:     session.ModeAuto,
				Page:     page,
				Provider: provider,
				Stream:   useStream,
			}, flags)
		},
	}

	cmd.Flags().StringVar(&flags.page, "page", "", "Saved lecture page HTML")
	cmd.Flags().StringVar(&provider, "provider", "", "Translation provider: openai or deepl")
	cmd.Flags().BoolVar(&stream, "stream", true, "Stream the translation (openai only)")
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("page")
	return cmd
}

func newLoadCommand(ctx *commandContext) *cobra.Command {
	var flags captionFlags
	var file string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Show captions from a pre-translated file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open translation file: %w", err)
			}
			defer f.Close()

			req := session.Request{Mode: session.ModeUser, File: f}
			if flags.page != "" {
				page, err := transcript.OpenHTMLPage(flags.page)
				if err != nil {
					return err
				}
				req.Page = page
			}
			tr, err := newTranslator(cfg)
			if err != nil {
				return err
			}
			return runSession(cmd, cfg, nil, newSessionDeps(tr), req, flags)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Translation file: source and translated lines alternating")
	cmd.Flags().StringVar(&flags.page, "page", "", "Saved lecture page HTML for the current caption")
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

type sessionDeps struct {
	translator session.Translator
	extractor  *transcript.Extractor
}

func newSessionDeps(tr session.Translator) sessionDeps {
	return sessionDeps{
		translator: tr,
		extractor:  transcript.NewExtractor(transcript.DefaultSelectors()),
	}
}

// runSession starts one session and blocks until it is done. Captions come
// from --captions when given; otherwise the page's caption span is polled once
// translations land and shown again when the session is done.
func runSession(cmd *cobra.Command, cfg *config.Config, store persistence.TranslationStore, deps sessionDeps, req session.Request, flags captionFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	display := render.NewTerminalDisplay(cmd.OutOrStdout())
	notifier := session.NewWriterNotifier(cmd.ErrOrStderr())
	controller := newController(cfg, deps.translator, store, display, notifier)
	defer controller.Stop()

	var (
		feed      captionFeed
		afterDone bool
	)
	switch {
	case flags.captions == "":
	case flags.captions == "-":
		feed = render.NewLineFeed(cmd.InOrStdin())
	case subtitle.IsSRT(flags.captions):
		track, err := subtitle.ReadFile(flags.captions)
		if err != nil {
			return err
		}
		log.Info("replaying %d cues from %s", track.Len(), flags.captions)
		feed = subtitle.NewPlayer(track, flags.speed)
		afterDone = true
	default:
		f, err := os.Open(flags.captions)
		if err != nil {
			return fmt.Errorf("open captions: %w", err)
		}
		defer f.Close()
		feed = render.NewLineFeed(f)
		// a file replays instantly, so it waits for the translation
		afterDone = true
	}
	if feed != nil {
		req.Changes = feed.Changes()
		req.Captions = feed
	} else if req.Page != nil {
		req.Captions = transcript.NewPageCaptions(ctx, req.Page, deps.extractor)
	}

	s, err := controller.Start(ctx, req)
	if err != nil {
		return err
	}
	log.Info("session %s started (%s)", s.ID, s.Mode)

	if feed == nil {
		err := s.Wait()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if req.Page != nil {
			showPageCaption(ctx, deps.extractor, req.Page, s)
		}
		reportAborted(s)
		return err
	}

	go func() {
		if afterDone {
			select {
			case <-s.Translated():
			case <-ctx.Done():
			}
		}
		if err := feed.Run(ctx); err != nil {
			log.Warn("caption feed stopped: %v", err)
		}
	}()
	err = s.Wait()
	reportAborted(s)
	return err
}

func reportAborted(s *session.Session) {
	if s.Aborted() {
		log.Warn("translation of %q stopped early, %d/%d lines translated", s.Title, s.Map.Translated(), s.Map.Len())
	}
}

func showPageCaption(ctx context.Context, ext *transcript.Extractor, page transcript.Page, s *session.Session) {
	caption, _, err := ext.Caption(ctx, page)
	if err != nil {
		log.Warn("read page caption: %v", err)
		return
	}
	if caption == "" {
		return
	}
	if !s.Synchronizer().Update(caption) {
		log.Debug("no translation for caption %q", caption)
	}
}
