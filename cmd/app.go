package main

import (
	"github.com/marte113/Player-On-Caption/internal/config"
	"github.com/marte113/Player-On-Caption/internal/deepl"
	"github.com/marte113/Player-On-Caption/internal/llm"
	"github.com/marte113/Player-On-Caption/internal/persistence"
	"github.com/marte113/Player-On-Caption/internal/render"
	"github.com/marte113/Player-On-Caption/internal/session"
	"github.com/marte113/Player-On-Caption/internal/transcript"
	"github.com/marte113/Player-On-Caption/internal/translator"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

// newTranslator builds a client for every provider that has a key. A provider
// without one stays nil and fails with a config error when used.
func newTranslator(cfg *config.Config) (*translator.Client, error) {
	var (
		openai translator.OpenAI
		dl     translator.DeepL
	)
	if cfg.OpenAI.APIKey != "" {
		c, err := llm.NewClient(&llm.Config{
			APIKey:    cfg.OpenAI.APIKey,
			APIURL:    cfg.OpenAI.APIURL,
			Model:     cfg.OpenAI.Model,
			ChatModel: cfg.OpenAI.ChatModel,
			Timeout:   cfg.OpenAI.Timeout,
		})
		if err != nil {
			return nil, err
		}
		openai = c
	}
	if cfg.DeepL.APIKey != "" {
		c, err := deepl.NewClient(&deepl.Config{
			APIKey:     cfg.DeepL.APIKey,
			APIURL:     cfg.DeepL.APIURL,
			RatePerSec: cfg.DeepL.RatePerSec,
			Timeout:    cfg.DeepL.Timeout,
		})
		if err != nil {
			return nil, err
		}
		dl = c
	}
	return translator.New(openai, dl, cfg.Translate.TargetLanguage), nil
}

func openStore(cfg *config.Config) (*persistence.SQLiteStore, error) {
	return persistence.NewSQLiteStore(cfg.DBPath())
}

// openCache opens the store for a session. A failure leaves the session
// uncached: the returned interface is nil and close is a no-op.
func openCache(cfg *config.Config) (persistence.TranslationStore, func()) {
	store, err := openStore(cfg)
	if err != nil {
		log.Warn("translation cache unavailable, continuing without it: %v", err)
		return nil, func() {}
	}
	return store, func() { _ = store.Close() }
}

func newController(cfg *config.Config, tr session.Translator, store persistence.TranslationStore, display render.Display, notifier session.Notifier) *session.Controller {
	return session.NewController(
		transcript.NewExtractor(transcript.DefaultSelectors()),
		tr,
		store,
		display,
		notifier,
		session.Options{
			InitialChunk:    cfg.Translate.InitialChunk,
			SubsequentChunk: cfg.Translate.SubsequentSize,
			BootstrapWindow: cfg.Render.BootstrapWindow,
			PollInterval:    cfg.Render.PollInterval,
			StreamCapable:   translator.CanStream,
			TargetLanguage:  cfg.Translate.TargetLanguage,
		},
	)
}
