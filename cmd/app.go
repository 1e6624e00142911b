package cmd

import (
	"fmt"

	"github.com/killallgit/pawnassist/pkg/config"
	"github.com/killallgit/pawnassist/pkg/events"
	"github.com/killallgit/pawnassist/pkg/llm"
	"github.com/killallgit/pawnassist/pkg/logger"
	"github.com/killallgit/pawnassist/pkg/session"
	"github.com/killallgit/pawnassist/pkg/store"
	"github.com/killallgit/pawnassist/pkg/tokens"
	"github.com/killallgit/pawnassist/pkg/widget"
)

// app wires one session to its transport, archive and event bus
type app struct {
	cfg     *config.Config
	bus     *events.Bus
	archive *store.Archive
	session *session.Session
}

func newApp(cfg *config.Config) (*app, error) {
	log := logger.WithComponent("app")

	transport, err := llm.NewTransport(cfg.LLM)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, bus: events.NewBus()}
	opts := []session.Option{
		session.WithSettings(cfg.Session),
		session.WithPolicy(widget.NewPolicy(cfg.Widgets)),
		session.WithTokenCounter(tokens.NewTokenCounter(cfg.Session.TokenModel)),
	}

	if cfg.Store.Enabled {
		archive, err := openArchive(cfg.Store)
		if err != nil {
			// The archive is optional; chatting still works without it
			log.Warn("conversation archive disabled", "error", err)
		} else {
			a.archive = archive
			opts = append(opts, session.WithRecorder(archive))
		}
	}

	a.session = session.New(transport, opts...)
	a.session.Bind(a.bus)

	log.Info("session started",
		"conversation", a.session.ConversationID(),
		"provider", cfg.LLM.Provider,
		"archive", a.archive != nil)
	return a, nil
}

func openArchive(settings config.StoreConfig) (*store.Archive, error) {
	return store.Open(config.ResolvePath(settings.Path))
}

func (a *app) Close() error {
	err := a.session.Close()
	a.bus.Close()
	if a.archive != nil {
		if cerr := a.archive.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close archive: %w", cerr)
		}
	}
	return err
}
