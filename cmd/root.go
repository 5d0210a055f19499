package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bz888/cardadvisor/internal/api"
	"github.com/bz888/cardadvisor/internal/config"
	"github.com/bz888/cardadvisor/internal/conversation"
	"github.com/bz888/cardadvisor/internal/logger"
	"github.com/bz888/cardadvisor/internal/server"
	"github.com/bz888/cardadvisor/internal/server/ollama"
	"github.com/bz888/cardadvisor/internal/ui"
	"github.com/bz888/cardadvisor/internal/upload"
)

func Execute() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Parse(args)
	if err != nil {
		return err
	}

	view := ui.New(cfg.Dev)
	if err := logger.InitLogger(cfg.Dev, cfg.LogPath, view.DebugConsole()); err != nil {
		return err
	}
	defer logger.Close()
	localLogger := logger.NewLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Serve {
		backend := server.New(cfg.Addr, server.NewHandler(ollama.NewClient(cfg.OllamaHost), cfg.Model))
		go func() {
			if err := backend.Run(ctx); err != nil {
				localLogger.Error("Backend stopped:", err)
			}
		}()
	}

	session := conversation.NewSession(api.NewClient(api.ClientConfig{Endpoint: cfg.Endpoint}))
	uploader := upload.NewController(session)

	localLogger.Info("Chatting with", cfg.Endpoint)
	err = view.Run(ctx, session, uploader)
	// Run cancels the request context on return, so this does not hang.
	session.Wait()
	return err
}
