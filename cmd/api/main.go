package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/chat-relay/backend/internal/config"
	"github.com/zhouzirui/chat-relay/backend/internal/handler"
	"github.com/zhouzirui/chat-relay/backend/internal/handler/socket"
	"github.com/zhouzirui/chat-relay/backend/internal/model/persona"
	"github.com/zhouzirui/chat-relay/backend/internal/observability"
	"github.com/zhouzirui/chat-relay/backend/internal/scheduler"
	"github.com/zhouzirui/chat-relay/backend/internal/service/ai"
	"github.com/zhouzirui/chat-relay/backend/internal/service/chat"
	"github.com/zhouzirui/chat-relay/backend/internal/service/relay"
	"github.com/zhouzirui/chat-relay/backend/internal/service/transcript"
	"github.com/zhouzirui/chat-relay/backend/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		observability.Logger().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := observability.Setup(os.Stdout, cfg.Log.Format, cfg.Log.Level)
	if envErr != nil {
		log.Info("no .env file loaded, using process environment", "reason", envErr)
	}

	if err := run(ctx, cfg); err != nil {
		log.Error("chat relay stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := observability.Logger()

	p, err := persona.Resolve(persona.NewMemoryStore(persona.Seed()), cfg.AI.PersonaID, cfg.AI.SystemPromptPath)
	if err != nil {
		return fmt.Errorf("resolve persona: %w", err)
	}

	chatService := chat.NewService(chat.Config{
		MaxSessions: cfg.Session.MaxSessions,
		IdleTTL:     cfg.Session.IdleTTL,
	})

	completer, err := ai.NewCompleter(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("initialize %s provider: %w", cfg.AI.Provider, err)
	}
	log.Info("completion provider ready",
		"provider", cfg.AI.Provider,
		"persona", p.ID,
		"chat_model", cfg.AI.ChatModel,
		"voice_model", cfg.AI.VoiceModelOrDefault(),
	)

	var recorder transcript.Recorder
	if cfg.Transcript.Path != "" {
		fileRecorder, err := transcript.NewFileRecorder(cfg.Transcript.Path)
		if err != nil {
			log.Warn("transcript log disabled", "path", cfg.Transcript.Path, "error", err)
		} else {
			recorder = fileRecorder
			log.Info("transcript log enabled", "path", cfg.Transcript.Path)
		}
	}

	conversations := relay.New(chatService, completer, recorder, relay.Config{
		SystemPrompt: p.SystemPrompt,
		Models: map[relay.Channel]string{
			relay.ChannelText:  cfg.AI.ChatModel,
			relay.ChannelVoice: cfg.AI.VoiceModelOrDefault(),
		},
		MaxOutputTokens: cfg.AI.MaxOutputTokens,
		Temperature:     cfg.AI.Temperature,
		Timeout:         cfg.AI.Timeout,
	})

	sched := scheduler.New()
	if cfg.Session.IdleTTL > 0 {
		err := sched.AddJob(cfg.Session.SweepSchedule, "evict-idle-sessions", func(context.Context) error {
			if n := chatService.EvictIdle(time.Now().UTC()); n > 0 {
				log.Info("idle sessions swept", "evicted", n, "remaining", chatService.Len())
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	var static fs.FS = web.Static()
	if cfg.Server.StaticDir != "" {
		static = os.DirFS(cfg.Server.StaticDir)
	}

	router := handler.NewRouter(socket.New(conversations), chatService, p, static)
	return startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	observability.Logger().Info("chat relay listening", "addr", addr)
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
