package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gwi.com/secret-santa-bot/internal/api"
	"gwi.com/secret-santa-bot/internal/auth"
	"gwi.com/secret-santa-bot/internal/bot"
	"gwi.com/secret-santa-bot/internal/config"
	"gwi.com/secret-santa-bot/internal/core"
	"gwi.com/secret-santa-bot/internal/logger"
	"gwi.com/secret-santa-bot/internal/store"
	"gwi.com/secret-santa-bot/internal/telegram"
)

const serviceName = "secret-santa-bot"

func main() {
	seedFlag := flag.Bool("seed", false, "Add the built-in test participants to the store and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zlog, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, *seedFlag, zlog); err != nil {
		zlog.Fatal("Service stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, seed bool, zlog *zap.Logger) error {
	st, err := store.Open(store.Options{
		Backend:          cfg.StoreBackend,
		ParticipantsFile: cfg.ParticipantsFile,
		AssignmentsFile:  cfg.AssignmentsFile,
		DatabaseURL:      cfg.DatabaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if seed {
		added, err := store.SeedTestParticipants(st)
		if err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}
		zlog.Info("Test participants added", zap.Int("added", added))
		return nil
	}

	exclusions, err := config.LoadExclusions(cfg.ExclusionsFile)
	if err != nil {
		return err
	}
	zlog.Info("Exclusions loaded", zap.Int("pairs", len(exclusions)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ideas core.IdeaGenerator
	if cfg.GeminiAPIKey != "" {
		llm, err := core.NewLLMService(ctx, cfg.GeminiAPIKey, zlog)
		if err != nil {
			return err
		}
		defer llm.Close()
		ideas = llm
	}

	client := telegram.NewClient(cfg.TelegramAPIURL, cfg.TelegramToken, zlog)
	svc := core.NewSantaService(core.Deps{
		Participants: st,
		Assignments:  st,
		Engine:       core.NewEngine(nil, cfg.AssignMaxAttempts),
		Exclusions:   exclusions,
		Notifier:     bot.NewNotifier(client, ideas != nil),
		Ideas:        ideas,
		Logger:       zlog,
	})
	b := bot.New(svc, client, auth.NewAuthorizer(cfg.AdminUserID), cfg.IntroVideoPath, zlog)

	webhook := cfg.Mode == config.ModeWebhook
	router := api.NewRouter(api.NewAPIHandler(b, zlog), webhook, cfg.WebhookSecret)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 2)
	go func() {
		zlog.Info("Starting HTTP server", zap.String("addr", srv.Addr), zap.String("mode", cfg.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("could not listen on %s: %w", srv.Addr, err)
		}
	}()

	if webhook {
		if err := client.SetWebhook(ctx, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			return fmt.Errorf("failed to register webhook: %w", err)
		}
		zlog.Info("Webhook registered", zap.String("url", cfg.WebhookURL))
	} else {
		if err := client.DeleteWebhook(ctx); err != nil {
			return fmt.Errorf("failed to remove webhook: %w", err)
		}
		poller := telegram.NewPoller(client, b, cfg.PollTimeout, zlog)
		go func() {
			if err := poller.Run(ctx); err != nil {
				errc <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		zlog.Info("Shutting down")
	case err := <-errc:
		stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	zlog.Info("Server exited gracefully")
	return nil
}
