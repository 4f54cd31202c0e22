package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/candle-listing-bot/internal/bot"
	"github.com/raine/candle-listing-bot/internal/config"
	"github.com/raine/candle-listing-bot/internal/llm"
	"github.com/raine/candle-listing-bot/internal/maintenance"
	"github.com/raine/candle-listing-bot/internal/storage"
	"github.com/raine/candle-listing-bot/internal/suggest"
	"github.com/raine/candle-listing-bot/internal/vision"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const logFileName = config.AppName + ".log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	config.LoadEnvFile()

	if missing := config.CheckRequiredConfig(); len(missing) > 0 {
		if config.IsInteractiveTerminal() {
			if !config.RunSetupWizard() {
				config.WaitOnWindows()
				os.Exit(1)
			}
		} else {
			// Non-interactive (systemd, k8s, etc.) - fail with clear error
			config.FatalWithWait("missing required config: %s", strings.Join(missing, ", "))
		}
	}

	// JOURNAL_STREAM is set by systemd when running as a service, and
	// journald keeps the logs.
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			config.FatalWithWait("failed to open log file: %v", err)
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	cfg, err := config.Load()
	if err != nil {
		config.FatalWithWait("invalid config: %v", err)
	}

	tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		config.FatalWithWait("failed to initialize telegram bot: %v", err)
	}
	tg.Debug = false
	log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

	bot.RegisterCommands(tg)

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		config.FatalWithWait("failed to initialize store: %v", err)
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	suggester, err := newSuggestService(ctx, cfg, store)
	if err != nil {
		config.FatalWithWait("%v", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runBot(ctx, tg, store, suggester, cfg)
	})

	maintenanceService := maintenance.NewService(store, cfg.CacheMaxAge)
	g.Go(func() error {
		maintenanceService.Run(ctx)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

// newSuggestService wires the vision pipeline and, when a Gemini key is
// configured, the AI pipeline and translation.
func newSuggestService(ctx context.Context, cfg *config.Config, store storage.Store) (*suggest.Service, error) {
	visionProvider, err := vision.NewGoogleVision(ctx, cfg.VisionAPIKey)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("google cloud vision initialized")

	svcCfg := suggest.Config{
		Vision: visionProvider,
		Cache:  store,
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		svcCfg.Analyzer = gemini
		svcCfg.Translator = gemini
		log.Info().Msg("gemini analyzer initialized")
	} else {
		log.Info().Msg("GEMINI_API_KEY not set, ai mode and translation disabled")
	}

	return suggest.NewService(svcCfg), nil
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, store storage.Store, suggester *suggest.Service, cfg *config.Config) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	b := bot.NewBot(tg, store, suggester, cfg.AdminID, cfg.DefaultMode)
	defer b.Shutdown()

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}
