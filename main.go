package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/varsilias/chatpad/internal/api"
	"github.com/varsilias/chatpad/internal/buildinfo"
	"github.com/varsilias/chatpad/internal/chat"
	"github.com/varsilias/chatpad/internal/config"
	"github.com/varsilias/chatpad/internal/logging"
	"github.com/varsilias/chatpad/internal/middleware"
	"github.com/varsilias/chatpad/internal/models"
	"github.com/varsilias/chatpad/internal/openai"
	"github.com/varsilias/chatpad/internal/session"
	"github.com/varsilias/chatpad/internal/ui"
	"github.com/varsilias/chatpad/pkg/types"
)

func main() {
	// .env first so flag defaults below can read it
	config.LoadDotenv()

	addr := flag.String("addr", config.Getenv("ADDR", "8080"), "HTTP listen address")
	level := flag.String("log-level", config.Getenv("LOG_LEVEL", "info"), "log level: debug|info|warn|error")
	json := flag.Bool("log-json", config.Getenv("LOG_JSON", "false") == "true", "log as JSON")
	baseURL := flag.String("base-url", config.Getenv("OPENAI_BASE_URL", ""), "OpenAI-compatible API base URL (default https://api.openai.com/v1)")
	model := flag.String("model", config.Getenv("CHAT_MODEL", config.DefaultModel), "default chat model")
	echo := flag.Bool("echo", config.Getenv("CHAT_ECHO", "false") == "true", "serve canned echo replies, no API key required")
	verify := flag.Bool("verify", config.Getenv("OPENAI_VERIFY", "true") == "true", "probe the API key at startup")

	flag.Parse()

	logger := logging.New(*level, *json)
	logger.Info("build", "version", buildinfo.Version, "commit", buildinfo.Commit, "built_at", buildinfo.BuiltAt)

	gen, warns := config.Generation()
	for _, w := range warns {
		logger.Warn("config", "warn", w)
	}

	// Dependencies (real client when a usable key is present; else the UI
	// serves setup instructions and the JSON API reports the config error)
	var (
		engine    chat.Engine
		modelsMgr models.Manager
		status    = ui.StatusReady
		detail    string
	)

	switch {
	case *echo:
		logger.Info("echo mode: serving canned replies without an API key")
		engine = chat.NewEchoEngine(300 * time.Millisecond)
		modelsMgr = models.NewStaticManager([]string{*model})

	default:
		key, ok := config.LoadAPIKey()
		if !ok {
			logger.Warn("no API key found; serving setup instructions", "env", config.EnvAPIKey)
			status = ui.StatusNoKey
			engine = chat.NewEchoEngine(30 * time.Millisecond)
			modelsMgr = models.NewStaticManager([]string{*model})
			break
		}

		client, err := openai.NewClient(key, logger, openai.WithBaseURL(*baseURL))
		if err != nil {
			logger.Error("client init failed", "err", err.Error())
			status = ui.StatusBadKey
			detail = strings.TrimPrefix(err.Error(), openai.ErrInit.Error()+": ")
			engine = chat.NewEchoEngine(30 * time.Millisecond)
			modelsMgr = models.NewStaticManager([]string{*model})
			break
		}

		if *verify {
			ctxVerify, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			err := client.Verify(ctxVerify)
			cancel()
			switch {
			case err == nil:
				logger.Info("API key verified", "base_url", client.BaseURL())
			case errors.Is(err, openai.ErrAuth):
				logger.Error("API key rejected upstream", "err", err.Error())
				status = ui.StatusBadKey
				detail = "the API rejected the configured key"
			default:
				// transient reachability trouble should not keep the server down
				logger.Warn("startup verify failed; continuing", "err", err.Error())
			}
		}

		engine = chat.NewOpenAIEngine(client)
		modelsMgr = models.NewOpenAIManager(client)
	}

	sessionStore := session.NewMemoryStore(gen.SystemPrompt)
	chatCtrl := chat.NewController(logger, engine, sessionStore, types.GenParams{
		Temperature: gen.Temperature,
		MaxTokens:   gen.MaxTokens,
	})

	uih, err := ui.New(logger, chatCtrl, modelsMgr, sessionStore, ui.Config{
		DefaultModel: *model,
		Status:       status,
		StatusDetail: detail,
	})
	if err != nil {
		logger.Error("ui init", "err", err)
		os.Exit(1)
	}

	h := api.NewHandlers(logger, chatCtrl, modelsMgr, sessionStore, *model)
	switch status {
	case ui.StatusNoKey:
		h.ConfigError = config.EnvAPIKey + " is not set. Add it to your environment or a .env file and restart."
	case ui.StatusBadKey:
		h.ConfigError = "The configured API key is unusable: " + detail
	}

	mux := chi.NewRouter()
	ui.RegisterRoutes(mux, uih)
	api.RegisterRoutes(mux, h)

	var handler http.Handler = mux
	handler = middleware.Recoverer(logger)(handler)
	handler = middleware.AccessLog(logger)(handler)
	handler = middleware.RequestID()(handler)
	handler = middleware.VersionHeader()(handler)

	server := http.Server{
		Addr:              fmt.Sprintf(":%s", *addr),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      2 * time.Minute, // long completions on slow models
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("chatpad is listening", "port", *addr, "model", *model)

	// Graceful shutdown
	errChan := make(chan error, 1)
	go func() { errChan <- server.ListenAndServe() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	case sig := <-sigChan:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	} else {
		logger.Info("server stopped")
	}
}
