// interviewd runs the conversational interview engine: an HTTP service
// that conducts long-running, resumable AI-facilitated interviews.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"interviewd/pkg/config"
	"interviewd/pkg/contextmgr"
	"interviewd/pkg/engine"
	"interviewd/pkg/knowledge"
	"interviewd/pkg/llm/factory"
	"interviewd/pkg/logx"
	"interviewd/pkg/metrics"
	"interviewd/pkg/persistence"
	"interviewd/pkg/safeguarding"
	"interviewd/pkg/server"
	"interviewd/pkg/session"
	"interviewd/pkg/templates"
	"interviewd/pkg/utils"
)

func main() {
	var (
		configPath    = flag.String("config", "interviewd.yaml", "path to configuration file")
		secretsPath   = flag.String("secrets", "", "path to encrypted secrets file (optional)")
		indexDir      = flag.String("index", "", "index knowledge documents from this directory, then exit")
		prometheusURL = flag.String("prometheus-url", "", "Prometheus base URL for session metrics queries (optional)")
		webhookURL    = flag.String("completion-webhook", "", "URL to notify on interview completion (optional)")
		dashboardURL  = flag.String("dashboard-url", "", "dashboard URL included in completion notices")
		debug         = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	if err := run(*configPath, *secretsPath, *indexDir, *prometheusURL, *webhookURL, *dashboardURL, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "interviewd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, secretsPath, indexDir, prometheusURL, webhookURL, dashboardURL string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if debug || cfg.Debug {
		logx.SetDebug(true)
	}
	logger := logx.NewLogger("main")

	secrets, err := loadSecrets(secretsPath)
	if err != nil {
		return err
	}

	db, err := persistence.Open(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	store := persistence.NewStore(db)

	embedder, err := knowledge.NewEmbedder(cfg.Embedding, secrets.APIKey(config.ProviderOpenAI))
	if err != nil {
		return err
	}

	if indexDir != "" {
		indexer := knowledge.NewIndexer(store, embedder)
		n, err := indexer.IndexDirectory(context.Background(), indexDir)
		if err != nil {
			return err
		}
		logger.Info("indexed %d chunks from %s", n, indexDir)
		return nil
	}

	client, err := factory.NewClient(&cfg, secrets)
	if err != nil {
		return err
	}

	renderer, err := templates.NewRenderer()
	if err != nil {
		return err
	}
	composer := templates.NewComposer(renderer)

	retriever := knowledge.NewRetriever(store, embedder, cfg.Knowledge)

	counter, err := utils.NewTokenCounter()
	if err != nil {
		logger.Warn("tokenizer unavailable, using estimation: %v", err)
	}
	cm := contextmgr.NewManager(counter, cfg.Model.MaxContextTokens)

	eng := engine.New(client, composer, retriever, cm, engine.Options{
		MaxTokens:   cfg.Model.MaxTokens,
		Temperature: cfg.Model.Temperature,
	})

	escalator := safeguarding.NewEscalator(safeguarding.NewLogSink(), cfg.Safeguarding.AlertThreshold)

	var notifier session.CompletionNotifier = session.NewLogNotifier()
	if webhookURL != "" {
		notifier = session.NewWebhookNotifier(webhookURL)
	}

	manager := session.NewManager(store, eng, escalator, notifier, dashboardURL)

	var metricsQuery *metrics.QueryService
	if prometheusURL != "" {
		metricsQuery, err = metrics.NewQueryService(prometheusURL)
		if err != nil {
			return err
		}
	}

	srv := server.New(cfg.Server.Addr, manager, metricsQuery)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

// loadSecrets loads the encrypted secrets file, prompting for the
// passphrase on the terminal. With no secrets file configured, API keys
// come from environment variables only.
func loadSecrets(path string) (config.Secrets, error) {
	if path == "" {
		return config.Secrets{}, nil
	}

	passphrase := os.Getenv("INTERVIEWD_PASSPHRASE")
	if passphrase == "" {
		fmt.Fprint(os.Stderr, "Secrets passphrase: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
		passphrase = string(raw)
	}

	secrets, err := config.LoadSecrets(path, passphrase)
	if err != nil {
		return nil, err
	}
	return secrets, nil
}
