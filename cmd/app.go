package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/bidwin/internal/ai"
	"github.com/spigell/bidwin/internal/ai/gemini"
	"github.com/spigell/bidwin/internal/catalog"
	"github.com/spigell/bidwin/internal/document"
	"github.com/spigell/bidwin/internal/extraction"
	"github.com/spigell/bidwin/internal/logger"
	"github.com/spigell/bidwin/internal/matching"
	"github.com/spigell/bidwin/internal/pipeline"
	"github.com/spigell/bidwin/internal/pricing"
	"github.com/spigell/bidwin/internal/proposal"
	"github.com/spigell/bidwin/internal/secrets"
	"github.com/spigell/bidwin/internal/store"
	"github.com/spigell/bidwin/internal/store/memory"
	"github.com/spigell/bidwin/internal/store/postgres"
)

// application wires the components shared by all commands.
type application struct {
	config   *Config
	logger   *zap.Logger
	store    store.Store
	renderer *proposal.Renderer
	pipeline *pipeline.Orchestrator
}

// runApp builds the application, runs fn and exits through the logger on failure.
func runApp(cmd *cobra.Command, fn func(ctx context.Context, app *application) error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	pretty, _ := json.MarshalIndent(redacted(*config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty), zap.String("command", cmd.Name()))

	app, err := newApplication(ctx, config, logger)
	if err != nil {
		logger.Fatal("initializing", zap.Error(err))
	}

	err = fn(ctx, app)
	app.close()
	if err != nil {
		logger.Fatal(cmd.Name()+" failed", zap.Error(err))
	}
}

func newApplication(ctx context.Context, config *Config, log *zap.Logger) (*application, error) {
	st, err := openStore(ctx, config.Storage, log)
	if err != nil {
		return nil, err
	}

	if err := catalog.Seed(ctx, st, log.Named("catalog")); err != nil {
		st.Close()
		return nil, err
	}

	renderer := proposal.NewRenderer(config.Proposal.OutputDir, log.Named("proposal"))
	deps := pipeline.Deps{
		Store:     st,
		Documents: document.NewReader(),
		Renderer:  renderer,
		RateCard:  pricing.DefaultRateCard,
		Logger:    log.Named("pipeline"),
	}

	reasoner, err := newReasoner(ctx, config.AI, log)
	if err != nil {
		log.Warn("reasoning capability disabled, technical analysis and chat are unavailable", zap.Error(err))
	} else {
		maxLog := config.AI.Gemini.MaxLogLength
		deps.Reasoner = reasoner
		deps.Extractor = extraction.NewExtractor(reasoner, maxLog, log.Named("extraction"))
		deps.Matcher = matching.NewMatcher(reasoner, maxLog, log.Named("matching"))
	}

	orchestrator, err := pipeline.New(pipeline.Config{
		MaxDocumentChars: config.Pipeline.MaxDocumentChars,
		MaxChatChars:     config.Pipeline.MaxChatChars,
	}, deps)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &application{
		config:   config,
		logger:   log,
		store:    st,
		renderer: renderer,
		pipeline: orchestrator,
	}, nil
}

func (a *application) close() {
	a.store.Close()
	_ = a.logger.Sync()
}

func openStore(ctx context.Context, cfg StorageConfig, log *zap.Logger) (store.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		log.Info("using in-memory storage, data is lost on exit")
		return memory.New(), nil
	case "postgres":
		dsn, err := secrets.Load(secrets.Source{
			Name:  "postgres dsn",
			Value: cfg.Postgres.DSN,
			File:  cfg.Postgres.DSNFile,
			Env:   "DATABASE_URL",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set storage.postgres.dsn, storage.postgres.dsn-file or DATABASE_URL)", err)
		}
		return postgres.Open(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func newReasoner(ctx context.Context, cfg AIConfig, log *zap.Logger) (ai.Reasoner, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	genLogger := logger.WithCommonFields(log.Named("gemini"), "gemini", cfg.Gemini.Model).
		With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	return gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
}

func redacted(c Config) Config {
	if c.AI.Gemini.APIKey != "" {
		c.AI.Gemini.APIKey = "***"
	}
	if c.Storage.Postgres.DSN != "" {
		c.Storage.Postgres.DSN = "***"
	}
	return c
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
