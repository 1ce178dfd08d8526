// Package cli implements the lughad commands: serving the API, applying
// migrations, and seeding the knowledge store.
package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	openaiapi "github.com/sashabaranov/go-openai"
	"github.com/sauti-labs/lugha/internal/agents"
	"github.com/sauti-labs/lugha/internal/api/handlers"
	"github.com/sauti-labs/lugha/internal/config"
	"github.com/sauti-labs/lugha/internal/database"
	"github.com/sauti-labs/lugha/internal/escalation"
	"github.com/sauti-labs/lugha/internal/jobs"
	"github.com/sauti-labs/lugha/internal/knowledge"
	"github.com/sauti-labs/lugha/internal/openai"
	"github.com/sauti-labs/lugha/internal/pipeline"
	"github.com/sauti-labs/lugha/internal/repository"
	"github.com/sauti-labs/lugha/internal/retrieval"
	"github.com/sauti-labs/lugha/internal/server"
	"github.com/sauti-labs/lugha/internal/telemetry"
	"github.com/spf13/cobra"
)

const embeddingPollInterval = 10 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the lugha API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required: the translator and reviewer agents cannot run without it")
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.PoolConfig{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	knowledgeRepo := repository.NewKnowledgeRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	runRepo := repository.NewPipelineRunRepository(pool)
	escalationRepo := repository.NewEscalationRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)

	aiClient := openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		EmbeddingModel: openaiapi.EmbeddingModel(cfg.EmbeddingModel),
		ChatModel:      cfg.ChatModel,
	})

	engine := retrieval.NewEngine(aiClient, knowledgeRepo, cfg.RetrievalLimit)
	translator := agents.NewChatTranslator(aiClient, cfg.ChatModel, cfg.AgentTimeout)
	reviewer := agents.NewChatReviewer(aiClient, cfg.AgentTimeout)
	limiter := pipeline.NewRateLimiter(cfg.UserCallBudget, cfg.UserCallWindow)

	orchestrator := pipeline.NewOrchestrator(
		engine,
		translator,
		reviewer,
		conversationRepo,
		repository.NewPipelineTxRunner(pool),
		limiter,
		pipeline.Config{
			ReturnThreshold: cfg.ReturnThreshold,
			RetryLowerBound: cfg.RetryLowerBound,
			RetrievalLimit:  cfg.RetrievalLimit,
		},
	)

	queue := escalation.NewQueue(escalationRepo)
	resolver := escalation.NewResolver(escalationRepo, runRepo, repository.NewEscalationTxRunner(pool), cfg.QuorumSize)
	knowledgeSvc := knowledge.NewService(knowledgeRepo, repository.NewKnowledgeTxRunner(pool))

	embeddingProcessor := jobs.NewEmbeddingWorker(embeddingJobRepo, knowledgeRepo, aiClient)
	embeddingWorker := jobs.NewWorker(embeddingProcessor, embeddingPollInterval)
	go embeddingWorker.Start(ctx)
	log.Println("embedding worker started")

	routerCfg := server.RouterConfig{
		ChatHandler:       handlers.NewChatHandler(orchestrator),
		EscalationHandler: handlers.NewEscalationHandler(queue, resolver),
		KnowledgeHandler:  handlers.NewKnowledgeHandler(knowledgeSvc),
		RunHandler:        handlers.NewRunHandler(runRepo, conversationRepo),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	embeddingWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
