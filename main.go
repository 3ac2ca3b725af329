package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/manualmate/orchestrator/internal/adapter/embedding"
	"github.com/manualmate/orchestrator/internal/adapter/llm"
	"github.com/manualmate/orchestrator/internal/cache"
	"github.com/manualmate/orchestrator/internal/config"
	"github.com/manualmate/orchestrator/internal/policy"
	"github.com/manualmate/orchestrator/internal/retrieval"
	"github.com/manualmate/orchestrator/internal/service"
	"github.com/manualmate/orchestrator/internal/store"
	"github.com/manualmate/orchestrator/internal/tools"
	v1 "github.com/manualmate/orchestrator/internal/transport/http/v1"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting assistant orchestrator...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Embedding model: %s", cfg.EmbeddingModel)

	// Initialize store; fall back to in-memory history when the database
	// cannot be opened
	var db store.Store
	sqliteStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Printf("WARN: failed to open database, running without durable history: %v", err)
		db = store.NewMemoryStore()
	} else {
		db = sqliteStore
	}
	defer db.Close()

	// Initialize the retrieval index; prefer the embedded corpus, fall back
	// to the raw manual content
	embedClient := embedding.NewClient(cfg.EmbeddingURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.LLMTimeout)
	chunks, err := retrieval.LoadChunks(cfg.EmbeddingsPath)
	if err != nil {
		log.Printf("WARN: failed to load embedded corpus: %v", err)
		chunks, err = retrieval.LoadFallback(cfg.ContentPath)
		if err != nil {
			log.Printf("WARN: failed to load fallback corpus, answering without manual context: %v", err)
			chunks = nil
		}
	}
	index := retrieval.New(embedClient, chunks)
	log.Printf("Retrieval index loaded: %d chunks (embedded=%v)", index.Len(), index.HasEmbeddings())

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize tool registry
	registry := tools.NewRegistry(policyEngine)
	tools.RegisterLocalTools(registry)
	tools.RegisterRemoteTools(registry, tools.RemoteConfig{
		Cache:            cache.New(cfg.CacheTTL),
		Timeout:          cfg.ToolTimeout,
		OpenChargeAPIKey: cfg.OpenChargeAPIKey,
	})

	// Initialize generation providers: primary first, fallbacks after
	providers := []llm.Provider{
		llm.NewDeepSeekClient(cfg.DeepSeekURL, cfg.DeepSeekAPIKey, cfg.LLMTimeout),
		llm.NewOpenAIClient(cfg.OpenAIURL, cfg.OpenAIAPIKey, cfg.LLMTimeout),
	}

	// Initialize service
	svc := service.New(db, index, registry, providers, service.Options{
		RetrievalTopK:      cfg.RetrievalTopK,
		RetrievalMinScore:  cfg.RetrievalMinScore,
		HistoryTokenBudget: cfg.HistoryTokenBudget,
	})

	// Initialize handler
	h := v1.NewHandler(svc)

	// Create Echo server
	server := echo.New()
	server.HideBanner = true

	// Middleware
	server.Use(middleware.Logger())
	server.Use(middleware.Recover())
	server.Use(middleware.CORS())

	// Register routes
	h.RegisterRoutes(server)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down orchestrator...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Orchestrator stopped")
}
