package main

import (
	"context"
	"log"
	"os"

	"github.com/willimj3/brief-bank-tool/generate"
	"github.com/willimj3/brief-bank-tool/handlers"
	"github.com/willimj3/brief-bank-tool/llm"
	"github.com/willimj3/brief-bank-tool/outline"
	"github.com/willimj3/brief-bank-tool/rank"
	"github.com/willimj3/brief-bank-tool/repository"
	"github.com/willimj3/brief-bank-tool/service"
	"github.com/willimj3/brief-bank-tool/storage"
	"github.com/willimj3/brief-bank-tool/store"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

func main() {
	// Load .env file from project root (relative to cmd/server/)
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			log.Printf("Warning: No .env file found, using environment variables")
		}
	}

	// The passage store is Postgres when DATABASE_URL is set, in-memory
	// otherwise (development and demos).
	passageStore, closeStore, err := initPassageStore()
	if err != nil {
		log.Fatal("Failed to initialize passage store:", err)
	}
	defer closeStore()

	docStorage, err := storage.NewStorageFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	log.Println("Storage initialized")

	geminiClient, err := initGemini()
	if err != nil {
		log.Fatal("Failed to initialize Gemini:", err)
	}
	defer geminiClient.Close()

	embedder := llm.NewEmbeddingClient(os.Getenv("GEMINI_API_KEY"))
	drafting := llm.NewDraftingClient(geminiClient)

	ranker := rank.NewRanker(embedder)
	synthesizer := outline.NewSynthesizer(ranker)
	generator := generate.NewGenerator(drafting)

	briefService := service.NewBriefService(passageStore, embedder, ranker,
		service.WithBriefStorage(docStorage),
	)
	draftService := service.NewDraftService(passageStore, synthesizer, generator,
		service.WithExportStorage(docStorage),
	)

	briefHandler := handlers.NewBriefHandler(briefService)
	draftHandler := handlers.NewDraftHandler(draftService)

	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Brief bank endpoints
		api.POST("/briefs", briefHandler.IngestBrief)
		api.GET("/briefs", briefHandler.ListBriefs)
		api.GET("/briefs/:id", briefHandler.GetBrief)
		api.DELETE("/briefs/:id", briefHandler.DeleteBrief)
		api.POST("/search", briefHandler.Search)

		// Draft endpoints
		api.POST("/drafts", draftHandler.CreateDraft)
		api.GET("/drafts/:id", draftHandler.GetDraft)
		api.PUT("/drafts/:id/outline", draftHandler.UpdateOutline)
		api.POST("/drafts/:id/generate/:sectionId", draftHandler.GenerateSection)
		api.POST("/drafts/:id/regenerate/:sectionId", draftHandler.RegenerateSection)
		api.POST("/drafts/:id/generate-all", draftHandler.GenerateAll)
		api.POST("/drafts/:id/export", draftHandler.ExportDraft)
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func initPassageStore() (store.PassageStore, func(), error) {
	connString := os.Getenv("DATABASE_URL")
	if connString == "" {
		log.Println("DATABASE_URL not set, using in-memory passage store")
		return store.NewMemoryStore(), func() {}, nil
	}

	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Enable pgvector extension
	if _, err := pool.Exec(context.Background(), "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Printf("Warning: Failed to create pgvector extension: %v", err)
		log.Println("This may be normal if extension is already installed or requires superuser privileges")
	} else {
		log.Println("pgvector extension enabled")
	}

	log.Println("Postgres connection established with pgvector support")
	return repository.NewPassageRepository(pool), pool.Close, nil
}

func initGemini() (*genai.Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	log.Println("Gemini client initialized")
	return client, nil
}
