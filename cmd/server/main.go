package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"medrag/pkg/clients"
	"medrag/pkg/config"
	"medrag/pkg/database"
	"medrag/pkg/embeddings"
	"medrag/pkg/rag"
	"medrag/pkg/server"
	"medrag/pkg/vectorstore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureVectorExtension(ctx); err != nil {
		log.Fatalf("Failed to enable pgvector: %v", err)
	}
	if err := db.CreateChunksTable(ctx, cfg.CollectionName, cfg.EmbeddingDim); err != nil {
		log.Fatalf("Failed to create chunks table: %v", err)
	}
	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	store, err := vectorstore.NewPGVectorStore(db.Pool, cfg.CollectionName)
	if err != nil {
		log.Fatalf("Failed to init vector store: %v", err)
	}

	embedder, err := embeddings.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to init embedder: %v", err)
	}

	llm, err := clients.Ollama(cfg.OllamaBaseURL, cfg.OllamaModel)
	if err != nil {
		log.Fatalf("Failed to init Ollama client: %v", err)
	}

	engine := rag.NewEngine(cfg, store, embedder, llm)
	svc := server.NewService(db, engine)
	handler := server.NewHandler(svc)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	handler.RegisterRoutes(r)

	fmt.Printf("Server starting on port %s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
