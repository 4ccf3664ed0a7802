package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"medrag/pkg/clients"
	"medrag/pkg/config"
	"medrag/pkg/database"
	"medrag/pkg/embeddings"
	"medrag/pkg/ingest"
	"medrag/pkg/pubmed"
	"medrag/pkg/rag"
	"medrag/pkg/textproc"
	"medrag/pkg/vectorstore"
)

var (
	searchTerms string
	maxResults  int
	dateFrom    string
	dateTo      string
	corpusPath  string
	resetIndex  bool
	directMode  bool
	compareMode bool
	topK        int
	threshold   float64
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	if err := godotenv.Load(); err != nil {
		// Env vars may be set directly.
	}
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "medrag",
		Short: "Medical literature RAG pipeline",
		Long:  `medrag collects PubMed abstracts, indexes them into a pgvector store, and answers medical questions grounded in the indexed literature.`,
	}

	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect articles from PubMed into a corpus file",
		Run: func(cmd *cobra.Command, args []string) {
			terms := splitTerms(searchTerms)
			if len(terms) == 0 {
				slog.Error("No search terms provided, use --terms")
				os.Exit(1)
			}
			if maxResults <= 0 {
				maxResults = cfg.PubMedMaxResults
			}

			collector := pubmed.NewCollector(cfg.PubMedEmail, cfg.PubMedToolName)
			corpus, err := collector.Collect(context.Background(), terms, maxResults, [2]string{dateFrom, dateTo})
			if err != nil {
				slog.Error("Collection failed", "error", err)
				os.Exit(1)
			}

			if err := ingest.SaveCorpus(corpus, corpusPath); err != nil {
				slog.Error("Failed to save corpus", "error", err)
				os.Exit(1)
			}
			slog.Info("Corpus saved", "path", corpusPath, "articles", len(corpus.Articles))
		},
	}
	collectCmd.Flags().StringVarP(&searchTerms, "terms", "t", "", "Comma-separated PubMed search terms")
	collectCmd.Flags().IntVarP(&maxResults, "max", "m", 0, "Max results per search term")
	collectCmd.Flags().StringVar(&dateFrom, "from", "", "Start publication date (YYYY/MM/DD)")
	collectCmd.Flags().StringVar(&dateTo, "to", "", "End publication date (YYYY/MM/DD)")
	collectCmd.Flags().StringVarP(&corpusPath, "out", "o", "corpus.json", "Output corpus file")

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Process and embed a corpus file into the vector store",
		Run: func(cmd *cobra.Command, args []string) {
			corpus, err := ingest.LoadCorpus(corpusPath)
			if err != nil {
				slog.Error("Failed to load corpus", "error", err)
				os.Exit(1)
			}

			ctx := context.Background()
			store, embedder := mustStore(ctx, cfg)

			if resetIndex {
				if err := store.Reset(ctx); err != nil {
					slog.Error("Failed to reset index", "error", err)
					os.Exit(1)
				}
				slog.Info("Index reset", "collection", cfg.CollectionName)
			}

			indexer := ingest.NewIndexer(store, embedder, textproc.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap))
			stats, err := indexer.IndexArticles(ctx, corpus.Articles)
			if err != nil {
				slog.Error("Indexing failed", "error", err, "chunks_stored", stats.Chunks)
				os.Exit(1)
			}
			slog.Info("Indexing complete",
				"articles", stats.Articles, "skipped", stats.SkippedArticles, "chunks", stats.Chunks)
		},
	}
	indexCmd.Flags().StringVarP(&corpusPath, "in", "i", "corpus.json", "Input corpus file")
	indexCmd.Flags().BoolVar(&resetIndex, "reset", false, "Truncate the collection before indexing")

	queryCmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask a question against the indexed literature",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			question := strings.Join(args, " ")
			ctx := context.Background()
			engine := mustEngine(ctx, cfg)

			opts := rag.QueryOptions{TopK: topK, Threshold: threshold}
			switch {
			case compareMode:
				cmp := engine.Compare(ctx, question, opts)
				fmt.Println("=== Grounded ===")
				printGrounded(cmp.Grounded)
				fmt.Println("\n=== Direct ===")
				fmt.Println(cmp.Direct.Answer)
			case directMode:
				resp := engine.Direct(ctx, question)
				fmt.Println(resp.Answer)
			default:
				printGrounded(engine.Query(ctx, question, opts))
			}
		},
	}
	queryCmd.Flags().BoolVarP(&directMode, "direct", "d", false, "Answer without retrieval")
	queryCmd.Flags().BoolVar(&compareMode, "compare", false, "Answer in both modes")
	queryCmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve")
	queryCmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity score")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show index size and backend availability",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			engine := mustEngine(ctx, cfg)
			status := engine.Status(ctx)
			fmt.Printf("Vector store ready: %v (%d chunks in %s)\n",
				status.VectorStoreReady, status.TotalChunks, cfg.CollectionName)
			fmt.Printf("Generator ready:    %v\n", status.GeneratorReady)
			if len(status.AvailableModels) > 0 {
				fmt.Printf("Available models:   %s\n", strings.Join(status.AvailableModels, ", "))
			}
		},
	}

	rootCmd.AddCommand(collectCmd, indexCmd, queryCmd, statusCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func splitTerms(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func mustStore(ctx context.Context, cfg *config.Config) (*vectorstore.PGVectorStore, embeddings.Embedder) {
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := db.EnsureVectorExtension(ctx); err != nil {
		slog.Error("Failed to enable pgvector", "error", err)
		os.Exit(1)
	}
	if err := db.CreateChunksTable(ctx, cfg.CollectionName, cfg.EmbeddingDim); err != nil {
		slog.Error("Failed to create chunks table", "error", err)
		os.Exit(1)
	}

	store, err := vectorstore.NewPGVectorStore(db.Pool, cfg.CollectionName)
	if err != nil {
		slog.Error("Failed to init vector store", "error", err)
		os.Exit(1)
	}

	embedder, err := embeddings.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to init embedder", "error", err)
		os.Exit(1)
	}
	return store, embedder
}

func mustEngine(ctx context.Context, cfg *config.Config) *rag.Engine {
	store, embedder := mustStore(ctx, cfg)

	llm, err := clients.Ollama(cfg.OllamaBaseURL, cfg.OllamaModel)
	if err != nil {
		slog.Error("Failed to init Ollama client", "error", err)
		os.Exit(1)
	}
	return rag.NewEngine(cfg, store, embedder, llm)
}

func printGrounded(resp *rag.RAGResponse) {
	fmt.Println(resp.Answer)
	if len(resp.SourceDocuments) > 0 {
		fmt.Println("\nSources:")
		for i, doc := range resp.SourceDocuments {
			title, _ := doc.Metadata["title"].(string)
			pmid, _ := doc.Metadata["pmid"].(string)
			fmt.Printf("  %d. %s [PMID: %s] (similarity %.3f)\n", i+1, title, pmid, doc.SimilarityScore)
		}
	}
	fmt.Printf("\nsearch %.0fms, generation %.0fms, total %.0fms\n",
		resp.SearchTimeMs, resp.GenerationTimeMs, resp.TotalTimeMs)
}
