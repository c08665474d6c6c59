package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/internal/config"
	"github.com/cuongbtq/hr-rag/internal/document"
	"github.com/cuongbtq/hr-rag/internal/rag"
	"github.com/cuongbtq/hr-rag/internal/storage"
	"github.com/cuongbtq/hr-rag/internal/vectorstore/memory"
	"github.com/cuongbtq/hr-rag/internal/vectorstore/pgvector"
)

type askOptions struct {
	tenantID       int64
	userID         int64
	conversationID int64
	files          []string
}

func (c *cli) newAskCommand() *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Answer a question from a tenant's indexed documents",
		Long: `Answer a question from a tenant's indexed documents.

With --file the given documents are indexed into an in-process store and
nothing is read from or written to the database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(args[0])
			if query == "" {
				return errors.New("question must not be empty")
			}
			var conversationID *int64
			if cmd.Flags().Changed("conversation") {
				if len(opts.files) > 0 {
					return errors.New("--conversation cannot be combined with --file")
				}
				conversationID = &opts.conversationID
			}
			return c.ask(cmd, opts, query, conversationID)
		},
	}
	cmd.Flags().Int64Var(&opts.tenantID, "tenant", 1, "company whose documents are searched")
	cmd.Flags().Int64Var(&opts.userID, "user", 1, "user owning the conversation")
	cmd.Flags().Int64Var(&opts.conversationID, "conversation", 0, "continue an existing conversation")
	cmd.Flags().StringArrayVar(&opts.files, "file", nil, "index this file locally instead of using the database, repeatable")
	return cmd
}

func (c *cli) ask(cmd *cobra.Command, opts askOptions, query string, conversationID *int64) error {
	ctx := cmd.Context()

	cfg, log, err := c.load()
	if err != nil {
		return err
	}
	defer log.Close()

	if err := cfg.ValidateLocal(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	embedder, generator, closer, err := newBackends(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	var answerer *rag.Answerer
	if len(opts.files) > 0 {
		answerer, err = localAnswerer(cmd, cfg, log.Logger, embedder, generator, opts)
	} else {
		var closeDB func() error
		answerer, closeDB, err = databaseAnswerer(cfg, log.Logger, embedder, generator)
		if closeDB != nil {
			defer closeDB()
		}
	}
	if err != nil {
		return err
	}

	answer, err := answerer.Answer(ctx, rag.Identity{UserID: opts.userID, TenantID: opts.tenantID}, query, conversationID)
	if err != nil {
		return err
	}
	printAnswer(cmd.OutOrStdout(), answer)
	return nil
}

func localAnswerer(cmd *cobra.Command, cfg *config.Config, log *slog.Logger, embedder ai.Embedder, generator ai.Generator, opts askOptions) (*rag.Answerer, error) {
	chunker, err := document.NewChunker(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	repo := newLocalRepository()
	store := memory.New(cfg.Embedding.Dimension)
	ingestor := rag.NewIngestor(repo, document.NewExtractor(log), chunker, embedder, store, log)

	for _, path := range opts.files {
		doc := repo.addDocument(opts.tenantID, filepath.Base(path))
		outcome, err := ingestor.ProcessDocument(cmd.Context(), doc.ID, path)
		if err != nil {
			return nil, fmt.Errorf("indexing %s: %w", path, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s (%d chunks)\n", doc.Filename, outcome.Status, outcome.Chunks)
	}

	return rag.NewAnswerer(repo, embedder, generator, store, answererConfig(cfg), log), nil
}

func databaseAnswerer(cfg *config.Config, log *slog.Logger, embedder ai.Embedder, generator ai.Generator) (*rag.Answerer, func() error, error) {
	if cfg.VectorStore.Type == config.VectorStoreMemory {
		return nil, nil, fmt.Errorf("vector_store type %q holds no documents; pass --file", config.VectorStoreMemory)
	}
	client, err := connectDatabase(&cfg.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	store := pgvector.New(client.GetDB(), cfg.Embedding.Dimension, log)
	answerer := rag.NewAnswerer(storage.NewStorage(client, log), embedder, generator, store, answererConfig(cfg), log)
	return answerer, client.Close, nil
}

func answererConfig(cfg *config.Config) rag.AnswererConfig {
	return rag.AnswererConfig{
		TopK:        cfg.Pipeline.SearchTopK,
		Temperature: cfg.Generation.AnswerTemperature,
	}
}

func printAnswer(w io.Writer, answer *rag.Answer) {
	fmt.Fprintln(w, answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Sources:")
		for _, s := range answer.Sources {
			fmt.Fprintf(w, "  - %s (distance %.4f)\n", s.Filename, s.Distance)
		}
	}
	fmt.Fprintf(w, "\nconversation: %d\n", answer.ConversationID)
}
