package cli

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"docqa/internal/app"
	"docqa/internal/bootstrap"
)

func newInitCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				cmd.Println("Database initialized")
				return nil
			})
		},
	}
}

func newUploadCmd(r *runner) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Upload a text document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			return r.withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				doc, err := rt.App.Upload(ctx, app.UploadInput{
					Name:        name,
					Filename:    filepath.Base(path),
					ContentType: detectContentType(path, data),
					Data:        data,
					Size:        int64(len(data)),
				})
				if err != nil {
					return err
				}
				cmd.Printf("Uploaded %s\n", doc.ID)
				cmd.Printf("  Name:  %s\n", doc.Name)
				cmd.Printf("  Words: %d\n", doc.WordCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Document name (defaults to the file name)")
	return cmd
}

func newListCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				docs, err := rt.App.ListDocuments(ctx)
				if err != nil {
					return fmt.Errorf("failed to list documents: %w", err)
				}
				if len(docs) == 0 {
					cmd.Println("No documents uploaded")
					return nil
				}
				for _, doc := range docs {
					cmd.Printf("  %s\n", doc.ID)
					cmd.Printf("    Name:     %s\n", doc.Name)
					cmd.Printf("    Words:    %d\n", doc.WordCount)
					cmd.Printf("    Uploaded: %s\n", doc.UploadedAt.Format("2006-01-02 15:04:05"))
				}
				cmd.Printf("\nTotal: %d documents\n", len(docs))
				return nil
			})
		},
	}
}

func newShowCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "show [doc-id]",
		Short: "Print document content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				doc, err := rt.App.GetDocument(ctx, args[0])
				if err != nil {
					return err
				}
				cmd.Println(doc.Content)
				return nil
			})
		},
	}
}

func newChunksCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "chunks [doc-id]",
		Short: "Show the chunks of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				chunks, err := rt.App.DocumentChunks(ctx, args[0])
				if err != nil {
					return err
				}
				for _, chunk := range chunks {
					cmd.Printf("[%d] %s\n", chunk.ChunkIndex, app.Preview(chunk.Content))
				}
				cmd.Printf("\nTotal: %d chunks\n", len(chunks))
				return nil
			})
		},
	}
}

func newDeleteCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [doc-id]",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				res, err := rt.App.DeleteDocument(ctx, args[0])
				if err != nil {
					return err
				}
				cmd.Println("Document deleted")
				if res.ArchiveWarning != "" {
					cmd.PrintErrf("warning: %s\n", res.ArchiveWarning)
				}
				return nil
			})
		},
	}
}

func newAskCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask a question against the uploaded documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return r.withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				res, err := rt.App.Ask(ctx, question)
				if err != nil {
					return err
				}
				cmd.Println(res.Answer)
				if len(res.Sources) > 0 {
					cmd.Println("\nSources:")
					for i, src := range res.Sources {
						cmd.Printf("  [%d] %s#%d\n", i+1, src.DocumentID, src.ChunkIndex)
					}
				}
				return nil
			})
		},
	}
}

func newStatsCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics and service health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				h := rt.App.Health(ctx)
				cmd.Printf("Status:    %s\n", h.Status)
				cmd.Printf("Database:  %s\n", h.Services.Database)
				cmd.Printf("LLM:       %s\n", h.Services.LLM)
				cmd.Printf("Documents: %d\n", h.Stats.DocumentsCount)
				cmd.Printf("Words:     %d\n", h.Stats.TotalWords)
				if h.Services.Database == "failed" {
					return errors.New("database unavailable")
				}
				return nil
			})
		},
	}
}

// detectContentType prefers the extension and falls back to sniffing.
func detectContentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
