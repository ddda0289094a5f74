package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"deckhand/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var sourceFiles []string
	var sourceURLs []string
	var prompt string
	var keepNotebook bool
	var deleteNotebook bool

	cmd := &cobra.Command{
		Use:   "submit <document>",
		Short: "Queue a document for deck generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keepNotebook && deleteNotebook {
				return errors.New("specify only one of --keep-notebook or --delete-notebook")
			}

			primary, err := resolveSourceFile(args[0])
			if err != nil {
				return err
			}

			var additional []string
			for _, raw := range sourceFiles {
				if strings.TrimSpace(raw) == "" {
					continue
				}
				path, err := resolveSourceFile(raw)
				if err != nil {
					return err
				}
				additional = append(additional, path)
			}

			var urls []string
			for _, raw := range sourceURLs {
				url := strings.TrimSpace(raw)
				if url == "" {
					continue
				}
				if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
					return fmt.Errorf("source url must start with http:// or https://: %s", url)
				}
				urls = append(urls, url)
			}

			req := api.SubmitRequest{
				PrimarySource:     primary,
				AdditionalSources: additional,
				SourceURLs:        urls,
				CustomPrompt:      strings.TrimSpace(prompt),
			}
			if keepNotebook {
				value := false
				req.DeleteRemoteArtifact = &value
			}
			if deleteNotebook {
				value := true
				req.DeleteRemoteArtifact = &value
			}

			return ctx.withQueue(func(q queueAPI) error {
				job, err := q.Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as job %s\n", filepath.Base(primary), shortJobID(job.ID))
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&sourceFiles, "source-file", "f", nil, "Additional source document (repeatable)")
	cmd.Flags().StringArrayVarP(&sourceURLs, "source-url", "u", nil, "Source URL to include (repeatable)")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Custom generation prompt")
	cmd.Flags().BoolVar(&keepNotebook, "keep-notebook", false, "Keep the remote notebook after the deck downloads")
	cmd.Flags().BoolVar(&deleteNotebook, "delete-notebook", false, "Delete the remote notebook after the deck downloads")
	return cmd
}

func resolveSourceFile(raw string) (string, error) {
	absPath, err := filepath.Abs(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("file does not exist: %s", absPath)
		}
		return "", fmt.Errorf("inspect file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", absPath)
	}
	return absPath, nil
}
