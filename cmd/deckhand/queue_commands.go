package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := validateStatuses(listStatuses)
			if err != nil {
				return err
			}
			return ctx.withQueue(func(q queueAPI) error {
				items, err := q.List(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{"items": items})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Document", "Status", "Created", "Detail"},
					buildQueueListRows(items),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				id, err := resolveJobID(cmd.Context(), q, args[0])
				if errors.Is(err, errJobNotFound) {
					return fmt.Errorf("no queue item %s", strings.TrimSpace(args[0]))
				}
				if err != nil {
					return err
				}
				item, err := q.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("no queue item %s", id)
				}
				if jsonOut {
					return writeJSON(cmd, item)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID: %s\n", item.ID)
				fmt.Fprintf(out, "Document: %s\n", item.PrimarySource)
				if len(item.AdditionalSources) > 0 {
					fmt.Fprintf(out, "Additional sources: %s\n", strings.Join(item.AdditionalSources, ", "))
				}
				if len(item.SourceURLs) > 0 {
					fmt.Fprintf(out, "Source URLs: %s\n", strings.Join(item.SourceURLs, ", "))
				}
				if item.CustomPrompt != "" {
					fmt.Fprintf(out, "Prompt: %s\n", item.CustomPrompt)
				}
				if item.DeleteRemoteArtifact != nil {
					fmt.Fprintf(out, "Delete notebook: %s\n", yesNo(*item.DeleteRemoteArtifact))
				}
				fmt.Fprintf(out, "Status: %s\n", formatStatusLabel(item.Status))
				if item.WorkspaceID != "" {
					fmt.Fprintf(out, "Notebook: %s\n", item.WorkspaceID)
				}
				if item.OutputPath != "" {
					fmt.Fprintf(out, "Output: %s\n", item.OutputPath)
				}
				if item.ErrorMessage != "" {
					fmt.Fprintf(out, "Error: %s\n", item.ErrorMessage)
				}
				created := formatDisplayTime(item.CreatedAt)
				if relative := formatRelativeTime(item.CreatedAt); relative != "" {
					created = fmt.Sprintf("%s (%s)", created, relative)
				}
				fmt.Fprintf(out, "Created: %s\n", created)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id> [<id>...]",
		Short: "Remove jobs from the queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				out := cmd.OutOrStdout()
				removed := 0
				for _, raw := range args {
					id, err := resolveJobID(cmd.Context(), q, raw)
					if errors.Is(err, errJobNotFound) {
						fmt.Fprintf(out, "No queue item %s\n", strings.TrimSpace(raw))
						continue
					}
					if err != nil {
						return err
					}
					ok, err := q.Remove(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintf(out, "No queue item %s\n", strings.TrimSpace(raw))
						continue
					}
					removed++
					fmt.Fprintf(out, "Removed %s\n", id)
				}
				if len(args) > 1 {
					fmt.Fprintf(out, "Removed %d of %d items\n", removed, len(args))
				}
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queued jobs in bulk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withQueue(func(q queueAPI) error {
				out := cmd.OutOrStdout()
				switch {
				case clearCompleted:
					removed, err := q.ClearCompleted(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed items\n", removed)
				case clearFailed:
					removed, err := q.ClearFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed items\n", removed)
				default:
					removed, err := q.ClearAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d queue items\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Only remove completed jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Only remove failed jobs")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Summarise queue counts and snapshot health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(q queueAPI) error {
				health, err := q.Health(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{
						"total":      health.Total,
						"pending":    health.Pending,
						"processing": health.Processing,
						"restoring":  health.Restoring,
						"completed":  health.Completed,
						"errored":    health.Errored,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total items: %d\n", health.Total)
				fmt.Fprintf(out, "Pending: %d\n", health.Pending)
				fmt.Fprintf(out, "Processing: %d\n", health.Processing)
				fmt.Fprintf(out, "Restoring: %d\n", health.Restoring)
				fmt.Fprintf(out, "Completed: %d\n", health.Completed)
				fmt.Fprintf(out, "Errored: %d\n", health.Errored)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of text")
	return cmd
}
