package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"deckhand/internal/auth"
	"deckhand/internal/ipc"
	"deckhand/internal/logging"
	"deckhand/internal/services/worker"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage notebook service credentials",
	}

	authCmd.AddCommand(newAuthStatusCommand(ctx))
	authCmd.AddCommand(newAuthLoginCommand(ctx))
	authCmd.AddCommand(newAuthLogoutCommand(ctx))

	return authCmd
}

func newAuthStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report stored credential freshness",
		RunE: func(cmd *cobra.Command, args []string) error {
			authenticated, detail, err := fetchAuthStatus(ctx, cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if authenticated {
				if detail == "" {
					fmt.Fprintln(out, "Credentials are fresh")
				} else {
					fmt.Fprintf(out, "Credentials are fresh: %s\n", detail)
				}
				return nil
			}
			fmt.Fprintf(out, "Credentials need attention: %s\n", detail)
			fmt.Fprintln(out, "Run `deckhand auth login` to refresh them.")
			return nil
		},
	}
}

// fetchAuthStatus asks the daemon when it is up and falls back to reading
// the storage state file directly, so the answer is available either way.
func fetchAuthStatus(ctx *commandContext, cmd *cobra.Command) (bool, string, error) {
	socket := ctx.socketPath()
	client, err := ipc.Dial(socket)
	if err == nil {
		defer client.Close()
		resp, rpcErr := client.AuthStatus()
		if rpcErr != nil {
			return false, "", rpcErr
		}
		return resp.Authenticated, resp.Detail, nil
	}
	if !daemonUnreachable(err) {
		return false, "", wrapDialError(err, socket)
	}

	cfg, cfgErr := ctx.ensureConfig()
	if cfgErr != nil {
		return false, "", cfgErr
	}
	fresh, detail := auth.NewFileProvider(cfg).Fresh(cmd.Context())
	return fresh, detail, nil
}

func newAuthLoginCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to the notebook service through the worker",
		Long: "Login launches the worker's interactive browser flow and stores the\n" +
			"resulting session for the daemon to use. Keep the browser window open\n" +
			"until the flow reports success.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client, err := worker.New(cfg.WorkerBinary(), worker.TimeoutsFromConfig(cfg), worker.WithLogger(logging.NewNop()))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Starting login flow; a browser window should open shortly...")
			resp, err := client.Login(cmd.Context(), func(event worker.Response) {
				if detail := event.Detail(); detail != "" {
					fmt.Fprintln(out, detail)
				}
			})
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if resp != nil && resp.Error != "" {
				return errors.New(resp.Error)
			}
			if resp.AuthOK() {
				fmt.Fprintln(out, "Login successful; credentials stored")
				return nil
			}
			fmt.Fprintln(out, "Login finished; run `deckhand auth status` to confirm credentials")
			return nil
		},
	}
}

func newAuthLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			provider := auth.NewFileProvider(cfg)
			if err := provider.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear credentials: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored credentials removed (%s)\n", provider.Path())
			return nil
		},
	}
}
