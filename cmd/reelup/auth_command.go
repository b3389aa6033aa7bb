package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reelup/internal/logging"
	"reelup/internal/services/youtube"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize reelup to upload to your channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			oauthCfg, err := youtube.LoadOAuthConfig(cfg.YouTube.ClientSecretsFile)
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			if timeout > 0 {
				var cancelTimeout context.CancelFunc
				signalCtx, cancelTimeout = context.WithTimeout(signalCtx, timeout)
				defer cancelTimeout()
			}

			tok, err := youtube.Authorize(signalCtx, oauthCfg, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("authorize: %w", err)
			}
			store := youtube.NewTokenStore(cfg.YouTube.TokenFile)
			if err := store.Save(tok); err != nil {
				return fmt.Errorf("store token: %w", err)
			}
			logger.Info("oauth token stored", logging.String("path", store.Path()))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Token saved to %s\n", store.Path())

			client, err := youtube.NewHTTPClient(signalCtx, oauthCfg, store, time.Duration(cfg.YouTube.RequestTimeoutSeconds)*time.Second, logger)
			if err != nil {
				return err
			}
			attacher, err := youtube.NewPlaylistAttacher(signalCtx, client, cfg.YouTube.APIBaseURL)
			if err != nil {
				return err
			}
			if title, err := attacher.ChannelTitle(signalCtx); err != nil {
				logging.WarnWithContext(logger, "channel lookup failed", "channel_lookup_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "token saved but the channel could not be confirmed"),
					logging.String(logging.FieldErrorHint, "run `reelup doctor --online`"),
				)
			} else {
				fmt.Fprintf(out, "Authorized channel: %s\n", title)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the browser redirect")
	return cmd
}
