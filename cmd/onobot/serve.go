package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Xuanwo/onobot/internal/correlation"
	"github.com/Xuanwo/onobot/internal/logutil"
	"github.com/Xuanwo/onobot/internal/moderation"
	"github.com/Xuanwo/onobot/internal/obs"
	"github.com/Xuanwo/onobot/internal/telegram"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(flagOrViperString(cmd, "telegram-bot-token", "telegram.bot_token"))
			if token == "" {
				return fmt.Errorf("missing telegram.bot_token (set via --telegram-bot-token or ONOBOT_TELEGRAM_BOT_TOKEN)")
			}
			baseURL := strings.TrimSpace(flagOrViperString(cmd, "telegram-base-url", "telegram.base_url"))

			mainGroupID := flagOrViperInt64(cmd, "main-group-id", "main_group_id")
			if mainGroupID == 0 {
				return fmt.Errorf("missing main_group_id")
			}
			adminGroupID := flagOrViperInt64(cmd, "admin-group-id", "admin_group_id")
			if adminGroupID == 0 {
				return fmt.Errorf("missing admin_group_id")
			}
			offtopicURL := strings.TrimSpace(flagOrViperString(cmd, "offtopic-group-url", "offtopic_group_url"))
			if offtopicURL == "" {
				return fmt.Errorf("missing offtopic_group_url")
			}
			appealURL := strings.TrimSpace(flagOrViperString(cmd, "appeal-group-url", "appeal_group_url"))
			if appealURL == "" {
				return fmt.Errorf("missing appeal_group_url")
			}

			pollTimeout := flagOrViperDuration(cmd, "poll-timeout", "telegram.poll_timeout")
			if pollTimeout <= 0 {
				pollTimeout = 30 * time.Second
			}

			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			logger = logger.With("instance", uuid.NewString())
			slog.SetDefault(logger)

			cache, err := correlation.Open(correlation.Options{
				Backend:  viper.GetString("cache.backend"),
				Capacity: viper.GetInt("cache.capacity"),
				Path:     viper.GetString("cache.path"),
			})
			if err != nil {
				return err
			}
			defer func() {
				if err := cache.Close(); err != nil {
					logger.Warn("close cache failed", "error", err.Error())
				}
			}()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := telegram.NewClient(&http.Client{Timeout: 60 * time.Second}, baseURL, token)

			me, err := client.GetMe(ctx)
			if err != nil {
				return fmt.Errorf("telegram handshake failed: %w", err)
			}

			admins := moderation.LoadRegistry(ctx, client, mainGroupID, logger)

			ctrl := moderation.NewController(logger, client, cache, admins, moderation.Config{
				MainGroupID:      mainGroupID,
				AdminGroupID:     adminGroupID,
				OfftopicGroupURL: offtopicURL,
				AppealGroupURL:   appealURL,
			})

			var ops *obs.Server
			if addr := strings.TrimSpace(viper.GetString("ops.addr")); addr != "" {
				ops = obs.NewServer(addr, logger)
				ops.Start()
			}

			logger.Info("onobot started",
				"bot_username", me.Username,
				"bot_id", me.ID,
				"main_group_id", mainGroupID,
				"admin_group_id", adminGroupID,
				"cache_backend", viper.GetString("cache.backend"),
				"poll_timeout", pollTimeout.String(),
			)

			var offset int64
			for {
				if ctx.Err() != nil {
					break
				}
				updates, nextOffset, err := client.GetUpdates(ctx, offset, pollTimeout)
				if err != nil {
					if ctx.Err() != nil {
						break
					}
					if !telegram.IsPollTimeout(err) {
						logger.Warn("get updates failed", "error", err.Error())
						time.Sleep(1 * time.Second)
					}
					continue
				}
				offset = nextOffset

				// Updates are handled strictly one at a time; a slow send
				// backpressures the poll loop instead of racing the cache.
				for _, u := range updates {
					if err := ctrl.HandleUpdate(ctx, u); err != nil {
						logger.Error("handle update failed",
							"update_id", u.UpdateID,
							"error", err.Error(),
						)
					}
				}
			}

			logger.Info("shutting down")
			if ops != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := ops.Shutdown(shutdownCtx); err != nil {
					logger.Warn("ops server shutdown failed", "error", err.Error())
				}
			}
			return nil
		},
	}

	cmd.Flags().String("telegram-bot-token", "", "Telegram bot token.")
	cmd.Flags().String("telegram-base-url", "https://api.telegram.org", "Telegram API base URL.")
	cmd.Flags().Int64("main-group-id", 0, "Chat id of the watched discussion group.")
	cmd.Flags().Int64("admin-group-id", 0, "Chat id of the moderators' group.")
	cmd.Flags().String("offtopic-group-url", "", "Link attached to notices pointing at the off-topic group.")
	cmd.Flags().String("appeal-group-url", "", "Link attached to notices for appeals.")
	cmd.Flags().Duration("poll-timeout", 30*time.Second, "Long polling timeout for getUpdates.")

	return cmd
}
